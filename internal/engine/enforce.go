package engine

import (
	"strconv"
	"strings"
)

// DuplicateStrictness controls duplicate key handling.
type DuplicateStrictness int

const (
	DupIgnore DuplicateStrictness = iota
	DupWarn
	DupError
)

// SimpleIssue is a finding of the enforcement wrapper.
type SimpleIssue struct {
	Code    string
	Path    string
	Message string
}

// IssueError is a lightweight error carrying a SimpleIssue.
type IssueError struct{ SimpleIssue }

func (e IssueError) Error() string { return e.SimpleIssue.Message }

// EnforceOptions controls runtime enforcement behavior. Zero values disable
// each check.
type EnforceOptions struct {
	OnDuplicate DuplicateStrictness
	MaxDepth    int
	// MaxBytes bounds the input offset; it needs a source that reports
	// offsets.
	MaxBytes int64
	// IssueSink receives every issue, fatal or not.
	IssueSink func(SimpleIssue)
}

// WrapWithEnforcement returns a TokenSource that checks duplicate keys,
// nesting depth and input size while tracking the JSON Pointer of each
// token.
func WrapWithEnforcement(inner TokenSource, opt EnforceOptions) TokenSource {
	return &guard{inner: inner, opt: opt}
}

// frame is one open container. For objects member is the pointer of the
// member whose value comes next.
type frame struct {
	array  bool
	path   string
	next   int
	member string
	keys   map[string]struct{}
}

type guard struct {
	inner TokenSource
	opt   EnforceOptions
	stack []frame
	path  string
}

func (g *guard) NextToken() (Token, error) {
	tok, err := g.inner.NextToken()
	if err != nil {
		return Token{}, err
	}
	switch tok.Kind {
	case KindKey:
		if err := g.key(tok.String); err != nil {
			return Token{}, err
		}
	case KindEndObject, KindEndArray:
		if n := len(g.stack); n > 0 {
			g.path = g.stack[n-1].path
			g.stack = g.stack[:n-1]
		}
	default:
		g.path = g.valuePath()
		if tok.Kind == KindBeginObject || tok.Kind == KindBeginArray {
			f := frame{array: tok.Kind == KindBeginArray, path: g.path}
			if !f.array && g.opt.OnDuplicate != DupIgnore {
				f.keys = map[string]struct{}{}
			}
			g.stack = append(g.stack, f)
			if g.opt.MaxDepth > 0 && len(g.stack) > g.opt.MaxDepth {
				return Token{}, g.report(SimpleIssue{Code: "parse_error", Path: g.path, Message: "max depth exceeded"}, true)
			}
		}
	}
	if g.opt.MaxBytes > 0 && g.inner.Location() > g.opt.MaxBytes {
		return Token{}, g.report(SimpleIssue{Code: "truncated", Path: g.path, Message: "max bytes exceeded"}, true)
	}
	return tok, nil
}

func (g *guard) key(name string) error {
	n := len(g.stack)
	if n == 0 {
		g.path = joinPointer("", name)
		return nil
	}
	top := &g.stack[n-1]
	g.path = joinPointer(top.path, name)
	top.member = g.path
	if top.keys == nil {
		return nil
	}
	if _, dup := top.keys[name]; dup {
		si := SimpleIssue{Code: "duplicate_key", Path: g.path, Message: "key '" + name + "' duplicated"}
		if err := g.report(si, g.opt.OnDuplicate == DupError); err != nil {
			return err
		}
	}
	top.keys[name] = struct{}{}
	return nil
}

func (g *guard) valuePath() string {
	n := len(g.stack)
	if n == 0 {
		return ""
	}
	top := &g.stack[n-1]
	if !top.array {
		return top.member
	}
	p := joinPointer(top.path, strconv.Itoa(top.next))
	top.next++
	return p
}

// report hands si to the sink and returns it as an error when fatal.
func (g *guard) report(si SimpleIssue, fatal bool) error {
	if si.Path == "" {
		si.Path = "/"
	}
	if g.opt.IssueSink != nil {
		g.opt.IssueSink(si)
	}
	if !fatal {
		return nil
	}
	return IssueError{si}
}

func (g *guard) Location() int64 { return g.inner.Location() }

// Line forwards the inner source's line tracking; 0 when it has none.
func (g *guard) Line() int {
	if l, ok := g.inner.(interface{ Line() int }); ok {
		return l.Line()
	}
	return 0
}

// Path returns the JSON Pointer of the most recently returned token; "/" for
// the document root.
func (g *guard) Path() string {
	if g.path == "" {
		return "/"
	}
	return g.path
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

func joinPointer(base, token string) string {
	return base + "/" + pointerEscaper.Replace(token)
}

// PathOf returns the JSON Pointer tracked by src when it is an enforcement
// wrapper, or "" otherwise.
func PathOf(src TokenSource) string {
	type pather interface{ Path() string }
	if p, ok := src.(pather); ok {
		return p.Path()
	}
	return ""
}
