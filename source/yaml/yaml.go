// Package yaml replays YAML documents as JSON-shaped token streams so the
// JSON codec can read them unchanged.
package yaml

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	eng "github.com/reoring/metacodec/internal/engine"
)

// DuplicateKeyError reports a duplicate key found in a YAML mapping with both
// the first occurrence position and the duplicate occurrence position.
type DuplicateKeyError struct {
	Key       string
	FirstLine int
	FirstCol  int
	Line      int
	Col       int
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate YAML key %q at %d:%d (first at %d:%d)", e.Key, e.Line, e.Col, e.FirstLine, e.FirstCol)
}

type source struct {
	dec    *yaml.Decoder
	strict bool
	toks   []eng.Token
	lines  []int
	pos    int
	loaded bool
	line   int
}

// Option configures the YAML source.
type Option func(*source)

// Strict makes duplicate mapping keys an error (*DuplicateKeyError).
func Strict() Option { return func(s *source) { s.strict = true } }

// NewReader returns a token source over the first YAML document in r. The
// reader is not owned.
func NewReader(r io.Reader, opts ...Option) eng.TokenSource {
	s := &source{dec: yaml.NewDecoder(r)}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *source) load() error {
	s.loaded = true
	var root yaml.Node
	if err := s.dec.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return err
	}
	return s.walk(&root)
}

func (s *source) emit(t eng.Token, line int) {
	t.Offset = -1
	s.toks = append(s.toks, t)
	s.lines = append(s.lines, line)
}

func (s *source) walk(n *yaml.Node) error {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			s.emit(eng.Token{Kind: eng.KindNull}, n.Line)
			return nil
		}
		return s.walk(n.Content[0])
	case yaml.AliasNode:
		return s.walk(n.Alias)
	case yaml.MappingNode:
		s.emit(eng.Token{Kind: eng.KindBeginObject}, n.Line)
		first := make(map[string][2]int, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if pos, dup := first[k.Value]; dup && s.strict {
				return &DuplicateKeyError{Key: k.Value, FirstLine: pos[0], FirstCol: pos[1], Line: k.Line, Col: k.Column}
			}
			first[k.Value] = [2]int{k.Line, k.Column}
			s.emit(eng.Token{Kind: eng.KindKey, String: k.Value}, k.Line)
			if err := s.walk(v); err != nil {
				return err
			}
		}
		s.emit(eng.Token{Kind: eng.KindEndObject}, n.Line)
	case yaml.SequenceNode:
		s.emit(eng.Token{Kind: eng.KindBeginArray}, n.Line)
		for _, c := range n.Content {
			if err := s.walk(c); err != nil {
				return err
			}
		}
		s.emit(eng.Token{Kind: eng.KindEndArray}, n.Line)
	case yaml.ScalarNode:
		s.emit(scalarToken(n), n.Line)
	}
	return nil
}

func scalarToken(n *yaml.Node) eng.Token {
	switch n.ShortTag() {
	case "!!null":
		return eng.Token{Kind: eng.KindNull}
	case "!!bool":
		if b, err := strconv.ParseBool(strings.ToLower(n.Value)); err == nil {
			return eng.Token{Kind: eng.KindBool, Bool: b}
		}
	case "!!int":
		if i, err := strconv.ParseInt(strings.ReplaceAll(n.Value, "_", ""), 0, 64); err == nil {
			return eng.Token{Kind: eng.KindNumber, Number: strconv.FormatInt(i, 10)}
		}
		return eng.Token{Kind: eng.KindNumber, Number: n.Value}
	case "!!float":
		return eng.Token{Kind: eng.KindNumber, Number: n.Value}
	}
	return eng.Token{Kind: eng.KindString, String: n.Value}
}

func (s *source) NextToken() (eng.Token, error) {
	if !s.loaded {
		if err := s.load(); err != nil {
			return eng.Token{}, err
		}
	}
	if s.pos >= len(s.toks) {
		return eng.Token{}, io.EOF
	}
	t := s.toks[s.pos]
	s.line = s.lines[s.pos]
	s.pos++
	return t, nil
}

// Location reports -1: YAML positions are lines, see Line.
func (s *source) Location() int64 { return -1 }

// Line returns the 1-based line of the most recently returned token.
func (s *source) Line() int { return s.line }
