// Package gojson is a streaming JSON generator. Scalar escaping is delegated
// to goccy/go-json.
package gojson

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	j "github.com/goccy/go-json"

	eng "github.com/reoring/metacodec/internal/engine"
)

type level struct {
	array bool
	n     int // values (or keys) written so far
}

type generator struct {
	w        *bufio.Writer
	indent   string
	stack    []level
	afterKey bool
	scratch  bytes.Buffer
	enc      *j.Encoder
}

// Option configures the generator.
type Option func(*generator)

// Indent enables pretty printing with the given per-level indentation.
func Indent(s string) Option { return func(g *generator) { g.indent = s } }

// NewWriter returns a Generator writing to w. The writer is not owned; Flush
// must be called when the document is complete.
func NewWriter(w io.Writer, opts ...Option) eng.Generator {
	g := &generator{w: bufio.NewWriter(w)}
	g.enc = j.NewEncoder(&g.scratch)
	g.enc.SetEscapeHTML(false)
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *generator) newline() {
	if g.indent == "" {
		return
	}
	g.w.WriteByte('\n')
	g.w.WriteString(strings.Repeat(g.indent, len(g.stack)))
}

// prefix writes the separator that precedes a value or key at the current
// position.
func (g *generator) prefix() {
	if g.afterKey {
		g.afterKey = false
		return
	}
	n := len(g.stack)
	if n == 0 {
		return
	}
	top := &g.stack[n-1]
	if top.n > 0 {
		g.w.WriteByte(',')
	}
	top.n++
	g.newline()
}

func (g *generator) open(c byte, array bool) error {
	g.prefix()
	g.stack = append(g.stack, level{array: array})
	return g.w.WriteByte(c)
}

func (g *generator) close(c byte) error {
	n := len(g.stack)
	empty := n > 0 && g.stack[n-1].n == 0
	if n > 0 {
		g.stack = g.stack[:n-1]
	}
	if !empty {
		g.newline()
	}
	return g.w.WriteByte(c)
}

func (g *generator) BeginObject() error { return g.open('{', false) }
func (g *generator) EndObject() error   { return g.close('}') }
func (g *generator) BeginArray() error  { return g.open('[', true) }
func (g *generator) EndArray() error    { return g.close(']') }

func (g *generator) Key(name string) error {
	g.prefix()
	if err := g.quoted(name); err != nil {
		return err
	}
	g.w.WriteByte(':')
	if g.indent != "" {
		g.w.WriteByte(' ')
	}
	g.afterKey = true
	return nil
}

func (g *generator) quoted(s string) error {
	g.scratch.Reset()
	if err := g.enc.Encode(s); err != nil {
		return err
	}
	_, err := g.w.Write(bytes.TrimRight(g.scratch.Bytes(), "\n"))
	return err
}

func (g *generator) String(s string) error {
	g.prefix()
	return g.quoted(s)
}

func (g *generator) Number(text string) error {
	g.prefix()
	_, err := g.w.WriteString(text)
	return err
}

func (g *generator) Bool(b bool) error {
	g.prefix()
	if b {
		_, err := g.w.WriteString("true")
		return err
	}
	_, err := g.w.WriteString("false")
	return err
}

func (g *generator) Null() error {
	g.prefix()
	_, err := g.w.WriteString("null")
	return err
}

func (g *generator) Flush() error {
	if g.indent != "" {
		g.w.WriteByte('\n')
	}
	return g.w.Flush()
}
