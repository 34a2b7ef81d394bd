// Package yaml is a Generator that collects tokens into a yaml.v3 node tree
// and encodes it on Flush.
package yaml

import (
	"errors"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	eng "github.com/reoring/metacodec/internal/engine"
)

type generator struct {
	w      io.Writer
	indent int
	root   *yaml.Node
	stack  []*yaml.Node
}

// NewWriter returns a Generator writing one YAML document to w on Flush. The
// writer is not owned.
func NewWriter(w io.Writer, indent int) eng.Generator {
	if indent <= 0 {
		indent = 2
	}
	return &generator{w: w, indent: indent}
}

func (g *generator) add(n *yaml.Node) error {
	if len(g.stack) == 0 {
		if g.root != nil {
			return errors.New("yaml: more than one top-level value")
		}
		g.root = n
		return nil
	}
	parent := g.stack[len(g.stack)-1]
	parent.Content = append(parent.Content, n)
	return nil
}

func (g *generator) open(kind yaml.Kind, tag string) error {
	n := &yaml.Node{Kind: kind, Tag: tag}
	if err := g.add(n); err != nil {
		return err
	}
	g.stack = append(g.stack, n)
	return nil
}

func (g *generator) close() error {
	if len(g.stack) == 0 {
		return errors.New("yaml: unbalanced end of container")
	}
	g.stack = g.stack[:len(g.stack)-1]
	return nil
}

func (g *generator) scalar(tag, value string) error {
	return g.add(&yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value})
}

func (g *generator) BeginObject() error { return g.open(yaml.MappingNode, "!!map") }
func (g *generator) EndObject() error   { return g.close() }
func (g *generator) BeginArray() error  { return g.open(yaml.SequenceNode, "!!seq") }
func (g *generator) EndArray() error    { return g.close() }

func (g *generator) Key(name string) error   { return g.scalar("!!str", name) }
func (g *generator) String(s string) error   { return g.scalar("!!str", s) }
func (g *generator) Null() error             { return g.scalar("!!null", "null") }
func (g *generator) Number(text string) error {
	if strings.ContainsAny(text, ".eE") {
		return g.scalar("!!float", text)
	}
	return g.scalar("!!int", text)
}

func (g *generator) Bool(b bool) error {
	if b {
		return g.scalar("!!bool", "true")
	}
	return g.scalar("!!bool", "false")
}

func (g *generator) Flush() error {
	if g.root == nil {
		return nil
	}
	enc := yaml.NewEncoder(g.w)
	enc.SetIndent(g.indent)
	if err := enc.Encode(g.root); err != nil {
		return err
	}
	return enc.Close()
}
