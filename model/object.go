package model

import (
	"fmt"
	"sort"
	"strings"
)

// Object is a bound object: the in-memory form of an assembly or complex
// field.
type Object interface {
	Definition() *Definition
	Get(name string) any
	Set(name string, v any)
}

// Record is the default Object, a property bag keyed by instance name.
type Record struct {
	def    *Definition
	values map[string]any
}

// NewRecord returns an empty Record for d.
func NewRecord(d *Definition) *Record {
	return &Record{def: d, values: make(map[string]any)}
}

func (r *Record) Definition() *Definition { return r.def }

func (r *Record) Get(name string) any { return r.values[name] }

func (r *Record) Set(name string, v any) { r.values[name] = v }

// Has reports whether name was set, to nil or otherwise.
func (r *Record) Has(name string) bool {
	_, ok := r.values[name]
	return ok
}

// Names lists the set property names in sorted order.
func (r *Record) Names() []string {
	out := make([]string, 0, len(r.values))
	for k := range r.values {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (r *Record) String() string {
	b := &strings.Builder{}
	b.WriteString(r.def.Name)
	b.WriteByte('{')
	for i, k := range r.Names() {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(b, "%s: %v", k, r.values[k])
	}
	b.WriteByte('}')
	return b.String()
}
