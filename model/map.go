package model

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Map is the value of a KeyedMap instance: items keyed by the lexical form
// of their key flag, in first-insertion order.
type Map struct {
	om *orderedmap.OrderedMap[string, any]
}

// NewMap returns an empty Map.
func NewMap() *Map { return &Map{om: orderedmap.New[string, any]()} }

// Put stores v under k and reports whether an earlier value was replaced.
func (m *Map) Put(k string, v any) bool {
	_, present := m.om.Set(k, v)
	return present
}

func (m *Map) Get(k string) (any, bool) {
	if m == nil {
		return nil, false
	}
	return m.om.Get(k)
}

func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return m.om.Len()
}

// Each calls fn for every entry in order until fn returns false.
func (m *Map) Each(fn func(k string, v any) bool) {
	if m == nil {
		return
	}
	for p := m.om.Oldest(); p != nil; p = p.Next() {
		if !fn(p.Key, p.Value) {
			return
		}
	}
}

func (m *Map) Keys() []string {
	out := make([]string, 0, m.Len())
	m.Each(func(k string, _ any) bool {
		out = append(out, k)
		return true
	})
	return out
}

func (m *Map) Values() []any {
	out := make([]any, 0, m.Len())
	m.Each(func(_ string, v any) bool {
		out = append(out, v)
		return true
	})
	return out
}
