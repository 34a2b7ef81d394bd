package model

import (
	"errors"
	"fmt"
)

// ShapeKind is the collection shape of an instance's value.
type ShapeKind int

const (
	// ShapeAuto leaves the shape to Compile; it is only meaningful as an
	// Instance.Container value.
	ShapeAuto ShapeKind = iota
	Singleton
	List
	KeyedMap
)

func (k ShapeKind) String() string {
	switch k {
	case Singleton:
		return "singleton"
	case List:
		return "list"
	case KeyedMap:
		return "keyed map"
	default:
		return "auto"
	}
}

// ErrNilKey is returned when an item added to a keyed map has no key.
var ErrNilKey = errors.New("keyed item has no key value")

// Shape is the resolved collection shape. The value it governs is the item
// itself (or nil) for Singleton, []any for List and *Map for KeyedMap.
type Shape struct {
	Kind ShapeKind
	// Key is the flag keying KeyedMap items.
	Key *Instance
}

// ShapeReader is driven by Shape.Read with the method matching the shape.
type ShapeReader interface {
	ReadSingleton() (any, error)
	ReadList() ([]any, error)
	ReadMap() (*Map, error)
}

// ShapeWriter is driven by Shape.Write with the method matching the shape.
type ShapeWriter interface {
	WriteSingleton(item any) error
	WriteList(items []any) error
	WriteMap(m *Map) error
}

// Read reads one collection value through r.
func (s Shape) Read(r ShapeReader) (any, error) {
	switch s.Kind {
	case List:
		l, err := r.ReadList()
		if err != nil {
			return nil, err
		}
		return l, nil
	case KeyedMap:
		m, err := r.ReadMap()
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return r.ReadSingleton()
	}
}

// Write writes a collection value through w.
func (s Shape) Write(w ShapeWriter, v any) error {
	switch s.Kind {
	case List:
		return w.WriteList(s.Items(v))
	case KeyedMap:
		m, _ := v.(*Map)
		if m == nil {
			m = NewMap()
		}
		return w.WriteMap(m)
	default:
		return w.WriteSingleton(v)
	}
}

// Items lists the items of v in order. nil has no items.
func (s Shape) Items(v any) []any {
	if v == nil {
		return nil
	}
	switch s.Kind {
	case List:
		l, _ := v.([]any)
		return l
	case KeyedMap:
		m, _ := v.(*Map)
		return m.Values()
	default:
		return []any{v}
	}
}

// ItemCount is len(s.Items(v)) without allocating.
func (s Shape) ItemCount(v any) int {
	if v == nil {
		return 0
	}
	switch s.Kind {
	case List:
		l, _ := v.([]any)
		return len(l)
	case KeyedMap:
		m, _ := v.(*Map)
		return m.Len()
	default:
		return 1
	}
}

// IsEmpty reports whether v holds no items.
func (s Shape) IsEmpty(v any) bool { return s.ItemCount(v) == 0 }

// Empty returns the empty value of the shape.
func (s Shape) Empty() any {
	switch s.Kind {
	case List:
		return []any{}
	case KeyedMap:
		return NewMap()
	default:
		return nil
	}
}

// KeyOf returns the map key of a KeyedMap item, the lexical form of its key
// flag.
func (s Shape) KeyOf(item any) (string, error) {
	if s.Kind != KeyedMap || s.Key == nil {
		return "", fmt.Errorf("shape %s has no key", s.Kind)
	}
	obj, ok := item.(Object)
	if !ok || obj == nil {
		return "", ErrNilKey
	}
	kv := obj.Get(s.Key.Name)
	if kv == nil {
		return "", ErrNilKey
	}
	return s.Key.Type.Format(kv)
}

// Put adds item to m under its key. A later item with the same key replaces
// the earlier one and keeps its position.
func (s Shape) Put(m *Map, item any) (replaced bool, err error) {
	k, err := s.KeyOf(item)
	if err != nil {
		return false, err
	}
	return m.Put(k, item), nil
}
