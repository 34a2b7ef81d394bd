package jsoncodec

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"

	metacodec "github.com/reoring/metacodec"
	"github.com/reoring/metacodec/datatype"
	"github.com/reoring/metacodec/model"
)

// Writer writes one document to a generator. It is not safe for concurrent
// use.
type Writer struct {
	cfg metacodec.Config
	gen metacodec.Generator
	ctx context.Context
}

// NewWriter returns a Writer to gen. Indentation is a property of the
// generator; Config.Indent is not consulted here.
func NewWriter(gen metacodec.Generator, cfg metacodec.Config) *Writer {
	return &Writer{cfg: cfg, gen: gen}
}

// Write serializes obj as a document rooted at root and flushes gen.
func Write(ctx context.Context, gen metacodec.Generator, root *model.Definition, obj model.Object, cfg metacodec.Config) error {
	return NewWriter(gen, cfg).Write(ctx, root, obj)
}

// Write serializes obj, which must have been produced for root.
func (w *Writer) Write(ctx context.Context, root *model.Definition, obj model.Object) (err error) {
	if !root.IsRoot() {
		return metacodec.Errorf(metacodec.StructuralMismatch, metacodec.CodeWrongRoot, "definition %s is not a root", root.Name)
	}
	if obj == nil || obj.Definition() != root {
		return metacodec.Errorf(metacodec.StructuralMismatch, metacodec.CodeWrongRoot, "object is not a %s", root.Name)
	}
	w.ctx = log.WithContext(ctx, w.cfg.LoggerFor(ctx))
	defer func() {
		if err != nil {
			err = metacodec.Normalize(err)
		}
	}()

	if w.cfg.JSONRootProperty {
		if err := w.gen.BeginObject(); err != nil {
			return err
		}
		if err := w.gen.Key(root.RootJSONName); err != nil {
			return err
		}
	}
	if err := w.writeComplex(root, obj, writeOpts{}); err != nil {
		return err
	}
	if w.cfg.JSONRootProperty {
		if err := w.gen.EndObject(); err != nil {
			return err
		}
	}
	return w.gen.Flush()
}

// writeOpts mirrors readOpts: a key flag written by the enclosing map and a
// discriminator written first.
type writeOpts struct {
	key       *model.Instance
	discName  string
	discValue string
}

func (w *Writer) writeComplex(def *model.Definition, obj model.Object, opts writeOpts) error {
	if err := def.BeforeSerialize(obj); err != nil {
		return hookErr(def, err)
	}
	if err := w.gen.BeginObject(); err != nil {
		return err
	}
	if opts.discName != "" {
		if err := w.gen.Key(opts.discName); err != nil {
			return err
		}
		if err := w.gen.String(opts.discValue); err != nil {
			return err
		}
	}
	valueFlag := def.ValueKeyFlag()
	for _, f := range def.Flags {
		v := obj.Get(f.Name)
		if v == nil || f == opts.key || f == valueFlag {
			continue
		}
		if err := w.gen.Key(f.JSONName); err != nil {
			return err
		}
		if err := w.scalar(f.Type, v); err != nil {
			return err
		}
	}
	if def.IsField() {
		if v := obj.Get(def.Value.Name); v != nil {
			key, err := valueKey(def, obj)
			if err != nil {
				return err
			}
			if err := w.gen.Key(key); err != nil {
				return err
			}
			if err := w.scalar(def.Value.Type, v); err != nil {
				return err
			}
		}
	} else {
		for _, inst := range def.Model {
			if err := w.writeInstance(inst, obj.Get(inst.Name)); err != nil {
				return err
			}
		}
	}
	if err := w.gen.EndObject(); err != nil {
		return err
	}
	if err := def.AfterSerialize(obj); err != nil {
		return hookErr(def, err)
	}
	return nil
}

// valueKey is the property carrying a complex field's value: the value-key
// flag's value when it is set, the static value key otherwise.
func valueKey(def *model.Definition, obj model.Object) (string, error) {
	f := def.ValueKeyFlag()
	if f == nil {
		return def.JSONValueKey(), nil
	}
	kv := obj.Get(f.Name)
	if kv == nil {
		return def.JSONValueKey(), nil
	}
	s, err := f.Type.Format(kv)
	if err != nil {
		return "", lexical(err)
	}
	return s, nil
}

func (w *Writer) scalar(a datatype.Adapter, v any) error {
	s, err := a.Format(v)
	if err != nil {
		return lexical(err)
	}
	switch a.JSONKind() {
	case datatype.JSONNumber:
		return w.gen.Number(s)
	case datatype.JSONBoolean:
		return w.gen.Bool(s == "true" || s == "1")
	default:
		return w.gen.String(s)
	}
}

func (w *Writer) writeInstance(inst *model.Instance, v any) error {
	shape := inst.Shape()
	count := shape.ItemCount(v)
	if count == 0 && inst.MinOccurs == 0 {
		return nil
	}
	if err := w.gen.Key(inst.JSONPropertyName()); err != nil {
		return err
	}
	if count == 0 {
		switch shape.Kind {
		case model.List:
			if err := w.gen.BeginArray(); err != nil {
				return err
			}
			return w.gen.EndArray()
		case model.KeyedMap:
			if err := w.gen.BeginObject(); err != nil {
				return err
			}
			return w.gen.EndObject()
		default:
			return w.gen.Null()
		}
	}
	return shape.Write(&shapeWriter{w: w, inst: inst}, v)
}

type shapeWriter struct {
	w    *Writer
	inst *model.Instance
}

func (s *shapeWriter) WriteSingleton(item any) error { return s.w.writeItem(s.inst, item) }

// WriteList writes an array, or the bare item when a single-or-list
// instance holds exactly one.
func (s *shapeWriter) WriteList(items []any) error {
	if len(items) == 1 && s.inst.GroupAs.InJSON == model.JSONSingletonOrList {
		return s.w.writeItem(s.inst, items[0])
	}
	if err := s.w.gen.BeginArray(); err != nil {
		return err
	}
	for _, it := range items {
		if err := s.w.writeItem(s.inst, it); err != nil {
			return err
		}
	}
	return s.w.gen.EndArray()
}

func (s *shapeWriter) WriteMap(m *model.Map) error {
	if err := s.w.gen.BeginObject(); err != nil {
		return err
	}
	shape := s.inst.Shape()
	var err error
	m.Each(func(_ string, item any) bool {
		// the item's key flag is authoritative, as in XML
		var k string
		if k, err = shape.KeyOf(item); err != nil {
			err = keyErr(s.inst, shape.Key, err)
			return false
		}
		if err = s.w.gen.Key(k); err != nil {
			return false
		}
		err = s.w.writeKeyed(s.inst.Definition, shape.Key, item)
		return err == nil
	})
	if err != nil {
		return err
	}
	return s.w.gen.EndObject()
}

// writeKeyed writes one keyed map value. A complex field with no flag set
// besides its key collapses to its bare value.
func (w *Writer) writeKeyed(def *model.Definition, key *model.Instance, item any) error {
	obj, ok := item.(model.Object)
	if !ok {
		return metacodec.Errorf(metacodec.StructuralMismatch, metacodec.CodeInvalidType, "%s: item is %T, not a bound object", def.Name, item)
	}
	if def.IsField() && onlyKey(def, key, obj) {
		v := obj.Get(def.Value.Name)
		if v != nil {
			if err := def.BeforeSerialize(obj); err != nil {
				return hookErr(def, err)
			}
			if err := w.scalar(def.Value.Type, v); err != nil {
				return err
			}
			if err := def.AfterSerialize(obj); err != nil {
				return hookErr(def, err)
			}
			return nil
		}
	}
	return w.writeComplex(def, obj, writeOpts{key: key})
}

func keyErr(inst, key *model.Instance, err error) error {
	if errors.Is(err, model.ErrNilKey) {
		return metacodec.Errorf(metacodec.MissingRequiredData, metacodec.CodeRequired, "%s: keyed item has no %s", inst.Name, key.Name)
	}
	return lexical(err)
}

func onlyKey(def *model.Definition, key *model.Instance, obj model.Object) bool {
	for _, f := range def.Flags {
		if f != key && obj.Get(f.Name) != nil {
			return false
		}
	}
	return true
}

func (w *Writer) writeItem(inst *model.Instance, item any) error {
	if inst.Kind == model.KindScalarField {
		return w.scalar(inst.Type, item)
	}
	obj, ok := item.(model.Object)
	if !ok {
		return metacodec.Errorf(metacodec.StructuralMismatch, metacodec.CodeInvalidType, "%s: item is %T, not a bound object", inst.Name, item)
	}
	if inst.Kind == model.KindChoiceGroup {
		alt, ok := inst.AlternativeFor(obj)
		if !ok {
			return metacodec.NewIssue(metacodec.StructuralMismatch, metacodec.CodeDiscriminatorUnknown,
				map[string]string{"name": obj.Definition().Name})
		}
		return w.writeComplex(alt.Definition, obj, writeOpts{discName: inst.Discriminator, discValue: alt.DiscriminatorValue()})
	}
	return w.writeComplex(inst.Definition, obj, writeOpts{})
}
