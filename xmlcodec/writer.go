package xmlcodec

import (
	"bufio"
	"context"
	"encoding/xml"
	"io"

	"github.com/charmbracelet/log"

	metacodec "github.com/reoring/metacodec"
	"github.com/reoring/metacodec/datatype"
	"github.com/reoring/metacodec/model"
)

// Writer writes one XML document. It is not safe for concurrent use.
type Writer struct {
	cfg metacodec.Config
	dst io.Writer

	ctx context.Context
	out *bufio.Writer
	enc *xml.Encoder
	// ns is the stack of default namespaces in scope.
	ns []string
}

// NewWriter returns a Writer to w. The writer is not owned.
func NewWriter(w io.Writer, cfg metacodec.Config) *Writer {
	return &Writer{cfg: cfg, dst: w}
}

// Write serializes obj as a document rooted at root.
func Write(ctx context.Context, w io.Writer, root *model.Definition, obj model.Object, cfg metacodec.Config) error {
	return NewWriter(w, cfg).Write(ctx, root, obj)
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
	w.out = bufio.NewWriter(w.dst)
	w.enc = xml.NewEncoder(w.out)
	if w.cfg.Indent != "" {
		w.enc.Indent("", w.cfg.Indent)
	}
	defer func() {
		if err != nil {
			err = metacodec.Normalize(err)
		}
	}()

	if err := w.enc.EncodeToken(xml.ProcInst{Target: "xml", Inst: []byte(`version="1.0" encoding="UTF-8"`)}); err != nil {
		return err
	}
	if err := w.writeComplex(root, obj, root.RootName); err != nil {
		return err
	}
	if err := w.enc.Close(); err != nil {
		return err
	}
	return w.out.Flush()
}

// start writes a start tag with an unqualified name, declaring the default
// namespace when it differs from the one in scope.
func (w *Writer) start(name xml.Name, attrs []xml.Attr) error {
	cur := ""
	if n := len(w.ns); n > 0 {
		cur = w.ns[n-1]
	}
	if name.Space != cur {
		attrs = append([]xml.Attr{{Name: xml.Name{Local: "xmlns"}, Value: name.Space}}, attrs...)
	}
	w.ns = append(w.ns, name.Space)
	return w.enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: name.Local}, Attr: attrs})
}

func (w *Writer) end(name xml.Name) error {
	w.ns = w.ns[:len(w.ns)-1]
	return w.enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: name.Local}})
}

func (w *Writer) writeComplex(def *model.Definition, obj model.Object, name xml.Name) error {
	if err := def.BeforeSerialize(obj); err != nil {
		return hookErr(def, err)
	}
	attrs := make([]xml.Attr, 0, len(def.Flags))
	for _, f := range def.Flags {
		v := obj.Get(f.Name)
		if v == nil {
			continue
		}
		s, err := f.Type.Format(v)
		if err != nil {
			return lexical(err)
		}
		attrs = append(attrs, xml.Attr{Name: f.XMLName, Value: s})
	}
	if err := w.start(name, attrs); err != nil {
		return err
	}
	if def.IsField() {
		if err := w.writeValue(def.Value.Type, obj.Get(def.Value.Name)); err != nil {
			return err
		}
	} else {
		for _, inst := range def.Model {
			if err := w.writeInstance(inst, obj.Get(inst.Name)); err != nil {
				return err
			}
		}
	}
	if err := w.end(name); err != nil {
		return err
	}
	if err := def.AfterSerialize(obj); err != nil {
		return hookErr(def, err)
	}
	return nil
}

// writeValue writes simple content. Markup is written through a separate
// encoder without indentation so that mixed content is reproduced exactly.
func (w *Writer) writeValue(a datatype.Adapter, v any) error {
	if v == nil {
		return nil
	}
	if x, ok := a.(datatype.XMLContentAdapter); ok {
		if err := w.enc.Flush(); err != nil {
			return err
		}
		raw := xml.NewEncoder(w.out)
		if err := x.WriteXML(raw, v); err != nil {
			return lexical(err)
		}
		return raw.Flush()
	}
	s, err := a.Format(v)
	if err != nil {
		return lexical(err)
	}
	return w.enc.EncodeToken(xml.CharData(s))
}

func (w *Writer) writeInstance(inst *model.Instance, v any) error {
	shape := inst.Shape()
	count := shape.ItemCount(v)
	if count == 0 && inst.MinOccurs == 0 {
		return nil
	}
	if inst.Grouped() {
		if err := w.start(inst.WrapperName(), nil); err != nil {
			return err
		}
	}
	if count > 0 {
		if err := shape.Write(&shapeWriter{w: w, inst: inst}, v); err != nil {
			return err
		}
	}
	if inst.Grouped() {
		return w.end(inst.WrapperName())
	}
	return nil
}

type shapeWriter struct {
	w    *Writer
	inst *model.Instance
}

func (s *shapeWriter) WriteSingleton(item any) error { return s.w.writeItem(s.inst, item) }

func (s *shapeWriter) WriteList(items []any) error {
	for _, it := range items {
		if err := s.w.writeItem(s.inst, it); err != nil {
			return err
		}
	}
	return nil
}

func (s *shapeWriter) WriteMap(m *model.Map) error { return s.WriteList(m.Values()) }

func (w *Writer) writeItem(inst *model.Instance, item any) error {
	switch {
	case inst.IsUnwrapped():
		return w.writeValue(inst.Type, item)
	case inst.Kind == model.KindScalarField:
		if err := w.start(inst.XMLName, nil); err != nil {
			return err
		}
		if err := w.writeValue(inst.Type, item); err != nil {
			return err
		}
		return w.end(inst.XMLName)
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
		return w.writeComplex(alt.Definition, obj, alt.XMLName)
	}
	return w.writeComplex(inst.Definition, obj, inst.XMLName)
}
