// Package xmlcodec reads and writes bound object graphs as XML documents.
package xmlcodec

import (
	"context"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	metacodec "github.com/reoring/metacodec"
	"github.com/reoring/metacodec/datatype"
	"github.com/reoring/metacodec/model"
)

// Reader reads one XML document. It is not safe for concurrent use.
type Reader struct {
	cfg      metacodec.Config
	problems metacodec.ProblemHandler
	src      io.Reader

	ctx  context.Context
	ev   *events
	path []string
}

// NewReader returns a Reader over r. The reader is not owned.
func NewReader(r io.Reader, cfg metacodec.Config) *Reader {
	return &Reader{cfg: cfg, problems: cfg.Problems(), src: r}
}

// Read parses a document rooted at root from r.
func Read(ctx context.Context, r io.Reader, root *model.Definition, cfg metacodec.Config) (model.Object, error) {
	return NewReader(r, cfg).Read(ctx, root)
}

// Read parses the document. root must be a compiled root definition.
func (r *Reader) Read(ctx context.Context, root *model.Definition) (obj model.Object, err error) {
	if !root.IsRoot() {
		return nil, metacodec.Errorf(metacodec.StructuralMismatch, metacodec.CodeWrongRoot, "definition %s is not a root", root.Name)
	}
	r.ctx = log.WithContext(ctx, r.cfg.LoggerFor(ctx))
	r.ev = newEvents(r.ctx, r.src, r.cfg)
	defer func() {
		if err != nil {
			err = r.normalize(err)
		}
	}()

	tok, err := r.ev.next()
	if err != nil {
		return nil, err
	}
	start, ok := tok.(xml.StartElement)
	if !ok {
		return nil, r.unexpected(tok, qname(root.RootName))
	}
	if start.Name != root.RootName {
		return nil, metacodec.NewIssue(metacodec.StructuralMismatch, metacodec.CodeWrongRoot,
			map[string]string{"got": qname(start.Name), "expected": qname(root.RootName)})
	}
	r.ev.Token()
	return r.readComplex(root, start, nil)
}

func (r *Reader) normalize(err error) error {
	e := metacodec.Normalize(err).(*metacodec.Error)
	return e.At("/"+strings.Join(r.path, "/"), r.ev.location())
}

func (r *Reader) unexpected(tok xml.Token, expected string) error {
	return metacodec.NewIssue(metacodec.StructuralMismatch, metacodec.CodeUnexpectedToken,
		map[string]string{"got": describe(tok), "expected": expected})
}

func (r *Reader) problem(def *model.Definition, target model.Object, name xml.Name) metacodec.Problem {
	return metacodec.Problem{Definition: def, Target: target, Name: name, Location: r.ev.location()}
}

// readComplex reads the content of an element whose start tag has been
// consumed, through its end tag.
func (r *Reader) readComplex(def *model.Definition, start xml.StartElement, parent model.Object) (model.Object, error) {
	r.push(start.Name)
	obj := def.NewObject()
	if err := def.BeforeDeserialize(obj, parent); err != nil {
		return nil, hookErr(def, err)
	}
	if err := r.readFlags(def, obj, start.Attr); err != nil {
		return nil, err
	}
	if def.IsField() {
		v, err := r.readValue(def.Value.Type, def.Value.Default)
		if err != nil {
			return nil, err
		}
		obj.Set(def.Value.Name, v)
	} else if err := r.readModel(def, obj); err != nil {
		return nil, err
	}
	if err := r.end(start.Name); err != nil {
		return nil, err
	}
	if err := def.AfterDeserialize(obj, parent); err != nil {
		return nil, hookErr(def, err)
	}
	r.pop()
	return obj, nil
}

// push and pop track the element path reported with errors. The path is
// left in place on failure.
func (r *Reader) push(n xml.Name) { r.path = append(r.path, n.Local) }
func (r *Reader) pop()            { r.path = r.path[:len(r.path)-1] }

func isNamespaceDecl(a xml.Attr) bool {
	return a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns")
}

func (r *Reader) readFlags(def *model.Definition, obj model.Object, attrs []xml.Attr) error {
	seen := make(map[*model.Instance]bool, len(attrs))
	for _, a := range attrs {
		if isNamespaceDecl(a) {
			continue
		}
		f, ok := def.FlagByXML(a.Name)
		if !ok {
			if !r.problems.HandleUnknownAttribute(r.ctx, r.problem(def, obj, a.Name)) {
				return metacodec.NewIssue(metacodec.UnknownToken, metacodec.CodeUnknownKey,
					map[string]string{"name": "@" + qname(a.Name)})
			}
			continue
		}
		v, err := f.Type.Parse(a.Value)
		if err != nil {
			return lexical(err)
		}
		obj.Set(f.Name, v)
		seen[f] = true
	}
	var missing []*model.Instance
	for _, f := range def.Flags {
		if !seen[f] {
			missing = append(missing, f)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return r.problems.HandleMissingFlagInstances(r.ctx, obj, missing)
}

// readValue reads simple content up to, not including, the enclosing end
// tag.
func (r *Reader) readValue(a datatype.Adapter, def string) (any, error) {
	if x, ok := a.(datatype.XMLContentAdapter); ok {
		return x.ParseXMLContent(r.ev)
	}
	var b strings.Builder
	for {
		tok, err := r.ev.Peek()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.EndElement:
			text := b.String()
			if a != datatype.String {
				text = strings.TrimSpace(text)
			}
			if text == "" && def != "" {
				text = def
			}
			v, err := a.Parse(text)
			if err != nil {
				return nil, lexical(err)
			}
			return v, nil
		case xml.StartElement:
			return nil, r.unexpected(tok, "text")
		}
		r.ev.Token()
	}
}

func (r *Reader) end(name xml.Name) error {
	tok, err := r.ev.next()
	if err != nil {
		return err
	}
	end, ok := tok.(xml.EndElement)
	if !ok || end.Name != name {
		return r.unexpected(tok, "</"+name.Local+">")
	}
	r.ev.Token()
	return nil
}

func matches(inst *model.Instance, name xml.Name) bool {
	return (inst.Grouped() && name == inst.WrapperName()) || inst.MatchesElement(name)
}

// readModel dispatches child elements to the model instances in declared
// order. An element may skip ahead over instances that are absent; those are
// handed to the problem handler once the end tag is reached.
func (r *Reader) readModel(def *model.Definition, obj model.Object) error {
	insts := def.Model
	filled := make([]bool, len(insts))
	next := 0
	for {
		tok, err := r.ev.next()
		if err != nil {
			return err
		}
		if _, ok := tok.(xml.EndElement); ok {
			break
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			return r.unexpected(tok, "element")
		}
		j := -1
		for k := next; k < len(insts); k++ {
			if matches(insts[k], start.Name) {
				j = k
				break
			}
		}
		if j < 0 {
			if err := misplaced(insts[:next], filled, start.Name); err != nil {
				return err
			}
			if err := r.unknownElement(def, obj, start); err != nil {
				return err
			}
			continue
		}
		v, err := r.readInstance(insts[j], obj)
		if err != nil {
			return err
		}
		obj.Set(insts[j].Name, v)
		filled[j] = true
		next = j + 1
	}
	var missing []*model.Instance
	for k, inst := range insts {
		if !filled[k] {
			missing = append(missing, inst)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return r.problems.HandleMissingModelInstances(r.ctx, obj, missing)
}

// unknownElement handles a child element that no remaining instance accepts.
// One that matches an instance already read is a repeated occurrence and
// always fatal.
// misplaced reports an element that belongs to an instance already passed:
// a second occurrence of a filled singleton, or anything else out of order.
func misplaced(passed []*model.Instance, filled []bool, name xml.Name) error {
	for k, inst := range passed {
		if !matches(inst, name) {
			continue
		}
		if filled[k] && !inst.Multiple() {
			return metacodec.NewIssue(metacodec.StructuralMismatch, metacodec.CodeDuplicateOccurrence,
				map[string]string{"name": qname(name)})
		}
		return metacodec.NewIssue(metacodec.StructuralMismatch, metacodec.CodeOutOfOrder,
			map[string]string{"name": qname(name), "after": passed[len(passed)-1].Name})
	}
	return nil
}

func (r *Reader) unknownElement(def *model.Definition, obj model.Object, start xml.StartElement) error {
	if !r.problems.HandleUnknownElement(r.ctx, r.problem(def, obj, start.Name)) {
		return metacodec.NewIssue(metacodec.UnknownToken, metacodec.CodeUnknownElement,
			map[string]string{"name": qname(start.Name)})
	}
	return r.ev.skip()
}

func (r *Reader) readInstance(inst *model.Instance, parent model.Object) (any, error) {
	sr := &shapeReader{r: r, inst: inst, parent: parent}
	if !inst.Grouped() {
		return inst.Shape().Read(sr)
	}
	tok, err := r.ev.next()
	if err != nil {
		return nil, err
	}
	wrapper, ok := tok.(xml.StartElement)
	if !ok || wrapper.Name != inst.WrapperName() {
		// items without their wrapper
		return inst.Shape().Read(sr)
	}
	r.ev.Token()
	r.push(wrapper.Name)
	sr.wrapped = true
	v, err := inst.Shape().Read(sr)
	if err != nil {
		return nil, err
	}
	if err := r.end(wrapper.Name); err != nil {
		return nil, err
	}
	r.pop()
	return v, nil
}

// shapeReader reads the items of one instance. Inside a group wrapper every
// child must be an item; otherwise items are the consecutive matching
// siblings.
type shapeReader struct {
	r       *Reader
	inst    *model.Instance
	parent  model.Object
	wrapped bool
}

func (s *shapeReader) ReadSingleton() (any, error) {
	var item any
	n := 0
	err := s.each(func(v any) error {
		if n > 0 {
			return metacodec.NewIssue(metacodec.StructuralMismatch, metacodec.CodeDuplicateOccurrence,
				map[string]string{"name": s.inst.Name})
		}
		item = v
		n++
		return nil
	}, true)
	return item, err
}

func (s *shapeReader) ReadList() ([]any, error) {
	items := []any{}
	err := s.each(func(v any) error {
		items = append(items, v)
		return nil
	}, false)
	return items, err
}

func (s *shapeReader) ReadMap() (*model.Map, error) {
	m := model.NewMap()
	shape := s.inst.Shape()
	err := s.each(func(v any) error {
		replaced, err := shape.Put(m, v)
		if errors.Is(err, model.ErrNilKey) {
			return metacodec.NewIssue(metacodec.MissingRequiredData, metacodec.CodeRequired,
				map[string]string{"name": s.inst.Name + "@" + shape.Key.Name})
		}
		if err != nil {
			return lexical(err)
		}
		if replaced {
			log.FromContext(s.r.ctx).Debug("keyed item replaced", "instance", s.inst.Name)
		}
		return nil
	}, false)
	return m, err
}

func (s *shapeReader) each(add func(any) error, single bool) error {
	for {
		tok, err := s.r.ev.next()
		if err != nil {
			return err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			return nil
		}
		if !s.inst.MatchesElement(start.Name) {
			if !s.wrapped {
				return nil
			}
			def := s.parent.Definition()
			if !s.r.problems.HandleUnknownElement(s.r.ctx, s.r.problem(def, s.parent, start.Name)) {
				return metacodec.NewIssue(metacodec.UnknownToken, metacodec.CodeUnknownElement,
					map[string]string{"name": qname(start.Name)})
			}
			if err := s.r.ev.skip(); err != nil {
				return err
			}
			continue
		}
		v, err := s.r.readItem(s.inst, start, s.parent)
		if err != nil {
			return err
		}
		if err := add(v); err != nil {
			return err
		}
		if single && !s.wrapped {
			return nil
		}
	}
}

// readItem reads one occurrence starting at the peeked start element.
func (r *Reader) readItem(inst *model.Instance, start xml.StartElement, parent model.Object) (any, error) {
	switch {
	case inst.IsUnwrapped():
		return inst.Type.(datatype.XMLContentAdapter).ParseXMLUnwrapped(r.ev)
	case inst.Kind == model.KindScalarField:
		r.ev.Token()
		r.push(start.Name)
		for _, a := range start.Attr {
			if isNamespaceDecl(a) {
				continue
			}
			def := parent.Definition()
			if !r.problems.HandleUnknownAttribute(r.ctx, r.problem(def, parent, a.Name)) {
				return nil, metacodec.NewIssue(metacodec.UnknownToken, metacodec.CodeUnknownKey,
					map[string]string{"name": "@" + qname(a.Name)})
			}
		}
		v, err := r.readValue(inst.Type, inst.Default)
		if err != nil {
			return nil, err
		}
		if err := r.end(start.Name); err != nil {
			return nil, err
		}
		r.pop()
		return v, nil
	case inst.Kind == model.KindChoiceGroup:
		alt, _ := inst.AlternativeByXML(start.Name)
		r.ev.Token()
		return r.readComplex(alt.Definition, start, parent)
	default:
		r.ev.Token()
		return r.readComplex(inst.Definition, start, parent)
	}
}

func hookErr(def *model.Definition, err error) error {
	if _, ok := metacodec.AsError(err); ok {
		return err
	}
	return metacodec.Errorf(metacodec.StructuralMismatch, metacodec.CodeHook, "%s: %v", def.Name, err).WithCause(err)
}

func lexical(err error) error {
	var fe *datatype.FormatError
	if errors.As(err, &fe) {
		return metacodec.NewIssue(metacodec.LexicalType, metacodec.CodeInvalidFormat,
			map[string]string{"type": fe.Type, "value": fe.Value}).WithCause(err)
	}
	if _, ok := metacodec.AsError(err); ok {
		return err
	}
	return metacodec.Errorf(metacodec.LexicalType, metacodec.CodeInvalidFormat, "%v", err).WithCause(err)
}

func qname(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return "{" + n.Space + "}" + n.Local
}

func describe(tok xml.Token) string {
	switch t := tok.(type) {
	case xml.StartElement:
		return "<" + t.Name.Local + ">"
	case xml.EndElement:
		return "</" + t.Name.Local + ">"
	case xml.CharData:
		return "text"
	default:
		return "markup"
	}
}
