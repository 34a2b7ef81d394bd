// Package jsoncodec reads and writes bound object graphs as JSON-shaped token
// streams. The same code serves JSON and YAML through metacodec.Source and
// metacodec.Generator.
package jsoncodec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	j "github.com/goccy/go-json"

	metacodec "github.com/reoring/metacodec"
	"github.com/reoring/metacodec/datatype"
	eng "github.com/reoring/metacodec/internal/engine"
	"github.com/reoring/metacodec/model"
	yamlsrc "github.com/reoring/metacodec/source/yaml"
)

// Reader reads one document from a token source. It is not safe for
// concurrent use.
type Reader struct {
	cfg      metacodec.Config
	problems metacodec.ProblemHandler
	src      metacodec.Source

	ctx  context.Context
	path []string
}

// NewReader returns a Reader over src. Enforcement configured in cfg is
// applied on top of src when reading starts.
func NewReader(src metacodec.Source, cfg metacodec.Config) *Reader {
	return &Reader{cfg: cfg, problems: cfg.Problems(), src: src}
}

// Read parses a document rooted at root from src.
func Read(ctx context.Context, src metacodec.Source, root *model.Definition, cfg metacodec.Config) (model.Object, error) {
	return NewReader(src, cfg).Read(ctx, root)
}

// Read parses the document. root must be a compiled root definition.
func (r *Reader) Read(ctx context.Context, root *model.Definition) (obj model.Object, err error) {
	if !root.IsRoot() {
		return nil, metacodec.Errorf(metacodec.StructuralMismatch, metacodec.CodeWrongRoot, "definition %s is not a root", root.Name)
	}
	r.ctx = log.WithContext(ctx, r.cfg.LoggerFor(ctx))
	r.src = metacodec.EnforceSourceIfNeeded(r.ctx, r.src, r.cfg)
	defer func() {
		if err != nil {
			err = r.normalize(err)
		}
	}()

	tok, err := r.src.NextToken()
	if err != nil {
		return nil, err
	}
	if tok.Kind != eng.KindBeginObject {
		return nil, unexpected(tok, "'{'")
	}
	if r.cfg.JSONRootProperty {
		key, err := r.src.NextToken()
		if err != nil {
			return nil, err
		}
		if key.Kind != eng.KindKey || key.String != root.RootJSONName {
			return nil, metacodec.NewIssue(metacodec.StructuralMismatch, metacodec.CodeWrongRoot,
				map[string]string{"got": key.Text(), "expected": root.RootJSONName})
		}
		r.push(key.String)
		if tok, err = r.src.NextToken(); err != nil {
			return nil, err
		}
	}
	obj, err = r.readComplex(root, tok, nil, readOpts{})
	if err != nil {
		return nil, err
	}
	if r.cfg.JSONRootProperty {
		end, err := r.src.NextToken()
		if err != nil {
			return nil, err
		}
		if end.Kind != eng.KindEndObject {
			return nil, unexpected(end, "'}'")
		}
		r.pop()
	}
	if extra, err := r.src.NextToken(); err == nil {
		return nil, unexpected(extra, "end of input")
	} else if !errors.Is(err, io.EOF) {
		return nil, err
	}
	return obj, nil
}

func (r *Reader) normalize(err error) error {
	var de *yamlsrc.DuplicateKeyError
	var se *j.SyntaxError
	switch {
	case errors.As(err, &de):
		err = metacodec.NewIssue(metacodec.StructuralMismatch, metacodec.CodeDuplicateKey,
			map[string]string{"name": de.Key}).At("", fmt.Sprintf("line %d, column %d", de.Line, de.Col)).WithCause(err)
	case errors.As(err, &se):
		err = metacodec.Errorf(metacodec.StructuralMismatch, metacodec.CodeParseError, "%s", se.Error()).
			At("", fmt.Sprintf("offset %d", se.Offset)).WithCause(err)
	case strings.HasPrefix(err.Error(), "yaml: "):
		err = metacodec.Errorf(metacodec.StructuralMismatch, metacodec.CodeParseError, "%s", err.Error()).WithCause(err)
	}
	e := metacodec.Normalize(err).(*metacodec.Error)
	path := pointer(r.path)
	if path == "" {
		path = eng.PathOf(r.src)
	}
	return e.At(path, r.location())
}

func (r *Reader) location() string {
	if l, ok := r.src.(interface{ Line() int }); ok && l.Line() > 0 {
		return "line " + strconv.Itoa(l.Line())
	}
	if off := r.src.Location(); off >= 0 {
		return "offset " + strconv.FormatInt(off, 10)
	}
	return ""
}

func (r *Reader) push(name string) { r.path = append(r.path, name) }
func (r *Reader) pop()             { r.path = r.path[:len(r.path)-1] }

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

func pointer(path []string) string {
	var b strings.Builder
	for _, p := range path {
		b.WriteByte('/')
		b.WriteString(pointerEscaper.Replace(p))
	}
	return b.String()
}

func unexpected(tok eng.Token, expected string) error {
	return metacodec.NewIssue(metacodec.StructuralMismatch, metacodec.CodeUnexpectedToken,
		map[string]string{"got": tok.Kind.String(), "expected": expected})
}

func (r *Reader) problem(def *model.Definition, target model.Object, prop string) metacodec.Problem {
	return metacodec.Problem{Definition: def, Target: target, Property: prop, Location: r.location()}
}

// checkKey compares a key flag repeated inside a keyed map item with the
// map key, both in canonical form.
func (r *Reader) checkKey(key *model.Instance, val eng.Token, outer string) error {
	v, err := r.scalar(key.Type, val)
	if err != nil {
		return err
	}
	inner, err := key.Type.Format(v)
	if err != nil {
		return lexical(err)
	}
	ov, err := key.Type.Parse(outer)
	if err != nil {
		return lexical(err)
	}
	if want, err := key.Type.Format(ov); err != nil || want != inner {
		return metacodec.Errorf(metacodec.StructuralMismatch, metacodec.CodeDuplicateKey,
			"%s %q inside the item does not match map key %q", key.Name, inner, outer)
	}
	return nil
}

// readOpts carries what the enclosing context already decided about an
// object: the key of a keyed map item and a discriminator property to drop.
type readOpts struct {
	key     *model.Instance
	keyText string
	skip    string
}

// readComplex reads an object whose '{' is first.
func (r *Reader) readComplex(def *model.Definition, first eng.Token, parent model.Object, opts readOpts) (model.Object, error) {
	if first.Kind != eng.KindBeginObject {
		return nil, unexpected(first, "'{'")
	}
	obj := def.NewObject()
	if err := def.BeforeDeserialize(obj, parent); err != nil {
		return nil, hookErr(def, err)
	}
	seen := make(map[*model.Instance]bool, len(def.Flags)+len(def.Model))
	if opts.key != nil {
		if err := r.setKey(obj, opts.key, opts.keyText); err != nil {
			return nil, err
		}
		seen[opts.key] = true
	}
	valueSeen := false
	valueFlag := def.ValueKeyFlag()
	for {
		tok, err := r.src.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.Kind == eng.KindEndObject {
			break
		}
		if tok.Kind != eng.KindKey {
			return nil, unexpected(tok, "property name")
		}
		prop := tok.String
		val, err := r.src.NextToken()
		if err != nil {
			return nil, err
		}
		if prop == opts.skip {
			if err := eng.Skip(r.src, val); err != nil {
				return nil, err
			}
			continue
		}
		r.push(prop)
		inst, ok := def.PropertyByJSON(prop)
		if ok && inst == opts.key && val.Kind != eng.KindNull {
			// the key may be repeated inside the item, but must agree
			if err := r.checkKey(inst, val, opts.keyText); err != nil {
				return nil, err
			}
			r.pop()
			continue
		}
		switch {
		case ok && inst.Kind == model.KindFlag && inst != valueFlag:
			if err := r.readFlag(obj, inst, val, seen); err != nil {
				return nil, err
			}
		case ok && inst.Kind != model.KindFlag:
			if err := r.readModelProperty(obj, inst, val, seen); err != nil {
				return nil, err
			}
		case !ok && def.IsField() && !valueSeen && (valueFlag != nil || prop == def.JSONValueKey()):
			if valueFlag != nil {
				if err := r.setKey(obj, valueFlag, prop); err != nil {
					return nil, err
				}
				seen[valueFlag] = true
			}
			v, err := r.scalar(def.Value.Type, val)
			if err != nil {
				return nil, err
			}
			obj.Set(def.Value.Name, v)
			valueSeen = true
		default:
			if err := r.unknownProperty(def, obj, prop, val); err != nil {
				return nil, err
			}
		}
		r.pop()
	}
	if def.IsField() && !valueSeen {
		v, err := defaultValue(def.Value)
		if err != nil {
			return nil, err
		}
		obj.Set(def.Value.Name, v)
	}
	if err := r.missing(obj, def, seen); err != nil {
		return nil, err
	}
	if err := def.AfterDeserialize(obj, parent); err != nil {
		return nil, hookErr(def, err)
	}
	return obj, nil
}

func defaultValue(v *model.Value) (any, error) {
	if v.Default == "" {
		return nil, nil
	}
	out, err := v.Type.Parse(v.Default)
	if err != nil {
		return nil, lexical(err)
	}
	return out, nil
}

func (r *Reader) setKey(obj model.Object, flag *model.Instance, text string) error {
	v, err := flag.Type.Parse(text)
	if err != nil {
		return lexical(err)
	}
	obj.Set(flag.Name, v)
	return nil
}

func (r *Reader) readFlag(obj model.Object, f *model.Instance, val eng.Token, seen map[*model.Instance]bool) error {
	if seen[f] {
		return metacodec.NewIssue(metacodec.StructuralMismatch, metacodec.CodeDuplicateOccurrence,
			map[string]string{"name": f.JSONName})
	}
	if val.Kind == eng.KindNull {
		return nil
	}
	v, err := r.scalar(f.Type, val)
	if err != nil {
		return err
	}
	obj.Set(f.Name, v)
	seen[f] = true
	return nil
}

// readModelProperty reads the value of a model instance. A repeated property
// is fatal for singletons; collections take the additional items.
func (r *Reader) readModelProperty(obj model.Object, inst *model.Instance, val eng.Token, seen map[*model.Instance]bool) error {
	shape := inst.Shape()
	if seen[inst] && shape.Kind == model.Singleton {
		return metacodec.NewIssue(metacodec.StructuralMismatch, metacodec.CodeDuplicateOccurrence,
			map[string]string{"name": inst.JSONPropertyName()})
	}
	if val.Kind == eng.KindNull {
		return nil
	}
	v, err := shape.Read(&shapeReader{r: r, inst: inst, parent: obj, first: val})
	if err != nil {
		return err
	}
	if seen[inst] {
		v = merge(shape, obj.Get(inst.Name), v)
	}
	obj.Set(inst.Name, v)
	seen[inst] = true
	return nil
}

func merge(shape model.Shape, prev, next any) any {
	switch shape.Kind {
	case model.List:
		a, _ := prev.([]any)
		b, _ := next.([]any)
		return append(a, b...)
	case model.KeyedMap:
		m, _ := prev.(*model.Map)
		n, _ := next.(*model.Map)
		n.Each(func(k string, v any) bool {
			m.Put(k, v)
			return true
		})
		return m
	}
	return next
}

func (r *Reader) unknownProperty(def *model.Definition, obj model.Object, prop string, val eng.Token) error {
	if !r.problems.HandleUnknownProperty(r.ctx, r.problem(def, obj, prop)) {
		return metacodec.NewIssue(metacodec.UnknownToken, metacodec.CodeUnknownKey,
			map[string]string{"name": prop})
	}
	return eng.Skip(r.src, val)
}

func (r *Reader) missing(obj model.Object, def *model.Definition, seen map[*model.Instance]bool) error {
	var flags, insts []*model.Instance
	for _, f := range def.Flags {
		if !seen[f] {
			flags = append(flags, f)
		}
	}
	for _, m := range def.Model {
		if !seen[m] {
			insts = append(insts, m)
		}
	}
	if len(flags) > 0 {
		if err := r.problems.HandleMissingFlagInstances(r.ctx, obj, flags); err != nil {
			return err
		}
	}
	if len(insts) > 0 {
		return r.problems.HandleMissingModelInstances(r.ctx, obj, insts)
	}
	return nil
}

// scalar parses a scalar token with a. Strings, numbers and booleans are all
// accepted; the adapter decides whether the lexical form is valid.
func (r *Reader) scalar(a datatype.Adapter, tok eng.Token) (any, error) {
	if !tok.Kind.IsScalar() || tok.Kind == eng.KindNull {
		return nil, unexpected(tok, a.Name())
	}
	v, err := a.Parse(tok.Text())
	if err != nil {
		return nil, lexical(err)
	}
	return v, nil
}

// shapeReader reads the items of one instance, starting at its first value
// token.
type shapeReader struct {
	r      *Reader
	inst   *model.Instance
	parent model.Object
	first  eng.Token
}

func (s *shapeReader) ReadSingleton() (any, error) {
	return s.r.readItem(s.inst, s.first, s.parent)
}

// ReadList accepts an array, or a single bare item in its place.
func (s *shapeReader) ReadList() ([]any, error) {
	if s.first.Kind != eng.KindBeginArray {
		v, err := s.r.readItem(s.inst, s.first, s.parent)
		if err != nil {
			return nil, err
		}
		return []any{v}, nil
	}
	items := []any{}
	for i := 0; ; i++ {
		tok, err := s.r.src.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.Kind == eng.KindEndArray {
			return items, nil
		}
		s.r.push(strconv.Itoa(i))
		v, err := s.r.readItem(s.inst, tok, s.parent)
		if err != nil {
			return nil, err
		}
		s.r.pop()
		items = append(items, v)
	}
}

func (s *shapeReader) ReadMap() (*model.Map, error) {
	if s.first.Kind != eng.KindBeginObject {
		return nil, unexpected(s.first, "'{'")
	}
	m := model.NewMap()
	shape := s.inst.Shape()
	def := s.inst.Definition
	for {
		tok, err := s.r.src.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.Kind == eng.KindEndObject {
			return m, nil
		}
		if tok.Kind != eng.KindKey {
			return nil, unexpected(tok, "property name")
		}
		key := tok.String
		val, err := s.r.src.NextToken()
		if err != nil {
			return nil, err
		}
		s.r.push(key)
		item, err := s.r.readKeyed(def, shape.Key, key, val, s.parent)
		if err != nil {
			return nil, err
		}
		replaced, err := shape.Put(m, item)
		if errors.Is(err, model.ErrNilKey) {
			return nil, metacodec.NewIssue(metacodec.MissingRequiredData, metacodec.CodeRequired,
				map[string]string{"name": s.inst.Name + "." + shape.Key.Name})
		}
		if err != nil {
			return nil, lexical(err)
		}
		if replaced {
			log.FromContext(s.r.ctx).Debug("keyed item replaced", "instance", s.inst.Name, "key", key)
		}
		s.r.pop()
	}
}

// readKeyed reads one keyed map entry. A complex field whose only flag is the
// key may be written as a bare value.
func (r *Reader) readKeyed(def *model.Definition, keyFlag *model.Instance, key string, val eng.Token, parent model.Object) (model.Object, error) {
	if val.Kind == eng.KindBeginObject {
		return r.readComplex(def, val, parent, readOpts{key: keyFlag, keyText: key})
	}
	if !def.IsField() {
		return nil, unexpected(val, "'{'")
	}
	obj := def.NewObject()
	if err := def.BeforeDeserialize(obj, parent); err != nil {
		return nil, hookErr(def, err)
	}
	if err := r.setKey(obj, keyFlag, key); err != nil {
		return nil, err
	}
	v, err := r.scalar(def.Value.Type, val)
	if err != nil {
		return nil, err
	}
	obj.Set(def.Value.Name, v)
	if err := r.missing(obj, def, map[*model.Instance]bool{keyFlag: true}); err != nil {
		return nil, err
	}
	if err := def.AfterDeserialize(obj, parent); err != nil {
		return nil, hookErr(def, err)
	}
	return obj, nil
}

func (r *Reader) readItem(inst *model.Instance, tok eng.Token, parent model.Object) (any, error) {
	switch inst.Kind {
	case model.KindScalarField:
		return r.scalar(inst.Type, tok)
	case model.KindChoiceGroup:
		return r.readChoice(inst, tok, parent)
	default:
		return r.readComplex(inst.Definition, tok, parent, readOpts{})
	}
}

// readChoice buffers one choice item, resolves its alternative from the
// discriminator property and replays the buffered tokens against it.
func (r *Reader) readChoice(inst *model.Instance, tok eng.Token, parent model.Object) (any, error) {
	if tok.Kind != eng.KindBeginObject {
		return nil, unexpected(tok, "'{'")
	}
	toks, err := eng.Capture(r.src, tok)
	if err != nil {
		return nil, err
	}
	disc, ok := discriminator(toks, inst.Discriminator)
	if !ok {
		return nil, metacodec.NewIssue(metacodec.StructuralMismatch, metacodec.CodeDiscriminatorMissing,
			map[string]string{"name": inst.Discriminator})
	}
	alt, ok := inst.AlternativeByDiscriminator(disc)
	if !ok {
		return nil, metacodec.NewIssue(metacodec.StructuralMismatch, metacodec.CodeDiscriminatorUnknown,
			map[string]string{"name": disc})
	}
	outer := r.src
	r.src = eng.NewReplaySource(toks[1:], outer.Location())
	defer func() { r.src = outer }()
	return r.readComplex(alt.Definition, toks[0], parent, readOpts{skip: inst.Discriminator})
}

// discriminator finds the string value of the top-level property name in a
// captured object.
func discriminator(toks []eng.Token, name string) (string, bool) {
	depth := 0
	for i, t := range toks {
		switch t.Kind {
		case eng.KindBeginObject, eng.KindBeginArray:
			depth++
		case eng.KindEndObject, eng.KindEndArray:
			depth--
		case eng.KindKey:
			if depth == 1 && t.String == name && i+1 < len(toks) && toks[i+1].Kind == eng.KindString {
				return toks[i+1].String, true
			}
		}
	}
	return "", false
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
