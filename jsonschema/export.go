package jsonschema

import (
	"fmt"
	"strings"

	j "github.com/goccy/go-json"

	"github.com/reoring/metacodec/datatype"
	"github.com/reoring/metacodec/model"
)

// Options tune the exported document.
type Options struct {
	// RootProperty wraps the root object in a property named after the root,
	// matching Config.JSONRootProperty.
	RootProperty bool
}

// For exports the JSON form of documents rooted at root. Every definition
// becomes an entry of $defs; keyed map items and choice alternatives, whose
// JSON object differs from the plain one, are inlined.
func For(root *model.Definition, opts Options) (*Schema, error) {
	if root == nil || !root.IsRoot() {
		return nil, fmt.Errorf("jsonschema: definition is not a compiled root")
	}
	e := &exporter{defs: map[string]*Schema{}, names: map[*model.Definition]string{}}
	ref, err := e.ref(root)
	if err != nil {
		return nil, err
	}
	out := &Schema{Schema: Draft, Defs: e.defs}
	if opts.RootProperty {
		out.Type = "object"
		out.Properties = map[string]*Schema{root.RootJSONName: ref}
		out.Required = []string{root.RootJSONName}
		out.AdditionalProperties = false
	} else {
		out.Ref = ref.Ref
	}
	return out, nil
}

type exporter struct {
	defs  map[string]*Schema
	names map[*model.Definition]string
}

// ref returns a reference to def's plain object schema, exporting it first.
func (e *exporter) ref(def *model.Definition) (*Schema, error) {
	name, ok := e.names[def]
	if !ok {
		name = def.Name
		for i := 2; e.defs[name] != nil; i++ {
			name = fmt.Sprintf("%s-%d", def.Name, i)
		}
		e.names[def] = name
		// Reserve the slot so recursive references terminate.
		e.defs[name] = &Schema{}
		s, err := e.object(def, nil, "", "")
		if err != nil {
			return nil, err
		}
		*e.defs[name] = *s
	}
	return &Schema{Ref: "#/$defs/" + name}, nil
}

// object is def as a JSON object, less the key flag of a keyed map item, and
// with a discriminator property when disc is set.
func (e *exporter) object(def *model.Definition, key *model.Instance, disc, discValue string) (*Schema, error) {
	s := &Schema{Title: def.Name, Type: "object", Properties: map[string]*Schema{}, AdditionalProperties: false}
	if disc != "" {
		s.Properties[disc] = &Schema{Type: "string", Const: discValue}
		s.Required = append(s.Required, disc)
	}
	valueFlag := def.ValueKeyFlag()
	for _, f := range def.Flags {
		if f == key || f == valueFlag {
			continue
		}
		fs, err := scalar(f.Type, f.Default)
		if err != nil {
			return nil, fmt.Errorf("jsonschema: %s.%s: %w", def.Name, f.Name, err)
		}
		s.Properties[f.JSONName] = fs
		if f.Required {
			s.Required = append(s.Required, f.JSONName)
		}
	}
	if def.IsField() {
		vs, err := scalar(def.Value.Type, def.Value.Default)
		if err != nil {
			return nil, fmt.Errorf("jsonschema: %s: %w", def.Name, err)
		}
		if valueFlag != nil {
			// The value sits under a property named by the flag's value.
			s.AdditionalProperties = vs
			s.MinProperties = intPtr(len(s.Required) + 1)
		} else {
			s.Properties[def.JSONValueKey()] = vs
			s.Required = append(s.Required, def.JSONValueKey())
		}
		return s, nil
	}
	for _, m := range def.Model {
		ms, err := e.instance(m)
		if err != nil {
			return nil, err
		}
		name := m.JSONPropertyName()
		s.Properties[name] = ms
		if m.MinOccurs > 0 {
			s.Required = append(s.Required, name)
		}
	}
	return s, nil
}

func (e *exporter) instance(m *model.Instance) (*Schema, error) {
	shape := m.Shape()
	switch shape.Kind {
	case model.KeyedMap:
		item, err := e.keyed(m.Definition, shape.Key)
		if err != nil {
			return nil, err
		}
		s := &Schema{Type: "object", AdditionalProperties: item}
		if m.MinOccurs > 0 {
			s.MinProperties = intPtr(m.MinOccurs)
		}
		return s, nil
	case model.List:
		item, err := e.item(m)
		if err != nil {
			return nil, err
		}
		arr := &Schema{Type: "array", Items: item}
		if m.MinOccurs > 0 {
			arr.MinItems = intPtr(m.MinOccurs)
		}
		if m.MaxOccurs != model.Unbounded {
			arr.MaxItems = intPtr(m.MaxOccurs)
		}
		if m.GroupAs.InJSON == model.JSONSingletonOrList {
			return &Schema{OneOf: []*Schema{item, arr}}, nil
		}
		return arr, nil
	default:
		return e.item(m)
	}
}

func (e *exporter) item(m *model.Instance) (*Schema, error) {
	switch m.Kind {
	case model.KindScalarField:
		s, err := scalar(m.Type, m.Default)
		if err != nil {
			return nil, fmt.Errorf("jsonschema: %s: %w", m.Name, err)
		}
		return s, nil
	case model.KindChoiceGroup:
		alts := make([]*Schema, 0, len(m.Alternatives))
		for _, a := range m.Alternatives {
			s, err := e.object(a.Definition, nil, m.Discriminator, a.DiscriminatorValue())
			if err != nil {
				return nil, err
			}
			alts = append(alts, s)
		}
		return &Schema{OneOf: alts}, nil
	default:
		return e.ref(m.Definition)
	}
}

// keyed is the value of one keyed map entry: the object without its key, or
// the bare value for a complex field that has nothing else set.
func (e *exporter) keyed(def *model.Definition, key *model.Instance) (*Schema, error) {
	obj, err := e.object(def, key, "", "")
	if err != nil {
		return nil, err
	}
	if !def.IsField() {
		return obj, nil
	}
	bare, err := scalar(def.Value.Type, "")
	if err != nil {
		return nil, err
	}
	return &Schema{OneOf: []*Schema{bare, obj}}, nil
}

var formats = map[string]string{
	"uuid":          "uuid",
	"uri":           "uri",
	"uri-reference": "uri-reference",
	"date":          "date",
	"date-time":     "date-time",
}

// scalar maps a data type to its JSON Schema. Dates and date-times may omit
// the zone, which the "date" and "date-time" formats do not allow.
func scalar(a datatype.Adapter, def string) (*Schema, error) {
	s := &Schema{Format: formats[a.Name()]}
	switch a.JSONKind() {
	case datatype.JSONNumber:
		s.Type = "number"
		if strings.HasSuffix(a.Name(), "integer") {
			s.Type = "integer"
		}
		switch a.Name() {
		case "non-negative-integer":
			s.Minimum = intPtr(0)
		case "positive-integer":
			s.Minimum = intPtr(1)
		}
	case datatype.JSONBoolean:
		s.Type = "boolean"
	default:
		s.Type = "string"
	}
	if def != "" {
		v, err := defaultValue(a, def)
		if err != nil {
			return nil, err
		}
		s.Default = v
	}
	return s, nil
}

func defaultValue(a datatype.Adapter, text string) (any, error) {
	v, err := a.Parse(text)
	if err != nil {
		return nil, err
	}
	canon, err := a.Format(v)
	if err != nil {
		return nil, err
	}
	switch a.JSONKind() {
	case datatype.JSONNumber:
		return j.Number(canon), nil
	case datatype.JSONBoolean:
		return canon == "true" || canon == "1", nil
	default:
		return canon, nil
	}
}
