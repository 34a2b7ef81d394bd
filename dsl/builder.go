package dsl

import (
	"encoding/xml"

	"github.com/reoring/metacodec/datatype"
	"github.com/reoring/metacodec/model"
)

// Builder accumulates one definition. Child builders share their definition
// with every parent that references them, which makes recursive models
// possible.
type Builder struct {
	def *model.Definition
}

// Assembly creates a builder for an assembly definition.
func Assembly(name string) *Builder {
	return &Builder{def: &model.Definition{Name: name}}
}

// Field creates a builder for a complex field definition whose value has
// type t.
func Field(name string, t datatype.Adapter) *Builder {
	return &Builder{def: &model.Definition{Name: name, Value: &model.Value{Type: t}}}
}

// Root makes the definition a document root with the given element name.
func (b *Builder) Root(space, local string) *Builder {
	b.def.RootName = xml.Name{Space: space, Local: local}
	return b
}

// RootJSON overrides the JSON root property name.
func (b *Builder) RootJSON(name string) *Builder {
	b.def.RootJSONName = name
	return b
}

// Key names the flag that keys items of this definition in a keyed map.
func (b *Builder) Key(flag string) *Builder {
	b.def.JSONKey = flag
	return b
}

// ValueName renames the property holding a complex field's value.
func (b *Builder) ValueName(name string) *Builder {
	b.value().Name = name
	return b
}

// ValueKey overrides the JSON property holding a complex field's value.
func (b *Builder) ValueKey(key string) *Builder {
	b.value().JSONValueKey = key
	return b
}

// ValueKeyFlag uses the value of flag as the JSON property of the value.
func (b *Builder) ValueKeyFlag(flag string) *Builder {
	b.value().JSONValueKeyFlag = flag
	return b
}

// ValueDefault sets the lexical default of a complex field's value.
func (b *Builder) ValueDefault(text string) *Builder {
	b.value().Default = text
	return b
}

func (b *Builder) value() *model.Value {
	if b.def.Value == nil {
		// Assembly definitions turned into fields here fail in Compile when
		// they also have a model.
		b.def.Value = &model.Value{}
	}
	return b.def.Value
}

// Hooks installs lifecycle callbacks.
func (b *Builder) Hooks(h model.Hooks) *Builder {
	b.def.Hooks = h
	return b
}

// Flag adds a flag of type t.
func (b *Builder) Flag(name string, t datatype.Adapter) *Step {
	return b.add(&b.def.Flags, &model.Instance{Kind: model.KindFlag, Name: name, Type: t})
}

// Scalar adds a scalar field of type t to the model.
func (b *Builder) Scalar(name string, t datatype.Adapter) *Step {
	return b.add(&b.def.Model, &model.Instance{Kind: model.KindScalarField, Name: name, Type: t})
}

// Child adds an instance of def to the model: a complex field when def has a
// value, an assembly otherwise.
func (b *Builder) Child(name string, def *Builder) *Step {
	return b.add(&b.def.Model, instanceOf(name, def))
}

// Choice adds a choice group over alts. Choice groups always repeat.
func (b *Builder) Choice(name string, alts ...*model.Instance) *Step {
	return b.add(&b.def.Model, &model.Instance{
		Kind: model.KindChoiceGroup, Name: name, MaxOccurs: model.Unbounded,
		Alternatives: alts,
		GroupAs:      model.GroupAs{Name: name},
	})
}

// Alt is one alternative of a choice group.
func Alt(name string, def *Builder) *model.Instance { return instanceOf(name, def) }

func instanceOf(name string, def *Builder) *model.Instance {
	kind := model.KindAssembly
	if def.def.Value != nil {
		kind = model.KindComplexField
	}
	return &model.Instance{Kind: kind, Name: name, Definition: def.def}
}

func (b *Builder) add(list *[]*model.Instance, inst *model.Instance) *Step {
	*list = append(*list, inst)
	return &Step{b: b, inst: inst}
}

// Definition returns the definition under construction without compiling it.
func (b *Builder) Definition() *model.Definition { return b.def }

// Build compiles the graph reachable from this definition.
func (b *Builder) Build() (*model.Definition, error) {
	if err := model.Compile(b.def); err != nil {
		return nil, err
	}
	return b.def, nil
}

// MustBuild is Build that panics on an invalid descriptor.
func (b *Builder) MustBuild() *model.Definition {
	d, err := b.Build()
	if err != nil {
		panic(err)
	}
	return d
}
