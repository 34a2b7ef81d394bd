package dsl

import (
	"github.com/reoring/metacodec/datatype"
	"github.com/reoring/metacodec/model"
)

// Step modifies the instance added last.
type Step struct {
	b    *Builder
	inst *model.Instance
}

// Required marks a flag as mandatory, or sets MinOccurs to 1 for a model
// instance.
func (s *Step) Required() *Step {
	if s.inst.Kind == model.KindFlag {
		s.inst.Required = true
	} else if s.inst.MinOccurs == 0 {
		s.inst.MinOccurs = 1
	}
	return s
}

// Default sets the lexical default applied when the value is absent.
func (s *Step) Default(text string) *Step {
	s.inst.Default = text
	return s
}

// Occurs sets the occurrence bounds. Use model.Unbounded for no maximum.
func (s *Step) Occurs(min, max int) *Step {
	s.inst.MinOccurs = min
	s.inst.MaxOccurs = max
	return s
}

// Many allows any number of occurrences.
func (s *Step) Many() *Step {
	s.inst.MaxOccurs = model.Unbounded
	return s
}

// GroupAs names the collection and picks its JSON and XML representation.
func (s *Step) GroupAs(name string, inJSON model.JSONGrouping, inXML model.XMLGrouping) *Step {
	s.inst.GroupAs = model.GroupAs{Name: name, InJSON: inJSON, InXML: inXML}
	return s
}

// Element sets the XML element (or attribute) local name.
func (s *Step) Element(local string) *Step {
	s.inst.XMLName.Local = local
	return s
}

// Namespace sets the XML namespace. Elements default to the root namespace.
func (s *Step) Namespace(space string) *Step {
	s.inst.XMLName.Space = space
	return s
}

// JSON sets the JSON property name.
func (s *Step) JSON(name string) *Step {
	s.inst.JSONName = name
	return s
}

// Unwrapped writes a multiline markup value without an element of its own.
func (s *Step) Unwrapped() *Step {
	s.inst.Unwrapped = true
	return s
}

// Discriminator renames the discriminator property of a choice group.
func (s *Step) Discriminator(name string) *Step {
	s.inst.Discriminator = name
	return s
}

// Container pins the collection shape Compile must resolve.
func (s *Step) Container(k model.ShapeKind) *Step {
	s.inst.Container = k
	return s
}

// Instance returns the instance being modified.
func (s *Step) Instance() *model.Instance { return s.inst }

func (s *Step) Flag(name string, t datatype.Adapter) *Step        { return s.b.Flag(name, t) }
func (s *Step) Scalar(name string, t datatype.Adapter) *Step      { return s.b.Scalar(name, t) }
func (s *Step) Child(name string, def *Builder) *Step             { return s.b.Child(name, def) }
func (s *Step) Choice(name string, alts ...*model.Instance) *Step { return s.b.Choice(name, alts...) }
func (s *Step) Key(flag string) *Builder                          { return s.b.Key(flag) }
func (s *Step) Root(space, local string) *Builder                 { return s.b.Root(space, local) }
func (s *Step) Done() *Builder                                    { return s.b }
func (s *Step) Build() (*model.Definition, error)                 { return s.b.Build() }
func (s *Step) MustBuild() *model.Definition                      { return s.b.MustBuild() }
