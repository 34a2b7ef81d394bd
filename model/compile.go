package model

import (
	"encoding/xml"
	"errors"
	"fmt"

	"github.com/reoring/metacodec/datatype"
)

// ErrInvalidDescriptor is wrapped by every error returned from Compile.
var ErrInvalidDescriptor = errors.New("invalid descriptor")

func invalid(d *Definition, i *Instance, format string, args ...any) error {
	where := d.Name
	if i != nil {
		where += "." + i.Name
	}
	return fmt.Errorf("%w: %s: %s", ErrInvalidDescriptor, where, fmt.Sprintf(format, args...))
}

// Compile validates the descriptor graph reachable from root, fills in
// defaults and resolves the collection shape and handler of every instance.
// It is idempotent and must complete before the graph is used concurrently.
func Compile(root *Definition) error {
	if root == nil {
		return fmt.Errorf("%w: nil definition", ErrInvalidDescriptor)
	}
	if root.RootJSONName == "" {
		root.RootJSONName = root.RootName.Local
	}
	c := &compiler{ns: root.RootName.Space, seen: map[*Definition]bool{}}
	return c.definition(root)
}

type compiler struct {
	ns   string
	seen map[*Definition]bool
}

func (c *compiler) definition(d *Definition) error {
	if d.compiled || c.seen[d] {
		return nil
	}
	c.seen[d] = true
	if d.IsRoot() && d.RootJSONName == "" {
		d.RootJSONName = d.RootName.Local
	}

	d.flagsByXML = make(map[xml.Name]*Instance, len(d.Flags))
	d.props = make(map[string]*Instance, len(d.Flags)+len(d.Model))
	for _, f := range d.Flags {
		if err := c.flag(d, f); err != nil {
			return err
		}
		if _, dup := d.flagsByXML[f.XMLName]; dup {
			return invalid(d, f, "duplicate attribute name %q", f.XMLName.Local)
		}
		d.flagsByXML[f.XMLName] = f
		if _, dup := d.props[f.JSONName]; dup {
			return invalid(d, f, "duplicate JSON property %q", f.JSONName)
		}
		d.props[f.JSONName] = f
	}

	if d.JSONKey != "" {
		d.keyFlag = d.flag(d.JSONKey)
		if d.keyFlag == nil {
			return invalid(d, nil, "json key flag %q is not declared", d.JSONKey)
		}
	}

	if d.Value != nil {
		if len(d.Model) > 0 {
			return invalid(d, nil, "a field definition cannot declare a model")
		}
		if d.Value.Type == nil {
			return invalid(d, nil, "field value has no data type")
		}
		if d.Value.Name == "" {
			d.Value.Name = "value"
		}
		if k := d.Value.JSONValueKeyFlag; k != "" {
			d.valueKeyFlag = d.flag(k)
			if d.valueKeyFlag == nil {
				return invalid(d, nil, "json value key flag %q is not declared", k)
			}
		}
	}

	for _, m := range d.Model {
		if err := c.modelInstance(d, m); err != nil {
			return err
		}
		name := m.JSONPropertyName()
		if _, dup := d.props[name]; dup {
			return invalid(d, m, "duplicate JSON property %q", name)
		}
		d.props[name] = m
	}
	d.compiled = true
	return nil
}

func (d *Definition) flag(name string) *Instance {
	for _, f := range d.Flags {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (c *compiler) names(i *Instance, element bool) {
	if i.XMLName.Local == "" {
		i.XMLName.Local = i.Name
	}
	if element && i.XMLName.Space == "" {
		i.XMLName.Space = c.ns
	}
	if i.JSONName == "" {
		i.JSONName = i.Name
	}
}

func (c *compiler) flag(d *Definition, f *Instance) error {
	if f.Kind != KindFlag {
		return invalid(d, f, "%s listed as a flag", f.Kind)
	}
	if f.Name == "" {
		return invalid(d, f, "flag has no name")
	}
	if f.Type == nil {
		return invalid(d, f, "flag has no data type")
	}
	if f.Multiple() {
		return invalid(d, f, "flags cannot repeat")
	}
	c.names(f, false)
	if f.Default != "" {
		if _, err := f.Type.Parse(f.Default); err != nil {
			return invalid(d, f, "default: %v", err)
		}
	}
	f.shape = Shape{Kind: Singleton}
	f.handler = ScalarHandler{Adapter: f.Type}
	return c.container(d, f)
}

func (c *compiler) modelInstance(d *Definition, m *Instance) error {
	if m.Name == "" {
		return invalid(d, m, "model instance has no name")
	}
	if m.MaxOccurs != Unbounded && m.MaxOccurs < 0 {
		return invalid(d, m, "max-occurs %d", m.MaxOccurs)
	}
	if m.MaxOccurs == 0 {
		m.MaxOccurs = 1
	}
	if m.MinOccurs < 0 || (m.MaxOccurs != Unbounded && m.MinOccurs > m.MaxOccurs) {
		return invalid(d, m, "min-occurs %d exceeds max-occurs %d", m.MinOccurs, m.MaxOccurs)
	}
	c.names(m, true)

	switch m.Kind {
	case KindScalarField:
		if m.Type == nil {
			return invalid(d, m, "field has no data type")
		}
		if m.Unwrapped && !datatype.AllowsUnwrappedXML(m.Type) {
			return invalid(d, m, "type %s cannot be unwrapped", m.Type.Name())
		}
		if m.Unwrapped && m.Multiple() {
			return invalid(d, m, "unwrapped fields cannot repeat")
		}
		if m.Default != "" {
			if _, err := m.Type.Parse(m.Default); err != nil {
				return invalid(d, m, "default: %v", err)
			}
		}
		m.handler = ScalarHandler{Adapter: m.Type}
	case KindComplexField, KindAssembly:
		if m.Definition == nil {
			return invalid(d, m, "%s has no definition", m.Kind)
		}
		if m.Kind == KindComplexField && !m.Definition.IsField() {
			return invalid(d, m, "complex field definition %q has no value", m.Definition.Name)
		}
		if m.Kind == KindAssembly && m.Definition.IsField() {
			return invalid(d, m, "assembly definition %q has a field value", m.Definition.Name)
		}
		if err := c.definition(m.Definition); err != nil {
			return err
		}
		m.handler = ComplexHandler{Definition: m.Definition}
	case KindChoiceGroup:
		if err := c.choice(d, m); err != nil {
			return err
		}
	default:
		return invalid(d, m, "%s listed in a model", m.Kind)
	}

	if err := c.resolveShape(d, m); err != nil {
		return err
	}
	return c.container(d, m)
}

func (c *compiler) choice(d *Definition, m *Instance) error {
	if len(m.Alternatives) == 0 {
		return invalid(d, m, "choice group has no alternatives")
	}
	if m.Discriminator == "" {
		m.Discriminator = DefaultDiscriminator
	}
	m.choiceByXML = make(map[xml.Name]*Instance, len(m.Alternatives))
	m.choiceByJSON = make(map[string]*Instance, len(m.Alternatives))
	for _, a := range m.Alternatives {
		if !a.IsComplex() || a.Definition == nil {
			return invalid(d, m, "alternative %q is not a complex instance", a.Name)
		}
		c.names(a, true)
		if a.MaxOccurs == 0 {
			a.MaxOccurs = 1
		}
		if err := c.definition(a.Definition); err != nil {
			return err
		}
		if _, dup := m.choiceByXML[a.XMLName]; dup {
			return invalid(d, m, "alternatives share element name %q", a.XMLName.Local)
		}
		if _, dup := m.choiceByJSON[a.JSONName]; dup {
			return invalid(d, m, "alternatives share discriminator %q", a.JSONName)
		}
		if m.Grouped() && a.XMLName == m.WrapperName() {
			return invalid(d, m, "alternative %q has the wrapper element name", a.Name)
		}
		m.choiceByXML[a.XMLName] = a
		m.choiceByJSON[a.JSONName] = a
		a.shape = Shape{Kind: Singleton}
		a.handler = ComplexHandler{Definition: a.Definition}
	}
	return nil
}

func (c *compiler) resolveShape(d *Definition, m *Instance) error {
	if !m.Multiple() {
		m.shape = Shape{Kind: Singleton}
		return nil
	}
	if m.GroupAs.InJSON != JSONKeyed {
		m.shape = Shape{Kind: List}
		return nil
	}
	if m.Kind == KindChoiceGroup {
		return invalid(d, m, "choice groups cannot be keyed")
	}
	if !m.IsComplex() || m.Definition.KeyFlag() == nil {
		return invalid(d, m, "keyed instance needs a definition with a json key flag")
	}
	m.shape = Shape{Kind: KeyedMap, Key: m.Definition.KeyFlag()}
	return nil
}

func (c *compiler) container(d *Definition, i *Instance) error {
	if i.Container != ShapeAuto && i.Container != i.shape.Kind {
		return invalid(d, i, "declared container %s does not match resolved shape %s", i.Container, i.shape.Kind)
	}
	return nil
}

// MustCompile is Compile for package-level descriptors; it panics on error.
func MustCompile(root *Definition) *Definition {
	if err := Compile(root); err != nil {
		panic(err)
	}
	return root
}
