// Package model describes the shape of bound data: definitions of flags,
// fields and assemblies, the instances that place them in a parent, and the
// collection shape each instance takes on.
//
// Descriptors are built as plain struct literals and must be passed through
// Compile once before they are used by a codec. A compiled descriptor graph
// is read-only and may be shared between goroutines.
package model

import (
	"encoding/xml"

	"github.com/reoring/metacodec/datatype"
)

// Kind tags the variant of an Instance.
type Kind int

const (
	KindFlag Kind = iota
	KindScalarField
	KindComplexField
	KindAssembly
	KindChoiceGroup
)

func (k Kind) String() string {
	switch k {
	case KindFlag:
		return "flag"
	case KindScalarField:
		return "field"
	case KindComplexField:
		return "field (complex)"
	case KindAssembly:
		return "assembly"
	case KindChoiceGroup:
		return "choice group"
	default:
		return "unknown"
	}
}

// Unbounded is the MaxOccurs value for an unlimited number of occurrences.
const Unbounded = -1

// JSONGrouping selects how a multi-valued instance is represented in JSON.
type JSONGrouping int

const (
	// JSONList is always an array.
	JSONList JSONGrouping = iota
	// JSONSingletonOrList is a bare value for one item and an array otherwise.
	JSONSingletonOrList
	// JSONKeyed is an object keyed by each item's JSON key flag.
	JSONKeyed
)

// XMLGrouping selects whether a multi-valued instance has a wrapper element.
type XMLGrouping int

const (
	XMLUngrouped XMLGrouping = iota
	XMLGrouped
)

// GroupAs names and shapes the collection of a multi-valued instance.
type GroupAs struct {
	// Name is the JSON property and, for XMLGrouped, the wrapper element name.
	Name   string
	InJSON JSONGrouping
	InXML  XMLGrouping
}

// Instance places a flag, field, assembly or choice group in its parent
// definition.
type Instance struct {
	Kind Kind
	// Name is the property under which the value is stored on the bound
	// object.
	Name string
	// XMLName is the attribute name for flags and the element name otherwise.
	// Local defaults to Name. An empty element namespace inherits the root
	// namespace.
	XMLName xml.Name
	// JSONName defaults to Name.
	JSONName string

	MinOccurs int
	// MaxOccurs is Unbounded, or a positive count. Zero means one.
	MaxOccurs int
	GroupAs   GroupAs

	// Unwrapped writes a scalar field's value directly inside the parent
	// element. Only types that allow unwrapped XML qualify.
	Unwrapped bool
	// Required marks a flag as mandatory.
	Required bool
	// Default is a lexical default applied when the value is absent.
	Default string

	// Type is the data type of flags and scalar fields.
	Type datatype.Adapter
	// Definition is the content of complex fields and assemblies.
	Definition *Definition
	// Alternatives are the complex instances of a choice group.
	Alternatives []*Instance
	// Discriminator is the JSON property naming the alternative of a choice
	// group item. Defaults to "object-type".
	Discriminator string
	// Container optionally pins the collection shape; Compile fails when the
	// resolved shape differs.
	Container ShapeKind

	shape        Shape
	handler      Handler
	choiceByXML  map[xml.Name]*Instance
	choiceByJSON map[string]*Instance
}

// DefaultDiscriminator is the JSON property naming a choice alternative.
const DefaultDiscriminator = "object-type"

// Shape is the collection shape resolved by Compile.
func (i *Instance) Shape() Shape { return i.shape }

// Handler is the data type handler resolved by Compile.
func (i *Instance) Handler() Handler { return i.handler }

// Multiple reports whether more than one occurrence is allowed.
func (i *Instance) Multiple() bool { return i.MaxOccurs == Unbounded || i.MaxOccurs > 1 }

// IsComplex reports whether the instance carries a definition.
func (i *Instance) IsComplex() bool {
	return i.Kind == KindComplexField || i.Kind == KindAssembly
}

// IsUnwrapped reports whether the value has no element of its own in XML.
func (i *Instance) IsUnwrapped() bool {
	return i.Kind == KindScalarField && i.Unwrapped && datatype.AllowsUnwrappedXML(i.Type)
}

// ElementName is the XML name of one occurrence.
func (i *Instance) ElementName() xml.Name { return i.XMLName }

// Grouped reports whether occurrences sit inside a wrapper element.
func (i *Instance) Grouped() bool {
	return i.Multiple() && i.GroupAs.InXML == XMLGrouped && i.GroupAs.Name != ""
}

// WrapperName is the XML name of the group wrapper element.
func (i *Instance) WrapperName() xml.Name {
	return xml.Name{Space: i.XMLName.Space, Local: i.GroupAs.Name}
}

// JSONPropertyName is the property naming this instance in a JSON object.
func (i *Instance) JSONPropertyName() string {
	if i.Multiple() && i.GroupAs.Name != "" {
		return i.GroupAs.Name
	}
	return i.JSONName
}

// DiscriminatorValue is the value that selects this alternative inside a
// choice group item.
func (i *Instance) DiscriminatorValue() string { return i.JSONName }

// AlternativeByXML resolves a choice alternative by element name.
func (i *Instance) AlternativeByXML(name xml.Name) (*Instance, bool) {
	a, ok := i.choiceByXML[name]
	return a, ok
}

// AlternativeByDiscriminator resolves a choice alternative by JSON
// discriminator value.
func (i *Instance) AlternativeByDiscriminator(v string) (*Instance, bool) {
	a, ok := i.choiceByJSON[v]
	return a, ok
}

// AlternativeFor returns the alternative whose definition produced obj.
func (i *Instance) AlternativeFor(obj Object) (*Instance, bool) {
	if obj == nil {
		return nil, false
	}
	d := obj.Definition()
	for _, a := range i.Alternatives {
		if a.Definition == d {
			return a, true
		}
	}
	return nil, false
}

// MatchesElement reports whether an element with this name starts an
// occurrence: the element name itself, an unwrapped value the type accepts,
// or a choice alternative.
func (i *Instance) MatchesElement(name xml.Name) bool {
	switch {
	case i.Kind == KindChoiceGroup:
		_, ok := i.choiceByXML[name]
		return ok
	case i.IsUnwrapped():
		x := i.Type.(datatype.XMLContentAdapter)
		return name.Space == i.XMLName.Space && x.CanHandleQName(name)
	default:
		return name == i.XMLName
	}
}
