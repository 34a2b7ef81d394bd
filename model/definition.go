package model

import (
	"encoding/xml"

	"github.com/reoring/metacodec/datatype"
)

// Definition is the content of a complex field or an assembly: an ordered
// list of flags, and either an ordered model (assemblies) or a simple value
// (complex fields).
type Definition struct {
	Name string
	// RootName is set on definitions that may be a document root.
	RootName xml.Name
	// RootJSONName names the root in JSON; defaults to RootName.Local.
	RootJSONName string

	Flags []*Instance
	Model []*Instance
	// Value is set on complex fields.
	Value *Value
	// JSONKey names the flag whose value keys items of this definition in a
	// keyed map.
	JSONKey string

	Hooks Hooks

	compiled     bool
	keyFlag      *Instance
	valueKeyFlag *Instance
	flagsByXML   map[xml.Name]*Instance
	props        map[string]*Instance
}

// Value describes the simple content of a complex field.
type Value struct {
	// Name is the property holding the value on the bound object; defaults
	// to "value".
	Name string
	Type datatype.Adapter
	// JSONValueKey overrides the adapter's default JSON value property.
	JSONValueKey string
	// JSONValueKeyFlag names a flag whose value is used as the JSON property
	// name of the value. The flag is then not written as a property itself.
	JSONValueKeyFlag string
	Default          string
}

// Hooks are optional lifecycle callbacks. parent is nil for the root.
type Hooks struct {
	// New creates the bound object; defaults to NewRecord.
	New               func(d *Definition) Object
	BeforeDeserialize func(obj, parent Object) error
	AfterDeserialize  func(obj, parent Object) error
	BeforeSerialize   func(obj Object) error
	AfterSerialize    func(obj Object) error
}

// IsRoot reports whether the definition can be a document root.
func (d *Definition) IsRoot() bool { return d.RootName.Local != "" }

// IsField reports whether the definition has simple content.
func (d *Definition) IsField() bool { return d.Value != nil }

// KeyFlag is the flag named by JSONKey, or nil.
func (d *Definition) KeyFlag() *Instance { return d.keyFlag }

// ValueKeyFlag is the flag named by Value.JSONValueKeyFlag, or nil.
func (d *Definition) ValueKeyFlag() *Instance { return d.valueKeyFlag }

// ValueName is the property name of a complex field's value.
func (d *Definition) ValueName() string {
	if d.Value == nil {
		return ""
	}
	return d.Value.Name
}

// JSONValueKey is the static JSON property holding a complex field's value.
func (d *Definition) JSONValueKey() string {
	if d.Value == nil {
		return ""
	}
	if d.Value.JSONValueKey != "" {
		return d.Value.JSONValueKey
	}
	return d.Value.Type.DefaultJSONValueKey()
}

// FlagByXML resolves a flag by attribute name.
func (d *Definition) FlagByXML(name xml.Name) (*Instance, bool) {
	f, ok := d.flagsByXML[name]
	return f, ok
}

// PropertyByJSON resolves a flag or model instance by JSON property name.
func (d *Definition) PropertyByJSON(name string) (*Instance, bool) {
	p, ok := d.props[name]
	return p, ok
}

// NewObject creates a bound object through Hooks.New.
func (d *Definition) NewObject() Object {
	if d.Hooks.New != nil {
		return d.Hooks.New(d)
	}
	return NewRecord(d)
}

func (d *Definition) BeforeDeserialize(obj, parent Object) error {
	if d.Hooks.BeforeDeserialize == nil {
		return nil
	}
	return d.Hooks.BeforeDeserialize(obj, parent)
}

func (d *Definition) AfterDeserialize(obj, parent Object) error {
	if d.Hooks.AfterDeserialize == nil {
		return nil
	}
	return d.Hooks.AfterDeserialize(obj, parent)
}

func (d *Definition) BeforeSerialize(obj Object) error {
	if d.Hooks.BeforeSerialize == nil {
		return nil
	}
	return d.Hooks.BeforeSerialize(obj)
}

func (d *Definition) AfterSerialize(obj Object) error {
	if d.Hooks.AfterSerialize == nil {
		return nil
	}
	return d.Hooks.AfterSerialize(obj)
}
