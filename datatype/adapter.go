// Package datatype holds the data type adapters that convert Metaschema
// primitive types to and from their lexical form.
package datatype

import (
	"encoding/xml"
	"fmt"
	"sort"
)

// JSONKind is the JSON scalar kind used to represent a type's values.
type JSONKind int

const (
	JSONString JSONKind = iota
	JSONNumber
	JSONBoolean
)

// Adapter parses and formats the values of one primitive type.
type Adapter interface {
	// Name is the Metaschema type name, e.g. "string" or "date-time".
	Name() string
	// Parse converts lexical text into a value.
	Parse(text string) (any, error)
	// Format converts a value produced by Parse (or an equivalent Go value)
	// back into lexical text.
	Format(v any) (string, error)
	JSONKind() JSONKind
	// DefaultJSONValueKey names the property holding a field's value when the
	// field is rendered as a JSON object.
	DefaultJSONValueKey() string
}

// XMLEvents is the narrow view of an XML event stream handed to adapters that
// read element content themselves.
type XMLEvents interface {
	// Peek returns the next raw token without consuming it.
	Peek() (xml.Token, error)
	// Token consumes and returns the next raw token.
	Token() (xml.Token, error)
}

// XMLContentAdapter is implemented by adapters whose values are XML content
// rather than plain text.
type XMLContentAdapter interface {
	Adapter
	// AllowsUnwrappedXML reports whether values may appear directly inside the
	// parent element, without an element of their own.
	AllowsUnwrappedXML() bool
	// CanHandleQName reports whether an element with this name starts (or
	// continues) an unwrapped value.
	CanHandleQName(name xml.Name) bool
	// ParseXMLContent reads mixed content up to, not including, the end
	// element of the enclosing element.
	ParseXMLContent(ev XMLEvents) (any, error)
	// ParseXMLUnwrapped reads consecutive sibling elements accepted by
	// CanHandleQName.
	ParseXMLUnwrapped(ev XMLEvents) (any, error)
	// WriteXML emits the value as XML content. Element names are written
	// unqualified and inherit the default namespace in scope.
	WriteXML(enc *xml.Encoder, v any) error
}

// FormatError reports a lexical value the adapter could not parse or a value
// it could not format.
type FormatError struct {
	Type  string
	Value string
	Err   error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s value %q: %v", e.Type, e.Value, e.Err)
	}
	return fmt.Sprintf("invalid %s value %q", e.Type, e.Value)
}

func (e *FormatError) Unwrap() error { return e.Err }

func formatErr(a Adapter, v string, err error) error {
	return &FormatError{Type: a.Name(), Value: v, Err: err}
}

func typeErr(a Adapter, v any) error {
	return &FormatError{Type: a.Name(), Value: fmt.Sprintf("%v", v), Err: fmt.Errorf("unsupported Go type %T", v)}
}

var registry = map[string]Adapter{}

func register(a Adapter) Adapter {
	registry[a.Name()] = a
	return a
}

// Lookup returns the adapter registered under a Metaschema type name.
func Lookup(name string) (Adapter, bool) {
	a, ok := registry[name]
	return a, ok
}

// Names lists the registered type names in sorted order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// AllowsUnwrappedXML reports whether a's values may be written without an
// enclosing element.
func AllowsUnwrappedXML(a Adapter) bool {
	x, ok := a.(XMLContentAdapter)
	return ok && x.AllowsUnwrappedXML()
}
