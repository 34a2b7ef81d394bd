// Package jsonschema exports the JSON representation of a descriptor graph
// as a JSON Schema (draft 2020-12).
package jsonschema

import (
	j "github.com/goccy/go-json"
)

// Draft is the dialect every exported document declares.
const Draft = "https://json-schema.org/draft/2020-12/schema"

// Schema is the subset of JSON Schema the exporter emits.
type Schema struct {
	Schema string             `json:"$schema,omitempty"`
	Ref    string             `json:"$ref,omitempty"`
	Defs   map[string]*Schema `json:"$defs,omitempty"`

	// Core
	Title   string `json:"title,omitempty"`
	Type    string `json:"type,omitempty"`
	Format  string `json:"format,omitempty"`
	Const   any    `json:"const,omitempty"`
	Default any    `json:"default,omitempty"`
	Minimum *int   `json:"minimum,omitempty"`

	// Object
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	AdditionalProperties any                `json:"additionalProperties,omitempty"`
	MinProperties        *int               `json:"minProperties,omitempty"`

	// Array
	Items    *Schema `json:"items,omitempty"`
	MinItems *int    `json:"minItems,omitempty"`
	MaxItems *int    `json:"maxItems,omitempty"`

	// Union
	OneOf []*Schema `json:"oneOf,omitempty"`
}

// Marshal encodes s, indented when indent is not empty.
func Marshal(s *Schema, indent string) ([]byte, error) {
	if indent == "" {
		return j.Marshal(s)
	}
	return j.MarshalIndent(s, "", indent)
}

func intPtr(n int) *int { return &n }
