package model

import "github.com/reoring/metacodec/datatype"

// Handler is the data type handler of an instance: ScalarHandler or
// ComplexHandler. Choice groups have no handler; each alternative does.
type Handler interface {
	isHandler()
}

// ScalarHandler converts flag and scalar field values through an adapter.
type ScalarHandler struct {
	Adapter datatype.Adapter
}

// ComplexHandler marks values read and written recursively through a
// definition.
type ComplexHandler struct {
	Definition *Definition
}

func (ScalarHandler) isHandler()  {}
func (ComplexHandler) isHandler() {}

func (h ScalarHandler) Parse(text string) (any, error) { return h.Adapter.Parse(text) }

func (h ScalarHandler) Format(v any) (string, error) { return h.Adapter.Format(v) }

func (h ScalarHandler) AllowsUnwrappedXML() bool { return datatype.AllowsUnwrappedXML(h.Adapter) }

// DefaultValue is the value given to an instance that is absent from the
// input: the parsed lexical default, or the shape's empty value.
func DefaultValue(inst *Instance) (any, error) {
	if inst.Default != "" && inst.Type != nil && inst.Kind != KindChoiceGroup && !inst.IsComplex() {
		v, err := inst.Type.Parse(inst.Default)
		if err != nil {
			return nil, err
		}
		if inst.shape.Kind == List {
			return []any{v}, nil
		}
		return v, nil
	}
	return inst.shape.Empty(), nil
}
