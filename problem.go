package metacodec

import (
	"context"
	"encoding/xml"

	"github.com/charmbracelet/log"

	"github.com/reoring/metacodec/model"
)

// XSINamespace is the XML Schema instance namespace.
const XSINamespace = "http://www.w3.org/2001/XMLSchema-instance"

// Problem describes input the descriptor does not account for.
type Problem struct {
	// Definition is the definition being read.
	Definition *model.Definition
	// Target is the object being populated.
	Target model.Object
	// Name is the attribute or element name (XML).
	Name xml.Name
	// Property is the property name (JSON).
	Property string
	// Location is a human-readable input position.
	Location string
}

// ProblemHandler decides what happens at structural gaps. Implementations
// must not keep per-document state.
type ProblemHandler interface {
	// HandleUnknownAttribute reports whether an undeclared attribute may be
	// skipped.
	HandleUnknownAttribute(ctx context.Context, p Problem) bool
	// HandleUnknownElement reports whether an undeclared element may be
	// skipped along with its subtree.
	HandleUnknownElement(ctx context.Context, p Problem) bool
	// HandleUnknownProperty reports whether an undeclared JSON property may be
	// skipped along with its value.
	HandleUnknownProperty(ctx context.Context, p Problem) bool
	// HandleMissingFlagInstances fills flags absent from the input.
	HandleMissingFlagInstances(ctx context.Context, target model.Object, flags []*model.Instance) error
	// HandleMissingModelInstances fills model instances absent from the
	// input.
	HandleMissingModelInstances(ctx context.Context, target model.Object, instances []*model.Instance) error
}

// DefaultProblemHandler ignores unknown attributes, refuses unknown elements
// and properties, and gives every missing instance its default value.
type DefaultProblemHandler struct{}

var _ ProblemHandler = DefaultProblemHandler{}

func (DefaultProblemHandler) HandleUnknownAttribute(ctx context.Context, p Problem) bool {
	if p.Name.Space == XSINamespace && (p.Name.Local == "schemaLocation" || p.Name.Local == "noNamespaceSchemaLocation") {
		return true
	}
	log.FromContext(ctx).Warn("ignoring unknown attribute",
		"attr", qualified(p.Name), "definition", p.Definition.Name, "at", p.Location)
	return true
}

func (DefaultProblemHandler) HandleUnknownElement(ctx context.Context, p Problem) bool {
	return false
}

func (DefaultProblemHandler) HandleUnknownProperty(ctx context.Context, p Problem) bool {
	return false
}

func (DefaultProblemHandler) HandleMissingFlagInstances(ctx context.Context, target model.Object, flags []*model.Instance) error {
	return applyDefaults(ctx, target, flags)
}

func (DefaultProblemHandler) HandleMissingModelInstances(ctx context.Context, target model.Object, instances []*model.Instance) error {
	return applyDefaults(ctx, target, instances)
}

func applyDefaults(ctx context.Context, target model.Object, insts []*model.Instance) error {
	logger := log.FromContext(ctx)
	for _, inst := range insts {
		v, err := model.DefaultValue(inst)
		if err != nil {
			return Errorf(MissingRequiredData, CodeRequired, "default for %s: %v", inst.Name, err).WithCause(err)
		}
		if inst.Default != "" {
			logger.Debug("applying default", "definition", target.Definition().Name, "property", inst.Name, "default", inst.Default)
		}
		target.Set(inst.Name, v)
	}
	return nil
}

// IgnoreUnknown wraps a handler so that unknown elements and properties are
// skipped instead of failing the read.
type IgnoreUnknown struct {
	ProblemHandler
}

func (h IgnoreUnknown) HandleUnknownElement(ctx context.Context, p Problem) bool {
	log.FromContext(ctx).Warn("skipping unknown element",
		"element", qualified(p.Name), "definition", p.Definition.Name, "at", p.Location)
	return true
}

func (h IgnoreUnknown) HandleUnknownProperty(ctx context.Context, p Problem) bool {
	log.FromContext(ctx).Warn("skipping unknown property",
		"property", p.Property, "definition", p.Definition.Name, "at", p.Location)
	return true
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return "{" + n.Space + "}" + n.Local
}
