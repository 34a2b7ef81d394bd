// Package dsl builds descriptor graphs with a fluent API instead of struct
// literals.
//
// Entry points
//   - Assembly(name): a definition with flags and an ordered model.
//   - Field(name, type): a complex field definition with flags and a value.
//   - Alt(name, def): one alternative of a choice group.
//
// Instances are added with Flag, Scalar, Child and Choice. Each returns a
// step whose modifiers (Required, Default, Many, GroupAs, ...) apply to the
// instance just added; a step forwards the builder methods so chains read
// top to bottom:
//
//	group := dsl.Assembly("group").
//		Flag("id", datatype.String).Required().
//		Scalar("title", datatype.String)
//	catalog := dsl.Assembly("catalog").Root("", "catalog").
//		Child("groups", group).Element("group").Many().GroupAs("groups", model.JSONList, model.XMLUngrouped).
//		MustBuild()
//
// Build compiles the graph reachable from the receiver through model.Compile,
// so descriptors built here are interchangeable with hand-written ones.
package dsl
