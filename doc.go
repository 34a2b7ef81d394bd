// Package metacodec converts between XML or JSON/YAML documents and object
// graphs described by Metaschema-style descriptors.
//
// The root package holds the public contracts shared by the codecs:
//
//   - Error, the single failure type with its ErrorKind taxonomy and codes
//   - Config, the one explicit options value (XXE-safe by default)
//   - ProblemHandler, the policy for unknown and missing content
//   - Source and Generator, the JSON-shaped token stream contracts
//
// Design policy:
//   - Descriptors live in model/ and are compiled once before any I/O.
//   - Format codecs live in xmlcodec/ and jsoncodec/; metaio/ opens and
//     closes files and detects formats.
//   - Streams are never owned by a codec.
//
// Typical usage:
//
//	root := model.MustCompile(catalogDefinition)
//	obj, err := xmlcodec.Read(ctx, r, root, metacodec.DefaultConfig())
//	err = jsoncodec.Write(ctx, metacodec.JSONWriter(w, ""), root, obj, metacodec.DefaultConfig())
package metacodec
