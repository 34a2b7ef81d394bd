package engine

// Generator is the output side of the token model: a streaming writer that
// produces JSON-shaped documents (JSON text, YAML, ...).
//
// Calls must describe a well-formed document; implementations are not
// required to validate the sequence.
type Generator interface {
	BeginObject() error
	EndObject() error
	BeginArray() error
	EndArray() error
	Key(name string) error
	String(s string) error
	// Number writes a number from its lexical form.
	Number(text string) error
	Bool(b bool) error
	Null() error
	// Flush completes any buffered output. It does not close the underlying
	// writer.
	Flush() error
}
