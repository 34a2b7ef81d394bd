package metacodec

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/reoring/metacodec/i18n"
	eng "github.com/reoring/metacodec/internal/engine"
)

// Error codes (exported consts for IDE completion and type safety by convention)
const (
	CodeParseError           = "parse_error"
	CodeUnexpectedToken      = "unexpected_token"
	CodeWrongRoot            = "wrong_root"
	CodeUnknownKey           = "unknown_key"
	CodeUnknownElement       = "unknown_element"
	CodeDuplicateKey         = "duplicate_key"
	CodeDuplicateOccurrence  = "duplicate_occurrence"
	CodeOutOfOrder           = "out_of_order"
	CodeRequired             = "required"
	CodeInvalidFormat        = "invalid_format"
	CodeInvalidType          = "invalid_type"
	CodeDiscriminatorMissing = "discriminator_missing"
	CodeDiscriminatorUnknown = "discriminator_unknown"
	CodeHook                 = "hook_failed"
	CodeIO                   = "io_error"
	CodeTruncated            = "truncated"
)

// ErrorKind classifies an Error for callers that branch on failure category.
type ErrorKind int

const (
	// StructuralMismatch covers unexpected elements, end tags or tokens, an
	// unresolved choice alternative and a wrong root.
	StructuralMismatch ErrorKind = iota
	// UnknownToken is an attribute, element or property the descriptor does not
	// declare and the problem handler refused.
	UnknownToken
	// MissingRequiredData is raised only when the problem handler cannot
	// produce a value.
	MissingRequiredData
	// LexicalType is a value the data type adapter cannot parse or format.
	LexicalType
	// Resource is a stream open, read, write or close failure.
	Resource
)

func (k ErrorKind) String() string {
	switch k {
	case StructuralMismatch:
		return "structural mismatch"
	case UnknownToken:
		return "unknown token"
	case MissingRequiredData:
		return "missing required data"
	case LexicalType:
		return "lexical type error"
	case Resource:
		return "resource error"
	default:
		return "unknown error kind"
	}
}

// Error is the single failure type returned at the codec boundary.
type Error struct {
	Kind     ErrorKind
	Code     string // One of the codes listed above.
	Path     string // JSON Pointer or XML element path, when known.
	Location string // e.g. "line 3, column 14" or "offset 120".
	Message  string
	Cause    error
	// Suppressed holds secondary failures (typically a close error) that
	// occurred after the primary failure.
	Suppressed []error
}

func (e *Error) Error() string {
	b := &strings.Builder{}
	b.WriteString(e.Code)
	if e.Path != "" {
		fmt.Fprintf(b, " at %s", e.Path)
	}
	if e.Location != "" {
		fmt.Fprintf(b, " (%s)", e.Location)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil && e.Cause.Error() != e.Message {
		fmt.Fprintf(b, ": %v", e.Cause)
	}
	if n := len(e.Suppressed); n > 0 {
		fmt.Fprintf(b, " (%d suppressed)", n)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds an Error whose message comes from the i18n catalog when msg
// is empty.
func NewError(kind ErrorKind, code, msg string) *Error {
	if msg == "" {
		msg = i18n.T(code, nil)
	}
	return &Error{Kind: kind, Code: code, Message: msg}
}

// NewIssue builds an Error whose catalog message is filled from data.
func NewIssue(kind ErrorKind, code string, data map[string]string) *Error {
	return &Error{Kind: kind, Code: code, Message: i18n.T(code, data)}
}

// Errorf builds an Error with a formatted message.
func Errorf(kind ErrorKind, code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// At returns e with Path and Location filled in where they are still empty.
func (e *Error) At(path, location string) *Error {
	if e.Path == "" {
		e.Path = path
	}
	if e.Location == "" {
		e.Location = location
	}
	return e
}

// WithCause sets the underlying error.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// AsError extracts an *Error from err using errors.As internally.
func AsError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Normalize converts any failure raised while reading or writing into an
// *Error, keeping the original as Cause.
func Normalize(err error) error {
	if err == nil {
		return nil
	}
	if e, ok := AsError(err); ok {
		return e
	}
	var ie eng.IssueError
	if errors.As(err, &ie) {
		kind := StructuralMismatch
		if ie.Code == CodeTruncated {
			kind = Resource
		}
		return &Error{Kind: kind, Code: ie.Code, Path: ie.Path, Message: ie.Message, Cause: err}
	}
	var se *xml.SyntaxError
	if errors.As(err, &se) {
		return &Error{Kind: StructuralMismatch, Code: CodeParseError, Location: fmt.Sprintf("line %d", se.Line), Message: se.Msg, Cause: err}
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &Error{Kind: StructuralMismatch, Code: CodeParseError, Message: "unexpected end of input", Cause: err}
	}
	return &Error{Kind: Resource, Code: CodeIO, Message: err.Error(), Cause: err}
}

// CloseWith closes c and merges a close failure into *errp. When *errp is
// already set the close failure is attached as a suppressed cause and the
// primary error is kept.
func CloseWith(c io.Closer, errp *error) {
	if c == nil {
		return
	}
	cerr := c.Close()
	if cerr == nil {
		return
	}
	if *errp == nil {
		*errp = &Error{Kind: Resource, Code: CodeIO, Message: "close failed", Cause: cerr}
		return
	}
	e, ok := AsError(*errp)
	if !ok {
		e = Normalize(*errp).(*Error)
		*errp = e
	}
	e.Suppressed = append(e.Suppressed, cerr)
}
