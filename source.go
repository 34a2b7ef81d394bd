package metacodec

import (
	"bytes"
	"context"
	"io"
	"sync"

	eng "github.com/reoring/metacodec/internal/engine"
	jsonsink "github.com/reoring/metacodec/sink/gojson"
	yamlsink "github.com/reoring/metacodec/sink/yaml"
	jsonsrc "github.com/reoring/metacodec/source/gojson"
	yamlsrc "github.com/reoring/metacodec/source/yaml"
)

// Token describes a token in a JSON-shaped input stream. Offset records the
// byte position when known (-1 otherwise).
type Token = eng.Token

// TokenKind enumerates JSON token kinds.
type TokenKind = eng.Kind

const (
	TokenBeginObject = eng.KindBeginObject
	TokenEndObject   = eng.KindEndObject
	TokenBeginArray  = eng.KindBeginArray
	TokenEndArray    = eng.KindEndArray
	TokenKey         = eng.KindKey
	TokenString      = eng.KindString
	TokenNumber      = eng.KindNumber
	TokenBool        = eng.KindBool
	TokenNull        = eng.KindNull
)

// Source is a forward-only JSON-shaped token stream (JSON or YAML).
type Source = eng.TokenSource

// Generator is the output side: a streaming JSON-shaped document writer.
type Generator = eng.Generator

// JSONDriver converts JSON input into a Source via a pluggable SPI. The
// default implementation is based on goccy/go-json and may be swapped with
// SetJSONDriver.
type JSONDriver interface {
	NewReader(r io.Reader) Source
	NewBytes(b []byte) Source
	Name() string
}

var (
	jsonDriverMu      sync.RWMutex
	currentJSONDriver JSONDriver = defaultJSONDriver{}
)

// SetJSONDriver replaces the global JSON driver; nil values are ignored.
func SetJSONDriver(d JSONDriver) {
	if d == nil {
		return
	}
	jsonDriverMu.Lock()
	currentJSONDriver = d
	jsonDriverMu.Unlock()
}

// UseDefaultJSONDriver restores the go-json backed driver.
func UseDefaultJSONDriver() {
	jsonDriverMu.Lock()
	currentJSONDriver = defaultJSONDriver{}
	jsonDriverMu.Unlock()
}

func getJSONDriver() JSONDriver {
	jsonDriverMu.RLock()
	d := currentJSONDriver
	jsonDriverMu.RUnlock()
	return d
}

type defaultJSONDriver struct{}

func (defaultJSONDriver) NewReader(r io.Reader) Source { return jsonsrc.NewReader(r) }
func (defaultJSONDriver) NewBytes(b []byte) Source     { return jsonsrc.NewBytes(b) }
func (defaultJSONDriver) Name() string                 { return "goccy/go-json" }

// JSONReader wraps an io.Reader as a JSON Source. The reader is not owned.
func JSONReader(r io.Reader) Source { return getJSONDriver().NewReader(r) }

// JSONBytes wraps a byte slice as a JSON Source.
func JSONBytes(b []byte) Source { return getJSONDriver().NewBytes(b) }

// YAMLReader wraps an io.Reader holding one YAML document as a Source. With
// strict set, duplicate mapping keys fail the read.
func YAMLReader(r io.Reader, strict bool) Source {
	if strict {
		return yamlsrc.NewReader(r, yamlsrc.Strict())
	}
	return yamlsrc.NewReader(r)
}

// YAMLBytes wraps a byte slice as a YAML Source.
func YAMLBytes(b []byte) Source { return YAMLReader(bytes.NewReader(b), false) }

// JSONWriter returns a Generator writing JSON text to w, indented when
// indent is non-empty. The writer is not owned.
func JSONWriter(w io.Writer, indent string) Generator {
	if indent == "" {
		return jsonsink.NewWriter(w)
	}
	return jsonsink.NewWriter(w, jsonsink.Indent(indent))
}

// YAMLWriter returns a Generator writing one YAML document to w.
func YAMLWriter(w io.Writer, indent int) Generator { return yamlsink.NewWriter(w, indent) }

// EnforceSource wraps s with the duplicate key and depth checks of cfg.
// Warnings go to the logger cfg resolves for ctx.
func EnforceSource(ctx context.Context, s Source, cfg Config) Source {
	return eng.WrapWithEnforcement(s, cfg.Enforcement(ctx))
}

// EnforceSourceIfNeeded returns s unchanged when cfg enables no checks.
func EnforceSourceIfNeeded(ctx context.Context, s Source, cfg Config) Source {
	if !cfg.Enforced() {
		return s
	}
	return EnforceSource(ctx, s, cfg)
}

// PathOf returns the JSON Pointer of the last token read from s when s
// tracks paths, and "" otherwise.
func PathOf(s Source) string { return eng.PathOf(s) }
