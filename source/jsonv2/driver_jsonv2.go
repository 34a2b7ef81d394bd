//go:build jsonv2

// Package jsonv2 provides a JSON driver backed by encoding/json/jsontext.
// Building with the jsonv2 tag requires GOEXPERIMENT=jsonv2.
package jsonv2

import (
	"bytes"
	"errors"
	"io"

	"encoding/json/jsontext"

	metacodec "github.com/reoring/metacodec"
	eng "github.com/reoring/metacodec/internal/engine"
)

// Driver returns a metacodec.JSONDriver that streams tokens from jsontext.
func Driver() metacodec.JSONDriver { return driverV2{} }

type driverV2 struct{}

func (driverV2) NewReader(r io.Reader) metacodec.Source { return &source{dec: jsontext.NewDecoder(r)} }
func (driverV2) NewBytes(b []byte) metacodec.Source     { return driverV2{}.NewReader(bytes.NewReader(b)) }
func (driverV2) Name() string                           { return "encoding/json/jsontext" }

type source struct {
	dec *jsontext.Decoder
}

func (s *source) NextToken() (eng.Token, error) {
	off := s.dec.InputOffset()
	tok, err := s.dec.ReadToken()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return eng.Token{}, io.EOF
		}
		var se *jsontext.SyntacticError
		if errors.As(err, &se) {
			return eng.Token{}, eng.IssueError{SimpleIssue: eng.SimpleIssue{Code: "parse_error", Path: string(se.JSONPointer), Message: se.Error()}}
		}
		return eng.Token{}, err
	}
	switch tok.Kind() {
	case '{':
		return eng.Token{Kind: eng.KindBeginObject, Offset: off}, nil
	case '}':
		return eng.Token{Kind: eng.KindEndObject, Offset: off}, nil
	case '[':
		return eng.Token{Kind: eng.KindBeginArray, Offset: off}, nil
	case ']':
		return eng.Token{Kind: eng.KindEndArray, Offset: off}, nil
	case '"':
		// Names and values alternate inside an object; an odd count means
		// the string just read was a name.
		if k, n := s.dec.StackIndex(s.dec.StackDepth()); k == '{' && n%2 == 1 {
			return eng.Token{Kind: eng.KindKey, String: tok.String(), Offset: off}, nil
		}
		return eng.Token{Kind: eng.KindString, String: tok.String(), Offset: off}, nil
	case '0':
		return eng.Token{Kind: eng.KindNumber, Number: tok.String(), Offset: off}, nil
	case 't', 'f':
		return eng.Token{Kind: eng.KindBool, Bool: tok.Bool(), Offset: off}, nil
	default:
		return eng.Token{Kind: eng.KindNull, Offset: off}, nil
	}
}

func (s *source) Location() int64 { return s.dec.InputOffset() }
