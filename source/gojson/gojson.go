// Package gojson reads JSON into engine tokens with goccy/go-json.
package gojson

import (
	"bytes"
	"io"
	"strconv"

	j "github.com/goccy/go-json"

	eng "github.com/reoring/metacodec/internal/engine"
)

// reader classifies decoder tokens. The decoder does not tell keys from
// string values, so each open object records whether a key is due.
type reader struct {
	dec *j.Decoder
	// open holds one entry per open container: true for an object awaiting
	// its next key.
	open   []bool
	object []bool
}

// NewReader returns a token source over r. r is not closed.
func NewReader(r io.Reader) eng.TokenSource {
	dec := j.NewDecoder(r)
	dec.UseNumber()
	return &reader{dec: dec}
}

// NewBytes returns a token source over b.
func NewBytes(b []byte) eng.TokenSource { return NewReader(bytes.NewReader(b)) }

func (r *reader) push(object bool) {
	r.object = append(r.object, object)
	r.open = append(r.open, object)
}

func (r *reader) pop() {
	if n := len(r.open); n > 0 {
		r.open, r.object = r.open[:n-1], r.object[:n-1]
	}
	r.valueEnded()
}

// valueEnded re-arms key detection once a member value is complete.
func (r *reader) valueEnded() {
	if n := len(r.open); n > 0 && r.object[n-1] {
		r.open[n-1] = true
	}
}

func (r *reader) keyDue() bool {
	n := len(r.open)
	if n == 0 || !r.open[n-1] {
		return false
	}
	r.open[n-1] = false
	return true
}

func (r *reader) NextToken() (eng.Token, error) {
	raw, err := r.dec.Token()
	if err != nil {
		return eng.Token{}, err
	}
	tok := eng.Token{Offset: -1}
	switch v := raw.(type) {
	case j.Delim:
		switch v {
		case '{':
			r.push(true)
			tok.Kind = eng.KindBeginObject
		case '[':
			r.push(false)
			tok.Kind = eng.KindBeginArray
		case '}':
			r.pop()
			tok.Kind = eng.KindEndObject
		default:
			r.pop()
			tok.Kind = eng.KindEndArray
		}
		return tok, nil
	case string:
		if r.keyDue() {
			tok.Kind, tok.String = eng.KindKey, v
			return tok, nil
		}
		tok.Kind, tok.String = eng.KindString, v
	case bool:
		tok.Kind, tok.Bool = eng.KindBool, v
	case j.Number:
		tok.Kind, tok.Number = eng.KindNumber, string(v)
	case float64:
		tok.Kind, tok.Number = eng.KindNumber, strconv.FormatFloat(v, 'g', -1, 64)
	default:
		tok.Kind = eng.KindNull
	}
	r.valueEnded()
	return tok, nil
}

// Location is unknown; the decoder does not expose its offset.
func (r *reader) Location() int64 { return -1 }
