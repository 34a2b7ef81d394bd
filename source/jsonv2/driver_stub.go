//go:build !jsonv2

// Package jsonv2 provides a JSON driver backed by encoding/json/jsontext.
// Without the jsonv2 build tag it falls back to the goccy/go-json source.
package jsonv2

import (
	"io"

	metacodec "github.com/reoring/metacodec"
	jsonsrc "github.com/reoring/metacodec/source/gojson"
)

// Driver returns a fallback driver when the jsonv2 build tag is not enabled.
func Driver() metacodec.JSONDriver { return driverStub{} }

type driverStub struct{}

func (driverStub) NewReader(r io.Reader) metacodec.Source { return jsonsrc.NewReader(r) }
func (driverStub) NewBytes(b []byte) metacodec.Source     { return jsonsrc.NewBytes(b) }
func (driverStub) Name() string                           { return "goccy/go-json (jsonv2 stub)" }
