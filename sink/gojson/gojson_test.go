package gojson_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	eng "github.com/reoring/metacodec/internal/engine"
	"github.com/reoring/metacodec/sink/gojson"
)

// sample writes {"a":[1,true],"b":{},"c":null}.
func sample(t *testing.T, g eng.Generator) {
	t.Helper()
	require.NoError(t, g.BeginObject())
	require.NoError(t, g.Key("a"))
	require.NoError(t, g.BeginArray())
	require.NoError(t, g.Number("1"))
	require.NoError(t, g.Bool(true))
	require.NoError(t, g.EndArray())
	require.NoError(t, g.Key("b"))
	require.NoError(t, g.BeginObject())
	require.NoError(t, g.EndObject())
	require.NoError(t, g.Key("c"))
	require.NoError(t, g.Null())
	require.NoError(t, g.EndObject())
	require.NoError(t, g.Flush())
}

func TestWriter_Compact(t *testing.T) {
	var buf bytes.Buffer
	sample(t, gojson.NewWriter(&buf))
	assert.Equal(t, `{"a":[1,true],"b":{},"c":null}`, buf.String())
}

func TestWriter_Indent(t *testing.T) {
	var buf bytes.Buffer
	sample(t, gojson.NewWriter(&buf, gojson.Indent("  ")))
	assert.Equal(t, "{\n  \"a\": [\n    1,\n    true\n  ],\n  \"b\": {},\n  \"c\": null\n}\n", buf.String())
}

func TestWriter_StringEscaping(t *testing.T) {
	var buf bytes.Buffer
	g := gojson.NewWriter(&buf)
	require.NoError(t, g.BeginArray())
	require.NoError(t, g.String(`<b>"x" & y</b>`))
	require.NoError(t, g.String("tab\there\nline"))
	require.NoError(t, g.String(`back\slash`))
	require.NoError(t, g.EndArray())
	require.NoError(t, g.Flush())
	assert.Equal(t, `["<b>\"x\" & y</b>","tab\there\nline","back\\slash"]`, buf.String())
}

func TestWriter_NumberTextIsVerbatim(t *testing.T) {
	var buf bytes.Buffer
	g := gojson.NewWriter(&buf)
	require.NoError(t, g.Number("12345678901234567890.50"))
	require.NoError(t, g.Flush())
	assert.Equal(t, "12345678901234567890.50", buf.String())
}
