package yaml_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/reoring/metacodec/sink/yaml"
)

func TestWriter_TypedScalarsSurviveDecoding(t *testing.T) {
	var buf bytes.Buffer
	g := yaml.NewWriter(&buf, 0)
	require.NoError(t, g.BeginObject())
	require.NoError(t, g.Key("code"))
	require.NoError(t, g.String("007"))
	require.NoError(t, g.Key("yes"))
	require.NoError(t, g.String("true"))
	require.NoError(t, g.Key("count"))
	require.NoError(t, g.Number("7"))
	require.NoError(t, g.Key("ratio"))
	require.NoError(t, g.Number("1.5"))
	require.NoError(t, g.Key("ok"))
	require.NoError(t, g.Bool(false))
	require.NoError(t, g.Key("none"))
	require.NoError(t, g.Null())
	require.NoError(t, g.Key("list"))
	require.NoError(t, g.BeginArray())
	require.NoError(t, g.String("a"))
	require.NoError(t, g.BeginObject())
	require.NoError(t, g.EndObject())
	require.NoError(t, g.EndArray())
	require.NoError(t, g.EndObject())
	require.NoError(t, g.Flush())

	var got map[string]any
	require.NoError(t, yamlv3.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, map[string]any{
		"code":  "007",
		"yes":   "true",
		"count": 7,
		"ratio": 1.5,
		"ok":    false,
		"none":  nil,
		"list":  []any{"a", map[string]any{}},
	}, got)
	assert.Contains(t, buf.String(), "\n  - a\n")
}

func TestWriter_Errors(t *testing.T) {
	g := yaml.NewWriter(&bytes.Buffer{}, 2)
	require.NoError(t, g.String("one"))
	assert.EqualError(t, g.String("two"), "yaml: more than one top-level value")

	g = yaml.NewWriter(&bytes.Buffer{}, 2)
	assert.EqualError(t, g.EndArray(), "yaml: unbalanced end of container")
}

func TestWriter_FlushEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, yaml.NewWriter(&buf, 4).Flush())
	assert.Empty(t, buf.String())
}
