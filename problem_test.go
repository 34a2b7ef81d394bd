package metacodec_test

import (
	"bytes"
	"context"
	"encoding/xml"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	metacodec "github.com/reoring/metacodec"
	"github.com/reoring/metacodec/datatype"
	"github.com/reoring/metacodec/internal/fixture"
	"github.com/reoring/metacodec/model"
)

func logged() (context.Context, *bytes.Buffer) {
	var buf bytes.Buffer
	l := log.New(&buf)
	l.SetLevel(log.DebugLevel)
	return log.WithContext(context.Background(), l), &buf
}

func TestDefaultProblemHandler_Unknowns(t *testing.T) {
	ctx, logs := logged()
	h := metacodec.DefaultProblemHandler{}
	root := fixture.Catalog()

	p := metacodec.Problem{Definition: root, Name: xml.Name{Space: "urn:x", Local: "extra"}, Location: "line 1"}
	assert.True(t, h.HandleUnknownAttribute(ctx, p))
	assert.Contains(t, logs.String(), "ignoring unknown attribute")
	assert.Contains(t, logs.String(), "attr={urn:x}extra")

	logs.Reset()
	p.Name = xml.Name{Space: metacodec.XSINamespace, Local: "schemaLocation"}
	assert.True(t, h.HandleUnknownAttribute(ctx, p))
	assert.Empty(t, logs.String())

	assert.False(t, h.HandleUnknownElement(ctx, p))
	assert.False(t, h.HandleUnknownProperty(ctx, metacodec.Problem{Definition: root, Property: "bogus"}))
}

func TestIgnoreUnknown(t *testing.T) {
	ctx, logs := logged()
	h := metacodec.IgnoreUnknown{ProblemHandler: metacodec.DefaultProblemHandler{}}
	root := fixture.Catalog()

	assert.True(t, h.HandleUnknownElement(ctx, metacodec.Problem{Definition: root, Name: xml.Name{Local: "shelf"}}))
	assert.True(t, h.HandleUnknownProperty(ctx, metacodec.Problem{Definition: root, Property: "shelf"}))
	assert.Contains(t, logs.String(), "element=shelf")
	assert.Contains(t, logs.String(), "property=shelf")
	assert.True(t, h.HandleUnknownAttribute(ctx, metacodec.Problem{Definition: root, Name: xml.Name{Local: "a"}}))
}

func TestDefaultProblemHandler_MissingInstances(t *testing.T) {
	ctx, logs := logged()
	h := metacodec.DefaultProblemHandler{}
	root := fixture.Library()
	obj := model.NewRecord(root)

	require.NoError(t, h.HandleMissingFlagInstances(ctx, obj, root.Flags))
	require.NoError(t, h.HandleMissingModelInstances(ctx, obj, root.Model))

	for _, inst := range append(append([]*model.Instance{}, root.Flags...), root.Model...) {
		assert.True(t, obj.Has(inst.Name), inst.Name)
	}
	assert.Nil(t, obj.Get("uuid"))
	assert.Equal(t, "1.0", obj.Get("version"))
	assert.Nil(t, obj.Get("title"))
	assert.Equal(t, []any{}, obj.Get("tags"))
	assert.Equal(t, 0, obj.Get("props").(*model.Map).Len())
	assert.Equal(t, int64(0), obj.Get("count"))
	assert.Contains(t, logs.String(), "applying default")
}

func TestDefaultProblemHandler_BadDefault(t *testing.T) {
	root := model.MustCompile(&model.Definition{
		Name:     "r",
		RootName: xml.Name{Local: "r"},
		Model: []*model.Instance{
			{Kind: model.KindScalarField, Name: "n", Type: datatype.Integer, Default: "1"},
		},
	})
	// Compile checks defaults; corrupt it afterwards.
	root.Model[0].Default = "one"
	err := metacodec.DefaultProblemHandler{}.HandleMissingModelInstances(context.Background(), model.NewRecord(root), root.Model)
	e, ok := metacodec.AsError(err)
	require.True(t, ok)
	assert.Equal(t, metacodec.MissingRequiredData, e.Kind)
	assert.Equal(t, metacodec.CodeRequired, e.Code)
}
