package model_test

import (
	"encoding/xml"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/metacodec/datatype"
	"github.com/reoring/metacodec/internal/fixture"
	"github.com/reoring/metacodec/model"
)

func instanceNamed(t *testing.T, d *model.Definition, name string) *model.Instance {
	t.Helper()
	for _, m := range d.Model {
		if m.Name == name {
			return m
		}
	}
	t.Fatalf("no instance %q in %s", name, d.Name)
	return nil
}

func TestCompile_ResolvesShapes(t *testing.T) {
	lib := fixture.Library()
	cases := map[string]model.ShapeKind{
		"title":   model.Singleton,
		"remarks": model.Singleton,
		"props":   model.KeyedMap,
		"measure": model.Singleton,
		"tags":    model.List,
		"links":   model.List,
		"items":   model.List,
		"count":   model.Singleton,
		"notes":   model.List,
	}
	for name, want := range cases {
		assert.Equal(t, want, instanceNamed(t, lib, name).Shape().Kind, name)
	}
	props := instanceNamed(t, lib, "props")
	require.NotNil(t, props.Shape().Key)
	assert.Equal(t, "name", props.Shape().Key.Name)
}

func TestCompile_FillsNamesAndNamespaces(t *testing.T) {
	lib := fixture.Library()
	tags := instanceNamed(t, lib, "tags")
	assert.Equal(t, xml.Name{Space: fixture.LibraryNS, Local: "tag"}, tags.ElementName())
	assert.Equal(t, "tags", tags.JSONPropertyName())

	items := instanceNamed(t, lib, "items")
	assert.True(t, items.Grouped())
	assert.Equal(t, xml.Name{Space: fixture.LibraryNS, Local: "items"}, items.WrapperName())
	assert.Equal(t, model.DefaultDiscriminator, items.Discriminator)
	book, ok := items.AlternativeByXML(xml.Name{Space: fixture.LibraryNS, Local: "book"})
	require.True(t, ok)
	assert.Equal(t, "book", book.DiscriminatorValue())
	_, ok = items.AlternativeByDiscriminator("article")
	assert.True(t, ok)

	flag, ok := lib.FlagByXML(xml.Name{Local: "version"})
	require.True(t, ok)
	assert.Equal(t, "version", flag.Name)

	remarks := instanceNamed(t, lib, "remarks")
	assert.True(t, remarks.IsUnwrapped())
	assert.True(t, remarks.MatchesElement(xml.Name{Space: fixture.LibraryNS, Local: "p"}))
	assert.False(t, remarks.MatchesElement(xml.Name{Space: fixture.LibraryNS, Local: "prop"}))
	assert.False(t, remarks.MatchesElement(xml.Name{Space: "urn:other", Local: "p"}))
}

func TestCompile_Handlers(t *testing.T) {
	lib := fixture.Library()
	h, ok := instanceNamed(t, lib, "count").Handler().(model.ScalarHandler)
	require.True(t, ok)
	v, err := h.Parse("12")
	require.NoError(t, err)
	assert.Equal(t, int64(12), v)

	ch, ok := instanceNamed(t, lib, "links").Handler().(model.ComplexHandler)
	require.True(t, ok)
	assert.Equal(t, "link", ch.Definition.Name)
	assert.Equal(t, "text", ch.Definition.ValueName())
	assert.Equal(t, "RICHTEXT", ch.Definition.JSONValueKey())

	measure := instanceNamed(t, lib, "measure").Definition
	require.NotNil(t, measure.ValueKeyFlag())
	assert.Equal(t, "unit", measure.ValueKeyFlag().Name)
}

func TestCompile_Rejects(t *testing.T) {
	item := &model.Definition{
		Name:  "item",
		Flags: []*model.Instance{{Kind: model.KindFlag, Name: "id", Type: datatype.String}},
	}
	cases := map[string]*model.Definition{
		"keyed without key flag": {
			Name: "root", RootName: xml.Name{Local: "root"},
			Model: []*model.Instance{{
				Kind: model.KindAssembly, Name: "items", MaxOccurs: model.Unbounded,
				Definition: item, GroupAs: model.GroupAs{Name: "items", InJSON: model.JSONKeyed},
			}},
		},
		"container mismatch": {
			Name: "root", RootName: xml.Name{Local: "root"},
			Model: []*model.Instance{{
				Kind: model.KindScalarField, Name: "x", Type: datatype.String, Container: model.List,
			}},
		},
		"unwrapped plain string": {
			Name: "root", RootName: xml.Name{Local: "root"},
			Model: []*model.Instance{{
				Kind: model.KindScalarField, Name: "x", Type: datatype.String, Unwrapped: true,
			}},
		},
		"duplicate alternatives": {
			Name: "root", RootName: xml.Name{Local: "root"},
			Model: []*model.Instance{{
				Kind: model.KindChoiceGroup, Name: "c",
				Alternatives: []*model.Instance{
					{Kind: model.KindAssembly, Name: "a", Definition: item},
					{Kind: model.KindAssembly, Name: "b", XMLName: xml.Name{Local: "a"}, Definition: item},
				},
			}},
		},
		"bad default": {
			Name: "root", RootName: xml.Name{Local: "root"},
			Flags: []*model.Instance{{Kind: model.KindFlag, Name: "n", Type: datatype.Integer, Default: "x"}},
		},
		"flag without type": {
			Name: "root", RootName: xml.Name{Local: "root"},
			Flags: []*model.Instance{{Kind: model.KindFlag, Name: "n"}},
		},
	}
	for name, d := range cases {
		err := model.Compile(d)
		require.Error(t, err, name)
		assert.True(t, errors.Is(err, model.ErrInvalidDescriptor), name)
	}
}

func TestCompile_RecursiveDefinition(t *testing.T) {
	node := &model.Definition{Name: "node"}
	node.Flags = []*model.Instance{{Kind: model.KindFlag, Name: "id", Type: datatype.String}}
	node.Model = []*model.Instance{{
		Kind: model.KindAssembly, Name: "children", XMLName: xml.Name{Local: "node"},
		MaxOccurs: model.Unbounded, Definition: node,
	}}
	node.RootName = xml.Name{Local: "node"}
	require.NoError(t, model.Compile(node))
	require.NoError(t, model.Compile(node))
}

func TestShape_EmptyAndCounts(t *testing.T) {
	single := model.Shape{Kind: model.Singleton}
	list := model.Shape{Kind: model.List}
	keyed := model.Shape{Kind: model.KeyedMap}

	for _, s := range []model.Shape{single, list, keyed} {
		assert.Equal(t, 0, s.ItemCount(nil))
		assert.True(t, s.IsEmpty(nil))
		assert.Nil(t, s.Items(nil))
		assert.True(t, s.IsEmpty(s.Empty()))
	}
	assert.Nil(t, single.Empty())
	assert.Equal(t, []any{}, list.Empty())
	assert.Equal(t, 0, keyed.Empty().(*model.Map).Len())

	assert.Equal(t, 1, single.ItemCount("x"))
	assert.Equal(t, 2, list.ItemCount([]any{"a", "b"}))
}

type recordingReader struct{ called string }

func (r *recordingReader) ReadSingleton() (any, error) {
	r.called = "singleton"
	return "x", nil
}

func (r *recordingReader) ReadList() ([]any, error) {
	r.called = "list"
	return []any{"x"}, nil
}

func (r *recordingReader) ReadMap() (*model.Map, error) {
	r.called = "map"
	return model.NewMap(), nil
}

func TestShape_ReadDispatch(t *testing.T) {
	for kind, want := range map[model.ShapeKind]string{
		model.Singleton: "singleton", model.List: "list", model.KeyedMap: "map",
	} {
		r := &recordingReader{}
		_, err := model.Shape{Kind: kind}.Read(r)
		require.NoError(t, err)
		assert.Equal(t, want, r.called)
	}
}

func TestKeyedMap_LastWriteWins(t *testing.T) {
	lib := fixture.Library()
	props := instanceNamed(t, lib, "props")
	shape := props.Shape()

	mk := func(name, value string) model.Object {
		o := props.Definition.NewObject()
		o.Set("name", name)
		o.Set("value", value)
		return o
	}
	m := model.NewMap()
	for _, o := range []model.Object{mk("a", "first"), mk("b", "other"), mk("a", "second")} {
		_, err := shape.Put(m, o)
		require.NoError(t, err)
	}
	require.Equal(t, 2, m.Len())
	assert.Equal(t, []string{"a", "b"}, m.Keys())
	got, _ := m.Get("a")
	assert.Equal(t, "second", got.(model.Object).Get("value"))

	_, err := shape.Put(m, props.Definition.NewObject())
	assert.ErrorIs(t, err, model.ErrNilKey)
}

func TestDefaultValue(t *testing.T) {
	lib := fixture.Library()
	v, err := model.DefaultValue(instanceNamed(t, lib, "count"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)

	v, err = model.DefaultValue(instanceNamed(t, lib, "notes"))
	require.NoError(t, err)
	assert.Equal(t, []any{}, v)

	v, err = model.DefaultValue(instanceNamed(t, lib, "measure"))
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestCopy_DeepAndRehooked(t *testing.T) {
	var parents []model.Object
	child := &model.Definition{
		Name:  "child",
		Flags: []*model.Instance{{Kind: model.KindFlag, Name: "id", Type: datatype.String}},
		Hooks: model.Hooks{
			AfterDeserialize: func(obj, parent model.Object) error {
				parents = append(parents, parent)
				return nil
			},
		},
	}
	root := model.MustCompile(&model.Definition{
		Name: "root", RootName: xml.Name{Local: "root"},
		Model: []*model.Instance{{
			Kind: model.KindAssembly, Name: "children", XMLName: xml.Name{Local: "child"},
			MaxOccurs: model.Unbounded, Definition: child,
		}},
	})

	src := root.NewObject()
	c1 := child.NewObject()
	c1.Set("id", "one")
	src.Set("children", []any{c1})

	dst, err := model.Copy(src, nil)
	require.NoError(t, err)
	items := dst.Get("children").([]any)
	require.Len(t, items, 1)
	copied := items[0].(model.Object)
	assert.Equal(t, "one", copied.Get("id"))
	assert.NotSame(t, c1, copied)

	copied.Set("id", "changed")
	assert.Equal(t, "one", c1.Get("id"))
	require.Len(t, parents, 1)
	assert.Same(t, dst, parents[0])
}
