package dsl_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	metacodec "github.com/reoring/metacodec"
	"github.com/reoring/metacodec/datatype"
	"github.com/reoring/metacodec/dsl"
	"github.com/reoring/metacodec/internal/fixture"
	"github.com/reoring/metacodec/metaio"
	"github.com/reoring/metacodec/model"
)

func convert(t *testing.T, root *model.Definition, doc string, from, to metaio.Format) string {
	t.Helper()
	var buf bytes.Buffer
	err := metaio.Convert(context.Background(), strings.NewReader(doc), from, &buf, to, root, metacodec.DefaultConfig())
	require.NoError(t, err)
	return buf.String()
}

func catalog() *dsl.Builder {
	group := dsl.Assembly("group").
		Flag("id", datatype.String).Required().
		Scalar("title", datatype.String).Done()
	return dsl.Assembly("catalog").Root("", "catalog").
		Child("groups", group).Element("group").Many().GroupAs("groups", model.JSONList, model.XMLUngrouped).Done()
}

func library() *dsl.Builder {
	prop := dsl.Field("prop", datatype.String).
		Flag("name", datatype.Token).Required().
		Flag("class", datatype.Token).
		Key("name")
	measure := dsl.Field("measure", datatype.Decimal).ValueKeyFlag("unit").
		Flag("unit", datatype.Token).Default("cm").Done()
	link := dsl.Field("link", datatype.MarkupLine).ValueName("text").
		Flag("href", datatype.URIReference).Required().
		Flag("rel", datatype.Token).Done()
	book := dsl.Assembly("book").
		Flag("id", datatype.Token).Required().
		Flag("pages", datatype.PositiveInteger).
		Scalar("title", datatype.MarkupLine).Required().Done()
	article := dsl.Assembly("article").
		Flag("id", datatype.Token).Required().
		Flag("published", datatype.Date).
		Scalar("title", datatype.MarkupLine).Required().Done()

	return dsl.Assembly("library").Root(fixture.LibraryNS, "library").RootJSON("library").
		Flag("uuid", datatype.UUID).
		Flag("version", datatype.String).Default("1.0").
		Scalar("title", datatype.MarkupLine).Required().
		Scalar("remarks", datatype.MarkupMultiline).Unwrapped().
		Child("props", prop).Element("prop").Many().GroupAs("props", model.JSONKeyed, model.XMLUngrouped).
		Child("measure", measure).
		Scalar("tags", datatype.Token).Element("tag").Many().GroupAs("tags", model.JSONSingletonOrList, model.XMLUngrouped).
		Child("links", link).Element("link").Many().GroupAs("links", model.JSONList, model.XMLUngrouped).
		Choice("items", dsl.Alt("book", book), dsl.Alt("article", article)).GroupAs("items", model.JSONList, model.XMLGrouped).
		Scalar("count", datatype.NonNegativeInteger).Default("0").
		Scalar("notes", datatype.String).Element("note").Many().GroupAs("notes", model.JSONList, model.XMLGrouped).Done()
}

func TestBuild_MatchesLiteralDescriptors(t *testing.T) {
	cases := []struct {
		name    string
		built   *model.Definition
		literal *model.Definition
		doc     string
	}{
		{"catalog", catalog().MustBuild(), fixture.Catalog(), fixture.CatalogXML},
		{"library", library().MustBuild(), fixture.Library(), fixture.LibraryXML},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, to := range []metaio.Format{metaio.JSON, metaio.XML} {
				want := convert(t, tc.literal, tc.doc, metaio.XML, to)
				got := convert(t, tc.built, tc.doc, metaio.XML, to)
				assert.Equal(t, want, got, to.String())
			}
		})
	}
}

func TestBuild_CatalogJSON(t *testing.T) {
	got := convert(t, catalog().MustBuild(), fixture.CatalogXML, metaio.XML, metaio.JSON)
	assert.Equal(t, fixture.CatalogJSON, got)
}

func TestBuild_Recursive(t *testing.T) {
	section := dsl.Assembly("section")
	section.Flag("title", datatype.String).
		Child("sections", section).Element("section").Many().GroupAs("sections", model.JSONList, model.XMLUngrouped)
	root := dsl.Assembly("doc").Root("", "doc").
		Child("sections", section).Element("section").Many().GroupAs("sections", model.JSONList, model.XMLUngrouped).
		MustBuild()

	doc := `<doc><section title="a"><section title="a.1"><section title="a.1.i"></section></section></section></doc>`
	got := convert(t, root, doc, metaio.XML, metaio.JSON)
	assert.Equal(t, `{"sections":[{"title":"a","sections":[{"title":"a.1","sections":[{"title":"a.1.i"}]}]}]}`, got)
	assert.Equal(t, `<?xml version="1.0" encoding="UTF-8"?>`+doc, convert(t, root, got, metaio.JSON, metaio.XML))
}

func TestBuild_Errors(t *testing.T) {
	cases := []struct {
		name string
		b    *dsl.Builder
	}{
		{"undeclared key flag", dsl.Field("p", datatype.String).Key("missing")},
		{"undeclared value key flag", dsl.Field("m", datatype.Decimal).ValueKeyFlag("unit")},
		{"field with a model", dsl.Field("f", datatype.String).Scalar("x", datatype.String).Done()},
		{"flag without type", dsl.Assembly("a").Flag("x", nil).Done()},
		{"repeating flag", dsl.Assembly("a").Flag("x", datatype.String).Many().Done()},
		{"duplicate property", dsl.Assembly("a").Scalar("x", datatype.String).Scalar("x", datatype.Token).Done()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.b.Build()
			require.ErrorIs(t, err, model.ErrInvalidDescriptor)
			assert.Panics(t, func() { tc.b.MustBuild() })
		})
	}
}

func TestStep_Modifiers(t *testing.T) {
	b := dsl.Assembly("a").Root("urn:x", "a")
	flag := b.Flag("id", datatype.Token).Required().JSON("ID").Element("identifier")
	field := b.Scalar("v", datatype.Integer).Required().Occurs(1, 3).GroupAs("vs", model.JSONList, model.XMLGrouped)
	choice := b.Choice("c", dsl.Alt("x", dsl.Assembly("x"))).Discriminator("kind")
	b.MustBuild()

	assert.True(t, flag.Instance().Required)
	assert.Equal(t, "ID", flag.Instance().JSONName)
	assert.Equal(t, "identifier", flag.Instance().XMLName.Local)
	assert.Equal(t, "", flag.Instance().XMLName.Space)

	assert.Equal(t, 1, field.Instance().MinOccurs)
	assert.Equal(t, 3, field.Instance().MaxOccurs)
	assert.Equal(t, "urn:x", field.Instance().XMLName.Space)
	assert.Equal(t, model.List, field.Instance().Shape().Kind)
	assert.Equal(t, "vs", field.Instance().JSONPropertyName())

	assert.Equal(t, "kind", choice.Instance().Discriminator)
	assert.Equal(t, model.KindAssembly, choice.Instance().Alternatives[0].Kind)
}
