// Package fixture holds descriptor graphs and documents shared by the codec
// tests.
package fixture

import (
	"encoding/xml"

	"github.com/reoring/metacodec/datatype"
	"github.com/reoring/metacodec/model"
)

// Catalog is `catalog{ groups: group[] }` with `group{ @id, title }`, no
// namespace.
func Catalog() *model.Definition {
	group := &model.Definition{
		Name: "group",
		Flags: []*model.Instance{
			{Kind: model.KindFlag, Name: "id", Type: datatype.String, Required: true},
		},
		Model: []*model.Instance{
			{Kind: model.KindScalarField, Name: "title", Type: datatype.String},
		},
	}
	return model.MustCompile(&model.Definition{
		Name:     "catalog",
		RootName: xml.Name{Local: "catalog"},
		Model: []*model.Instance{
			{
				Kind: model.KindAssembly, Name: "groups", XMLName: xml.Name{Local: "group"},
				MaxOccurs: model.Unbounded, Definition: group,
				GroupAs: model.GroupAs{Name: "groups", InJSON: model.JSONList},
			},
		},
	})
}

// CatalogXML is the catalog document used throughout the tests.
const CatalogXML = `<catalog><group id="a"><title>Alpha</title></group><group id="b"><title>Beta</title></group></catalog>`

// CatalogJSON is CatalogXML in JSON form.
const CatalogJSON = `{"groups":[{"id":"a","title":"Alpha"},{"id":"b","title":"Beta"}]}`

// LibraryNS is the namespace of the Library documents.
const LibraryNS = "urn:example:library"

// Library exercises every instance kind and collection shape.
func Library() *model.Definition {
	prop := &model.Definition{
		Name: "prop",
		Flags: []*model.Instance{
			{Kind: model.KindFlag, Name: "name", Type: datatype.Token, Required: true},
			{Kind: model.KindFlag, Name: "class", Type: datatype.Token},
		},
		Value:   &model.Value{Type: datatype.String},
		JSONKey: "name",
	}
	measure := &model.Definition{
		Name: "measure",
		Flags: []*model.Instance{
			{Kind: model.KindFlag, Name: "unit", Type: datatype.Token, Default: "cm"},
		},
		Value: &model.Value{Type: datatype.Decimal, JSONValueKeyFlag: "unit"},
	}
	link := &model.Definition{
		Name: "link",
		Flags: []*model.Instance{
			{Kind: model.KindFlag, Name: "href", Type: datatype.URIReference, Required: true},
			{Kind: model.KindFlag, Name: "rel", Type: datatype.Token},
		},
		Value: &model.Value{Type: datatype.MarkupLine, Name: "text"},
	}
	book := &model.Definition{
		Name: "book",
		Flags: []*model.Instance{
			{Kind: model.KindFlag, Name: "id", Type: datatype.Token, Required: true},
			{Kind: model.KindFlag, Name: "pages", Type: datatype.PositiveInteger},
		},
		Model: []*model.Instance{
			{Kind: model.KindScalarField, Name: "title", Type: datatype.MarkupLine, MinOccurs: 1},
		},
	}
	article := &model.Definition{
		Name: "article",
		Flags: []*model.Instance{
			{Kind: model.KindFlag, Name: "id", Type: datatype.Token, Required: true},
			{Kind: model.KindFlag, Name: "published", Type: datatype.Date},
		},
		Model: []*model.Instance{
			{Kind: model.KindScalarField, Name: "title", Type: datatype.MarkupLine, MinOccurs: 1},
		},
	}
	return model.MustCompile(&model.Definition{
		Name:         "library",
		RootName:     xml.Name{Space: LibraryNS, Local: "library"},
		RootJSONName: "library",
		Flags: []*model.Instance{
			{Kind: model.KindFlag, Name: "uuid", Type: datatype.UUID},
			{Kind: model.KindFlag, Name: "version", Type: datatype.String, Default: "1.0"},
		},
		Model: []*model.Instance{
			{Kind: model.KindScalarField, Name: "title", Type: datatype.MarkupLine, MinOccurs: 1},
			{Kind: model.KindScalarField, Name: "remarks", Type: datatype.MarkupMultiline, Unwrapped: true},
			{
				Kind: model.KindComplexField, Name: "props", XMLName: xml.Name{Local: "prop"},
				MaxOccurs: model.Unbounded, Definition: prop,
				GroupAs: model.GroupAs{Name: "props", InJSON: model.JSONKeyed},
			},
			{Kind: model.KindComplexField, Name: "measure", Definition: measure},
			{
				Kind: model.KindScalarField, Name: "tags", XMLName: xml.Name{Local: "tag"},
				MaxOccurs: model.Unbounded, Type: datatype.Token,
				GroupAs: model.GroupAs{Name: "tags", InJSON: model.JSONSingletonOrList},
			},
			{
				Kind: model.KindComplexField, Name: "links", XMLName: xml.Name{Local: "link"},
				MaxOccurs: model.Unbounded, Definition: link,
				GroupAs: model.GroupAs{Name: "links"},
			},
			{
				Kind: model.KindChoiceGroup, Name: "items", MaxOccurs: model.Unbounded,
				GroupAs: model.GroupAs{Name: "items", InXML: model.XMLGrouped},
				Alternatives: []*model.Instance{
					{Kind: model.KindAssembly, Name: "book", Definition: book},
					{Kind: model.KindAssembly, Name: "article", Definition: article},
				},
			},
			{Kind: model.KindScalarField, Name: "count", Type: datatype.NonNegativeInteger, Default: "0"},
			{
				Kind: model.KindScalarField, Name: "notes", XMLName: xml.Name{Local: "note"},
				MaxOccurs: model.Unbounded, Type: datatype.String,
				GroupAs: model.GroupAs{Name: "notes", InXML: model.XMLGrouped},
			},
		},
	})
}

// LibraryXML populates every Library instance except notes.
const LibraryXML = `<?xml version="1.0" encoding="UTF-8"?>
<library xmlns="urn:example:library" uuid="123e4567-e89b-12d3-a456-426614174000" version="2.1">
  <title>The <em>Big</em> Library</title>
  <p>First paragraph.</p>
  <ul><li>one</li><li>two</li></ul>
  <prop name="color">blue</prop>
  <prop name="size" class="metric">large</prop>
  <measure unit="m">12.50</measure>
  <tag>alpha</tag>
  <tag>beta</tag>
  <link href="https://example.com/" rel="home">Home <b>page</b></link>
  <items>
    <book id="b1" pages="320"><title>Go in Practice</title></book>
    <article id="a1" published="2024-03-01"><title>On Streams</title></article>
    <book id="b2"><title>Second</title></book>
  </items>
  <count>3</count>
</library>`

// Tree converts an object graph to plain maps and slices for comparison.
// Keyed maps become slices of [key, item] pairs so that order is checked.
func Tree(v any) any {
	switch t := v.(type) {
	case model.Object:
		if t == nil {
			return nil
		}
		d := t.Definition()
		out := map[string]any{"$def": d.Name}
		for _, f := range d.Flags {
			out[f.Name] = Tree(t.Get(f.Name))
		}
		if d.Value != nil {
			out[d.Value.Name] = Tree(t.Get(d.Value.Name))
		}
		for _, m := range d.Model {
			out[m.Name] = Tree(t.Get(m.Name))
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, it := range t {
			out[i] = Tree(it)
		}
		return out
	case *model.Map:
		out := []any{}
		t.Each(func(k string, it any) bool {
			out = append(out, []any{k, Tree(it)})
			return true
		})
		return out
	case datatype.TimeValue:
		s, _ := datatype.DateTime.Format(t)
		return s
	default:
		return v
	}
}
