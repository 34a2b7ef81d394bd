package datatype_test

import (
	"bytes"
	"encoding/xml"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/metacodec/datatype"
)

func TestLookup_AllRegistered(t *testing.T) {
	for _, name := range []string{
		"string", "token", "integer", "non-negative-integer", "positive-integer", "decimal",
		"boolean", "date", "date-time", "uri", "uri-reference", "uuid", "markup-line", "markup-multiline",
	} {
		a, ok := datatype.Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, name, a.Name())
	}
	_, ok := datatype.Lookup("nope")
	assert.False(t, ok)
}

func TestScalar_RoundTrip(t *testing.T) {
	cases := []struct {
		a    datatype.Adapter
		text string
	}{
		{datatype.String, " spaced text "},
		{datatype.Token, "group-1.a"},
		{datatype.Integer, "-42"},
		{datatype.NonNegativeInteger, "0"},
		{datatype.PositiveInteger, "7"},
		{datatype.Decimal, "1.50"},
		{datatype.Boolean, "true"},
		{datatype.Date, "2024-01-02"},
		{datatype.Date, "2024-01-02Z"},
		{datatype.DateTime, "2024-01-02T10:11:12Z"},
		{datatype.DateTime, "2024-01-02T10:11:12.5+09:00"},
		{datatype.DateTime, "2024-01-02T10:11:12"},
		{datatype.URI, "https://example.com/a?b=c"},
		{datatype.URIReference, "../rel#frag"},
		{datatype.UUID, "123e4567-e89b-12d3-a456-426614174000"},
	}
	for _, c := range cases {
		v, err := c.a.Parse(c.text)
		require.NoError(t, err, "%s %q", c.a.Name(), c.text)
		out, err := c.a.Format(v)
		require.NoError(t, err)
		assert.Equal(t, c.text, out, c.a.Name())
	}
}

func TestScalar_Invalid(t *testing.T) {
	cases := []struct {
		a    datatype.Adapter
		text string
	}{
		{datatype.Token, "has space"},
		{datatype.Integer, "4.2"},
		{datatype.NonNegativeInteger, "-1"},
		{datatype.PositiveInteger, "0"},
		{datatype.Decimal, "1e5"},
		{datatype.Boolean, "yes"},
		{datatype.URI, "no-scheme"},
		{datatype.UUID, "123"},
		{datatype.Date, "not a date"},
	}
	for _, c := range cases {
		_, err := c.a.Parse(c.text)
		var fe *datatype.FormatError
		require.ErrorAs(t, err, &fe, "%s %q", c.a.Name(), c.text)
		assert.Equal(t, c.a.Name(), fe.Type)
	}
}

func TestBoolean_NumericLexical(t *testing.T) {
	v, err := datatype.Boolean.Parse("1")
	require.NoError(t, err)
	assert.Equal(t, true, v)
	s, err := datatype.Boolean.Format(v)
	require.NoError(t, err)
	assert.Equal(t, "true", s)
}

func TestDate_LenientFallback(t *testing.T) {
	v, err := datatype.Date.Parse("January 2, 2024")
	require.NoError(t, err)
	tv := v.(datatype.TimeValue)
	assert.False(t, tv.Zoned)
	assert.Equal(t, time.January, tv.Month())
	s, err := datatype.Date.Format(tv)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02", s)
}

func TestInteger_BeyondInt64(t *testing.T) {
	v, err := datatype.Integer.Parse("123456789012345678901234567890")
	require.NoError(t, err)
	require.IsType(t, &big.Int{}, v)
	s, err := datatype.Integer.Format(v)
	require.NoError(t, err)
	assert.Equal(t, "123456789012345678901234567890", s)

	v, err = datatype.Integer.Parse("-99999999999999999999")
	require.NoError(t, err)
	assert.Equal(t, -1, v.(*big.Int).Sign())

	v, err = datatype.PositiveInteger.Parse("+99999999999999999999")
	require.NoError(t, err)
	s, err = datatype.PositiveInteger.Format(v)
	require.NoError(t, err)
	assert.Equal(t, "99999999999999999999", s)

	_, err = datatype.NonNegativeInteger.Parse("-99999999999999999999")
	assert.Error(t, err)

	v, err = datatype.Integer.Parse("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)
}

func TestTemporal_LenientKeepsZone(t *testing.T) {
	cases := []struct {
		name    string
		adapter datatype.Adapter
		in      string
		want    string
	}{
		{"rfc1123z date-time", datatype.DateTime, "Mon, 02 Jan 2006 15:04:05 +0700", "2006-01-02T15:04:05+07:00"},
		{"zone-less date-time", datatype.DateTime, "2006-01-02 15:04:05", "2006-01-02T15:04:05"},
		{"utc date-time", datatype.DateTime, "2006-01-02 15:04:05 UTC", "2006-01-02T15:04:05Z"},
		{"zoned midnight date", datatype.Date, "2024-03-01 00:00:00 +0900", "2024-03-01+09:00"},
		{"slashed date", datatype.Date, "2024/03/01", "2024-03-01"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := tc.adapter.Parse(tc.in)
			require.NoError(t, err)
			s, err := tc.adapter.Format(v)
			require.NoError(t, err)
			assert.Equal(t, tc.want, s)
		})
	}
}

func TestDate_RejectsTimeOfDay(t *testing.T) {
	for _, in := range []string{"2024-03-01T10:00:00+09:00", "2024-03-01 10:30"} {
		_, err := datatype.Date.Parse(in)
		var fe *datatype.FormatError
		require.ErrorAs(t, err, &fe, in)
		assert.Equal(t, "date", fe.Type)
	}
}

func TestJSONKindsAndValueKeys(t *testing.T) {
	assert.Equal(t, datatype.JSONNumber, datatype.Integer.JSONKind())
	assert.Equal(t, datatype.JSONBoolean, datatype.Boolean.JSONKind())
	assert.Equal(t, datatype.JSONString, datatype.MarkupLine.JSONKind())
	assert.Equal(t, "STRVALUE", datatype.String.DefaultJSONValueKey())
	assert.Equal(t, "PROSE", datatype.MarkupMultiline.DefaultJSONValueKey())
	assert.True(t, datatype.AllowsUnwrappedXML(datatype.MarkupMultiline))
	assert.False(t, datatype.AllowsUnwrappedXML(datatype.MarkupLine))
	assert.False(t, datatype.AllowsUnwrappedXML(datatype.String))
}

type events struct {
	dec    *xml.Decoder
	peeked xml.Token
}

func (e *events) Peek() (xml.Token, error) {
	if e.peeked == nil {
		tok, err := e.dec.Token()
		if err != nil {
			return nil, err
		}
		e.peeked = xml.CopyToken(tok)
	}
	return e.peeked, nil
}

func (e *events) Token() (xml.Token, error) {
	tok, err := e.Peek()
	e.peeked = nil
	return tok, err
}

func TestMarkupMultiline_Unwrapped(t *testing.T) {
	doc := `<part xmlns="urn:x"><title>T</title>
	  <p>One <em>b</em></p>
	  <ul><li>i</li></ul>
	  <next/></part>`
	ev := &events{dec: xml.NewDecoder(strings.NewReader(doc))}
	// consume up to </title>
	for {
		tok, err := ev.Token()
		require.NoError(t, err)
		if end, ok := tok.(xml.EndElement); ok && end.Name.Local == "title" {
			break
		}
	}
	mm := datatype.MarkupMultiline.(datatype.XMLContentAdapter)
	v, err := mm.ParseXMLUnwrapped(ev)
	require.NoError(t, err)
	assert.Equal(t, datatype.Markup("<p>One <em>b</em></p><ul><li>i</li></ul>"), v)

	next, err := ev.Peek()
	require.NoError(t, err)
	start, ok := next.(xml.StartElement)
	require.True(t, ok)
	assert.Equal(t, "next", start.Name.Local)

	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	require.NoError(t, mm.WriteXML(enc, v))
	require.NoError(t, enc.Flush())
	assert.Equal(t, "<p>One <em>b</em></p><ul><li>i</li></ul>", buf.String())
}

func TestMarkupLine_ParseFromJSONString(t *testing.T) {
	v, err := datatype.MarkupLine.Parse(`Hello <strong>world</strong> &amp; all`)
	require.NoError(t, err)
	assert.Equal(t, datatype.Markup("Hello <strong>world</strong> &amp; all"), v)

	v, err = datatype.MarkupLine.Parse(`<b>unclosed`)
	require.NoError(t, err)
	assert.Equal(t, datatype.Markup("&lt;b&gt;unclosed"), v)
}

func TestMarkupLine_StringForm(t *testing.T) {
	cases := []struct {
		name  string
		in    string
		canon datatype.Markup
		out   string
	}{
		{"bare ampersand", "Fish & Chips", "Fish &amp; Chips", "Fish & Chips"},
		{"escaped ampersand", "Fish &amp; Chips", "Fish &amp; Chips", "Fish & Chips"},
		{"literal reference", "&amp;amp; is an entity", "&amp;amp; is an entity", "&amp;amp; is an entity"},
		{"less-than in markup", "<em>a</em> &lt; b & c", "<em>a</em> &lt; b &amp; c", "<em>a</em> &lt; b & c"},
		{"not a fragment", "a < b", "a &lt; b", "a &lt; b"},
		{"html entity", "a&nbsp;b", "a\u00a0b", "a\u00a0b"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := datatype.MarkupLine.Parse(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.canon, v)
			s, err := datatype.MarkupLine.Format(v)
			require.NoError(t, err)
			assert.Equal(t, tc.out, s)
			again, err := datatype.MarkupLine.Parse(s)
			require.NoError(t, err)
			assert.Equal(t, v, again)
		})
	}
}
