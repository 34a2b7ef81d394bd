package datatype

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"regexp"
	"strings"
)

var (
	MarkupLine      = register(markupAdapter{name: "markup-line", valueKey: "RICHTEXT"})
	MarkupMultiline = register(markupAdapter{name: "markup-multiline", valueKey: "PROSE", multiline: true})
)

// Markup is a canonical XHTML fragment. Element names carry no namespace
// and namespace declarations are dropped.
type Markup string

func (m Markup) String() string { return string(m) }

var blockElements = map[string]bool{
	"p": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ul": true, "ol": true, "pre": true, "hr": true, "blockquote": true, "table": true, "img": true,
}

type markupAdapter struct {
	name      string
	valueKey  string
	multiline bool
}

func (a markupAdapter) Name() string                { return a.name }
func (a markupAdapter) JSONKind() JSONKind          { return JSONString }
func (a markupAdapter) DefaultJSONValueKey() string { return a.valueKey }
func (a markupAdapter) AllowsUnwrappedXML() bool    { return a.multiline }

func (a markupAdapter) CanHandleQName(name xml.Name) bool {
	return a.multiline && blockElements[name.Local]
}

// Parse accepts the string form carried by JSON and canonicalizes it. An
// '&' that does not start a reference is literal text, and HTML entities
// are resolved. A string that is not a well-formed fragment is taken as
// plain text.
func (a markupAdapter) Parse(text string) (any, error) {
	dec := xml.NewDecoder(strings.NewReader("<m>" + escapeBareAmpersands(text) + "</m>"))
	dec.Entity = xml.HTMLEntity
	ev := &fragmentEvents{dec: dec}
	if _, err := ev.Token(); err != nil {
		return nil, formatErr(a, text, err)
	}
	if v, err := a.ParseXMLContent(ev); err == nil {
		if _, err := ev.Token(); err == nil {
			return v, nil
		}
	}
	var buf bytes.Buffer
	if err := xml.EscapeText(&buf, []byte(text)); err != nil {
		return nil, formatErr(a, text, err)
	}
	return Markup(buf.String()), nil
}

func escapeBareAmpersands(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	var out strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '&' && !referenceAt(s[i+1:]) {
			out.WriteString("&amp;")
			continue
		}
		out.WriteByte(s[i])
	}
	return out.String()
}

// Format returns the string form: the canonical fragment with character
// data unescaped except for '<' and for '&' that would read as a reference.
func (a markupAdapter) Format(v any) (string, error) {
	m, err := a.canonical(v)
	if err != nil {
		return "", err
	}
	var out strings.Builder
	dec := xml.NewDecoder(strings.NewReader("<m>" + string(m) + "</m>"))
	depth := 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return out.String(), nil
		}
		if err != nil {
			return "", formatErr(a, string(m), err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if depth++; depth > 1 {
				writeStart(&out, t)
			}
		case xml.EndElement:
			if depth--; depth > 0 {
				out.WriteString("</" + t.Name.Local + ">")
			}
		case xml.CharData:
			writeText(&out, string(t))
		}
	}
}

func (a markupAdapter) canonical(v any) (Markup, error) {
	switch m := v.(type) {
	case Markup:
		return m, nil
	case string:
		pv, err := a.Parse(m)
		if err != nil {
			return "", err
		}
		return pv.(Markup), nil
	}
	return "", typeErr(a, v)
}

func writeStart(out *strings.Builder, t xml.StartElement) {
	out.WriteString("<" + t.Name.Local)
	for _, at := range t.Attr {
		var buf bytes.Buffer
		xml.EscapeText(&buf, []byte(at.Value))
		out.WriteString(" " + at.Name.Local + `="` + buf.String() + `"`)
	}
	out.WriteString(">")
}

func writeText(out *strings.Builder, s string) {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '<':
			out.WriteString("&lt;")
		case c == '&' && referenceAt(s[i+1:]):
			out.WriteString("&amp;")
		default:
			out.WriteByte(c)
		}
	}
}

var reference = regexp.MustCompile(`^(#[0-9]+|#x[0-9a-fA-F]+|[A-Za-z_:][A-Za-z0-9._:-]*);`)

// referenceAt reports whether s, following an '&', reads as a character or
// entity reference.
func referenceAt(s string) bool { return reference.MatchString(s) }

func (a markupAdapter) ParseXMLContent(ev XMLEvents) (any, error) {
	c := newCanonicalizer()
	for {
		tok, err := ev.Peek()
		if err != nil {
			return nil, err
		}
		if _, end := tok.(xml.EndElement); end && c.depth == 0 {
			break
		}
		if _, err := ev.Token(); err != nil {
			return nil, err
		}
		if cd, ok := tok.(xml.CharData); ok && c.depth == 0 && a.multiline && isSpace(cd) {
			continue
		}
		if err := c.add(tok); err != nil {
			return nil, err
		}
	}
	return c.value()
}

func (a markupAdapter) ParseXMLUnwrapped(ev XMLEvents) (any, error) {
	c := newCanonicalizer()
loop:
	for {
		tok, err := ev.Peek()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.CharData:
			if !isSpace(t) {
				break loop
			}
		case xml.Comment, xml.ProcInst:
		case xml.StartElement:
			if !a.CanHandleQName(t.Name) {
				break loop
			}
			if err := c.element(ev); err != nil {
				return nil, err
			}
			continue
		default:
			break loop
		}
		if _, err := ev.Token(); err != nil {
			return nil, err
		}
	}
	return c.value()
}

func (a markupAdapter) WriteXML(enc *xml.Encoder, v any) error {
	m, err := a.canonical(v)
	if err != nil {
		return err
	}
	s := string(m)
	dec := xml.NewDecoder(strings.NewReader("<m>" + s + "</m>"))
	depth := 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return formatErr(a, s, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 1 {
				continue
			}
			tok = plainStart(t)
		case xml.EndElement:
			depth--
			if depth == 0 {
				continue
			}
			tok = xml.EndElement{Name: xml.Name{Local: t.Name.Local}}
		case xml.CharData:
		default:
			continue
		}
		if err := enc.EncodeToken(tok); err != nil {
			return err
		}
	}
}

type canonicalizer struct {
	buf   bytes.Buffer
	enc   *xml.Encoder
	depth int
}

func newCanonicalizer() *canonicalizer {
	c := &canonicalizer{}
	c.enc = xml.NewEncoder(&c.buf)
	return c
}

func (c *canonicalizer) add(tok xml.Token) error {
	switch t := tok.(type) {
	case xml.StartElement:
		c.depth++
		return c.enc.EncodeToken(plainStart(t))
	case xml.EndElement:
		c.depth--
		return c.enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: t.Name.Local}})
	case xml.CharData:
		return c.enc.EncodeToken(t)
	}
	return nil
}

// element copies one element subtree, start tag included.
func (c *canonicalizer) element(ev XMLEvents) error {
	base := c.depth
	for {
		tok, err := ev.Token()
		if err != nil {
			return err
		}
		if err := c.add(tok); err != nil {
			return err
		}
		if c.depth == base {
			return nil
		}
	}
}

func (c *canonicalizer) value() (any, error) {
	if err := c.enc.Flush(); err != nil {
		return nil, err
	}
	return Markup(c.buf.String()), nil
}

func plainStart(t xml.StartElement) xml.StartElement {
	out := xml.StartElement{Name: xml.Name{Local: t.Name.Local}}
	for _, at := range t.Attr {
		if at.Name.Space == "xmlns" || at.Name.Local == "xmlns" {
			continue
		}
		out.Attr = append(out.Attr, xml.Attr{Name: xml.Name{Local: at.Name.Local}, Value: at.Value})
	}
	return out
}

func isSpace(cd xml.CharData) bool { return len(bytes.TrimSpace(cd)) == 0 }

type fragmentEvents struct {
	dec    *xml.Decoder
	peeked xml.Token
}

func (f *fragmentEvents) Peek() (xml.Token, error) {
	if f.peeked == nil {
		tok, err := f.dec.Token()
		if err != nil {
			return nil, err
		}
		f.peeked = xml.CopyToken(tok)
	}
	return f.peeked, nil
}

func (f *fragmentEvents) Token() (xml.Token, error) {
	tok, err := f.Peek()
	f.peeked = nil
	return tok, err
}
