package xmlcodec

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"

	metacodec "github.com/reoring/metacodec"
)

// events is a peekable view over an xml.Decoder. It also owns the DTD
// entity policy: declared entities are registered on the decoder as they are
// seen, expanded only when resolution is allowed.
type events struct {
	ctx    context.Context
	cfg    metacodec.Config
	dec    *xml.Decoder
	peeked xml.Token
	err    error
}

func newEvents(ctx context.Context, r io.Reader, cfg metacodec.Config) *events {
	dec := xml.NewDecoder(r)
	dec.Strict = true
	dec.Entity = map[string]string{}
	return &events{ctx: ctx, cfg: cfg, dec: dec}
}

func (e *events) Peek() (xml.Token, error) {
	if e.peeked != nil {
		return e.peeked, nil
	}
	if e.err != nil {
		return nil, e.err
	}
	tok, err := e.dec.Token()
	if err != nil {
		e.err = err
		return nil, err
	}
	tok = xml.CopyToken(tok)
	if d, ok := tok.(xml.Directive); ok {
		if err := e.declareEntities(d); err != nil {
			e.err = err
			return nil, err
		}
	}
	e.peeked = tok
	return tok, nil
}

func (e *events) Token() (xml.Token, error) {
	tok, err := e.Peek()
	e.peeked = nil
	return tok, err
}

// next returns the next token that is not ignorable: whitespace, comments,
// processing instructions and directives are consumed. The returned token is
// left in place.
func (e *events) next() (xml.Token, error) {
	for {
		tok, err := e.Peek()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return tok, nil
			}
		case xml.Comment, xml.ProcInst, xml.Directive:
		default:
			return tok, nil
		}
		e.peeked = nil
	}
}

// skip consumes the element whose start is the next token.
func (e *events) skip() error {
	if _, err := e.Token(); err != nil {
		return err
	}
	return e.dec.Skip()
}

func (e *events) location() string {
	line, col := e.dec.InputPos()
	return fmt.Sprintf("line %d, column %d", line, col)
}

var entityDecl = regexp.MustCompile(`<!ENTITY\s+(%\s+)?([^\s%]+)\s+(?:SYSTEM\s+("[^"]*"|'[^']*')|PUBLIC\s+("[^"]*"|'[^']*')\s+("[^"]*"|'[^']*')|("[^"]*"|'[^']*'))`)

// declareEntities registers the general entities declared in a DOCTYPE
// internal subset.
func (e *events) declareEntities(d xml.Directive) error {
	if !bytes.HasPrefix(bytes.TrimSpace(d), []byte("DOCTYPE")) {
		return nil
	}
	logger := log.FromContext(e.ctx)
	for _, m := range entityDecl.FindAllStringSubmatch(string(d), -1) {
		if m[1] != "" {
			continue
		}
		name := m[2]
		systemID := unquote(m[3])
		if systemID == "" {
			systemID = unquote(m[5])
		}
		if !e.cfg.AllowEntityResolution {
			logger.Debug("entity not expanded", "entity", name, "system", systemID)
			e.dec.Entity[name] = ""
			continue
		}
		if systemID == "" {
			e.dec.Entity[name] = unquote(m[6])
			continue
		}
		text, err := e.fetch(systemID)
		if err != nil {
			return err
		}
		e.dec.Entity[name] = text
	}
	return nil
}

func (e *events) fetch(systemID string) (string, error) {
	rc, err := e.cfg.ResolveEntity(e.ctx, systemID)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	var b strings.Builder
	if _, err := io.Copy(&b, rc); err != nil {
		return "", metacodec.Errorf(metacodec.Resource, metacodec.CodeIO, "read entity %s: %v", systemID, err).WithCause(err)
	}
	return b.String(), nil
}

func unquote(s string) string {
	if len(s) >= 2 {
		return s[1 : len(s)-1]
	}
	return s
}
