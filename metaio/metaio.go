// Package metaio picks a codec by format and manages the streams a document
// is read from or written to.
package metaio

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	metacodec "github.com/reoring/metacodec"
	"github.com/reoring/metacodec/jsoncodec"
	"github.com/reoring/metacodec/model"
	"github.com/reoring/metacodec/xmlcodec"
)

// Format is a wire format.
type Format int

const (
	// Unknown asks Read to detect the format from the content.
	Unknown Format = iota
	XML
	JSON
	YAML
)

func (f Format) String() string {
	switch f {
	case XML:
		return "xml"
	case JSON:
		return "json"
	case YAML:
		return "yaml"
	default:
		return "unknown"
	}
}

// ParseFormat accepts a format name or a file extension, with or without the
// leading dot.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "xml":
		return XML, nil
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	}
	return Unknown, fmt.Errorf("unknown format %q", s)
}

// FormatOf returns the format implied by a file name, or Unknown.
func FormatOf(path string) Format {
	f, err := ParseFormat(filepath.Ext(path))
	if err != nil {
		return Unknown
	}
	return f
}

// Detect guesses the format from the first significant byte: '<' is XML,
// '{' or '[' is JSON, anything else YAML. A byte order mark is discarded.
func Detect(br *bufio.Reader) (Format, error) {
	if b, _ := br.Peek(len(bom)); bytes.Equal(b, bom) {
		br.Discard(len(bom))
	}
	for n := 1; ; n++ {
		b, err := br.Peek(n)
		if len(b) < n {
			if err == nil || err == io.EOF {
				return Unknown, metacodec.Errorf(metacodec.StructuralMismatch, metacodec.CodeParseError, "empty document")
			}
			return Unknown, metacodec.Normalize(err)
		}
		switch b[n-1] {
		case ' ', '\t', '\r', '\n':
		case '<':
			return XML, nil
		case '{', '[':
			return JSON, nil
		default:
			return YAML, nil
		}
	}
}

var bom = []byte("\xef\xbb\xbf")

// Read reads a document in format f from r. With Unknown the format is
// detected. The reader is not closed.
func Read(ctx context.Context, r io.Reader, f Format, root *model.Definition, cfg metacodec.Config) (model.Object, error) {
	if f == Unknown {
		br := bufio.NewReader(r)
		var err error
		if f, err = Detect(br); err != nil {
			return nil, err
		}
		r = br
	}
	cfg.LoggerFor(ctx).Debug("reading document", "format", f, "root", root.Name)
	switch f {
	case XML:
		return xmlcodec.Read(ctx, r, root, cfg)
	case JSON:
		return jsoncodec.Read(ctx, metacodec.JSONReader(r), root, cfg)
	case YAML:
		return jsoncodec.Read(ctx, metacodec.YAMLReader(r, cfg.OnDuplicateKey == metacodec.Fail), root, cfg)
	}
	return nil, metacodec.Errorf(metacodec.Resource, metacodec.CodeIO, "unsupported format %v", f)
}

// Write writes obj in format f to w. The writer is not closed.
func Write(ctx context.Context, w io.Writer, f Format, root *model.Definition, obj model.Object, cfg metacodec.Config) error {
	cfg.LoggerFor(ctx).Debug("writing document", "format", f, "root", root.Name)
	switch f {
	case XML:
		return xmlcodec.Write(ctx, w, root, obj, cfg)
	case JSON:
		return jsoncodec.Write(ctx, metacodec.JSONWriter(w, cfg.Indent), root, obj, cfg)
	case YAML:
		return jsoncodec.Write(ctx, metacodec.YAMLWriter(w, len(cfg.Indent)), root, obj, cfg)
	}
	return metacodec.Errorf(metacodec.Resource, metacodec.CodeIO, "unsupported format %v", f)
}

// ReadFrom reads a document from rc and closes it. A close failure after a
// read failure is attached to the read error as suppressed.
func ReadFrom(ctx context.Context, rc io.ReadCloser, f Format, root *model.Definition, cfg metacodec.Config) (obj model.Object, err error) {
	defer func() {
		metacodec.CloseWith(rc, &err)
		if err != nil {
			obj = nil
		}
	}()
	return Read(ctx, rc, f, root, cfg)
}

// WriteTo writes obj to wc and closes it, like ReadFrom.
func WriteTo(ctx context.Context, wc io.WriteCloser, f Format, root *model.Definition, obj model.Object, cfg metacodec.Config) (err error) {
	defer metacodec.CloseWith(wc, &err)
	return Write(ctx, wc, f, root, obj, cfg)
}

// ReadFile reads the document at path. The format comes from the extension
// when it is known and from the content otherwise. Relative external
// entities resolve against path unless cfg.BaseURI is set.
func ReadFile(ctx context.Context, path string, root *model.Definition, cfg metacodec.Config) (model.Object, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, metacodec.Errorf(metacodec.Resource, metacodec.CodeIO, "open %s: %v", path, err).WithCause(err)
	}
	if cfg.BaseURI == "" {
		cfg.BaseURI = path
	}
	return ReadFrom(ctx, f, FormatOf(path), root, cfg)
}

// WriteFile writes obj to path, creating or truncating it. The format comes
// from the extension.
func WriteFile(ctx context.Context, path string, root *model.Definition, obj model.Object, cfg metacodec.Config) error {
	format := FormatOf(path)
	if format == Unknown {
		return metacodec.Errorf(metacodec.Resource, metacodec.CodeIO, "cannot tell the format of %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return metacodec.Errorf(metacodec.Resource, metacodec.CodeIO, "create %s: %v", path, err).WithCause(err)
	}
	return WriteTo(ctx, f, format, root, obj, cfg)
}

// Convert reads a document in one format and writes it in another.
func Convert(ctx context.Context, r io.Reader, from Format, w io.Writer, to Format, root *model.Definition, cfg metacodec.Config) error {
	obj, err := Read(ctx, r, from, root, cfg)
	if err != nil {
		return err
	}
	cfg.LoggerFor(ctx).Debug("converting document", "from", from, "to", to)
	return Write(ctx, w, to, root, obj, cfg)
}
