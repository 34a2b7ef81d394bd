// Package middleware decodes HTTP request bodies into bound objects and
// encodes responses in the format the client asks for.
package middleware

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	j "github.com/goccy/go-json"

	metacodec "github.com/reoring/metacodec"
	"github.com/reoring/metacodec/metaio"
	"github.com/reoring/metacodec/model"
)

type ctxKeyObject struct{}

// ContextWithObject attaches a decoded object to the context.
func ContextWithObject(ctx context.Context, obj model.Object) context.Context {
	return context.WithValue(ctx, ctxKeyObject{}, obj)
}

// ObjectFromContext retrieves the object stored by Decode.
func ObjectFromContext(ctx context.Context) (model.Object, bool) {
	obj, ok := ctx.Value(ctxKeyObject{}).(model.Object)
	return obj, ok
}

// DefaultConfig returns a recommended default for HTTP boundaries:
// duplicate keys are errors and nesting is bounded.
func DefaultConfig() metacodec.Config {
	cfg := metacodec.DefaultConfig()
	cfg.OnDuplicateKey = metacodec.Fail
	cfg.MaxDepth = 64
	return cfg
}

// FormatOf maps a media type to a wire format. An empty content type asks
// for detection.
func FormatOf(contentType string) (metaio.Format, bool) {
	if strings.TrimSpace(contentType) == "" {
		return metaio.Unknown, true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return metaio.Unknown, false
	}
	switch {
	case mt == "application/xml" || mt == "text/xml" || strings.HasSuffix(mt, "+xml"):
		return metaio.XML, true
	case mt == "application/json" || strings.HasSuffix(mt, "+json"):
		return metaio.JSON, true
	case mt == "application/yaml" || mt == "application/x-yaml" || mt == "text/yaml" || strings.HasSuffix(mt, "+yaml"):
		return metaio.YAML, true
	}
	return metaio.Unknown, false
}

// ContentType is the media type written for f.
func ContentType(f metaio.Format) string {
	switch f {
	case metaio.XML:
		return "application/xml"
	case metaio.YAML:
		return "application/yaml"
	default:
		return "application/json"
	}
}

// Decode reads the request body as a document rooted at root and stores the
// object in the request context. Failures are answered with an error
// payload and the next handler is not called.
func Decode(root *model.Definition, cfg metacodec.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			f, ok := FormatOf(r.Header.Get("Content-Type"))
			if !ok {
				writeError(w, r, http.StatusUnsupportedMediaType,
					metacodec.Errorf(metacodec.Resource, metacodec.CodeIO, "unsupported content type %q", r.Header.Get("Content-Type")))
				return
			}
			obj, err := metaio.ReadFrom(r.Context(), r.Body, f, root, cfg)
			if err != nil {
				cfg.LoggerFor(r.Context()).Debug("rejecting request body", "path", r.URL.Path, "err", err)
				writeError(w, r, Status(err), err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithObject(r.Context(), obj)))
		})
	}
}

// Negotiate picks the response format from the Accept header, JSON when
// nothing acceptable is listed.
func Negotiate(r *http.Request) metaio.Format {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		if f, ok := FormatOf(part); ok && f != metaio.Unknown {
			return f
		}
	}
	return metaio.JSON
}

// Respond writes obj with the given status in the negotiated format.
func Respond(w http.ResponseWriter, r *http.Request, status int, root *model.Definition, obj model.Object, cfg metacodec.Config) error {
	f := Negotiate(r)
	w.Header().Set("Content-Type", ContentType(f))
	w.WriteHeader(status)
	return metaio.Write(r.Context(), w, f, root, obj, cfg)
}

// Status maps a codec failure to an HTTP status.
func Status(err error) int {
	e, ok := metacodec.AsError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case metacodec.Resource:
		return http.StatusBadRequest
	default:
		return http.StatusUnprocessableEntity
	}
}

// ErrorPayload shapes a codec failure for a JSON response.
func ErrorPayload(err error) map[string]any {
	var e *metacodec.Error
	if !errors.As(err, &e) {
		return map[string]any{"error": map[string]any{"message": err.Error()}}
	}
	body := map[string]any{
		"kind":    e.Kind.String(),
		"code":    e.Code,
		"message": e.Message,
	}
	if e.Path != "" {
		body["path"] = e.Path
	}
	if e.Location != "" {
		body["location"] = e.Location
	}
	return map[string]any{"error": body}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := j.NewEncoder(w).Encode(ErrorPayload(err)); err != nil {
		log.FromContext(r.Context()).Warn("writing error response", "err", err)
	}
}
