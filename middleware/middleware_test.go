package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	j "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	metacodec "github.com/reoring/metacodec"
	"github.com/reoring/metacodec/internal/fixture"
	"github.com/reoring/metacodec/metaio"
	"github.com/reoring/metacodec/middleware"
	"github.com/reoring/metacodec/model"
)

const xmlDecl = `<?xml version="1.0" encoding="UTF-8"?>`

func echo(root *model.Definition) http.Handler {
	cfg := middleware.DefaultConfig()
	return middleware.Decode(root, cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		obj, ok := middleware.ObjectFromContext(r.Context())
		if !ok {
			http.Error(w, "no object", http.StatusInternalServerError)
			return
		}
		_ = middleware.Respond(w, r, http.StatusOK, root, obj, cfg)
	}))
}

func serve(h http.Handler, body, contentType, accept string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/catalog", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestDecode_ConvertsBetweenFormats(t *testing.T) {
	h := echo(fixture.Catalog())
	cases := []struct {
		name, body, contentType, accept, want, wantType string
	}{
		{"xml to json", fixture.CatalogXML, "application/xml", "application/json", fixture.CatalogJSON, "application/json"},
		{"json to xml", fixture.CatalogJSON, "application/json; charset=utf-8", "text/html, application/xml;q=0.9", xmlDecl + fixture.CatalogXML, "application/xml"},
		{"detected, default json", fixture.CatalogXML, "", "", fixture.CatalogJSON, "application/json"},
		{"vendor suffix", fixture.CatalogJSON, "application/vnd.catalog+json", "", fixture.CatalogJSON, "application/json"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(h, tc.body, tc.contentType, tc.accept)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tc.wantType, rec.Header().Get("Content-Type"))
			assert.Equal(t, tc.want, rec.Body.String())
		})
	}
}

func TestDecode_Rejects(t *testing.T) {
	h := echo(fixture.Catalog())
	cases := []struct {
		name, body, contentType string
		status                  int
		code                    string
	}{
		{"unsupported media type", fixture.CatalogJSON, "text/plain", http.StatusUnsupportedMediaType, metacodec.CodeIO},
		{"unknown element", `<catalog><bogus/></catalog>`, "application/xml", http.StatusUnprocessableEntity, metacodec.CodeUnknownElement},
		{"duplicate key", `{"groups":[],"groups":[]}`, "application/json", http.StatusUnprocessableEntity, metacodec.CodeDuplicateKey},
		{"wrong root", `<library/>`, "application/xml", http.StatusUnprocessableEntity, metacodec.CodeWrongRoot},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(h, tc.body, tc.contentType, "")
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			var payload struct {
				Error struct {
					Code string `json:"code"`
					Kind string `json:"kind"`
				} `json:"error"`
			}
			require.NoError(t, j.Unmarshal(rec.Body.Bytes(), &payload))
			assert.Equal(t, tc.code, payload.Error.Code)
			assert.NotEmpty(t, payload.Error.Kind)
		})
	}
}

func TestFormatOf(t *testing.T) {
	cases := map[string]metaio.Format{
		"application/xml":         metaio.XML,
		"text/xml; charset=utf-8": metaio.XML,
		"application/atom+xml":    metaio.XML,
		"application/json":        metaio.JSON,
		"application/yaml":        metaio.YAML,
		"application/x-yaml":      metaio.YAML,
		"":                        metaio.Unknown,
	}
	for ct, want := range cases {
		got, ok := middleware.FormatOf(ct)
		assert.True(t, ok, ct)
		assert.Equal(t, want, got, ct)
	}
	_, ok := middleware.FormatOf("image/png")
	assert.False(t, ok)
	_, ok = middleware.FormatOf("not a / media type;;")
	assert.False(t, ok)
}

func TestErrorPayload_PlainError(t *testing.T) {
	p := middleware.ErrorPayload(assert.AnError)
	assert.Equal(t, map[string]any{"error": map[string]any{"message": assert.AnError.Error()}}, p)
	assert.Equal(t, http.StatusInternalServerError, middleware.Status(assert.AnError))
}
