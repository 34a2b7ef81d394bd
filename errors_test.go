package metacodec_test

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	metacodec "github.com/reoring/metacodec"
	eng "github.com/reoring/metacodec/internal/engine"
)

func TestError_String(t *testing.T) {
	cause := errors.New("boom")
	cases := []struct {
		name string
		err  *metacodec.Error
		want string
	}{
		{"code only", &metacodec.Error{Code: "io_error"}, "io_error"},
		{"full", &metacodec.Error{Code: "unknown_key", Path: "/a", Location: "line 1", Message: "unknown property x"}, "unknown_key at /a (line 1): unknown property x"},
		{"cause", &metacodec.Error{Code: "io_error", Message: "close failed", Cause: cause}, "io_error: close failed: boom"},
		{"cause equals message", &metacodec.Error{Code: "io_error", Message: "boom", Cause: cause}, "io_error: boom"},
		{"suppressed", &metacodec.Error{Code: "parse_error", Suppressed: []error{cause}}, "parse_error (1 suppressed)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.Error())
		})
	}
}

func TestError_Constructors(t *testing.T) {
	e := metacodec.NewError(metacodec.StructuralMismatch, metacodec.CodeParseError, "")
	assert.Equal(t, "parse error", e.Message)

	e = metacodec.NewIssue(metacodec.UnknownToken, metacodec.CodeUnknownKey, map[string]string{"name": "bogus"})
	assert.Equal(t, "unknown property bogus", e.Message)
	assert.Equal(t, metacodec.UnknownToken, e.Kind)

	e = metacodec.Errorf(metacodec.LexicalType, metacodec.CodeInvalidFormat, "bad %d", 7).At("/x", "offset 3").At("/y", "offset 4")
	assert.Equal(t, "/x", e.Path, "At keeps the first path")
	assert.Equal(t, "offset 3", e.Location)
	assert.Equal(t, "lexical type error", e.Kind.String())
}

func TestAsError(t *testing.T) {
	inner := metacodec.NewError(metacodec.Resource, metacodec.CodeIO, "x")
	got, ok := metacodec.AsError(fmt.Errorf("wrapped: %w", inner))
	require.True(t, ok)
	assert.Same(t, inner, got)

	_, ok = metacodec.AsError(nil)
	assert.False(t, ok)
	_, ok = metacodec.AsError(io.EOF)
	assert.False(t, ok)
}

func TestNormalize(t *testing.T) {
	require.NoError(t, metacodec.Normalize(nil))

	own := metacodec.NewError(metacodec.UnknownToken, metacodec.CodeUnknownElement, "x")
	assert.Same(t, own, metacodec.Normalize(own))

	other := errors.New("disk on fire")
	cases := []struct {
		name string
		in   error
		kind metacodec.ErrorKind
		code string
		path string
		loc  string
	}{
		{"issue", eng.IssueError{SimpleIssue: eng.SimpleIssue{Code: "duplicate_key", Path: "/a", Message: "dup"}}, metacodec.StructuralMismatch, metacodec.CodeDuplicateKey, "/a", ""},
		{"truncated", eng.IssueError{SimpleIssue: eng.SimpleIssue{Code: "truncated", Message: "max bytes exceeded"}}, metacodec.Resource, metacodec.CodeTruncated, "", ""},
		{"xml syntax", &xml.SyntaxError{Msg: "unexpected EOF", Line: 3}, metacodec.StructuralMismatch, metacodec.CodeParseError, "", "line 3"},
		{"eof", io.ErrUnexpectedEOF, metacodec.StructuralMismatch, metacodec.CodeParseError, "", ""},
		{"other", other, metacodec.Resource, metacodec.CodeIO, "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, ok := metacodec.AsError(metacodec.Normalize(tc.in))
			require.True(t, ok)
			assert.Equal(t, tc.kind, e.Kind)
			assert.Equal(t, tc.code, e.Code)
			assert.Equal(t, tc.path, e.Path)
			assert.Equal(t, tc.loc, e.Location)
			assert.ErrorIs(t, e, tc.in)
		})
	}
}

type closer struct {
	err    error
	closed bool
}

func (c *closer) Close() error {
	c.closed = true
	return c.err
}

func TestCloseWith(t *testing.T) {
	closeErr := errors.New("close failed")

	t.Run("nil closer", func(t *testing.T) {
		var err error
		metacodec.CloseWith(nil, &err)
		assert.NoError(t, err)
	})

	t.Run("clean close", func(t *testing.T) {
		c := &closer{}
		var err error
		metacodec.CloseWith(c, &err)
		assert.True(t, c.closed)
		assert.NoError(t, err)
	})

	t.Run("close failure alone", func(t *testing.T) {
		var err error
		metacodec.CloseWith(&closer{err: closeErr}, &err)
		e, ok := metacodec.AsError(err)
		require.True(t, ok)
		assert.Equal(t, metacodec.Resource, e.Kind)
		assert.ErrorIs(t, err, closeErr)
		assert.Empty(t, e.Suppressed)
	})

	t.Run("suppressed behind primary", func(t *testing.T) {
		primary := metacodec.NewError(metacodec.UnknownToken, metacodec.CodeUnknownElement, "x")
		var err error = primary
		metacodec.CloseWith(&closer{err: closeErr}, &err)
		assert.Same(t, primary, err)
		assert.Equal(t, []error{closeErr}, primary.Suppressed)
		assert.NotErrorIs(t, err, closeErr)
	})

	t.Run("foreign primary is normalized", func(t *testing.T) {
		var err error = io.ErrUnexpectedEOF
		metacodec.CloseWith(&closer{err: closeErr}, &err)
		e, ok := metacodec.AsError(err)
		require.True(t, ok)
		assert.Equal(t, metacodec.CodeParseError, e.Code)
		assert.Equal(t, []error{closeErr}, e.Suppressed)
	})
}
