package engine

import "io"

// ReplaySource serves a captured token slice and then reports io.EOF.
type ReplaySource struct {
	toks []Token
	pos  int
	loc  int64
}

// NewReplaySource returns a source over toks. loc is reported by Location.
func NewReplaySource(toks []Token, loc int64) *ReplaySource {
	return &ReplaySource{toks: toks, loc: loc}
}

func (r *ReplaySource) NextToken() (Token, error) {
	if r.pos >= len(r.toks) {
		return Token{}, io.EOF
	}
	t := r.toks[r.pos]
	r.pos++
	return t, nil
}

func (r *ReplaySource) Location() int64 { return r.loc }
