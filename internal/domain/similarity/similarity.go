// Package similarity holds the per-document ranked neighbor lists stored in
// sim_<model> fields and the windowed pair reconstruction run at query time.
package similarity

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrMalformed signals a neighbor string that does not parse as id|score pairs.
	ErrMalformed = errors.New("similarity: malformed neighbor list")
	// ErrPackedScore signals a packed window score that does not decode to a.b.
	ErrPackedScore = errors.New("similarity: malformed packed score")
)

// Neighbor is one ranked edge of a document's similarity list.
type Neighbor struct {
	ID    int64
	Score float64
}

// Neighbors is a document's similarity list. Stored lists are in descending
// score order; windowed retrieval relies on it and never re-sorts.
type Neighbors []Neighbor

// Normalize drops the self edge and every score at or below floor, then
// orders the list by descending score. Equal scores keep their input order.
func (n Neighbors) Normalize(self int64, floor float64) Neighbors {
	out := make(Neighbors, 0, len(n))
	for _, nb := range n {
		if nb.ID == self || nb.Score <= floor {
			continue
		}
		out = append(out, nb)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// String renders the list as space-separated id|score tokens, in list order.
func (n Neighbors) String() string {
	var b strings.Builder
	for i, nb := range n {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.FormatInt(nb.ID, 10))
		b.WriteByte('|')
		b.WriteString(strconv.FormatFloat(nb.Score, 'g', -1, 64))
	}
	return b.String()
}

// ParseNeighbors decodes a stored similarity string.
func ParseNeighbors(s string) (Neighbors, error) {
	fields := strings.Fields(s)
	out := make(Neighbors, 0, len(fields))
	for _, f := range fields {
		nb, err := parseToken(f)
		if err != nil {
			return nil, err
		}
		out = append(out, nb)
	}
	return out, nil
}

func parseToken(tok string) (Neighbor, error) {
	rawID, rawScore, ok := strings.Cut(tok, "|")
	if !ok {
		return Neighbor{}, fmt.Errorf("%w: %q", ErrMalformed, tok)
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return Neighbor{}, fmt.Errorf("%w: id in %q", ErrMalformed, tok)
	}
	score, err := strconv.ParseFloat(rawScore, 64)
	if err != nil {
		return Neighbor{}, fmt.Errorf("%w: score in %q", ErrMalformed, tok)
	}
	return Neighbor{ID: id, Score: score}, nil
}

// Window is a half-open token index range [Start, End).
type Window struct {
	Start int
	End   int
}

// DecodeWindow decodes the packed score the engine reports per matching
// document. The score is read as a number and rendered in its shortest
// decimal form a.b; the window is [a, b+1). Trailing fractional zeros carry
// no meaning: "2.10" and "2.1" select the same tokens.
func DecodeWindow(packed string) (Window, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(packed), 64)
	if err != nil || f < 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return Window{}, fmt.Errorf("%w: %q", ErrPackedScore, packed)
	}
	// Scores outside this range only have an exponent rendering.
	if (f > 0 && f < 1e-4) || f >= 1e16 {
		return Window{}, fmt.Errorf("%w: %q", ErrPackedScore, packed)
	}
	text := strconv.FormatFloat(f, 'f', -1, 64)
	intPart, fracPart, _ := strings.Cut(text, ".")
	lower, err := strconv.Atoi(intPart)
	if err != nil {
		return Window{}, fmt.Errorf("%w: %q", ErrPackedScore, packed)
	}
	upper := 0
	if fracPart != "" {
		upper, err = strconv.Atoi(fracPart)
		if err != nil {
			return Window{}, fmt.Errorf("%w: %q", ErrPackedScore, packed)
		}
	}
	return Window{Start: lower, End: upper + 1}, nil
}

// IsZeroScore reports whether packed encodes 0, i.e. no neighbor matched.
func IsZeroScore(packed string) bool {
	f, err := strconv.ParseFloat(strings.TrimSpace(packed), 64)
	return err == nil && f == 0
}

// ExtractWindow returns the whitespace-separated tokens of s in [start, end),
// clamped to the number of tokens.
func ExtractWindow(s string, start, end int) string {
	tokens := strings.Fields(s)
	if start < 0 {
		start = 0
	}
	if end > len(tokens) {
		end = len(tokens)
	}
	if start >= end {
		return ""
	}
	return strings.Join(tokens[start:end], " ")
}

// Row is one document returned by a similarity-pair query.
type Row struct {
	ID           int64
	Similarities string
	PackedScore  string
}

// Pair is a reconstructed similarity edge between two matching documents.
type Pair struct {
	ID1   int64   `json:"id_1"`
	ID2   int64   `json:"id_2"`
	Score float64 `json:"score"`
}

// Reconstruct turns the rows of one similarity-pair query into ranked pairs.
// Rows with a zero packed score are dropped first; every remaining row
// contributes the neighbors inside its decoded window that are themselves
// remaining rows. Self pairs are dropped, the result is ordered by descending
// score and truncated to limit.
func Reconstruct(rows []Row, limit int) ([]Pair, error) {
	if limit <= 0 {
		return []Pair{}, nil
	}

	kept := make([]Row, 0, len(rows))
	matched := make(map[int64]struct{}, len(rows))
	for _, r := range rows {
		if IsZeroScore(r.PackedScore) {
			continue
		}
		kept = append(kept, r)
		matched[r.ID] = struct{}{}
	}

	pairs := make([]Pair, 0)
	for _, r := range kept {
		w, err := DecodeWindow(r.PackedScore)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", r.ID, err)
		}
		neighbors, err := ParseNeighbors(ExtractWindow(r.Similarities, w.Start, w.End))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", r.ID, err)
		}
		for _, nb := range neighbors {
			if nb.ID == r.ID {
				continue
			}
			if _, ok := matched[nb.ID]; !ok {
				continue
			}
			pairs = append(pairs, Pair{ID1: r.ID, ID2: nb.ID, Score: nb.Score})
		}
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].Score > pairs[j].Score
	})
	if len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs, nil
}
