// Package codec quantizes dense weight vectors to an integer budget and
// renders them as sparse "token|weight" strings.
package codec

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrInvalidVector signals a negative or non-finite weight, or a budget below one.
	ErrInvalidVector = errors.New("codec: invalid vector")
	// ErrTokenMap signals a token map that cannot label every non-zero weight.
	ErrTokenMap = errors.New("codec: incomplete token map")
	// ErrMalformed signals an encoded string that does not parse as token|weight pairs.
	ErrMalformed = errors.New("codec: malformed encoding")
)

const (
	pairSep  = "|"
	tokenSep = " "
)

// Pair is a single non-zero entry of an encoded vector.
type Pair struct {
	Token  string
	Weight int
}

// Vector is an ordered sparse vector.
type Vector []Pair

// Quantize rescales v to non-negative integers summing to budget using
// largest-remainder rounding. Ties go to the lower index. A vector with no
// mass quantizes to all zeros.
func Quantize(v []float64, budget int) ([]int, error) {
	if budget < 1 {
		return nil, fmt.Errorf("%w: budget %d", ErrInvalidVector, budget)
	}

	var total float64
	for i, w := range v {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("%w: weight %v at index %d", ErrInvalidVector, w, i)
		}
		total += w
	}

	out := make([]int, len(v))
	if total == 0 {
		return out, nil
	}

	type remainder struct {
		idx  int
		frac float64
	}
	rems := make([]remainder, 0, len(v))
	assigned := 0
	for i, w := range v {
		if w == 0 {
			continue
		}
		exact := w / total * float64(budget)
		floor := math.Floor(exact)
		out[i] = int(floor)
		assigned += out[i]
		rems = append(rems, remainder{idx: i, frac: exact - floor})
	}

	sort.SliceStable(rems, func(a, b int) bool {
		return rems[a].frac > rems[b].frac
	})
	for i := 0; assigned < budget && len(rems) > 0; i++ {
		out[rems[i%len(rems)].idx]++
		assigned++
	}
	return out, nil
}

// Encode renders the non-zero weights as "token|weight" pairs in index order.
// tokens must label every index that carries weight.
func Encode(weights []int, tokens func(idx int) (string, bool)) (string, error) {
	vec, err := FromWeights(weights, tokens)
	if err != nil {
		return "", err
	}
	return vec.String(), nil
}

// FromWeights builds the typed sparse vector for weights.
func FromWeights(weights []int, tokens func(idx int) (string, bool)) (Vector, error) {
	vec := make(Vector, 0, len(weights))
	for i, w := range weights {
		if w == 0 {
			continue
		}
		if w < 0 {
			return nil, fmt.Errorf("%w: weight %d at index %d", ErrInvalidVector, w, i)
		}
		tok, ok := tokens(i)
		if !ok || !validToken(tok) {
			return nil, fmt.Errorf("%w: no usable token for index %d", ErrTokenMap, i)
		}
		vec = append(vec, Pair{Token: tok, Weight: w})
	}
	return vec, nil
}

// TopicTokens labels index i as "t<i>".
func TopicTokens(idx int) (string, bool) {
	return "t" + strconv.Itoa(idx), true
}

// SliceTokens labels indexes with the entries of words.
func SliceTokens(words []string) func(int) (string, bool) {
	return func(idx int) (string, bool) {
		if idx < 0 || idx >= len(words) {
			return "", false
		}
		return words[idx], true
	}
}

// Parse decodes an encoded vector. The empty string is the empty vector.
func Parse(s string) (Vector, error) {
	fields := strings.Fields(s)
	vec := make(Vector, 0, len(fields))
	for _, f := range fields {
		tok, raw, ok := strings.Cut(f, pairSep)
		if !ok || tok == "" {
			return nil, fmt.Errorf("%w: %q", ErrMalformed, f)
		}
		w, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: weight in %q", ErrMalformed, f)
		}
		vec = append(vec, Pair{Token: tok, Weight: w})
	}
	return vec, nil
}

// String renders the vector in wire form.
func (v Vector) String() string {
	var b strings.Builder
	for i, p := range v {
		if i > 0 {
			b.WriteString(tokenSep)
		}
		b.WriteString(p.Token)
		b.WriteString(pairSep)
		b.WriteString(strconv.Itoa(p.Weight))
	}
	return b.String()
}

// Words joins the tokens with ", ".
func (v Vector) Words() string {
	words := make([]string, len(v))
	for i, p := range v {
		words[i] = p.Token
	}
	return strings.Join(words, ", ")
}

// Weight returns the weight of token, or false if it is absent.
func (v Vector) Weight(token string) (int, bool) {
	for _, p := range v {
		if p.Token == token {
			return p.Weight, true
		}
	}
	return 0, false
}

// Sum adds up all weights.
func (v Vector) Sum() int {
	s := 0
	for _, p := range v {
		s += p.Weight
	}
	return s
}

func validToken(tok string) bool {
	return tok != "" && !strings.ContainsAny(tok, pairSep+" \t\n\r")
}
