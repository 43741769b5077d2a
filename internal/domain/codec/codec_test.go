package codec

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func sum(v []int) int {
	s := 0
	for _, x := range v {
		s += x
	}
	return s
}

func TestQuantize_Proportional(t *testing.T) {
	got, err := Quantize([]float64{0.5, 0.3, 0.2}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []int{5, 3, 2}) {
		t.Errorf("expected [5 3 2], got %v", got)
	}
}

func TestQuantize_SumInvariant(t *testing.T) {
	tests := []struct {
		name   string
		v      []float64
		budget int
	}{
		{"thirds", []float64{1, 1, 1}, 10},
		{"skewed", []float64{0.97, 0.01, 0.01, 0.01}, 1000},
		{"many small", []float64{0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1}, 5},
		{"unnormalized", []float64{3, 7, 11, 0, 2}, 1000},
		{"budget one", []float64{0.2, 0.8}, 1},
		{"with zeros", []float64{0, 0.4, 0, 0.6}, 7},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Quantize(tc.v, tc.budget)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s := sum(got); s != tc.budget {
				t.Errorf("expected sum=%d, got %d (%v)", tc.budget, s, got)
			}
			for i, w := range tc.v {
				if w == 0 && got[i] != 0 {
					t.Errorf("index %d: zero weight quantized to %d", i, got[i])
				}
				if got[i] < 0 {
					t.Errorf("index %d: negative result %d", i, got[i])
				}
			}
		})
	}
}

func TestQuantize_PreservesOrdering(t *testing.T) {
	got, err := Quantize([]float64{0.05, 0.6, 0.35}, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !(got[1] >= got[2] && got[2] >= got[0]) {
		t.Errorf("ordering not preserved: %v", got)
	}
}

func TestQuantize_TiesGoToLowerIndex(t *testing.T) {
	got, err := Quantize([]float64{1, 1, 1}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []int{1, 1, 0}) {
		t.Errorf("expected [1 1 0], got %v", got)
	}
}

func TestQuantize_NoMass(t *testing.T) {
	got, err := Quantize([]float64{0, 0, 0}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum(got) != 0 {
		t.Errorf("expected all zeros, got %v", got)
	}
}

func TestQuantize_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		v      []float64
		budget int
	}{
		{"negative", []float64{0.5, -0.1}, 10},
		{"nan", []float64{math.NaN()}, 10},
		{"inf", []float64{math.Inf(1)}, 10},
		{"zero budget", []float64{1}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Quantize(tc.v, tc.budget)
			if !errors.Is(err, ErrInvalidVector) {
				t.Errorf("expected ErrInvalidVector, got %v", err)
			}
		})
	}
}

func TestEncode_TopicTokens(t *testing.T) {
	s, err := Encode([]int{5, 0, 3, 2}, TopicTokens)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != "t0|5 t2|3 t3|2" {
		t.Errorf("unexpected encoding: %q", s)
	}
}

func TestEncode_MissingTokenFailsClosed(t *testing.T) {
	_, err := Encode([]int{1, 2, 3}, SliceTokens([]string{"alpha", "beta"}))
	if !errors.Is(err, ErrTokenMap) {
		t.Errorf("expected ErrTokenMap, got %v", err)
	}
}

func TestEncode_ZeroWeightNeedsNoToken(t *testing.T) {
	s, err := Encode([]int{4, 0}, SliceTokens([]string{"alpha"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != "alpha|4" {
		t.Errorf("unexpected encoding: %q", s)
	}
}

func TestEncode_RejectsSeparatorsInTokens(t *testing.T) {
	for _, tok := range []string{"a|b", "two words", ""} {
		_, err := Encode([]int{1}, SliceTokens([]string{tok}))
		if !errors.Is(err, ErrTokenMap) {
			t.Errorf("token %q: expected ErrTokenMap, got %v", tok, err)
		}
	}
}

func TestParse_RoundTrip(t *testing.T) {
	words := []string{"energy", "grid", "solar", "wind"}
	weights, err := Quantize([]float64{0.4, 0, 0.35, 0.25}, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, err := Encode(weights, SliceTokens(words))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	vec, err := Parse(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Vector{{"energy", weights[0]}, {"solar", weights[2]}, {"wind", weights[3]}}
	if !reflect.DeepEqual(vec, want) {
		t.Errorf("expected %v, got %v", want, vec)
	}
	if vec.Sum() != 1000 {
		t.Errorf("expected sum=1000, got %d", vec.Sum())
	}
	if vec.String() != s {
		t.Errorf("expected %q, got %q", s, vec.String())
	}
}

func TestParse_Empty(t *testing.T) {
	vec, err := Parse("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 0 {
		t.Errorf("expected empty vector, got %v", vec)
	}
}

func TestParse_Malformed(t *testing.T) {
	for _, s := range []string{"energy", "energy|x", "|3"} {
		if _, err := Parse(s); !errors.Is(err, ErrMalformed) {
			t.Errorf("%q: expected ErrMalformed, got %v", s, err)
		}
	}
}

func TestVector_WordsAndWeight(t *testing.T) {
	vec := Vector{{"energy", 600}, {"grid", 400}}
	if got := vec.Words(); got != "energy, grid" {
		t.Errorf("expected %q, got %q", "energy, grid", got)
	}
	if w, ok := vec.Weight("grid"); !ok || w != 400 {
		t.Errorf("expected grid=400, got %d (%v)", w, ok)
	}
	if _, ok := vec.Weight("solar"); ok {
		t.Error("expected solar to be absent")
	}
}
