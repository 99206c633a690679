package pricing

import (
	"errors"
	"math"
	"testing"
)

func TestBrent(t *testing.T) {
	tests := []struct {
		name     string
		f        func(float64) float64
		a, b     float64
		expected float64
	}{
		{"sqrt2", func(x float64) float64 { return x*x - 2 }, 0, 2, math.Sqrt2},
		{"reversed bracket", func(x float64) float64 { return x*x - 2 }, 2, 0, math.Sqrt2},
		{"cubic", func(x float64) float64 { return x*x*x - 2*x - 5 }, 2, 3, 2.0945514815423265},
		{"cosine", math.Cos, 0, 3, math.Pi / 2},
		{"root at edge", func(x float64) float64 { return x - 1 }, 1, 4, 1},
	}

	for _, test := range tests {
		root, err := Brent(test.f, test.a, test.b, 1e-12, 100)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", test.name, err)
		}
		if math.Abs(root-test.expected) > 1e-9 {
			t.Fatalf("%s: expected %.12f, got %.12f", test.name, test.expected, root)
		}
	}
}

func TestBrentNotBracketed(t *testing.T) {
	_, err := Brent(func(x float64) float64 { return x*x + 1 }, -1, 1, 1e-12, 100)
	if !errors.Is(err, ErrNotBracketed) {
		t.Fatalf("expected ErrNotBracketed, got %v", err)
	}
}

func TestBrentNonFinite(t *testing.T) {
	_, err := Brent(func(x float64) float64 { return math.NaN() }, 0, 1, 1e-12, 100)
	if !errors.Is(err, ErrNonFinite) {
		t.Fatalf("expected ErrNonFinite, got %v", err)
	}
}

func TestBrentMaxIterations(t *testing.T) {
	_, err := Brent(func(x float64) float64 { return x - 0.3 }, 0, 1, 0, 1)
	if !errors.Is(err, ErrNoConvergence) {
		t.Fatalf("expected ErrNoConvergence, got %v", err)
	}
}
