package pricing

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

// Simple sanity check: ATM call should have non-zero value
func TestPriceCallBasic(t *testing.T) {
	call, err := Price(Call, 100, 100, 30.0/365.0, 0.05, 0.20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if call <= 0 {
		t.Fatalf("expected call price > 0, got %f", call)
	}
}

func TestPricePutCallParity(t *testing.T) {
	S, K, T, r, sigma := 100.0, 100.0, 45.0/365.0, 0.03, 0.25

	call, _ := Price(Call, S, K, T, r, sigma)
	put, _ := Price(Put, S, K, T, r, sigma)

	lhs := call - put
	rhs := S - K*math.Exp(-r*T)

	if math.Abs(lhs-rhs) > 1e-9 {
		t.Fatalf("put-call parity violated: LHS=%f RHS=%f", lhs, rhs)
	}
}

func TestPriceIntrinsicFallback(t *testing.T) {
	tests := []struct {
		kind     OptionKind
		S, K     float64
		expected float64
	}{
		{Call, 110, 100, 10},
		{Call, 90, 100, 0},
		{Put, 90, 100, 10},
		{Put, 110, 100, 0},
	}

	for _, test := range tests {
		actual, err := Price(test.kind, test.S, test.K, 0, 0.05, 0.2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if actual != test.expected {
			t.Fatalf("%s S=%v K=%v: expected intrinsic %f, got %f", test.kind, test.S, test.K, test.expected, actual)
		}
	}
}

func TestPriceInvalidKind(t *testing.T) {
	if _, err := Price(OptionKind(0), 100, 100, 1, 0.05, 0.2); !errors.Is(err, ErrInvalidOptionKind) {
		t.Fatalf("expected ErrInvalidOptionKind, got %v", err)
	}
	if _, err := Sensitivities(OptionKind(7), 100, 100, 1, 0.05, 0.2); !errors.Is(err, ErrInvalidOptionKind) {
		t.Fatalf("expected ErrInvalidOptionKind, got %v", err)
	}
}

func TestSensitivitiesCallPutRelations(t *testing.T) {
	S, K, T, r, sigma := 100.0, 105.0, 0.25, 0.04, 0.3

	c, err := Sensitivities(Call, S, K, T, r, sigma)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p, err := Sensitivities(Put, S, K, T, r, sigma)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.Abs((c.Delta-p.Delta)-1) > 1e-12 {
		t.Fatalf("call delta - put delta should be 1, got %f", c.Delta-p.Delta)
	}
	if c.Delta <= 0 || c.Delta >= 1 || p.Delta >= 0 || p.Delta <= -1 {
		t.Fatalf("delta out of range: call=%f put=%f", c.Delta, p.Delta)
	}
	if math.Abs(c.Gamma-p.Gamma) > 1e-15 || math.Abs(c.Vega-p.Vega) > 1e-12 {
		t.Fatalf("gamma/vega should not depend on kind: %+v vs %+v", c, p)
	}
	if c.Theta >= 0 {
		t.Fatalf("expected negative call theta, got %f", c.Theta)
	}
}

func TestSensitivitiesMatchFiniteDifferences(t *testing.T) {
	S, K, T, r, sigma := 100.0, 95.0, 0.5, 0.05, 0.25
	const h = 1e-3

	g, err := Sensitivities(Put, S, K, T, r, sigma)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	up, _ := Price(Put, S+h, K, T, r, sigma)
	down, _ := Price(Put, S-h, K, T, r, sigma)
	if fd := (up - down) / (2 * h); math.Abs(fd-g.Delta) > 1e-5 {
		t.Fatalf("delta: analytic %f vs finite difference %f", g.Delta, fd)
	}

	volUp, _ := Price(Put, S, K, T, r, sigma+h)
	volDown, _ := Price(Put, S, K, T, r, sigma-h)
	if fd := (volUp - volDown) / (2 * h) / 100; math.Abs(fd-g.Vega) > 1e-5 {
		t.Fatalf("vega: analytic %f vs finite difference %f", g.Vega, fd)
	}

	later, _ := Price(Put, S, K, T-1.0/365, r, sigma)
	now, _ := Price(Put, S, K, T, r, sigma)
	if fd := later - now; math.Abs(fd-g.Theta) > 1e-3 {
		t.Fatalf("theta: analytic %f vs one-day decay %f", g.Theta, fd)
	}
}

func TestSensitivitiesDegenerate(t *testing.T) {
	if _, err := Sensitivities(Call, 100, 100, 0, 0.05, 0.2); !errors.Is(err, ErrDegenerateInput) {
		t.Fatalf("expected ErrDegenerateInput for T=0, got %v", err)
	}
	if _, err := Sensitivities(Call, 0, 100, 1, 0.05, 0.2); !errors.Is(err, ErrDegenerateInput) {
		t.Fatalf("expected ErrDegenerateInput for S=0, got %v", err)
	}
}

func TestParseOptionKind(t *testing.T) {
	tests := []struct {
		in       string
		expected OptionKind
	}{
		{"call", Call},
		{"CALL", Call},
		{" Call ", Call},
		{"c", Call},
		{"CE", Call},
		{"put", Put},
		{"Put", Put},
		{"P", Put},
		{"pe", Put},
	}

	for _, test := range tests {
		actual, err := ParseOptionKind(test.in)
		if err != nil {
			t.Fatalf("parse %q: %v", test.in, err)
		}
		if actual != test.expected {
			t.Fatalf("parse %q: expected %s, got %s", test.in, test.expected, actual)
		}
	}

	for _, bad := range []string{"", "others", "straddle", "cal"} {
		if _, err := ParseOptionKind(bad); !errors.Is(err, ErrInvalidOptionKind) {
			t.Fatalf("parse %q: expected ErrInvalidOptionKind, got %v", bad, err)
		}
	}
}

func TestOptionKindJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Kind OptionKind `json:"kind"`
	}{Put})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"kind":"put"}` {
		t.Fatalf("unexpected JSON %s", b)
	}

	var v struct {
		Kind OptionKind `json:"kind"`
	}
	if err := json.Unmarshal([]byte(`{"kind":"CE"}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.Kind != Call {
		t.Fatalf("expected call, got %s", v.Kind)
	}

	if _, err := json.Marshal(OptionKind(0)); err == nil {
		t.Fatalf("expected error marshalling the zero kind")
	}
}
