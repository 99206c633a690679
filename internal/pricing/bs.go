// Package pricing holds the closed-form option model used across the repo
// together with the numerical routines built on top of it: implied
// volatility extraction, Greeks and time-to-expiry normalization.
package pricing

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"
)

// OptionKind is the option variant. The zero value is not a valid kind.
type OptionKind int

const (
	Call OptionKind = iota + 1
	Put
)

var (
	ErrInvalidOptionKind = errors.New("invalid option kind")
	ErrDegenerateInput   = errors.New("degenerate pricing input")
	ErrNonFinite         = errors.New("non-finite model output")
)

// ParseOptionKind converts a provider string into an OptionKind.
// Matching is case-insensitive; exchange suffixes CE/PE are accepted.
func ParseOptionKind(s string) (OptionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c", "ce":
		return Call, nil
	case "put", "p", "pe":
		return Put, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidOptionKind, s)
}

func (k OptionKind) Valid() bool { return k == Call || k == Put }

func (k OptionKind) String() string {
	switch k {
	case Call:
		return "call"
	case Put:
		return "put"
	}
	return fmt.Sprintf("OptionKind(%d)", int(k))
}

// MarshalText encodes the kind as "call" or "put".
func (k OptionKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidOptionKind, int(k))
	}
	return []byte(k.String()), nil
}

func (k *OptionKind) UnmarshalText(b []byte) error {
	parsed, err := ParseOptionKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Greeks are the first/second order sensitivities of a European option.
//
// Units: Delta per unit of spot, Gamma per unit of spot squared, Theta per
// calendar day and Vega per one volatility point (1%).
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
}

// Price calculates the Black-Scholes price of a European option.
//
// Parameters:
//   - kind: Call or Put
//   - S: spot price of the underlying asset
//   - K: strike price of the option
//   - T: time to expiry in years
//   - r: risk-free interest rate (annual, continuous)
//   - sigma: volatility of the underlying asset (annual, as a decimal)
//
// Returns:
//
//	The theoretical price of the option. If time to expiry or volatility is
//	zero or negative, returns the intrinsic value of the option.
func Price(kind OptionKind, S, K, T, r, sigma float64) (float64, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidOptionKind, int(kind))
	}

	if T <= 0 || sigma <= 0 {
		return intrinsic(kind, S, K), nil // intrinsic fallback
	}

	d1, d2 := d1d2(S, K, T, r, sigma)
	df := math.Exp(-r * T)

	if kind == Call {
		return S*normCDF(d1) - K*df*normCDF(d2), nil
	}
	return K*df*normCDF(-d2) - S*normCDF(-d1), nil
}

// Sensitivities calculates Delta, Gamma, Theta and Vega for the given option.
//
// Unlike Price there is no intrinsic fallback: the Greeks are undefined for a
// non-positive spot, strike, time or volatility and ErrDegenerateInput is
// returned. ErrNonFinite is returned if any sensitivity overflows.
func Sensitivities(kind OptionKind, S, K, T, r, sigma float64) (Greeks, error) {
	if !kind.Valid() {
		return Greeks{}, fmt.Errorf("%w: %d", ErrInvalidOptionKind, int(kind))
	}
	if S <= 0 || K <= 0 || T <= 0 || sigma <= 0 {
		return Greeks{}, fmt.Errorf("%w: S=%g K=%g T=%g sigma=%g", ErrDegenerateInput, S, K, T, sigma)
	}

	sqrtT := math.Sqrt(T)
	d1, d2 := d1d2(S, K, T, r, sigma)
	pdf := normPDF(d1)
	df := math.Exp(-r * T)

	g := Greeks{
		Gamma: pdf / (S * sigma * sqrtT),
		Vega:  S * pdf * sqrtT / 100,
	}

	decay := -S * pdf * sigma / (2 * sqrtT)
	if kind == Call {
		g.Delta = normCDF(d1)
		g.Theta = (decay - r*K*df*normCDF(d2)) / 365
	} else {
		g.Delta = normCDF(d1) - 1
		g.Theta = (decay + r*K*df*normCDF(-d2)) / 365
	}

	for _, v := range []float64{g.Delta, g.Gamma, g.Theta, g.Vega} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Greeks{}, ErrNonFinite
		}
	}
	return g, nil
}

func intrinsic(kind OptionKind, S, K float64) float64 {
	if kind == Call {
		return math.Max(S-K, 0)
	}
	return math.Max(K-S, 0)
}

func d1d2(S, K, T, r, sigma float64) (float64, float64) {
	volT := sigma * math.Sqrt(T)
	d1 := (math.Log(S/K) + (r+0.5*sigma*sigma)*T) / volT
	return d1, d1 - volT
}

// normPDF is the standard normal density.
func normPDF(x float64) float64 {
	return distuv.UnitNormal.Prob(x)
}

// normCDF is the standard normal cumulative distribution.
func normCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}
