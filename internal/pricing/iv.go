package pricing

import (
	"errors"
	"fmt"
	"math"
)

// MinVol is the lowest volatility ever reported by ImpliedVol.
const MinVol = 0.001

const (
	// quotes at or above intrinsic admit near-zero vol, search wide
	wideVolLow  = 0.001
	wideVolHigh = 5.0

	// everything else uses a tighter bracket to avoid spurious roots
	narrowVolLow  = 0.01
	narrowVolHigh = 3.0

	ivTolerance = 1e-10
	ivMaxIter   = 100
)

var ErrInvalidInput = errors.New("invalid implied volatility input")

// VolBracket returns the volatility search interval for an observed price.
func VolBracket(kind OptionKind, S, K, price float64) (low, high float64) {
	if price >= intrinsic(kind, S, K) {
		return wideVolLow, wideVolHigh
	}
	return narrowVolLow, narrowVolHigh
}

// ImpliedVol recovers the Black-Scholes volatility that reproduces price.
//
// Parameters:
//   - kind: Call or Put
//   - S: spot price of the underlying asset
//   - K: strike price of the option
//   - T: time to expiry in years
//   - r: risk-free interest rate
//   - price: observed option price (last traded)
//
// Returns:
//   - float64: implied volatility, never below MinVol
//   - error: ErrInvalidInput when price, spot, strike or time is non-positive
//     or missing (NaN), ErrNotBracketed when the objective does not change
//     sign over the bracket, or another solver error. The volatility is
//     undefined whenever the error is non-nil.
func ImpliedVol(kind OptionKind, S, K, T, r, price float64) (float64, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidOptionKind, int(kind))
	}
	if !(price > 0) || !(S > 0) || !(K > 0) || !(T > 0) {
		return 0, fmt.Errorf("%w: S=%g K=%g T=%g price=%g", ErrInvalidInput, S, K, T, price)
	}

	objective := func(sigma float64) float64 {
		theo, _ := Price(kind, S, K, T, r, sigma)
		return theo - price
	}

	low, high := VolBracket(kind, S, K, price)
	sigma, err := Brent(objective, low, high, ivTolerance, ivMaxIter)
	if err != nil {
		return 0, fmt.Errorf("implied vol %s K=%g in [%g, %g]: %w", kind, K, low, high, err)
	}

	return math.Max(sigma, MinVol), nil
}
