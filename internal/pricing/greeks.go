package pricing

import (
	"errors"
	"fmt"
)

var ErrUndefinedVol = errors.New("volatility undefined or non-positive")

// ComputeGreeks evaluates the four Greeks at a recovered volatility.
//
// The result is all-or-nothing: either every Greek is defined, or nil is
// returned with an error naming the strike involved.
func ComputeGreeks(kind OptionKind, S, K, T, r, sigma float64) (*Greeks, error) {
	if !(sigma > 0) {
		return nil, fmt.Errorf("greeks at strike %g: %w", K, ErrUndefinedVol)
	}

	g, err := Sensitivities(kind, S, K, T, r, sigma)
	if err != nil {
		return nil, fmt.Errorf("greeks at strike %g: %w", K, err)
	}
	return &g, nil
}
