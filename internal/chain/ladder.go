package chain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrInvalidLadder = errors.New("invalid ladder parameters")

// MatchMode selects how provider strikes are matched against the ladder.
type MatchMode string

const (
	MatchExact MatchMode = "exact" // strike must equal a ladder element
	MatchRange MatchMode = "range" // strike must lie within [min, max] of the ladder
)

// strikePrecision is the number of decimals strikes are compared at.
const strikePrecision = 8

// LadderSpec describes the strike ladder around ATM.
type LadderSpec struct {
	Increment  float64   `mapstructure:"increment" json:"increment"`
	CountBelow int       `mapstructure:"count_below" json:"count_below"`
	CountAbove int       `mapstructure:"count_above" json:"count_above"`
	Match      MatchMode `mapstructure:"match" json:"match"`
}

func (s LadderSpec) Validate() error {
	if !(s.Increment > 0) {
		return fmt.Errorf("%w: increment %v must be positive", ErrInvalidLadder, s.Increment)
	}
	if s.CountBelow < 0 || s.CountAbove < 0 {
		return fmt.Errorf("%w: counts below=%d above=%d must not be negative", ErrInvalidLadder, s.CountBelow, s.CountAbove)
	}
	switch s.Match {
	case MatchExact, MatchRange:
	default:
		return fmt.Errorf("%w: unknown match mode %q", ErrInvalidLadder, s.Match)
	}
	return nil
}

// Size is the ladder cardinality: below + ATM + above.
func (s LadderSpec) Size() int { return s.CountBelow + 1 + s.CountAbove }

// Ladder is the ordered set of target strikes for one snapshot.
type Ladder struct {
	ATM     float64   `json:"atm"`
	Strikes []float64 `json:"strikes"`
	Match   MatchMode `json:"match"`

	keys map[string]struct{}
}

// ATM rounds spot to the nearest multiple of increment (half away from zero).
func ATM(spot, increment float64) (float64, error) {
	if !(spot > 0) || !(increment > 0) {
		return 0, fmt.Errorf("%w: spot=%v increment=%v", ErrInvalidLadder, spot, increment)
	}
	inc := decimal.NewFromFloat(increment)
	atm := decimal.NewFromFloat(spot).Div(inc).Round(0).Mul(inc)
	return atm.InexactFloat64(), nil
}

// BuildLadder lays out spec.CountBelow strikes under atm, atm itself and
// spec.CountAbove strikes over it, ascending, spaced by spec.Increment.
func BuildLadder(atm float64, spec LadderSpec) (Ladder, error) {
	if err := spec.Validate(); err != nil {
		return Ladder{}, err
	}
	if !(atm > 0) {
		return Ladder{}, fmt.Errorf("%w: atm %v must be positive", ErrInvalidLadder, atm)
	}

	center := decimal.NewFromFloat(atm)
	inc := decimal.NewFromFloat(spec.Increment)

	l := Ladder{
		ATM:     atm,
		Strikes: make([]float64, 0, spec.Size()),
		Match:   spec.Match,
		keys:    make(map[string]struct{}, spec.Size()),
	}
	for i := -spec.CountBelow; i <= spec.CountAbove; i++ {
		k := center.Add(inc.Mul(decimal.NewFromInt(int64(i))))
		if !k.IsPositive() {
			return Ladder{}, fmt.Errorf("%w: strike %s below zero", ErrInvalidLadder, k)
		}
		l.Strikes = append(l.Strikes, k.InexactFloat64())
		l.keys[strikeKey(k.InexactFloat64())] = struct{}{}
	}
	return l, nil
}

func (l Ladder) Len() int { return len(l.Strikes) }

func (l Ladder) Min() float64 { return l.Strikes[0] }

func (l Ladder) Max() float64 { return l.Strikes[len(l.Strikes)-1] }

// Contains reports whether strike is exactly one of the ladder strikes.
func (l Ladder) Contains(strike float64) bool {
	_, ok := l.keys[strikeKey(strike)]
	return ok
}

// Accepts applies the ladder's match mode to a provider strike.
func (l Ladder) Accepts(strike float64) bool {
	if l.Match == MatchRange {
		key := decimal.NewFromFloat(strike).Round(strikePrecision)
		return !key.LessThan(decimal.NewFromFloat(l.Min()).Round(strikePrecision)) &&
			!key.GreaterThan(decimal.NewFromFloat(l.Max()).Round(strikePrecision))
	}
	return l.Contains(strike)
}

// strikeKey canonicalizes a strike so that float noise does not split keys.
func strikeKey(strike float64) string {
	return decimal.NewFromFloat(strike).Round(strikePrecision).String()
}
