// Package chain turns a raw single-expiry option chain into an ATM-centred,
// strike-complete ladder and enriches every row with implied volatility and
// Greeks.
package chain

import (
	"github.com/contactkeval/option-chain-greeks/internal/pricing"
)

// Column names expected in raw provider rows.
const (
	ColStrike       = "strike_price"
	ColPrice        = "last_traded_price"
	ColRight        = "right"
	ColExpiry       = "expiry_date"
	ColOpenInterest = "open_interest"
	ColSpot         = "spot_price" // optional, read by some providers only
)

// RequiredColumns must be present on every raw row or the chain is rejected.
var RequiredColumns = []string{ColStrike, ColPrice, ColRight, ColExpiry, ColOpenInterest}

// RawQuote is one provider row keyed by column name. Values may be numbers,
// numeric strings, time.Time or nil.
type RawQuote map[string]any

// Quote is one row of a normalized chain.
//
// LastPrice and OpenInterest are nil when missing. Placeholder rows are
// synthesized for ladder strikes the provider did not quote.
type Quote struct {
	Strike       float64            `json:"strike_price"`
	LastPrice    *float64           `json:"last_traded_price"`
	Kind         pricing.OptionKind `json:"right"`
	Expiry       string             `json:"expiry_date"`
	OpenInterest *float64           `json:"open_interest"`
	Spot         float64            `json:"spot_price"`
	Placeholder  bool               `json:"placeholder,omitempty"`
}

// Chain is the normalized output for one option kind.
type Chain struct {
	Kind   pricing.OptionKind `json:"kind"`
	Ladder Ladder             `json:"ladder"`
	Rows   []Quote            `json:"rows"`
}

// Empty reports whether no usable quotes survived normalization.
func (c *Chain) Empty() bool {
	return c == nil || len(c.Rows) == 0
}

// EnrichedQuote is a Quote plus its implied volatility and Greeks.
//
// IV is nil when it could not be recovered; Greeks is nil whenever IV is nil
// or the model failed, so the four sensitivities are never partially set.
// ExpiryDefaulted marks a TimeToExpiry that is the parse-failure fallback.
type EnrichedQuote struct {
	Quote
	TimeToExpiry    float64         `json:"time_to_expiry"`
	ExpiryDefaulted bool            `json:"expiry_defaulted,omitempty"`
	IV              *float64        `json:"implied_volatility"`
	Greeks          *pricing.Greeks `json:"greeks"`
}

func ptr(v float64) *float64 { return &v }
