package chain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/contactkeval/option-chain-greeks/internal/logger"
	"github.com/contactkeval/option-chain-greeks/internal/pricing"
)

// ErrSchema means the raw chain does not carry the required columns.
// The whole chain is rejected, not individual rows.
var ErrSchema = errors.New("option chain schema mismatch")

// Normalize turns raw provider rows for one option kind into a chain with
// exactly one row per ladder strike, ascending.
//
// Rows with a missing or non-positive price, a missing strike or a different
// option kind are dropped before matching. Matching follows ladder.Match.
// Ladder strikes without a surviving row are filled with placeholders that
// carry the chain's expiry but no price or open interest. When no raw row
// survives the validity filter at all, an empty chain is returned without
// error; a missing required column anywhere yields ErrSchema.
func Normalize(raw []RawQuote, kind pricing.OptionKind, spot float64, ladder Ladder) (*Chain, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %d", pricing.ErrInvalidOptionKind, int(kind))
	}
	if ladder.Len() == 0 {
		return nil, fmt.Errorf("%w: empty ladder", ErrInvalidLadder)
	}

	for i, row := range raw {
		for _, col := range RequiredColumns {
			if _, ok := row[col]; !ok {
				return nil, fmt.Errorf("%w: row %d has no %q column", ErrSchema, i, col)
			}
		}
	}

	out := &Chain{Kind: kind, Ladder: ladder}

	valid := make([]Quote, 0, len(raw))
	for i, row := range raw {
		q, reason := coerce(row, kind, spot)
		if reason != "" {
			logger.Tracef("event=row_dropped kind=%s row=%d reason=%s", kind, i, reason)
			continue
		}
		valid = append(valid, q)
	}
	if len(valid) == 0 {
		logger.Infof("event=chain_empty kind=%s raw_rows=%d", kind, len(raw))
		return out, nil
	}

	seen := make(map[string]bool, ladder.Len())
	for _, q := range valid {
		if !ladder.Accepts(q.Strike) {
			continue
		}
		key := strikeKey(q.Strike)
		if seen[key] {
			logger.Debugf("event=duplicate_strike kind=%s strike=%.2f", kind, q.Strike)
			continue
		}
		seen[key] = true
		out.Rows = append(out.Rows, q)
	}
	matched := len(out.Rows)

	expiry := valid[0].Expiry
	for _, strike := range ladder.Strikes {
		if seen[strikeKey(strike)] {
			continue
		}
		out.Rows = append(out.Rows, Quote{
			Strike:      strike,
			Kind:        kind,
			Expiry:      expiry,
			Spot:        spot,
			Placeholder: true,
		})
	}

	sort.SliceStable(out.Rows, func(i, j int) bool {
		return out.Rows[i].Strike < out.Rows[j].Strike
	})

	logger.Debugf(
		"event=chain_normalized kind=%s raw=%d valid=%d matched=%d filled=%d atm=%.2f",
		kind, len(raw), len(valid), matched, len(out.Rows)-matched, ladder.ATM,
	)
	return out, nil
}

// coerce converts one raw row. A non-empty reason means the row is unusable.
func coerce(row RawQuote, kind pricing.OptionKind, spot float64) (Quote, string) {
	strike, ok := toFloat(row[ColStrike])
	if !ok || strike <= 0 {
		return Quote{}, "missing_strike"
	}

	price, ok := toFloat(row[ColPrice])
	if !ok || price <= 0 {
		return Quote{}, "missing_price"
	}

	rowKind, err := pricing.ParseOptionKind(toString(row[ColRight]))
	if err != nil {
		return Quote{}, "invalid_right"
	}
	if rowKind != kind {
		return Quote{}, "other_kind"
	}

	q := Quote{
		Strike:    strike,
		LastPrice: ptr(price),
		Kind:      kind,
		Expiry:    toString(row[ColExpiry]),
		Spot:      spot,
	}
	if oi, ok := toFloat(row[ColOpenInterest]); ok {
		q.OpenInterest = ptr(oi)
	}
	return q, ""
}

// toFloat coerces a raw cell to a number. Unparseable values are missing,
// never zero.
func toFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case decimal.Decimal:
		f = x.InexactFloat64()
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(x), ",", "")
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case time.Time:
		return x.Format(time.RFC3339)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}
