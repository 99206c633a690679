// Package data provides the option chain sources: the Massive REST API, a
// local CSV export and a seeded synthetic generator.
package data

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/contactkeval/option-chain-greeks/internal/chain"
	"github.com/contactkeval/option-chain-greeks/internal/pricing"
)

var (
	ErrNoSpot       = errors.New("no spot price available")
	ErrNoExpiries   = errors.New("no expiries available")
	ErrNotSupported = errors.New("not supported by provider")
)

// Provider supplies the market snapshot for one underlying.
//
// Chain returns raw rows keyed by the chain.Col* column names; it does not
// validate or normalize them.
type Provider interface {
	Secondary() Provider
	Spot(ctx context.Context, underlying string) (float64, error)
	Expiries(ctx context.Context, underlying string) ([]time.Time, error)
	Chain(ctx context.Context, underlying string, expiry time.Time, kind pricing.OptionKind) ([]chain.RawQuote, error)
}

// Kinds of provider accepted by New.
const (
	KindMassive   = "massive"
	KindCSV       = "csv"
	KindSynthetic = "synthetic"
)

// Options selects and configures a provider.
type Options struct {
	Kind    string        `mapstructure:"kind" json:"kind"`
	BaseURL string        `mapstructure:"base_url" json:"base_url"`
	APIKey  string        `mapstructure:"api_key" json:"-"`
	CSVPath string        `mapstructure:"csv_path" json:"csv_path"`
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`

	// synthetic only
	Spot float64 `mapstructure:"spot" json:"spot"`
	Step float64 `mapstructure:"step" json:"step"`
	Seed int64   `mapstructure:"seed" json:"seed"`
}

// New builds the provider named by opts.Kind. A CSV provider gets a Massive
// secondary when an API key is present, so that spot can still be resolved.
func New(opts Options) (Provider, error) {
	switch strings.ToLower(opts.Kind) {
	case KindMassive:
		return NewMassiveDataProvider(opts.BaseURL, opts.APIKey, opts.Timeout, nil), nil
	case KindCSV:
		var secondary Provider
		if opts.APIKey != "" {
			secondary = NewMassiveDataProvider(opts.BaseURL, opts.APIKey, opts.Timeout, nil)
		}
		return NewLocalCSVDataProvider(opts.CSVPath, secondary), nil
	case KindSynthetic:
		return NewSyntheticProvider(opts.Spot, opts.Step, opts.Seed), nil
	}
	return nil, fmt.Errorf("%w: provider kind %q", ErrNotSupported, opts.Kind)
}

type DateMatchType string

const (
	MatchExact     DateMatchType = "exact"       // must match exactly
	MatchHigher    DateMatchType = "higher"      // next available date after target
	MatchLower     DateMatchType = "lower"       // last available date before target
	MatchNearest   DateMatchType = "nearest"     // closest available date (default)
	MatchOnOrAfter DateMatchType = "on_or_after" // exact, else next available
)

// MatchDate picks one of dates relative to d according to mode. Dates are
// compared by calendar day. The zero time means nothing matched.
func MatchDate(d time.Time, dates []time.Time, mode DateMatchType) time.Time {
	var (
		exact  time.Time
		lower  time.Time
		higher time.Time
	)

	switch mode {
	case MatchExact, MatchHigher, MatchLower, MatchNearest, MatchOnOrAfter:
	default:
		mode = MatchNearest
	}

	sorted := append([]time.Time(nil), dates...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	day := truncateDay(d)
	for _, dt := range sorted {
		cur := truncateDay(dt)
		if cur.Equal(day) && exact.IsZero() {
			exact = dt
		}
		if cur.Before(day) {
			lower = dt // keeps the last one before d
		}
		if cur.After(day) && higher.IsZero() {
			higher = dt
		}
	}

	switch mode {
	case MatchExact:
		return exact
	case MatchLower:
		return lower
	case MatchHigher:
		return higher
	case MatchOnOrAfter:
		if !exact.IsZero() {
			return exact
		}
		return higher
	case MatchNearest:
		if !exact.IsZero() {
			return exact
		}
		switch {
		case !lower.IsZero() && !higher.IsZero():
			if day.Sub(truncateDay(lower)) <= truncateDay(higher).Sub(day) {
				return lower
			}
			return higher
		case !lower.IsZero():
			return lower
		case !higher.IsZero():
			return higher
		}
	}

	return time.Time{}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// sortedUnique orders expiries ascending and drops same-day duplicates.
func sortedUnique(dates []time.Time) []time.Time {
	seen := make(map[string]bool, len(dates))
	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		key := d.UTC().Format("2006-01-02")
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
