package pricing

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/contactkeval/option-chain-greeks/internal/logger"
)

// MinYearFraction is the floor applied to every time-to-expiry (one day).
const MinYearFraction = 1.0 / 365

var ErrUnparsableExpiry = errors.New("unparsable expiry")

// expiryLayouts lists the accepted encodings, most specific first.
// Layouts without a zone are read as UTC.
var expiryLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-01-2006",
	"02-Jan-2006",
	"02/01/2006",
}

// Tenor is a time-to-expiry expressed in years.
//
// Defaulted is set when the expiry could not be parsed and Years holds the
// MinYearFraction fallback instead of a measured value.
type Tenor struct {
	Years     float64
	Defaulted bool
}

// ParseExpiry reads an expiry in any of the supported encodings.
func ParseExpiry(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrUnparsableExpiry)
	}
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparsableExpiry, raw)
}

// YearFraction returns the time between now and the given expiry in years
// (days/365), never less than MinYearFraction.
//
// It fails soft: an unparsable expiry is logged and reported as a Defaulted
// tenor holding the floor value.
func YearFraction(raw string, now time.Time) Tenor {
	expiry, err := ParseExpiry(raw)
	if err != nil {
		logger.Errorf("event=expiry_parse_failed expiry=%q fallback_years=%.6f err=%v", raw, MinYearFraction, err)
		return Tenor{Years: MinYearFraction, Defaulted: true}
	}
	return Tenor{Years: YearsBetween(now, expiry)}
}

// YearsBetween is the floored year fraction from now until expiry.
func YearsBetween(now, expiry time.Time) float64 {
	years := expiry.Sub(now).Hours() / 24 / 365
	if years < MinYearFraction {
		return MinYearFraction
	}
	return years
}
