package pricing

import (
	"errors"
	"math"
	"testing"
	"time"
)

var now = time.Date(2025, time.March, 20, 6, 0, 0, 0, time.UTC)

func TestParseExpiry(t *testing.T) {
	expected := time.Date(2025, time.March, 27, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		raw      string
		expected time.Time
	}{
		{"2025-03-27T06:00:00.000Z", expected.Add(6 * time.Hour)},
		{"2025-03-27T06:00:00Z", expected.Add(6 * time.Hour)},
		{"2025-03-27T11:30:00+05:30", expected.Add(6 * time.Hour)},
		{"2025-03-27T06:00:00", expected.Add(6 * time.Hour)},
		{"2025-03-27 06:00:00", expected.Add(6 * time.Hour)},
		{"2025-03-27", expected},
		{"27-03-2025", expected},
		{"27-Mar-2025", expected},
		{"27/03/2025", expected},
		{"  2025-03-27  ", expected},
	}

	for _, test := range tests {
		actual, err := ParseExpiry(test.raw)
		if err != nil {
			t.Fatalf("parse %q: %v", test.raw, err)
		}
		if !actual.Equal(test.expected) {
			t.Fatalf("parse %q: expected %s, got %s", test.raw, test.expected, actual)
		}
	}

	for _, bad := range []string{"", "next thursday", "2025-13-45", "27.03.2025"} {
		if _, err := ParseExpiry(bad); !errors.Is(err, ErrUnparsableExpiry) {
			t.Fatalf("parse %q: expected ErrUnparsableExpiry, got %v", bad, err)
		}
	}
}

func TestYearFraction(t *testing.T) {
	tenor := YearFraction("2025-03-27T06:00:00Z", now)
	if tenor.Defaulted {
		t.Fatalf("unexpected defaulted tenor")
	}
	if math.Abs(tenor.Years-7.0/365.0) > 1e-12 {
		t.Fatalf("expected %f years, got %f", 7.0/365.0, tenor.Years)
	}
}

func TestYearFractionFloor(t *testing.T) {
	tests := []string{
		"2025-03-20T06:00:00Z", // expiring now
		"2025-03-20T12:00:00Z", // a few hours left
		"2024-01-01",           // long past
	}

	for _, raw := range tests {
		tenor := YearFraction(raw, now)
		if tenor.Defaulted {
			t.Fatalf("%s: floor must not be reported as a parse fallback", raw)
		}
		if tenor.Years != MinYearFraction {
			t.Fatalf("%s: expected floor %f, got %f", raw, MinYearFraction, tenor.Years)
		}
	}
}

func TestYearFractionMalformedFallsBack(t *testing.T) {
	for _, raw := range []string{"", "garbage", "31-31-2025"} {
		tenor := YearFraction(raw, now)
		if !tenor.Defaulted {
			t.Fatalf("%q: expected defaulted tenor", raw)
		}
		if tenor.Years != MinYearFraction {
			t.Fatalf("%q: expected floor %f, got %f", raw, MinYearFraction, tenor.Years)
		}
	}
}
