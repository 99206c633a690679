package data

import (
	"errors"
	"testing"
	"time"
)

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestMatchDate(t *testing.T) {
	dates := []time.Time{day("2025-03-27"), day("2025-03-13"), day("2025-04-03")}

	tests := []struct {
		name     string
		target   time.Time
		mode     DateMatchType
		expected string
	}{
		{"exact hit", day("2025-03-27"), MatchExact, "2025-03-27"},
		{"exact miss", day("2025-03-20"), MatchExact, ""},
		{"exact ignores time of day", day("2025-03-27").Add(15 * time.Hour), MatchExact, "2025-03-27"},
		{"higher", day("2025-03-20"), MatchHigher, "2025-03-27"},
		{"lower", day("2025-03-20"), MatchLower, "2025-03-13"},
		{"nearest tie prefers lower", day("2025-03-20"), MatchNearest, "2025-03-13"},
		{"nearest", day("2025-03-25"), MatchNearest, "2025-03-27"},
		{"on or after exact", day("2025-03-27"), MatchOnOrAfter, "2025-03-27"},
		{"on or after next", day("2025-03-28"), MatchOnOrAfter, "2025-04-03"},
		{"on or after none", day("2025-05-01"), MatchOnOrAfter, ""},
		{"unknown mode is nearest", day("2025-05-01"), "closest", "2025-04-03"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			actual := MatchDate(test.target, dates, test.mode)
			got := ""
			if !actual.IsZero() {
				got = actual.Format("2006-01-02")
			}
			if got != test.expected {
				t.Fatalf("MatchDate = %q, expected %q", got, test.expected)
			}
		})
	}

	if !dates[0].Equal(day("2025-03-27")) {
		t.Fatalf("MatchDate must not reorder its input")
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		opts Options
		err  error
	}{
		{Options{Kind: KindMassive, APIKey: "k"}, nil},
		{Options{Kind: "CSV", CSVPath: "chain.csv"}, nil},
		{Options{Kind: KindSynthetic, Spot: 100}, nil},
		{Options{Kind: "bloomberg"}, ErrNotSupported},
	}
	for _, test := range tests {
		p, err := New(test.opts)
		if !errors.Is(err, test.err) {
			t.Fatalf("New(%q): expected %v, got %v", test.opts.Kind, test.err, err)
		}
		if test.err == nil && p == nil {
			t.Fatalf("New(%q): nil provider", test.opts.Kind)
		}
	}

	p, _ := New(Options{Kind: KindCSV, CSVPath: "chain.csv", APIKey: "k"})
	if p.Secondary() == nil {
		t.Fatalf("csv provider with an API key must fall back to massive")
	}
}
