package data

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/contactkeval/option-chain-greeks/internal/chain"
	"github.com/contactkeval/option-chain-greeks/internal/pricing"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestSyntheticExpiries(t *testing.T) {
	p := NewSyntheticProvider(82000, 100, 1)
	// Thursday
	p.now = fixedClock(time.Date(2025, 3, 20, 6, 0, 0, 0, time.UTC))

	dates, err := p.Expiries(context.Background(), "NIFTY")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []string{"2025-03-27", "2025-04-03", "2025-04-10", "2025-04-17"}
	for i, d := range dates {
		if d.Format("2006-01-02") != expected[i] || d.Weekday() != time.Thursday {
			t.Fatalf("expiry %d = %s, expected %s", i, d.Format("2006-01-02"), expected[i])
		}
	}
}

func TestSyntheticChainDeterministic(t *testing.T) {
	now := time.Date(2025, 3, 20, 6, 0, 0, 0, time.UTC)
	expiry := time.Date(2025, 3, 27, 0, 0, 0, 0, time.UTC)

	a := NewSyntheticProvider(82010, 100, 42)
	a.now = fixedClock(now)
	b := NewSyntheticProvider(82010, 100, 42)
	b.now = fixedClock(now)

	rowsA, err := a.Chain(context.Background(), "NIFTY", expiry, pricing.Call)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rowsB, _ := b.Chain(context.Background(), "NIFTY", expiry, pricing.Call)
	if !reflect.DeepEqual(rowsA, rowsB) {
		t.Fatalf("same seed must give the same chain")
	}

	if len(rowsA) == 0 || len(rowsA) > 2*synthStrikes+1 {
		t.Fatalf("unexpected row count %d", len(rowsA))
	}

	atmQuoted := false
	for _, row := range rowsA {
		for _, col := range chain.RequiredColumns {
			if _, ok := row[col]; !ok {
				t.Fatalf("row lacks %q: %v", col, row)
			}
		}
		if row[chain.ColStrike] == 82000.0 {
			atmQuoted = true
		}
		if row[chain.ColRight] != "CALL" || row[chain.ColExpiry] != "2025-03-27" {
			t.Fatalf("unexpected row %v", row)
		}
	}
	if !atmQuoted {
		t.Fatalf("ATM strike must always be quoted")
	}
}

func TestSyntheticChainIsPriceable(t *testing.T) {
	now := time.Date(2025, 3, 20, 6, 0, 0, 0, time.UTC)
	expiry := time.Date(2025, 3, 27, 0, 0, 0, 0, time.UTC)
	p := NewSyntheticProvider(82010, 100, 3)
	p.now = fixedClock(now)

	rows, err := p.Chain(context.Background(), "NIFTY", expiry, pricing.Put)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ladder, _ := chain.BuildLadder(82000, chain.LadderSpec{Increment: 100, CountBelow: 2, CountAbove: 2, Match: chain.MatchExact})
	c, err := chain.Normalize(rows, pricing.Put, 82010, ladder)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}

	out, err := chain.Enrich(context.Background(), c, chain.Market{Spot: 82010, Rate: synthRate, Now: now}, 0)
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}
	atm := out[2]
	if atm.Strike != 82000 || atm.IV == nil || atm.Greeks == nil {
		t.Fatalf("ATM row must be priced: %+v", atm)
	}
	if *atm.IV < 0.05 || *atm.IV > 0.5 {
		t.Fatalf("implausible ATM vol %v", *atm.IV)
	}
}

func TestDefaultStep(t *testing.T) {
	tests := []struct {
		spot, expected float64
	}{
		{82000, 100},
		{581.39, 1},
		{22150, 100},
		{0, 1},
	}
	for _, test := range tests {
		if actual := defaultStep(test.spot); actual != test.expected {
			t.Fatalf("defaultStep(%v) = %v, expected %v", test.spot, actual, test.expected)
		}
	}
}
