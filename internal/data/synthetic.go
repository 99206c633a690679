package data

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/contactkeval/option-chain-greeks/internal/chain"
	"github.com/contactkeval/option-chain-greeks/internal/logger"
	"github.com/contactkeval/option-chain-greeks/internal/pricing"
)

const (
	synthStrikes  = 10     // strikes generated on each side of ATM
	synthWeeklies = 4      // number of weekly expiries offered
	synthRate     = 0.0725 // rate used to price the synthetic quotes
	synthBaseVol  = 0.14
	synthSkew     = -0.35
	synthSmile    = 1.8
	synthGapRatio = 0.1
	synthTick     = 0.05
)

// synthDataProvider implements Data Provider generating synthetic data.
//
// Quotes are Black-Scholes prices on a skewed volatility smile with a little
// noise, rounded to the tick. A seeded share of non-ATM strikes is left out
// so that the ladder has gaps to fill.
type synthDataProvider struct {
	spot      float64
	step      float64
	now       func() time.Time
	secondary Provider

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSyntheticProvider builds a generator around spot with strikes every
// step. A non-positive step defaults to roughly 0.5% of spot.
func NewSyntheticProvider(spot, step float64, seed int64) *synthDataProvider {
	if step <= 0 {
		step = defaultStep(spot)
	}
	logger.Infof("event=provider_init kind=synthetic spot=%.2f step=%g seed=%d", spot, step, seed)
	return &synthDataProvider{
		spot: spot,
		step: step,
		now:  time.Now,
		rnd:  rand.New(rand.NewSource(seed)),
	}
}

// WithClock replaces the clock used for expiries and pricing.
func (synthDataProv *synthDataProvider) WithClock(now func() time.Time) *synthDataProvider {
	synthDataProv.now = now
	return synthDataProv
}

func (synthDataProv *synthDataProvider) Secondary() Provider {
	return synthDataProv.secondary
}

func (synthDataProv *synthDataProvider) Spot(ctx context.Context, underlying string) (float64, error) {
	if !(synthDataProv.spot > 0) {
		if synthDataProv.secondary != nil {
			return synthDataProv.secondary.Spot(ctx, underlying)
		}
		return 0, fmt.Errorf("%w: synthetic spot not configured", ErrNoSpot)
	}
	return synthDataProv.spot, nil
}

// Expiries returns the next weekly Thursdays, strictly after today.
func (synthDataProv *synthDataProvider) Expiries(ctx context.Context, underlying string) ([]time.Time, error) {
	today := truncateDay(synthDataProv.now())
	offset := (int(time.Thursday) - int(today.Weekday()) + 7) % 7
	if offset == 0 {
		offset = 7
	}

	out := make([]time.Time, 0, synthWeeklies)
	for i := 0; i < synthWeeklies; i++ {
		out = append(out, today.AddDate(0, 0, offset+7*i))
	}
	return out, nil
}

func (synthDataProv *synthDataProvider) Chain(
	ctx context.Context,
	underlying string,
	expiry time.Time,
	kind pricing.OptionKind,
) ([]chain.RawQuote, error) {

	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %d", pricing.ErrInvalidOptionKind, int(kind))
	}
	spot, err := synthDataProv.Spot(ctx, underlying)
	if err != nil {
		return nil, err
	}

	atm, err := chain.ATM(spot, synthDataProv.step)
	if err != nil {
		return nil, err
	}
	years := pricing.YearsBetween(synthDataProv.now(), expiry)
	expiryStr := expiry.Format("2006-01-02")

	synthDataProv.mu.Lock()
	defer synthDataProv.mu.Unlock()

	out := make([]chain.RawQuote, 0, 2*synthStrikes+1)
	for i := -synthStrikes; i <= synthStrikes; i++ {
		strike := atm + float64(i)*synthDataProv.step
		if strike <= 0 {
			continue
		}
		if i != 0 && synthDataProv.rnd.Float64() < synthGapRatio {
			continue
		}

		m := math.Log(strike / spot)
		vol := synthBaseVol + synthSkew*m + synthSmile*m*m
		theo, err := pricing.Price(kind, spot, strike, years, synthRate, vol)
		if err != nil {
			return nil, err
		}
		price := theo * (1 + 0.01*synthDataProv.rnd.NormFloat64())
		price = math.Round(price/synthTick) * synthTick

		out = append(out, chain.RawQuote{
			chain.ColStrike:       strike,
			chain.ColPrice:        price,
			chain.ColRight:        strings.ToUpper(kind.String()),
			chain.ColExpiry:       expiryStr,
			chain.ColOpenInterest: float64(100 * (1 + synthDataProv.rnd.Intn(500))),
			chain.ColSpot:         spot,
		})
	}

	logger.Tracef("event=chain_generated underlying=%s kind=%s expiry=%s rows=%d", underlying, kind, expiryStr, len(out))
	return out, nil
}

// defaultStep picks a round strike spacing near 0.5% of spot.
func defaultStep(spot float64) float64 {
	if !(spot > 0) {
		return 1
	}
	return math.Pow(10, math.Floor(math.Log10(spot*0.005)))
}
