package chain

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/contactkeval/option-chain-greeks/internal/logger"
	"github.com/contactkeval/option-chain-greeks/internal/pricing"
)

// Market is the read-only context shared by every row of a snapshot.
type Market struct {
	Spot float64   // underlying price
	Rate float64   // annual risk-free rate
	Now  time.Time // valuation instant; zero means time.Now()
}

func (m Market) now() time.Time {
	if m.Now.IsZero() {
		return time.Now()
	}
	return m.Now
}

// EnrichRow runs time-to-expiry, implied volatility and Greeks for one row.
// Failures are recorded as nil IV/Greeks, never returned.
func EnrichRow(q Quote, m Market) EnrichedQuote {
	tenor := pricing.YearFraction(q.Expiry, m.now())
	out := EnrichedQuote{
		Quote:           q,
		TimeToExpiry:    tenor.Years,
		ExpiryDefaulted: tenor.Defaulted,
	}

	if q.LastPrice == nil {
		return out
	}

	spot := q.Spot
	if spot <= 0 {
		spot = m.Spot
	}

	iv, err := pricing.ImpliedVol(q.Kind, spot, q.Strike, tenor.Years, m.Rate, *q.LastPrice)
	if err != nil {
		logger.Debugf("event=iv_undefined kind=%s strike=%.2f price=%.2f err=%v", q.Kind, q.Strike, *q.LastPrice, err)
		return out
	}
	out.IV = &iv

	greeks, err := pricing.ComputeGreeks(q.Kind, spot, q.Strike, tenor.Years, m.Rate, iv)
	if err != nil {
		logger.Errorf("event=greeks_failed kind=%s strike=%.2f iv=%.4f err=%v", q.Kind, q.Strike, iv, err)
		return out
	}
	out.Greeks = greeks
	return out
}

// Enrich applies EnrichRow to every row of c, fanning out over at most
// workers goroutines (workers <= 0 means one per row). Output order matches
// c.Rows. If ctx is cancelled before every row is done, no rows are returned.
func Enrich(ctx context.Context, c *Chain, m Market, workers int) ([]EnrichedQuote, error) {
	if c.Empty() {
		return nil, nil
	}

	if m.Now.IsZero() {
		// one valuation instant for the whole chain
		m.Now = time.Now()
	}

	out := make([]EnrichedQuote, len(c.Rows))
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for i := range c.Rows {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = EnrichRow(c.Rows[i], m)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("enrich %s chain: %w", c.Kind, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("enrich %s chain: %w", c.Kind, err)
	}

	logger.Debugf("event=chain_enriched kind=%s rows=%d", c.Kind, len(out))
	return out, nil
}
