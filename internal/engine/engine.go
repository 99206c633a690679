// Package engine runs one option chain snapshot end to end: spot and expiry
// resolution, ladder construction, normalization and enrichment of both
// sides, and the merged report table.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/contactkeval/option-chain-greeks/internal/chain"
	"github.com/contactkeval/option-chain-greeks/internal/config"
	"github.com/contactkeval/option-chain-greeks/internal/data"
	"github.com/contactkeval/option-chain-greeks/internal/logger"
	"github.com/contactkeval/option-chain-greeks/internal/pricing"
	"github.com/contactkeval/option-chain-greeks/internal/report"
)

var (
	// ErrNoExpiry means no provider expiry is on or after the valuation date.
	ErrNoExpiry = errors.New("no upcoming expiry")
	// ErrInvalidRequest marks caller mistakes such as a malformed expiry.
	ErrInvalidRequest = errors.New("invalid request")
)

type Engine struct {
	cfg  *config.Config
	prov data.Provider
	now  func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock fixes the valuation instant, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Request overrides the configured underlying and expiry for one run.
type Request struct {
	Underlying string `json:"underlying"`
	Expiry     string `json:"expiry"`
}

func NewEngine(cfg *config.Config, prov data.Provider, opts ...Option) *Engine {
	e := &Engine{cfg: cfg, prov: prov, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes one snapshot.
//
// The Call chain is processed before the Put chain. A chain that fails the
// column schema is logged and reported as an empty side; provider failures
// and cancellation abort the run.
func (e *Engine) Run(ctx context.Context, req Request) (*report.Table, error) {
	underlying := strings.TrimSpace(req.Underlying)
	if underlying == "" {
		underlying = e.cfg.Underlying
	}
	if underlying == "" {
		return nil, fmt.Errorf("%w: underlying is required", ErrInvalidRequest)
	}
	rawExpiry := strings.TrimSpace(req.Expiry)
	if rawExpiry == "" {
		rawExpiry = e.cfg.Expiry
	}

	now := e.now()
	start := time.Now()

	spot, err := e.prov.Spot(ctx, underlying)
	if err != nil {
		return nil, fmt.Errorf("spot %s: %w", underlying, err)
	}

	expiry, err := e.resolveExpiry(ctx, underlying, rawExpiry, now)
	if err != nil {
		return nil, err
	}

	atm, err := chain.ATM(spot, e.cfg.Ladder.Increment)
	if err != nil {
		return nil, err
	}
	ladder, err := chain.BuildLadder(atm, e.cfg.Ladder)
	if err != nil {
		return nil, err
	}
	logger.Infof(
		"event=snapshot_start underlying=%s expiry=%s spot=%.2f atm=%.2f strikes=%d match=%s",
		underlying, expiry.Format("2006-01-02"), spot, atm, ladder.Len(), ladder.Match,
	)

	market := chain.Market{Spot: spot, Rate: e.cfg.RiskFreeRate, Now: now}

	sides := make(map[pricing.OptionKind][]chain.EnrichedQuote, 2)
	for _, kind := range []pricing.OptionKind{pricing.Call, pricing.Put} {
		rows, err := e.side(ctx, underlying, expiry, kind, spot, ladder, market)
		if err != nil {
			return nil, err
		}
		sides[kind] = rows
	}

	table := &report.Table{
		Underlying:   underlying,
		Expiry:       expiry.Format("2006-01-02"),
		Spot:         spot,
		ATM:          atm,
		RiskFreeRate: e.cfg.RiskFreeRate,
		Generated:    now.UTC(),
		Lines:        report.Merge(sides[pricing.Call], sides[pricing.Put]),
	}

	logger.Infof(
		"event=snapshot_done underlying=%s expiry=%s calls=%d puts=%d lines=%d elapsed=%s",
		underlying, table.Expiry, len(sides[pricing.Call]), len(sides[pricing.Put]), len(table.Lines), time.Since(start),
	)
	return table, nil
}

func (e *Engine) side(
	ctx context.Context,
	underlying string,
	expiry time.Time,
	kind pricing.OptionKind,
	spot float64,
	ladder chain.Ladder,
	market chain.Market,
) ([]chain.EnrichedQuote, error) {

	raw, err := e.prov.Chain(ctx, underlying, expiry, kind)
	if err != nil {
		return nil, fmt.Errorf("fetch %s chain: %w", kind, err)
	}

	c, err := chain.Normalize(raw, kind, spot, ladder)
	if errors.Is(err, chain.ErrSchema) {
		logger.Errorf("event=chain_rejected underlying=%s kind=%s err=%v", underlying, kind, err)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("normalize %s chain: %w", kind, err)
	}
	if c.Empty() {
		logger.Infof("event=side_empty underlying=%s kind=%s raw_rows=%d", underlying, kind, len(raw))
		return nil, nil
	}

	return chain.Enrich(ctx, c, market, e.cfg.Workers)
}

// resolveExpiry parses raw, or picks the earliest provider expiry on or
// after now when raw is empty.
func (e *Engine) resolveExpiry(ctx context.Context, underlying, raw string, now time.Time) (time.Time, error) {
	if raw != "" {
		expiry, err := pricing.ParseExpiry(raw)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		return expiry, nil
	}

	expiries, err := e.prov.Expiries(ctx, underlying)
	if err != nil {
		return time.Time{}, fmt.Errorf("expiries %s: %w", underlying, err)
	}

	expiry := data.MatchDate(now, expiries, data.MatchOnOrAfter)
	if expiry.IsZero() {
		return time.Time{}, fmt.Errorf("%w: %s after %s", ErrNoExpiry, underlying, now.Format("2006-01-02"))
	}
	logger.Debugf("event=expiry_selected underlying=%s expiry=%s candidates=%d", underlying, expiry.Format("2006-01-02"), len(expiries))
	return expiry, nil
}
