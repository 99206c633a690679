package data

// Massive-backed Provider.
//
// Design notes:
//   - Uses raw REST calls through resty instead of the official Massive SDK
//   - Follows next_url pagination and retries on HTTP 429
//   - Delegates to the secondary provider when a request fails

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/contactkeval/option-chain-greeks/internal/chain"
	"github.com/contactkeval/option-chain-greeks/internal/logger"
	"github.com/contactkeval/option-chain-greeks/internal/pricing"
)

const (
	DefaultMassiveURL = "https://api.massive.com"
	defaultTimeout    = 60 * time.Second

	// pagination guard against a server that keeps returning next_url
	maxPages = 200
)

// massiveDataProvider implements the Provider interface using Massive APIs.
type massiveDataProvider struct {
	client *resty.Client

	// secondary is an optional fallback provider.
	secondary Provider
}

// massiveError is the error body returned by Massive on non-2xx responses.
type massiveError struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

// massivePrevResp models /v2/aggs/ticker/{ticker}/prev.
type massivePrevResp struct {
	Ticker  string `json:"ticker"`
	Results []struct {
		Close     float64 `json:"c"`
		Timestamp int64   `json:"t"` // epoch millis
	} `json:"results"`
	Status string `json:"status"`
}

// massiveContractsResp models the paginated response
// returned by Massive's option contracts API.
type massiveContractsResp struct {
	Results []struct {
		ContractType string  `json:"contract_type"`
		ExpiryDate   string  `json:"expiration_date"`
		StrikePrice  float64 `json:"strike_price"`
		Ticker       string  `json:"ticker"`
	} `json:"results"`
	Status  string `json:"status"`
	NextURL string `json:"next_url"`
}

// massiveSnapshot is one contract of the option chain snapshot.
type massiveSnapshot struct {
	Details struct {
		ContractType string  `json:"contract_type"`
		ExpiryDate   string  `json:"expiration_date"`
		StrikePrice  float64 `json:"strike_price"`
		Ticker       string  `json:"ticker"`
	} `json:"details"`
	Day struct {
		Close *float64 `json:"close"`
	} `json:"day"`
	LastTrade struct {
		Price *float64 `json:"price"`
	} `json:"last_trade"`
	OpenInterest    *float64 `json:"open_interest"`
	UnderlyingAsset struct {
		Price *float64 `json:"price"`
	} `json:"underlying_asset"`
}

type massiveSnapshotResp struct {
	Results []massiveSnapshot `json:"results"`
	Status  string            `json:"status"`
	NextURL string            `json:"next_url"`
}

// NewMassiveDataProvider constructs a Massive-backed data provider.
//
// Parameters:
//   - baseURL: API root; empty means DefaultMassiveURL
//   - apiKey: Massive API key, sent as a bearer token
//   - timeout: per-request timeout; zero means 60s
//   - secondary: optional fallback provider
//
// Returns:
//   - *massiveDataProvider: initialized provider instance
func NewMassiveDataProvider(baseURL, apiKey string, timeout time.Duration, secondary Provider) *massiveDataProvider {
	if baseURL == "" {
		baseURL = DefaultMassiveURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger.Infof("event=provider_init kind=massive base_url=%s", baseURL)

	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "option-chain-greeks/1.0").
		SetError(&massiveError{}).
		SetRetryCount(3).
		SetRetryWaitTime(2 * time.Second).
		SetRetryMaxWaitTime(time.Minute).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if resp != nil && resp.StatusCode() == http.StatusTooManyRequests {
				logger.Infof("event=rate_limited url=%s", resp.Request.URL)
				return true
			}
			return false
		})
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}

	return &massiveDataProvider{client: client, secondary: secondary}
}

// Secondary returns the configured secondary Provider, if any.
func (massiveDataProv *massiveDataProvider) Secondary() Provider {
	return massiveDataProv.secondary
}

// Spot returns the previous session close of the underlying.
func (massiveDataProv *massiveDataProvider) Spot(ctx context.Context, underlying string) (float64, error) {
	var out massivePrevResp
	resp, err := massiveDataProv.client.R().
		SetContext(ctx).
		SetPathParam("ticker", strings.ToUpper(underlying)).
		SetQueryParam("adjusted", "true").
		SetResult(&out).
		Get("/v2/aggs/ticker/{ticker}/prev")
	if err = checkResponse(resp, err); err != nil {
		if massiveDataProv.secondary != nil {
			logger.Debugf("event=spot_fallback underlying=%s err=%v", underlying, err)
			return massiveDataProv.secondary.Spot(ctx, underlying)
		}
		return 0, fmt.Errorf("massive spot %s: %w", underlying, err)
	}

	if len(out.Results) == 0 || !(out.Results[0].Close > 0) {
		if massiveDataProv.secondary != nil {
			return massiveDataProv.secondary.Spot(ctx, underlying)
		}
		return 0, fmt.Errorf("%w: %s", ErrNoSpot, underlying)
	}

	logger.Debugf("event=spot underlying=%s spot=%.2f", underlying, out.Results[0].Close)
	return out.Results[0].Close, nil
}

// Expiries lists the unexpired option expiration dates of underlying,
// ascending.
func (massiveDataProv *massiveDataProvider) Expiries(ctx context.Context, underlying string) ([]time.Time, error) {
	var dates []time.Time

	err := massiveDataProv.paginate(ctx, "/v3/reference/options/contracts", map[string]string{
		"underlying_ticker": strings.ToUpper(underlying),
		"expired":           "false",
		"limit":             "1000",
	}, func(r *resty.Request) (string, error) {
		var page massiveContractsResp
		resp, err := r.SetResult(&page).Send()
		if err = checkResponse(resp, err); err != nil {
			return "", err
		}
		for _, c := range page.Results {
			t, err := time.Parse("2006-01-02", c.ExpiryDate)
			if err != nil {
				continue // skip malformed expiry dates
			}
			dates = append(dates, t)
		}
		return page.NextURL, nil
	})
	if err != nil {
		if massiveDataProv.secondary != nil {
			return massiveDataProv.secondary.Expiries(ctx, underlying)
		}
		return nil, fmt.Errorf("massive expiries %s: %w", underlying, err)
	}

	dates = sortedUnique(dates)
	if len(dates) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoExpiries, underlying)
	}
	logger.Infof("event=expiries_resolved underlying=%s count=%d", underlying, len(dates))
	return dates, nil
}

// Chain fetches the snapshot of every kind contract of underlying expiring
// on expiry.
//
// The traded price is the last trade, falling back to the session close.
// Missing fields are left nil so that normalization can drop the row.
func (massiveDataProv *massiveDataProvider) Chain(
	ctx context.Context,
	underlying string,
	expiry time.Time,
	kind pricing.OptionKind,
) ([]chain.RawQuote, error) {

	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %d", pricing.ErrInvalidOptionKind, int(kind))
	}

	var rows []chain.RawQuote
	err := massiveDataProv.paginate(ctx, "/v3/snapshot/options/"+strings.ToUpper(underlying), map[string]string{
		"expiration_date": expiry.Format("2006-01-02"),
		"contract_type":   kind.String(),
		"limit":           "250",
	}, func(r *resty.Request) (string, error) {
		var page massiveSnapshotResp
		resp, err := r.SetResult(&page).Send()
		if err = checkResponse(resp, err); err != nil {
			return "", err
		}
		for _, s := range page.Results {
			rows = append(rows, s.rawQuote())
		}
		return page.NextURL, nil
	})
	if err != nil {
		if massiveDataProv.secondary != nil {
			logger.Debugf("event=chain_fallback underlying=%s kind=%s err=%v", underlying, kind, err)
			return massiveDataProv.secondary.Chain(ctx, underlying, expiry, kind)
		}
		return nil, fmt.Errorf("massive chain %s %s %s: %w", underlying, expiry.Format("2006-01-02"), kind, err)
	}

	logger.Debugf("event=chain_fetched underlying=%s kind=%s rows=%d", underlying, kind, len(rows))
	return rows, nil
}

func (s massiveSnapshot) rawQuote() chain.RawQuote {
	price := s.LastTrade.Price
	if price == nil || *price <= 0 {
		price = s.Day.Close
	}
	q := chain.RawQuote{
		chain.ColStrike:       s.Details.StrikePrice,
		chain.ColPrice:        nil,
		chain.ColRight:        s.Details.ContractType,
		chain.ColExpiry:       s.Details.ExpiryDate,
		chain.ColOpenInterest: nil,
	}
	if price != nil {
		q[chain.ColPrice] = *price
	}
	if s.OpenInterest != nil {
		q[chain.ColOpenInterest] = *s.OpenInterest
	}
	if s.UnderlyingAsset.Price != nil {
		q[chain.ColSpot] = *s.UnderlyingAsset.Price
	}
	return q
}

// paginate issues GET path with query, then follows next_url until it is
// empty. page sends the prepared request and returns the next URL.
func (massiveDataProv *massiveDataProvider) paginate(
	ctx context.Context,
	path string,
	query map[string]string,
	page func(r *resty.Request) (string, error),
) error {

	req := massiveDataProv.client.R().SetContext(ctx).SetQueryParams(query)
	req.Method = resty.MethodGet
	req.URL = path

	for n := 0; ; n++ {
		if n == maxPages {
			return fmt.Errorf("pagination exceeded %d pages at %s", maxPages, path)
		}
		logger.Tracef("event=massive_request url=%s page=%d", req.URL, n)

		next, err := page(req)
		if err != nil {
			return err
		}
		if next == "" {
			return nil
		}

		// next_url already carries the query
		req = massiveDataProv.client.R().SetContext(ctx)
		req.Method = resty.MethodGet
		req.URL = next
	}
}

// checkResponse folds transport errors and non-2xx statuses into one error.
func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.IsError() {
		msg := strings.TrimSpace(resp.String())
		if e, ok := resp.Error().(*massiveError); ok && e.Message != "" {
			msg = e.Message
		}
		logger.Errorf("event=massive_api_error status=%d message=%q", resp.StatusCode(), msg)
		return fmt.Errorf("massive returned status %d: %s", resp.StatusCode(), msg)
	}
	return nil
}
