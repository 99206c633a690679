package data

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/contactkeval/option-chain-greeks/internal/chain"
	"github.com/contactkeval/option-chain-greeks/internal/logger"
	"github.com/contactkeval/option-chain-greeks/internal/pricing"
)

// colUnderlying optionally restricts a CSV row to one underlying.
const colUnderlying = "underlying"

// localCSVDataProvider reads an option chain export from a CSV file.
//
// The header row names the columns; the chain.Col* names are used as is.
// Cells are passed through as strings so that normalization owns coercion.
type localCSVDataProvider struct {
	path      string
	secondary Provider
}

// NewLocalCSVDataProvider convenience constructor.
func NewLocalCSVDataProvider(path string, secondary Provider) *localCSVDataProvider {
	logger.Infof("event=provider_init kind=csv path=%s", path)
	return &localCSVDataProvider{path: path, secondary: secondary}
}

func (localCSVDataProv *localCSVDataProvider) Secondary() Provider {
	return localCSVDataProv.secondary
}

// Spot returns the first positive spot_price of the underlying, or asks the
// secondary provider when the file carries none.
func (localCSVDataProv *localCSVDataProvider) Spot(ctx context.Context, underlying string) (float64, error) {
	rows, err := localCSVDataProv.read(underlying)
	if err != nil {
		return 0, err
	}

	for _, row := range rows {
		cell, ok := row[chain.ColSpot].(string)
		if !ok {
			continue
		}
		if spot, err := strconv.ParseFloat(strings.TrimSpace(cell), 64); err == nil && spot > 0 {
			return spot, nil
		}
	}

	if localCSVDataProv.secondary != nil {
		logger.Debugf("event=spot_fallback underlying=%s path=%s", underlying, localCSVDataProv.path)
		return localCSVDataProv.secondary.Spot(ctx, underlying)
	}
	return 0, fmt.Errorf("%w: %s not in %s", ErrNoSpot, underlying, localCSVDataProv.path)
}

// Expiries lists the distinct parseable expiry dates in the file.
func (localCSVDataProv *localCSVDataProvider) Expiries(ctx context.Context, underlying string) ([]time.Time, error) {
	rows, err := localCSVDataProv.read(underlying)
	if err != nil {
		return nil, err
	}

	var dates []time.Time
	for _, row := range rows {
		raw, _ := row[chain.ColExpiry].(string)
		t, err := pricing.ParseExpiry(raw)
		if err != nil {
			continue
		}
		dates = append(dates, t)
	}

	dates = sortedUnique(dates)
	if len(dates) == 0 {
		if localCSVDataProv.secondary != nil {
			return localCSVDataProv.secondary.Expiries(ctx, underlying)
		}
		return nil, fmt.Errorf("%w: %s in %s", ErrNoExpiries, underlying, localCSVDataProv.path)
	}
	return dates, nil
}

// Chain returns the rows of kind expiring on the same day as expiry. A zero
// expiry disables the date filter. Rows whose right cannot be parsed are kept
// and left for normalization to reject.
func (localCSVDataProv *localCSVDataProvider) Chain(
	ctx context.Context,
	underlying string,
	expiry time.Time,
	kind pricing.OptionKind,
) ([]chain.RawQuote, error) {

	rows, err := localCSVDataProv.read(underlying)
	if err != nil {
		return nil, err
	}

	out := make([]chain.RawQuote, 0, len(rows))
	for _, row := range rows {
		if right, ok := row[chain.ColRight].(string); ok {
			if k, err := pricing.ParseOptionKind(right); err == nil && k != kind {
				continue
			}
		}
		if !expiry.IsZero() {
			raw, _ := row[chain.ColExpiry].(string)
			t, err := pricing.ParseExpiry(raw)
			if err != nil || !truncateDay(t).Equal(truncateDay(expiry)) {
				continue
			}
		}
		out = append(out, row)
	}

	logger.Debugf("event=chain_loaded path=%s underlying=%s kind=%s rows=%d", localCSVDataProv.path, underlying, kind, len(out))
	return out, nil
}

// read loads the whole file. Only the columns present in the header are set
// on each row.
func (localCSVDataProv *localCSVDataProvider) read(underlying string) ([]chain.RawQuote, error) {
	f, err := os.Open(localCSVDataProv.path)
	if err != nil {
		return nil, fmt.Errorf("open chain csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	var out []chain.RawQuote
	for line := 2; ; line++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}

		row := make(chain.RawQuote, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = strings.TrimSpace(record[i])
			} else {
				row[col] = ""
			}
		}

		if u, ok := row[colUnderlying].(string); ok && u != "" && underlying != "" && !strings.EqualFold(u, underlying) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}
