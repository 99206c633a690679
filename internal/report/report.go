// Package report lays the enriched Call and Put chains side by side and
// persists the result as CSV or JSON.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/contactkeval/option-chain-greeks/internal/chain"
	"github.com/contactkeval/option-chain-greeks/internal/logger"
)

// Line is one strike of the merged chain. A nil side means that kind had no
// row at this strike (e.g. its chain was empty).
type Line struct {
	Strike float64              `json:"strike"`
	Call   *chain.EnrichedQuote `json:"call"`
	Put    *chain.EnrichedQuote `json:"put"`
}

// Table is the full snapshot result for one underlying and expiry.
type Table struct {
	Underlying   string    `json:"underlying"`
	Expiry       string    `json:"expiry"`
	Spot         float64   `json:"spot"`
	ATM          float64   `json:"atm"`
	RiskFreeRate float64   `json:"risk_free_rate"`
	Generated    time.Time `json:"generated_at"`
	Lines        []Line    `json:"lines"`
}

// Merge pairs calls and puts by strike, ascending.
func Merge(calls, puts []chain.EnrichedQuote) []Line {
	byKey := make(map[string]*Line, len(calls))
	var lines []*Line

	line := func(strike float64) *Line {
		key := decimal.NewFromFloat(strike).Round(8).String()
		if l, ok := byKey[key]; ok {
			return l
		}
		l := &Line{Strike: strike}
		byKey[key] = l
		lines = append(lines, l)
		return l
	}

	for i := range calls {
		line(calls[i].Strike).Call = &calls[i]
	}
	for i := range puts {
		line(puts[i].Strike).Put = &puts[i]
	}

	sort.Slice(lines, func(i, j int) bool { return lines[i].Strike < lines[j].Strike })

	out := make([]Line, len(lines))
	for i, l := range lines {
		out[i] = *l
	}
	return out
}

var csvHeader = []string{
	"strike",
	"call_ltp", "call_oi", "call_iv", "call_delta", "call_gamma", "call_theta", "call_vega",
	"put_ltp", "put_oi", "put_iv", "put_delta", "put_gamma", "put_theta", "put_vega",
}

// EncodeCSV writes one row per line. Undefined values are empty cells.
func EncodeCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, l := range t.Lines {
		row := append([]string{plain(l.Strike)}, side(l.Call)...)
		row = append(row, side(l.Put)...)
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func side(q *chain.EnrichedQuote) []string {
	cells := make([]string, 7)
	if q == nil {
		return cells
	}
	cells[0] = plainPtr(q.LastPrice)
	cells[1] = plainPtr(q.OpenInterest)
	if q.IV != nil {
		cells[2] = fixed(*q.IV)
	}
	if q.Greeks != nil {
		cells[3] = fixed(q.Greeks.Delta)
		cells[4] = fixed(q.Greeks.Gamma)
		cells[5] = fixed(q.Greeks.Theta)
		cells[6] = fixed(q.Greeks.Vega)
	}
	return cells
}

func plain(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func plainPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return plain(*v)
}

func fixed(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }

// FileBase is the file name stem used for t, e.g. NIFTY_2025-03-27_greeks.
func FileBase(t *Table) string {
	expiry := strings.NewReplacer("/", "-", ":", "", " ", "_").Replace(t.Expiry)
	return fmt.Sprintf("%s_%s_greeks", strings.ToUpper(t.Underlying), expiry)
}

// WriteCSV writes t to outdir and returns the file path.
func WriteCSV(t *Table, outdir string) (string, error) {
	if err := os.MkdirAll(outdir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(outdir, FileBase(t)+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := EncodeCSV(f, t); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	logger.Infof("event=report_written format=csv path=%s lines=%d", path, len(t.Lines))
	return path, nil
}

// WriteJSON writes t to outdir as indented JSON and returns the file path.
func WriteJSON(t *Table, outdir string) (string, error) {
	if err := os.MkdirAll(outdir, 0755); err != nil {
		return "", err
	}
	b, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(outdir, FileBase(t)+".json")
	if err := os.WriteFile(path, b, 0644); err != nil {
		return "", err
	}
	logger.Infof("event=report_written format=json path=%s lines=%d", path, len(t.Lines))
	return path, nil
}
