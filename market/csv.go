package market

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// CSVSource serves bars from per-symbol CSV files in a directory:
// <dir>/<SYMBOL>.csv with columns time,open,high,low,close,volume.
// Timestamps are RFC3339 or plain dates (2006-01-02).
type CSVSource struct {
	Dir string
}

func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{Dir: dir}
}

func (s *CSVSource) GetBars(ctx context.Context, symbol string, start, end time.Time, interval string) ([]Bar, error) {
	_ = interval // file holds a single timeframe

	path := filepath.Join(s.Dir, symbol+".csv")
	bars, err := LoadBarsCSV(path)
	if err != nil {
		return nil, fmt.Errorf("load bars for %s: %w", symbol, err)
	}

	out := bars[:0:0]
	for _, b := range bars {
		if !start.IsZero() && b.Time.Before(start) {
			continue
		}
		if !end.IsZero() && b.Time.After(end) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// LoadBarsCSV reads a full bar file. Header row is allowed; rows must
// be in ascending time order.
func LoadBarsCSV(path string) ([]Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var bars []Bar
	sawFirst := false

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) == 0 {
			continue
		}

		if !sawFirst {
			sawFirst = true
			if strings.EqualFold(strings.TrimSpace(row[0]), "time") {
				continue
			}
		}

		if len(row) < 5 {
			return nil, fmt.Errorf("%s: row needs at least time,open,high,low,close", path)
		}

		b, err := parseBarRow(row)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		bars = append(bars, b)
	}

	if err := ValidateSeries(bars); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bars, nil
}

func parseBarRow(row []string) (Bar, error) {
	ts, err := parseTime(strings.TrimSpace(row[0]))
	if err != nil {
		return Bar{}, err
	}

	vals := make([]float64, 0, 5)
	for _, cell := range row[1:] {
		v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
		if err != nil {
			return Bar{}, fmt.Errorf("parse %q: %w", cell, err)
		}
		vals = append(vals, v)
		if len(vals) == 5 {
			break
		}
	}

	b := Bar{Time: ts, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3]}
	if len(vals) >= 5 {
		b.Volume = vals[4]
	}
	return b, nil
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
