// Package csvsource loads bar series from the price CSV format described
// in spec §6: a UTF-8 header row with at least "timestamp" and "price"
// columns, timestamps parsed with an ISO-8601-then-legacy fallback, rows
// that fail to parse skipped with a logged warning.
package csvsource

import (
	"encoding/csv"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/chidi150c/btcgrid/internal/model"
)

const legacyLayout = "2006-01-02 15:04:05"

// parseTimestamp tries ISO-8601 with either a "T" or a space separator,
// then the legacy "YYYY-MM-DD HH:MM:SS" layout.
func parseTimestamp(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t, true
	}
	if idx := strings.IndexByte(s, ' '); idx > 0 {
		if t, err := time.Parse("2006-01-02T15:04:05", s[:idx]+"T"+s[idx+1:]); err == nil {
			return t, true
		}
	}
	if t, err := time.Parse(legacyLayout, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// Load reads path and returns the bars sorted ascending by timestamp.
// Rows that fail to parse are skipped with a warning logged via logger
// (pass zerolog.Nop() to silence). Only "timestamp" and "price" are
// required; "open", "high", "low", "volume" are optional and default to
// price/zero when absent.
func Load(path string, logger zerolog.Logger) ([]model.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}

	tsCol, hasTS := col["timestamp"]
	priceCol, hasPrice := col["price"]
	if !hasTS || !hasPrice {
		return nil, nil
	}

	var out []model.Bar
	rowNum := 1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			logger.Warn().Int("row", rowNum).Err(err).Msg("skipping malformed CSV row")
			continue
		}
		if tsCol >= len(rec) || priceCol >= len(rec) {
			logger.Warn().Int("row", rowNum).Msg("skipping row with missing columns")
			continue
		}
		ts, ok := parseTimestamp(strings.TrimSpace(rec[tsCol]))
		if !ok {
			logger.Warn().Int("row", rowNum).Str("raw", rec[tsCol]).Msg("skipping row with unparseable timestamp")
			continue
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(rec[priceCol]), 64)
		if err != nil || price <= 0 {
			logger.Warn().Int("row", rowNum).Msg("skipping row with non-positive or unparseable price")
			continue
		}
		bar := model.Bar{Time: ts, Close: price, Open: price}
		if i, ok := col["open"]; ok && i < len(rec) {
			if v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64); err == nil {
				bar.Open = v
			}
		}
		if i, ok := col["high"]; ok && i < len(rec) {
			if v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64); err == nil {
				bar.High = v
			}
		}
		if i, ok := col["low"]; ok && i < len(rec) {
			if v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64); err == nil {
				bar.Low = v
			}
		}
		if i, ok := col["volume"]; ok && i < len(rec) {
			if v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64); err == nil {
				bar.Volume = v
			}
		}
		out = append(out, bar)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}
