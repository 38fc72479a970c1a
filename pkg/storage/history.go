package storage

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spothinta/spothinta/pkg/log"
	"github.com/spothinta/spothinta/pkg/types"
)

const historyBatchSize = 1000

// history exports stamp Helsinki wall-clock hour starts
var historyLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2.1.2006 15:04",
}

// HistoryStats summarizes a price history ingest.
type HistoryStats struct {
	Rows     int `json:"rows"`
	Skipped  int `json:"skipped"`
	Inserted int `json:"inserted"`
}

// LoadHistoryCSV ingests a semicolon-delimited "timestamp;price" history
// export into db. The first line is a header and is skipped. Each row
// becomes a one-hour interval starting at its Helsinki wall-clock
// timestamp. Rows with malformed fields or non-positive prices are
// skipped and counted; intervals already in the store are left untouched.
// Rows are written in batches so large exports do not buffer entirely in
// memory.
func LoadHistoryCSV(ctx context.Context, db Database, r io.Reader) (HistoryStats, error) {
	var stats HistoryStats

	scanner := bufio.NewScanner(r)
	batch := make([]types.PriceInterval, 0, historyBatchSize)
	var header bool
	for scanner.Scan() {
		if !header {
			header = true
			continue
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		stats.Rows++

		interval, err := parseHistoryRow(line)
		if err != nil {
			stats.Skipped++
			log.Ctx(ctx).WarnContext(ctx, "skipping invalid price history row",
				slog.String("row", line),
				slog.Any("error", err))
			continue
		}
		batch = append(batch, interval)

		if len(batch) == historyBatchSize {
			inserted, err := db.InsertPrices(ctx, batch)
			if err != nil {
				return stats, fmt.Errorf("failed to store price history batch: %w", err)
			}
			stats.Inserted += inserted
			batch = batch[:0]
			if err := ctx.Err(); err != nil {
				return stats, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("failed to read price history: %w", err)
	}
	if len(batch) > 0 {
		inserted, err := db.InsertPrices(ctx, batch)
		if err != nil {
			return stats, fmt.Errorf("failed to store price history batch: %w", err)
		}
		stats.Inserted += inserted
	}

	if stats.Inserted == 0 {
		log.Ctx(ctx).InfoContext(ctx, "no new price history rows, all duplicates or invalid")
	}
	log.Ctx(ctx).InfoContext(ctx, "price history processed",
		slog.Int("rows", stats.Rows),
		slog.Int("skipped", stats.Skipped),
		slog.Int("inserted", stats.Inserted))
	return stats, nil
}

func parseHistoryRow(line string) (types.PriceInterval, error) {
	columns := strings.Split(line, ";")
	if len(columns) < 2 {
		return types.PriceInterval{}, fmt.Errorf("expected 2 columns, got %d", len(columns))
	}

	var start time.Time
	var err error
	raw := strings.TrimSpace(columns[0])
	for _, layout := range historyLayouts {
		start, err = time.ParseInLocation(layout, raw, types.Helsinki)
		if err == nil {
			break
		}
	}
	if err != nil {
		return types.PriceInterval{}, fmt.Errorf("invalid timestamp %q: %w", columns[0], err)
	}

	price, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(columns[1]), ",", "."))
	if err != nil {
		return types.PriceInterval{}, fmt.Errorf("invalid price %q: %w", columns[1], err)
	}
	if !price.IsPositive() {
		return types.PriceInterval{}, fmt.Errorf("price must be positive, got %s", price)
	}

	return types.PriceInterval{
		Start:       start,
		End:         start.Add(time.Hour),
		CentsPerKWH: price,
	}, nil
}
