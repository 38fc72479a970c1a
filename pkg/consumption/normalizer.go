package consumption

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spothinta/spothinta/pkg/log"
	"github.com/spothinta/spothinta/pkg/types"
)

const (
	// column layout of the meter export format: the timestamp is the sixth
	// semicolon-delimited column and the kWh amount the seventh
	timestampColumn = 5
	amountColumn    = 6
	minColumns      = 7

	lineBatchSize = 256
	parseWorkers  = 4
)

// timestamps come through in a handful of shapes depending on which export
// produced the file; unzoned values are treated as UTC
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// IngestStats summarizes a normalization pass.
type IngestStats struct {
	Lines   int
	Skipped int
}

// ReadHourlyConsumption parses semicolon-delimited meter readings from r
// into an HourMap. The first line is a header and is always skipped.
// Each timestamp is parsed as UTC unless explicitly zoned, converted to
// Helsinki time as an instant and truncated to the hour; readings landing
// in the same hour accumulate by addition. Malformed lines are skipped and
// counted, they never abort the batch. Cancellation is checked between
// line batches.
func ReadHourlyConsumption(ctx context.Context, r io.Reader) (*HourMap, IngestStats, error) {
	hourly := NewHourMap()
	scanner := bufio.NewScanner(r)

	var skipped atomic.Int64
	var wg sync.WaitGroup
	batches := make(chan []string, parseWorkers)
	for range parseWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range batches {
				for _, line := range batch {
					ts, amount, err := ParseLine(line)
					if err != nil {
						skipped.Add(1)
						log.Ctx(ctx).WarnContext(ctx, "skipping invalid consumption line",
							slog.String("line", line),
							slog.Any("error", err))
						continue
					}
					hourly.Add(ts, amount)
				}
			}
		}()
	}

	var stats IngestStats
	var header bool
	batch := make([]string, 0, lineBatchSize)
	var scanErr error
	for scanner.Scan() {
		if !header {
			// first line is always the header row
			header = true
			continue
		}
		stats.Lines++
		batch = append(batch, scanner.Text())
		if len(batch) == lineBatchSize {
			batches <- batch
			batch = make([]string, 0, lineBatchSize)
			if err := ctx.Err(); err != nil {
				scanErr = err
				break
			}
		}
	}
	if scanErr == nil {
		if len(batch) > 0 {
			batches <- batch
		}
		scanErr = scanner.Err()
	}
	close(batches)
	wg.Wait()

	stats.Skipped = int(skipped.Load())
	if scanErr != nil {
		return nil, stats, fmt.Errorf("failed to read consumption data: %w", scanErr)
	}

	log.Ctx(ctx).DebugContext(ctx, "normalized consumption data",
		slog.Int("lines", stats.Lines),
		slog.Int("skipped", stats.Skipped),
		slog.Int("buckets", hourly.Len()))
	return hourly, stats, nil
}

// ParseLine parses a single meter reading row and returns the Helsinki
// hour bucket it belongs to along with the kWh amount. The amount may use
// either "." or "," as the decimal separator.
func ParseLine(line string) (time.Time, decimal.Decimal, error) {
	columns := strings.Split(line, ";")
	if len(columns) < minColumns {
		return time.Time{}, decimal.Decimal{}, fmt.Errorf("expected at least %d columns, got %d", minColumns, len(columns))
	}

	ts, err := parseTimestamp(strings.TrimSpace(columns[timestampColumn]))
	if err != nil {
		return time.Time{}, decimal.Decimal{}, fmt.Errorf("invalid timestamp %q: %w", columns[timestampColumn], err)
	}

	raw := strings.ReplaceAll(strings.TrimSpace(columns[amountColumn]), ",", ".")
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return time.Time{}, decimal.Decimal{}, fmt.Errorf("invalid amount %q: %w", columns[amountColumn], err)
	}

	return HourBucket(ts), amount, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// HourBucket converts an instant to Helsinki time and truncates minutes
// and seconds. The conversion happens to the instant, not the parsed wall
// clock, so buckets stay correct across DST transitions.
func HourBucket(ts time.Time) time.Time {
	local := ts.In(types.Helsinki)
	return time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, types.Helsinki)
}
