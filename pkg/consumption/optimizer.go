package consumption

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spothinta/spothinta/pkg/log"
)

// load shifting moves demand out of the expensive afternoon window
// [12,23] into the cheap window twelve hours later
const (
	shiftWindowStartHour = 12
	shiftWindowEndHour   = 23
	shiftOffset          = 12 * time.Hour
)

// Shift redistributes a fraction of the consumption in every afternoon
// bucket (local hour 12 through 23) to the bucket twelve hours later. A
// move is applied only when the target timestamp does not exceed the
// latest timestamp present in the input; skipped moves leave the source
// bucket untouched so the total consumption is conserved for every move
// that lands. Returns the optimized map and the number of skipped moves.
// The input map is not modified.
func Shift(ctx context.Context, hourly *HourMap, fraction decimal.Decimal) (*HourMap, int) {
	optimized := NewHourMap()
	hourly.Each(func(ts time.Time, amount decimal.Decimal) {
		// hand-built maps may carry unaligned timestamps
		optimized.Add(HourBucket(ts), amount)
	})

	_, last, ok := optimized.Span()
	if !ok {
		return optimized, 0
	}

	var skipped int
	optimized.Each(func(ts time.Time, amount decimal.Decimal) {
		hour := ts.Hour()
		if hour < shiftWindowStartHour || hour > shiftWindowEndHour {
			return
		}
		moved := amount.Mul(fraction)
		target := ts.Add(shiftOffset)
		if target.After(last) {
			// no shifting into hours the dataset does not cover; the
			// source bucket keeps its full consumption
			skipped++
			log.Ctx(ctx).WarnContext(ctx, "cannot move consumption beyond end of data",
				slog.Time("timestamp", ts),
				slog.Time("target", target))
			return
		}
		optimized.Add(ts, moved.Neg())
		optimized.Add(target, moved)
	})

	log.Ctx(ctx).DebugContext(ctx, "consumption optimized",
		slog.Int("buckets", optimized.Len()),
		slog.Int("skippedMoves", skipped))
	return optimized, skipped
}
