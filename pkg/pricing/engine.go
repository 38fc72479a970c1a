package pricing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/shopspring/decimal"
	"github.com/spothinta/spothinta/pkg/consumption"
	"github.com/spothinta/spothinta/pkg/log"
	"github.com/spothinta/spothinta/pkg/pricecache"
	"github.com/spothinta/spothinta/pkg/types"
)

// ErrNoData indicates an empty consumption file or an empty price set for
// the requested period. Callers still receive the well-formed
// DefaultResult alongside it.
var ErrNoData = errors.New("no data found for the requested period")

// CalculationError wraps an unexpected internal failure so the HTTP
// boundary can tell it apart from the recoverable no-data cases.
type CalculationError struct {
	Err error
}

func (e *CalculationError) Error() string {
	return fmt.Sprintf("an error occurred while calculating the consumption price: %v", e.Err)
}

func (e *CalculationError) Unwrap() error {
	return e.Err
}

// PriceSource returns the price intervals covering [start, end), sorted
// ascending by start.
type PriceSource interface {
	GetPrices(ctx context.Context, start, end time.Time) ([]types.PriceInterval, error)
}

// Engine orchestrates the full comparison: normalize the consumption
// upload, fetch prices through the range cache, match and aggregate, run
// the load-shift optimization, aggregate again, and assemble the result.
type Engine struct {
	prices           PriceSource
	optimizeFraction decimal.Decimal
}

// Configured sets up the engine with flags.
func Configured(prices PriceSource) *Engine {
	e := &Engine{prices: prices}
	fraction := lflag.String("optimize-fraction", "0.25", "Fraction of afternoon consumption the optimizer moves to the following morning")

	lflag.Do(func() {
		f, err := decimal.NewFromString(*fraction)
		if err != nil {
			panic(fmt.Errorf("invalid optimize-fraction (%s): %w", *fraction, err))
		}
		e.optimizeFraction = f
	})

	return e
}

// NewEngine creates an engine with an explicit optimize fraction. This is
// primarily used for testing.
func NewEngine(prices PriceSource, optimizeFraction decimal.Decimal) *Engine {
	return &Engine{prices: prices, optimizeFraction: optimizeFraction}
}

// Calculate runs the comparison over a consumption CSV upload. fixedPrice
// is the optional flat rate in cents per kWh to compare against.
//
// Recoverable failures (empty upload, no prices for the period, backing
// source down) return the sentinel DefaultResult together with a typed
// error: ErrNoData, pricecache.ErrSourceUnavailable, or a wrapped read
// error. Anything unexpected is returned as a CalculationError. The result
// value is always well formed.
func (e *Engine) Calculate(ctx context.Context, consumptionCSV io.Reader, fixedPrice *decimal.Decimal) (types.ComparisonResult, error) {
	log.Ctx(ctx).InfoContext(ctx, "start calculating total consumption prices")

	hourly, stats, err := consumption.ReadHourlyConsumption(ctx, consumptionCSV)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to read consumption upload", slog.Any("error", err))
		return types.DefaultResult(), fmt.Errorf("failed to read consumption upload: %w", err)
	}
	if hourly.Len() == 0 {
		log.Ctx(ctx).WarnContext(ctx, "no consumption data found in upload",
			slog.Int("lines", stats.Lines),
			slog.Int("skipped", stats.Skipped))
		return types.DefaultResult(), ErrNoData
	}

	startDate, lastHour, _ := hourly.Span()
	endDate := lastHour.Add(time.Hour)

	log.Ctx(ctx).DebugContext(ctx, "fetching electricity prices",
		slog.Time("start", startDate),
		slog.Time("end", endDate))
	prices, err := e.prices.GetPrices(ctx, startDate, endDate)
	if err != nil {
		if errors.Is(err, pricecache.ErrSourceUnavailable) {
			log.Ctx(ctx).ErrorContext(ctx, "price source unavailable", slog.Any("error", err))
			return types.DefaultResult(), err
		}
		return types.DefaultResult(), &CalculationError{Err: err}
	}
	if len(prices) == 0 {
		log.Ctx(ctx).WarnContext(ctx, "no electricity prices found for period",
			slog.Time("start", startDate),
			slog.Time("end", endDate))
		return types.DefaultResult(), ErrNoData
	}

	processed := e.process(ctx, hourly, prices, fixedPrice)

	cheaperOption := e.determineCheaperOption(ctx, processed, fixedPrice)
	priceDifference := centsToCurrency(processed.TotalSpotPrice.Sub(processed.TotalFixedPrice).Abs())
	var equivalentFixedPrice decimal.Decimal
	if cheaperOption == types.CheaperSpotPrice && !processed.TotalConsumption.IsZero() {
		equivalentFixedPrice = processed.TotalSpotPrice.Div(processed.TotalConsumption)
	}

	log.Ctx(ctx).DebugContext(ctx, "optimizing consumption")
	optimized, skippedMoves := consumption.Shift(ctx, hourly, e.optimizeFraction)
	optimizedData := e.process(ctx, optimized, prices, fixedPrice)
	optimizedPriceDifference := centsToCurrency(optimizedData.TotalSpotPrice.Sub(processed.TotalFixedPrice).Abs())

	log.Ctx(ctx).InfoContext(ctx, "calculation completed",
		slog.Int("unmatchedHours", processed.UnmatchedHours),
		slog.Int("skippedMoves", skippedMoves))

	return types.ComparisonResult{
		TotalSpotPrice:           centsToCurrency(processed.TotalSpotPrice),
		TotalFixedPrice:          centsToCurrency(processed.TotalFixedPrice),
		CheaperOption:            cheaperOption,
		TotalConsumption:         processed.TotalConsumption,
		PriceDifference:          priceDifference,
		OptimizedPriceDifference: optimizedPriceDifference,
		EquivalentFixedPrice:     equivalentFixedPrice,
		TotalOptimizedSpotPrice:  centsToCurrency(optimizedData.TotalSpotPrice),
		MonthlyData:              processed.Monthly(),
		WeeklyData:               processed.Weekly(),
		DailyData:                processed.Daily(),
		StartDate:                startDate,
		EndDate:                  endDate,
	}, nil
}

// process matches every hour bucket against the price intervals and folds
// the triples into an Aggregation.
func (e *Engine) process(ctx context.Context, hourly *consumption.HourMap, prices []types.PriceInterval, fixedPrice *decimal.Decimal) *Aggregation {
	agg := NewAggregation()
	hourly.Each(func(ts time.Time, amount decimal.Decimal) {
		var spotCost decimal.Decimal
		price, ok := PriceAt(ts, prices)
		if ok {
			spotCost = amount.Mul(price)
		} else {
			agg.UnmatchedHours++
			log.Ctx(ctx).WarnContext(ctx, "no price found for timestamp", slog.Time("timestamp", ts))
		}

		var fixedCost decimal.Decimal
		if fixedPrice != nil {
			fixedCost = amount.Mul(*fixedPrice)
		}

		agg.Accumulate(ts, amount, spotCost, fixedCost)
	})
	return agg
}

// determineCheaperOption compares the spot and fixed totals. A zero total
// on either side means the comparison cannot be made; fixed price wins
// only when one was actually supplied and costs less.
func (e *Engine) determineCheaperOption(ctx context.Context, processed *Aggregation, fixedPrice *decimal.Decimal) string {
	if processed.TotalFixedPrice.IsZero() || processed.TotalSpotPrice.IsZero() {
		log.Ctx(ctx).WarnContext(ctx, "total fixed or spot price is zero, cannot determine the cheaper option")
		return types.CheaperUnknown
	}
	if fixedPrice != nil && processed.TotalFixedPrice.LessThan(processed.TotalSpotPrice) {
		return types.CheaperFixedPrice
	}
	return types.CheaperSpotPrice
}
