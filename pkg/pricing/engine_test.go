package pricing

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spothinta/spothinta/pkg/pricecache"
	"github.com/spothinta/spothinta/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	prices []types.PriceInterval
	err    error
}

func (s *fakeSource) GetPrices(ctx context.Context, start, end time.Time) ([]types.PriceInterval, error) {
	return s.prices, s.err
}

func consumptionCSV(rows ...string) *strings.Reader {
	lines := append([]string{"metering_point;site;area;resolution;unit;timestamp;amount"}, rows...)
	return strings.NewReader(strings.Join(lines, "\n"))
}

func csvRow(ts, amount string) string {
	return "meter;site;FI;hourly;kWh;" + ts + ";" + amount
}

func quarter() decimal.Decimal {
	return decimal.RequireFromString("0.25")
}

func TestEngineCalculateFixedCheaper(t *testing.T) {
	// 10:00 and 11:00 UTC land in the 12:00 and 13:00 Helsinki buckets
	csv := consumptionCSV(
		csvRow("2024-01-15T10:00:00Z", "2"),
		csvRow("2024-01-15T11:00:00Z", "3"),
	)
	base := time.Date(2024, 1, 15, 12, 0, 0, 0, types.Helsinki)
	src := &fakeSource{prices: []types.PriceInterval{
		interval(base, 1, "10"),
		interval(base.Add(time.Hour), 1, "20"),
	}}

	engine := NewEngine(src, quarter())
	fixed := decimal.NewFromInt(15)
	result, err := engine.Calculate(context.Background(), csv, &fixed)
	require.NoError(t, err)

	// spot: 2*10 + 3*20 = 80 cents; fixed: 5*15 = 75 cents
	assert.True(t, result.TotalSpotPrice.Equal(decimal.RequireFromString("0.8")), result.TotalSpotPrice.String())
	assert.True(t, result.TotalFixedPrice.Equal(decimal.RequireFromString("0.75")), result.TotalFixedPrice.String())
	assert.Equal(t, types.CheaperFixedPrice, result.CheaperOption)
	assert.True(t, result.TotalConsumption.Equal(decimal.NewFromInt(5)))
	assert.True(t, result.PriceDifference.Equal(decimal.RequireFromString("0.05")), result.PriceDifference.String())
	assert.True(t, result.EquivalentFixedPrice.IsZero())

	// both afternoon buckets would shift past the end of data, so the
	// optimized totals match the plain ones
	assert.True(t, result.TotalOptimizedSpotPrice.Equal(result.TotalSpotPrice))
	assert.True(t, result.OptimizedPriceDifference.Equal(result.PriceDifference))

	assert.Equal(t, base, result.StartDate)
	assert.Equal(t, base.Add(2*time.Hour), result.EndDate)
	require.Len(t, result.MonthlyData, 1)
	assert.True(t, result.MonthlyData[0].SpotPrice.Equal(decimal.RequireFromString("0.8")))
	require.Len(t, result.DailyData, 1)
	assert.Equal(t, "15.1.2024", result.DailyData[0].Day)
	require.Len(t, result.WeeklyData, 1)
	assert.Equal(t, 3, result.WeeklyData[0].Week)
}

func TestEngineCalculateSpotCheaper(t *testing.T) {
	csv := consumptionCSV(
		csvRow("2024-01-15T10:00:00Z", "2"),
		csvRow("2024-01-15T11:00:00Z", "3"),
	)
	base := time.Date(2024, 1, 15, 12, 0, 0, 0, types.Helsinki)
	src := &fakeSource{prices: []types.PriceInterval{
		interval(base, 1, "10"),
		interval(base.Add(time.Hour), 1, "20"),
	}}

	engine := NewEngine(src, quarter())
	fixed := decimal.NewFromInt(20)
	result, err := engine.Calculate(context.Background(), csv, &fixed)
	require.NoError(t, err)

	assert.Equal(t, types.CheaperSpotPrice, result.CheaperOption)
	// the flat rate that would have cost the same: 80 cents / 5 kWh
	assert.True(t, result.EquivalentFixedPrice.Equal(decimal.NewFromInt(16)), result.EquivalentFixedPrice.String())
}

func TestEngineCalculateNoFixedPrice(t *testing.T) {
	csv := consumptionCSV(csvRow("2024-01-15T10:00:00Z", "2"))
	base := time.Date(2024, 1, 15, 12, 0, 0, 0, types.Helsinki)
	src := &fakeSource{prices: []types.PriceInterval{interval(base, 1, "10")}}

	result, err := NewEngine(src, quarter()).Calculate(context.Background(), csv, nil)
	require.NoError(t, err)

	// without a fixed contract there is nothing to compare against
	assert.Equal(t, types.CheaperUnknown, result.CheaperOption)
	assert.True(t, result.TotalFixedPrice.IsZero())
}

func TestEngineCalculateNoPriceCoverage(t *testing.T) {
	csv := consumptionCSV(csvRow("2024-01-15T10:00:00Z", "2"))
	// prices exist but none cover the consumption hours
	elsewhere := time.Date(2023, 6, 1, 0, 0, 0, 0, types.Helsinki)
	src := &fakeSource{prices: []types.PriceInterval{interval(elsewhere, 1, "10")}}

	fixed := decimal.NewFromInt(15)
	result, err := NewEngine(src, quarter()).Calculate(context.Background(), csv, &fixed)
	require.NoError(t, err)

	// every hour was unmatched so the spot total is zero and the
	// comparison cannot be made
	assert.True(t, result.TotalSpotPrice.IsZero())
	assert.Equal(t, types.CheaperUnknown, result.CheaperOption)
}

func TestEngineCalculateEmptyUpload(t *testing.T) {
	result, err := NewEngine(&fakeSource{}, quarter()).Calculate(context.Background(), consumptionCSV(), nil)
	require.ErrorIs(t, err, ErrNoData)
	assert.Equal(t, types.DefaultResult(), result)
	assert.Equal(t, types.NoDataMessage, result.CheaperOption)
}

func TestEngineCalculateNoPricesForPeriod(t *testing.T) {
	csv := consumptionCSV(csvRow("2024-01-15T10:00:00Z", "2"))
	result, err := NewEngine(&fakeSource{}, quarter()).Calculate(context.Background(), csv, nil)
	require.ErrorIs(t, err, ErrNoData)
	assert.Equal(t, types.DefaultResult(), result)
}

func TestEngineCalculateSourceUnavailable(t *testing.T) {
	csv := consumptionCSV(csvRow("2024-01-15T10:00:00Z", "2"))
	src := &fakeSource{err: pricecache.ErrSourceUnavailable}

	result, err := NewEngine(src, quarter()).Calculate(context.Background(), csv, nil)
	require.ErrorIs(t, err, pricecache.ErrSourceUnavailable)
	var calcErr *CalculationError
	assert.NotErrorAs(t, err, &calcErr)
	assert.Equal(t, types.DefaultResult(), result)
}

func TestEngineCalculateOptimizationLowersCost(t *testing.T) {
	// afternoon consumption with an expensive afternoon and a cheap night
	csv := consumptionCSV(
		csvRow("2024-01-15T11:00:00Z", "4"), // 13:00 Helsinki
		csvRow("2024-01-16T00:00:00Z", "1"), // 02:00 Helsinki next day
	)
	day1 := time.Date(2024, 1, 15, 0, 0, 0, 0, types.Helsinki)
	day2 := day1.Add(24 * time.Hour)
	src := &fakeSource{prices: []types.PriceInterval{
		interval(day1, 24, "40"),
		interval(day2, 24, "4"),
	}}

	fixed := decimal.NewFromInt(15)
	result, err := NewEngine(src, quarter()).Calculate(context.Background(), csv, &fixed)
	require.NoError(t, err)

	// plain spot: 4*40 + 1*4 = 164 cents
	assert.True(t, result.TotalSpotPrice.Equal(decimal.RequireFromString("1.64")), result.TotalSpotPrice.String())
	// optimized: one kWh moves from 13:00 to 01:00 the next day,
	// 3*40 + 1*4 + 1*4 = 128 cents
	assert.True(t, result.TotalOptimizedSpotPrice.Equal(decimal.RequireFromString("1.28")), result.TotalOptimizedSpotPrice.String())
	assert.True(t, result.TotalOptimizedSpotPrice.LessThan(result.TotalSpotPrice))
}
