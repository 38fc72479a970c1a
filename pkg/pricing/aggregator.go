package pricing

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spothinta/spothinta/pkg/types"
)

// prices are carried in cents per kWh; monetary rollups convert to whole
// currency units here and nowhere else
var centsPerUnit = decimal.NewFromInt(100)

func centsToCurrency(cents decimal.Decimal) decimal.Decimal {
	return cents.Div(centsPerUnit)
}

type monthKey struct {
	month time.Month
	year  int
}

type weekKey struct {
	week int
	year int
}

// Aggregation folds (timestamp, consumption, spot cost, fixed cost)
// samples into monthly, weekly and daily buckets in a single pass, keeping
// running totals. Totals stay in cents; the per-bucket rollups are
// converted to currency units at accumulation. Buckets are created lazily
// on the first sample touching their period and are read-only once the
// pass completes.
type Aggregation struct {
	TotalSpotPrice   decimal.Decimal
	TotalFixedPrice  decimal.Decimal
	TotalConsumption decimal.Decimal

	// UnmatchedHours counts buckets no price interval covered; each one
	// contributed zero to the spot total.
	UnmatchedHours int

	monthly map[monthKey]*types.MonthlyConsumption
	weekly  map[weekKey]*types.WeeklyConsumption
	daily   map[time.Time]*types.DailyConsumption
}

// NewAggregation creates an empty Aggregation.
func NewAggregation() *Aggregation {
	return &Aggregation{
		monthly: make(map[monthKey]*types.MonthlyConsumption),
		weekly:  make(map[weekKey]*types.WeeklyConsumption),
		daily:   make(map[time.Time]*types.DailyConsumption),
	}
}

// Accumulate adds one hour bucket to the totals and all three rollups.
// spotCost and fixedCost are in cents. The weekly key follows the ISO 8601
// rule: weeks start Monday and week 1 is the first week with at least four
// days of the year, paired with the ISO week-year.
func (a *Aggregation) Accumulate(ts time.Time, consumption, spotCost, fixedCost decimal.Decimal) {
	a.TotalSpotPrice = a.TotalSpotPrice.Add(spotCost)
	a.TotalFixedPrice = a.TotalFixedPrice.Add(fixedCost)
	a.TotalConsumption = a.TotalConsumption.Add(consumption)

	spot := centsToCurrency(spotCost)
	fixed := centsToCurrency(fixedCost)

	mk := monthKey{month: ts.Month(), year: ts.Year()}
	monthly, ok := a.monthly[mk]
	if !ok {
		monthly = &types.MonthlyConsumption{Month: int(mk.month), Year: mk.year}
		a.monthly[mk] = monthly
	}
	monthly.Consumption = monthly.Consumption.Add(consumption)
	monthly.SpotPrice = monthly.SpotPrice.Add(spot)
	monthly.FixedPrice = monthly.FixedPrice.Add(fixed)

	isoYear, isoWeek := ts.ISOWeek()
	wk := weekKey{week: isoWeek, year: isoYear}
	weekly, ok := a.weekly[wk]
	if !ok {
		weekly = &types.WeeklyConsumption{Week: wk.week, Year: wk.year}
		a.weekly[wk] = weekly
	}
	weekly.Consumption = weekly.Consumption.Add(consumption)
	weekly.SpotPrice = weekly.SpotPrice.Add(spot)
	weekly.FixedPrice = weekly.FixedPrice.Add(fixed)

	day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, ts.Location())
	daily, ok := a.daily[day]
	if !ok {
		daily = &types.DailyConsumption{
			Day: fmt.Sprintf("%d.%d.%d", day.Day(), int(day.Month()), day.Year()),
		}
		a.daily[day] = daily
	}
	daily.Consumption = daily.Consumption.Add(consumption)
	daily.SpotPrice = daily.SpotPrice.Add(spot)
	daily.FixedPrice = daily.FixedPrice.Add(fixed)
}

// Monthly returns the monthly rollups in chronological order.
func (a *Aggregation) Monthly() []types.MonthlyConsumption {
	keys := make([]monthKey, 0, len(a.monthly))
	for k := range a.monthly {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].month < keys[j].month
	})
	out := make([]types.MonthlyConsumption, 0, len(keys))
	for _, k := range keys {
		out = append(out, *a.monthly[k])
	}
	return out
}

// Weekly returns the weekly rollups in chronological order.
func (a *Aggregation) Weekly() []types.WeeklyConsumption {
	keys := make([]weekKey, 0, len(a.weekly))
	for k := range a.weekly {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].week < keys[j].week
	})
	out := make([]types.WeeklyConsumption, 0, len(keys))
	for _, k := range keys {
		out = append(out, *a.weekly[k])
	}
	return out
}

// Daily returns the daily rollups in chronological order.
func (a *Aggregation) Daily() []types.DailyConsumption {
	keys := make([]time.Time, 0, len(a.daily))
	for k := range a.daily {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Before(keys[j])
	})
	out := make([]types.DailyConsumption, 0, len(keys))
	for _, k := range keys {
		out = append(out, *a.daily[k])
	}
	return out
}
