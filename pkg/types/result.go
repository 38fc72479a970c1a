package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// CheaperOption classifies which pricing model came out ahead.
const (
	CheaperFixedPrice = "FixedPrice"
	CheaperSpotPrice  = "SpotPrice"
	CheaperUnknown    = "Error"

	// NoDataMessage is the sentinel CheaperOption value of DefaultResult.
	// Callers always receive a well-formed result object; this string is
	// what distinguishes "could not compute" from a genuine comparison.
	NoDataMessage = "Error calculating data, or no data were found"
)

// MonthlyConsumption accumulates one calendar month of consumption and cost.
type MonthlyConsumption struct {
	Month       int             `json:"month"`
	Year        int             `json:"year"`
	Consumption decimal.Decimal `json:"consumption"`
	SpotPrice   decimal.Decimal `json:"spotPrice"`
	FixedPrice  decimal.Decimal `json:"fixedPrice"`
}

// WeeklyConsumption accumulates one ISO 8601 week of consumption and cost.
// Week numbering starts Monday and the first week is the one containing at
// least four days of the year; Year is the ISO week-year, which can differ
// from the calendar year of the samples near year boundaries.
type WeeklyConsumption struct {
	Week        int             `json:"week"`
	Year        int             `json:"year"`
	Consumption decimal.Decimal `json:"consumption"`
	SpotPrice   decimal.Decimal `json:"spotPrice"`
	FixedPrice  decimal.Decimal `json:"fixedPrice"`
}

// DailyConsumption accumulates one civil day of consumption and cost.
// Day is formatted as d.M.yyyy in Helsinki time.
type DailyConsumption struct {
	Day         string          `json:"day"`
	Consumption decimal.Decimal `json:"consumption"`
	SpotPrice   decimal.Decimal `json:"spotPrice"`
	FixedPrice  decimal.Decimal `json:"fixedPrice"`
}

// ComparisonResult is the full spot-vs-fixed cost comparison for one
// consumption dataset. Produced once per engine invocation and never
// mutated afterwards. Monetary totals are in whole currency units;
// EquivalentFixedPrice is in cents per kWh.
type ComparisonResult struct {
	TotalSpotPrice           decimal.Decimal      `json:"totalSpotPrice"`
	TotalFixedPrice          decimal.Decimal      `json:"totalFixedPrice"`
	CheaperOption            string               `json:"cheaperOption"`
	TotalConsumption         decimal.Decimal      `json:"totalConsumption"`
	PriceDifference          decimal.Decimal      `json:"priceDifference"`
	OptimizedPriceDifference decimal.Decimal      `json:"optimizedPriceDifference"`
	EquivalentFixedPrice     decimal.Decimal      `json:"equivalentFixedPrice"`
	TotalOptimizedSpotPrice  decimal.Decimal      `json:"totalOptimizedSpotPrice"`
	MonthlyData              []MonthlyConsumption `json:"monthlyData"`
	WeeklyData               []WeeklyConsumption  `json:"weeklyData"`
	DailyData                []DailyConsumption   `json:"dailyData"`
	StartDate                time.Time            `json:"startDate"`
	EndDate                  time.Time            `json:"endDate"`
}

// DefaultResult returns the sentinel result served when a calculation could
// not be performed: zero totals, empty rollups and the NoDataMessage marker.
func DefaultResult() ComparisonResult {
	return ComparisonResult{
		CheaperOption: NoDataMessage,
		MonthlyData:   []MonthlyConsumption{},
		WeeklyData:    []WeeklyConsumption{},
		DailyData:     []DailyConsumption{},
	}
}
