package spotfeed

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spothinta/spothinta/pkg/types"
)

// Mock is a spot feed that generates a deterministic daily price curve.
// This is primarily used for local development without feed access.
type Mock struct{}

// Validate ensures the configuration is valid.
func (m *Mock) Validate() error {
	return nil
}

// FetchLatest returns 48 hourly prices starting at midnight Helsinki time
// today: cheap nights, a morning and an evening peak.
func (m *Mock) FetchLatest(ctx context.Context) ([]types.PriceInterval, error) {
	now := time.Now().In(types.Helsinki)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, types.Helsinki)

	prices := make([]types.PriceInterval, 0, 48)
	for i := range 48 {
		ts := start.Add(time.Duration(i) * time.Hour)
		cents := decimal.NewFromInt(4)
		switch hour := ts.Hour(); {
		case hour >= 7 && hour < 10:
			cents = decimal.NewFromInt(18)
		case hour >= 10 && hour < 16:
			cents = decimal.NewFromInt(9)
		case hour >= 16 && hour < 21:
			cents = decimal.NewFromInt(24)
		}
		prices = append(prices, types.PriceInterval{
			Start:       ts,
			End:         ts.Add(time.Hour),
			CentsPerKWH: cents,
		})
	}
	return prices, nil
}
