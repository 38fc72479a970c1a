package spotfeed

import (
	"context"

	"github.com/spothinta/spothinta/pkg/types"
)

// Provider defines the interface for fetching spot prices from an
// external feed. Implementations return hourly intervals already
// normalized to Helsinki time.
type Provider interface {
	// FetchLatest returns the most recently published prices. The feed
	// publishes day-ahead prices, so the result usually extends past the
	// current hour.
	FetchLatest(ctx context.Context) ([]types.PriceInterval, error)

	// Validate ensures the configuration is valid.
	Validate() error
}
