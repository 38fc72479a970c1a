package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/spothinta/spothinta/pkg/types"
)

// ErrNoPrices indicates no price history exists yet.
var ErrNoPrices = errors.New("no price history found")

// Database defines the interface for persisting price history.
type Database interface {
	// InsertPrices adds price intervals, skipping any whose period already
	// exists. Confirmed history is never overwritten. Returns how many
	// intervals were actually inserted.
	InsertPrices(ctx context.Context, prices []types.PriceInterval) (int, error)

	// GetPricesForPeriod returns intervals fully contained in
	// [start, end], sorted ascending by start.
	GetPricesForPeriod(ctx context.Context, start, end time.Time) ([]types.PriceInterval, error)

	// GetLatestPriceTime returns the start of the most recent interval,
	// or ErrNoPrices when the store is empty.
	GetLatestPriceTime(ctx context.Context) (time.Time, error)

	// Lifecycle
	Close() error
}

// Configured sets up the storage provider based on flags.
func Configured() Database {
	provider := lflag.String("storage-provider", "firestore", "Storage provider to use (available: firestore, memory)")

	var p struct{ Database }

	fs := configuredFirestore()

	lflag.Do(func() {
		switch *provider {
		case "firestore":
			if err := fs.Validate(); err != nil {
				panic(fmt.Sprintf("firestore validation failed: %v", err))
			}
			if err := fs.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("firestore init failed: %v", err))
			}
			p.Database = fs
		case "memory":
			p.Database = NewMemory()
		default:
			panic(fmt.Sprintf("unknown storage provider: %s", *provider))
		}
	})

	return &p
}
