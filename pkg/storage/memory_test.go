package storage

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spothinta/spothinta/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hourPrice(start time.Time, price int64) types.PriceInterval {
	return types.PriceInterval{
		Start:       start,
		End:         start.Add(time.Hour),
		CentsPerKWH: decimal.NewFromInt(price),
	}
}

func TestMemoryInsertAndGet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	base := time.Date(2024, 1, 15, 0, 0, 0, 0, types.Helsinki)

	inserted, err := m.InsertPrices(ctx, []types.PriceInterval{
		hourPrice(base, 10),
		hourPrice(base.Add(time.Hour), 20),
		hourPrice(base.Add(2*time.Hour), 30),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, inserted)

	// re-inserting an existing hour is a no-op
	inserted, err = m.InsertPrices(ctx, []types.PriceInterval{
		hourPrice(base, 99),
		hourPrice(base.Add(3*time.Hour), 40),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	prices, err := m.GetPricesForPeriod(ctx, base, base.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, prices, 2)
	// confirmed history was not overwritten
	assert.True(t, prices[0].CentsPerKWH.Equal(decimal.NewFromInt(10)))
	assert.True(t, prices[0].Start.Before(prices[1].Start))

	latest, err := m.GetLatestPriceTime(ctx)
	require.NoError(t, err)
	assert.True(t, latest.Equal(base.Add(3*time.Hour)))
}

func TestMemoryEmpty(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	prices, err := m.GetPricesForPeriod(ctx, time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	assert.Empty(t, prices)

	_, err = m.GetLatestPriceTime(ctx)
	assert.ErrorIs(t, err, ErrNoPrices)
}
