package storagemock

import (
	"context"
	"time"

	"github.com/spothinta/spothinta/pkg/storage"
	"github.com/spothinta/spothinta/pkg/types"
	"github.com/stretchr/testify/mock"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) InsertPrices(ctx context.Context, prices []types.PriceInterval) (int, error) {
	args := m.Called(ctx, prices)
	return args.Int(0), args.Error(1)
}

func (m *MockDatabase) GetPricesForPeriod(ctx context.Context, start, end time.Time) ([]types.PriceInterval, error) {
	args := m.Called(ctx, start, end)
	if prices, ok := args.Get(0).([]types.PriceInterval); ok {
		return prices, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDatabase) GetLatestPriceTime(ctx context.Context) (time.Time, error) {
	args := m.Called(ctx)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}
