package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spothinta/spothinta/pkg/types"
)

// Memory is an in-process Database used for tests and local development.
type Memory struct {
	mu     sync.Mutex
	prices map[int64]types.PriceInterval
}

var _ Database = (*Memory)(nil)

// NewMemory creates an empty in-memory database.
func NewMemory() *Memory {
	return &Memory{prices: make(map[int64]types.PriceInterval)}
}

// InsertPrices stores the given intervals, skipping duplicates by start
// time.
func (m *Memory) InsertPrices(ctx context.Context, prices []types.PriceInterval) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inserted := 0
	for _, p := range prices {
		key := p.Start.Unix()
		if _, ok := m.prices[key]; ok {
			continue
		}
		m.prices[key] = p
		inserted++
	}
	return inserted, nil
}

// GetPricesForPeriod returns intervals fully contained in [start, end],
// sorted ascending by start.
func (m *Memory) GetPricesForPeriod(ctx context.Context, start, end time.Time) ([]types.PriceInterval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []types.PriceInterval
	for _, p := range m.prices {
		if !p.Start.Before(start) && !p.End.After(end) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out, nil
}

// GetLatestPriceTime returns the start of the most recent stored interval.
func (m *Memory) GetLatestPriceTime(ctx context.Context) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest time.Time
	for _, p := range m.prices {
		if p.Start.After(latest) {
			latest = p.Start
		}
	}
	if latest.IsZero() {
		return time.Time{}, ErrNoPrices
	}
	return latest, nil
}

// Close implements Database.
func (m *Memory) Close() error {
	return nil
}
