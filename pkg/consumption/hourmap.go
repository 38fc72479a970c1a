package consumption

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spothinta/spothinta/pkg/types"
)

const hourMapShards = 16

// HourMap is a concurrent map of hour-aligned timestamps to consumption
// amounts in kWh. Multiple producers may append samples from parallel file
// chunks; the per-key update is an atomic add-or-insert under the shard
// lock, so concurrent writers touching the same hour never lose updates.
type HourMap struct {
	shards [hourMapShards]hourShard
}

type hourShard struct {
	mu      sync.Mutex
	buckets map[int64]decimal.Decimal
}

// NewHourMap creates an empty HourMap.
func NewHourMap() *HourMap {
	m := &HourMap{}
	for i := range m.shards {
		m.shards[i].buckets = make(map[int64]decimal.Decimal)
	}
	return m
}

func (m *HourMap) shard(key int64) *hourShard {
	// keys are hour-aligned unix seconds, all multiples of 3600; divide
	// out the alignment before taking the modulus so consecutive hours
	// land on different shards
	return &m.shards[uint64(key/3600)%hourMapShards]
}

// Add accumulates amount into the bucket for ts. The timestamp is expected
// to already be truncated to the hour; duplicate timestamps sum, never
// overwrite.
func (m *HourMap) Add(ts time.Time, amount decimal.Decimal) {
	key := ts.Unix()
	s := m.shard(key)
	s.mu.Lock()
	s.buckets[key] = s.buckets[key].Add(amount)
	s.mu.Unlock()
}

// Get returns the bucket value for ts.
func (m *HourMap) Get(ts time.Time) (decimal.Decimal, bool) {
	key := ts.Unix()
	s := m.shard(key)
	s.mu.Lock()
	v, ok := s.buckets[key]
	s.mu.Unlock()
	return v, ok
}

// Len returns the number of populated buckets.
func (m *HourMap) Len() int {
	var n int
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		n += len(s.buckets)
		s.mu.Unlock()
	}
	return n
}

// Sum returns the total consumption across all buckets.
func (m *HourMap) Sum() decimal.Decimal {
	var total decimal.Decimal
	m.Each(func(_ time.Time, amount decimal.Decimal) {
		total = total.Add(amount)
	})
	return total
}

// Span returns the earliest and latest bucket timestamps. ok is false when
// the map is empty.
func (m *HourMap) Span() (first, last time.Time, ok bool) {
	var minKey, maxKey int64
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		for key := range s.buckets {
			if !ok || key < minKey {
				minKey = key
			}
			if !ok || key > maxKey {
				maxKey = key
			}
			ok = true
		}
		s.mu.Unlock()
	}
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return time.Unix(minKey, 0).In(types.Helsinki), time.Unix(maxKey, 0).In(types.Helsinki), true
}

// Each calls fn for every bucket in a point-in-time snapshot. Iteration
// order is unspecified. fn runs outside the shard locks, so it may call
// back into the map.
func (m *HourMap) Each(fn func(ts time.Time, amount decimal.Decimal)) {
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		snapshot := make(map[int64]decimal.Decimal, len(s.buckets))
		for key, v := range s.buckets {
			snapshot[key] = v
		}
		s.mu.Unlock()
		for key, v := range snapshot {
			fn(time.Unix(key, 0).In(types.Helsinki), v)
		}
	}
}
