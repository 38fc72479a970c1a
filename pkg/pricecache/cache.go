package pricecache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/spothinta/spothinta/pkg/log"
	"github.com/spothinta/spothinta/pkg/types"
)

// DefaultTTL is the sliding expiry applied to every cached range. Expiry
// only causes a re-fetch, never incorrect data.
const DefaultTTL = 30 * time.Minute

// ErrSourceUnavailable indicates the backing price source failed. One
// failing gap fetch fails the whole query; returning partial price
// coverage would corrupt downstream totals.
var ErrSourceUnavailable = errors.New("price source unavailable")

// Source is the backing store the cache pulls price intervals from. It is
// queried only for sub-ranges not already covered by a live cache entry.
type Source interface {
	FetchPrices(ctx context.Context, start, end time.Time) ([]types.PriceInterval, error)
}

// SourceFunc adapts a plain function to the Source interface.
type SourceFunc func(ctx context.Context, start, end time.Time) ([]types.PriceInterval, error)

// FetchPrices implements Source.
func (f SourceFunc) FetchPrices(ctx context.Context, start, end time.Time) ([]types.PriceInterval, error) {
	return f(ctx, start, end)
}

type cachedRange struct {
	Range
	key string
}

type cacheEntry struct {
	prices  []types.PriceInterval
	expires time.Time
}

// Cache answers "prices for period [start,end)" queries against a backing
// Source, coalescing previously fetched ranges so no date range is ever
// fetched twice while a live entry covers it. The index of cached ranges
// is guarded by a mutex; gap fetches happen outside the critical section,
// so two concurrent callers may both fetch the same gap. That duplicate
// fetch is wasted work, not a correctness problem: the data for a given
// range is identical and the read path never returns overlapping pieces.
type Cache struct {
	source Source
	ttl    time.Duration
	now    func() time.Time

	mu     sync.Mutex
	seq    uint64
	ranges []cachedRange
	data   map[string]*cacheEntry
}

// New creates a Cache over source with the default sliding TTL.
func New(source Source) *Cache {
	return NewWithTTL(source, DefaultTTL)
}

// NewWithTTL creates a Cache over source with a custom sliding TTL.
func NewWithTTL(source Source, ttl time.Duration) *Cache {
	return &Cache{
		source: source,
		ttl:    ttl,
		now:    time.Now,
		data:   make(map[string]*cacheEntry),
	}
}

// rangeKeyLocked returns a fresh dataset key for [start, end). The date
// pair alone is not unique: two gaps carved out of one query, or rolling
// 24-hour queries, land on the same dates, so a sequence number makes
// every inserted dataset distinct. Callers must hold mu.
func (c *Cache) rangeKeyLocked(start, end time.Time) string {
	c.seq++
	return fmt.Sprintf("rangequery_%s_%s_%d", start.Format("20060102"), end.Format("20060102"), c.seq)
}

// GetPrices returns the price intervals overlapping [start, end), sorted
// ascending by start. A query with start == end is widened to a full
// 24-hour window beginning at start. A query with start after end returns
// empty with a logged warning, never an error.
func (c *Cache) GetPrices(ctx context.Context, start, end time.Time) ([]types.PriceInterval, error) {
	if start.After(end) {
		log.Ctx(ctx).WarnContext(ctx, "invalid price range requested",
			slog.Time("start", start),
			slog.Time("end", end))
		return []types.PriceInterval{}, nil
	}
	if start.Equal(end) {
		// a single-instant query means "the day starting here"
		end = start.Add(24 * time.Hour)
		log.Ctx(ctx).DebugContext(ctx, "widened single-instant query to a full day",
			slog.Time("start", start),
			slog.Time("end", end))
	}

	requested := Range{Start: start, End: end}

	// First pass under the lock: drop expired entries, collect covered
	// pieces and compute the remaining gaps. The covered pieces are cut
	// against the pending set rather than the raw request, so even index
	// entries that overlap each other contribute disjoint data.
	c.mu.Lock()
	c.pruneLocked()
	pending := []Range{requested}
	var covered []types.PriceInterval
	hits := 0
	for _, cr := range c.ranges {
		if !cr.intersects(requested) {
			continue
		}
		entry := c.data[cr.key]
		entry.expires = c.now().Add(c.ttl)
		for _, p := range pending {
			overlap := intersect(cr.Range, p)
			if overlap.empty() {
				continue
			}
			covered = append(covered, filterPrices(entry.prices, overlap)...)
			hits++
		}
		pending = subtractRange(pending, cr.Range)
	}
	c.mu.Unlock()

	// Fetch every gap from the backing source outside the lock.
	fetched := make([][]types.PriceInterval, len(pending))
	for i, gap := range pending {
		prices, err := c.source.FetchPrices(ctx, gap.Start, gap.End)
		if err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "gap fetch failed",
				slog.Time("gapStart", gap.Start),
				slog.Time("gapEnd", gap.End),
				slog.Any("error", err))
			return nil, fmt.Errorf("%w: fetching %s to %s: %v",
				ErrSourceUnavailable, gap.Start.Format(time.RFC3339), gap.End.Format(time.RFC3339), err)
		}
		// a cached dataset may span more than requested; keep only the gap
		fetched[i] = filterPrices(prices, gap)
	}

	// Insert the freshly fetched gaps. A racing caller may have inserted
	// an overlapping range meanwhile; last insert wins and the read-side
	// subtraction keeps results free of duplicates.
	if len(pending) > 0 {
		c.mu.Lock()
		expires := c.now().Add(c.ttl)
		for i, gap := range pending {
			key := c.rangeKeyLocked(gap.Start, gap.End)
			c.data[key] = &cacheEntry{prices: fetched[i], expires: expires}
			c.ranges = append(c.ranges, cachedRange{Range: gap, key: key})
		}
		c.mu.Unlock()
	}

	out := covered
	for _, prices := range fetched {
		out = append(out, prices...)
	}
	// the backing source is not guaranteed to return data in order
	sort.Slice(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})

	log.Ctx(ctx).DebugContext(ctx, "price range query served",
		slog.Time("start", start),
		slog.Time("end", end),
		slog.Int("cachedPieces", hits),
		slog.Int("gapsFetched", len(pending)),
		slog.Int("intervals", len(out)))
	return out, nil
}

// pruneLocked removes expired ranges from the index. Callers must hold mu.
func (c *Cache) pruneLocked() {
	now := c.now()
	live := c.ranges[:0]
	for _, cr := range c.ranges {
		entry, ok := c.data[cr.key]
		if !ok || entry.expires.Before(now) {
			delete(c.data, cr.key)
			continue
		}
		live = append(live, cr)
	}
	c.ranges = live
}

// filterPrices returns the intervals fully contained in r.
func filterPrices(prices []types.PriceInterval, r Range) []types.PriceInterval {
	out := make([]types.PriceInterval, 0, len(prices))
	for _, p := range prices {
		if !p.Start.Before(r.Start) && !p.End.After(r.End) {
			out = append(out, p)
		}
	}
	return out
}
