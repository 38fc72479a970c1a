package pricecache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spothinta/spothinta/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingSource serves hourly intervals for whatever range is asked and
// records every fetch.
type countingSource struct {
	fetches []Range
	err     error
}

func (s *countingSource) FetchPrices(ctx context.Context, start, end time.Time) ([]types.PriceInterval, error) {
	s.fetches = append(s.fetches, Range{Start: start, End: end})
	if s.err != nil {
		return nil, s.err
	}
	var out []types.PriceInterval
	for ts := start; ts.Before(end); ts = ts.Add(time.Hour) {
		out = append(out, types.PriceInterval{
			Start:       ts,
			End:         ts.Add(time.Hour),
			CentsPerKWH: decimal.NewFromInt(int64(ts.Hour())),
		})
	}
	return out, nil
}

func TestCacheHitAvoidsRefetch(t *testing.T) {
	src := &countingSource{}
	c := New(src)
	ctx := context.Background()

	start := day(1)
	end := day(2)

	first, err := c.GetPrices(ctx, start, end)
	require.NoError(t, err)
	assert.Len(t, first, 24)
	require.Len(t, src.fetches, 1)

	second, err := c.GetPrices(ctx, start, end)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, src.fetches, 1, "second identical query must be served from cache")
}

func TestCacheFetchesOnlyGaps(t *testing.T) {
	src := &countingSource{}
	c := New(src)
	ctx := context.Background()

	_, err := c.GetPrices(ctx, day(1), day(3))
	require.NoError(t, err)
	require.Len(t, src.fetches, 1)

	// overlaps the cached [1,3) so only [3,4) should hit the source
	prices, err := c.GetPrices(ctx, day(2), day(4))
	require.NoError(t, err)
	assert.Len(t, prices, 48)
	require.Len(t, src.fetches, 2)
	assert.Equal(t, Range{Start: day(3), End: day(4)}, src.fetches[1])

	// sorted ascending with no duplicates
	for i := 1; i < len(prices); i++ {
		assert.True(t, prices[i-1].Start.Before(prices[i].Start))
	}
}

func TestCacheMergesAroundCachedMiddle(t *testing.T) {
	src := &countingSource{}
	c := New(src)
	ctx := context.Background()

	_, err := c.GetPrices(ctx, day(3), day(4))
	require.NoError(t, err)
	require.Len(t, src.fetches, 1)

	// cached range sits in the middle, two gaps on either side
	prices, err := c.GetPrices(ctx, day(1), day(6))
	require.NoError(t, err)
	assert.Len(t, prices, 5*24)
	require.Len(t, src.fetches, 3)
	assert.Equal(t, Range{Start: day(1), End: day(3)}, src.fetches[1])
	assert.Equal(t, Range{Start: day(4), End: day(6)}, src.fetches[2])
}

func TestCacheSameDayGapsKeepDistinctEntries(t *testing.T) {
	src := &countingSource{}
	c := New(src)
	ctx := context.Background()

	// cache a single hour in the middle of the day
	mid := day(1).Add(10 * time.Hour)
	_, err := c.GetPrices(ctx, mid, mid.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, src.fetches, 1)

	// the gaps on either side of the cached middle share the same dates
	start := day(1).Add(8 * time.Hour)
	end := day(1).Add(14 * time.Hour)
	first, err := c.GetPrices(ctx, start, end)
	require.NoError(t, err)
	assert.Len(t, first, 6)
	require.Len(t, src.fetches, 3)
	assert.Equal(t, Range{Start: start, End: mid}, src.fetches[1])
	assert.Equal(t, Range{Start: mid.Add(time.Hour), End: end}, src.fetches[2])

	// the identical repeat query is served entirely from cache
	second, err := c.GetPrices(ctx, start, end)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, src.fetches, 3, "identical repeat query must not re-fetch")
}

func TestCacheRollingWindowKeepsEarlierEntries(t *testing.T) {
	src := &countingSource{}
	c := New(src)
	ctx := context.Background()

	// successive sliding 24-hour windows whose endpoints fall on the same
	// dates must not displace each other
	start := day(1).Add(6 * time.Hour)
	_, err := c.GetPrices(ctx, start, start.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, src.fetches, 1)

	_, err = c.GetPrices(ctx, start.Add(time.Hour), start.Add(25*time.Hour))
	require.NoError(t, err)
	require.Len(t, src.fetches, 2)
	assert.Equal(t, Range{Start: start.Add(24 * time.Hour), End: start.Add(25 * time.Hour)}, src.fetches[1])

	// the first window is still fully cached
	_, err = c.GetPrices(ctx, start, start.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Len(t, src.fetches, 2)
}

func TestCacheWidensSingleInstantQuery(t *testing.T) {
	src := &countingSource{}
	c := New(src)

	prices, err := c.GetPrices(context.Background(), day(1), day(1))
	require.NoError(t, err)
	assert.Len(t, prices, 24)
	require.Len(t, src.fetches, 1)
	assert.Equal(t, Range{Start: day(1), End: day(2)}, src.fetches[0])
}

func TestCacheInvertedRangeReturnsEmpty(t *testing.T) {
	src := &countingSource{}
	c := New(src)

	prices, err := c.GetPrices(context.Background(), day(5), day(1))
	require.NoError(t, err)
	assert.Empty(t, prices)
	assert.Empty(t, src.fetches, "inverted range must not hit the source")
}

func TestCacheGapFailureFailsQuery(t *testing.T) {
	src := &countingSource{}
	c := New(src)
	ctx := context.Background()

	_, err := c.GetPrices(ctx, day(1), day(2))
	require.NoError(t, err)

	src.err = errors.New("backend down")
	_, err = c.GetPrices(ctx, day(1), day(3))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourceUnavailable)

	// fully cached queries still work while the source is down
	prices, err := c.GetPrices(ctx, day(1), day(2))
	require.NoError(t, err)
	assert.Len(t, prices, 24)
}

func TestCacheExpiry(t *testing.T) {
	src := &countingSource{}
	c := NewWithTTL(src, 30*time.Minute)

	current := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }
	ctx := context.Background()

	_, err := c.GetPrices(ctx, day(1), day(2))
	require.NoError(t, err)
	require.Len(t, src.fetches, 1)

	// within the TTL the entry is still live and the access slides expiry
	current = current.Add(20 * time.Minute)
	_, err = c.GetPrices(ctx, day(1), day(2))
	require.NoError(t, err)
	require.Len(t, src.fetches, 1)

	current = current.Add(25 * time.Minute)
	_, err = c.GetPrices(ctx, day(1), day(2))
	require.NoError(t, err)
	require.Len(t, src.fetches, 1, "access 20 minutes in must have slid the expiry")

	current = current.Add(31 * time.Minute)
	_, err = c.GetPrices(ctx, day(1), day(2))
	require.NoError(t, err)
	assert.Len(t, src.fetches, 2, "expired entry must be refetched")
}
