package fetcher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/spothinta/spothinta/pkg/log"
	"github.com/spothinta/spothinta/pkg/spotfeed"
	"github.com/spothinta/spothinta/pkg/storage"
	"github.com/spothinta/spothinta/pkg/types"
)

const (
	// the feed publishes each hour's confirmed price shortly after the
	// hour, so sync runs aligned to HH:01
	fetchMinuteOffset = time.Minute

	emptyRetryDelay = time.Minute
	maxEmptyRetries = 3
)

// Fetcher periodically syncs spot prices from the feed into storage. It
// runs on its own schedule and never blocks request-serving paths; a
// failed fetch is logged and retried at the next tick instead of crashing
// the process.
type Fetcher struct {
	feed    spotfeed.Provider
	db      storage.Database
	enabled bool
}

// Configured sets up the fetcher with flags.
func Configured(feed spotfeed.Provider, db storage.Database) *Fetcher {
	f := &Fetcher{feed: feed, db: db}
	enabled := lflag.Bool("price-sync", true, "Enable the hourly background price sync")

	lflag.Do(func() {
		f.enabled = *enabled
	})

	return f
}

// Run fetches once immediately and then hourly at HH:01 until ctx is
// canceled.
func (f *Fetcher) Run(ctx context.Context) error {
	if !f.enabled {
		log.Ctx(ctx).InfoContext(ctx, "price sync disabled")
		return nil
	}
	latest, err := f.db.GetLatestPriceTime(ctx)
	switch {
	case errors.Is(err, storage.ErrNoPrices):
		log.Ctx(ctx).InfoContext(ctx, "price sync starting with empty price history")
	case err != nil:
		log.Ctx(ctx).WarnContext(ctx, "failed to check latest stored price", slog.Any("error", err))
	default:
		log.Ctx(ctx).InfoContext(ctx, "price sync starting",
			slog.Time("latestStoredPrice", latest))
	}

	for {
		f.fetchAndStore(ctx)

		delay := nextFetchDelay(time.Now().In(types.Helsinki))
		log.Ctx(ctx).DebugContext(ctx, "waiting until next price sync",
			slog.Duration("delay", delay))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Ctx(ctx).InfoContext(ctx, "price sync stopping")
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// nextFetchDelay returns how long to wait so the next fetch lands at one
// minute past the next hour.
func nextFetchDelay(now time.Time) time.Duration {
	next := now.Truncate(time.Hour).Add(time.Hour + fetchMinuteOffset)
	return next.Sub(now)
}

// fetchAndStore pulls the latest feed payload and stores any new
// intervals. Empty payloads are retried a few times with a short backoff;
// errors are logged and left for the next scheduled run.
func (f *Fetcher) fetchAndStore(ctx context.Context) {
	for attempt := 0; ; attempt++ {
		prices, err := f.feed.FetchLatest(ctx)
		if err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to fetch spot prices", slog.Any("error", err))
			return
		}

		if len(prices) > 0 {
			f.store(ctx, prices)
			return
		}

		if attempt >= maxEmptyRetries {
			log.Ctx(ctx).WarnContext(ctx, "feed kept returning no prices, giving up until next sync")
			return
		}
		log.Ctx(ctx).WarnContext(ctx, "fetched price data is empty, retrying",
			slog.Duration("delay", emptyRetryDelay))
		timer := time.NewTimer(emptyRetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (f *Fetcher) store(ctx context.Context, prices []types.PriceInterval) {
	valid := prices[:0:0]
	for _, p := range prices {
		if !p.Valid() || !p.CentsPerKWH.IsPositive() {
			log.Ctx(ctx).WarnContext(ctx, "skipping invalid price entry",
				slog.Time("start", p.Start),
				slog.Time("end", p.End),
				slog.String("price", p.CentsPerKWH.String()))
			continue
		}
		valid = append(valid, p)
	}
	if len(valid) == 0 {
		log.Ctx(ctx).WarnContext(ctx, "no valid prices in feed payload")
		return
	}

	inserted, err := f.db.InsertPrices(ctx, valid)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to store spot prices", slog.Any("error", err))
		return
	}
	if inserted == 0 {
		log.Ctx(ctx).DebugContext(ctx, "no new prices, all duplicates")
		return
	}
	log.Ctx(ctx).InfoContext(ctx, "stored new spot prices", slog.Int("count", inserted))
}
