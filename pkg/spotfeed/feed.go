package spotfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/shopspring/decimal"
	"github.com/spothinta/spothinta/pkg/common"
	"github.com/spothinta/spothinta/pkg/consumption"
	"github.com/spothinta/spothinta/pkg/log"
	"github.com/spothinta/spothinta/pkg/types"
)

// Configured sets up the spot feed provider based on flags.
func Configured() Provider {
	provider := lflag.String("spot-feed-provider", "http", "Spot feed provider to use (available: http, mock)")

	var p struct{ Provider }

	f := configuredFeed()
	m := &Mock{}

	lflag.Do(func() {
		switch *provider {
		case "http":
			if err := f.Validate(); err != nil {
				panic(fmt.Sprintf("spot feed validation failed: %v", err))
			}
			p.Provider = f
		case "mock":
			if err := m.Validate(); err != nil {
				panic(fmt.Sprintf("spot feed validation failed: %v", err))
			}
			p.Provider = m
		default:
			panic(fmt.Sprintf("unknown spot feed provider: %s", *provider))
		}
	})

	return &p
}

// Feed fetches day-ahead spot prices from an HTTP JSON feed. The feed
// publishes UTC-stamped hour starts in cents per kWh.
type Feed struct {
	apiURL string
	client *http.Client
}

// configuredFeed sets up flags for the HTTP feed and returns the instance.
func configuredFeed() *Feed {
	f := &Feed{
		client: common.HTTPClient(10 * time.Second),
	}
	apiURL := lflag.String("spot-feed-url", "", "URL for the spot price feed")

	lflag.Do(func() {
		f.apiURL = *apiURL
	})

	return f
}

// Validate ensures the configuration is valid.
func (f *Feed) Validate() error {
	if f.apiURL == "" {
		return fmt.Errorf("spot-feed-url is required")
	}
	if _, err := url.Parse(f.apiURL); err != nil {
		return fmt.Errorf("failed to parse spot feed url (%s): %w", f.apiURL, err)
	}
	return nil
}

// feedResponse represents the structure of the JSON returned by the feed.
type feedResponse struct {
	Prices []feedEntry `json:"prices"`
}

type feedEntry struct {
	StartDate time.Time       `json:"startDate"`
	Price     decimal.Decimal `json:"price"`
}

// FetchLatest retrieves the latest published prices. Each entry's start is
// converted to Helsinki time and becomes a one-hour interval.
func (f *Feed) FetchLatest(ctx context.Context) ([]types.PriceInterval, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", f.apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	log.Ctx(ctx).DebugContext(ctx, "fetching spot prices", slog.String("url", f.apiURL))

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch spot prices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("spot feed returned status: %d", resp.StatusCode)
	}

	var data feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode spot feed response: %w", err)
	}

	prices := make([]types.PriceInterval, 0, len(data.Prices))
	for _, entry := range data.Prices {
		start := consumption.HourBucket(entry.StartDate)
		prices = append(prices, types.PriceInterval{
			Start:       start,
			End:         start.Add(time.Hour),
			CentsPerKWH: entry.Price,
		})
	}

	log.Ctx(ctx).DebugContext(ctx, "fetched spot prices", slog.Int("count", len(prices)))
	return prices, nil
}
