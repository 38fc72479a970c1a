package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// results are consumed by dashboards expecting plain JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

// Helsinki is the civil timezone all price and consumption instants are
// bucketed in. Spot prices for the Finnish bidding zone are published per
// Helsinki wall-clock hour.
var Helsinki = func() *time.Location {
	loc, err := time.LoadLocation("Europe/Helsinki")
	if err != nil {
		panic(fmt.Errorf("failed to load helsinki location: %w", err))
	}
	return loc
}()

// PriceInterval represents the cost of electricity in a half-open time
// interval [Start, End). Intervals from the store are hourly and
// non-overlapping. Immutable once fetched.
type PriceInterval struct {
	Start time.Time `json:"startDate"`
	End   time.Time `json:"endDate"`

	// CentsPerKWH is the spot price in cents per kilowatt-hour. Monetary
	// rollups convert to whole currency units exactly once, at accumulation.
	CentsPerKWH decimal.Decimal `json:"price"`
}

// Covers reports whether t falls inside the interval. Start is inclusive,
// End is exclusive.
func (p PriceInterval) Covers(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Valid reports whether the interval is well-formed.
func (p PriceInterval) Valid() bool {
	return !p.Start.IsZero() && !p.End.IsZero() && p.Start.Before(p.End)
}
