package pricing

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/spothinta/spothinta/pkg/types"
)

// PriceAt returns the price of the interval covering ts, using half-open
// semantics: start inclusive, end exclusive. If overlapping intervals from
// an untrusted source both cover ts, the first match in iteration order
// wins; that is a defined tie-break, not an error. ok is false when no
// interval covers ts, which the caller treats as a zero-price contribution
// so a single pricing gap never aborts a whole calculation.
func PriceAt(ts time.Time, intervals []types.PriceInterval) (price decimal.Decimal, ok bool) {
	for _, interval := range intervals {
		if interval.Covers(ts) {
			return interval.CentsPerKWH, true
		}
	}
	return decimal.Decimal{}, false
}
