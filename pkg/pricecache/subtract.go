package pricecache

import "time"

// Range is a half-open [Start, End) time interval.
type Range struct {
	Start time.Time
	End   time.Time
}

func (r Range) empty() bool {
	return !r.Start.Before(r.End)
}

func (r Range) intersects(o Range) bool {
	return r.Start.Before(o.End) && o.Start.Before(r.End)
}

// intersect returns the overlap of two ranges. The result is empty when
// they do not intersect.
func intersect(a, b Range) Range {
	out := a
	if b.Start.After(out.Start) {
		out.Start = b.Start
	}
	if b.End.Before(out.End) {
		out.End = b.End
	}
	return out
}

// subtractRange removes existing from every interval in pending and
// returns the remainders. An interval overlapped in the middle splits into
// up to two remainders; empty remainders are discarded. Neither input is
// modified.
func subtractRange(pending []Range, existing Range) []Range {
	out := make([]Range, 0, len(pending)+1)
	for _, p := range pending {
		if !p.intersects(existing) {
			out = append(out, p)
			continue
		}
		before := Range{Start: p.Start, End: existing.Start}
		after := Range{Start: existing.End, End: p.End}
		if !before.empty() {
			out = append(out, before)
		}
		if !after.empty() {
			out = append(out, after)
		}
	}
	return out
}
