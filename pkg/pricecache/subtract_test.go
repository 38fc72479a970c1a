package pricecache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func TestSubtractRange(t *testing.T) {
	tests := []struct {
		name     string
		pending  []Range
		existing Range
		want     []Range
	}{
		{
			name:     "no overlap",
			pending:  []Range{{day(1), day(5)}},
			existing: Range{day(10), day(12)},
			want:     []Range{{day(1), day(5)}},
		},
		{
			name:     "fully covered",
			pending:  []Range{{day(2), day(4)}},
			existing: Range{day(1), day(5)},
			want:     []Range{},
		},
		{
			name:     "overlap at start",
			pending:  []Range{{day(1), day(5)}},
			existing: Range{day(1), day(3)},
			want:     []Range{{day(3), day(5)}},
		},
		{
			name:     "overlap at end",
			pending:  []Range{{day(1), day(5)}},
			existing: Range{day(3), day(5)},
			want:     []Range{{day(1), day(3)}},
		},
		{
			name:     "split in the middle",
			pending:  []Range{{day(1), day(10)}},
			existing: Range{day(4), day(6)},
			want:     []Range{{day(1), day(4)}, {day(6), day(10)}},
		},
		{
			name:     "multiple pending",
			pending:  []Range{{day(1), day(3)}, {day(5), day(9)}},
			existing: Range{day(2), day(6)},
			want:     []Range{{day(1), day(2)}, {day(6), day(9)}},
		},
		{
			name:     "touching is not overlap",
			pending:  []Range{{day(1), day(3)}},
			existing: Range{day(3), day(5)},
			want:     []Range{{day(1), day(3)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := subtractRange(tt.pending, tt.existing)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIntersect(t *testing.T) {
	got := intersect(Range{day(1), day(5)}, Range{day(3), day(9)})
	assert.Equal(t, Range{day(3), day(5)}, got)

	assert.True(t, intersect(Range{day(1), day(2)}, Range{day(3), day(4)}).empty())
}
