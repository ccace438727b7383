// File: histogram/histogram.go
// Author: Brian Yi ZHANG <brianlions at gmail dot com>
// License: GPL-3.0-or-later

package histogram

import (
	"fmt"
	"math"
	"strings"
)

// DefaultBound is the upper bound hint used by NewDefault, suitable for
// microsecond latencies up to 500 seconds.
const DefaultBound = 500000000

// Bucket lower bounds grow in three stages: unit steps up to 5, then the
// basic group, then the basic group scaled by successive powers of ten
// until the requested bound is covered. The last bucket is unbounded.
var (
	firstGroup = []int64{0, 1, 2, 3, 4, 5}
	basicGroup = []int64{6, 7, 8, 9, 10, 12, 14, 16, 18, 20, 25, 30, 35, 40, 45, 50}
)

// Histogram counts samples per bucket and tracks min, max and total.
// Not safe for concurrent use.
type Histogram struct {
	min    int64
	max    int64
	total  int64
	count  int64
	bounds []int64
	counts []int64
}

// New creates a histogram whose buckets cover values up to at least
// bound. Bound must be positive.
func New(bound int64) (*Histogram, error) {
	if bound <= 0 {
		return nil, fmt.Errorf("histogram: bound %d must be positive", bound)
	}
	h := &Histogram{
		bounds: append([]int64(nil), firstGroup...),
	}
	var lastGroup []int64
	for h.bounds[len(h.bounds)-1] < bound {
		if lastGroup == nil {
			lastGroup = append([]int64(nil), basicGroup...)
		} else {
			for i, v := range lastGroup {
				lastGroup[i] = 10 * v
			}
		}
		h.bounds = append(h.bounds, lastGroup...)
	}
	h.counts = make([]int64, len(h.bounds))
	return h, nil
}

// NewDefault creates a histogram with DefaultBound.
func NewDefault() *Histogram {
	h, _ := New(DefaultBound)
	return h
}

// Len reports the number of buckets.
func (h *Histogram) Len() int { return len(h.bounds) }

// Min returns the smallest sample seen, zero when empty.
func (h *Histogram) Min() int64 { return h.min }

// Max returns the largest sample seen, zero when empty.
func (h *Histogram) Max() int64 { return h.max }

// Total returns the sum of all samples.
func (h *Histogram) Total() int64 { return h.total }

// Count returns the number of samples.
func (h *Histogram) Count() int64 { return h.count }

// Average returns the mean sample, zero when empty.
func (h *Histogram) Average() float64 {
	if h.count == 0 {
		return 0
	}
	return float64(h.total) / float64(h.count)
}

// Add records one sample and returns the index of the bucket it landed
// in. Values at or above the last bound all land in the final, unbounded
// bucket. Negative values are rejected.
func (h *Histogram) Add(v int64) (int, error) {
	if v < 0 {
		return 0, fmt.Errorf("histogram: value %d must not be negative", v)
	}
	if h.count == 0 || v < h.min {
		h.min = v
	}
	if h.count == 0 || v > h.max {
		h.max = v
	}
	h.total += v
	h.count++

	last := len(h.bounds) - 1
	for idx := 0; idx < last; idx++ {
		if h.bounds[idx] <= v && v < h.bounds[idx+1] {
			h.counts[idx]++
			return idx, nil
		}
	}
	h.counts[last]++
	return last, nil
}

// Report renders one row per non-empty bucket with its count, percentage,
// cumulative percentage and a bar of at most totalMarks hash marks.
func (h *Histogram) Report(totalMarks int) string {
	if totalMarks <= 0 {
		totalMarks = 100
	}
	rows := []string{fmt.Sprintf("count: %d, min: %d, max: %d, total: %d, avg: %.6f",
		h.count, h.min, h.max, h.total, h.Average())}
	if h.count == 0 {
		return rows[0]
	}

	sumPercentage := 0.0
	last := len(h.bounds) - 1
	for idx, n := range h.counts {
		if n == 0 {
			continue
		}
		percentage := float64(n) * 100.0 / float64(h.count)
		sumPercentage += percentage
		hashes := strings.Repeat("#", int(math.Round(float64(n)/float64(h.count)*float64(totalMarks))))
		if idx == last {
			rows = append(rows, fmt.Sprintf("[%10d, <infinite>) %10d %7.3f, %7.3f %s",
				h.bounds[idx], n, percentage, sumPercentage, hashes))
		} else {
			rows = append(rows, fmt.Sprintf("[%10d, %10d) %10d %7.3f, %7.3f %s",
				h.bounds[idx], h.bounds[idx+1], n, percentage, sumPercentage, hashes))
		}
	}
	return strings.Join(rows, "\n")
}
