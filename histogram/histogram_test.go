// File: histogram/histogram_test.go
// Author: Brian Yi ZHANG <brianlions at gmail dot com>
// License: GPL-3.0-or-later

package histogram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBucketCountPerBound(t *testing.T) {
	cases := []struct {
		bound int64
		want  int
	}{
		{1, 6}, {2, 6}, {3, 6}, {4, 6}, {5, 6},
		{6, 22}, {8, 22}, {10, 22}, {15, 22}, {18, 22}, {20, 22},
		{23, 22}, {30, 22}, {31, 22}, {40, 22}, {41, 22}, {47, 22}, {50, 22},
		{60, 38}, {70, 38}, {80, 38}, {100, 38}, {105, 38}, {137, 38},
		{200, 38}, {290, 38}, {300, 38}, {350, 38}, {400, 38}, {450, 38}, {500, 38},
		{501, 54},
	}
	for _, c := range cases {
		h, err := New(c.bound)
		require.NoError(t, err)
		require.Equal(t, c.want, h.Len(), "bound %d", c.bound)
	}
}

func TestAddReturnsBucketIndex(t *testing.T) {
	listA := [][2]int64{
		{0, 0}, {1, 1}, {2, 2}, {3, 3}, {4, 4},
		{5, 5}, {6, 5}, {7, 5},
	}
	listB := [][2]int64{
		{0, 0},
		{1, 1}, {2, 2}, {3, 3}, {4, 4}, {5, 5},
		{6, 6}, {7, 7}, {8, 8}, {9, 9}, {10, 10},
		{11, 10},
		{12, 11}, {13, 11},
		{14, 12}, {15, 12},
		{16, 13}, {17, 13},
		{18, 14}, {19, 14},
		{20, 15}, {24, 15},
		{25, 16}, {29, 16},
		{30, 17}, {34, 17},
		{35, 18}, {39, 18},
		{40, 19}, {44, 19},
		{45, 20}, {49, 20},
		{50, 21}, {60, 21}, {70, 21}, {10000, 21}, {1000000, 21},
	}
	cases := map[int64][][2]int64{
		3: listA, 5: listA,
		10: listB, 20: listB, 30: listB, 40: listB, 50: listB,
	}
	for bound, samples := range cases {
		h, err := New(bound)
		require.NoError(t, err)
		for _, s := range samples {
			idx, err := h.Add(s[0])
			require.NoError(t, err)
			require.Equal(t, int(s[1]), idx, "bound %d value %d", bound, s[0])
		}
	}
}

func TestStatistics(t *testing.T) {
	for _, samples := range [][2]int64{{1, 10}, {10, 50}} {
		h := NewDefault()
		var total int64
		var n int64
		for v := samples[0]; v < samples[1]; v++ {
			_, err := h.Add(v)
			require.NoError(t, err)
			total += v
			n++
		}
		require.Equal(t, samples[0], h.Min())
		require.Equal(t, samples[1]-1, h.Max())
		require.Equal(t, total, h.Total())
		require.Equal(t, n, h.Count())
		require.InDelta(t, float64(total)/float64(n), h.Average(), 1e-9)
	}
}

func TestRejectsBadInput(t *testing.T) {
	_, err := New(0)
	require.Error(t, err)
	_, err = New(-5)
	require.Error(t, err)

	h := NewDefault()
	_, err = h.Add(-1)
	require.Error(t, err)
	require.Zero(t, h.Count())
}

func TestEmptyStatistics(t *testing.T) {
	h := NewDefault()
	require.Zero(t, h.Min())
	require.Zero(t, h.Max())
	require.Zero(t, h.Total())
	require.Zero(t, h.Average())
	require.Equal(t, 1, strings.Count(h.Report(100), "\n")+1)
}

func TestReportRows(t *testing.T) {
	h, err := New(50)
	require.NoError(t, err)
	for _, v := range []int64{3, 3, 3, 7, 1000} {
		_, err := h.Add(v)
		require.NoError(t, err)
	}
	out := h.Report(10)
	lines := strings.Split(out, "\n")
	// header plus one row per non-empty bucket: [3,4), [7,8), [50,inf)
	require.Len(t, lines, 4)
	require.Contains(t, lines[0], "count: 5")
	require.Contains(t, lines[0], "min: 3")
	require.Contains(t, lines[0], "max: 1000")
	require.Contains(t, lines[3], "<infinite>")
	// 3 of 5 samples in the first row: 60%, six marks of ten.
	require.Contains(t, lines[1], "######")
}
