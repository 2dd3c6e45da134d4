package rgethttp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionCompleteness(t *testing.T) {
	lengths := []int64{1, 2, 3, 7, 10, 100, 1023, 1024, 1 << 20, 1<<20 + 13}
	threads := []int{-1, 0, 1, 2, 3, 4, 7, 8, 16, 64, 2000}
	for _, length := range lengths {
		for _, n := range threads {
			ranges := Partition(length, n)
			require.NotEmpty(t, ranges, "length=%d n=%d", length, n)
			var next int64
			for _, r := range ranges {
				assert.Equal(t, next, r.Start, "gap or overlap at length=%d n=%d", length, n)
				assert.GreaterOrEqual(t, r.Len(), int64(1), "empty range at length=%d n=%d", length, n)
				next = r.End + 1
			}
			assert.Equal(t, length, next, "ranges do not cover length=%d n=%d", length, n)
			assert.LessOrEqual(t, int64(len(ranges)), length)
			if n >= 1 && int64(n) <= length {
				assert.Len(t, ranges, n)
			}
		}
	}
}

func TestPartitionRemainderGoesToLastRange(t *testing.T) {
	ranges := Partition(10, 3)
	assert.Equal(t, []ByteRange{{0, 2}, {3, 5}, {6, 9}}, ranges)
}

func TestPartitionEmpty(t *testing.T) {
	assert.Nil(t, Partition(0, 4))
	assert.Nil(t, Partition(-1, 4))
}

func TestPlan(t *testing.T) {
	ranged := Capabilities{Length: 1000, AcceptsRanges: true}
	unranged := Capabilities{Length: 1000}
	unknown := Capabilities{Length: -1, AcceptsRanges: true}

	tests := []struct {
		name     string
		local    int64
		caps     Capabilities
		resume   bool
		threads  int
		mode     Mode
		ranges   []ByteRange
		truncate bool
	}{
		{"fresh partitioned", 0, ranged, false, 4, ModePartitioned, Partition(1000, 4), true},
		{"fresh ignores local bytes", 500, ranged, false, 2, ModePartitioned, Partition(1000, 2), true},
		{"single thread", 0, ranged, false, 1, ModeSingle, []ByteRange{{0, -1}}, true},
		{"no range support", 0, unranged, false, 8, ModeSingle, []ByteRange{{0, -1}}, true},
		{"unknown length", 0, unknown, false, 8, ModeSingle, []ByteRange{{0, -1}}, true},
		{"resume with empty local is fresh", 0, ranged, true, 4, ModePartitioned, Partition(1000, 4), true},
		{"resume partial", 400, ranged, true, 8, ModeResume, []ByteRange{{400, 999}}, false},
		{"resume unknown length", 400, unknown, true, 8, ModeResume, []ByteRange{{400, -1}}, false},
		{"resume complete", 1000, ranged, true, 8, ModeNothing, nil, false},
		{"resume local larger restarts", 1200, ranged, true, 4, ModePartitioned, Partition(1000, 4), true},
		{"resume local larger single", 1200, unranged, true, 4, ModeSingle, []ByteRange{{0, -1}}, true},
		{"resume unranged restarts", 400, unranged, true, 4, ModeSingle, []ByteRange{{0, -1}}, true},
		{"resume unranged complete", 1000, unranged, true, 4, ModeNothing, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Plan(tt.local, tt.caps, tt.resume, tt.threads)
			assert.Equal(t, tt.mode, plan.Mode)
			assert.Equal(t, tt.ranges, plan.Ranges)
			assert.Equal(t, tt.truncate, plan.Truncate)
			assert.NotEmpty(t, plan.Reason)
		})
	}
}

func TestPlanResumeIsAlwaysSingleStream(t *testing.T) {
	plan := Plan(10, Capabilities{Length: 1 << 30, AcceptsRanges: true}, true, 64)
	require.Equal(t, ModeResume, plan.Mode)
	assert.Len(t, plan.Ranges, 1)
	assert.Equal(t, int64(10), plan.Offset())
}

func TestByteRangeHeader(t *testing.T) {
	assert.Equal(t, "bytes=0-99", ByteRange{0, 99}.Header())
	assert.Equal(t, "bytes=100-", ByteRange{100, -1}.Header())
	assert.Equal(t, "", ByteRange{0, -1}.Header())
	assert.Equal(t, int64(-1), ByteRange{5, -1}.Len())
}
