package heap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jvh-systems/blockheap/internal/format"
)

// newTestHeap creates a heap with verification enabled and a small
// reservation suitable for tests.
func newTestHeap(t *testing.T) *Heap {
	t.Helper()
	cfg := ConfigDefault
	cfg.MaxHeap = 1 << 22
	cfg.Verify = true
	h, err := New(&cfg)
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

// freeBlockOffsets collects the block offsets reachable from every bucket.
func freeBlockOffsets(h *Heap) map[int64]uint64 {
	out := make(map[int64]uint64)
	for _, bk := range h.buckets {
		for b := bk.head(); b != nilBlock; b = h.nextFree(b) {
			out[b] = h.size(b)
		}
	}
	return out
}

func Test_Alloc_ZeroSizeReturnsNil(t *testing.T) {
	h := newTestHeap(t)

	ref, payload, err := h.Alloc(0)
	require.NoError(t, err)
	require.Equal(t, NilRef, ref)
	require.Nil(t, payload)
}

func Test_Alloc_ReturnsAlignedNonOverlappingPayloads(t *testing.T) {
	h := newTestHeap(t)

	sizes := []uint64{1, 8, 24, 100, 1000}
	type span struct{ start, end int64 }
	var live []span

	for _, size := range sizes {
		ref, payload, err := h.Alloc(size)
		require.NoError(t, err)
		require.NotEqual(t, NilRef, ref)
		require.Zero(t, ref%format.DWordSize, "payload ref %d not 16-byte aligned", ref)
		require.GreaterOrEqual(t, uint64(len(payload)), size,
			"payload for Alloc(%d) too small", size)

		end := ref + int64(len(payload))
		for _, s := range live {
			require.False(t, ref < s.end && s.start < end,
				"payload [%d,%d) overlaps live payload [%d,%d)", ref, end, s.start, s.end)
		}
		live = append(live, span{ref, end})
	}
	require.NoError(t, h.Check())
}

// Test_Alloc_ReusesFreedBlockBeforeGrowing walks the scenario: P1 = alloc(24),
// P2 = alloc(1000), free(P1), then alloc(16) must land inside the region P1
// used to span instead of growing the heap.
func Test_Alloc_ReusesFreedBlockBeforeGrowing(t *testing.T) {
	h := newTestHeap(t)

	p1, _, err := h.Alloc(24)
	require.NoError(t, err)
	p2, _, err := h.Alloc(1000)
	require.NoError(t, err)
	require.NotEqual(t, p1, p2)
	require.Zero(t, p1%format.DWordSize)
	require.Zero(t, p2%format.DWordSize)

	p1End := p1 + int64(h.payloadSize(blockOf(p1)))
	require.NoError(t, h.Free(p1))

	sizeBefore := h.Size()
	growsBefore := h.Stats().GrowCalls

	p3, _, err := h.Alloc(16)
	require.NoError(t, err)
	require.GreaterOrEqual(t, p3, p1)
	require.Less(t, p3, p1End)
	require.Equal(t, sizeBefore, h.Size())
	require.Equal(t, growsBefore, h.Stats().GrowCalls)
}

// Test_Alloc_GrowsHeapForOversizedRequest covers the miss path: a request
// bigger than all current free space must grow the region, and the heap must
// check out both right after growth and after the subsequent split.
func Test_Alloc_GrowsHeapForOversizedRequest(t *testing.T) {
	h := newTestHeap(t)

	sizeBefore := h.Size()
	growsBefore := h.Stats().GrowCalls

	ref, payload, err := h.Alloc(8000)
	require.NoError(t, err)
	require.NotEqual(t, NilRef, ref)
	require.Zero(t, ref%format.DWordSize)
	require.GreaterOrEqual(t, uint64(len(payload)), uint64(8000))

	require.Greater(t, h.Size(), sizeBefore)
	require.Equal(t, growsBefore+1, h.Stats().GrowCalls)
	require.Equal(t, 1, h.Stats().AllocSlowPath)
	require.NoError(t, h.Check())
}

func Test_Alloc_OutOfMemoryLeavesHeapValid(t *testing.T) {
	cfg := ConfigDefault
	cfg.MaxHeap = 8192 // init consumes 4112 bytes, leaving < 8000
	h, err := New(&cfg)
	require.NoError(t, err)
	defer h.Close()

	_, _, err = h.Alloc(100000)
	require.ErrorIs(t, err, ErrNoSpace)
	require.NoError(t, h.Check())

	// The heap still serves requests that fit.
	ref, _, err := h.Alloc(64)
	require.NoError(t, err)
	require.NotEqual(t, NilRef, ref)
	require.NoError(t, h.Check())
}

func Test_Alloc_SplitKeepsRemainderUsable(t *testing.T) {
	h := newTestHeap(t)

	// The initial chunk is one big free block; a small allocation must split
	// it rather than consume it whole.
	ref, _, err := h.Alloc(32)
	require.NoError(t, err)
	require.Equal(t, uint64(48), h.size(blockOf(ref)))
	require.Equal(t, 1, h.Stats().SplitCount)

	free := freeBlockOffsets(h)
	require.Len(t, free, 1)
	for _, size := range free {
		require.Equal(t, h.cfg.ChunkSize-48, size)
	}
}

func Test_Alloc_AbsorbsUnsplittableRemainder(t *testing.T) {
	h := newTestHeap(t)

	// Sizes are 16-byte multiples, so a remainder below the minimum block
	// size can only be zero: the whole block is kept, no split.
	a, _, err := h.Alloc(24) // 32-byte block
	require.NoError(t, err)
	_, _, err = h.Alloc(64) // pin the neighbor
	require.NoError(t, err)
	require.NoError(t, h.Free(a))

	splits := h.Stats().SplitCount
	b, _, err := h.Alloc(20) // 32-byte need: exact fit, no split
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Equal(t, splits, h.Stats().SplitCount)
	require.Equal(t, uint64(32), h.size(blockOf(b)))
}

func Test_Alloc_SizeOverflowRejected(t *testing.T) {
	h := newTestHeap(t)

	// Sizes where align16(size+8) wraps to a tiny value must be rejected,
	// not served with a block far smaller than the request.
	for _, size := range []uint64{
		^uint64(0),      // MaxUint64
		^uint64(0) - 4,  // size+8 wraps
		^uint64(0) - 17, // size+8 fits but the alignment round-up wraps
		^uint64(0) - 22, // last size whose adjusted size wraps
	} {
		ref, payload, err := h.Alloc(size)
		require.ErrorIs(t, err, ErrSizeOverflow, "alloc(%d)", size)
		require.Equal(t, NilRef, ref, "alloc(%d)", size)
		require.Nil(t, payload, "alloc(%d)", size)
	}
	require.NoError(t, h.Check())
}
