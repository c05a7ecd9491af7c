package heap

import (
	"fmt"
	"math"
	"os"

	"github.com/jvh-systems/blockheap/internal/format"
)

// findFit searches the buckets from the requested size class upward. Within
// a bucket it examines at most FitScanCap fitting candidates and keeps the
// smallest - a bounded approximation of best-fit. The first bucket that
// yields any fit wins; later buckets only hold larger blocks.
func (h *Heap) findFit(size uint64) int64 {
	for i := h.classify(size); i < len(h.buckets); i++ {
		best := nilBlock
		var bestSize uint64
		candidates := h.cfg.FitScanCap
		for b := h.buckets[i].head(); b != nilBlock && candidates > 0; b = h.nextFree(b) {
			bs := h.size(b)
			if bs < size {
				continue
			}
			if best == nilBlock || bs < bestSize {
				best, bestSize = b, bs
			}
			candidates--
		}
		if best != nilBlock {
			return best
		}
	}
	return nilBlock
}

// extendHeap grows the region by at least minBytes (rounded to the
// double-word unit), turns the new bytes into one free block, writes a fresh
// epilogue, and coalesces with the former last block. The result is not
// inserted into any bucket.
func (h *Heap) extendHeap(minBytes uint64) (int64, error) {
	size := format.AlignDWord(minBytes)
	brk, err := h.region.Grow(int64(size))
	if err != nil {
		debugLogf("extendHeap(%d): grow failed: %v", size, err)
		return nilBlock, fmt.Errorf("%w: %v", ErrNoSpace, err)
	}
	h.stats.GrowCalls++
	h.stats.GrowBytes += int64(size)

	// The new block's header lands on the former epilogue, inheriting its
	// previous-block bits.
	b := brk - format.WordSize
	h.writeBlock(b, size, false)
	epi := h.nextBlock(b)
	format.PutWord(h.bytes(), epi, format.Pack(0, true, false, size == format.MinBlockSize))

	// The former last block may have been free.
	return h.coalesce(b), nil
}

// splitBlock carves an allocated block down to need bytes when the remainder
// is big enough to stand alone as a free block. Remainders below the minimum
// block size stay inside the allocation (internal fragmentation is cheaper
// than an unusable fragment).
func (h *Heap) splitBlock(b int64, need uint64) {
	size := h.size(b)
	if size-need < format.MinBlockSize {
		return
	}
	h.stats.SplitCount++

	h.writeBlock(b, need, true)
	rem := h.nextBlock(b)
	h.writeBlockRaw(rem, size-need, false, true, need == format.MinBlockSize)
	h.bucketFor(size-need).insert(h, rem)
	h.syncNextHeader(rem)
}

// Alloc allocates a block with at least size payload bytes and returns its
// reference and payload slice. size 0 returns (NilRef, nil, nil). The
// payload slice is valid until the next operation that grows the heap.
//
// The returned reference is 16-byte aligned and the payload does not overlap
// any other live payload.
func (h *Heap) Alloc(size uint64) (Ref, []byte, error) {
	h.stats.AllocCalls++
	if h.cfg.Verify {
		defer h.verifyAfter("Alloc")
	}
	if size == 0 {
		return NilRef, nil, nil
	}
	// The adjusted size below is align16(size+8); reject anything whose
	// header-plus-rounding headroom would wrap the native word.
	if size > math.MaxUint64-format.WordSize-(format.DWordSize-1) {
		return NilRef, nil, fmt.Errorf("%w: alloc(%d)", ErrSizeOverflow, size)
	}

	// Adjusted size covers the header word and alignment.
	need := format.AlignDWord(size + format.WordSize)
	if need < format.MinBlockSize {
		need = format.MinBlockSize
	}

	b := h.findFit(need)
	if b == nilBlock {
		grow := need
		if grow < h.cfg.ChunkSize {
			grow = h.cfg.ChunkSize
		}
		var err error
		b, err = h.extendHeap(grow)
		if err != nil {
			return NilRef, nil, err
		}
		h.stats.AllocSlowPath++
	} else {
		h.bucketFor(h.size(b)).remove(h, b)
		h.stats.AllocFastPath++
	}

	h.writeBlock(b, h.size(b), true)
	h.syncNextHeader(b)
	h.splitBlock(b, need)
	h.stats.BytesAllocated += int64(h.size(b))

	if logHeap {
		fmt.Fprintf(os.Stderr, "[HEAP] Alloc(%d): need=%d ref=%d block=%d\n",
			size, need, payloadOf(b), h.size(b))
	}
	return payloadOf(b), h.payloadSlice(b), nil
}
