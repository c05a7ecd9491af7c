package heap

import "github.com/jvh-systems/blockheap/internal/format"

// Free blocks are threaded through their own payload bytes: the word after
// the header is the next link, the word after that the prev link. A mini
// block's payload is a single word, so bucket 0 is singly linked and pays an
// O(n) scan to remove a non-head element. That asymmetry is deliberate: a
// 16-byte block cannot hold two links, and upgrading it would raise the
// minimum block size for every allocation.

// bucket is one partition of the free-list array. Implementations own the
// head pointer; link words live in the arena.
type bucket interface {
	// insert pushes b onto the head of the list (LIFO).
	insert(h *Heap, b int64)
	// remove detaches b from the list. b must be present.
	remove(h *Heap, b int64)
	// head returns the first block, or nilBlock.
	head() int64
}

// Link accessors. The next link is valid for every free block; the prev link
// only for blocks larger than the minimum.

func (h *Heap) nextFree(b int64) int64 {
	return int64(format.Word(h.bytes(), b+format.WordSize))
}

func (h *Heap) setNextFree(b, v int64) {
	format.PutWord(h.bytes(), b+format.WordSize, uint64(v))
}

func (h *Heap) prevFree(b int64) int64 {
	return int64(format.Word(h.bytes(), b+2*format.WordSize))
}

func (h *Heap) setPrevFree(b, v int64) {
	format.PutWord(h.bytes(), b+2*format.WordSize, uint64(v))
}

// classify returns the bucket index for a block size. Minimum-size blocks go
// to bucket 0; class i >= 1 covers [min*2^i, min*2^(i+1)), and the last class
// catches everything larger.
func (h *Heap) classify(size uint64) int {
	if size <= format.MinBlockSize {
		return 0
	}
	for i := 1; i < len(h.buckets)-1; i++ {
		if size < format.MinBlockSize<<(i+1) {
			return i
		}
	}
	return len(h.buckets) - 1
}

func (h *Heap) bucketFor(size uint64) bucket {
	return h.buckets[h.classify(size)]
}

// miniBucket holds blocks of exactly the minimum size, singly linked.
type miniBucket struct {
	first int64
}

func (mb *miniBucket) head() int64 { return mb.first }

func (mb *miniBucket) insert(h *Heap, b int64) {
	h.setNextFree(b, mb.first)
	mb.first = b
}

func (mb *miniBucket) remove(h *Heap, b int64) {
	if mb.first == b {
		mb.first = h.nextFree(b)
		return
	}
	// Mini blocks carry no prev link: walk from the head to find the
	// predecessor. Linear in bucket length.
	prev := mb.first
	for cur := h.nextFree(prev); cur != nilBlock; cur = h.nextFree(cur) {
		h.stats.MiniScanSteps++
		if cur == b {
			h.setNextFree(prev, h.nextFree(b))
			return
		}
		prev = cur
	}
}

// sizeBucket holds blocks of one size class, doubly linked for O(1) removal.
type sizeBucket struct {
	first int64
}

func (sb *sizeBucket) head() int64 { return sb.first }

func (sb *sizeBucket) insert(h *Heap, b int64) {
	h.setPrevFree(b, nilBlock)
	h.setNextFree(b, sb.first)
	if sb.first != nilBlock {
		h.setPrevFree(sb.first, b)
	}
	sb.first = b
}

func (sb *sizeBucket) remove(h *Heap, b int64) {
	prev := h.prevFree(b)
	next := h.nextFree(b)
	if prev != nilBlock {
		h.setNextFree(prev, next)
	} else {
		sb.first = next
	}
	if next != nilBlock {
		h.setPrevFree(next, prev)
	}
}
