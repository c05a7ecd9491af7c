package heap

// coalesce merges a freshly freed (or newly extended) block with its free
// neighbors. Neighbors absorbed into the merge are removed from their
// buckets; the returned block is free and NOT in any bucket - insertion is
// the caller's decision, so the growth and free paths can share this logic.
func (h *Heap) coalesce(b int64) int64 {
	next := h.nextBlock(b)
	prevAlloc := h.prevAllocated(b)
	nextAlloc := h.allocated(next)
	size := h.size(b)

	switch {
	case prevAlloc && nextAlloc:
		// Neither neighbor is free: b stands alone.
		h.writeBlock(b, size, false)

	case prevAlloc && !nextAlloc:
		h.stats.CoalesceForward++
		h.bucketFor(h.size(next)).remove(h, next)
		size += h.size(next)
		h.writeBlock(b, size, false)

	case !prevAlloc && nextAlloc:
		h.stats.CoalesceBackward++
		prev := h.prevBlock(b)
		h.bucketFor(h.size(prev)).remove(h, prev)
		size += h.size(prev)
		b = prev
		h.writeBlock(b, size, false)

	default:
		h.stats.CoalesceForward++
		h.stats.CoalesceBackward++
		h.bucketFor(h.size(next)).remove(h, next)
		size += h.size(next)
		prev := h.prevBlock(b)
		h.bucketFor(h.size(prev)).remove(h, prev)
		size += h.size(prev)
		b = prev
		h.writeBlock(b, size, false)
	}

	// The block after the merge must describe the merged block, and no two
	// free blocks may ever sit adjacent in heap order.
	h.syncNextHeader(b)
	return b
}
