package heap

// Stats holds internal allocator counters, for tests and instrumentation.
type Stats struct {
	AllocCalls     int   // Total Alloc() calls
	AllocFastPath  int   // Allocations served from the free lists
	AllocSlowPath  int   // Allocations that required growing the region
	FreeCalls      int   // Total Free() calls
	GrowCalls      int   // Region growth operations
	GrowBytes      int64 // Total bytes added via growth
	BytesAllocated int64 // Total block bytes handed out (including headers)
	BytesFreed     int64 // Total block bytes returned

	SplitCount       int // Oversized fits split in place
	CoalesceForward  int // Merges with the following block
	CoalesceBackward int // Merges with the preceding block

	// MiniScanSteps counts link hops spent removing non-head blocks from the
	// singly linked mini bucket. That path is linear in bucket length; the
	// counter makes the cost observable.
	MiniScanSteps int
}

// Stats returns a copy of the allocator's counters.
func (h *Heap) Stats() Stats {
	return h.stats
}
