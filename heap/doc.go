// Package heap implements a general-purpose dynamic memory allocator over a
// single contiguous growable byte region.
//
// # Overview
//
// Block metadata is encoded directly in the managed bytes: every block starts
// with a header word packing its size with three state bits, and free blocks
// larger than the minimum duplicate the header in a trailing footer word so
// neighbors can be traversed backwards. Free blocks are indexed by an array
// of segregated free-list buckets partitioned by size class, adjacent free
// blocks are merged immediately, and a read-only consistency checker can
// validate the whole structure.
//
// # Operations
//
//   - Alloc(size): allocate a block of at least size payload bytes
//   - Free(ref): return a block, merging with free neighbors
//   - Realloc(ref, size): resize by allocate-copy-free
//   - Calloc(count, elemSize): overflow-checked, zero-filled allocation
//   - Check(): whole-heap and whole-free-list validation
//
// References are int64 payload offsets into the arena rather than pointers,
// so the backing region may relocate (on platforms without a reserved
// mapping) without invalidating live allocations.
//
// # Block layout
//
// Sizes are multiples of the 16-byte double-word unit and at least 16 bytes;
// payload offsets are 16-byte aligned. While a block is free its payload
// holds the free-list links: a next link in the first word and, for blocks
// larger than the minimum, a prev link in the second. A 16-byte "mini" block
// has room for neither a footer nor a prev link, so bucket 0 is singly
// linked and each block's successor records the previous-block-is-mini bit
// in its own header.
//
// # Size classes
//
// Bucket 0 holds only mini blocks. Bucket i >= 1 covers sizes in
// [16*2^i, 16*2^(i+1)), and the last bucket is unbounded above. Allocation
// scans buckets upward from the request's class, examining a bounded number
// of candidates per bucket (Config.FitScanCap) and taking the smallest fit.
//
// # Growth
//
// When no free block fits, the heap grows its backing region (internal/mem)
// by at least Config.ChunkSize bytes, converts the new bytes into one free
// block in place of the former epilogue sentinel, and coalesces it with the
// previous last block. The region only grows; the heap never shrinks.
//
// # Thread safety
//
// A Heap is not safe for concurrent use. All operations run to completion on
// the calling goroutine with no internal locking; callers needing concurrent
// access must serialize externally or use one Heap per goroutine.
package heap
