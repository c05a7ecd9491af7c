package heap

import "errors"

var (
	// ErrNoSpace indicates that no free block large enough was found and
	// growing the region failed. The heap is left valid and unchanged.
	ErrNoSpace = errors.New("heap: out of memory")

	// ErrBadRef indicates an invalid, misaligned, or out-of-bounds reference.
	ErrBadRef = errors.New("heap: bad reference")

	// ErrNotAllocated indicates an attempt to free or resize a block that is
	// not marked allocated.
	ErrNotAllocated = errors.New("heap: block is not allocated")

	// ErrSizeOverflow indicates a Calloc request whose count*elemSize product
	// wraps the native word.
	ErrSizeOverflow = errors.New("heap: allocation size overflow")

	// ErrClosed indicates use of a heap after Close.
	ErrClosed = errors.New("heap: closed")
)
