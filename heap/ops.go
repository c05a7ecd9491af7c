package heap

import (
	"fmt"
	"math/bits"
	"os"
)

// Free returns a block to the heap. Freeing NilRef is a no-op. The block is
// merged with any free neighbor before being indexed, so no two free blocks
// are ever adjacent in heap order.
func (h *Heap) Free(ref Ref) error {
	h.stats.FreeCalls++
	if h.cfg.Verify {
		defer h.verifyAfter("Free")
	}
	if ref == NilRef {
		return nil
	}
	if !h.validRef(ref) {
		return fmt.Errorf("%w: free(%d)", ErrBadRef, ref)
	}

	b := blockOf(ref)
	if !h.allocated(b) {
		return fmt.Errorf("%w: free(%d)", ErrNotAllocated, ref)
	}
	size := h.size(b)
	h.stats.BytesFreed += int64(size)

	h.writeBlock(b, size, false)
	b = h.coalesce(b)
	h.bucketFor(h.size(b)).insert(h, b)

	if logHeap {
		fmt.Fprintf(os.Stderr, "[HEAP] Free(%d): merged block off=%d size=%d\n", ref, b, h.size(b))
	}
	return nil
}

// Realloc resizes the allocation at ref to newSize payload bytes.
//
//   - newSize 0 frees ref and returns NilRef.
//   - ref NilRef is equivalent to Alloc(newSize).
//   - Otherwise a fresh block is allocated, min(old, new) payload bytes are
//     copied, and the old block is freed. If the fresh allocation fails the
//     original block is left untouched.
func (h *Heap) Realloc(ref Ref, newSize uint64) (Ref, []byte, error) {
	if newSize == 0 {
		return NilRef, nil, h.Free(ref)
	}
	if ref == NilRef {
		return h.Alloc(newSize)
	}
	if !h.validRef(ref) {
		return NilRef, nil, fmt.Errorf("%w: realloc(%d)", ErrBadRef, ref)
	}
	b := blockOf(ref)
	if !h.allocated(b) {
		return NilRef, nil, fmt.Errorf("%w: realloc(%d)", ErrNotAllocated, ref)
	}
	oldSize := h.payloadSize(b)

	newRef, payload, err := h.Alloc(newSize)
	if err != nil {
		return NilRef, nil, err
	}

	n := oldSize
	if newSize < n {
		n = newSize
	}
	// Alloc may have grown (and on some platforms relocated) the arena:
	// re-derive the old payload from current bytes rather than a stale slice.
	copy(payload[:n], h.bytes()[ref:ref+int64(n)])

	if err := h.Free(ref); err != nil {
		return NilRef, nil, err
	}
	return newRef, payload, nil
}

// Calloc allocates a zero-filled block for count elements of elemSize bytes.
// count 0 returns NilRef. A count*elemSize product that overflows is reported
// as ErrSizeOverflow rather than allocating a wrapped-around size.
func (h *Heap) Calloc(count, elemSize uint64) (Ref, []byte, error) {
	if count == 0 {
		return NilRef, nil, nil
	}
	hi, total := bits.Mul64(count, elemSize)
	if hi != 0 {
		return NilRef, nil, fmt.Errorf("%w: %d * %d", ErrSizeOverflow, count, elemSize)
	}

	ref, payload, err := h.Alloc(total)
	if err != nil || ref == NilRef {
		return ref, payload, err
	}
	clear(payload)
	return ref, payload, nil
}

// Payload returns the payload bytes of a live allocation. The slice is valid
// until the next operation that grows the heap.
func (h *Heap) Payload(ref Ref) ([]byte, error) {
	if !h.validRef(ref) {
		return nil, fmt.Errorf("%w: payload(%d)", ErrBadRef, ref)
	}
	b := blockOf(ref)
	if !h.allocated(b) {
		return nil, fmt.Errorf("%w: payload(%d)", ErrNotAllocated, ref)
	}
	return h.payloadSlice(b), nil
}
