// Package mem provides the grow-only byte region backing the allocator
// arena. The region is reserved once with a fixed upper bound and extended in
// place; it never shrinks and granted bytes are never revoked. Callers
// address the region by offset, not by pointer, so implementations are free
// to relocate the backing storage as long as Bytes reflects the move.
package mem

import (
	"errors"
	"fmt"
)

var (
	// ErrNoMemory indicates the reservation limit would be exceeded.
	ErrNoMemory = errors.New("mem: region exhausted")

	// ErrBadSize indicates a non-positive reservation or grow request.
	ErrBadSize = errors.New("mem: size must be positive")
)

// Region is a contiguous byte range that only grows. Not safe for concurrent
// use; the allocator owning it serializes all access.
type Region struct {
	buf     []byte
	brk     int64
	max     int64
	release func() error
}

// Grow extends the region by n bytes and returns the offset at which the new
// bytes begin. The returned offset equals the region's previous length.
func (r *Region) Grow(n int64) (int64, error) {
	if n <= 0 {
		return 0, fmt.Errorf("%w: grow(%d)", ErrBadSize, n)
	}
	if r.brk+n > r.max {
		return 0, fmt.Errorf("%w: have %d of %d, need %d more", ErrNoMemory, r.brk, r.max, n)
	}
	if err := r.extend(n); err != nil {
		return 0, err
	}
	old := r.brk
	r.brk += n
	return old, nil
}

// Bytes returns the granted portion of the region. The slice is invalidated
// by the next Grow call; callers must re-fetch it after growing.
func (r *Region) Bytes() []byte {
	return r.buf[:r.brk]
}

// Len returns the number of granted bytes.
func (r *Region) Len() int64 {
	return r.brk
}

// Max returns the reservation limit.
func (r *Region) Max() int64 {
	return r.max
}

// Close releases the reservation. The region must not be used afterwards.
func (r *Region) Close() error {
	r.brk = 0
	r.max = 0
	if r.release == nil {
		r.buf = nil
		return nil
	}
	rel := r.release
	r.release = nil
	r.buf = nil
	return rel()
}
