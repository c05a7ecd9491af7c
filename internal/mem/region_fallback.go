//go:build !unix

package mem

import "fmt"

// initialCap is the starting capacity of the fallback backing slice.
const initialCap = 1 << 16

// Reserve creates a slice-backed region. The backing array relocates as it
// grows; that is safe because callers address the region by offset and
// re-fetch Bytes after every Grow.
func Reserve(max int64) (*Region, error) {
	if max <= 0 {
		return nil, fmt.Errorf("%w: reserve(%d)", ErrBadSize, max)
	}
	capHint := int64(initialCap)
	if capHint > max {
		capHint = max
	}
	return &Region{
		buf: make([]byte, 0, capHint),
		max: max,
	}, nil
}

// extend ensures the backing slice covers brk+n bytes, doubling capacity as
// needed. New bytes are zeroed by make.
func (r *Region) extend(n int64) error {
	need := r.brk + n
	if int64(len(r.buf)) >= need {
		return nil
	}
	if int64(cap(r.buf)) >= need {
		r.buf = r.buf[:need]
		return nil
	}
	newCap := int64(cap(r.buf)) * 2
	if newCap < need {
		newCap = need
	}
	if newCap > r.max {
		newCap = r.max
	}
	grown := make([]byte, need, newCap)
	copy(grown, r.buf)
	r.buf = grown
	return nil
}
