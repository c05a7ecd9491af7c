//go:build unix

package mem

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Reserve maps an anonymous private region of max bytes. Pages are committed
// lazily by the kernel, so reserving far more than is ever granted costs only
// address space. The mapping never moves, which keeps Bytes stable between
// grows on unix.
func Reserve(max int64) (*Region, error) {
	if max <= 0 {
		return nil, fmt.Errorf("%w: reserve(%d)", ErrBadSize, max)
	}
	buf, err := unix.Mmap(-1, 0, int(max),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("mem: mmap reserve failed: %w", err)
	}
	return &Region{
		buf: buf,
		max: int64(len(buf)),
		release: func() error {
			return unix.Munmap(buf)
		},
	}, nil
}

// extend is a no-op on unix: the full reservation is already mapped and the
// kernel commits pages on first touch.
func (r *Region) extend(_ int64) error {
	return nil
}
