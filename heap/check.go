package heap

import (
	"fmt"

	"github.com/jvh-systems/blockheap/internal/format"
)

// CheckCode identifies which heap invariant a consistency check found broken.
type CheckCode int

const (
	CheckNotInitialized CheckCode = iota + 1
	CheckBadPrologue
	CheckBadEpilogue
	CheckBadAlignment
	CheckBadBlockSize
	CheckOutOfBounds
	CheckFooterMismatch
	CheckAdjacentFree
	CheckPrevStateMismatch
	CheckBrokenLinks
	CheckWrongBucket
	CheckListedNotFree
	CheckCountMismatch
)

var checkCodeNames = map[CheckCode]string{
	CheckNotInitialized:    "heap not initialized",
	CheckBadPrologue:       "bad prologue",
	CheckBadEpilogue:       "bad epilogue",
	CheckBadAlignment:      "misaligned block",
	CheckBadBlockSize:      "bad block size",
	CheckOutOfBounds:       "block out of heap bounds",
	CheckFooterMismatch:    "header/footer mismatch",
	CheckAdjacentFree:      "two free blocks adjacent",
	CheckPrevStateMismatch: "stale previous-block bits",
	CheckBrokenLinks:       "free-list links asymmetric",
	CheckWrongBucket:       "block in wrong size class",
	CheckListedNotFree:     "allocated block in free list",
	CheckCountMismatch:     "heap/free-list count mismatch",
}

func (c CheckCode) String() string {
	if s, ok := checkCodeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("CheckCode(%d)", int(c))
}

// CheckError reports a single violated invariant with a diagnostic code.
type CheckError struct {
	Code CheckCode
	Off  int64 // offset of the offending block, or -1
}

func (e *CheckError) Error() string {
	if e.Off < 0 {
		return fmt.Sprintf("check %d: %s", int(e.Code), e.Code)
	}
	return fmt.Sprintf("check %d: %s (block offset %d)", int(e.Code), e.Code, e.Off)
}

func checkFail(code CheckCode, off int64) error {
	return &CheckError{Code: code, Off: off}
}

// Check validates the whole heap and the whole bucket array without mutating
// either. It walks every block verifying shape, alignment, bounds,
// header/footer equality, previous-state bits, and the no-adjacent-free rule,
// then walks every bucket verifying membership, class, and link symmetry,
// and finally compares the two free-block counts.
func (h *Heap) Check() error {
	if h.region == nil || h.region.Len() < 2*format.WordSize {
		return checkFail(CheckNotInitialized, -1)
	}
	data := h.bytes()
	epi := h.epilogue()

	// Sentinels: zero-size, permanently allocated.
	pro := format.Word(data, 0)
	if format.Size(pro) != 0 || !format.Alloc(pro) {
		return checkFail(CheckBadPrologue, 0)
	}
	epiWord := format.Word(data, epi)
	if format.Size(epiWord) != 0 || !format.Alloc(epiWord) {
		return checkFail(CheckBadEpilogue, epi)
	}
	if epi%format.DWordSize != format.WordSize {
		return checkFail(CheckBadEpilogue, epi)
	}

	freeInHeap := 0
	prevWasFree := false
	prevAlloc := true // prologue counts as allocated
	prevSize := uint64(0)

	for b := heapStart; b < epi; b = h.nextBlock(b) {
		if b%format.DWordSize != format.WordSize {
			return checkFail(CheckBadAlignment, b)
		}
		w := format.Word(data, b)
		size := format.Size(w)
		if size < format.MinBlockSize || !format.DWordAligned(size) {
			return checkFail(CheckBadBlockSize, b)
		}
		if b+int64(size) > epi {
			return checkFail(CheckOutOfBounds, b)
		}
		if format.PrevAlloc(w) != prevAlloc {
			return checkFail(CheckPrevStateMismatch, b)
		}
		if format.PrevMini(w) != (prevSize == format.MinBlockSize) {
			return checkFail(CheckPrevStateMismatch, b)
		}

		if !format.Alloc(w) {
			freeInHeap++
			if prevWasFree {
				return checkFail(CheckAdjacentFree, b)
			}
			if size > format.MinBlockSize {
				footer := format.Word(data, b+int64(size)-format.WordSize)
				if footer != w {
					return checkFail(CheckFooterMismatch, b)
				}
				// x.next.prev == x for doubly linked free blocks.
				if nf := h.nextFree(b); nf != nilBlock {
					if nf < heapStart || nf >= epi || h.prevFree(nf) != b {
						return checkFail(CheckBrokenLinks, b)
					}
				}
			}
		}

		prevWasFree = !format.Alloc(w)
		prevAlloc = format.Alloc(w)
		prevSize = size
	}

	// Every free block reachable from the buckets must be a free, in-bounds
	// block of the right class, and the bucket view must account for exactly
	// the free blocks the heap walk saw.
	freeInBuckets := 0
	for i, bk := range h.buckets {
		for b := bk.head(); b != nilBlock; b = h.nextFree(b) {
			if b < heapStart || b >= epi {
				return checkFail(CheckOutOfBounds, b)
			}
			w := format.Word(data, b)
			if format.Alloc(w) {
				return checkFail(CheckListedNotFree, b)
			}
			if h.classify(format.Size(w)) != i {
				return checkFail(CheckWrongBucket, b)
			}
			if i > 0 {
				if nf := h.nextFree(b); nf != nilBlock && h.prevFree(nf) != b {
					return checkFail(CheckBrokenLinks, b)
				}
			}
			freeInBuckets++
			if freeInBuckets > freeInHeap {
				// More listed blocks than free blocks exist: a cycle or a
				// double insertion. Stop before looping forever.
				return checkFail(CheckCountMismatch, b)
			}
		}
	}
	if freeInBuckets != freeInHeap {
		return checkFail(CheckCountMismatch, -1)
	}
	return nil
}
