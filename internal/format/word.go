// Package format houses the bit-level codec for block boundary words. The
// goal is to keep the packing rules in one place, allocation-free, and
// independent from the allocator proper so the consistency checker and tests
// can decode headers without going through heap state.
package format

import "encoding/binary"

const (
	// WordSize is the size of a header or footer word in bytes.
	WordSize = 8

	// DWordSize is the double-word unit. Block sizes are multiples of this,
	// and every in-use payload offset is aligned to it.
	DWordSize = 16

	// MinBlockSize is the smallest legal block: one header word plus the
	// minimum payload. Free blocks of exactly this size ("mini blocks") have
	// no room for a footer or a back link.
	MinBlockSize = DWordSize
)

// Flag bits occupy the low four bits of a boundary word; sizes are multiples
// of DWordSize so the two encodings never collide.
const (
	allocMask     = 0x1
	prevAllocMask = 0x2
	prevMiniMask  = 0x4
	sizeMask      = ^uint64(0xF)
	flagMask      = uint64(0xF)
)

// Pack encodes a block's size and state bits into a boundary word.
//
// Layout (low bits):
//
//	bit 0  allocated
//	bit 1  previous block allocated
//	bit 2  previous block is minimum-sized
//	bit 3  reserved (always zero)
func Pack(size uint64, alloc, prevAlloc, prevMini bool) uint64 {
	w := size
	if alloc {
		w |= allocMask
	}
	if prevAlloc {
		w |= prevAllocMask
	}
	if prevMini {
		w |= prevMiniMask
	}
	return w
}

// Size extracts the block size from a boundary word.
func Size(w uint64) uint64 {
	return w & sizeMask
}

// Alloc reports whether the word marks its block allocated.
func Alloc(w uint64) bool {
	return w&allocMask != 0
}

// PrevAlloc reports whether the word marks the previous block allocated.
func PrevAlloc(w uint64) bool {
	return w&prevAllocMask != 0
}

// PrevMini reports whether the word marks the previous block as
// minimum-sized. A mini free block stores no footer, so this bit is the only
// way its successor can locate it.
func PrevMini(w uint64) bool {
	return w&prevMiniMask != 0
}

// Flags returns just the low flag bits of a word, for carrying previous-state
// bits across a header rewrite.
func Flags(w uint64) uint64 {
	return w & flagMask
}

// Word reads the boundary word at off in little-endian byte order.
func Word(b []byte, off int64) uint64 {
	return binary.LittleEndian.Uint64(b[off : off+WordSize])
}

// PutWord writes the boundary word at off in little-endian byte order.
func PutWord(b []byte, off int64, w uint64) {
	binary.LittleEndian.PutUint64(b[off:off+WordSize], w)
}
