package heap

import (
	"fmt"

	"github.com/jvh-systems/blockheap/internal/format"
	"github.com/jvh-systems/blockheap/internal/mem"
)

// Ref is a payload reference: the offset of a block's payload within the
// arena. NilRef is the null reference.
type Ref = int64

// NilRef is returned for zero-size allocations and failures.
const NilRef Ref = 0

const (
	// heapStart is the offset of the first block header. The prologue
	// footer occupies the word before it, so block headers sit at offsets
	// congruent to 8 mod 16 and payloads at multiples of 16.
	heapStart int64 = format.WordSize

	// nilBlock is the nil value for block offsets and free-list links.
	// Offset 0 holds the prologue word, so no block ever starts there.
	nilBlock int64 = 0
)

// Heap is a dynamic allocator over a single contiguous growable byte region.
// Block metadata lives in the managed bytes themselves; free blocks are
// indexed by an array of segregated free-list buckets.
//
// A Heap is not safe for concurrent use. Callers needing concurrency must
// serialize operations externally or use one Heap per goroutine.
type Heap struct {
	region  *mem.Region
	cfg     Config
	buckets []bucket
	stats   Stats
}

// New creates and initializes a heap. A nil config selects DefaultConfig.
func New(cfg *Config) (*Heap, error) {
	c := DefaultConfig
	if cfg != nil {
		c = *cfg
	}
	c = c.withDefaults()
	if !format.DWordAligned(c.ChunkSize) {
		return nil, fmt.Errorf("%w: chunk size %d not double-word aligned", ErrBadRef, c.ChunkSize)
	}

	region, err := mem.Reserve(c.MaxHeap)
	if err != nil {
		return nil, err
	}

	h := &Heap{
		region:  region,
		cfg:     c,
		buckets: make([]bucket, c.NumClasses),
	}
	h.buckets[0] = &miniBucket{}
	for i := 1; i < c.NumClasses; i++ {
		h.buckets[i] = &sizeBucket{}
	}

	if err := h.init(); err != nil {
		region.Close()
		return nil, err
	}
	return h, nil
}

// init lays down the prologue and epilogue sentinels and seeds the heap with
// one chunk-sized free block.
func (h *Heap) init() error {
	if _, err := h.region.Grow(2 * format.WordSize); err != nil {
		return err
	}
	data := h.bytes()
	format.PutWord(data, 0, format.Pack(0, true, false, false))         // prologue (block footer)
	format.PutWord(data, heapStart, format.Pack(0, true, true, false))  // epilogue (block header)

	b, err := h.extendHeap(h.cfg.ChunkSize)
	if err != nil {
		return err
	}
	h.bucketFor(h.size(b)).insert(h, b)
	return nil
}

// Close releases the backing region. The heap must not be used afterwards.
func (h *Heap) Close() error {
	if h.region == nil {
		return ErrClosed
	}
	err := h.region.Close()
	h.region = nil
	h.buckets = nil
	return err
}

// Size returns the current heap size in bytes, sentinels included.
func (h *Heap) Size() int64 {
	if h.region == nil {
		return 0
	}
	return h.region.Len()
}

// ----------------------------------------------------------------------------
// Block primitives
// ----------------------------------------------------------------------------

func (h *Heap) bytes() []byte {
	return h.region.Bytes()
}

// epilogue returns the offset of the epilogue header, the last word of the
// granted region.
func (h *Heap) epilogue() int64 {
	return h.region.Len() - format.WordSize
}

func (h *Heap) header(b int64) uint64 {
	return format.Word(h.bytes(), b)
}

func (h *Heap) size(b int64) uint64 {
	return format.Size(h.header(b))
}

func (h *Heap) allocated(b int64) bool {
	return format.Alloc(h.header(b))
}

func (h *Heap) prevAllocated(b int64) bool {
	return format.PrevAlloc(h.header(b))
}

func (h *Heap) prevMini(b int64) bool {
	return format.PrevMini(h.header(b))
}

// payloadOf returns the payload offset for a block header offset.
func payloadOf(b int64) Ref {
	return b + format.WordSize
}

// blockOf returns the block header offset for a payload reference.
func blockOf(ref Ref) int64 {
	return ref - format.WordSize
}

// payloadSize returns the usable payload bytes of an allocated block: the
// block minus its header word. Allocated blocks carry no footer.
func (h *Heap) payloadSize(b int64) uint64 {
	return h.size(b) - format.WordSize
}

// payloadSlice returns the payload bytes of block b. Valid until the next
// operation that grows the region.
func (h *Heap) payloadSlice(b int64) []byte {
	return h.bytes()[payloadOf(b) : b+int64(h.size(b))]
}

// nextBlock returns the heap-order successor of b. Must not be called on the
// epilogue.
func (h *Heap) nextBlock(b int64) int64 {
	return b + int64(h.size(b))
}

// prevBlock returns the heap-order predecessor of a block whose predecessor
// is free. A mini predecessor has no footer, so its position comes from the
// prev-mini header bit; otherwise the predecessor's footer gives its size.
// Returns nilBlock when the predecessor is the prologue.
func (h *Heap) prevBlock(b int64) int64 {
	if h.prevMini(b) {
		return b - format.MinBlockSize
	}
	footer := format.Word(h.bytes(), b-format.WordSize)
	psize := format.Size(footer)
	if psize == 0 {
		return nilBlock
	}
	return b - int64(psize)
}

// writeBlock writes b's header (and footer, for free blocks larger than the
// minimum) for the given size and allocation state. The previous-block bits
// are preserved from the existing header, so the current header must be valid
// before the call.
func (h *Heap) writeBlock(b int64, size uint64, alloc bool) {
	old := h.header(b)
	h.writeBlockRaw(b, size, alloc, format.PrevAlloc(old), format.PrevMini(old))
}

// writeBlockRaw writes b's header with explicit previous-block bits. Used
// where the target bytes hold no valid header yet, such as a split remainder.
func (h *Heap) writeBlockRaw(b int64, size uint64, alloc, prevAlloc, prevMini bool) {
	w := format.Pack(size, alloc, prevAlloc, prevMini)
	data := h.bytes()
	format.PutWord(data, b, w)
	if !alloc && size > format.MinBlockSize {
		// Footer duplicates the header; mini free blocks have no room.
		format.PutWord(data, b+int64(size)-format.WordSize, w)
	}
}

// syncNextHeader refreshes the successor's previous-block bits to describe b.
// If the successor is a free block with a footer, the footer is rewritten to
// stay bit-identical to its header.
func (h *Heap) syncNextHeader(b int64) {
	next := h.nextBlock(b)
	w := h.header(next)
	w = format.Pack(format.Size(w), format.Alloc(w), h.allocated(b), h.size(b) == format.MinBlockSize)
	data := h.bytes()
	format.PutWord(data, next, w)
	if nsize := format.Size(w); !format.Alloc(w) && nsize > format.MinBlockSize {
		format.PutWord(data, next+int64(nsize)-format.WordSize, w)
	}
}

// validRef checks that ref plausibly points at a live payload: in bounds and
// double-word aligned. It does not prove the block is allocated.
func (h *Heap) validRef(ref Ref) bool {
	if ref < payloadOf(heapStart) || ref >= h.epilogue() {
		return false
	}
	return ref%format.DWordSize == 0
}

// verifyAfter runs the consistency checker after a public operation when
// Config.Verify is set. Violations are fatal.
func (h *Heap) verifyAfter(op string) {
	if err := h.Check(); err != nil {
		h.dumpHeap()
		panic(fmt.Sprintf("heap: consistency violation after %s: %v", op, err))
	}
}
