package heap

import (
	"fmt"
	"os"

	"github.com/jvh-systems/blockheap/internal/format"
)

// Debug flag - set to true to enable verbose logging (compile-time toggle).
const debugHeap = false

// Runtime debug flag for operation logging - controlled by BLOCKHEAP_LOG env var.
var logHeap = os.Getenv("BLOCKHEAP_LOG") != ""

// debugLogf prints debug messages if debugHeap is enabled.
func debugLogf(msg string, args ...any) {
	if debugHeap {
		fmt.Fprintf(os.Stderr, "[HEAP] "+msg+"\n", args...)
	}
}

// dumpHeap writes the block sequence to stderr for debugging.
func (h *Heap) dumpHeap() {
	if !debugHeap && !logHeap {
		return
	}

	epi := h.epilogue()
	fmt.Fprintf(os.Stderr, "\n=== HEAP DUMP (%d bytes, epilogue at %d) ===\n", h.region.Len(), epi)
	for b := heapStart; b < epi; b = h.nextBlock(b) {
		w := h.header(b)
		state := "free"
		if format.Alloc(w) {
			state = "alloc"
		}
		fmt.Fprintf(os.Stderr, "  block off=%d size=%d %s prevAlloc=%v prevMini=%v\n",
			b, format.Size(w), state, format.PrevAlloc(w), format.PrevMini(w))
		if format.Size(w) == 0 {
			fmt.Fprintf(os.Stderr, "  !! zero-size block, aborting walk\n")
			break
		}
	}
	for i, bk := range h.buckets {
		n := 0
		for b := bk.head(); b != nilBlock; b = h.nextFree(b) {
			n++
			if n > 1<<20 {
				break
			}
		}
		if n > 0 {
			fmt.Fprintf(os.Stderr, "  bucket[%d]: %d blocks\n", i, n)
		}
	}
}
