package heap

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

type liveBlock struct {
	ref  Ref
	size uint64 // requested bytes, not block size
	pat  byte
}

// fillPattern stamps every requested byte of the block with its pattern.
func fillPattern(t *testing.T, h *Heap, lb liveBlock) {
	t.Helper()
	payload, err := h.Payload(lb.ref)
	require.NoError(t, err)
	for i := uint64(0); i < lb.size; i++ {
		payload[i] = lb.pat
	}
}

// verifyPattern checks the first n requested bytes still hold the pattern.
func verifyPattern(t *testing.T, h *Heap, lb liveBlock, n uint64) {
	t.Helper()
	payload, err := h.Payload(lb.ref)
	require.NoError(t, err)
	for i := uint64(0); i < n; i++ {
		require.Equal(t, lb.pat, payload[i],
			"payload at ref 0x%X corrupted at byte %d", lb.ref, i)
	}
}

// Test_Fuzz_RandomOps_GuardInvariants drives a random mix of alloc, free,
// realloc, and calloc against a single heap, validating every invariant and
// every live payload after each step. The seed is fixed so a failure replays.
func Test_Fuzz_RandomOps_GuardInvariants(t *testing.T) {
	cfg := ConfigDefault
	cfg.MaxHeap = 1 << 22
	h, err := New(&cfg)
	require.NoError(t, err)
	defer h.Close()

	rng := rand.New(rand.NewSource(42))
	var live []liveBlock
	pat := byte(1)

	for i := 0; i < 500; i++ {
		switch op := rng.Intn(4); op {
		case 0: // alloc
			size := uint64(1 + rng.Intn(512))
			ref, _, allocErr := h.Alloc(size)
			require.NoError(t, allocErr, "step %d: alloc(%d)", i, size)
			lb := liveBlock{ref: ref, size: size, pat: pat}
			pat++
			fillPattern(t, h, lb)
			live = append(live, lb)

		case 1: // free
			if len(live) == 0 {
				continue
			}
			j := rng.Intn(len(live))
			verifyPattern(t, h, live[j], live[j].size)
			require.NoError(t, h.Free(live[j].ref), "step %d: free", i)
			live[j] = live[len(live)-1]
			live = live[:len(live)-1]

		case 2: // realloc
			if len(live) == 0 {
				continue
			}
			j := rng.Intn(len(live))
			newSize := uint64(1 + rng.Intn(1024))
			ref, _, reErr := h.Realloc(live[j].ref, newSize)
			require.NoError(t, reErr, "step %d: realloc(%d)", i, newSize)
			kept := min(live[j].size, newSize)
			moved := liveBlock{ref: ref, size: newSize, pat: live[j].pat}
			verifyPattern(t, h, moved, kept)
			moved.pat = pat
			pat++
			fillPattern(t, h, moved)
			live[j] = moved

		case 3: // calloc
			count := uint64(1 + rng.Intn(16))
			elem := uint64(1 + rng.Intn(32))
			ref, payload, cErr := h.Calloc(count, elem)
			require.NoError(t, cErr, "step %d: calloc(%d,%d)", i, count, elem)
			for k := uint64(0); k < count*elem; k++ {
				require.Zero(t, payload[k], "step %d: calloc byte %d dirty", i, k)
			}
			lb := liveBlock{ref: ref, size: count * elem, pat: pat}
			pat++
			fillPattern(t, h, lb)
			live = append(live, lb)
		}

		require.NoError(t, h.Check(), "step %d: heap check failed", i)
	}

	// Drain and confirm the heap collapses back to one maximal free block.
	for _, lb := range live {
		verifyPattern(t, h, lb, lb.size)
		require.NoError(t, h.Free(lb.ref))
	}
	require.NoError(t, h.Check())
	free := freeBlockOffsets(h)
	require.Len(t, free, 1)
	t.Logf("500 random operations completed, final heap size %d", h.Size())
}

// Test_Fuzz_StressAllocFree hammers the heap with rounds of bulk allocation
// followed by bulk release, checking consistency once per round.
func Test_Fuzz_StressAllocFree(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping stress test in short mode")
	}

	cfg := ConfigDefault
	cfg.MaxHeap = 1 << 24
	h, err := New(&cfg)
	require.NoError(t, err)
	defer h.Close()

	rng := rand.New(rand.NewSource(12345))

	for round := 0; round < 10; round++ {
		refs := make([]Ref, 0, 200)
		for n := 0; n < 200; n++ {
			size := uint64(1 + rng.Intn(2048))
			ref, _, allocErr := h.Alloc(size)
			require.NoError(t, allocErr, "round %d: alloc(%d)", round, size)
			refs = append(refs, ref)
		}

		// Free in a shuffled order so every coalescing case gets hit.
		rng.Shuffle(len(refs), func(a, b int) { refs[a], refs[b] = refs[b], refs[a] })
		for _, ref := range refs {
			require.NoError(t, h.Free(ref), "round %d: free", round)
		}

		require.NoError(t, h.Check(), "round %d: heap check failed", round)
		require.Len(t, freeBlockOffsets(h), 1, "round %d: heap did not coalesce", round)
	}
}
