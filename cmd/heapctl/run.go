package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jvh-systems/blockheap/heap"
)

var (
	runPreset  string
	runMaxHeap int64
	runVerify  bool
)

func init() {
	cmd := newRunCmd()
	cmd.Flags().StringVar(&runPreset, "preset", "default", "Configuration preset (default, compact, throughput)")
	cmd.Flags().Int64Var(&runMaxHeap, "max-heap", 0, "Override the heap reservation limit in bytes")
	cmd.Flags().BoolVar(&runVerify, "verify", false, "Run the consistency checker after every operation")
	rootCmd.AddCommand(cmd)
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <trace>",
		Short: "Replay an allocation trace",
		Long: `The run command replays an allocation trace file against a fresh heap
and reports utilization and allocator statistics.

Trace files hold one operation per line; blank lines and lines starting
with # are skipped:

  a <id> <size>          allocate <size> bytes as block <id>
  r <id> <size>          resize block <id> to <size> bytes
  f <id>                 free block <id>
  c <id> <count> <size>  allocate and zero <count> elements of <size> bytes

Example:
  heapctl run workload.trace
  heapctl run workload.trace --preset compact --verify
  heapctl run workload.trace --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(args)
		},
	}
	return cmd
}

// TraceResult summarizes one trace replay.
type TraceResult struct {
	File   string
	Preset string

	Ops      int
	Allocs   int
	Reallocs int
	Frees    int
	Callocs  int

	PeakLiveBytes int64 // peak sum of live requested bytes
	FinalHeapSize int64
	Utilization   float64 // PeakLiveBytes / FinalHeapSize

	Stats heap.Stats
}

func presetConfig(name string) (heap.Config, error) {
	switch name {
	case "default":
		return heap.ConfigDefault, nil
	case "compact":
		return heap.ConfigCompact, nil
	case "throughput":
		return heap.ConfigThroughput, nil
	default:
		return heap.Config{}, fmt.Errorf("unknown preset: %s (must be default, compact, or throughput)", name)
	}
}

func runTrace(args []string) error {
	tracePath := args[0]

	cfg, err := presetConfig(runPreset)
	if err != nil {
		return err
	}
	if runMaxHeap > 0 {
		cfg.MaxHeap = runMaxHeap
	}
	cfg.Verify = runVerify

	f, err := os.Open(tracePath)
	if err != nil {
		return fmt.Errorf("failed to open trace: %w", err)
	}
	defer f.Close()

	printVerbose("Replaying %s with preset %s\n", tracePath, runPreset)

	h, err := heap.New(&cfg)
	if err != nil {
		return fmt.Errorf("failed to create heap: %w", err)
	}
	defer h.Close()

	result := TraceResult{File: tracePath, Preset: runPreset}
	refs := make(map[int]heap.Ref)
	sizes := make(map[int]uint64)
	var liveBytes int64

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		op, fieldErr := applyTraceOp(h, fields, refs, sizes, &liveBytes)
		if fieldErr != nil {
			return fmt.Errorf("%s:%d: %w", tracePath, lineNo, fieldErr)
		}

		result.Ops++
		switch op {
		case "a":
			result.Allocs++
		case "r":
			result.Reallocs++
		case "f":
			result.Frees++
		case "c":
			result.Callocs++
		}
		if liveBytes > result.PeakLiveBytes {
			result.PeakLiveBytes = liveBytes
		}
		printVerbose("%s:%d: %s (live %d bytes)\n", tracePath, lineNo, line, liveBytes)
	}
	if scanErr := scanner.Err(); scanErr != nil {
		return fmt.Errorf("failed to read trace: %w", scanErr)
	}

	if checkErr := h.Check(); checkErr != nil {
		return fmt.Errorf("heap inconsistent after replay: %w", checkErr)
	}

	result.FinalHeapSize = h.Size()
	result.Stats = h.Stats()
	if result.FinalHeapSize > 0 {
		result.Utilization = float64(result.PeakLiveBytes) / float64(result.FinalHeapSize)
	}

	return reportTrace(result)
}

// applyTraceOp executes one parsed trace line and returns its opcode.
func applyTraceOp(h *heap.Heap, fields []string, refs map[int]heap.Ref, sizes map[int]uint64, liveBytes *int64) (string, error) {
	op := fields[0]
	wantArgs := map[string]int{"a": 2, "r": 2, "f": 1, "c": 3}
	n, ok := wantArgs[op]
	if !ok {
		return op, fmt.Errorf("unknown operation %q", op)
	}
	if len(fields) != n+1 {
		return op, fmt.Errorf("operation %q takes %d argument(s), got %d", op, n, len(fields)-1)
	}
	id, err := strconv.Atoi(fields[1])
	if err != nil {
		return op, fmt.Errorf("bad block id %q: %w", fields[1], err)
	}

	switch op {
	case "a":
		size, sizeErr := strconv.ParseUint(fields[2], 10, 64)
		if sizeErr != nil {
			return op, fmt.Errorf("bad size %q: %w", fields[2], sizeErr)
		}
		if _, exists := refs[id]; exists {
			return op, fmt.Errorf("block %d already allocated", id)
		}
		ref, _, allocErr := h.Alloc(size)
		if allocErr != nil {
			return op, fmt.Errorf("alloc %d bytes: %w", size, allocErr)
		}
		refs[id] = ref
		sizes[id] = size
		*liveBytes += int64(size)

	case "r":
		size, sizeErr := strconv.ParseUint(fields[2], 10, 64)
		if sizeErr != nil {
			return op, fmt.Errorf("bad size %q: %w", fields[2], sizeErr)
		}
		old, exists := refs[id]
		if !exists {
			return op, fmt.Errorf("block %d not allocated", id)
		}
		ref, _, reErr := h.Realloc(old, size)
		if reErr != nil {
			return op, fmt.Errorf("realloc block %d to %d bytes: %w", id, size, reErr)
		}
		*liveBytes += int64(size) - int64(sizes[id])
		if size == 0 {
			delete(refs, id)
			delete(sizes, id)
		} else {
			refs[id] = ref
			sizes[id] = size
		}

	case "f":
		ref, exists := refs[id]
		if !exists {
			return op, fmt.Errorf("block %d not allocated", id)
		}
		if freeErr := h.Free(ref); freeErr != nil {
			return op, fmt.Errorf("free block %d: %w", id, freeErr)
		}
		*liveBytes -= int64(sizes[id])
		delete(refs, id)
		delete(sizes, id)

	case "c":
		count, countErr := strconv.ParseUint(fields[2], 10, 64)
		if countErr != nil {
			return op, fmt.Errorf("bad count %q: %w", fields[2], countErr)
		}
		size, sizeErr := strconv.ParseUint(fields[3], 10, 64)
		if sizeErr != nil {
			return op, fmt.Errorf("bad size %q: %w", fields[3], sizeErr)
		}
		if _, exists := refs[id]; exists {
			return op, fmt.Errorf("block %d already allocated", id)
		}
		ref, _, callocErr := h.Calloc(count, size)
		if callocErr != nil {
			return op, fmt.Errorf("calloc %d x %d bytes: %w", count, size, callocErr)
		}
		refs[id] = ref
		sizes[id] = count * size
		*liveBytes += int64(count * size)
	}
	return op, nil
}

func reportTrace(result TraceResult) error {
	if jsonOut {
		return printJSON(result)
	}

	printInfo("\nTrace Replay: %s\n", result.File)
	printInfo("%s\n\n", strings.Repeat("=", 40))

	printInfo("Operations:\n")
	printInfo("  Total: %d\n", result.Ops)
	printInfo("  Alloc: %d  Realloc: %d  Free: %d  Calloc: %d\n\n",
		result.Allocs, result.Reallocs, result.Frees, result.Callocs)

	printInfo("Memory:\n")
	printInfo("  Peak live: %s\n", formatBytes(result.PeakLiveBytes))
	printInfo("  Final heap size: %s\n", formatBytes(result.FinalHeapSize))
	printInfo("  Utilization: %.1f%%\n\n", result.Utilization*100)

	printInfo("Allocator:\n")
	printInfo("  Fast path: %d  Slow path: %d\n", result.Stats.AllocFastPath, result.Stats.AllocSlowPath)
	printInfo("  Growths: %d (%s)\n", result.Stats.GrowCalls, formatBytes(result.Stats.GrowBytes))
	printInfo("  Splits: %d  Coalesces: %d forward, %d backward\n",
		result.Stats.SplitCount, result.Stats.CoalesceForward, result.Stats.CoalesceBackward)

	return nil
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
