package heap

// Config defines the allocator's tunables. Different configurations trade
// fit quality against search cost; none of them change the block layout.
type Config struct {
	// Name for this configuration (for benchmarking and stats output).
	Name string

	// NumClasses is the number of free-list buckets. Bucket 0 is reserved
	// for minimum-size blocks; the last bucket is unbounded above.
	NumClasses int

	// ChunkSize is the minimum number of bytes requested from the backing
	// region per growth. Must be a multiple of the double-word unit.
	ChunkSize uint64

	// FitScanCap bounds how many fitting candidates a bucket scan examines
	// before settling on the smallest seen. The cap keeps allocation
	// sublinear in free-list length; it is a quality knob, not a
	// correctness requirement.
	FitScanCap int

	// MaxHeap is the reservation limit for the backing region in bytes.
	MaxHeap int64

	// Verify runs the consistency checker after every public operation and
	// panics with the diagnostic on a violation. Intended for tests and
	// debug builds; zero cost when false.
	Verify bool
}

// Predefined configurations.
var (
	// ConfigDefault is a balanced configuration: 15 size classes,
	// page-sized growth, bounded best-fit scan of 5 candidates.
	ConfigDefault = Config{
		Name:       "Default",
		NumClasses: 15,
		ChunkSize:  1 << 12,
		FitScanCap: 5,
		MaxHeap:    1 << 30,
	}

	// ConfigCompact favors small footprints: slower growth, wider scans for
	// tighter fits.
	ConfigCompact = Config{
		Name:       "Compact",
		NumClasses: 15,
		ChunkSize:  1 << 10,
		FitScanCap: 16,
		MaxHeap:    1 << 26,
	}

	// ConfigThroughput favors allocation speed: large growth units and the
	// first fitting candidate wins.
	ConfigThroughput = Config{
		Name:       "Throughput",
		NumClasses: 20,
		ChunkSize:  1 << 16,
		FitScanCap: 1,
		MaxHeap:    1 << 32,
	}

	// DefaultConfig is used when New is given nil.
	DefaultConfig = ConfigDefault
)

// withDefaults fills zero-valued tunables from DefaultConfig.
func (c Config) withDefaults() Config {
	if c.NumClasses <= 0 {
		c.NumClasses = DefaultConfig.NumClasses
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = DefaultConfig.ChunkSize
	}
	if c.FitScanCap <= 0 {
		c.FitScanCap = DefaultConfig.FitScanCap
	}
	if c.MaxHeap <= 0 {
		c.MaxHeap = DefaultConfig.MaxHeap
	}
	return c
}
