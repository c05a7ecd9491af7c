package format

// Alignment utilities. Block sizes and payload offsets are aligned to the
// double-word unit; the flag bits in boundary words depend on it.

const dwordMask = DWordSize - 1

// AlignDWord returns n rounded up to the next double-word (16-byte) boundary.
//
// Example:
//
//	AlignDWord(1)  = 16
//	AlignDWord(16) = 16
//	AlignDWord(17) = 32
func AlignDWord(n uint64) uint64 {
	return (n + dwordMask) &^ uint64(dwordMask)
}

// DWordAligned reports whether n is a multiple of the double-word unit.
func DWordAligned(n uint64) bool {
	return n&dwordMask == 0
}
