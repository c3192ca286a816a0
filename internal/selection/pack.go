package selection

// PackRange stores a character range in one int64: start in the high 32
// bits and end in the low 32 bits.
func PackRange(start, end int) int64 {
	return int64(start)<<32 | int64(uint32(end))
}

// UnpackRange reverses PackRange.
func UnpackRange(v int64) (start, end int) {
	return int(int32(v >> 32)), int(int32(uint32(v)))
}
