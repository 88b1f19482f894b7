package audio

// MixInto adds src into dst sample by sample, clipping to the int16 range.
// Only the overlapping prefix is mixed, so a stem that runs out mid-frame
// contributes what it has left.
func MixInto(dst, src []int16) {
	n := len(src)
	if len(dst) < n {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		mixed := int32(dst[i]) + int32(src[i])
		if mixed > 32767 {
			mixed = 32767
		} else if mixed < -32768 {
			mixed = -32768
		}
		dst[i] = int16(mixed)
	}
}

// MixIntoAt adds src into dst starting at the given interleaved sample
// offset. Used for sample-accurate gating: a stem whose start instant
// falls inside a frame begins at that exact offset.
func MixIntoAt(dst, src []int16, offset int) {
	if offset < 0 || offset >= len(dst) {
		return
	}
	MixInto(dst[offset:], src)
}
