package audio

import (
	"testing"
	"time"
)

// --- Constants ---

func TestConstants(t *testing.T) {
	// 48kHz * 20ms = 960 samples per channel
	if got := EngineRate * int(FrameDuration/time.Millisecond) / 1000; got != FrameSize {
		t.Errorf("FrameSize mismatch: want %d, got %d", got, FrameSize)
	}
	if FrameSamples != FrameSize*Channels {
		t.Errorf("FrameSamples = %d, want %d", FrameSamples, FrameSize*Channels)
	}
	if FrameBytes != FrameSamples*2 {
		t.Errorf("FrameBytes = %d, want %d", FrameBytes, FrameSamples*2)
	}
}

// --- MixInto ---

func TestMixIntoSums(t *testing.T) {
	dst := []int16{1000, -1000, 500, -500}
	src := []int16{2000, -2000, 1500, -1500}
	MixInto(dst, src)
	want := []int16{3000, -3000, 2000, -2000}
	for i, v := range want {
		if dst[i] != v {
			t.Errorf("sample[%d] = %d, want %d", i, dst[i], v)
		}
	}
}

func TestMixIntoClips(t *testing.T) {
	dst := []int16{32000, -32000, 32767, -32768}
	src := []int16{32000, -32000, 1, -1}
	MixInto(dst, src)
	want := []int16{32767, -32768, 32767, -32768}
	for i, v := range want {
		if dst[i] != v {
			t.Errorf("sample[%d] = %d, want %d (clipped)", i, dst[i], v)
		}
	}
}

func TestMixIntoShortSource(t *testing.T) {
	dst := []int16{10, 20, 30, 40}
	src := []int16{1, 2}
	MixInto(dst, src)
	want := []int16{11, 22, 30, 40}
	for i, v := range want {
		if dst[i] != v {
			t.Errorf("sample[%d] = %d, want %d", i, dst[i], v)
		}
	}
}

func TestMixIntoAt(t *testing.T) {
	dst := make([]int16, 6)
	src := []int16{5, 6, 7}
	MixIntoAt(dst, src, 2)
	want := []int16{0, 0, 5, 6, 7, 0}
	for i, v := range want {
		if dst[i] != v {
			t.Errorf("sample[%d] = %d, want %d", i, dst[i], v)
		}
	}
}

func TestMixIntoAtOutOfRange(t *testing.T) {
	dst := []int16{1, 2}
	MixIntoAt(dst, []int16{9, 9}, 5)
	MixIntoAt(dst, []int16{9, 9}, -1)
	if dst[0] != 1 || dst[1] != 2 {
		t.Errorf("out-of-range offset must leave dst untouched: got %v", dst)
	}
}

// --- SamplesToBytes / round-trip ---

func TestSamplesToBytes(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768, 256}
	buf := SamplesToBytes(samples)
	if len(buf) != len(samples)*2 {
		t.Fatalf("SamplesToBytes length = %d, want %d", len(buf), len(samples)*2)
	}

	// Verify little-endian encoding manually for a known value
	// 256 = 0x0100 -> bytes [0x00, 0x01]
	idx := 5 * 2
	if buf[idx] != 0x00 || buf[idx+1] != 0x01 {
		t.Errorf("Sample 256 encoded as [%02x, %02x], want [00, 01]", buf[idx], buf[idx+1])
	}
}

func TestSamplesBytesRoundTrip(t *testing.T) {
	original := []int16{0, 1, -1, 32767, -32768, 12345, -6789}
	buf := SamplesToBytes(original)

	recovered := make([]int16, len(buf)/2)
	for i := range recovered {
		recovered[i] = int16(uint16(buf[i*2]) | uint16(buf[i*2+1])<<8)
	}

	for i, v := range original {
		if recovered[i] != v {
			t.Errorf("Round-trip sample[%d]: got %d, want %d", i, recovered[i], v)
		}
	}
}
