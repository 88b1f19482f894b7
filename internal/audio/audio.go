package audio

import "time"

const (
	EngineRate    = 48000
	Channels      = 2
	BitDepth      = 16
	FrameDuration = 20 * time.Millisecond
	FrameSize     = 960                  // samples per channel per 20ms frame
	FrameSamples  = FrameSize * Channels // total interleaved samples per frame
	FrameBytes    = FrameSamples * 2     // bytes per frame (int16 = 2 bytes)
)

// SourceInfo describes an audio source in its native format, as reported by
// ffprobe. SampleRate and TotalFrames anchor the stem's position math; the
// render copy is decoded separately at the engine rate.
type SourceInfo struct {
	SampleRate  int
	Channels    int
	Duration    time.Duration
	TotalFrames int64 // native-rate frames
}
