package audio

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"time"
)

// Decoder shells out to ffmpeg/ffprobe for source inspection and decode.
type Decoder struct {
	FFmpegPath  string
	FFprobePath string
}

// NewDecoder returns a Decoder using the given binary paths. Empty paths
// fall back to the binaries on $PATH.
func NewDecoder(ffmpegPath, ffprobePath string) *Decoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Decoder{FFmpegPath: ffmpegPath, FFprobePath: ffprobePath}
}

type probeOutput struct {
	Streams []struct {
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe reads the native sample rate, channel count, and duration of the
// first audio stream in the file.
func (d *Decoder) Probe(path string) (SourceInfo, error) {
	cmd := exec.Command(d.FFprobePath,
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=sample_rate,channels",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		return SourceInfo{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var po probeOutput
	if err := json.Unmarshal(out, &po); err != nil {
		return SourceInfo{}, fmt.Errorf("ffprobe parse %s: %w", path, err)
	}
	if len(po.Streams) == 0 {
		return SourceInfo{}, fmt.Errorf("ffprobe %s: no audio stream", path)
	}

	rate, err := strconv.Atoi(po.Streams[0].SampleRate)
	if err != nil || rate <= 0 {
		return SourceInfo{}, fmt.Errorf("ffprobe %s: bad sample rate %q", path, po.Streams[0].SampleRate)
	}
	durSec, err := strconv.ParseFloat(po.Format.Duration, 64)
	if err != nil || durSec < 0 {
		return SourceInfo{}, fmt.Errorf("ffprobe %s: bad duration %q", path, po.Format.Duration)
	}

	return SourceInfo{
		SampleRate:  rate,
		Channels:    po.Streams[0].Channels,
		Duration:    time.Duration(durSec * float64(time.Second)),
		TotalFrames: int64(math.Floor(durSec * float64(rate))),
	}, nil
}

// Decode runs FFmpeg to decode an audio file to raw PCM int16 samples in
// the engine format: interleaved stereo at 48kHz.
func (d *Decoder) Decode(path string) ([]int16, error) {
	cmd := exec.Command(d.FFmpegPath,
		"-i", path,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(EngineRate),
		"-ac", strconv.Itoa(Channels),
		"-loglevel", "error",
		"pipe:1",
	)

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode %s: %w", path, err)
	}

	// Ensure even byte count for int16 alignment
	if len(out)%2 != 0 {
		out = out[:len(out)-1]
	}

	samples := make([]int16, len(out)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(out[i*2 : i*2+2]))
	}

	return samples, nil
}

// SamplesToBytes converts int16 samples to little-endian bytes.
func SamplesToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}
