package engine

import (
	"math"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/stemsync/stemsync/internal/audio"
)

// Track is one stem bound to the shared timeline: a decoded source, its
// native-rate position cursor, and the render endpoint it is attached to.
// The decoded samples are owned exclusively by the Track and are discarded
// when the timeline is rebuilt or torn down.
type Track struct {
	ID    string
	Path  string
	Title string

	SampleRate  int   // native rate from the source's own format
	TotalFrames int64 // decodable length in native-rate frames

	// cursorFrame is the native-rate read offset. Mutated only by the
	// coordinator's seek and stop paths, never by rendering.
	cursorFrame int64

	pcm   []int16 // engine-format render copy
	graph Graph
}

func newTrack(path string, info audio.SourceInfo, pcm []int16) *Track {
	return &Track{
		ID:          uuid.NewString(),
		Path:        path,
		Title:       titleFromPath(path),
		SampleRate:  info.SampleRate,
		TotalFrames: info.TotalFrames,
		pcm:         pcm,
	}
}

func titleFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// CursorFrame returns the current native-rate read offset.
func (t *Track) CursorFrame() int64 {
	return t.cursorFrame
}

// DurationSeconds is the stem's own length. The timeline duration is the
// reference track's value, not the max across stems.
func (t *Track) DurationSeconds() float64 {
	if t.SampleRate == 0 {
		return 0
	}
	return float64(t.TotalFrames) / float64(t.SampleRate)
}

// FrameForTime maps a timeline position in seconds to a native-rate frame,
// clamped to [0, TotalFrames].
func (t *Track) FrameForTime(seconds float64) int64 {
	frame := int64(math.Floor(seconds * float64(t.SampleRate)))
	if frame < 0 {
		return 0
	}
	if frame > t.TotalFrames {
		return t.TotalFrames
	}
	return frame
}

// setCursor clamps and stores a new read offset.
func (t *Track) setCursor(frame int64) {
	if frame < 0 {
		frame = 0
	}
	if frame > t.TotalFrames {
		frame = t.TotalFrames
	}
	t.cursorFrame = frame
}

// engineOffset converts a native-rate frame to an offset in the
// engine-rate render copy.
func (t *Track) engineOffset(frame int64) int64 {
	if t.SampleRate == 0 {
		return 0
	}
	return frame * audio.EngineRate / int64(t.SampleRate)
}

// Attach registers the track with the render graph, establishing the
// stem -> mix bus -> output signal path.
func (t *Track) Attach(g Graph) error {
	if err := g.Attach(t); err != nil {
		return err
	}
	t.graph = g
	return nil
}

// Detach disconnects the track from the graph. Attach and Detach are one
// atomic step from the coordinator's point of view, so no schedule can
// dangle across a timeline rebuild.
func (t *Track) Detach() {
	if t.graph != nil {
		t.graph.Detach(t)
		t.graph = nil
	}
}

// ScheduleFrom arms the track to emit from startFrame (native rate) to the
// end of the source. With a non-nil instant the graph holds the first
// sample until the shared instant arrives; with nil the track starts on
// the next render tick (best-effort start).
func (t *Track) ScheduleFrom(startFrame int64, at *StartInstant) {
	if t.graph == nil {
		return
	}
	t.graph.Schedule(t, t.engineOffset(startFrame), at)
}

// Halt stops emission and drops any pending schedule. The cursor is left
// alone; repositioning is the coordinator's job.
func (t *Track) Halt() {
	if t.graph != nil {
		t.graph.Halt(t)
	}
}
