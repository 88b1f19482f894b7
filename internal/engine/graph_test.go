package engine

import (
	"testing"
	"time"

	"github.com/stemsync/stemsync/internal/audio"
)

func graphTrack(t *testing.T, frames int64) *Track {
	t.Helper()
	pcm := make([]int16, frames*audio.Channels)
	for i := range pcm {
		pcm[i] = 100
	}
	info := audio.SourceInfo{
		SampleRate:  audio.EngineRate,
		Channels:    audio.Channels,
		Duration:    time.Duration(frames) * time.Second / audio.EngineRate,
		TotalFrames: frames,
	}
	return newTrack("/stems/unit.wav", info, pcm)
}

func TestGraphReadingInvalidBeforeFirstTick(t *testing.T) {
	g := NewRenderGraph()
	if r := g.Reading(); r.Valid {
		t.Errorf("reading valid before any tick: %+v", r)
	}
}

func TestGraphClockAdvancesPerTick(t *testing.T) {
	g := NewRenderGraph()
	g.renderTick()
	g.renderTick()
	r := g.Reading()
	if !r.Valid {
		t.Fatal("reading must be valid after a tick")
	}
	if r.SampleTime != 2*audio.FrameSize {
		t.Errorf("SampleTime = %d, want %d", r.SampleTime, 2*audio.FrameSize)
	}
}

func TestGraphImmediateStartFillsFrame(t *testing.T) {
	g := NewRenderGraph()
	tr := graphTrack(t, 4*audio.FrameSize)
	if err := tr.Attach(g); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	tr.ScheduleFrom(0, nil)

	frame := g.renderTick()
	for i, v := range frame {
		if v != 100 {
			t.Fatalf("sample[%d] = %d, want 100 (immediate start)", i, v)
		}
	}
	if pos := g.TrackPosition(tr); pos != audio.FrameSize {
		t.Errorf("position = %d, want %d", pos, audio.FrameSize)
	}
}

func TestGraphGatesStartMidFrame(t *testing.T) {
	g := NewRenderGraph()
	tr := graphTrack(t, 4*audio.FrameSize)
	if err := tr.Attach(g); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	// Clock is at 0; gate the first sample to instant 100.
	tr.ScheduleFrom(0, &StartInstant{EngineSample: 100, RefFrame: 100})
	frame := g.renderTick()

	for i := 0; i < 100*audio.Channels; i++ {
		if frame[i] != 0 {
			t.Fatalf("sample[%d] = %d, want 0 before the gated instant", i, frame[i])
		}
	}
	for i := 100 * audio.Channels; i < len(frame); i++ {
		if frame[i] != 100 {
			t.Fatalf("sample[%d] = %d, want 100 after the gated instant", i, frame[i])
		}
	}
	// Only the post-gate slice was consumed.
	if pos := g.TrackPosition(tr); pos != audio.FrameSize-100 {
		t.Errorf("position = %d, want %d", pos, audio.FrameSize-100)
	}
}

func TestGraphHoldsUntilFutureInstant(t *testing.T) {
	g := NewRenderGraph()
	tr := graphTrack(t, 4*audio.FrameSize)
	if err := tr.Attach(g); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	// Instant two frames out: the first two ticks stay silent.
	tr.ScheduleFrom(0, &StartInstant{EngineSample: 2 * audio.FrameSize})
	for tick := 0; tick < 2; tick++ {
		frame := g.renderTick()
		for i, v := range frame {
			if v != 0 {
				t.Fatalf("tick %d sample[%d] = %d, want silence before the instant", tick, i, v)
			}
		}
	}
	frame := g.renderTick()
	if frame[0] != 100 {
		t.Errorf("first sample after the instant = %d, want 100", frame[0])
	}
}

func TestGraphMixesTwoStems(t *testing.T) {
	g := NewRenderGraph()
	a := graphTrack(t, audio.FrameSize)
	b := graphTrack(t, audio.FrameSize)
	if err := a.Attach(g); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if err := b.Attach(g); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	a.ScheduleFrom(0, nil)
	b.ScheduleFrom(0, nil)

	frame := g.renderTick()
	for i, v := range frame {
		if v != 200 {
			t.Fatalf("sample[%d] = %d, want 200 (two stems summed)", i, v)
		}
	}
}

func TestGraphStopsAtEndOfSource(t *testing.T) {
	g := NewRenderGraph()
	tr := graphTrack(t, audio.FrameSize/2)
	if err := tr.Attach(g); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	tr.ScheduleFrom(0, nil)

	frame := g.renderTick()
	half := audio.FrameSize / 2 * audio.Channels
	if frame[0] != 100 || frame[half-1] != 100 {
		t.Error("first half of the frame must carry the stem")
	}
	if frame[half] != 0 || frame[len(frame)-1] != 0 {
		t.Error("stem must fall silent at end of source")
	}

	frame = g.renderTick()
	for i, v := range frame {
		if v != 0 {
			t.Fatalf("sample[%d] = %d, want silence after end of source", i, v)
		}
	}
}

func TestGraphHaltDropsPendingSchedule(t *testing.T) {
	g := NewRenderGraph()
	tr := graphTrack(t, 4*audio.FrameSize)
	if err := tr.Attach(g); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	tr.ScheduleFrom(0, &StartInstant{EngineSample: audio.FrameSize})
	tr.Halt()

	for tick := 0; tick < 3; tick++ {
		frame := g.renderTick()
		for i, v := range frame {
			if v != 0 {
				t.Fatalf("tick %d sample[%d] = %d, halted stem must not emit", tick, i, v)
			}
		}
	}
}

func TestGraphDetachRemovesSchedule(t *testing.T) {
	g := NewRenderGraph()
	tr := graphTrack(t, audio.FrameSize)
	if err := tr.Attach(g); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	tr.ScheduleFrom(0, nil)
	tr.Detach()

	frame := g.renderTick()
	for i, v := range frame {
		if v != 0 {
			t.Fatalf("sample[%d] = %d, detached stem must not emit", i, v)
		}
	}
	if pos := g.TrackPosition(tr); pos != 0 {
		t.Errorf("detached track position = %d, want 0", pos)
	}
}

func TestGraphStartStopRendering(t *testing.T) {
	g := NewRenderGraph()
	if g.Rendering() {
		t.Fatal("graph must not render before StartRendering")
	}
	if err := g.StartRendering(); err != nil {
		t.Fatalf("StartRendering: %v", err)
	}
	if !g.Rendering() {
		t.Fatal("Rendering must report true after start")
	}
	if err := g.StartRendering(); err != nil {
		t.Fatalf("StartRendering must be idempotent: %v", err)
	}
	g.StopRendering()
	if g.Rendering() {
		t.Fatal("Rendering must report false after stop")
	}
	// The clock keeps its last value across the stop.
	r1 := g.Reading()
	time.Sleep(50 * time.Millisecond)
	r2 := g.Reading()
	if r1.SampleTime != r2.SampleTime {
		t.Errorf("clock advanced while stopped: %d -> %d", r1.SampleTime, r2.SampleTime)
	}
}
