package engine

import (
	"sync"
	"time"

	"github.com/stemsync/stemsync/internal/audio"
	"github.com/stemsync/stemsync/internal/logger"
)

// StartInstant is the shared clock instant gating a synchronized start.
// EngineSample is the render clock value at which emission begins;
// RefFrame is the same instant expressed at the reference track's native
// sample rate.
type StartInstant struct {
	EngineSample int64
	RefFrame     int64
}

// Graph is the render graph the coordinator commands: it owns the
// stem -> mix bus -> output topology, paces rendering, and doubles as the
// engine's clock source. Tests substitute a scripted implementation.
type Graph interface {
	ClockSource

	StartRendering() error
	StopRendering()
	Rendering() bool

	Attach(t *Track) error
	Detach(t *Track)
	Schedule(t *Track, engineOffset int64, at *StartInstant)
	Halt(t *Track)

	// TrackPosition reports how far into its render copy a track has
	// emitted, in engine-rate frames.
	TrackPosition(t *Track) int64
}

type schedule struct {
	armed   bool
	started bool
	at      *StartInstant
	pos     int64 // engine-rate frame offset into the render copy
}

// RenderGraph mixes every armed stem into 20ms PCM frames on a ticker and
// advances the sample clock one frame per tick. The clock freezes across
// StopRendering, so readings taken right after a restart still report the
// pre-stop value until the first new tick lands. Frames are fanned out to
// the stream layer through Frames().
type RenderGraph struct {
	mu         sync.Mutex
	running    bool
	stop       chan struct{}
	done       chan struct{}
	clock      int64
	clockValid bool
	schedules  map[*Track]*schedule

	frames chan []int16
}

func NewRenderGraph() *RenderGraph {
	return &RenderGraph{
		schedules: make(map[*Track]*schedule),
		frames:    make(chan []int16, 100),
	}
}

// Frames returns the channel of mixed PCM frames (20ms each).
func (g *RenderGraph) Frames() <-chan []int16 {
	return g.frames
}

// StartRendering spins up the render loop. Idempotent.
func (g *RenderGraph) StartRendering() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running {
		return nil
	}
	g.stop = make(chan struct{})
	g.done = make(chan struct{})
	g.running = true
	go g.run(g.stop, g.done)
	logger.Debug("render graph started", logger.Int64("clock", g.clock))
	return nil
}

// StopRendering halts the render loop and waits for it to drain. The
// clock keeps its last value.
func (g *RenderGraph) StopRendering() {
	g.mu.Lock()
	if !g.running {
		g.mu.Unlock()
		return
	}
	stop, done := g.stop, g.done
	g.running = false
	g.mu.Unlock()

	close(stop)
	<-done
	logger.Debug("render graph stopped")
}

func (g *RenderGraph) Rendering() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}

// Reading reports the current clock. Invalid until the loop has ticked at
// least once, ever.
func (g *RenderGraph) Reading() ClockReading {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ClockReading{SampleTime: g.clock, Valid: g.clockValid}
}

func (g *RenderGraph) Attach(t *Track) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.schedules[t] = &schedule{}
	return nil
}

func (g *RenderGraph) Detach(t *Track) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.schedules, t)
}

func (g *RenderGraph) Schedule(t *Track, engineOffset int64, at *StartInstant) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.schedules[t]
	if !ok {
		return
	}
	s.armed = true
	s.started = false
	s.at = at
	s.pos = engineOffset
}

func (g *RenderGraph) Halt(t *Track) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s, ok := g.schedules[t]; ok {
		s.armed = false
		s.started = false
		s.at = nil
	}
}

func (g *RenderGraph) TrackPosition(t *Track) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s, ok := g.schedules[t]; ok {
		return s.pos
	}
	return 0
}

func (g *RenderGraph) run(stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(audio.FrameDuration)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			frame := g.renderTick()
			select {
			case g.frames <- frame:
			default:
				// output backlog; drop rather than stall the clock
			}
		}
	}
}

// renderTick mixes one frame and advances the clock. A stem whose start
// instant falls inside this frame begins at that exact interleaved
// offset; everything else contributes from its current position.
func (g *RenderGraph) renderTick() []int16 {
	g.mu.Lock()
	defer g.mu.Unlock()

	frameStart := g.clock
	frame := make([]int16, audio.FrameSamples)

	for t, s := range g.schedules {
		if !s.armed {
			continue
		}

		startIdx := int64(0)
		if !s.started {
			if s.at != nil {
				if s.at.EngineSample >= frameStart+audio.FrameSize {
					continue // shared instant not reached yet
				}
				if off := s.at.EngineSample - frameStart; off > 0 {
					startIdx = off
				}
			}
			s.started = true
		}

		total := int64(len(t.pcm)) / audio.Channels
		remain := total - s.pos
		if remain <= 0 {
			s.armed = false
			continue
		}

		n := audio.FrameSize - startIdx
		if n > remain {
			n = remain
		}
		src := t.pcm[s.pos*audio.Channels : (s.pos+n)*audio.Channels]
		audio.MixIntoAt(frame, src, int(startIdx*audio.Channels))
		s.pos += n
		if s.pos >= total {
			s.armed = false // end of source; emission complete
		}
	}

	g.clock += audio.FrameSize
	g.clockValid = true
	return frame
}
