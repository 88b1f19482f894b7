package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stemsync/stemsync/internal/audio"
	"github.com/stemsync/stemsync/internal/logger"
	"github.com/stemsync/stemsync/internal/nowplaying"
)

// StemDecoder turns a source path into timeline metadata and an
// engine-format render copy. internal/audio.Decoder is the real one.
type StemDecoder interface {
	Probe(path string) (audio.SourceInfo, error)
	Decode(path string) ([]int16, error)
}

// Event is pushed to observers whenever playback state actually changes:
// when a start command batch is issued, on pause, and on load. It is never
// fired for a call that had no visible effect.
type Event struct {
	State           PlaybackState `json:"state"`
	PositionSeconds float64       `json:"position_seconds"`
	DurationSeconds float64       `json:"duration_seconds"`
	Synchronized    bool          `json:"synchronized"`
}

// Options tunes the clock acquisition loop. Zero values fall back to the
// production defaults (10ms poll, 30 attempts, 40ms schedule lead).
type Options struct {
	PollInterval time.Duration
	MaxAttempts  int
	ScheduleLead time.Duration
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = 10 * time.Millisecond
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 30
	}
	if o.ScheduleLead <= 0 {
		o.ScheduleLead = 40 * time.Millisecond
	}
	return o
}

// Coordinator owns the timeline: it builds tracks from source paths,
// negotiates one valid clock instant, and issues synchronized start, stop
// and seek command batches to every track. All operations serialize on one
// mutex; none interleave, and every per-track batch is issued under the
// lock so observers never see a half-updated timeline.
type Coordinator struct {
	graph   Graph
	session OutputSession
	dec     StemDecoder
	opts    Options

	mu            sync.Mutex
	tracks        []*Track
	state         PlaybackState
	started       bool // start batch issued for the current Playing stint
	sessionActive bool
	lastPaused    ClockReading
	playGen       uint64 // bumped by any operation that invalidates a pending acquisition
	acquireCancel context.CancelFunc

	obsMu     sync.Mutex
	observers []func(Event)
	publisher nowplaying.Publisher
}

func NewCoordinator(graph Graph, session OutputSession, dec StemDecoder, opts Options) *Coordinator {
	return &Coordinator{
		graph:   graph,
		session: session,
		dec:     dec,
		opts:    opts.withDefaults(),
	}
}

// OnChange registers an observer for playback change events.
func (c *Coordinator) OnChange(fn func(Event)) {
	c.obsMu.Lock()
	c.observers = append(c.observers, fn)
	c.obsMu.Unlock()
}

// SetNowPlayingPublisher wires the optional metadata collaborator.
func (c *Coordinator) SetNowPlayingPublisher(p nowplaying.Publisher) {
	c.obsMu.Lock()
	c.publisher = p
	c.obsMu.Unlock()
}

// Load rebuilds the timeline from the given source paths. Any current
// playback is stopped first and the old tracks are disconnected and
// discarded as one step. Loading is all-or-nothing: an empty list or a
// fully failed decode returns ErrNoPlayableSource, a partially failed one
// returns *PartialDecodeError; in both cases the timeline is left cleared.
// On success every track is pre-positioned at the timeline origin.
func (c *Coordinator) Load(paths []string) error {
	c.mu.Lock()
	ev, err := c.loadLocked(paths)
	c.mu.Unlock()
	if ev != nil {
		c.dispatch(*ev)
	}
	return err
}

func (c *Coordinator) loadLocked(paths []string) (*Event, error) {
	c.cancelAcquisitionLocked()
	c.haltAllLocked()
	c.graph.StopRendering()
	c.detachAllLocked()
	c.state = StateStopped
	c.started = false

	if len(paths) == 0 {
		return nil, ErrNoPlayableSource
	}

	var loaded []*Track
	failed := make(map[string]error)
	for _, path := range paths {
		info, err := c.dec.Probe(path)
		if err == nil {
			var pcm []int16
			pcm, err = c.dec.Decode(path)
			if err == nil {
				loaded = append(loaded, newTrack(path, info, pcm))
				continue
			}
		}
		logger.Warn("stem failed to decode", logger.String("path", path), logger.ErrorField(err))
		failed[path] = err
	}

	if len(loaded) == 0 {
		return nil, ErrNoPlayableSource
	}
	if len(failed) > 0 {
		return nil, &PartialDecodeError{Failed: failed}
	}

	for _, t := range loaded {
		if err := t.Attach(c.graph); err != nil {
			for _, a := range loaded {
				a.Detach()
			}
			return nil, fmt.Errorf("attach %s: %w", t.Path, err)
		}
	}
	c.tracks = loaded
	c.seekLocked(0)

	ref := c.tracks[0]
	logger.Info("timeline loaded",
		logger.Int("stems", len(c.tracks)),
		logger.Int("reference_rate", ref.SampleRate),
		logger.Float64("duration_seconds", ref.DurationSeconds()))

	ev := c.eventLocked(false)
	return &ev, nil
}

// Play transitions Stopped/Paused to Playing. If a fresh clock reading is
// available synchronously the synchronized start is issued before Play
// returns; otherwise the bounded acquisition loop runs in the background
// and playback begins when it resolves. The change notification fires when
// the start batch is actually issued, not here.
func (c *Coordinator) Play() error {
	c.mu.Lock()
	ev, err := c.playLocked()
	c.mu.Unlock()
	if ev != nil {
		c.dispatch(*ev)
	}
	return err
}

func (c *Coordinator) playLocked() (*Event, error) {
	if c.state == StatePlaying {
		return nil, nil
	}
	if len(c.tracks) == 0 {
		return nil, ErrNoPlayableSource
	}

	if !c.sessionActive {
		if err := c.session.Activate(); err != nil {
			// Abort the transition; state stays what it was.
			return nil, fmt.Errorf("%w: %v", ErrSessionActivation, err)
		}
		c.sessionActive = true
	}
	if err := c.graph.StartRendering(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionActivation, err)
	}

	c.state = StatePlaying
	c.started = false
	return c.beginAcquisitionLocked(c.lastPaused), nil
}

// Pause transitions Playing to Paused. No-op (and no notification) in any
// other state. The outstanding acquisition loop, if any, is cancelled
// before it can fire a late start; the current clock reading is recorded
// so the next Play can tell a stale restart reading from a fresh one.
func (c *Coordinator) Pause() {
	c.mu.Lock()
	ev := c.pauseLocked()
	c.mu.Unlock()
	if ev != nil {
		c.dispatch(*ev)
	}
}

func (c *Coordinator) pauseLocked() *Event {
	if c.state != StatePlaying {
		return nil
	}

	c.cancelAcquisitionLocked()
	c.lastPaused = c.graph.Reading()

	// Carry each cursor forward to the halt point so resume continues
	// from where playback stopped. Skipped when the start batch was never
	// issued: the graph position is then left over from an earlier stint.
	if c.started {
		for _, t := range c.tracks {
			pos := c.graph.TrackPosition(t) // engine-rate frames emitted
			t.setCursor(pos * int64(t.SampleRate) / audio.EngineRate)
		}
	}
	c.haltAllLocked()
	c.graph.StopRendering()

	c.state = StatePaused
	c.started = false

	logger.Info("paused",
		logger.Int64("clock", c.lastPaused.SampleTime),
		logger.Float64("position_seconds", c.positionLocked()))

	ev := c.eventLocked(false)
	return &ev
}

// Seek repositions every track to floor(seconds * nativeRate), clamped to
// its length. While stopped or paused no synchronization is needed since
// nothing is advancing; while playing the tracks are halted, re-armed, and
// resynchronized exactly as in Play. Seek never changes the state.
func (c *Coordinator) Seek(seconds float64) {
	c.mu.Lock()
	ev := c.seekOpLocked(seconds)
	c.mu.Unlock()
	if ev != nil {
		c.dispatch(*ev)
	}
}

func (c *Coordinator) seekOpLocked(seconds float64) *Event {
	if seconds < 0 {
		seconds = 0
	}
	c.cancelAcquisitionLocked()
	c.seekLocked(seconds)

	if c.state != StatePlaying {
		return nil
	}

	c.haltAllLocked()
	c.started = false
	// Resynchronize against the still-advancing clock.
	return c.beginAcquisitionLocked(c.graph.Reading())
}

func (c *Coordinator) seekLocked(seconds float64) {
	for _, t := range c.tracks {
		t.setCursor(t.FrameForTime(seconds))
	}
}

// IsPlaying reflects whether audio is actually being produced, not the
// caller's intent: during the acquisition window the state machine says
// Playing but no start batch has been issued yet, and IsPlaying is false.
func (c *Coordinator) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StatePlaying && c.started && c.graph.Rendering()
}

// State returns the state machine value (the caller's intent).
func (c *Coordinator) State() PlaybackState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Duration is the reference track's length in seconds; zero with no
// timeline loaded.
func (c *Coordinator) Duration() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.durationLocked()
}

// Position is the current timeline position in seconds, derived from the
// reference track.
func (c *Coordinator) Position() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.positionLocked()
}

// TrackStatus is a read-only snapshot of one stem for the API layer.
type TrackStatus struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Path        string  `json:"path"`
	SampleRate  int     `json:"sample_rate"`
	TotalFrames int64   `json:"total_frames"`
	CursorFrame int64   `json:"cursor_frame"`
	Seconds     float64 `json:"duration_seconds"`
}

// Tracks returns a snapshot of the loaded stems in timeline order. The
// first entry is the reference track.
func (c *Coordinator) Tracks() []TrackStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]TrackStatus, 0, len(c.tracks))
	for _, t := range c.tracks {
		out = append(out, TrackStatus{
			ID:          t.ID,
			Title:       t.Title,
			Path:        t.Path,
			SampleRate:  t.SampleRate,
			TotalFrames: t.TotalFrames,
			CursorFrame: t.cursorFrame,
			Seconds:     t.DurationSeconds(),
		})
	}
	return out
}

// Close tears the engine down: cancels any acquisition, disconnects every
// track, stops the graph, and deactivates the output session.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	c.cancelAcquisitionLocked()
	c.haltAllLocked()
	c.graph.StopRendering()
	c.detachAllLocked()
	c.state = StateStopped
	c.started = false
	active := c.sessionActive
	c.sessionActive = false
	c.mu.Unlock()

	if active {
		return c.session.Deactivate()
	}
	return nil
}

// --- clock acquisition ---

// beginAcquisitionLocked runs attempt 0 synchronously; on a fresh reading
// the synchronized start is issued immediately, otherwise the bounded
// polling loop takes over. Returns the event to dispatch, if any.
func (c *Coordinator) beginAcquisitionLocked(prior ClockReading) *Event {
	if r := c.graph.Reading(); r.Fresh(prior) {
		ev := c.startTracksLocked(&r)
		return &ev
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.acquireCancel = cancel
	c.playGen++
	gen := c.playGen
	go c.acquire(ctx, gen, prior)
	return nil
}

// acquire polls the clock on a fixed interval, up to the attempt cap.
// Freshness uses the same check as attempt 0. The generation counter is
// re-verified under the lock before any start command: a loop that lost a
// race with pause/load/seek must never fire.
func (c *Coordinator) acquire(ctx context.Context, gen uint64, prior ClockReading) {
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		r := c.graph.Reading()
		if !r.Fresh(prior) {
			continue
		}

		c.mu.Lock()
		if gen != c.playGen || c.state != StatePlaying || c.started {
			c.mu.Unlock()
			return
		}
		logger.Debug("clock acquired", logger.Int("attempt", attempt), logger.Int64("clock", r.SampleTime))
		ev := c.startTracksLocked(&r)
		c.mu.Unlock()
		c.dispatch(ev)
		return
	}

	// Cap reached with no fresh reading: degraded but available.
	c.mu.Lock()
	if gen != c.playGen || c.state != StatePlaying || c.started {
		c.mu.Unlock()
		return
	}
	logger.Warn("clock acquisition gave up, starting best-effort",
		logger.Int("attempts", c.opts.MaxAttempts))
	ev := c.startTracksLocked(nil)
	c.mu.Unlock()
	c.dispatch(ev)
}

func (c *Coordinator) cancelAcquisitionLocked() {
	if c.acquireCancel != nil {
		c.acquireCancel()
		c.acquireCancel = nil
	}
	// Even a goroutine already past its context check is fenced out.
	c.playGen++
}

// startTracksLocked issues the start command batch. With a reading the
// shared instant is placed ScheduleLead ahead of the clock and converted
// to the reference track's sample rate; with nil every track starts on the
// next tick, approximately rather than sample-accurately aligned.
func (c *Coordinator) startTracksLocked(r *ClockReading) Event {
	var at *StartInstant
	if r != nil {
		leadFrames := int64(c.opts.ScheduleLead / audio.FrameDuration)
		if leadFrames < 1 {
			leadFrames = 1
		}
		engineAt := r.SampleTime + leadFrames*audio.FrameSize
		ref := c.tracks[0]
		at = &StartInstant{
			EngineSample: engineAt,
			RefFrame:     engineAt * int64(ref.SampleRate) / audio.EngineRate,
		}
	}

	for _, t := range c.tracks {
		t.ScheduleFrom(t.cursorFrame, at)
	}
	c.started = true

	if at != nil {
		logger.Info("synchronized start",
			logger.Int("stems", len(c.tracks)),
			logger.Int64("instant", at.EngineSample),
			logger.Int64("reference_frame", at.RefFrame))
	} else {
		logger.Info("best-effort start", logger.Int("stems", len(c.tracks)))
	}

	return c.eventLocked(at != nil)
}

// --- helpers ---

func (c *Coordinator) haltAllLocked() {
	for _, t := range c.tracks {
		t.Halt()
	}
}

func (c *Coordinator) detachAllLocked() {
	for _, t := range c.tracks {
		t.Detach()
	}
	c.tracks = nil
	c.lastPaused = ClockReading{}
}

func (c *Coordinator) durationLocked() float64 {
	if len(c.tracks) == 0 {
		return 0
	}
	return c.tracks[0].DurationSeconds()
}

func (c *Coordinator) positionLocked() float64 {
	if len(c.tracks) == 0 {
		return 0
	}
	ref := c.tracks[0]
	if c.state == StatePlaying && c.started {
		return float64(c.graph.TrackPosition(ref)) / audio.EngineRate
	}
	return float64(ref.cursorFrame) / float64(ref.SampleRate)
}

func (c *Coordinator) eventLocked(synchronized bool) Event {
	return Event{
		State:           c.state,
		PositionSeconds: c.positionLocked(),
		DurationSeconds: c.durationLocked(),
		Synchronized:    synchronized,
	}
}

// dispatch fans an event out to observers and the now-playing
// collaborator. Called outside the coordinator lock so callbacks are free
// to query the coordinator.
func (c *Coordinator) dispatch(ev Event) {
	c.obsMu.Lock()
	obs := make([]func(Event), len(c.observers))
	copy(obs, c.observers)
	pub := c.publisher
	c.obsMu.Unlock()

	for _, fn := range obs {
		fn(ev)
	}

	if pub != nil {
		var title string
		if ts := c.Tracks(); len(ts) > 0 {
			title = ts[0].Title
		}
		rate := 0.0
		if ev.State == StatePlaying {
			rate = 1.0
		}
		pub.Publish(nowplaying.Info{
			Title:           title,
			DurationSeconds: ev.DurationSeconds,
			ElapsedSeconds:  ev.PositionSeconds,
			PlaybackRate:    rate,
		})
	}
}
