package engine

import "encoding/json"

// PlaybackState is the timeline-wide playback state. All stems move in
// lockstep, so there is exactly one value for the whole timeline.
type PlaybackState int

const (
	StateStopped PlaybackState = iota
	StatePlaying
	StatePaused
)

// String returns the string representation of the state.
func (s PlaybackState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// MarshalJSON emits the state name so API payloads stay readable.
func (s PlaybackState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}
