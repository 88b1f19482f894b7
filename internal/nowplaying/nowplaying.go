// Package nowplaying is the one-way metadata push the engine feeds
// whenever playback visibly changes. Nothing is queried back.
package nowplaying

import (
	"sync"

	"github.com/stemsync/stemsync/internal/logger"
)

// Info mirrors what a lock-screen / now-playing surface wants to show.
type Info struct {
	Title           string  `json:"title"`
	Artist          string  `json:"artist"`
	DurationSeconds float64 `json:"duration_seconds"`
	PlaybackRate    float64 `json:"playback_rate"` // 0 when paused/stopped, 1 when playing
	ElapsedSeconds  float64 `json:"elapsed_seconds"`
}

// Publisher receives metadata pushes.
type Publisher interface {
	Publish(Info)
}

// Store keeps the latest push behind a lock so the status API can read it.
// It also logs each transition, which is all a headless deployment needs.
type Store struct {
	mu   sync.RWMutex
	info Info
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Publish(info Info) {
	s.mu.Lock()
	s.info = info
	s.mu.Unlock()

	logger.Debug("now playing",
		logger.String("title", info.Title),
		logger.Float64("rate", info.PlaybackRate),
		logger.Float64("elapsed", info.ElapsedSeconds))
}

// Current returns the most recent push.
func (s *Store) Current() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}
