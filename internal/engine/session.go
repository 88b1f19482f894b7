package engine

import (
	"sync"

	"github.com/stemsync/stemsync/internal/logger"
)

// OutputSession models the platform audio session that must be active
// while the engine renders. Activation is bracketed around Play and
// teardown; a failed activation aborts the Play transition.
type OutputSession interface {
	Activate() error
	Deactivate() error
}

// LoggedSession is the default session: no platform hardware to claim, so
// it just tracks the active flag and logs transitions. Deployments that
// need a real session (JACK, PipeWire, CoreAudio) substitute their own.
type LoggedSession struct {
	mu     sync.Mutex
	active bool
}

func NewLoggedSession() *LoggedSession {
	return &LoggedSession{}
}

func (s *LoggedSession) Activate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		s.active = true
		logger.Info("output session activated")
	}
	return nil
}

func (s *LoggedSession) Deactivate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		s.active = false
		logger.Info("output session deactivated")
	}
	return nil
}
