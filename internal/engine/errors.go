package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNoPlayableSource is returned by Load when the source list is
	// empty or none of the sources decoded. The timeline is left cleared.
	ErrNoPlayableSource = errors.New("no playable source")

	// ErrSessionActivation is returned by Play when the output session
	// could not be activated. The state machine is left unchanged.
	ErrSessionActivation = errors.New("output session activation failed")
)

// PartialDecodeError is returned by Load when some, but not all, sources
// failed to decode. Loading is all-or-nothing: a missing stem changes the
// mix, so the whole load fails and the timeline is left cleared.
type PartialDecodeError struct {
	Failed map[string]error // source path -> decode error
}

func (e *PartialDecodeError) Error() string {
	paths := make([]string, 0, len(e.Failed))
	for p := range e.Failed {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return fmt.Sprintf("%d source(s) failed to decode: %s", len(e.Failed), strings.Join(paths, ", "))
}
