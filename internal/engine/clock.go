package engine

// ClockReading is one observation of the render clock. SampleTime counts
// engine-rate samples and advances monotonically while the graph is
// rendering; it freezes across a stop, which means the first readings
// after a restart repeat the pre-stop value.
type ClockReading struct {
	SampleTime int64
	Valid      bool
}

// Fresh reports whether r is usable as a synchronization anchor given the
// reading recorded at the last pause. A reading is fresh when it is valid
// and has actually advanced past prior; an invalid prior (first-ever play)
// makes any valid reading fresh.
func (r ClockReading) Fresh(prior ClockReading) bool {
	if !r.Valid {
		return false
	}
	if !prior.Valid {
		return true
	}
	return r.SampleTime != prior.SampleTime
}

// ClockSource produces render clock readings. The render graph is the
// engine's clock source; tests substitute scripted readings.
type ClockSource interface {
	Reading() ClockReading
}
