package stream

import (
	"context"
	"sync"
)

// DefaultListenerDepth buffers ~3 seconds of 20ms frames per listener.
const DefaultListenerDepth = 150

// Broadcaster fans the engine's mixed PCM frames out to N listeners.
type Broadcaster struct {
	depth     int
	mu        sync.RWMutex
	listeners map[*Listener]struct{}
}

// Listener receives mixed PCM frames from the broadcaster.
type Listener struct {
	C    chan []int16 // buffered channel of 20ms PCM frames
	done chan struct{}
}

// Done is closed when the listener is unsubscribed.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

// NewBroadcaster creates a broadcaster whose listeners buffer depth
// frames each; depth <= 0 uses DefaultListenerDepth.
func NewBroadcaster(depth int) *Broadcaster {
	if depth <= 0 {
		depth = DefaultListenerDepth
	}
	return &Broadcaster{
		depth:     depth,
		listeners: make(map[*Listener]struct{}),
	}
}

// Subscribe registers a new listener. Returns a Listener that receives frames.
func (b *Broadcaster) Subscribe() *Listener {
	l := &Listener{
		C:    make(chan []int16, b.depth),
		done: make(chan struct{}),
	}
	b.mu.Lock()
	b.listeners[l] = struct{}{}
	b.mu.Unlock()
	return l
}

// Unsubscribe removes a listener and signals it to stop.
func (b *Broadcaster) Unsubscribe(l *Listener) {
	b.mu.Lock()
	delete(b.listeners, l)
	b.mu.Unlock()
	close(l.done)
}

// ListenerCount returns the number of active listeners.
func (b *Broadcaster) ListenerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

// Run reads frames from the render graph's output and fans out to all
// listeners. Slow listeners get frames dropped rather than blocking the
// broadcast.
func (b *Broadcaster) Run(ctx context.Context, source <-chan []int16) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-source:
			if !ok {
				return
			}
			b.mu.RLock()
			for l := range b.listeners {
				select {
				case l.C <- frame:
				default:
					// listener too slow, drop frame to keep the mix moving
				}
			}
			b.mu.RUnlock()
		}
	}
}
