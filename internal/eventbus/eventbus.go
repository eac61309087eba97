// Package eventbus publishes pipeline lifecycle events to the control plane's
// event stream. Subscribers receive events on the publishing goroutine's call
// stack — the bus does no buffering or fan-out threading of its own; the API
// layer's websocket writer is responsible for not blocking a scheduler loop
// (see internal/api).
package eventbus

import "sync"

// Kind names one category of lifecycle event the control plane streams out.
type Kind string

const (
	KindVideoInputEOS  Kind = "VIDEO_INPUT_EOS"
	KindAudioInputEOS  Kind = "AUDIO_INPUT_EOS"
	KindOutputDone     Kind = "OUTPUT_DONE"
	KindInputDelivered Kind = "INPUT_DELIVERED"
	KindDroppedFrame   Kind = "DROPPED_FRAME"
	// KindFatalError reports an unrecoverable rendering failure (spec's
	// GpuLost kind) — a subscriber (internal/telemetry) reports it to
	// Sentry and the process exits rather than limping along rendering
	// garbage.
	KindFatalError Kind = "FATAL_ERROR"
)

// Event is a single published lifecycle event.
type Event struct {
	Kind Kind
	ID   string // InputId or OutputId, depending on Kind
}

// Bus is a simple synchronous publish/subscribe hub.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]func(Event)
	next int
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[int]func(Event))}
}

// Subscribe registers handler for every future Publish call. It returns an
// unsubscribe function.
func (b *Bus) Subscribe(handler func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = handler
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish synchronously notifies every current subscriber.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	handlers := make([]func(Event), 0, len(b.subs))
	for _, h := range b.subs {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}
