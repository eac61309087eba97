// Package framequeue implements the per-input time-ordered frame buffer that
// emits synchronized multi-input batches at the output frame rate.
//
// Mirrors the mutex-guarded, single-writer-serialized shape used throughout
// the Roost media services (e.g. services/dvr/internal/scheduler's
// ticker+mutex-protected map), adapted to an O(1)-enqueue / O(inputs)-pop
// critical section.
package framequeue

import (
	"sort"
	"sync"
	"time"

	"github.com/livecompositor/core/internal/cerrors"
	"github.com/livecompositor/core/internal/eventbus"
	"github.com/livecompositor/core/internal/types"
)

// InputOptions configures one registered input.
type InputOptions struct {
	// Offset, if set, pins the input's first frame PTS to this value.
	// Otherwise the input is synchronized by first-delivery wall time.
	Offset *time.Duration
	// Required inputs block batch emission (up to RequiredTimeout) rather
	// than silently falling back.
	Required bool
	// RequiredTimeout bounds how long a required input may block a batch.
	RequiredTimeout time.Duration
	// StreamFallbackTimeout overrides the queue-wide default fallback
	// timeout for this input. Zero means "use the queue default".
	StreamFallbackTimeout time.Duration
}

// Batch is a synchronized multi-input frame set for one output PTS.
type Batch struct {
	PTS    time.Duration
	Frames map[types.InputID]types.Frame
}

type inputRecord struct {
	opts InputOptions

	ptsOffsetSet bool
	ptsOffset    time.Duration

	buffer []types.Frame // ascending by PTS

	eosReceived  bool
	eosNotified  bool
	pendingUnreg *time.Duration // scheduled removal PTS, nil = none scheduled

	listeners []func(types.Frame)
}

// Queue is the per-pipeline FrameQueue.
type Queue struct {
	mu sync.Mutex

	nowSinceStart func() time.Duration
	bus           *eventbus.Bus

	inputs map[types.InputID]*inputRecord

	defaultFallbackTimeout time.Duration
	aheadOfTimeProcessing  bool
	aheadOfTimeSlack       time.Duration
}

// Option configures a new Queue.
type Option func(*Queue)

// WithFallbackTimeout sets the queue-wide default stream fallback timeout.
func WithFallbackTimeout(d time.Duration) Option {
	return func(q *Queue) { q.defaultFallbackTimeout = d }
}

// WithAheadOfTimeProcessing disables the wall-clock "not yet" guard in
// PopBatch, letting a caller pull batches ahead of their nominal tick time.
func WithAheadOfTimeProcessing() Option {
	return func(q *Queue) { q.aheadOfTimeProcessing = true }
}

// WithAheadOfTimeSlack sets the slack window for the wall-clock guard.
func WithAheadOfTimeSlack(d time.Duration) Option {
	return func(q *Queue) { q.aheadOfTimeSlack = d }
}

// New creates a Queue. nowSinceStart should return elapsed time since the
// pipeline's clock started (clock.Clock.Now); before start it must return 0.
func New(nowSinceStart func() time.Duration, bus *eventbus.Bus, opts ...Option) *Queue {
	q := &Queue{
		nowSinceStart:          nowSinceStart,
		bus:                    bus,
		inputs:                 make(map[types.InputID]*inputRecord),
		defaultFallbackTimeout: time.Second,
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

// RegisterInput adds an empty per-input record.
func (q *Queue) RegisterInput(id types.InputID, opts InputOptions) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, exists := q.inputs[id]; exists {
		return cerrors.New(cerrors.KindDuplicateInput, "input %q already registered", id)
	}
	q.inputs[id] = &inputRecord{opts: opts}
	return nil
}

// UnregisterInput removes an input's record. With scheduleAt nil, removal is
// immediate. With scheduleAt set, removal is deferred: the record stays
// available (and still contributes to the batch nearest to scheduleAt) until
// a PopBatch call whose target PTS has reached scheduleAt, at which point it
// is dropped after that batch is built.
func (q *Queue) UnregisterInput(id types.InputID, scheduleAt *time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	rec, ok := q.inputs[id]
	if !ok {
		return cerrors.New(cerrors.KindUnknownInput, "input %q not registered", id)
	}
	if scheduleAt == nil {
		delete(q.inputs, id)
		return nil
	}
	at := *scheduleAt
	rec.pendingUnreg = &at
	return nil
}

// Enqueue appends a frame to id's buffer, rewriting its PTS against the
// input's pts offset (computed on first frame).
func (q *Queue) Enqueue(id types.InputID, frame types.Frame) error {
	q.mu.Lock()
	rec, ok := q.inputs[id]
	if !ok {
		q.mu.Unlock()
		return cerrors.New(cerrors.KindUnknownInput, "input %q not registered", id)
	}

	if !rec.ptsOffsetSet {
		if rec.opts.Offset != nil {
			rec.ptsOffset = *rec.opts.Offset - frame.PTS
		} else {
			rec.ptsOffset = q.nowSinceStart() - frame.PTS
		}
		rec.ptsOffsetSet = true
	}

	adjusted := frame
	adjusted.PTS = frame.PTS + rec.ptsOffset

	if n := len(rec.buffer); n > 0 && adjusted.PTS < rec.buffer[n-1].PTS {
		// OldPts: an enqueued frame's PTS is less than one already emitted/buffered.
		q.mu.Unlock()
		return cerrors.New(cerrors.KindOldPTS, "input %q: frame pts %s precedes buffered pts %s", id, adjusted.PTS, rec.buffer[n-1].PTS)
	}
	rec.buffer = append(rec.buffer, adjusted)

	listeners := rec.listeners
	rec.listeners = nil
	q.mu.Unlock()

	for _, l := range listeners {
		l(adjusted)
	}
	return nil
}

// MarkEOS records that id has signalled end-of-stream: no further frames
// will be enqueued.
func (q *Queue) MarkEOS(id types.InputID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if rec, ok := q.inputs[id]; ok {
		rec.eosReceived = true
	}
}

// SubscribeInputListener registers a callback that fires once, after the
// next Enqueue for id.
func (q *Queue) SubscribeInputListener(id types.InputID, once func(types.Frame)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if rec, ok := q.inputs[id]; ok {
		rec.listeners = append(rec.listeners, once)
	}
}

// nearestIndex returns the index of the buffered frame nearest to target,
// assuming buf is sorted ascending by PTS. Returns -1 if buf is empty.
func nearestIndex(buf []types.Frame, target time.Duration) int {
	if len(buf) == 0 {
		return -1
	}
	i := sort.Search(len(buf), func(i int) bool { return buf[i].PTS >= target })
	if i == 0 {
		return 0
	}
	if i == len(buf) {
		return len(buf) - 1
	}
	before := buf[i-1]
	after := buf[i]
	if target-before.PTS <= after.PTS-target {
		return i - 1
	}
	return i
}

// fallbackTimeout returns the effective stream fallback timeout for rec.
func (q *Queue) fallbackTimeout(rec *inputRecord) time.Duration {
	if rec.opts.StreamFallbackTimeout > 0 {
		return rec.opts.StreamFallbackTimeout
	}
	return q.defaultFallbackTimeout
}

// requiredSatisfied reports whether a required input no longer blocks batch
// emission for target PTS t at wall-clock now.
//
// A required input stops blocking once its buffer holds a frame whose PTS
// covers t (last_frame.pts >= t) — a stale frame buffered behind t doesn't
// count, since it means the input hasn't caught up to this tick yet. Before
// that, emission stays blocked until EOS or until RequiredTimeout elapses
// past t.
func requiredSatisfied(rec *inputRecord, t, now time.Duration) bool {
	if rec.eosReceived {
		return true
	}
	if n := len(rec.buffer); n > 0 && rec.buffer[n-1].PTS >= t {
		return true
	}
	timeout := rec.opts.RequiredTimeout
	return now > t+timeout
}

// RequiredDeadline returns the wall-clock instant (on the same clock as
// nowSinceStart) by which t is guaranteed to stop blocking: the latest of
// t+RequiredTimeout across every required input not yet satisfied for t.
// Returns t itself if no required input is currently blocking — callers
// should force-advance and drop once now reaches this deadline, rather than
// retrying forever. This lets a scheduler honor each input's own
// RequiredTimeout instead of applying one pipeline-wide value.
func (q *Queue) RequiredDeadline(t time.Duration) time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.nowSinceStart()
	deadline := t
	for _, rec := range q.inputs {
		if !rec.opts.Required || requiredSatisfied(rec, t, now) {
			continue
		}
		if d := t + rec.opts.RequiredTimeout; d > deadline {
			deadline = d
		}
	}
	return deadline
}

// PopBatch returns the synchronized batch for target PTS t, or (Batch{}, false)
// if the queue isn't ready to emit it yet.
func (q *Queue) PopBatch(t time.Duration) (Batch, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.nowSinceStart()

	if !q.aheadOfTimeProcessing && now < t-q.aheadOfTimeSlack {
		return Batch{}, false
	}

	for _, rec := range q.inputs {
		if rec.opts.Required && !requiredSatisfied(rec, t, now) {
			return Batch{}, false
		}
	}

	frames := make(map[types.InputID]types.Frame)
	var toRemove []types.InputID
	var eosFire []types.InputID

	for id, rec := range q.inputs {
		idx := nearestIndex(rec.buffer, t)
		if idx >= 0 {
			// Drop everything strictly older than the selected frame — irreversible.
			if idx > 0 {
				rec.buffer = rec.buffer[idx:]
				idx = 0
			}
			selected := rec.buffer[idx]
			if t-selected.PTS <= q.fallbackTimeout(rec) {
				frames[id] = selected
			}
			// else: fallback — omit from batch, keep buffered for next tick.
		}

		if rec.eosReceived && !rec.eosNotified && idx < 0 {
			rec.eosNotified = true
			eosFire = append(eosFire, id)
		}

		if rec.pendingUnreg != nil && t >= *rec.pendingUnreg {
			toRemove = append(toRemove, id)
		}
	}

	for _, id := range toRemove {
		delete(q.inputs, id)
	}

	if q.bus != nil {
		for _, id := range eosFire {
			q.bus.Publish(eventbus.Event{Kind: eventbus.KindVideoInputEOS, ID: string(id)})
		}
	}

	return Batch{PTS: t, Frames: frames}, true
}

// RegisteredInputs returns the currently registered input ids (for /status).
func (q *Queue) RegisteredInputs() []types.InputID {
	q.mu.Lock()
	defer q.mu.Unlock()
	ids := make([]types.InputID, 0, len(q.inputs))
	for id := range q.inputs {
		ids = append(ids, id)
	}
	return ids
}

// Depth returns the current buffered-frame count for id (for metrics/tests).
func (q *Queue) Depth(id types.InputID) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if rec, ok := q.inputs[id]; ok {
		return len(rec.buffer)
	}
	return 0
}
