// Package scheduler drives the two per-pipeline ticking loops described by
// the output contract: a video loop that renders and dispatches frames at
// the output framerate, and an audio loop that mixes and dispatches fixed
// 20ms windows. The video loop applies scheduled scene/lifecycle updates in
// (schedule_time_ms, enqueue_order) order and evaluates end-of-stream
// conditions against the inputs each output actually depends on; the audio
// loop does neither.
package scheduler

import (
	"sync"
	"time"

	"github.com/livecompositor/core/internal/cerrors"
	"github.com/livecompositor/core/internal/eventbus"
	"github.com/livecompositor/core/internal/framequeue"
	"github.com/livecompositor/core/internal/metrics"
	"github.com/livecompositor/core/internal/registry"
	"github.com/livecompositor/core/internal/rendergraph"
	"github.com/livecompositor/core/internal/scene"
	"github.com/livecompositor/core/internal/types"
)

// VideoOutputOptions configures one registered video output.
type VideoOutputOptions struct {
	Resolution  scene.Resolution
	Required    bool
	Sink        *OutputSink
	SendEOSWhen EOSCondition
	// RelevantInputs restricts which inputs' EOS state feeds SendEOSWhen.
	// Empty means every input the pipeline knows about is relevant.
	RelevantInputs []types.InputID
}

type videoOutputState struct {
	opts       VideoOutputOptions
	eosInputs  map[types.InputID]bool
	done       bool
}

func (o *videoOutputState) tracksInput(id types.InputID) bool {
	if len(o.opts.RelevantInputs) == 0 {
		return true
	}
	for _, want := range o.opts.RelevantInputs {
		if want == id {
			return true
		}
	}
	return false
}

// TickResult reports what RunTick did, for callers driving the loop (a
// ticker in production, an explicit loop in tests).
type TickResult struct {
	Advanced bool
	Dropped  bool
	PTS      time.Duration
}

// VideoScheduler implements the video loop: pop a synchronized frame batch
// for the next target PTS, apply due scheduled updates, render every
// registered output's current scene, and dispatch the result to its sink.
type VideoScheduler struct {
	mu sync.Mutex

	framerate int

	frameQueue *framequeue.Queue
	sceneState *scene.SceneState
	registry   *registry.Registry
	bus        *eventbus.Bus

	nowSinceStart func() time.Duration
	startInstant  time.Time

	outputs   map[types.OutputID]*videoOutputState
	scheduled *scheduledQueue
	enqueueN  int64

	k int64 // next target tick index, in units of 1/framerate
}

// NewVideoScheduler builds a video loop bound to the given pipeline
// components. nowSinceStart should be the pipeline Clock's Now method.
func NewVideoScheduler(
	framerate int,
	fq *framequeue.Queue,
	ss *scene.SceneState,
	reg *registry.Registry,
	bus *eventbus.Bus,
	nowSinceStart func() time.Duration,
) *VideoScheduler {
	s := &VideoScheduler{
		framerate:     framerate,
		frameQueue:    fq,
		sceneState:    ss,
		registry:      reg,
		bus:           bus,
		nowSinceStart: nowSinceStart,
		outputs:       make(map[types.OutputID]*videoOutputState),
		scheduled:     newScheduledQueue(),
	}
	if bus != nil {
		bus.Subscribe(s.onEvent)
	}
	return s
}

func (s *VideoScheduler) onEvent(ev eventbus.Event) {
	if ev.Kind != eventbus.KindVideoInputEOS {
		return
	}
	inputID := types.InputID(ev.ID)
	s.mu.Lock()
	for _, o := range s.outputs {
		if o.tracksInput(inputID) {
			o.eosInputs[inputID] = true
		}
	}
	s.mu.Unlock()
}

// RegisterOutput adds a new output to the render rotation, taking effect on
// the next tick.
func (s *VideoScheduler) RegisterOutput(id types.OutputID, opts VideoOutputOptions) error {
	if opts.Sink == nil {
		return cerrors.New(cerrors.KindInvalidScene, "output %s: Sink is required", id)
	}
	if opts.SendEOSWhen == nil {
		opts.SendEOSWhen = NeverEOS()
	}
	if err := s.registry.RegisterOutputID(id); err != nil {
		return err
	}
	s.mu.Lock()
	s.outputs[id] = &videoOutputState{opts: opts, eosInputs: make(map[types.InputID]bool)}
	s.mu.Unlock()
	metrics.OutputsActive.Inc()
	return nil
}

// UnregisterOutput removes an output immediately, or at scheduleAtMS (video
// timeline milliseconds) if non-nil.
func (s *VideoScheduler) UnregisterOutput(id types.OutputID, scheduleAtMS *int64) {
	remove := func() { s.removeOutput(id) }
	if scheduleAtMS == nil {
		remove()
		return
	}
	s.mu.Lock()
	s.enqueueN++
	n := s.enqueueN
	s.mu.Unlock()
	s.scheduled.push(*scheduleAtMS, n, remove)
}

func (s *VideoScheduler) removeOutput(id types.OutputID) {
	s.mu.Lock()
	delete(s.outputs, id)
	s.mu.Unlock()
	s.sceneState.RemoveOutput(id)
	_ = s.registry.UnregisterOutputID(id)
	metrics.OutputsActive.Dec()
}

// ScheduleUpdateScene defers a scene update to apply once the video timeline
// reaches scheduleAtMS, preserving (schedule_time_ms, enqueue_order).
func (s *VideoScheduler) ScheduleUpdateScene(outputID types.OutputID, root scene.Component, scheduleAtMS int64) {
	s.mu.Lock()
	s.enqueueN++
	n := s.enqueueN
	s.mu.Unlock()
	s.scheduled.push(scheduleAtMS, n, func() {
		atPTS := time.Duration(scheduleAtMS) * time.Millisecond
		s.sceneState.UpdateScene(outputID, root, atPTS)
	})
}

// ScheduleUnregisterInput defers an input's removal from the frame queue.
func (s *VideoScheduler) ScheduleUnregisterInput(id types.InputID, scheduleAtMS int64) {
	at := time.Duration(scheduleAtMS) * time.Millisecond
	_ = s.frameQueue.UnregisterInput(id, &at)
}

// RunTick advances the video loop by one target PTS, or retries the current
// one if a required input hasn't satisfied its blocking window yet.
func (s *VideoScheduler) RunTick() TickResult {
	s.mu.Lock()
	k := s.k
	s.mu.Unlock()

	targetPTS := time.Duration(k) * time.Second / time.Duration(s.framerate)
	now := s.nowSinceStart()

	batch, ready := s.frameQueue.PopBatch(targetPTS)
	if !ready {
		if now < s.frameQueue.RequiredDeadline(targetPTS) {
			return TickResult{Advanced: false, PTS: targetPTS}
		}
		s.advance()
		s.dropTick(targetPTS)
		return TickResult{Advanced: true, Dropped: true, PTS: targetPTS}
	}

	s.scheduled.drainUpTo(targetPTS.Milliseconds())

	inputs := inputSourceFromBatch(batch)
	images := imageSourceFromRegistry(s.registry)

	s.mu.Lock()
	snapshot := make(map[types.OutputID]*videoOutputState, len(s.outputs))
	for id, o := range s.outputs {
		snapshot[id] = o
	}
	s.mu.Unlock()

	for id, o := range snapshot {
		if o.done {
			continue
		}
		s.renderAndDispatchGuarded(id, o, targetPTS, inputs, images)
	}

	s.advance()
	return TickResult{Advanced: true, PTS: targetPTS}
}

// renderAndDispatchGuarded recovers a panic out of the renderer (wgpu device
// loss surfaces this way in the reference implementation) and reports it as
// a GpuLost fatal event instead of taking the whole process down mid-tick.
func (s *VideoScheduler) renderAndDispatchGuarded(id types.OutputID, o *videoOutputState, targetPTS time.Duration, inputs rendergraph.InputSource, images rendergraph.ImageSource) {
	defer func() {
		if r := recover(); r != nil {
			err := cerrors.New(cerrors.KindGPULost, "renderer panic on output %s: %v", id, r)
			if s.bus != nil {
				s.bus.Publish(eventbus.Event{Kind: eventbus.KindFatalError, ID: err.Error()})
			}
		}
	}()
	s.renderAndDispatch(id, o, targetPTS, inputs, images)
}

func (s *VideoScheduler) renderAndDispatch(id types.OutputID, o *videoOutputState, targetPTS time.Duration, inputs rendergraph.InputSource, images rendergraph.ImageSource) {
	tree, ok := s.sceneState.TreeAt(id, targetPTS)
	if !ok {
		return
	}
	layout := scene.ComputeLayout(tree, o.opts.Resolution)

	start := time.Now()
	img, _ := rendergraph.Evaluate(layout, inputs, images)
	metrics.RenderDuration.WithLabelValues(string(id)).Observe(time.Since(start).Seconds())

	frame := RenderedFrame{PTS: targetPTS, Image: img}
	if o.opts.Required {
		o.opts.Sink.sendRequired(frame)
	} else {
		deadline := time.Now().Add(time.Second / time.Duration(s.framerate))
		if !o.opts.Sink.sendBestEffort(frame, deadline) {
			metrics.DroppedFrames.WithLabelValues(string(id)).Inc()
			if s.bus != nil {
				s.bus.Publish(eventbus.Event{Kind: eventbus.KindDroppedFrame, ID: string(id)})
			}
		}
	}

	s.mu.Lock()
	eosSnapshot := make(map[types.InputID]bool, len(o.eosInputs))
	for k, v := range o.eosInputs {
		eosSnapshot[k] = v
	}
	s.mu.Unlock()

	if !o.done && o.opts.SendEOSWhen(eosSnapshot) {
		s.mu.Lock()
		o.done = true
		s.mu.Unlock()
		metrics.EOSTotal.WithLabelValues("output").Inc()
		if s.bus != nil {
			s.bus.Publish(eventbus.Event{Kind: eventbus.KindOutputDone, ID: string(id)})
		}
	}
}

func (s *VideoScheduler) dropTick(targetPTS time.Duration) {
	s.mu.Lock()
	ids := make([]types.OutputID, 0, len(s.outputs))
	for id, o := range s.outputs {
		if !o.done {
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()
	for _, id := range ids {
		metrics.DroppedFrames.WithLabelValues(string(id)).Inc()
		if s.bus != nil {
			s.bus.Publish(eventbus.Event{Kind: eventbus.KindDroppedFrame, ID: string(id)})
		}
	}
}

// CurrentPTS returns the target PTS of the next tick this loop will run,
// for callers (e.g. an immediate, non-scheduled UpdateScene) that need "now"
// on the video timeline rather than wall-clock time.
func (s *VideoScheduler) CurrentPTS() time.Duration {
	s.mu.Lock()
	k := s.k
	s.mu.Unlock()
	return time.Duration(k) * time.Second / time.Duration(s.framerate)
}

func (s *VideoScheduler) advance() {
	s.mu.Lock()
	s.k++
	s.mu.Unlock()
}

// Run ticks at 1/framerate until stopping reports true. A tick that returns
// Advanced=false (a required input hasn't satisfied its blocking window)
// simply lets the next ticker fire retry the same target PTS, per RunTick's
// contract.
func (s *VideoScheduler) Run(stopping func() bool) {
	interval := time.Second / time.Duration(s.framerate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		if stopping != nil && stopping() {
			return
		}
		s.RunTick()
	}
}
