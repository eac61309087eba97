// Package pipeline wires the leaf components (Clock, FrameQueue, AudioQueue,
// SceneState, Registry, EventBus) into the two scheduler loops described by
// spec §2's control-flow diagram, and exposes the registration/update
// surface the control plane (internal/api) calls into.
package pipeline

import (
	"sync"
	"time"

	"github.com/livecompositor/core/internal/audiomixer"
	"github.com/livecompositor/core/internal/audioqueue"
	"github.com/livecompositor/core/internal/cerrors"
	"github.com/livecompositor/core/internal/clock"
	"github.com/livecompositor/core/internal/eventbus"
	"github.com/livecompositor/core/internal/framequeue"
	"github.com/livecompositor/core/internal/registry"
	"github.com/livecompositor/core/internal/resampler"
	"github.com/livecompositor/core/internal/scene"
	"github.com/livecompositor/core/internal/scheduler"
	"github.com/livecompositor/core/internal/shutdown"
	"github.com/livecompositor/core/internal/types"
)

// Options configures a Pipeline at construction time; these mirror the
// environment variables named in spec §6.
type Options struct {
	Framerate             int
	StreamFallbackTimeout time.Duration
	OutputSampleRate      uint32
}

// Pipeline is one instance of the compositor's core: it owns the Clock and
// both queues, and drives a VideoScheduler plus AudioScheduler over shared
// SceneState/Registry/EventBus. External decoder/encoder threads are the
// pipeline's collaborators, not its concern (spec §1 out-of-scope list) —
// they call EnqueueVideoFrame/EnqueueAudio and read an output's sink channel.
type Pipeline struct {
	opts Options

	Clock      *clock.Clock
	Bus        *eventbus.Bus
	Registry   *registry.Registry
	SceneState *scene.SceneState
	FrameQueue *framequeue.Queue
	AudioQueue *audioqueue.Queue
	Video      *scheduler.VideoScheduler
	Audio      *scheduler.AudioScheduler
	Stopping   *shutdown.Flag

	mu         sync.Mutex
	resamplers map[types.InputID]*resampler.Resampler
	audioRates map[types.InputID]uint32
}

// New constructs a Pipeline wired per spec §2/§5. The clock has not been
// started; until Start is called, both scheduler loops buffer but do not
// emit (spec §4.1).
func New(opts Options) *Pipeline {
	c := clock.New()
	bus := eventbus.New()
	reg := registry.New()
	ss := scene.NewSceneState()

	fq := framequeue.New(c.Now, bus, framequeue.WithFallbackTimeout(opts.StreamFallbackTimeout))
	aq := audioqueue.New(opts.OutputSampleRate, bus)

	video := scheduler.NewVideoScheduler(opts.Framerate, fq, ss, reg, bus, c.Now)
	audio := scheduler.NewAudioScheduler(aq, bus)

	return &Pipeline{
		opts:       opts,
		Clock:      c,
		Bus:        bus,
		Registry:   reg,
		SceneState: ss,
		FrameQueue: fq,
		AudioQueue: aq,
		Video:      video,
		Audio:      audio,
		Stopping:   shutdown.NewFlag(),
		resamplers: make(map[types.InputID]*resampler.Resampler),
		audioRates: make(map[types.InputID]uint32),
	}
}

// Start fires the clock's start instant (idempotent, first caller wins per
// spec §4.1) and spins up the two scheduler loops, each on its own
// goroutine, stopping when the pipeline's Stopping flag is set.
func (p *Pipeline) Start() {
	p.Clock.Start()
	go p.Video.Run(p.Stopping.Stopping)
	go p.Audio.Run(p.Stopping.Stopping)
}

// Started reports whether Start has fired.
func (p *Pipeline) Started() bool { return p.Clock.Started() }

// VideoInputOptions configures a registered video input, translating the
// control plane's register payload (spec §6) into framequeue.InputOptions.
type VideoInputOptions struct {
	Offset                *time.Duration
	Required              bool
	RequiredTimeout       time.Duration
	StreamFallbackTimeout time.Duration
}

// RegisterVideoInput registers id with both the Registry (for uniqueness
// and /status) and the FrameQueue.
func (p *Pipeline) RegisterVideoInput(id types.InputID, opts VideoInputOptions) error {
	if err := p.Registry.RegisterInputID(id); err != nil {
		return err
	}
	if err := p.FrameQueue.RegisterInput(id, framequeue.InputOptions{
		Offset:                opts.Offset,
		Required:              opts.Required,
		RequiredTimeout:       opts.RequiredTimeout,
		StreamFallbackTimeout: opts.StreamFallbackTimeout,
	}); err != nil {
		_ = p.Registry.UnregisterInputID(id)
		return err
	}
	return nil
}

// RegisterAudioInput registers id's audio side: an AudioQueue record plus a
// per-input Resampler converting nativeRate to the pipeline's output sample
// rate (spec §4.3).
func (p *Pipeline) RegisterAudioInput(id types.InputID, offset *time.Duration, stereo bool, nativeRate uint32) error {
	if err := p.AudioQueue.RegisterInput(id, audioqueue.InputOptions{Offset: offset, Stereo: stereo}); err != nil {
		return err
	}
	p.mu.Lock()
	p.resamplers[id] = resampler.New(nativeRate, p.opts.OutputSampleRate)
	p.audioRates[id] = nativeRate
	p.mu.Unlock()
	return nil
}

// UnregisterInput removes id from both queues. A non-nil scheduleAt defers
// the video side's removal to that PTS on the video scheduler's timeline
// (spec §3 "Unregister drains buffered frames older than the current
// scheduler PTS").
func (p *Pipeline) UnregisterInput(id types.InputID, scheduleAt *time.Duration) {
	if scheduleAt != nil {
		p.Video.ScheduleUnregisterInput(id, scheduleAt.Milliseconds())
	} else {
		_ = p.FrameQueue.UnregisterInput(id, nil)
		_ = p.Registry.UnregisterInputID(id)
	}
	_ = p.AudioQueue.UnregisterInput(id)
	p.mu.Lock()
	delete(p.resamplers, id)
	delete(p.audioRates, id)
	p.mu.Unlock()
}

// EnqueueVideoFrame hands a decoded frame to the FrameQueue.
func (p *Pipeline) EnqueueVideoFrame(id types.InputID, frame types.Frame) error {
	if err := p.FrameQueue.Enqueue(id, frame); err != nil {
		return err
	}
	p.Bus.Publish(eventbus.Event{Kind: eventbus.KindInputDelivered, ID: string(id)})
	return nil
}

// EnqueueAudio resamples batch from id's native rate to the pipeline output
// rate and hands the result to the AudioQueue.
func (p *Pipeline) EnqueueAudio(id types.InputID, batch types.SampleBatch) error {
	p.mu.Lock()
	rs, ok := p.resamplers[id]
	p.mu.Unlock()
	if !ok {
		return cerrors.New(cerrors.KindUnknownInput, "audio input %q not registered", id)
	}
	resampled := rs.Push(batch)
	return p.AudioQueue.Enqueue(id, resampled, p.Clock.Now())
}

// MarkVideoEOS records end-of-stream for a video input.
func (p *Pipeline) MarkVideoEOS(id types.InputID) { p.FrameQueue.MarkEOS(id) }

// MarkAudioEOS records end-of-stream for an audio input.
func (p *Pipeline) MarkAudioEOS(id types.InputID) { p.AudioQueue.MarkEOS(id) }

// RegisterVideoOutput registers a video output on the video scheduler.
func (p *Pipeline) RegisterVideoOutput(id types.OutputID, opts scheduler.VideoOutputOptions) error {
	return p.Video.RegisterOutput(id, opts)
}

// RegisterAudioOutput registers an audio output on the audio scheduler.
func (p *Pipeline) RegisterAudioOutput(id types.OutputID, opts scheduler.AudioOutputOptions) error {
	return p.Audio.RegisterOutput(id, opts)
}

// UpdateScene applies a scene update, immediately (scheduleAt nil) or at a
// future PTS on the video scheduler's timeline.
func (p *Pipeline) UpdateScene(id types.OutputID, root scene.Component, scheduleAt *time.Duration) {
	if scheduleAt == nil {
		p.SceneState.UpdateScene(id, root, p.Video.CurrentPTS())
		return
	}
	p.Video.ScheduleUpdateScene(id, root, scheduleAt.Milliseconds())
}

// UpdateMix replaces an audio output's mixing spec, immediately.
func (p *Pipeline) UpdateMix(id types.OutputID, spec audiomixer.MixSpec) {
	p.Audio.UpdateMix(id, spec)
}

// UnregisterOutput removes a video/audio output pair, immediately or at a
// scheduled PTS.
func (p *Pipeline) UnregisterOutput(id types.OutputID, scheduleAt *time.Duration) {
	var ms *int64
	if scheduleAt != nil {
		v := scheduleAt.Milliseconds()
		ms = &v
	}
	p.Video.UnregisterOutput(id, ms)
	p.Audio.UnregisterOutput(id)
}

// Status summarizes pipeline state for GET /status (spec §12 supplement).
type Status struct {
	Started bool
	Inputs  []types.InputID
	Outputs []types.OutputID
}

// StatusSnapshot builds the current /status payload.
func (p *Pipeline) StatusSnapshot() Status {
	return Status{
		Started: p.Started(),
		Inputs:  p.Registry.InputIDs(),
		Outputs: p.Registry.OutputIDs(),
	}
}
