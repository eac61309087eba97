package scheduler

import (
	"sync"
	"time"

	"github.com/livecompositor/core/internal/audiomixer"
	"github.com/livecompositor/core/internal/audioqueue"
	"github.com/livecompositor/core/internal/cerrors"
	"github.com/livecompositor/core/internal/eventbus"
	"github.com/livecompositor/core/internal/metrics"
	"github.com/livecompositor/core/internal/types"
)

// AudioOutputOptions configures one registered audio output.
type AudioOutputOptions struct {
	MixSpec    audiomixer.MixSpec
	OutputRate uint32
	Required   bool
	Sink       *AudioSink
}

type audioOutputState struct {
	opts AudioOutputOptions
}

// AudioScheduler implements the fixed 20ms audio loop: pop one mixer-rate
// window per input from AudioQueue, mix per output, and dispatch.
type AudioScheduler struct {
	mu sync.Mutex

	audioQueue *audioqueue.Queue
	bus        *eventbus.Bus

	outputs map[types.OutputID]*audioOutputState

	k int64 // next window index, in units of WindowDuration
}

// NewAudioScheduler builds an audio loop bound to the given AudioQueue.
func NewAudioScheduler(aq *audioqueue.Queue, bus *eventbus.Bus) *AudioScheduler {
	return &AudioScheduler{
		audioQueue: aq,
		bus:        bus,
		outputs:    make(map[types.OutputID]*audioOutputState),
	}
}

// RegisterOutput adds a new audio output to the mix rotation.
func (s *AudioScheduler) RegisterOutput(id types.OutputID, opts AudioOutputOptions) error {
	if opts.Sink == nil {
		return cerrors.New(cerrors.KindInvalidScene, "audio output %s: Sink is required", id)
	}
	if opts.OutputRate == 0 {
		return cerrors.New(cerrors.KindInvalidScene, "audio output %s: OutputRate is required", id)
	}
	s.mu.Lock()
	s.outputs[id] = &audioOutputState{opts: opts}
	s.mu.Unlock()
	return nil
}

// UpdateMix replaces an output's mixing spec, taking effect on the next window.
func (s *AudioScheduler) UpdateMix(id types.OutputID, spec audiomixer.MixSpec) {
	s.mu.Lock()
	if o, ok := s.outputs[id]; ok {
		o.opts.MixSpec = spec
	}
	s.mu.Unlock()
}

// UnregisterOutput removes an audio output immediately.
func (s *AudioScheduler) UnregisterOutput(id types.OutputID) {
	s.mu.Lock()
	delete(s.outputs, id)
	s.mu.Unlock()
}

// RunTick consumes exactly one WindowDuration window from the AudioQueue,
// mixes it per registered output, and dispatches the result. Unlike the
// video loop it never blocks on a required input: AudioQueue always
// zero-fills, so there is nothing to wait for.
func (s *AudioScheduler) RunTick() {
	s.mu.Lock()
	k := s.k
	s.k++
	outputs := make(map[types.OutputID]*audioOutputState, len(s.outputs))
	for id, o := range s.outputs {
		outputs[id] = o
	}
	s.mu.Unlock()

	start := time.Duration(k) * audioqueue.WindowDuration
	window := s.audioQueue.PopWindow(start)

	for id, o := range outputs {
		mixed := audiomixer.Mix(window, o.opts.MixSpec, o.opts.OutputRate, int64(start/time.Millisecond))
		mixed.StartPTS = start

		audio := RenderedAudio{StartPTS: start, Samples: mixed}
		if o.opts.Required {
			o.opts.Sink.sendRequired(audio)
		} else {
			deadline := time.Now().Add(audioqueue.WindowDuration)
			if !o.opts.Sink.sendBestEffort(audio, deadline) {
				metrics.DroppedFrames.WithLabelValues(string(id)).Inc()
			}
		}
	}
}

// Run ticks every WindowDuration, starting from the moment Run is called,
// until stopping reports true. Window timestamps come from the tick count,
// not the wall clock. Runs on its own goroutine; the video loop runs an
// analogous ticker at the output framerate.
func (s *AudioScheduler) Run(stopping func() bool) {
	ticker := time.NewTicker(audioqueue.WindowDuration)
	defer ticker.Stop()
	for range ticker.C {
		if stopping != nil && stopping() {
			return
		}
		s.RunTick()
	}
}
