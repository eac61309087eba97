package scheduler

import (
	"time"

	"github.com/livecompositor/core/internal/rendergraph"
	"github.com/livecompositor/core/internal/types"
)

// RenderedFrame is one composited output frame ready for its sink.
type RenderedFrame struct {
	PTS   time.Duration
	Image rendergraph.RGBAImage
}

// OutputSink is the hand-off point between a video loop tick and whatever
// external encoder/transport consumes finished frames. Required outputs
// block on Chan() until the consumer keeps up; non-required outputs give
// the consumer one tick's worth of grace before the frame is dropped.
type OutputSink struct {
	ch chan RenderedFrame
}

// NewOutputSink allocates a sink with the given channel buffer depth.
func NewOutputSink(buffer int) *OutputSink {
	if buffer < 1 {
		buffer = 1
	}
	return &OutputSink{ch: make(chan RenderedFrame, buffer)}
}

// Chan exposes the receive side for the output's consumer goroutine.
func (s *OutputSink) Chan() <-chan RenderedFrame { return s.ch }

// sendRequired blocks until the frame is accepted.
func (s *OutputSink) sendRequired(f RenderedFrame) {
	s.ch <- f
}

// sendBestEffort tries to enqueue f, waiting at most until deadline before
// giving up and reporting the drop.
func (s *OutputSink) sendBestEffort(f RenderedFrame, deadline time.Time) bool {
	select {
	case s.ch <- f:
		return true
	default:
	}

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()
	select {
	case s.ch <- f:
		return true
	case <-timer.C:
		return false
	}
}

// AudioSink is the audio-loop equivalent of OutputSink.
type AudioSink struct {
	ch chan RenderedAudio
}

// RenderedAudio is one mixed audio window ready for its sink.
type RenderedAudio struct {
	StartPTS time.Duration
	Samples  types.SampleBatch
}

// NewAudioSink allocates an audio sink with the given channel buffer depth.
func NewAudioSink(buffer int) *AudioSink {
	if buffer < 1 {
		buffer = 1
	}
	return &AudioSink{ch: make(chan RenderedAudio, buffer)}
}

// Chan exposes the receive side for the output's consumer goroutine.
func (s *AudioSink) Chan() <-chan RenderedAudio { return s.ch }

func (s *AudioSink) sendRequired(a RenderedAudio) {
	s.ch <- a
}

func (s *AudioSink) sendBestEffort(a RenderedAudio, deadline time.Time) bool {
	select {
	case s.ch <- a:
		return true
	default:
	}

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()
	select {
	case s.ch <- a:
		return true
	case <-timer.C:
		return false
	}
}
