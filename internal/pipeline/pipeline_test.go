package pipeline

import (
	"testing"
	"time"

	"github.com/livecompositor/core/internal/scene"
	"github.com/livecompositor/core/internal/scheduler"
	"github.com/livecompositor/core/internal/types"
)

func testOptions() Options {
	return Options{
		Framerate:             30,
		StreamFallbackTimeout: time.Second,
		OutputSampleRate:      48000,
	}
}

func TestPipelineRegistersVideoInputOnBothQueueAndRegistry(t *testing.T) {
	p := New(testOptions())
	if err := p.RegisterVideoInput("A", VideoInputOptions{Required: false}); err != nil {
		t.Fatal(err)
	}
	if err := p.RegisterVideoInput("A", VideoInputOptions{}); err == nil {
		t.Fatal("expected duplicate input registration to fail")
	}
}

func TestPipelineRejectsUnknownAudioInput(t *testing.T) {
	p := New(testOptions())
	err := p.EnqueueAudio("missing", types.SampleBatch{Kind: types.SampleBatchMono, Mono: []int16{0}, SampleRate: 48000})
	if err == nil {
		t.Fatal("expected enqueueing audio for an unregistered input to fail")
	}
}

func TestPipelineRoundTripsVideoFrame(t *testing.T) {
	p := New(testOptions())
	if err := p.RegisterVideoInput("A", VideoInputOptions{}); err != nil {
		t.Fatal(err)
	}
	frame := types.Frame{PTS: 0}
	if err := p.EnqueueVideoFrame("A", frame); err != nil {
		t.Fatal(err)
	}

	sink := scheduler.NewOutputSink(4)
	if err := p.RegisterVideoOutput("out", scheduler.VideoOutputOptions{
		Resolution: scene.Resolution{Width: 2, Height: 2},
		Sink:       sink,
	}); err != nil {
		t.Fatal(err)
	}
	p.UpdateScene("out", scene.Component{Kind: scene.KindView}, nil)

	p.Video.RunTick()
	select {
	case <-sink.Chan():
	default:
		t.Fatal("expected a rendered frame after enqueueing video and ticking")
	}
}

func TestPipelineStartIsIdempotent(t *testing.T) {
	p := New(testOptions())
	if p.Started() {
		t.Fatal("expected pipeline not started before Start")
	}
	p.Start()
	p.Start()
	if !p.Started() {
		t.Fatal("expected pipeline started after Start")
	}
}

func TestPipelineStatusSnapshotReflectsRegistrations(t *testing.T) {
	p := New(testOptions())
	_ = p.RegisterVideoInput("A", VideoInputOptions{})
	snap := p.StatusSnapshot()
	if len(snap.Inputs) != 1 || snap.Inputs[0] != "A" {
		t.Fatalf("expected one input 'A' in status snapshot, got %v", snap.Inputs)
	}
}
