package scheduler

import (
	"testing"
	"time"

	"github.com/livecompositor/core/internal/audiomixer"
	"github.com/livecompositor/core/internal/audioqueue"
	"github.com/livecompositor/core/internal/eventbus"
	"github.com/livecompositor/core/internal/types"
)

func TestAudioSchedulerMixesRegisteredInput(t *testing.T) {
	aq := audioqueue.New(48000, eventbus.New())
	zero := time.Duration(0)
	if err := aq.RegisterInput("A", audioqueue.InputOptions{Offset: &zero}); err != nil {
		t.Fatal(err)
	}

	n := int(time.Duration(48000) * audioqueue.WindowDuration / time.Second)
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = 1000
	}
	if err := aq.Enqueue("A", types.SampleBatch{Kind: types.SampleBatchMono, Mono: samples, StartPTS: 0, SampleRate: 48000}, 0); err != nil {
		t.Fatal(err)
	}

	s := NewAudioScheduler(aq, nil)
	sink := NewAudioSink(4)
	if err := s.RegisterOutput("out", AudioOutputOptions{
		MixSpec:    audiomixer.MixSpec{Inputs: []audiomixer.InputMix{{ID: "A", Volume: 1}}},
		OutputRate: 48000,
		Required:   true,
		Sink:       sink,
	}); err != nil {
		t.Fatal(err)
	}

	s.RunTick()

	select {
	case audio := <-sink.Chan():
		if audio.StartPTS != 0 {
			t.Fatalf("expected StartPTS 0, got %v", audio.StartPTS)
		}
		if got := audio.Samples.Len(); got != n {
			t.Fatalf("expected %d samples, got %d", n, got)
		}
		if audio.Samples.Mono[0] != 1000 {
			t.Fatalf("expected mixed sample 1000, got %d", audio.Samples.Mono[0])
		}
	default:
		t.Fatal("expected a mixed window on the sink")
	}
}

func TestAudioSchedulerAdvancesWindowIndexEachTick(t *testing.T) {
	aq := audioqueue.New(48000, nil)
	s := NewAudioScheduler(aq, nil)
	sink := NewAudioSink(4)
	_ = s.RegisterOutput("out", AudioOutputOptions{OutputRate: 48000, Sink: sink})

	s.RunTick()
	s.RunTick()

	a1 := <-sink.Chan()
	a2 := <-sink.Chan()
	if a2.StartPTS-a1.StartPTS != audioqueue.WindowDuration {
		t.Fatalf("expected ticks %v apart, got %v", audioqueue.WindowDuration, a2.StartPTS-a1.StartPTS)
	}
}

func TestAudioSchedulerUnregisterOutputStopsDispatch(t *testing.T) {
	aq := audioqueue.New(48000, nil)
	s := NewAudioScheduler(aq, nil)
	sink := NewAudioSink(1)
	_ = s.RegisterOutput("out", AudioOutputOptions{OutputRate: 48000, Sink: sink})
	s.UnregisterOutput("out")

	s.RunTick()

	select {
	case <-sink.Chan():
		t.Fatal("expected no dispatch after unregister")
	default:
	}
}
