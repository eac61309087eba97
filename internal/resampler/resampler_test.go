package resampler

import (
	"testing"
	"time"

	"github.com/livecompositor/core/internal/types"
)

func TestPushSameRateIsIdentity(t *testing.T) {
	r := New(48000, 48000)
	mono := []int16{10, 20, 30, 40}
	out := r.Push(types.SampleBatch{Kind: types.SampleBatchMono, Mono: mono, StartPTS: 0, SampleRate: 48000})

	if out.Kind != types.SampleBatchStereo {
		t.Fatalf("expected stereo output, got kind %v", out.Kind)
	}
	if len(out.Stereo) != len(mono) {
		t.Fatalf("expected %d samples, got %d", len(mono), len(out.Stereo))
	}
	for i, m := range mono {
		if out.Stereo[i].L != m || out.Stereo[i].R != m {
			t.Fatalf("sample %d: expected mono %d duplicated to both channels, got %+v", i, m, out.Stereo[i])
		}
	}
}

func TestPushUpsamplesDoublesCount(t *testing.T) {
	r := New(24000, 48000)
	mono := make([]int16, 100)
	out := r.Push(types.SampleBatch{Kind: types.SampleBatchMono, Mono: mono, StartPTS: 0, SampleRate: 24000})
	if len(out.Stereo) != 200 {
		t.Fatalf("expected 200 resampled samples at 2x rate, got %d", len(out.Stereo))
	}
}

func TestPushFillsGapWithSilence(t *testing.T) {
	r := New(1000, 1000)
	first := make([]int16, 10) // covers [0,10ms)
	for i := range first {
		first[i] = 100
	}
	out1 := r.Push(types.SampleBatch{Kind: types.SampleBatchMono, Mono: first, StartPTS: 0, SampleRate: 1000})
	if len(out1.Stereo) != 10 {
		t.Fatalf("expected 10 samples in first push, got %d", len(out1.Stereo))
	}

	// Next batch starts at 20ms instead of 10ms: a 10ms / 10-sample gap.
	second := make([]int16, 5)
	for i := range second {
		second[i] = 200
	}
	out2 := r.Push(types.SampleBatch{Kind: types.SampleBatchMono, Mono: second, StartPTS: 20 * time.Millisecond, SampleRate: 1000})

	if len(out2.Stereo) != 15 {
		t.Fatalf("expected 10 silence + 5 data samples, got %d", len(out2.Stereo))
	}
	for i := 0; i < 10; i++ {
		if out2.Stereo[i] != (types.StereoSample{}) {
			t.Fatalf("expected silence at gap index %d, got %+v", i, out2.Stereo[i])
		}
	}
	for i := 10; i < 15; i++ {
		if out2.Stereo[i].L != 200 {
			t.Fatalf("expected data sample at index %d, got %+v", i, out2.Stereo[i])
		}
	}
	if out2.StartPTS != 10*time.Millisecond {
		t.Fatalf("expected output batch to start at the gap boundary (10ms), got %s", out2.StartPTS)
	}
}

func TestPushPreservesStereoInput(t *testing.T) {
	r := New(48000, 48000)
	stereo := []types.StereoSample{{L: 1, R: -1}, {L: 2, R: -2}}
	out := r.Push(types.SampleBatch{Kind: types.SampleBatchStereo, Stereo: stereo, StartPTS: 0, SampleRate: 48000})
	if len(out.Stereo) != 2 || out.Stereo[0] != stereo[0] || out.Stereo[1] != stereo[1] {
		t.Fatalf("expected stereo passthrough, got %+v", out.Stereo)
	}
}
