// Package audiomixer sums per-input sample windows into one output window
// according to a per-output mixing spec.
package audiomixer

import (
	"math"

	"github.com/livecompositor/core/internal/types"
)

// Strategy selects how overlapping input volumes are combined into one
// output sample.
type Strategy int

const (
	// SumClip clamps the weighted sum to the i16 range (the default).
	SumClip Strategy = iota
	// SumScale rescales the whole window uniformly so its peak fits,
	// avoiding hard clipping at the cost of uniformly lower volume.
	SumScale
)

// InputMix is one input's contribution to an output mix.
type InputMix struct {
	ID     types.InputID
	Volume float64
}

// MixSpec is a per-output mixing configuration.
type MixSpec struct {
	Inputs   []InputMix
	Strategy Strategy
	Stereo   bool
}

// Mix combines window (as produced by AudioQueue.PopWindow, keyed by input
// id) into a single output SampleBatch per spec.
func Mix(window map[types.InputID]types.SampleBatch, spec MixSpec, outputRate uint32, startPTS int64) types.SampleBatch {
	n := windowLen(window)

	if spec.Stereo {
		sumL := make([]float64, n)
		sumR := make([]float64, n)
		peakL, peakR := 0.0, 0.0
		for _, in := range spec.Inputs {
			batch, ok := window[in.ID]
			if !ok {
				continue
			}
			l, r := stereoChannels(batch, n)
			maxAbsL, maxAbsR := 0.0, 0.0
			for i := 0; i < n; i++ {
				cl := in.Volume * l[i]
				cr := in.Volume * r[i]
				sumL[i] += cl
				sumR[i] += cr
				if a := math.Abs(cl); a > maxAbsL {
					maxAbsL = a
				}
				if a := math.Abs(cr); a > maxAbsR {
					maxAbsR = a
				}
			}
			peakL += maxAbsL
			peakR += maxAbsR
		}
		out := make([]types.StereoSample, n)
		scale := scaleFactor(spec.Strategy, math.Max(peakL, peakR))
		for i := 0; i < n; i++ {
			out[i] = types.StereoSample{L: toI16(sumL[i] * scale), R: toI16(sumR[i] * scale)}
		}
		return types.SampleBatch{Kind: types.SampleBatchStereo, Stereo: out, SampleRate: outputRate}
	}

	sum := make([]float64, n)
	peak := 0.0
	for _, in := range spec.Inputs {
		batch, ok := window[in.ID]
		if !ok {
			continue
		}
		mono := monoChannel(batch, n)
		maxAbs := 0.0
		for i := 0; i < n; i++ {
			c := in.Volume * mono[i]
			sum[i] += c
			if a := math.Abs(c); a > maxAbs {
				maxAbs = a
			}
		}
		peak += maxAbs
	}
	out := make([]int16, n)
	scale := scaleFactor(spec.Strategy, peak)
	for i := 0; i < n; i++ {
		out[i] = toI16(sum[i] * scale)
	}
	return types.SampleBatch{Kind: types.SampleBatchMono, Mono: out, SampleRate: outputRate}
}

func scaleFactor(strategy Strategy, peak float64) float64 {
	if strategy != SumScale {
		return 1.0
	}
	if peak <= math.MaxInt16 {
		return 1.0
	}
	return math.MaxInt16 / peak
}

func toI16(v float64) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(math.Round(v))
}

func windowLen(window map[types.InputID]types.SampleBatch) int {
	for _, b := range window {
		return b.Len()
	}
	return 0
}

func monoChannel(b types.SampleBatch, n int) []float64 {
	out := make([]float64, n)
	switch b.Kind {
	case types.SampleBatchMono:
		for i := 0; i < n && i < len(b.Mono); i++ {
			out[i] = float64(b.Mono[i])
		}
	case types.SampleBatchStereo:
		for i := 0; i < n && i < len(b.Stereo); i++ {
			s := b.Stereo[i]
			out[i] = (float64(s.L) + float64(s.R)) / 2
		}
	}
	return out
}

func stereoChannels(b types.SampleBatch, n int) (l, r []float64) {
	l = make([]float64, n)
	r = make([]float64, n)
	switch b.Kind {
	case types.SampleBatchStereo:
		for i := 0; i < n && i < len(b.Stereo); i++ {
			l[i] = float64(b.Stereo[i].L)
			r[i] = float64(b.Stereo[i].R)
		}
	case types.SampleBatchMono:
		for i := 0; i < n && i < len(b.Mono); i++ {
			v := float64(b.Mono[i])
			l[i] = v
			r[i] = v
		}
	}
	return l, r
}
