// Package resampler rate-converts decoded audio to the mixer's common rate.
// Mono inputs are upmixed to a stereo intermediate (duplicated into both
// channels); AudioQueue and the mixer handle mono output separately. Gaps in
// input PTS are filled with silence so the resampled stream stays
// sample-accurate against wall-clock PTS.
package resampler

import (
	"time"

	"github.com/livecompositor/core/internal/types"
)

// Resampler converts one input's decoded samples from its native rate to a
// fixed output (mixer) rate. It is stateful: it tracks the PTS the next
// input batch is expected to start at, so it can detect and fill gaps.
type Resampler struct {
	inRate, outRate uint32

	haveExpected bool
	expectedPTS  time.Duration
}

// New creates a Resampler converting from inRate to outRate.
func New(inRate, outRate uint32) *Resampler {
	return &Resampler{inRate: inRate, outRate: outRate}
}

// Push resamples one input batch to outRate stereo, inserting silence for
// any gap between the previous batch's end and this batch's start.
func (r *Resampler) Push(batch types.SampleBatch) types.SampleBatch {
	var silence []types.StereoSample
	startPTS := batch.StartPTS

	if r.haveExpected && batch.StartPTS > r.expectedPTS {
		gap := batch.StartPTS - r.expectedPTS
		gapSamples := int(gap * time.Duration(r.outRate) / time.Second)
		silence = make([]types.StereoSample, gapSamples)
		startPTS = r.expectedPTS
	}

	stereo := toStereo(batch)
	resampled := linearResampleStereo(stereo, r.inRate, r.outRate)

	out := make([]types.StereoSample, 0, len(silence)+len(resampled))
	out = append(out, silence...)
	out = append(out, resampled...)

	r.expectedPTS = batch.EndPTS()
	r.haveExpected = true

	return types.SampleBatch{
		Kind:       types.SampleBatchStereo,
		Stereo:     out,
		StartPTS:   startPTS,
		SampleRate: r.outRate,
	}
}

// Reset clears gap-tracking state, e.g. after a discontinuity or re-register.
func (r *Resampler) Reset() {
	r.haveExpected = false
	r.expectedPTS = 0
}

func toStereo(b types.SampleBatch) []types.StereoSample {
	if b.Kind == types.SampleBatchStereo {
		return b.Stereo
	}
	out := make([]types.StereoSample, len(b.Mono))
	for i, m := range b.Mono {
		out[i] = types.StereoSample{L: m, R: m}
	}
	return out
}

// linearResampleStereo performs linear-interpolation rate conversion.
func linearResampleStereo(in []types.StereoSample, inRate, outRate uint32) []types.StereoSample {
	if len(in) == 0 || inRate == 0 || outRate == 0 {
		return nil
	}
	if inRate == outRate {
		out := make([]types.StereoSample, len(in))
		copy(out, in)
		return out
	}

	outLen := scaleCount(len(in), inRate, outRate)
	out := make([]types.StereoSample, outLen)
	ratio := float64(inRate) / float64(outRate)
	for i := 0; i < outLen; i++ {
		srcPos := float64(i) * ratio
		idx := int(srcPos)
		frac := srcPos - float64(idx)
		if idx >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		a, b := in[idx], in[idx+1]
		out[i] = types.StereoSample{
			L: lerp(a.L, b.L, frac),
			R: lerp(a.R, b.R, frac),
		}
	}
	return out
}

func lerp(a, b int16, frac float64) int16 {
	return int16(float64(a) + (float64(b)-float64(a))*frac)
}

func scaleCount(n int, fromRate, toRate uint32) int {
	if fromRate == 0 {
		return 0
	}
	return int((int64(n)*int64(toRate) + int64(fromRate)/2) / int64(fromRate))
}
