// Package audioqueue implements the per-input sample buffer that emits
// fixed-duration mixed batches at the 20ms audio tick.
//
// Unlike FrameQueue, AudioQueue never blocks a tick: missing samples are
// zero-filled so the audio loop stays glitch-free and clock-driven.
package audioqueue

import (
	"sync"
	"time"

	"github.com/livecompositor/core/internal/cerrors"
	"github.com/livecompositor/core/internal/eventbus"
	"github.com/livecompositor/core/internal/types"
)

// WindowDuration is the fixed audio batch duration.
const WindowDuration = 20 * time.Millisecond

// InputOptions configures one registered audio input.
type InputOptions struct {
	Offset *time.Duration
	Stereo bool // output channel layout for this input's batches
}

type inputRecord struct {
	opts InputOptions

	ptsOffsetSet bool
	ptsOffset    time.Duration

	// buffer holds contiguous-or-gapped sample batches ordered by StartPTS.
	buffer []types.SampleBatch

	eosReceived bool
	eosNotified bool
}

// Queue is the per-pipeline AudioQueue.
type Queue struct {
	mu sync.Mutex

	mixerRate uint32
	bus       *eventbus.Bus
	inputs    map[types.InputID]*inputRecord
}

// New creates a Queue that mixes to mixerRate samples/sec. bus may be nil
// (no AUDIO_INPUT_EOS events published).
func New(mixerRate uint32, bus *eventbus.Bus) *Queue {
	return &Queue{mixerRate: mixerRate, bus: bus, inputs: make(map[types.InputID]*inputRecord)}
}

// RegisterInput adds an empty per-input record.
func (q *Queue) RegisterInput(id types.InputID, opts InputOptions) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, exists := q.inputs[id]; exists {
		return cerrors.New(cerrors.KindDuplicateInput, "audio input %q already registered", id)
	}
	q.inputs[id] = &inputRecord{opts: opts}
	return nil
}

// UnregisterInput removes an input's record immediately.
func (q *Queue) UnregisterInput(id types.InputID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.inputs[id]; !ok {
		return cerrors.New(cerrors.KindUnknownInput, "audio input %q not registered", id)
	}
	delete(q.inputs, id)
	return nil
}

// Enqueue appends a resampled (already mixer-rate) batch to id's buffer,
// rewriting StartPTS against the input's fixed pts_offset exactly as
// FrameQueue does for video frames.
func (q *Queue) Enqueue(id types.InputID, batch types.SampleBatch, nowSinceStart time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	rec, ok := q.inputs[id]
	if !ok {
		return cerrors.New(cerrors.KindUnknownInput, "audio input %q not registered", id)
	}
	if !rec.ptsOffsetSet {
		if rec.opts.Offset != nil {
			rec.ptsOffset = *rec.opts.Offset - batch.StartPTS
		} else {
			rec.ptsOffset = nowSinceStart - batch.StartPTS
		}
		rec.ptsOffsetSet = true
	}
	batch.StartPTS += rec.ptsOffset
	rec.buffer = append(rec.buffer, batch)
	return nil
}

// MarkEOS records end-of-stream for id.
func (q *Queue) MarkEOS(id types.InputID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if rec, ok := q.inputs[id]; ok {
		rec.eosReceived = true
	}
}

// windowSamples returns how many samples WindowDuration covers at rate.
func windowSamples(rate uint32) int {
	return int(time.Duration(rate) * WindowDuration / time.Second)
}

// PopWindow consumes exactly one WindowDuration's worth of mixer-rate samples
// per registered input for the window [start, start+WindowDuration), trimming
// and splitting buffered batches as needed and zero-filling gaps. It never
// blocks: every registered input is present in the result map, stereo
// zero-filled if the input is registered Stereo, mono otherwise.
func (q *Queue) PopWindow(start time.Duration) map[types.InputID]types.SampleBatch {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := windowSamples(q.mixerRate)
	out := make(map[types.InputID]types.SampleBatch, len(q.inputs))
	end := start + WindowDuration

	for id, rec := range q.inputs {
		if rec.opts.Stereo {
			stereo := make([]types.StereoSample, n)
			q.fillStereo(rec, start, end, stereo)
			out[id] = types.SampleBatch{Kind: types.SampleBatchStereo, Stereo: stereo, StartPTS: start, SampleRate: q.mixerRate}
		} else {
			mono := make([]int16, n)
			q.fillMono(rec, start, end, mono)
			out[id] = types.SampleBatch{Kind: types.SampleBatchMono, Mono: mono, StartPTS: start, SampleRate: q.mixerRate}
		}
	}
	q.prune(start)

	var eosFire []types.InputID
	for id, rec := range q.inputs {
		if rec.eosReceived && !rec.eosNotified && len(rec.buffer) == 0 {
			rec.eosNotified = true
			eosFire = append(eosFire, id)
		}
	}

	if q.bus != nil {
		for _, id := range eosFire {
			q.bus.Publish(eventbus.Event{Kind: eventbus.KindAudioInputEOS, ID: string(id)})
		}
	}
	return out
}

func (q *Queue) fillMono(rec *inputRecord, start, end time.Duration, dst []int16) {
	for _, b := range rec.buffer {
		bEnd := b.EndPTS()
		if bEnd <= start || b.StartPTS >= end {
			continue
		}
		overlapStart := maxDur(start, b.StartPTS)
		overlapEnd := minDur(end, bEnd)
		srcOff := samplesBetween(b.StartPTS, overlapStart, b.SampleRate)
		dstOff := samplesBetween(start, overlapStart, q.mixerRate)
		count := samplesBetween(overlapStart, overlapEnd, q.mixerRate)
		for i := 0; i < count; i++ {
			si := srcOff + i
			di := dstOff + i
			if si < 0 || di < 0 || di >= len(dst) {
				continue
			}
			if b.Kind == types.SampleBatchMono && si < len(b.Mono) {
				dst[di] = b.Mono[si]
			} else if b.Kind == types.SampleBatchStereo && si < len(b.Stereo) {
				s := b.Stereo[si]
				dst[di] = int16((int32(s.L) + int32(s.R)) / 2)
			}
		}
	}
}

func (q *Queue) fillStereo(rec *inputRecord, start, end time.Duration, dst []types.StereoSample) {
	for _, b := range rec.buffer {
		bEnd := b.EndPTS()
		if bEnd <= start || b.StartPTS >= end {
			continue
		}
		overlapStart := maxDur(start, b.StartPTS)
		overlapEnd := minDur(end, bEnd)
		srcOff := samplesBetween(b.StartPTS, overlapStart, b.SampleRate)
		dstOff := samplesBetween(start, overlapStart, q.mixerRate)
		count := samplesBetween(overlapStart, overlapEnd, q.mixerRate)
		for i := 0; i < count; i++ {
			si := srcOff + i
			di := dstOff + i
			if si < 0 || di < 0 || di >= len(dst) {
				continue
			}
			if b.Kind == types.SampleBatchStereo && si < len(b.Stereo) {
				dst[di] = b.Stereo[si]
			} else if b.Kind == types.SampleBatchMono && si < len(b.Mono) {
				m := b.Mono[si]
				dst[di] = types.StereoSample{L: m, R: m}
			}
		}
	}
}

// prune drops buffered batches that end at or before cutoff — fully consumed.
func (q *Queue) prune(cutoff time.Duration) {
	for _, rec := range q.inputs {
		kept := rec.buffer[:0]
		for _, b := range rec.buffer {
			if b.EndPTS() > cutoff {
				kept = append(kept, b)
			}
		}
		rec.buffer = kept
	}
}

func samplesBetween(from, to time.Duration, rate uint32) int {
	if to <= from {
		return 0
	}
	return int((to - from) * time.Duration(rate) / time.Second)
}

func maxDur(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}

func minDur(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
