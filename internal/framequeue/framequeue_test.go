package framequeue

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/livecompositor/core/internal/types"
)

type fakeClock struct {
	elapsed atomic.Int64 // nanoseconds
}

func (c *fakeClock) now() time.Duration  { return time.Duration(c.elapsed.Load()) }
func (c *fakeClock) set(d time.Duration) { c.elapsed.Store(int64(d)) }

func yuvFrame(pts time.Duration) types.Frame {
	return types.Frame{
		Data:       types.NewYUVFrameData([]byte{1}, []byte{1}, []byte{1}, types.ColorRangeStudio),
		Resolution: types.Resolution{Width: 2, Height: 2},
		PTS:        pts,
	}
}

// TestRequiredInputBlocksUntilCoveringFrameArrives exercises a required
// input that keeps blocking batch emission even after it has delivered a
// frame, as long as that frame's pts hasn't caught up to the target pts yet
// — only a frame with pts >= target (or EOS, or RequiredTimeout elapsing)
// unblocks it.
func TestRequiredInputBlocksUntilCoveringFrameArrives(t *testing.T) {
	clk := &fakeClock{}
	zero := time.Duration(0)
	q := New(clk.now, nil, WithFallbackTimeout(500*time.Millisecond))
	if err := q.RegisterInput("A", InputOptions{Required: true, RequiredTimeout: time.Second, Offset: &zero}); err != nil {
		t.Fatalf("register: %v", err)
	}

	// Early tick: nothing buffered yet, well within timeout — batch blocks.
	clk.set(33 * time.Millisecond)
	if _, ok := q.PopBatch(33 * time.Millisecond); ok {
		t.Fatal("expected no batch before A has data or timeout")
	}

	// A delivers a stale frame that doesn't cover the 900ms target yet.
	clk.set(900 * time.Millisecond)
	if err := q.Enqueue("A", yuvFrame(0)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, ok := q.PopBatch(900 * time.Millisecond); ok {
		t.Fatal("expected batch to keep blocking: A's buffered frame (pts=0) doesn't cover target pts 900ms")
	}

	// A delivers a frame covering the target pts — now it unblocks.
	if err := q.Enqueue("A", yuvFrame(900*time.Millisecond)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	batch, ok := q.PopBatch(900 * time.Millisecond)
	if !ok {
		t.Fatal("expected batch to unblock once A has a frame covering the target pts")
	}
	if f, present := batch.Frames["A"]; !present || f.PTS != 900*time.Millisecond {
		t.Fatalf("expected A's covering frame in batch, got %+v", batch.Frames)
	}
}

// TestRequiredInputForceAdvancesAfterTimeout verifies a required input with
// no data at all stops blocking once RequiredTimeout elapses past the
// target pts, emitting a batch without that input's frame.
func TestRequiredInputForceAdvancesAfterTimeout(t *testing.T) {
	clk := &fakeClock{}
	q := New(clk.now, nil, WithFallbackTimeout(500*time.Millisecond))
	if err := q.RegisterInput("A", InputOptions{Required: true, RequiredTimeout: time.Second}); err != nil {
		t.Fatalf("register: %v", err)
	}

	clk.set(900 * time.Millisecond)
	if _, ok := q.PopBatch(900 * time.Millisecond); ok {
		t.Fatal("expected no batch before A has data or timeout")
	}

	clk.set(1901 * time.Millisecond)
	batch, ok := q.PopBatch(900 * time.Millisecond)
	if !ok {
		t.Fatal("expected batch to force-emit once RequiredTimeout elapsed past the target pts")
	}
	if _, present := batch.Frames["A"]; present {
		t.Fatal("expected A to be absent: it never delivered any frame")
	}
}

// TestScheduledUnregisterDrains verifies a deferred unregister keeps
// contributing frames up to its scheduled PTS, then vanishes.
func TestScheduledUnregisterDrains(t *testing.T) {
	clk := &fakeClock{}
	// Offset equal to the first frame's pts keeps the frames at 100/200/300ms.
	offset := 100 * time.Millisecond
	q := New(clk.now, nil, WithFallbackTimeout(time.Second))
	if err := q.RegisterInput("A", InputOptions{Offset: &offset}); err != nil {
		t.Fatalf("register: %v", err)
	}
	for _, pts := range []time.Duration{100, 200, 300} {
		if err := q.Enqueue("A", yuvFrame(pts*time.Millisecond)); err != nil {
			t.Fatalf("enqueue %d: %v", pts, err)
		}
	}
	at := 250 * time.Millisecond
	if err := q.UnregisterInput("A", &at); err != nil {
		t.Fatalf("unregister: %v", err)
	}

	clk.set(267 * time.Millisecond)
	batch, ok := q.PopBatch(267 * time.Millisecond)
	if !ok {
		t.Fatal("expected a batch at 267ms")
	}
	f, present := batch.Frames["A"]
	if !present || f.PTS != 300*time.Millisecond {
		t.Fatalf("expected A's 300ms frame to still be present at 267ms tick, got %+v", batch.Frames)
	}

	clk.set(300 * time.Millisecond)
	batch, _ = q.PopBatch(300 * time.Millisecond)
	if _, present := batch.Frames["A"]; present {
		t.Fatal("expected A to be gone from batches after the scheduled unregister matured")
	}
	if err := q.Enqueue("A", yuvFrame(400*time.Millisecond)); err == nil {
		t.Fatal("expected UnknownInput after A was removed")
	}
}

func TestEnqueueUnknownInput(t *testing.T) {
	clk := &fakeClock{}
	q := New(clk.now, nil)
	if err := q.Enqueue("missing", yuvFrame(0)); err == nil {
		t.Fatal("expected error for unknown input")
	}
}

func TestNearestSelectionDropsStale(t *testing.T) {
	clk := &fakeClock{}
	zero := time.Duration(0)
	q := New(clk.now, nil, WithFallbackTimeout(time.Second))
	if err := q.RegisterInput("A", InputOptions{Offset: &zero}); err != nil {
		t.Fatal(err)
	}
	for _, pts := range []time.Duration{0, 30, 60, 90} {
		_ = q.Enqueue("A", yuvFrame(pts*time.Millisecond))
	}
	clk.set(65 * time.Millisecond)
	batch, ok := q.PopBatch(65 * time.Millisecond)
	if !ok {
		t.Fatal("expected batch")
	}
	if f := batch.Frames["A"]; f.PTS != 60*time.Millisecond {
		t.Fatalf("expected nearest frame (60ms) selected, got %s", f.PTS)
	}
	if d := q.Depth("A"); d != 2 {
		t.Fatalf("expected stale frames (0ms, 30ms) dropped, 2 remaining (60ms,90ms), got depth %d", d)
	}
}

func TestOldPTSRejected(t *testing.T) {
	clk := &fakeClock{}
	zero := time.Duration(0)
	q := New(clk.now, nil)
	_ = q.RegisterInput("A", InputOptions{Offset: &zero})
	if err := q.Enqueue("A", yuvFrame(100*time.Millisecond)); err != nil {
		t.Fatal(err)
	}
	if err := q.Enqueue("A", yuvFrame(50*time.Millisecond)); err == nil {
		t.Fatal("expected OldPts error for a frame preceding the buffered pts")
	}
}

func TestSubscribeInputListenerFiresOnce(t *testing.T) {
	clk := &fakeClock{}
	zero := time.Duration(0)
	q := New(clk.now, nil)
	_ = q.RegisterInput("A", InputOptions{Offset: &zero})

	fired := 0
	q.SubscribeInputListener("A", func(f types.Frame) { fired++ })
	_ = q.Enqueue("A", yuvFrame(10*time.Millisecond))
	_ = q.Enqueue("A", yuvFrame(20*time.Millisecond))

	if fired != 1 {
		t.Fatalf("expected listener to fire exactly once, fired %d times", fired)
	}
}

func TestDuplicateInputRejected(t *testing.T) {
	clk := &fakeClock{}
	q := New(clk.now, nil)
	if err := q.RegisterInput("A", InputOptions{}); err != nil {
		t.Fatal(err)
	}
	if err := q.RegisterInput("A", InputOptions{}); err == nil {
		t.Fatal("expected DuplicateInput error")
	}
}
