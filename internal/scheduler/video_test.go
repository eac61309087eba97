package scheduler

import (
	"testing"
	"time"

	"github.com/livecompositor/core/internal/eventbus"
	"github.com/livecompositor/core/internal/framequeue"
	"github.com/livecompositor/core/internal/registry"
	"github.com/livecompositor/core/internal/scene"
	"github.com/livecompositor/core/internal/types"
)

func newTestVideoScheduler(framerate int, now func() time.Duration) (*VideoScheduler, *framequeue.Queue, *scene.SceneState, *eventbus.Bus) {
	bus := eventbus.New()
	fq := framequeue.New(now, bus)
	ss := scene.NewSceneState()
	reg := registry.New()
	s := NewVideoScheduler(framerate, fq, ss, reg, bus, now)
	return s, fq, ss, bus
}

func TestVideoSchedulerRendersRegisteredOutput(t *testing.T) {
	now := func() time.Duration { return time.Hour }
	s, _, ss, _ := newTestVideoScheduler(30, now)

	sink := NewOutputSink(4)
	if err := s.RegisterOutput("out", VideoOutputOptions{
		Resolution: scene.Resolution{Width: 4, Height: 4},
		Required:   true,
		Sink:       sink,
	}); err != nil {
		t.Fatal(err)
	}
	ss.UpdateScene("out", scene.Component{Kind: scene.KindView, Background: scene.Color{R: 10, G: 20, B: 30, A: 255}}, 0)

	result := s.RunTick()
	if !result.Advanced {
		t.Fatal("expected tick to advance with no required inputs pending")
	}

	select {
	case frame := <-sink.Chan():
		if frame.PTS != 0 {
			t.Fatalf("expected PTS 0 on first tick, got %v", frame.PTS)
		}
	default:
		t.Fatal("expected a rendered frame on the sink")
	}
}

func TestVideoSchedulerBlocksOnRequiredInputUntilTimeout(t *testing.T) {
	elapsed := time.Duration(0)
	now := func() time.Duration { return elapsed }
	s, fq, ss, _ := newTestVideoScheduler(30, now)

	zero := time.Duration(0)
	if err := fq.RegisterInput("A", framequeue.InputOptions{Offset: &zero, Required: true, RequiredTimeout: 50 * time.Millisecond}); err != nil {
		t.Fatal(err)
	}

	sink := NewOutputSink(4)
	_ = s.RegisterOutput("out", VideoOutputOptions{Resolution: scene.Resolution{Width: 2, Height: 2}, Sink: sink})
	ss.UpdateScene("out", scene.Component{Kind: scene.KindView}, 0)

	result := s.RunTick()
	if result.Advanced {
		t.Fatal("expected tick not to advance while required input A is unsatisfied and within timeout")
	}

	elapsed = 100 * time.Millisecond
	result = s.RunTick()
	if !result.Advanced || !result.Dropped {
		t.Fatal("expected tick to advance and drop once required timeout elapses")
	}
}

func TestVideoSchedulerScheduledSceneUpdateAppliesAtTargetPTS(t *testing.T) {
	now := func() time.Duration { return time.Hour }
	s, _, ss, _ := newTestVideoScheduler(30, now)

	sink := NewOutputSink(4)
	_ = s.RegisterOutput("out", VideoOutputOptions{Resolution: scene.Resolution{Width: 2, Height: 2}, Sink: sink})
	ss.UpdateScene("out", scene.Component{Kind: scene.KindView, Background: scene.Color{R: 1}}, 0)

	frameInterval := time.Second / 30
	scheduleAtMS := frameInterval.Milliseconds() // due on the second tick (k=1)
	s.ScheduleUpdateScene("out", scene.Component{Kind: scene.KindView, Background: scene.Color{R: 2}}, scheduleAtMS)

	s.RunTick() // k=0, before the scheduled update's target
	tree, ok := ss.TreeAt("out", 0)
	if !ok || tree.Background.R != 1 {
		t.Fatalf("expected unscheduled background still in effect, got %+v ok=%v", tree, ok)
	}

	s.RunTick() // k=1, scheduled update should now have applied
	tree, ok = ss.TreeAt("out", time.Duration(scheduleAtMS)*time.Millisecond)
	if !ok || tree.Background.R != 2 {
		t.Fatalf("expected scheduled background update applied, got %+v ok=%v", tree, ok)
	}
}

func TestVideoSchedulerUnregisterOutputStopsRendering(t *testing.T) {
	now := func() time.Duration { return time.Hour }
	s, _, ss, _ := newTestVideoScheduler(30, now)

	sink := NewOutputSink(4)
	_ = s.RegisterOutput("out", VideoOutputOptions{Resolution: scene.Resolution{Width: 2, Height: 2}, Sink: sink})
	ss.UpdateScene("out", scene.Component{Kind: scene.KindView}, 0)

	s.UnregisterOutput("out", nil)
	s.RunTick()

	select {
	case <-sink.Chan():
		t.Fatal("expected no frame after output unregistration")
	default:
	}
}

func TestVideoSchedulerEOSConditionMarksOutputDone(t *testing.T) {
	now := func() time.Duration { return time.Hour }
	s, _, ss, bus := newTestVideoScheduler(30, now)

	sink := NewOutputSink(4)
	_ = s.RegisterOutput("out", VideoOutputOptions{
		Resolution:  scene.Resolution{Width: 2, Height: 2},
		Sink:        sink,
		SendEOSWhen: AllInputsEOS("A"),
	})
	ss.UpdateScene("out", scene.Component{Kind: scene.KindView}, 0)

	var doneEvents []string
	bus.Subscribe(func(ev eventbus.Event) {
		if ev.Kind == eventbus.KindOutputDone {
			doneEvents = append(doneEvents, ev.ID)
		}
	})

	bus.Publish(eventbus.Event{Kind: eventbus.KindVideoInputEOS, ID: "A"})
	s.RunTick()

	if len(doneEvents) != 1 || doneEvents[0] != "out" {
		t.Fatalf("expected exactly one OUTPUT_DONE for 'out', got %v", doneEvents)
	}
}

func TestVideoSchedulerRenderPanicReportsFatalEvent(t *testing.T) {
	now := func() time.Duration { return time.Hour }
	s, _, ss, bus := newTestVideoScheduler(30, now)
	ss.UpdateScene("out", scene.Component{Kind: scene.KindView}, 0)

	var fatal []string
	bus.Subscribe(func(ev eventbus.Event) {
		if ev.Kind == eventbus.KindFatalError {
			fatal = append(fatal, ev.ID)
		}
	})

	// A nil Sink can't normally reach renderAndDispatch (RegisterOutput
	// rejects it), but a GPU device-loss panic inside the real renderer
	// would surface the same way: the guard must turn it into a
	// FATAL_ERROR event rather than taking the whole tick loop down.
	func() {
		defer func() { recover() }()
		s.renderAndDispatchGuarded("out", &videoOutputState{
			opts:      VideoOutputOptions{Required: true, Sink: nil},
			eosInputs: map[types.InputID]bool{},
		}, 0, nil, nil)
	}()

	if len(fatal) != 1 {
		t.Fatalf("expected exactly one FATAL_ERROR event from the nil-sink panic, got %v", fatal)
	}
}

func TestVideoSchedulerCurrentPTSMatchesNextTick(t *testing.T) {
	now := func() time.Duration { return time.Hour }
	s, _, ss, _ := newTestVideoScheduler(30, now)
	sink := NewOutputSink(4)
	_ = s.RegisterOutput("out", VideoOutputOptions{Resolution: scene.Resolution{Width: 2, Height: 2}, Sink: sink})
	ss.UpdateScene("out", scene.Component{Kind: scene.KindView}, 0)

	if s.CurrentPTS() != 0 {
		t.Fatalf("expected CurrentPTS 0 before any tick, got %v", s.CurrentPTS())
	}
	s.RunTick()
	if want := time.Second / 30; s.CurrentPTS() != want {
		t.Fatalf("expected CurrentPTS %v after one tick, got %v", want, s.CurrentPTS())
	}
}

var _ = types.InputID("") // keep types imported for future frame-batch assertions
