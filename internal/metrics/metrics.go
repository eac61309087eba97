// Package metrics defines Prometheus metrics for the compositor pipeline.
// All metrics are registered against the default Prometheus registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueueDepth tracks the number of buffered frames/samples per input.
	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "live_compositor_queue_depth",
		Help: "Buffered frame/sample count per registered input.",
	}, []string{"input_id", "kind"})

	// DroppedFrames counts, per output, ticks whose frame or audio window was
	// dropped: every active output on a tick skipped after a required-input
	// timeout, and a non-required output whose sink missed its send deadline.
	DroppedFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "live_compositor_dropped_frames_total",
		Help: "Total number of output frames or audio windows dropped, either on a required-input timeout or a missed sink deadline.",
	}, []string{"output_id"})

	// FallbackActive tracks whether an input is currently contributing a
	// fallback (stale or missing) frame to its batches.
	FallbackActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "live_compositor_input_fallback_active",
		Help: "1 if the input is currently in fallback (stale/missing), 0 otherwise.",
	}, []string{"input_id"})

	// RenderDuration tracks wall time spent evaluating the render graph for
	// one output's tick.
	RenderDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "live_compositor_render_duration_seconds",
		Help:    "Time spent evaluating the render graph for one output tick.",
		Buckets: prometheus.DefBuckets,
	}, []string{"output_id"})

	// ScheduledUpdateLag measures how late a scheduled update actually ran
	// relative to its requested schedule_time_ms.
	ScheduledUpdateLag = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "live_compositor_scheduled_update_lag_seconds",
		Help:    "Delay between a scheduled update's target time and the tick that applied it.",
		Buckets: prometheus.DefBuckets,
	})

	// EOSTotal counts end-of-stream events by input or output id and kind.
	EOSTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "live_compositor_eos_total",
		Help: "Total end-of-stream events observed, by entity kind.",
	}, []string{"kind"})

	// OutputsActive tracks the number of currently registered outputs.
	OutputsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "live_compositor_outputs_active",
		Help: "Number of currently registered outputs.",
	})

	// InputsActive tracks the number of currently registered inputs.
	InputsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "live_compositor_inputs_active",
		Help: "Number of currently registered inputs.",
	})
)
