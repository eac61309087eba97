// Package telemetry wires the Sentry SDK for fatal-path error reporting.
// The compositor has exactly one class of fatal runtime failure — a
// GpuLost event on the EventBus (device loss / renderer panic) — so unlike
// a typical HTTP service this package has no per-request capture surface,
// just init, one subscriber, and flush.
package telemetry

import (
	"fmt"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"

	"github.com/livecompositor/core/internal/eventbus"
)

// Init initializes the Sentry SDK. dsn may be empty — Sentry is disabled
// and every Sentry call in this package becomes a no-op.
func Init(dsn, release string) error {
	if dsn == "" {
		fmt.Fprintln(os.Stderr, "[telemetry] SENTRY_DSN not set — Sentry disabled")
		return nil
	}
	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Release:          release,
		AttachStacktrace: true,
		Tags:             map[string]string{"service": "live-compositor"},
	})
}

// Flush waits for buffered Sentry events to be sent. Call with defer in main.
func Flush() {
	sentry.Flush(2 * time.Second)
}

// WatchFatal subscribes to bus for KindFatalError events. For the first one
// observed it reports to Sentry, flushes, and invokes onFatal (which drains
// and exits the process in main); later events are ignored — a second GPU
// loss while already unwinding doesn't need its own report.
func WatchFatal(bus *eventbus.Bus, log *logrus.Entry, onFatal func(reason string)) {
	var reported bool
	bus.Subscribe(func(ev eventbus.Event) {
		if ev.Kind != eventbus.KindFatalError || reported {
			return
		}
		reported = true
		log.WithField("reason", ev.ID).Error("fatal error, reporting and shutting down")
		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("kind", "GpuLost")
			sentry.CaptureException(fmt.Errorf("%s", ev.ID))
		})
		Flush()
		if onFatal != nil {
			onFatal(ev.ID)
		}
	})
}
