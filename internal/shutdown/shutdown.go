// Package shutdown provides graceful HTTP server shutdown with connection
// draining for the compositor's control plane, plus the "stopping" flag
// the video and audio scheduler loops poll at the top of every tick so
// in-flight GPU work completes before process exit.
package shutdown

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

// Flag is a process-wide stop signal scheduler loops check once per tick.
type Flag struct {
	stopping atomic.Bool
}

// NewFlag creates a cleared Flag.
func NewFlag() *Flag { return &Flag{} }

// Set marks the pipeline as stopping.
func (f *Flag) Set() { f.stopping.Store(true) }

// Stopping reports whether shutdown has been requested.
func (f *Flag) Stopping() bool { return f.stopping.Load() }

// GracefulServe starts the HTTP server and blocks until SIGTERM or SIGINT.
// On signal: sets flag (if non-nil) so scheduler loops stop producing new
// work, stops accepting new connections, drains active connections up to
// drainTimeout, then shuts down.
func GracefulServe(srv *http.Server, drainTimeout time.Duration, flag *Flag, log *logrus.Entry) error {
	serverErr := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("control plane starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	select {
	case err := <-serverErr:
		return err
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("shutdown signal received")
	}

	if flag != nil {
		flag.Set()
	}

	log.WithField("timeout", drainTimeout.String()).Info("draining connections")
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
		return err
	}

	log.Info("control plane stopped cleanly")
	return nil
}

// WaitForSignal blocks until SIGTERM or SIGINT, setting flag if non-nil.
func WaitForSignal(flag *Flag, log *logrus.Entry) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	sig := <-quit
	if flag != nil {
		flag.Set()
	}
	log.WithField("signal", sig.String()).Info("shutdown signal received")
}
