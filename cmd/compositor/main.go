// Command compositor runs the LiveCompositor real-time video/audio pipeline
// and its control plane.
//
// Port: LIVE_COMPOSITOR_API_PORT (default 8081).
//
// Routes:
//
//	POST /input/{id}/register
//	POST /input/{id}/unregister
//	POST /output/{id}/register
//	POST /output/{id}/update
//	POST /output/{id}/unregister
//	POST /shader/{id}/register
//	POST /shader/{id}/unregister
//	POST /image/{id}/register
//	POST /image/{id}/unregister
//	POST /font/register
//	POST /font/{id}/unregister
//	POST /start
//	GET  /status
//	GET  /ws
//	GET  /metrics
package main

import (
	"net/http"
	"os"

	"github.com/livecompositor/core/internal/api"
	"github.com/livecompositor/core/internal/config"
	"github.com/livecompositor/core/internal/logging"
	"github.com/livecompositor/core/internal/pipeline"
	"github.com/livecompositor/core/internal/shutdown"
	"github.com/livecompositor/core/internal/telemetry"
)

var version = "dev"

func main() {
	log := logging.New("compositor")

	if err := telemetry.Init(os.Getenv("SENTRY_DSN"), version); err != nil {
		log.WithError(err).Warn("sentry init failed, continuing without it")
	}
	defer telemetry.Flush()

	cfg := config.Load()

	p := pipeline.New(pipeline.Options{
		Framerate:             cfg.Framerate,
		StreamFallbackTimeout: cfg.StreamFallbackTimeout,
		OutputSampleRate:      uint32(cfg.OutputSampleRate),
	})

	telemetry.WatchFatal(p.Bus, log, func(reason string) {
		log.WithField("reason", reason).Error("exiting after fatal renderer error")
		os.Exit(1)
	})

	basePort := 9000
	srv := api.NewServer(p, log, basePort)

	httpServer := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: srv.Router(),
	}

	if err := shutdown.GracefulServe(httpServer, cfg.ShutdownDrainTimeout, p.Stopping, log); err != nil {
		log.WithError(err).Fatal("control plane exited with error")
	}
}
