// Package config loads compositor configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the compositor process.
type Config struct {
	APIPort string

	Framerate int

	StreamFallbackTimeout time.Duration
	OutputSampleRate      int

	ForceGPU          bool
	WebRendererEnable bool
	DownloadDir       string

	ShutdownDrainTimeout time.Duration
}

// Load reads configuration from environment variables with sensible
// defaults, mirroring the environment variables named by the control
// plane's external contract.
func Load() *Config {
	return &Config{
		APIPort:               getEnv("LIVE_COMPOSITOR_API_PORT", "8081"),
		Framerate:             getInt("LIVE_COMPOSITOR_FRAMERATE", 30),
		StreamFallbackTimeout: getDurationMS("LIVE_COMPOSITOR_STREAM_FALLBACK_TIMEOUT_MS", 1000*time.Millisecond),
		OutputSampleRate:      getInt("LIVE_COMPOSITOR_OUTPUT_SAMPLE_RATE", 48000),
		ForceGPU:              getBool("LIVE_COMPOSITOR_FORCE_GPU", false),
		WebRendererEnable:     getBool("LIVE_COMPOSITOR_WEB_RENDERER_ENABLE", false),
		DownloadDir:           getEnv("LIVE_COMPOSITOR_DOWNLOAD_DIR", "/tmp/live_compositor"),
		ShutdownDrainTimeout:  getDuration("LIVE_COMPOSITOR_SHUTDOWN_DRAIN_TIMEOUT", 10*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getDurationMS(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Millisecond
		}
	}
	return fallback
}
