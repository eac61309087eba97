package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{
		"LIVE_COMPOSITOR_API_PORT", "LIVE_COMPOSITOR_FRAMERATE",
		"LIVE_COMPOSITOR_STREAM_FALLBACK_TIMEOUT_MS", "LIVE_COMPOSITOR_OUTPUT_SAMPLE_RATE",
		"LIVE_COMPOSITOR_FORCE_GPU", "LIVE_COMPOSITOR_WEB_RENDERER_ENABLE", "LIVE_COMPOSITOR_DOWNLOAD_DIR",
	} {
		os.Unsetenv(k)
	}

	c := Load()
	if c.APIPort != "8081" {
		t.Errorf("expected default API port 8081, got %s", c.APIPort)
	}
	if c.Framerate != 30 {
		t.Errorf("expected default framerate 30, got %d", c.Framerate)
	}
	if c.StreamFallbackTimeout != time.Second {
		t.Errorf("expected default fallback timeout 1s, got %s", c.StreamFallbackTimeout)
	}
	if c.OutputSampleRate != 48000 {
		t.Errorf("expected default sample rate 48000, got %d", c.OutputSampleRate)
	}
	if c.ForceGPU {
		t.Error("expected ForceGPU to default false")
	}
}

func TestLoadOverridesFromEnv(t *testing.T) {
	os.Setenv("LIVE_COMPOSITOR_API_PORT", "9000")
	os.Setenv("LIVE_COMPOSITOR_FRAMERATE", "60")
	defer os.Unsetenv("LIVE_COMPOSITOR_API_PORT")
	defer os.Unsetenv("LIVE_COMPOSITOR_FRAMERATE")

	c := Load()
	if c.APIPort != "9000" {
		t.Errorf("expected overridden API port 9000, got %s", c.APIPort)
	}
	if c.Framerate != 60 {
		t.Errorf("expected overridden framerate 60, got %d", c.Framerate)
	}
}
