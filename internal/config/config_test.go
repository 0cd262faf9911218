package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PREFIXPROXY_HOST",
		"PREFIXPROXY_PORT",
		"PREFIXPROXY_BACKEND_URL",
		"PREFIXPROXY_BACKEND_API_KEY",
		"PREFIXPROXY_REQUEST_TIMEOUT",
		"PREFIXPROXY_STRIP_TIMESTAMPS",
		"PREFIXPROXY_STRIP_MESSAGE_IDS",
		"PREFIXPROXY_CAPTURE_LOG",
		"PREFIXPROXY_VERBOSE",
	} {
		t.Setenv(key, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	cfg := DefaultFromEnv()

	if cfg.Host != "127.0.0.1" {
		t.Errorf("Host: got %q", cfg.Host)
	}
	if cfg.Port != 1234 {
		t.Errorf("Port: got %d, want 1234", cfg.Port)
	}
	if cfg.BackendURL != "http://localhost:12345" {
		t.Errorf("BackendURL: got %q", cfg.BackendURL)
	}
	if cfg.RequestTimeout != 300*time.Second {
		t.Errorf("RequestTimeout: got %s", cfg.RequestTimeout)
	}
	if !cfg.StripTimestamps || !cfg.StripMessageIDs {
		t.Error("strip toggles should default to true")
	}
	if cfg.CaptureLog != "" {
		t.Errorf("CaptureLog: got %q, want empty", cfg.CaptureLog)
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PREFIXPROXY_PORT", "9999")
	t.Setenv("PREFIXPROXY_BACKEND_URL", "http://10.0.0.5:8080")
	t.Setenv("PREFIXPROXY_STRIP_TIMESTAMPS", "off")
	t.Setenv("PREFIXPROXY_REQUEST_TIMEOUT", "45s")
	t.Setenv("PREFIXPROXY_CAPTURE_LOG", "capture.log")

	cfg := DefaultFromEnv()

	if cfg.Port != 9999 {
		t.Errorf("Port: got %d", cfg.Port)
	}
	if cfg.BackendURL != "http://10.0.0.5:8080" {
		t.Errorf("BackendURL: got %q", cfg.BackendURL)
	}
	if cfg.StripTimestamps {
		t.Error("StripTimestamps should be off")
	}
	if !cfg.StripMessageIDs {
		t.Error("StripMessageIDs should keep its default")
	}
	if cfg.RequestTimeout != 45*time.Second {
		t.Errorf("RequestTimeout: got %s", cfg.RequestTimeout)
	}
	if cfg.CaptureLog != "capture.log" {
		t.Errorf("CaptureLog: got %q", cfg.CaptureLog)
	}
}

func TestEnvDurationBareSeconds(t *testing.T) {
	clearEnv(t)
	t.Setenv("PREFIXPROXY_REQUEST_TIMEOUT", "120")
	cfg := DefaultFromEnv()
	if cfg.RequestTimeout != 120*time.Second {
		t.Errorf("RequestTimeout: got %s, want 2m0s", cfg.RequestTimeout)
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "port: 4321\nbackend_url: http://127.0.0.1:7777\nstrip_message_ids: false\nrequest_timeout: 90s\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	if err := cfg.LoadFile(path); err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 4321 {
		t.Errorf("Port: got %d", cfg.Port)
	}
	if cfg.BackendURL != "http://127.0.0.1:7777" {
		t.Errorf("BackendURL: got %q", cfg.BackendURL)
	}
	if cfg.StripMessageIDs {
		t.Error("StripMessageIDs should be false from file")
	}
	if !cfg.StripTimestamps {
		t.Error("StripTimestamps should keep its default")
	}
	if cfg.RequestTimeout != 90*time.Second {
		t.Errorf("RequestTimeout: got %s", cfg.RequestTimeout)
	}
	// Env still wins over the file.
	t.Setenv("PREFIXPROXY_PORT", "5555")
	cfg.ApplyEnv()
	if cfg.Port != 5555 {
		t.Errorf("Port after env: got %d, want 5555", cfg.Port)
	}
}

func TestLoadFileMissing(t *testing.T) {
	cfg := Default()
	if err := cfg.LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}

	bad := Default()
	bad.Port = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for port 0")
	}

	bad = Default()
	bad.BackendURL = "localhost:12345"
	if err := bad.Validate(); err == nil {
		t.Error("expected error for schemeless backend URL")
	}

	bad = Default()
	bad.RequestTimeout = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for zero timeout")
	}
}
