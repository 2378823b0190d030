package config_test

import (
	"strings"
	"testing"

	"github.com/geowork/roadpack/internal/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Bundle.Mode != "split" {
		t.Errorf("expected default mode split, got %q", cfg.Bundle.Mode)
	}
	if cfg.NATS.Enabled || cfg.Valkey.Enabled {
		t.Error("brokers must be opt-in")
	}
	if cfg.Log.Format != "json" {
		t.Errorf("expected json log format, got %q", cfg.Log.Format)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("ROADPACK_SERVER_PORT", "9090")
	t.Setenv("ROADPACK_BUNDLE_MODE", "single")
	t.Setenv("ROADPACK_BUNDLE_DIR", "/data/bundles")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Bundle.Mode != "single" {
		t.Errorf("expected mode single, got %q", cfg.Bundle.Mode)
	}
	if cfg.Bundle.Dir != "/data/bundles" {
		t.Errorf("expected /data/bundles, got %q", cfg.Bundle.Dir)
	}
}

func TestLoad_RejectsBadMode(t *testing.T) {
	t.Setenv("ROADPACK_BUNDLE_MODE", "shredded")

	_, err := config.Load()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "bundle.mode") {
		t.Errorf("expected bundle.mode in error, got %v", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &config.Config{}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"server.port", "bundle.mode", "bundle.dir", "store.dir"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %s mentioned, got %v", want, err)
		}
	}
}
