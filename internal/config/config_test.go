package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/mailcast")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SchedulerTimezone != "UTC" || cfg.ReconcileInterval != time.Minute {
		t.Errorf("unexpected scheduler defaults %+v", cfg)
	}
	if cfg.WorkerCount != 5 || cfg.BreakerMaxFailures != 5 {
		t.Errorf("unexpected worker defaults %+v", cfg)
	}

	loc, err := cfg.Location()
	if err != nil || loc != time.UTC {
		t.Errorf("Location() = %v, %v", loc, err)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/mailcast")
	t.Setenv("RECONCILE_INTERVAL", "15s")
	t.Setenv("BREAKER_TIMEOUT", "2m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ReconcileInterval != 15*time.Second || cfg.BreakerTimeout != 2*time.Minute {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}
