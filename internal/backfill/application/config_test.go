package application

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DefaultTimezone != "America/Denver" {
		t.Fatalf("unexpected default timezone %s", cfg.DefaultTimezone)
	}
	if cfg.BatchSize != 100 {
		t.Fatalf("unexpected default batch size %d", cfg.BatchSize)
	}
	if cfg.Series != "autogen.http" {
		t.Fatalf("unexpected default series %s", cfg.Series)
	}
}

func TestLoadConfigFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backfill.yaml")
	content := "default_timezone: Europe/Berlin\nbatch_size: 250\nboundary_tolerance_kwh: 2.5\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("BACKFILL_CONFIG", path)
	t.Setenv("BACKFILL_BATCH_SIZE", "42")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DefaultTimezone != "Europe/Berlin" {
		t.Fatalf("expected file timezone, got %s", cfg.DefaultTimezone)
	}
	if cfg.BatchSize != 42 {
		t.Fatalf("expected env override 42, got %d", cfg.BatchSize)
	}
	if cfg.BoundaryTolerance != 2.5 {
		t.Fatalf("expected tolerance 2.5, got %v", cfg.BoundaryTolerance)
	}
}

func TestLoadConfigRejectsBadEnvValues(t *testing.T) {
	t.Setenv("BACKFILL_BATCH_SIZE", "not-a-number")
	t.Setenv("BACKFILL_BOUNDARY_TOLERANCE", "-3")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.BatchSize != 100 {
		t.Fatalf("expected default batch size kept, got %d", cfg.BatchSize)
	}
	if cfg.BoundaryTolerance != 1.0 {
		t.Fatalf("expected default tolerance kept, got %v", cfg.BoundaryTolerance)
	}
}
