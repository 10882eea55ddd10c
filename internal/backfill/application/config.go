package application

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	backfill "energy-import/internal/backfill/domain"
)

// Config holds run defaults for the backfill engine.
type Config struct {
	DefaultTimezone   string  `yaml:"default_timezone"`
	BatchSize         int     `yaml:"batch_size"`
	BoundaryTolerance float64 `yaml:"boundary_tolerance_kwh"`
	Series            string  `yaml:"series"`
}

// LoadConfig loads defaults, an optional YAML file named by
// BACKFILL_CONFIG, then env overrides, in that order.
func LoadConfig() (Config, error) {
	cfg := Config{
		DefaultTimezone:   "America/Denver",
		BatchSize:         100,
		BoundaryTolerance: backfill.DefaultBoundaryTolerance,
		Series:            "autogen.http",
	}

	if path := os.Getenv("BACKFILL_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if tz := os.Getenv("BACKFILL_TIMEZONE"); tz != "" {
		cfg.DefaultTimezone = tz
	}
	if raw := os.Getenv("BACKFILL_BATCH_SIZE"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			cfg.BatchSize = parsed
		}
	}
	if raw := os.Getenv("BACKFILL_BOUNDARY_TOLERANCE"); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil && parsed >= 0 {
			cfg.BoundaryTolerance = parsed
		}
	}
	if series := os.Getenv("BACKFILL_SERIES"); series != "" {
		cfg.Series = series
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.BoundaryTolerance < 0 {
		cfg.BoundaryTolerance = backfill.DefaultBoundaryTolerance
	}
	return cfg, nil
}
