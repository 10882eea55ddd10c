package diagnostics

import (
	"net/url"

	"energy-import/internal/backfill/application"
)

// Snapshot is an operator-facing view of the engine's effective
// configuration and recent raw store activity. Credentials never
// appear in it.
type Snapshot struct {
	Timezone          string   `json:"timezone"`
	Series            string   `json:"series"`
	BatchSize         int      `json:"batch_size"`
	BoundaryTolerance float64  `json:"boundary_tolerance_kwh"`
	SourceURL         string   `json:"source_url"`
	SourceDatabase    string   `json:"source_database"`
	RecentQueries     []string `json:"recent_queries"`
}

// QueryHistory exposes recently issued raw store queries.
type QueryHistory interface {
	History() []string
}

// Build assembles a snapshot from the engine config and source client.
func Build(cfg application.Config, sourceURL, database string, history QueryHistory) Snapshot {
	snapshot := Snapshot{
		Timezone:          cfg.DefaultTimezone,
		Series:            cfg.Series,
		BatchSize:         cfg.BatchSize,
		BoundaryTolerance: cfg.BoundaryTolerance,
		SourceURL:         redactURL(sourceURL),
		SourceDatabase:    database,
	}
	if history != nil {
		snapshot.RecentQueries = history.History()
	}
	return snapshot
}

func redactURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	parsed.User = nil
	return parsed.String()
}
