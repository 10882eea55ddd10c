package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	statistics "energy-import/internal/statistics/domain"
)

const (
	defaultStatisticTable = "statistics"
	defaultMetaTable      = "statistics_meta"
)

// StatisticStore is a Postgres implementation of the host's long-term
// statistics store.
type StatisticStore struct {
	db        *sql.DB
	table     string
	metaTable string
}

// StoreOption configures the store.
type StoreOption func(*StatisticStore)

// WithTable overrides the default statistics table name.
func WithTable(table string) StoreOption {
	return func(s *StatisticStore) {
		if table != "" {
			s.table = table
		}
	}
}

// WithMetaTable overrides the default metadata table name.
func WithMetaTable(table string) StoreOption {
	return func(s *StatisticStore) {
		if table != "" {
			s.metaTable = table
		}
	}
}

// NewStatisticStore creates a store using default table names.
func NewStatisticStore(db *sql.DB, opts ...StoreOption) *StatisticStore {
	store := &StatisticStore{
		db:        db,
		table:     defaultStatisticTable,
		metaTable: defaultMetaTable,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// PointBefore fetches the most recent point strictly before the instant.
// The bound is explicit so a point written after the queried window can
// never be picked up as a baseline candidate.
func (s *StatisticStore) PointBefore(ctx context.Context, statisticID string, before time.Time) (*statistics.Point, error) {
	if statisticID == "" {
		return nil, statistics.ErrEmptyStatisticID
	}
	if before.IsZero() {
		return nil, statistics.ErrInvalidRange
	}

	query := fmt.Sprintf(`
SELECT start_ts, sum, state
FROM %s
WHERE statistic_id = $1
	AND start_ts < $2
ORDER BY start_ts DESC
LIMIT 1`, s.table)

	point, err := scanPoint(s.db.QueryRowContext(ctx, query, statisticID, before))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &point, nil
}

// PointsAfter lists up to limit points strictly after the instant, in
// ascending start order.
func (s *StatisticStore) PointsAfter(ctx context.Context, statisticID string, after time.Time, limit int) ([]statistics.Point, error) {
	if statisticID == "" {
		return nil, statistics.ErrEmptyStatisticID
	}
	if limit <= 0 {
		limit = 1
	}

	query := fmt.Sprintf(`
SELECT start_ts, sum, state
FROM %s
WHERE statistic_id = $1
	AND start_ts > $2
ORDER BY start_ts ASC
LIMIT $3`, s.table)

	rows, err := s.db.QueryContext(ctx, query, statisticID, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []statistics.Point
	for rows.Next() {
		point, err := scanPoint(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, point)
	}
	return result, rows.Err()
}

// ListRange lists points with start in [startInclusive, endExclusive).
func (s *StatisticStore) ListRange(ctx context.Context, statisticID string, startInclusive, endExclusive time.Time) ([]statistics.Point, error) {
	if statisticID == "" {
		return nil, statistics.ErrEmptyStatisticID
	}
	if startInclusive.IsZero() || !endExclusive.After(startInclusive) {
		return nil, statistics.ErrInvalidRange
	}

	query := fmt.Sprintf(`
SELECT start_ts, sum, state
FROM %s
WHERE statistic_id = $1
	AND start_ts >= $2
	AND start_ts < $3
ORDER BY start_ts ASC`, s.table)

	rows, err := s.db.QueryContext(ctx, query, statisticID, startInclusive, endExclusive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []statistics.Point
	for rows.Next() {
		point, err := scanPoint(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, point)
	}
	return result, rows.Err()
}

// ImportBatch upserts metadata and a batch of points in one transaction.
func (s *StatisticStore) ImportBatch(ctx context.Context, meta statistics.Metadata, points []statistics.Point) error {
	if err := meta.Validate(); err != nil {
		return err
	}
	if len(points) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	metaQuery := fmt.Sprintf(`
INSERT INTO %s (statistic_id, name, unit, has_sum, has_mean)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (statistic_id)
DO UPDATE SET
	name = EXCLUDED.name,
	unit = EXCLUDED.unit,
	has_sum = EXCLUDED.has_sum,
	has_mean = EXCLUDED.has_mean`, s.metaTable)
	if _, err := tx.ExecContext(ctx, metaQuery, meta.StatisticID, meta.Name, meta.Unit, meta.HasSum, meta.HasMean); err != nil {
		return err
	}

	pointQuery := fmt.Sprintf(`
INSERT INTO %s (statistic_id, start_ts, sum, state)
VALUES ($1, $2, $3, $4)
ON CONFLICT (statistic_id, start_ts)
DO UPDATE SET
	sum = EXCLUDED.sum,
	state = EXCLUDED.state,
	updated_at = NOW()`, s.table)
	for _, point := range points {
		if _, err := tx.ExecContext(ctx, pointQuery, meta.StatisticID, point.Start.UTC(), point.Sum, point.State); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Purge deletes points with start in [startInclusive, endExclusive).
func (s *StatisticStore) Purge(ctx context.Context, statisticID string, startInclusive, endExclusive time.Time) error {
	if statisticID == "" {
		return statistics.ErrEmptyStatisticID
	}
	if startInclusive.IsZero() || !endExclusive.After(startInclusive) {
		return statistics.ErrInvalidRange
	}

	query := fmt.Sprintf(`
DELETE FROM %s
WHERE statistic_id = $1
	AND start_ts >= $2
	AND start_ts < $3`, s.table)

	_, err := s.db.ExecContext(ctx, query, statisticID, startInclusive, endExclusive)
	return err
}

// UpdateSum rewrites the cumulative sum of one stored point.
func (s *StatisticStore) UpdateSum(ctx context.Context, statisticID string, start time.Time, sum float64) error {
	if statisticID == "" {
		return statistics.ErrEmptyStatisticID
	}

	query := fmt.Sprintf(`
UPDATE %s
SET sum = $3, updated_at = NOW()
WHERE statistic_id = $1
	AND start_ts = $2`, s.table)

	result, err := s.db.ExecContext(ctx, query, statisticID, start.UTC(), sum)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return statistics.ErrStatisticNotFound
	}
	return nil
}

// ResolveStatisticID maps a logical source key to a registered statistic
// id. Absence yields ErrStatisticNotFound.
func (s *StatisticStore) ResolveStatisticID(ctx context.Context, sourceKey string) (string, error) {
	if sourceKey == "" {
		return "", statistics.ErrEmptyStatisticID
	}

	query := fmt.Sprintf(`
SELECT statistic_id
FROM %s
WHERE source_key = $1
LIMIT 1`, s.metaTable)

	var statisticID string
	err := s.db.QueryRowContext(ctx, query, sourceKey).Scan(&statisticID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", statistics.ErrStatisticNotFound
	}
	if err != nil {
		return "", err
	}
	return statisticID, nil
}

func scanPoint(scanner interface{ Scan(dest ...any) error }) (statistics.Point, error) {
	var (
		start time.Time
		sum   sql.NullFloat64
		state sql.NullFloat64
	)
	if err := scanner.Scan(&start, &sum, &state); err != nil {
		return statistics.Point{}, err
	}
	return statistics.Point{
		Start: start.UTC(),
		Sum:   sum.Float64,
		State: state.Float64,
	}, nil
}
