package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	statistics "energy-import/internal/statistics/domain"
)

// StatisticStore is an in-memory statistics store for demo/testing.
type StatisticStore struct {
	mu     sync.RWMutex
	points map[string][]statistics.Point
	meta   map[string]statistics.Metadata
	keys   map[string]string
}

// NewStatisticStore constructs an empty store.
func NewStatisticStore() *StatisticStore {
	return &StatisticStore{
		points: make(map[string][]statistics.Point),
		meta:   make(map[string]statistics.Metadata),
		keys:   make(map[string]string),
	}
}

// RegisterStatistic maps a logical source key to a statistic id, the way
// the host's entity registry would.
func (s *StatisticStore) RegisterStatistic(sourceKey, statisticID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[sourceKey] = statisticID
}

// ResolveStatisticID maps a logical source key to a statistic id.
func (s *StatisticStore) ResolveStatisticID(ctx context.Context, sourceKey string) (string, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.keys[sourceKey]
	if !ok {
		return "", statistics.ErrStatisticNotFound
	}
	return id, nil
}

// PointBefore returns the most recent point strictly before the instant.
func (s *StatisticStore) PointBefore(ctx context.Context, statisticID string, before time.Time) (*statistics.Point, error) {
	_ = ctx
	if statisticID == "" {
		return nil, statistics.ErrEmptyStatisticID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *statistics.Point
	for _, point := range s.points[statisticID] {
		if !point.Start.Before(before) {
			continue
		}
		if found == nil || point.Start.After(found.Start) {
			p := point
			found = &p
		}
	}
	return found, nil
}

// PointsAfter lists up to limit points strictly after the instant.
func (s *StatisticStore) PointsAfter(ctx context.Context, statisticID string, after time.Time, limit int) ([]statistics.Point, error) {
	_ = ctx
	if statisticID == "" {
		return nil, statistics.ErrEmptyStatisticID
	}
	if limit <= 0 {
		limit = 1
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []statistics.Point
	for _, point := range s.points[statisticID] {
		if point.Start.After(after) {
			result = append(result, point)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Start.Before(result[j].Start) })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// ListRange lists points with start in [startInclusive, endExclusive).
func (s *StatisticStore) ListRange(ctx context.Context, statisticID string, startInclusive, endExclusive time.Time) ([]statistics.Point, error) {
	_ = ctx
	if statisticID == "" {
		return nil, statistics.ErrEmptyStatisticID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []statistics.Point
	for _, point := range s.points[statisticID] {
		if point.Start.Before(startInclusive) || !point.Start.Before(endExclusive) {
			continue
		}
		result = append(result, point)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Start.Before(result[j].Start) })
	return result, nil
}

// ImportBatch upserts metadata and points.
func (s *StatisticStore) ImportBatch(ctx context.Context, meta statistics.Metadata, points []statistics.Point) error {
	_ = ctx
	if err := meta.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta[meta.StatisticID] = meta
	existing := s.points[meta.StatisticID]
	for _, point := range points {
		replaced := false
		for i := range existing {
			if existing[i].Start.Equal(point.Start) {
				existing[i] = point
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, point)
		}
	}
	sort.Slice(existing, func(i, j int) bool { return existing[i].Start.Before(existing[j].Start) })
	s.points[meta.StatisticID] = existing
	return nil
}

// Purge deletes points with start in [startInclusive, endExclusive).
func (s *StatisticStore) Purge(ctx context.Context, statisticID string, startInclusive, endExclusive time.Time) error {
	_ = ctx
	if statisticID == "" {
		return statistics.ErrEmptyStatisticID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.points[statisticID][:0]
	for _, point := range s.points[statisticID] {
		if point.Start.Before(startInclusive) || !point.Start.Before(endExclusive) {
			kept = append(kept, point)
		}
	}
	s.points[statisticID] = kept
	return nil
}

// UpdateSum rewrites the cumulative sum of one stored point.
func (s *StatisticStore) UpdateSum(ctx context.Context, statisticID string, start time.Time, sum float64) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, point := range s.points[statisticID] {
		if point.Start.Equal(start) {
			s.points[statisticID][i].Sum = sum
			return nil
		}
	}
	return statistics.ErrStatisticNotFound
}

// Metadata returns stored metadata for a statistic id, if any.
func (s *StatisticStore) Metadata(statisticID string) (statistics.Metadata, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	meta, ok := s.meta[statisticID]
	return meta, ok
}
