package memory

import (
	"context"
	"sort"
	"sync"

	"rabbit-launchpad/internal/domain"
	"rabbit-launchpad/internal/storage"
)

// TradePointStore is an in-memory implementation of storage.TradePointStore.
type TradePointStore struct {
	mu     sync.RWMutex
	points []*domain.TradePoint
}

// NewTradePointStore creates a new in-memory trade point store.
func NewTradePointStore() *TradePointStore {
	return &TradePointStore{}
}

// InsertBulk adds multiple points.
func (s *TradePointStore) InsertBulk(_ context.Context, points []*domain.TradePoint) error {
	for _, p := range points {
		if p == nil || p.AssetID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range points {
		pointCopy := *p
		s.points = append(s.points, &pointCopy)
	}
	return nil
}

// GetByAsset retrieves all points for an asset, ordered by timestamp ASC.
func (s *TradePointStore) GetByAsset(_ context.Context, assetID string) ([]*domain.TradePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradePoint
	for _, p := range s.points {
		if p.AssetID == assetID {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}

	sortPoints(result)
	return result, nil
}

// GetByTimeRange retrieves points for an asset within [start, end] (inclusive).
func (s *TradePointStore) GetByTimeRange(_ context.Context, assetID string, start, end int64) ([]*domain.TradePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradePoint
	for _, p := range s.points {
		if p.AssetID == assetID && p.TimestampMs >= start && p.TimestampMs <= end {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}

	sortPoints(result)
	return result, nil
}

func sortPoints(points []*domain.TradePoint) {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].TimestampMs < points[j].TimestampMs
	})
}

// Verify interface compliance at compile time.
var _ storage.TradePointStore = (*TradePointStore)(nil)
