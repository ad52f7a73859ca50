package memory

import (
	"context"
	"sort"
	"sync"

	"rabbit-launchpad/internal/domain"
	"rabbit-launchpad/internal/storage"
)

// EventStore is an in-memory implementation of storage.EventStore.
type EventStore struct {
	mu     sync.RWMutex
	events []*domain.Event // append order, not necessarily timestamp order
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{}
}

// Insert appends an event to the journal.
func (s *EventStore) Insert(_ context.Context, e *domain.Event) error {
	if e == nil || e.AssetID == "" || e.Type == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	eventCopy := *e
	s.events = append(s.events, &eventCopy)
	return nil
}

// GetByAsset retrieves up to limit events for an asset, ordered by
// timestamp ASC.
func (s *EventStore) GetByAsset(_ context.Context, assetID string, limit int) ([]*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Event
	for _, e := range s.events {
		if e.AssetID == assetID {
			eventCopy := *e
			result = append(result, &eventCopy)
		}
	}

	sortEvents(result)
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

// GetByTimeRange retrieves events for an asset within [start, end] (inclusive).
func (s *EventStore) GetByTimeRange(_ context.Context, assetID string, start, end int64) ([]*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Event
	for _, e := range s.events {
		if e.AssetID == assetID && e.Timestamp >= start && e.Timestamp <= end {
			eventCopy := *e
			result = append(result, &eventCopy)
		}
	}

	sortEvents(result)
	return result, nil
}

func sortEvents(events []*domain.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp < events[j].Timestamp
	})
}

// Verify interface compliance at compile time.
var _ storage.EventStore = (*EventStore)(nil)
