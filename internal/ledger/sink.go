package ledger

import (
	"context"
	"errors"
	"log"

	"rabbit-launchpad/internal/domain"
	"rabbit-launchpad/internal/storage"
)

// StoreSink persists events to an EventStore.
type StoreSink struct {
	store storage.EventStore
}

// NewStoreSink creates an EventSink backed by an EventStore.
func NewStoreSink(store storage.EventStore) *StoreSink {
	return &StoreSink{store: store}
}

// Publish appends the event to the journal.
func (s *StoreSink) Publish(ctx context.Context, e domain.Event) error {
	return s.store.Insert(ctx, &e)
}

var _ domain.EventSink = (*StoreSink)(nil)

// MultiSink fans one event out to several sinks. Every sink sees every
// event; failures are joined and returned after all sinks ran.
type MultiSink struct {
	sinks  []domain.EventSink
	logger *log.Logger
}

// NewMultiSink creates a fan-out sink. Nil entries are skipped.
func NewMultiSink(logger *log.Logger, sinks ...domain.EventSink) *MultiSink {
	if logger == nil {
		logger = log.Default()
	}
	var active []domain.EventSink
	for _, s := range sinks {
		if s != nil {
			active = append(active, s)
		}
	}
	return &MultiSink{sinks: active, logger: logger}
}

// Publish delivers the event to every sink.
func (m *MultiSink) Publish(ctx context.Context, e domain.Event) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Publish(ctx, e); err != nil {
			m.logger.Printf("[sink] publish failed: type=%s asset=%s err=%v", e.Type, e.AssetID, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ domain.EventSink = (*MultiSink)(nil)
