package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"rabbit-launchpad/internal/domain"
	"rabbit-launchpad/internal/storage/memory"
)

type failingSink struct{ err error }

func (s failingSink) Publish(context.Context, domain.Event) error { return s.err }

type countingSink struct{ n int }

func (s *countingSink) Publish(context.Context, domain.Event) error {
	s.n++
	return nil
}

func TestStoreSink_PersistsEvents(t *testing.T) {
	store := memory.NewEventStore()
	sink := NewStoreSink(store)
	ctx := context.Background()

	err := sink.Publish(ctx, domain.Event{
		Type:      domain.EventAssetCreated,
		AssetID:   "asset1",
		Timestamp: 1000,
	})
	require.NoError(t, err)

	events, err := store.GetByAsset(ctx, "asset1", 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestMultiSink_FanOutAndErrorCollection(t *testing.T) {
	counting := &countingSink{}
	boom := errors.New("boom")
	sink := NewMultiSink(nil, counting, failingSink{err: boom}, nil, counting)

	err := sink.Publish(context.Background(), domain.Event{
		Type:    domain.EventTokensPurchased,
		AssetID: "asset1",
	})
	require.ErrorIs(t, err, boom)

	// Both healthy sinks still received the event.
	require.Equal(t, 2, counting.n)
}
