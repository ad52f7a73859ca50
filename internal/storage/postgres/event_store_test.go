package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"rabbit-launchpad/internal/domain"
	"rabbit-launchpad/internal/storage"
	"rabbit-launchpad/internal/storage/postgres"
)

func testEvent(assetID string, typ domain.EventType, ts int64) *domain.Event {
	return &domain.Event{
		Type:          typ,
		AssetID:       assetID,
		Actor:         "buyer1",
		PaymentAmount: "1000000000000000",
		TokenAmount:   "999000000000000000000",
		Timestamp:     ts,
	}
}

func TestEventStore_InsertAndGetByAsset(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := postgres.NewEventStore(pool)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, testEvent("asset1", domain.EventAssetCreated, 1000)))
	require.NoError(t, s.Insert(ctx, testEvent("asset1", domain.EventTokensPurchased, 2000)))
	require.NoError(t, s.Insert(ctx, testEvent("asset2", domain.EventAssetCreated, 1500)))

	events, err := s.GetByAsset(ctx, "asset1", 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, domain.EventAssetCreated, events[0].Type)
	require.Equal(t, domain.EventTokensPurchased, events[1].Type)
	require.Equal(t, "buyer1", events[0].Actor)
	require.Equal(t, "999000000000000000000", events[1].TokenAmount)
}

func TestEventStore_InsertInvalid(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := postgres.NewEventStore(pool)
	ctx := context.Background()

	require.ErrorIs(t, s.Insert(ctx, nil), storage.ErrInvalidInput)
	require.ErrorIs(t, s.Insert(ctx, testEvent("", domain.EventAssetCreated, 1)), storage.ErrInvalidInput)
}

func TestEventStore_GetByAssetLimit(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := postgres.NewEventStore(pool)
	ctx := context.Background()

	for i := int64(0); i < 5; i++ {
		require.NoError(t, s.Insert(ctx, testEvent("asset1", domain.EventTokensPurchased, 1000+i)))
	}

	events, err := s.GetByAsset(ctx, "asset1", 3)
	require.NoError(t, err)
	require.Len(t, events, 3)
	require.EqualValues(t, 1000, events[0].Timestamp)
}

func TestEventStore_GetByTimeRange(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := postgres.NewEventStore(pool)
	ctx := context.Background()

	for _, ts := range []int64{1000, 2000, 3000, 4000} {
		require.NoError(t, s.Insert(ctx, testEvent("asset1", domain.EventTokensPurchased, ts)))
	}

	events, err := s.GetByTimeRange(ctx, "asset1", 2000, 3000)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.EqualValues(t, 2000, events[0].Timestamp)
	require.EqualValues(t, 3000, events[1].Timestamp)
}
