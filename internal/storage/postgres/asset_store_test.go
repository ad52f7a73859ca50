package postgres_test

import (
	"context"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"rabbit-launchpad/internal/domain"
	"rabbit-launchpad/internal/storage"
	"rabbit-launchpad/internal/storage/postgres"
)

func testAsset(id string, createdAt int64) *domain.Asset {
	return domain.NewAsset(id, "Rabbit", "RAB", "creator1", createdAt)
}

func TestAssetStore_InsertAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := postgres.NewAssetStore(pool)
	ctx := context.Background()

	a := testAsset("asset1", 1000)
	a.SoldSupply = uint256.MustFromDecimal("123456789012345678901234567890")
	a.TotalRaised = uint256.MustFromDecimal("987654321098765432109876543210")
	require.NoError(t, s.Insert(ctx, a))

	got, err := s.GetByID(ctx, "asset1")
	require.NoError(t, err)
	require.Equal(t, a, got)
}

func TestAssetStore_InsertDuplicate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := postgres.NewAssetStore(pool)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, testAsset("asset1", 1000)))
	require.ErrorIs(t, s.Insert(ctx, testAsset("asset1", 2000)), storage.ErrDuplicateKey)
}

func TestAssetStore_GetNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := postgres.NewAssetStore(pool)
	_, err := s.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAssetStore_Update(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := postgres.NewAssetStore(pool)
	ctx := context.Background()

	a := testAsset("asset1", 1000)
	require.NoError(t, s.Insert(ctx, a))

	a.SoldSupply = uint256.MustFromDecimal("500000000000000000000")
	a.Graduated = true
	a.GraduatedAt = 5000
	require.NoError(t, s.Update(ctx, a))

	got, err := s.GetByID(ctx, "asset1")
	require.NoError(t, err)
	require.Equal(t, a.SoldSupply, got.SoldSupply)
	require.True(t, got.Graduated)
	require.EqualValues(t, 5000, got.GraduatedAt)

	require.ErrorIs(t, s.Update(ctx, testAsset("missing", 1)), storage.ErrNotFound)
}

func TestAssetStore_ListAndCount(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := postgres.NewAssetStore(pool)
	ctx := context.Background()

	grad := testAsset("older", 1000)
	grad.Graduated = true
	require.NoError(t, s.Insert(ctx, grad))
	require.NoError(t, s.Insert(ctx, testAsset("newer", 3000)))
	require.NoError(t, s.Insert(ctx, testAsset("middle", 2000)))

	all, err := s.List(ctx, storage.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "newer", all[0].ID)
	require.Equal(t, "older", all[2].ID)

	graduated := true
	filtered, err := s.List(ctx, storage.ListFilter{Graduated: &graduated})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	require.Equal(t, "older", filtered[0].ID)

	page, err := s.List(ctx, storage.ListFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "middle", page[0].ID)

	n, err := s.Count(ctx, storage.ListFilter{})
	require.NoError(t, err)
	require.EqualValues(t, 3, n)

	n, err = s.Count(ctx, storage.ListFilter{Graduated: &graduated})
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}
