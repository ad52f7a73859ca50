package memory

import (
	"context"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"rabbit-launchpad/internal/domain"
	"rabbit-launchpad/internal/storage"
)

func testAsset(id string, createdAt int64) *domain.Asset {
	return domain.NewAsset(id, "Rabbit", "RAB", "creator1", createdAt)
}

func TestAssetStore_InsertAndGet(t *testing.T) {
	s := NewAssetStore()
	ctx := context.Background()

	a := testAsset("asset1", 1000)
	require.NoError(t, s.Insert(ctx, a))

	got, err := s.GetByID(ctx, "asset1")
	require.NoError(t, err)
	require.Equal(t, a, got)
}

func TestAssetStore_InsertDuplicate(t *testing.T) {
	s := NewAssetStore()
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, testAsset("asset1", 1000)))
	require.ErrorIs(t, s.Insert(ctx, testAsset("asset1", 2000)), storage.ErrDuplicateKey)
}

func TestAssetStore_InsertInvalid(t *testing.T) {
	s := NewAssetStore()
	ctx := context.Background()

	require.ErrorIs(t, s.Insert(ctx, nil), storage.ErrInvalidInput)
	require.ErrorIs(t, s.Insert(ctx, testAsset("", 1000)), storage.ErrInvalidInput)
}

func TestAssetStore_GetNotFound(t *testing.T) {
	s := NewAssetStore()
	_, err := s.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAssetStore_Update(t *testing.T) {
	s := NewAssetStore()
	ctx := context.Background()

	a := testAsset("asset1", 1000)
	require.NoError(t, s.Insert(ctx, a))

	a.SoldSupply = uint256.NewInt(500)
	a.Graduated = true
	require.NoError(t, s.Update(ctx, a))

	got, err := s.GetByID(ctx, "asset1")
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(500), got.SoldSupply)
	require.True(t, got.Graduated)
}

func TestAssetStore_UpdateNotFound(t *testing.T) {
	s := NewAssetStore()
	err := s.Update(context.Background(), testAsset("missing", 1000))
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAssetStore_StoresCopies(t *testing.T) {
	s := NewAssetStore()
	ctx := context.Background()

	a := testAsset("asset1", 1000)
	require.NoError(t, s.Insert(ctx, a))

	// Mutating the inserted record must not affect the stored one.
	a.SoldSupply.SetUint64(999)

	got, err := s.GetByID(ctx, "asset1")
	require.NoError(t, err)
	require.True(t, got.SoldSupply.IsZero())
}

func TestAssetStore_ListOrderAndFilter(t *testing.T) {
	s := NewAssetStore()
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
	require.Equal(t, "middle", all[1].ID)
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
}

func TestAssetStore_Count(t *testing.T) {
	s := NewAssetStore()
	ctx := context.Background()

	grad := testAsset("a", 1000)
	grad.Graduated = true
	require.NoError(t, s.Insert(ctx, grad))
	require.NoError(t, s.Insert(ctx, testAsset("b", 2000)))

	n, err := s.Count(ctx, storage.ListFilter{})
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	graduated := false
	n, err = s.Count(ctx, storage.ListFilter{Graduated: &graduated})
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}
