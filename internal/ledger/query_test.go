package ledger

import (
	"context"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"rabbit-launchpad/internal/storage"
)

func TestGetPrice_FreshMarket(t *testing.T) {
	f := newFixture(t)
	id := f.createAsset(t)

	price, err := f.ledger.GetPrice(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, f.params.InitialPrice, price)
}

func TestGetPrice_RisesWithPurchases(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.createAsset(t)

	before, err := f.ledger.GetPrice(ctx, id)
	require.NoError(t, err)

	_, err = f.ledger.Buy(ctx, f.buyer, id, uint256.MustFromDecimal("1000000000000000000"))
	require.NoError(t, err)

	after, err := f.ledger.GetPrice(ctx, id)
	require.NoError(t, err)
	require.True(t, before.Lt(after))
}

func TestGetPrice_UnknownAsset(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.GetPrice(context.Background(), "missing")
	require.ErrorIs(t, err, ErrAssetNotFound)
}

func TestGetAssetInfo_Progress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.createAsset(t)

	info, err := f.ledger.GetAssetInfo(ctx, id)
	require.NoError(t, err)
	require.Zero(t, info.ProgressBps)
	require.False(t, info.GraduationReady)
	require.Equal(t, f.params.InitialPrice, info.CurrentPrice)
	require.NotNil(t, info.MarketCap)

	// Initial market cap: initial price across the full supply.
	expectedCap := uint256.MustFromDecimal("1000000000000000000") // 1e9 tokens at 1e9 wei
	require.Equal(t, expectedCap, info.MarketCap)

	_, err = f.ledger.Buy(ctx, f.buyer, id, uint256.MustFromDecimal("2000000000000000000"))
	require.NoError(t, err)

	info, err = f.ledger.GetAssetInfo(ctx, id)
	require.NoError(t, err)
	// Net 1.975 of a 10.0 target: 1975 bps.
	require.EqualValues(t, 1975, info.ProgressBps)
}

func TestListAssets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id1 := f.createAsset(t)
	id2 := f.createAsset(t)

	infos, err := f.ledger.ListAssets(ctx, storage.ListFilter{})
	require.NoError(t, err)
	require.Len(t, infos, 2)
	// Newest first.
	require.Equal(t, id2, infos[0].Asset.ID)
	require.Equal(t, id1, infos[1].Asset.ID)

	n, err := f.ledger.CountAssets(ctx, storage.ListFilter{})
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	graduated := true
	infos, err = f.ledger.ListAssets(ctx, storage.ListFilter{Graduated: &graduated})
	require.NoError(t, err)
	require.Empty(t, infos)
}
