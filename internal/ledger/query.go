package ledger

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"rabbit-launchpad/internal/domain"
	"rabbit-launchpad/internal/fixedpoint"
	"rabbit-launchpad/internal/storage"
)

// AssetInfo is the read-side projection of a market.
type AssetInfo struct {
	Asset *domain.Asset

	// CurrentPrice is the spot price in wei per whole token. Nil for
	// graduated assets, whose price is no longer set by the curve.
	CurrentPrice *uint256.Int

	// MarketCap is CurrentPrice scaled to the full token supply, in wei.
	MarketCap *uint256.Int

	// ProgressBps is the raise progress toward graduation in basis
	// points, capped at 10000.
	ProgressBps uint64

	GraduationReady bool
}

// GetPrice returns the current spot price for an asset.
func (l *Ledger) GetPrice(ctx context.Context, assetID string) (*uint256.Int, error) {
	asset, err := l.loadAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if asset.Graduated {
		return nil, fmt.Errorf("price %s: %w", assetID, ErrAlreadyGraduated)
	}
	price, err := l.params.Price(asset.SoldSupply)
	if err != nil {
		return nil, fmt.Errorf("price %s: %w", assetID, err)
	}
	return price, nil
}

// GetAssetInfo returns the market record with derived pricing fields.
func (l *Ledger) GetAssetInfo(ctx context.Context, assetID string) (*AssetInfo, error) {
	asset, err := l.loadAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	return l.buildInfo(asset), nil
}

// ListAssets returns markets matching filter with derived pricing fields,
// newest first.
func (l *Ledger) ListAssets(ctx context.Context, filter storage.ListFilter) ([]*AssetInfo, error) {
	assets, err := l.assets.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	infos := make([]*AssetInfo, 0, len(assets))
	for _, a := range assets {
		infos = append(infos, l.buildInfo(a))
	}
	return infos, nil
}

// CountAssets returns the number of markets matching filter.
func (l *Ledger) CountAssets(ctx context.Context, filter storage.ListFilter) (int64, error) {
	return l.assets.Count(ctx, filter)
}

func (l *Ledger) buildInfo(asset *domain.Asset) *AssetInfo {
	info := &AssetInfo{
		Asset:           asset,
		ProgressBps:     l.progressBps(asset),
		GraduationReady: !asset.TotalRaised.Lt(l.params.GrossRaiseTarget),
	}
	if asset.Graduated {
		return info
	}

	price := l.spotPrice(asset)
	if price == nil {
		return info
	}
	info.CurrentPrice = price

	mcap, err := fixedpoint.MulDiv(price, l.params.TotalSupply, fixedpoint.Scale)
	if err != nil {
		l.logger.Printf("[ledger] market cap overflow for %s", asset.ID)
		return info
	}
	info.MarketCap = mcap
	return info
}

// Quote is the predicted outcome of a trade, computed without mutating any
// state. Actual receipts can differ if other trades land first.
type Quote struct {
	AssetID     string
	Side        string
	Payment     *uint256.Int
	Tokens      *uint256.Int
	PlatformFee *uint256.Int
	CreatorFee  *uint256.Int
	NetAmount   *uint256.Int
	PriceAfter  *uint256.Int
}

// QuoteBuy prices a purchase against the current curve state.
func (l *Ledger) QuoteBuy(ctx context.Context, assetID string, payment *uint256.Int) (*Quote, error) {
	asset, err := l.loadAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if asset.Graduated {
		return nil, fmt.Errorf("quote buy %s: %w", assetID, ErrAlreadyGraduated)
	}
	if payment == nil || payment.IsZero() {
		return nil, fmt.Errorf("quote buy %s: %w", assetID, ErrInvalidAmount)
	}

	platformFee, creatorFee, net, err := l.params.FeeBreakdown(payment)
	if err != nil {
		return nil, fmt.Errorf("quote buy %s: %w", assetID, err)
	}
	tokens, err := l.params.TokensForPayment(asset.SoldSupply, net)
	if err != nil {
		return nil, fmt.Errorf("quote buy %s: %w", assetID, err)
	}
	if tokens.IsZero() {
		return nil, fmt.Errorf("quote buy %s: %w", assetID, ErrInsufficientPurchase)
	}

	supplyAfter := new(uint256.Int).Add(asset.SoldSupply, tokens)
	priceAfter, err := l.params.Price(supplyAfter)
	if err != nil {
		priceAfter = nil
	}
	return &Quote{
		AssetID:     assetID,
		Side:        domain.TradeSideBuy,
		Payment:     new(uint256.Int).Set(payment),
		Tokens:      tokens,
		PlatformFee: platformFee,
		CreatorFee:  creatorFee,
		NetAmount:   net,
		PriceAfter:  priceAfter,
	}, nil
}

// QuoteSell prices a sale against the current curve state.
func (l *Ledger) QuoteSell(ctx context.Context, assetID string, tokens *uint256.Int) (*Quote, error) {
	asset, err := l.loadAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if asset.Graduated {
		return nil, fmt.Errorf("quote sell %s: %w", assetID, ErrAlreadyGraduated)
	}
	if tokens == nil || tokens.IsZero() || tokens.Gt(asset.SoldSupply) {
		return nil, fmt.Errorf("quote sell %s: %w", assetID, ErrInvalidAmount)
	}

	proceeds, err := l.params.SaleProceeds(asset.SoldSupply, tokens)
	if err != nil {
		return nil, fmt.Errorf("quote sell %s: %w", assetID, err)
	}
	platformFee, creatorFee, net, err := l.params.FeeBreakdown(proceeds)
	if err != nil {
		return nil, fmt.Errorf("quote sell %s: %w", assetID, err)
	}

	supplyAfter := new(uint256.Int).Sub(asset.SoldSupply, tokens)
	priceAfter, err := l.params.Price(supplyAfter)
	if err != nil {
		priceAfter = nil
	}
	return &Quote{
		AssetID:     assetID,
		Side:        domain.TradeSideSell,
		Payment:     proceeds,
		Tokens:      new(uint256.Int).Set(tokens),
		PlatformFee: platformFee,
		CreatorFee:  creatorFee,
		NetAmount:   net,
		PriceAfter:  priceAfter,
	}, nil
}

func (l *Ledger) progressBps(asset *domain.Asset) uint64 {
	bps, err := fixedpoint.MulDiv(asset.TotalRaised, uint256.NewInt(10_000), l.params.GrossRaiseTarget)
	if err != nil {
		return 0
	}
	if bps.GtUint64(10_000) {
		return 10_000
	}
	return bps.Uint64()
}
