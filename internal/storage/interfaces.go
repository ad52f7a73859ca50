package storage

import (
	"context"

	"rabbit-launchpad/internal/domain"
)

// ListFilter narrows List results. A nil Graduated matches every asset.
type ListFilter struct {
	Graduated *bool
	Limit     int
	Offset    int
}

// AssetStore provides access to asset market records.
type AssetStore interface {
	// Insert adds a new asset. Returns ErrDuplicateKey if asset_id exists.
	Insert(ctx context.Context, a *domain.Asset) error

	// GetByID retrieves an asset by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, assetID string) (*domain.Asset, error)

	// Update overwrites the mutable fields of an existing asset.
	// Returns ErrNotFound if asset_id does not exist.
	Update(ctx context.Context, a *domain.Asset) error

	// List retrieves assets matching filter, ordered by created_at DESC.
	List(ctx context.Context, filter ListFilter) ([]*domain.Asset, error)

	// Count returns the number of assets matching filter.
	Count(ctx context.Context, filter ListFilter) (int64, error)
}

// EventStore provides access to the append-only event journal.
type EventStore interface {
	// Insert appends an event to the journal.
	Insert(ctx context.Context, e *domain.Event) error

	// GetByAsset retrieves up to limit events for an asset, ordered by
	// timestamp ASC. A non-positive limit returns all events.
	GetByAsset(ctx context.Context, assetID string, limit int) ([]*domain.Event, error)

	// GetByTimeRange retrieves events for an asset within [start, end]
	// (inclusive, Unix milliseconds), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, assetID string, start, end int64) ([]*domain.Event, error)
}

// TradePointStore provides access to trade analytics points.
type TradePointStore interface {
	// InsertBulk adds multiple points in one round trip.
	InsertBulk(ctx context.Context, points []*domain.TradePoint) error

	// GetByAsset retrieves all points for an asset, ordered by timestamp ASC.
	GetByAsset(ctx context.Context, assetID string) ([]*domain.TradePoint, error)

	// GetByTimeRange retrieves points for an asset within [start, end]
	// (inclusive, Unix milliseconds), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, assetID string, start, end int64) ([]*domain.TradePoint, error)
}
