package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/jackc/pgx/v5"

	"rabbit-launchpad/internal/domain"
	"rabbit-launchpad/internal/storage"
)

// AssetStore implements storage.AssetStore using PostgreSQL. Amount columns
// are NUMERIC(78,0) and travel as decimal strings to keep full 256-bit
// precision.
type AssetStore struct {
	pool *Pool
}

// NewAssetStore creates a new AssetStore.
func NewAssetStore(pool *Pool) *AssetStore {
	return &AssetStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AssetStore = (*AssetStore)(nil)

const assetColumns = `
	asset_id, name, symbol, creator,
	sold_supply::text, total_raised::text,
	total_platform_fees::text, total_creator_fees::text,
	graduated, created_at, graduated_at
`

// Insert adds a new asset. Returns ErrDuplicateKey if asset_id exists.
func (s *AssetStore) Insert(ctx context.Context, a *domain.Asset) error {
	if a == nil || a.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO assets (
			asset_id, name, symbol, creator,
			sold_supply, total_raised, total_platform_fees, total_creator_fees,
			graduated, created_at, graduated_at
		) VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8::numeric, $9, $10, $11)
	`

	_, err := s.pool.Exec(ctx, query,
		a.ID,
		a.Name,
		a.Symbol,
		a.Creator,
		a.SoldSupply.Dec(),
		a.TotalRaised.Dec(),
		a.TotalPlatformFees.Dec(),
		a.TotalCreatorFees.Dec(),
		a.Graduated,
		a.CreatedAt,
		a.GraduatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert asset: %w", err)
	}
	return nil
}

// GetByID retrieves an asset by its ID. Returns ErrNotFound if not exists.
func (s *AssetStore) GetByID(ctx context.Context, assetID string) (*domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE asset_id = $1`

	row := s.pool.QueryRow(ctx, query, assetID)
	a, err := scanAsset(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get asset by id: %w", err)
	}
	return a, nil
}

// Update overwrites the mutable fields of an existing asset.
func (s *AssetStore) Update(ctx context.Context, a *domain.Asset) error {
	if a == nil || a.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE assets SET
			sold_supply = $2::numeric,
			total_raised = $3::numeric,
			total_platform_fees = $4::numeric,
			total_creator_fees = $5::numeric,
			graduated = $6,
			graduated_at = $7
		WHERE asset_id = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		a.ID,
		a.SoldSupply.Dec(),
		a.TotalRaised.Dec(),
		a.TotalPlatformFees.Dec(),
		a.TotalCreatorFees.Dec(),
		a.Graduated,
		a.GraduatedAt,
	)
	if err != nil {
		return fmt.Errorf("update asset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// List retrieves assets matching filter, ordered by created_at DESC.
func (s *AssetStore) List(ctx context.Context, filter storage.ListFilter) ([]*domain.Asset, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + assetColumns + ` FROM assets`)

	var args []any
	if filter.Graduated != nil {
		args = append(args, *filter.Graduated)
		sb.WriteString(fmt.Sprintf(" WHERE graduated = $%d", len(args)))
	}
	sb.WriteString(" ORDER BY created_at DESC, asset_id ASC")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		sb.WriteString(fmt.Sprintf(" OFFSET $%d", len(args)))
	}

	rows, err := s.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	return scanAssets(rows)
}

// Count returns the number of assets matching filter.
func (s *AssetStore) Count(ctx context.Context, filter storage.ListFilter) (int64, error) {
	query := `SELECT COUNT(*) FROM assets`
	var args []any
	if filter.Graduated != nil {
		query += ` WHERE graduated = $1`
		args = append(args, *filter.Graduated)
	}

	var n int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count assets: %w", err)
	}
	return n, nil
}

// scanAsset scans a single row into an Asset.
func scanAsset(row pgx.Row) (*domain.Asset, error) {
	var a domain.Asset
	var soldSupply, totalRaised, platformFees, creatorFees string

	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Symbol,
		&a.Creator,
		&soldSupply,
		&totalRaised,
		&platformFees,
		&creatorFees,
		&a.Graduated,
		&a.CreatedAt,
		&a.GraduatedAt,
	)
	if err != nil {
		return nil, err
	}

	if a.SoldSupply, err = uint256.FromDecimal(soldSupply); err != nil {
		return nil, fmt.Errorf("parse sold_supply: %w", err)
	}
	if a.TotalRaised, err = uint256.FromDecimal(totalRaised); err != nil {
		return nil, fmt.Errorf("parse total_raised: %w", err)
	}
	if a.TotalPlatformFees, err = uint256.FromDecimal(platformFees); err != nil {
		return nil, fmt.Errorf("parse total_platform_fees: %w", err)
	}
	if a.TotalCreatorFees, err = uint256.FromDecimal(creatorFees); err != nil {
		return nil, fmt.Errorf("parse total_creator_fees: %w", err)
	}
	return &a, nil
}

// scanAssets scans multiple rows into a slice of Asset.
func scanAssets(rows pgx.Rows) ([]*domain.Asset, error) {
	var assets []*domain.Asset

	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset row: %w", err)
		}
		assets = append(assets, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate asset rows: %w", err)
	}

	return assets, nil
}
