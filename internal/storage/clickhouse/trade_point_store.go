package clickhouse

import (
	"context"
	"fmt"

	"rabbit-launchpad/internal/domain"
	"rabbit-launchpad/internal/storage"
)

// TradePointStore implements storage.TradePointStore using ClickHouse.
// Points are analytics data: MergeTree does not enforce uniqueness and the
// store does not try to, duplicates are tolerated downstream.
type TradePointStore struct {
	conn *Conn
}

// NewTradePointStore creates a new TradePointStore.
func NewTradePointStore(conn *Conn) *TradePointStore {
	return &TradePointStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TradePointStore = (*TradePointStore)(nil)

// InsertBulk adds multiple points in a single batch.
func (s *TradePointStore) InsertBulk(ctx context.Context, points []*domain.TradePoint) error {
	if len(points) == 0 {
		return nil
	}
	for _, p := range points {
		if p == nil || p.AssetID == "" {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO trade_points (
			asset_id, timestamp_ms, side, payment, tokens, price
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			p.AssetID, uint64(p.TimestampMs), p.Side,
			p.Payment, p.Tokens, p.Price,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByAsset retrieves all points for an asset, ordered by timestamp ASC.
func (s *TradePointStore) GetByAsset(ctx context.Context, assetID string) ([]*domain.TradePoint, error) {
	query := `
		SELECT asset_id, timestamp_ms, side, payment, tokens, price
		FROM trade_points
		WHERE asset_id = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, assetID)
	if err != nil {
		return nil, fmt.Errorf("query by asset id: %w", err)
	}
	defer rows.Close()

	return scanTradePoints(rows)
}

// GetByTimeRange retrieves points for an asset within [start, end] (inclusive).
func (s *TradePointStore) GetByTimeRange(ctx context.Context, assetID string, start, end int64) ([]*domain.TradePoint, error) {
	query := `
		SELECT asset_id, timestamp_ms, side, payment, tokens, price
		FROM trade_points
		WHERE asset_id = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, assetID, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanTradePoints(rows)
}

// scanTradePoints scans multiple rows.
func scanTradePoints(rows chRows) ([]*domain.TradePoint, error) {
	var points []*domain.TradePoint

	for rows.Next() {
		var p domain.TradePoint
		var timestampMs uint64

		err := rows.Scan(
			&p.AssetID, &timestampMs, &p.Side,
			&p.Payment, &p.Tokens, &p.Price,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade point row: %w", err)
		}

		p.TimestampMs = int64(timestampMs)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade point rows: %w", err)
	}

	return points, nil
}
