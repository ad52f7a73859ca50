package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"rabbit-launchpad/internal/domain"
	"rabbit-launchpad/internal/storage"
)

// EventStore implements storage.EventStore using PostgreSQL. The journal is
// append-only: rows carry a BIGSERIAL id so same-millisecond events keep
// their insertion order.
type EventStore struct {
	pool *Pool
}

// NewEventStore creates a new EventStore.
func NewEventStore(pool *Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

const eventColumns = `
	event_type, asset_id, actor,
	payment_amount, token_amount, total_raised, total_sold,
	detail, event_timestamp
`

// Insert appends an event to the journal.
func (s *EventStore) Insert(ctx context.Context, e *domain.Event) error {
	if e == nil || e.AssetID == "" || e.Type == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO market_events (
			event_type, asset_id, actor,
			payment_amount, token_amount, total_raised, total_sold,
			detail, event_timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.pool.Exec(ctx, query,
		string(e.Type),
		e.AssetID,
		e.Actor,
		e.PaymentAmount,
		e.TokenAmount,
		e.TotalRaised,
		e.TotalSold,
		e.Detail,
		e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetByAsset retrieves up to limit events for an asset, ordered by
// timestamp ASC.
func (s *EventStore) GetByAsset(ctx context.Context, assetID string, limit int) ([]*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM market_events
		WHERE asset_id = $1
		ORDER BY event_timestamp ASC, id ASC
	`
	args := []any{assetID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get events by asset: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetByTimeRange retrieves events for an asset within [start, end] (inclusive).
func (s *EventStore) GetByTimeRange(ctx context.Context, assetID string, start, end int64) ([]*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM market_events
		WHERE asset_id = $1 AND event_timestamp >= $2 AND event_timestamp <= $3
		ORDER BY event_timestamp ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, assetID, start, end)
	if err != nil {
		return nil, fmt.Errorf("get events by time range: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// scanEvents scans multiple rows into a slice of Event.
func scanEvents(rows pgx.Rows) ([]*domain.Event, error) {
	var events []*domain.Event

	for rows.Next() {
		var e domain.Event
		var typeStr string

		err := rows.Scan(
			&typeStr,
			&e.AssetID,
			&e.Actor,
			&e.PaymentAmount,
			&e.TokenAmount,
			&e.TotalRaised,
			&e.TotalSold,
			&e.Detail,
			&e.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}

		e.Type = domain.EventType(typeStr)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}

	return events, nil
}
