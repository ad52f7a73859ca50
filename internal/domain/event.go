package domain

import "context"

// EventType identifies a domain event.
type EventType string

// Domain event types emitted by the ledger.
const (
	EventAssetCreated    EventType = "ASSET_CREATED"
	EventTokensPurchased EventType = "TOKENS_PURCHASED"
	EventTokensSold      EventType = "TOKENS_SOLD"
	EventAssetGraduated  EventType = "ASSET_GRADUATED"
	EventSecurity        EventType = "SECURITY_EVENT"
)

// Event is the flat record published for every ledger transition. Amounts
// are decimal strings so the event survives any transport or store without
// precision loss.
type Event struct {
	Type    EventType `json:"type"`
	AssetID string    `json:"asset_id"`

	// Actor is the creator, buyer or seller depending on Type.
	Actor string `json:"actor,omitempty"`

	PaymentAmount string `json:"payment_amount,omitempty"` // wei
	TokenAmount   string `json:"token_amount,omitempty"`   // base units
	TotalRaised   string `json:"total_raised,omitempty"`   // wei, graduation only
	TotalSold     string `json:"total_sold,omitempty"`     // base units, graduation only

	// Detail carries the reason string for SECURITY_EVENT.
	Detail string `json:"detail,omitempty"`

	Timestamp int64 `json:"timestamp"` // Unix milliseconds
}

// EventSink consumes domain events. Sinks must not block the ledger:
// implementations either buffer or drop, and report failures through their
// own channels.
type EventSink interface {
	Publish(ctx context.Context, e Event) error
}
