// Package domain defines the core records and events of the launchpad
// engine. Records are plain data; all mutation goes through the ledger.
package domain

import "github.com/holiman/uint256"

// Asset is the per-token market record. Created once, mutated by buy/sell,
// frozen by graduation, never deleted.
type Asset struct {
	ID      string // base58 asset identifier
	Name    string
	Symbol  string
	Creator string // base58 address of the creating account

	// SoldSupply is the cumulative base units sold via the curve, bounded
	// above by the target supply.
	SoldSupply *uint256.Int

	// TotalRaised is the cumulative net wei received into the curve (after
	// fees); the graduation threshold is checked against it.
	TotalRaised *uint256.Int

	// Fee running totals, informational.
	TotalPlatformFees *uint256.Int
	TotalCreatorFees  *uint256.Int

	// Graduated flips false→true exactly once; afterwards buy/sell no
	// longer mutate the record.
	Graduated bool

	CreatedAt   int64 // Unix timestamp in milliseconds
	GraduatedAt int64 // Unix timestamp in milliseconds, zero until graduated
}

// NewAsset returns an Active asset record with zeroed totals.
func NewAsset(id, name, symbol, creator string, createdAt int64) *Asset {
	return &Asset{
		ID:                id,
		Name:              name,
		Symbol:            symbol,
		Creator:           creator,
		SoldSupply:        new(uint256.Int),
		TotalRaised:       new(uint256.Int),
		TotalPlatformFees: new(uint256.Int),
		TotalCreatorFees:  new(uint256.Int),
		CreatedAt:         createdAt,
	}
}

// Clone returns a deep copy, used for snapshots and store isolation.
func (a *Asset) Clone() *Asset {
	c := *a
	c.SoldSupply = new(uint256.Int).Set(a.SoldSupply)
	c.TotalRaised = new(uint256.Int).Set(a.TotalRaised)
	c.TotalPlatformFees = new(uint256.Int).Set(a.TotalPlatformFees)
	c.TotalCreatorFees = new(uint256.Int).Set(a.TotalCreatorFees)
	return &c
}
