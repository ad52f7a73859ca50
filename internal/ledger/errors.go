package ledger

import "errors"

// Ledger errors.
var (
	// ErrAssetNotFound is returned when an operation names an unknown asset.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrAlreadyGraduated is returned when a trade or graduation targets a
	// graduated asset.
	ErrAlreadyGraduated = errors.New("asset already graduated")

	// ErrInvalidFee is returned when the creation fee does not match the
	// configured amount exactly.
	ErrInvalidFee = errors.New("invalid creation fee")

	// ErrInvalidAmount is returned for zero or out-of-range trade amounts.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidMetadata is returned when an asset name or symbol is
	// missing or too long.
	ErrInvalidMetadata = errors.New("invalid asset metadata")

	// ErrInsufficientPurchase is returned when a payment is too small to
	// buy a single base unit at the current price.
	ErrInsufficientPurchase = errors.New("payment too small for any tokens")

	// ErrInsufficientLiquidity is returned when the curve pool cannot
	// cover a sale's proceeds.
	ErrInsufficientLiquidity = errors.New("insufficient pool liquidity")

	// ErrGraduationNotReady is returned when graduation is requested
	// before the raise target is met.
	ErrGraduationNotReady = errors.New("graduation threshold not reached")

	// ErrReentrantCall is returned when an operation on an asset starts
	// while another one is still in flight, including re-entry through
	// transfer receiver hooks.
	ErrReentrantCall = errors.New("reentrant call")

	// ErrSettlementFailed is returned when a critical settlement leg fails
	// and the state change has been rolled back.
	ErrSettlementFailed = errors.New("settlement failed")
)
