package curve

import (
	"github.com/holiman/uint256"

	"rabbit-launchpad/internal/fixedpoint"
)

// BpsDenominator is the basis-point denominator: 10000 bps = 100%.
const BpsDenominator = 10_000

// Params holds the launch constants for a bonding-curve market. All amounts
// are integers: native amounts in wei, token amounts in base units
// (1 token = 1e18 base units), rate factors scaled by fixedpoint.Scale.
//
// Fixed at deployment; only the treasury and router addresses are mutable at
// runtime, and those live behind the timelock controller, not here.
type Params struct {
	// InitialPrice is the spot price at zero supply, in wei per whole token.
	InitialPrice *uint256.Int

	// TotalSupply is the fixed supply cap in base units.
	TotalSupply *uint256.Int

	// TargetSupply is the curve allocation in base units: 80% of TotalSupply.
	// The remaining 20% is reserved for the graduation hand-off.
	TargetSupply *uint256.Int

	// KFactor is the exponential growth rate, scaled by fixedpoint.Scale.
	KFactor *uint256.Int

	// GrossRaiseTarget is the cumulative net raise, in wei, at which an
	// asset becomes eligible for graduation.
	GrossRaiseTarget *uint256.Int

	// CreateFee is the exact wei payment required by create.
	CreateFee *uint256.Int

	// PlatformFeeBps and CreatorFeeBps are the trade fee cuts in basis
	// points of BpsDenominator.
	PlatformFeeBps uint64
	CreatorFeeBps  uint64

	// LinearThreshold is the wei payment below which a purchase is priced
	// by spot approximation instead of stepwise integration.
	LinearThreshold *uint256.Int

	// MaxSingleSale bounds one trapezoidal pricing segment in base units.
	// Larger sales are split into segments of this size by SaleProceeds.
	MaxSingleSale *uint256.Int

	// IntegrationSteps is the Riemann-sum step count for large purchases.
	IntegrationSteps uint64
}

// DefaultParams returns the deployed launch constants: a fixed supply of
// 1e9 tokens, 80% sold on the curve, price growing from 1 gwei per token by
// e^(5·s/S), and a 10 BNB gross raise target.
func DefaultParams() Params {
	return Params{
		InitialPrice:     uint256.NewInt(1_000_000_000),                             // 1 gwei per token
		TotalSupply:      uint256.MustFromDecimal("1000000000000000000000000000"),   // 1e9 tokens
		TargetSupply:     uint256.MustFromDecimal("800000000000000000000000000"),    // 80%
		KFactor:          new(uint256.Int).Mul(uint256.NewInt(5), fixedpoint.Scale), // growth rate 5
		GrossRaiseTarget: uint256.MustFromDecimal("10000000000000000000"),           // 10 BNB
		CreateFee:        uint256.NewInt(5_000_000_000_000_000),                     // 0.005 BNB
		PlatformFeeBps:   100,
		CreatorFeeBps:    25,
		LinearThreshold:  uint256.NewInt(10_000_000_000_000_000),                  // 0.01 BNB
		MaxSingleSale:    uint256.MustFromDecimal("10000000000000000000000000"),   // 1% of supply
		IntegrationSteps: 10,
	}
}

// GraduationReserve returns the token allocation handed off at graduation:
// TotalSupply - TargetSupply.
func (p Params) GraduationReserve() *uint256.Int {
	return new(uint256.Int).Sub(p.TotalSupply, p.TargetSupply)
}

// TotalFeeBps returns the combined trade fee in basis points.
func (p Params) TotalFeeBps() uint64 {
	return p.PlatformFeeBps + p.CreatorFeeBps
}

// FeeBreakdown splits a payment into platform fee, creator fee and the net
// amount that reaches the curve.
func (p Params) FeeBreakdown(payment *uint256.Int) (platformFee, creatorFee, net *uint256.Int, err error) {
	bps := uint256.NewInt(BpsDenominator)

	platformFee, err = fixedpoint.MulDiv(payment, uint256.NewInt(p.PlatformFeeBps), bps)
	if err != nil {
		return nil, nil, nil, err
	}
	creatorFee, err = fixedpoint.MulDiv(payment, uint256.NewInt(p.CreatorFeeBps), bps)
	if err != nil {
		return nil, nil, nil, err
	}

	totalFee, err := fixedpoint.SafeAdd(platformFee, creatorFee)
	if err != nil {
		return nil, nil, nil, err
	}
	net, err = fixedpoint.SafeSub(payment, totalFee)
	if err != nil {
		return nil, nil, nil, err
	}
	return platformFee, creatorFee, net, nil
}
