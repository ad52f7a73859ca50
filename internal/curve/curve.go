// Package curve implements the exponential bonding-curve pricing functions:
// spot price as a function of sold supply, and the purchase/sale conversions
// between payment amounts and token amounts. All functions are pure; market
// state lives in the ledger.
package curve

import (
	"errors"

	"github.com/holiman/uint256"

	"rabbit-launchpad/internal/fixedpoint"
)

var (
	// ErrInvalidInput is returned for zero amounts, supplies beyond the
	// curve domain, or sale amounts outside the permitted bounds.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInsufficientCapacity is returned when a purchase would push sold
	// supply above the target supply.
	ErrInsufficientCapacity = errors.New("insufficient curve capacity")
)

// Price returns the spot price at the given sold supply, in wei per whole
// token: InitialPrice · e^(KFactor·s/TotalSupply). Fails with ErrInvalidInput
// if soldSupply exceeds TargetSupply.
func (p Params) Price(soldSupply *uint256.Int) (*uint256.Int, error) {
	if soldSupply.Gt(p.TargetSupply) {
		return nil, ErrInvalidInput
	}
	if soldSupply.IsZero() {
		return new(uint256.Int).Set(p.InitialPrice), nil
	}

	x, err := fixedpoint.MulDiv(p.KFactor, soldSupply, p.TotalSupply)
	if err != nil {
		return nil, err
	}
	growth, err := fixedpoint.Exp(x)
	if err != nil {
		return nil, err
	}
	return fixedpoint.MulDiv(p.InitialPrice, growth, fixedpoint.Scale)
}

// TokensForPayment converts a net payment into the token amount received at
// the given sold supply.
//
// Payments below LinearThreshold are priced in a single increment; larger
// payments are integrated in IntegrationSteps equal increments, advancing
// the running supply after each. Every increment is priced at the spot price
// of its post-purchase supply, so the trapezoidal sale estimate for the same
// supply delta can never exceed what was paid.
func (p Params) TokensForPayment(currentSupply, payment *uint256.Int) (*uint256.Int, error) {
	if payment.IsZero() || currentSupply.Gt(p.TargetSupply) {
		return nil, ErrInvalidInput
	}

	if payment.Lt(p.LinearThreshold) {
		return p.incrementTokens(currentSupply, payment)
	}

	steps := uint256.NewInt(p.IntegrationSteps)
	stepPay, err := fixedpoint.SafeDiv(payment, steps)
	if err != nil {
		return nil, err
	}
	if stepPay.IsZero() {
		return nil, ErrInvalidInput
	}

	supply := new(uint256.Int).Set(currentSupply)
	total := new(uint256.Int)
	spent := new(uint256.Int)

	for i := uint64(0); i < p.IntegrationSteps; i++ {
		pay := stepPay
		if i == p.IntegrationSteps-1 {
			// Fold the truncation remainder into the final step.
			pay = new(uint256.Int).Sub(payment, spent)
		}

		tokens, err := p.incrementTokens(supply, pay)
		if err != nil {
			return nil, err
		}

		supply, err = fixedpoint.SafeAdd(supply, tokens)
		if err != nil {
			return nil, err
		}
		total, err = fixedpoint.SafeAdd(total, tokens)
		if err != nil {
			return nil, err
		}
		spent, err = fixedpoint.SafeAdd(spent, pay)
		if err != nil {
			return nil, err
		}
	}
	return total, nil
}

// incrementTokens prices a single payment increment. The increment is first
// sized at the current spot price, then repriced at the spot price of the
// resulting supply; the higher post-purchase price is the one charged.
// Fails with ErrInsufficientCapacity if the increment would cross
// TargetSupply.
func (p Params) incrementTokens(supply, payment *uint256.Int) (*uint256.Int, error) {
	spot, err := p.Price(supply)
	if err != nil {
		return nil, err
	}
	provisional, err := fixedpoint.MulDiv(payment, fixedpoint.Scale, spot)
	if err != nil {
		return nil, err
	}

	end, err := fixedpoint.SafeAdd(supply, provisional)
	if err != nil {
		return nil, err
	}
	if end.Gt(p.TargetSupply) {
		return nil, ErrInsufficientCapacity
	}

	endPrice, err := p.Price(end)
	if err != nil {
		return nil, err
	}
	return fixedpoint.MulDiv(payment, fixedpoint.Scale, endPrice)
}

// PaymentForTokens converts a token amount being sold at the given sold
// supply into the wei payment returned: the trapezoidal average of the spot
// prices at the current supply and at the post-sale supply, multiplied by
// the token amount. Fails with ErrInvalidInput for a zero amount, an amount
// above the sold supply, or an amount above MaxSingleSale.
func (p Params) PaymentForTokens(currentSupply, tokenAmount *uint256.Int) (*uint256.Int, error) {
	if tokenAmount.IsZero() || tokenAmount.Gt(currentSupply) || tokenAmount.Gt(p.MaxSingleSale) {
		return nil, ErrInvalidInput
	}

	high, err := p.Price(currentSupply)
	if err != nil {
		return nil, err
	}
	remaining := new(uint256.Int).Sub(currentSupply, tokenAmount)
	low, err := p.Price(remaining)
	if err != nil {
		return nil, err
	}

	sum, err := fixedpoint.SafeAdd(high, low)
	if err != nil {
		return nil, err
	}
	avg := new(uint256.Int).Div(sum, uint256.NewInt(2))

	return fixedpoint.MulDiv(avg, tokenAmount, fixedpoint.Scale)
}

// SaleProceeds prices a sale of any size by splitting it into segments of at
// most MaxSingleSale tokens, walking the supply down and summing the
// trapezoidal payment for each segment. Finer segments sit closer to the
// curve than one wide trapezoid, so splitting never increases the proceeds
// and the purchase-cost bound of TokensForPayment is preserved. Fails with
// ErrInvalidInput for a zero amount or an amount above the sold supply.
func (p Params) SaleProceeds(currentSupply, tokenAmount *uint256.Int) (*uint256.Int, error) {
	if tokenAmount.IsZero() || tokenAmount.Gt(currentSupply) {
		return nil, ErrInvalidInput
	}

	supply := new(uint256.Int).Set(currentSupply)
	remaining := new(uint256.Int).Set(tokenAmount)
	total := new(uint256.Int)

	for !remaining.IsZero() {
		segment := remaining
		if remaining.Gt(p.MaxSingleSale) {
			segment = p.MaxSingleSale
		}

		payment, err := p.PaymentForTokens(supply, segment)
		if err != nil {
			return nil, err
		}
		total, err = fixedpoint.SafeAdd(total, payment)
		if err != nil {
			return nil, err
		}

		supply.Sub(supply, segment)
		remaining = new(uint256.Int).Sub(remaining, segment)
	}
	return total, nil
}
