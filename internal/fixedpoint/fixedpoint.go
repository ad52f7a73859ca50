// Package fixedpoint implements checked 256-bit integer arithmetic over
// values scaled by 1e18. All engine math goes through these helpers so that
// overflow, underflow and division by zero surface as typed errors instead
// of silently wrapping.
package fixedpoint

import (
	"errors"

	"github.com/holiman/uint256"
)

// Arithmetic errors. Stable reason strings: callers surface these verbatim.
var (
	ErrOverflow         = errors.New("arithmetic overflow")
	ErrUnderflow        = errors.New("arithmetic underflow")
	ErrDivisionByZero   = errors.New("division by zero")
	ErrExponentTooLarge = errors.New("overflow detected: exponent out of bounds")
)

// Scale is the fixed-point scaling factor: 18 decimal digits of fractional
// precision, matching the token's divisibility.
var Scale = uint256.NewInt(1_000_000_000_000_000_000)

// SafeAdd returns a+b, or ErrOverflow if the sum wraps.
func SafeAdd(a, b *uint256.Int) (*uint256.Int, error) {
	sum, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, ErrOverflow
	}
	return sum, nil
}

// SafeSub returns a-b, or ErrUnderflow if b > a.
func SafeSub(a, b *uint256.Int) (*uint256.Int, error) {
	if b.Gt(a) {
		return nil, ErrUnderflow
	}
	return new(uint256.Int).Sub(a, b), nil
}

// SafeMul returns a*b, or ErrOverflow if the product does not fit 256 bits.
func SafeMul(a, b *uint256.Int) (*uint256.Int, error) {
	product, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, ErrOverflow
	}
	return product, nil
}

// SafeDiv returns a/b truncated toward zero, or ErrDivisionByZero if b = 0.
func SafeDiv(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrDivisionByZero
	}
	return new(uint256.Int).Div(a, b), nil
}

// MulDiv returns a*b/d with a 512-bit intermediate product, so the common
// scale/rescale pattern never overflows as long as the final quotient fits.
func MulDiv(a, b, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, ErrDivisionByZero
	}
	result, overflow := new(uint256.Int).MulDivOverflow(a, b, d)
	if overflow {
		return nil, ErrOverflow
	}
	return result, nil
}
