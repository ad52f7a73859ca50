package fixedpoint

import "github.com/holiman/uint256"

// MaxExponent is the largest accepted input to Exp: e^50 scaled. Anything
// beyond that would produce a magnitude no downstream price computation can
// use without overflowing.
var MaxExponent = new(uint256.Int).Mul(uint256.NewInt(50), Scale)

// taylorCutoff is 0.001 scaled. Below it a 4-term Taylor expansion is
// accurate to well under one part in 1e12; above it the iterative
// approximation takes over.
var taylorCutoff = uint256.NewInt(1_000_000_000_000_000)

// expIterations is the binary exponent of the compounding step count: Exp
// approximates (1+x/n)^n with n = 2^expIterations via repeated squaring.
const expIterations = 16

// expOutputCap bounds the result of Exp. e^50 scaled is about 5.2e39; the
// cap catches any approximation pathology before it reaches a caller.
var expOutputCap = uint256.MustFromDecimal("10000000000000000000000000000000000000000") // 1e40

// Exp computes e^(x/Scale) scaled by Scale.
//
// For x below taylorCutoff it evaluates the 4-term Taylor series
// 1 + x + x²/2! + x³/3! + x⁴/4!. For larger x up to MaxExponent it
// approximates (1+x/n)^n with n = 2^16 by repeated squaring. Inputs above
// MaxExponent fail with ErrExponentTooLarge.
func Exp(x *uint256.Int) (*uint256.Int, error) {
	if x.Gt(MaxExponent) {
		return nil, ErrExponentTooLarge
	}
	if x.IsZero() {
		return new(uint256.Int).Set(Scale), nil
	}
	if x.Lt(taylorCutoff) {
		return expTaylor(x)
	}
	return expIterative(x)
}

// expTaylor evaluates 1 + x + x²/2 + x³/6 + x⁴/24 in scaled arithmetic.
func expTaylor(x *uint256.Int) (*uint256.Int, error) {
	sum, err := SafeAdd(Scale, x)
	if err != nil {
		return nil, err
	}

	term := new(uint256.Int).Set(x)
	for _, factorial := range []uint64{2, 6, 24} {
		term, err = MulDiv(term, x, Scale)
		if err != nil {
			return nil, err
		}
		contrib, err := SafeDiv(term, uint256.NewInt(factorial))
		if err != nil {
			return nil, err
		}
		sum, err = SafeAdd(sum, contrib)
		if err != nil {
			return nil, err
		}
	}
	return sum, nil
}

// expIterative approximates e^(x/Scale) as (1 + x/n)^n with n = 2^16,
// computed by squaring the base sixteen times. Each squaring is rescaled and
// overflow-checked; the final value is capped by expOutputCap.
func expIterative(x *uint256.Int) (*uint256.Int, error) {
	n := uint256.NewInt(1 << expIterations)

	step, err := SafeDiv(x, n)
	if err != nil {
		return nil, err
	}
	base, err := SafeAdd(Scale, step)
	if err != nil {
		return nil, err
	}

	for i := 0; i < expIterations; i++ {
		base, err = MulDiv(base, base, Scale)
		if err != nil {
			return nil, err
		}
		if base.Gt(expOutputCap) {
			return nil, ErrExponentTooLarge
		}
	}
	return base, nil
}
