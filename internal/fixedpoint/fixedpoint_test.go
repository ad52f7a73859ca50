package fixedpoint

import (
	"math"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func maxUint256() *uint256.Int {
	return new(uint256.Int).SetAllOne()
}

func toFloat(t *testing.T, v *uint256.Int) float64 {
	t.Helper()
	f, _ := new(big.Float).SetInt(v.ToBig()).Float64()
	return f
}

func TestSafeAdd_Overflow(t *testing.T) {
	_, err := SafeAdd(maxUint256(), uint256.NewInt(1))
	require.ErrorIs(t, err, ErrOverflow)
}

func TestSafeAdd_Basic(t *testing.T) {
	sum, err := SafeAdd(uint256.NewInt(2), uint256.NewInt(3))
	require.NoError(t, err)
	require.Equal(t, uint64(5), sum.Uint64())
}

func TestSafeSub_Underflow(t *testing.T) {
	_, err := SafeSub(uint256.NewInt(1), uint256.NewInt(2))
	require.ErrorIs(t, err, ErrUnderflow)
}

func TestSafeMul_Overflow(t *testing.T) {
	_, err := SafeMul(maxUint256(), uint256.NewInt(2))
	require.ErrorIs(t, err, ErrOverflow)
}

func TestSafeMul_ZeroOperand(t *testing.T) {
	product, err := SafeMul(maxUint256(), uint256.NewInt(0))
	require.NoError(t, err)
	require.True(t, product.IsZero())
}

func TestSafeDiv_DivisionByZero(t *testing.T) {
	_, err := SafeDiv(uint256.NewInt(10), uint256.NewInt(0))
	require.ErrorIs(t, err, ErrDivisionByZero)
}

func TestSafeDiv_Truncates(t *testing.T) {
	q, err := SafeDiv(uint256.NewInt(7), uint256.NewInt(2))
	require.NoError(t, err)
	require.Equal(t, uint64(3), q.Uint64())
}

func TestMulDiv_512BitIntermediate(t *testing.T) {
	// a*b overflows 256 bits but a*b/d does not.
	a := maxUint256()
	result, err := MulDiv(a, uint256.NewInt(100), uint256.NewInt(200))
	require.NoError(t, err)

	expected := new(uint256.Int).Div(a, uint256.NewInt(2))
	require.Equal(t, expected, result)
}

func TestMulDiv_DivisionByZero(t *testing.T) {
	_, err := MulDiv(uint256.NewInt(1), uint256.NewInt(1), uint256.NewInt(0))
	require.ErrorIs(t, err, ErrDivisionByZero)
}

func TestExp_Zero(t *testing.T) {
	result, err := Exp(uint256.NewInt(0))
	require.NoError(t, err)
	require.Equal(t, Scale, result)
}

func TestExp_AboveMaxExponent(t *testing.T) {
	x := new(uint256.Int).Add(MaxExponent, uint256.NewInt(1))
	_, err := Exp(x)
	require.ErrorIs(t, err, ErrExponentTooLarge)
}

func TestExp_TaylorExactSmallInput(t *testing.T) {
	// x = 1e12 (1e-6 unscaled). The 4-term expansion in integer arithmetic:
	// 1e18 + 1e12 + (1e12)^2/(2*1e18) = 1e18 + 1e12 + 5e5; cubic and quartic
	// terms truncate to zero.
	result, err := Exp(uint256.NewInt(1_000_000_000_000))
	require.NoError(t, err)

	expected := uint256.MustFromDecimal("1000000000001000500000")
	require.Equal(t, expected, result)
}

func TestExp_One(t *testing.T) {
	result, err := Exp(Scale)
	require.NoError(t, err)

	got := toFloat(t, result) / 1e18
	require.InEpsilon(t, math.E, got, 1e-4)
}

func TestExp_Four(t *testing.T) {
	x := new(uint256.Int).Mul(uint256.NewInt(4), Scale)
	result, err := Exp(x)
	require.NoError(t, err)

	got := toFloat(t, result) / 1e18
	require.InEpsilon(t, math.Exp(4), got, 1e-3)
}

func TestExp_MaxExponent(t *testing.T) {
	result, err := Exp(MaxExponent)
	require.NoError(t, err)

	got := toFloat(t, result) / 1e18
	// The compounding approximation runs about x^2/(2n) low at the top of
	// the range; 2% tolerance covers e^50 comfortably.
	require.InDelta(t, math.Exp(50), got, math.Exp(50)*0.02)
}

func TestExp_Monotonic(t *testing.T) {
	samples := []*uint256.Int{
		uint256.NewInt(0),
		uint256.NewInt(1_000),
		uint256.NewInt(500_000_000_000_000),
		uint256.NewInt(10_000_000_000_000_000),
		new(uint256.Int).Div(Scale, uint256.NewInt(2)),
		Scale,
		new(uint256.Int).Mul(uint256.NewInt(10), Scale),
		MaxExponent,
	}

	prev, err := Exp(samples[0])
	require.NoError(t, err)
	for _, x := range samples[1:] {
		cur, err := Exp(x)
		require.NoError(t, err)
		require.True(t, prev.Lt(cur) || prev.Eq(cur),
			"Exp not monotonic at x=%s: prev=%s cur=%s", x.Dec(), prev.Dec(), cur.Dec())
		prev = cur
	}
}
