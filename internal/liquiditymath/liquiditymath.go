// Package liquiditymath applies signed liquidity deltas to unsigned
// liquidity values with explicit overflow checks.
package liquiditymath

import (
	"errors"

	"github.com/holiman/uint256"
)

var (
	// ErrLiquidityUnderflow is returned when removing more liquidity than
	// is present.
	ErrLiquidityUnderflow = errors.New("liquiditymath: liquidity underflow")
	// ErrLiquidityOverflow is returned when liquidity would exceed the
	// 128-bit range.
	ErrLiquidityOverflow = errors.New("liquiditymath: liquidity overflow")
)

var maxUint128 = new(uint256.Int).SubUint64(new(uint256.Int).Lsh(uint256.NewInt(1), 128), 1)

// AddDelta returns x + y where x is an unsigned 128-bit quantity and y is a
// signed (two's complement) delta.
func AddDelta(x, y *uint256.Int) (*uint256.Int, error) {
	if y.Sign() < 0 {
		dec := new(uint256.Int).Neg(y)
		if dec.Cmp(x) > 0 {
			return nil, ErrLiquidityUnderflow
		}
		return new(uint256.Int).Sub(x, dec), nil
	}
	z := new(uint256.Int).Add(x, y)
	if z.Cmp(maxUint128) > 0 {
		return nil, ErrLiquidityOverflow
	}
	return z, nil
}
