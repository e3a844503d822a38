// Package fullmath provides 512-bit-intermediate multiply-divide primitives
// on 256-bit integers. Results are exact; rounding direction is explicit in
// the function name.
package fullmath

import (
	"errors"

	"github.com/holiman/uint256"
)

// ErrDivisionOverflow is returned when the denominator is zero or the true
// quotient does not fit in 256 bits.
var ErrDivisionOverflow = errors.New("fullmath: division overflow")

var (
	one        = uint256.NewInt(1)
	maxUint256 = new(uint256.Int).Not(new(uint256.Int))
)

// MulDiv computes floor(a*b/denominator) with a full 512-bit intermediate
// product.
func MulDiv(a, b, denominator *uint256.Int) (*uint256.Int, error) {
	if denominator.IsZero() {
		return nil, ErrDivisionOverflow
	}
	result, overflow := new(uint256.Int).MulDivOverflow(a, b, denominator)
	if overflow {
		return nil, ErrDivisionOverflow
	}
	return result, nil
}

// MulDivRoundingUp computes ceil(a*b/denominator).
func MulDivRoundingUp(a, b, denominator *uint256.Int) (*uint256.Int, error) {
	result, err := MulDiv(a, b, denominator)
	if err != nil {
		return nil, err
	}
	rem := new(uint256.Int).MulMod(a, b, denominator)
	if !rem.IsZero() {
		if result.Eq(maxUint256) {
			return nil, ErrDivisionOverflow
		}
		result.Add(result, one)
	}
	return result, nil
}

// DivRoundingUp computes ceil(a/denominator).
func DivRoundingUp(a, denominator *uint256.Int) (*uint256.Int, error) {
	if denominator.IsZero() {
		return nil, ErrDivisionOverflow
	}
	result := new(uint256.Int).Div(a, denominator)
	rem := new(uint256.Int).Mod(a, denominator)
	if !rem.IsZero() {
		result.Add(result, one)
	}
	return result, nil
}
