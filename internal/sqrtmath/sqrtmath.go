// Package sqrtmath computes token amount deltas between two sqrt prices and
// the next sqrt price reached by adding or removing a token amount. Rounding
// always favors the pool: amounts charged round up, amounts paid out round
// down.
package sqrtmath

import (
	"errors"

	"github.com/holiman/uint256"

	"clpool/internal/fullmath"
)

// ErrPriceOverflow is returned when a next-price computation leaves the
// representable range.
var ErrPriceOverflow = errors.New("sqrtmath: price computation overflow")

var (
	q96        = new(uint256.Int).Lsh(uint256.NewInt(1), 96)
	maxUint160 = new(uint256.Int).SubUint64(new(uint256.Int).Lsh(uint256.NewInt(1), 160), 1)
)

// Amount0Delta returns the token0 amount covering the range between two sqrt
// prices at the given liquidity: liquidity * (sqrtB - sqrtA) / (sqrtB * sqrtA).
func Amount0Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity *uint256.Int, roundUp bool) (*uint256.Int, error) {
	if sqrtRatioAX96.Cmp(sqrtRatioBX96) > 0 {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}
	if sqrtRatioAX96.IsZero() {
		return nil, fullmath.ErrDivisionOverflow
	}

	numerator1 := new(uint256.Int).Lsh(liquidity, 96)
	numerator2 := new(uint256.Int).Sub(sqrtRatioBX96, sqrtRatioAX96)

	if roundUp {
		interim, err := fullmath.MulDivRoundingUp(numerator1, numerator2, sqrtRatioBX96)
		if err != nil {
			return nil, err
		}
		return fullmath.DivRoundingUp(interim, sqrtRatioAX96)
	}
	interim, err := fullmath.MulDiv(numerator1, numerator2, sqrtRatioBX96)
	if err != nil {
		return nil, err
	}
	return interim.Div(interim, sqrtRatioAX96), nil
}

// Amount1Delta returns the token1 amount covering the range between two sqrt
// prices at the given liquidity: liquidity * (sqrtB - sqrtA).
func Amount1Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity *uint256.Int, roundUp bool) (*uint256.Int, error) {
	if sqrtRatioAX96.Cmp(sqrtRatioBX96) > 0 {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}
	diff := new(uint256.Int).Sub(sqrtRatioBX96, sqrtRatioAX96)
	if roundUp {
		return fullmath.MulDivRoundingUp(liquidity, diff, q96)
	}
	return fullmath.MulDiv(liquidity, diff, q96)
}

// Amount0DeltaSigned is Amount0Delta for a signed (two's complement)
// liquidity value: negative liquidity yields a negative amount, rounded
// toward zero.
func Amount0DeltaSigned(sqrtRatioAX96, sqrtRatioBX96, liquidity *uint256.Int) (*uint256.Int, error) {
	if liquidity.Sign() < 0 {
		amount, err := Amount0Delta(sqrtRatioAX96, sqrtRatioBX96, new(uint256.Int).Neg(liquidity), false)
		if err != nil {
			return nil, err
		}
		return amount.Neg(amount), nil
	}
	return Amount0Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity, true)
}

// Amount1DeltaSigned is Amount1Delta for a signed liquidity value.
func Amount1DeltaSigned(sqrtRatioAX96, sqrtRatioBX96, liquidity *uint256.Int) (*uint256.Int, error) {
	if liquidity.Sign() < 0 {
		amount, err := Amount1Delta(sqrtRatioAX96, sqrtRatioBX96, new(uint256.Int).Neg(liquidity), false)
		if err != nil {
			return nil, err
		}
		return amount.Neg(amount), nil
	}
	return Amount1Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity, true)
}

// NextSqrtPriceFromInput returns the price after adding amountIn of the
// input token, rounding so the pool never undercharges.
func NextSqrtPriceFromInput(sqrtPX96, liquidity, amountIn *uint256.Int, zeroForOne bool) (*uint256.Int, error) {
	if sqrtPX96.IsZero() || liquidity.IsZero() {
		return nil, ErrPriceOverflow
	}
	if zeroForOne {
		return nextSqrtPriceFromAmount0RoundingUp(sqrtPX96, liquidity, amountIn, true)
	}
	return nextSqrtPriceFromAmount1RoundingDown(sqrtPX96, liquidity, amountIn, true)
}

// NextSqrtPriceFromOutput returns the price after removing amountOut of the
// output token, rounding so the pool never overpays.
func NextSqrtPriceFromOutput(sqrtPX96, liquidity, amountOut *uint256.Int, zeroForOne bool) (*uint256.Int, error) {
	if sqrtPX96.IsZero() || liquidity.IsZero() {
		return nil, ErrPriceOverflow
	}
	if zeroForOne {
		return nextSqrtPriceFromAmount1RoundingDown(sqrtPX96, liquidity, amountOut, false)
	}
	return nextSqrtPriceFromAmount0RoundingUp(sqrtPX96, liquidity, amountOut, false)
}

func nextSqrtPriceFromAmount0RoundingUp(sqrtPX96, liquidity, amount *uint256.Int, add bool) (*uint256.Int, error) {
	if amount.IsZero() {
		return sqrtPX96.Clone(), nil
	}
	numerator1 := new(uint256.Int).Lsh(liquidity, 96)

	if add {
		product := new(uint256.Int).Mul(amount, sqrtPX96)
		if new(uint256.Int).Div(product, amount).Eq(sqrtPX96) {
			denominator := new(uint256.Int).Add(numerator1, product)
			if denominator.Cmp(numerator1) >= 0 {
				return fullmath.MulDivRoundingUp(numerator1, sqrtPX96, denominator)
			}
		}
		denominator := new(uint256.Int).Add(new(uint256.Int).Div(numerator1, sqrtPX96), amount)
		return fullmath.DivRoundingUp(numerator1, denominator)
	}

	product := new(uint256.Int).Mul(amount, sqrtPX96)
	if !new(uint256.Int).Div(product, amount).Eq(sqrtPX96) || numerator1.Cmp(product) <= 0 {
		return nil, ErrPriceOverflow
	}
	denominator := new(uint256.Int).Sub(numerator1, product)
	return fullmath.MulDivRoundingUp(numerator1, sqrtPX96, denominator)
}

func nextSqrtPriceFromAmount1RoundingDown(sqrtPX96, liquidity, amount *uint256.Int, add bool) (*uint256.Int, error) {
	if add {
		var quotient *uint256.Int
		if amount.Cmp(maxUint160) <= 0 {
			quotient = new(uint256.Int).Div(new(uint256.Int).Lsh(amount, 96), liquidity)
		} else {
			var err error
			quotient, err = fullmath.MulDiv(amount, q96, liquidity)
			if err != nil {
				return nil, err
			}
		}
		next := new(uint256.Int).Add(sqrtPX96, quotient)
		if next.Cmp(sqrtPX96) < 0 {
			return nil, ErrPriceOverflow
		}
		return next, nil
	}

	quotient, err := fullmath.MulDivRoundingUp(amount, q96, liquidity)
	if err != nil {
		return nil, err
	}
	if sqrtPX96.Cmp(quotient) <= 0 {
		return nil, ErrPriceOverflow
	}
	return new(uint256.Int).Sub(sqrtPX96, quotient), nil
}
