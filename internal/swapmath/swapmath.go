// Package swapmath computes a single swap step within one price range.
package swapmath

import (
	"github.com/holiman/uint256"

	"clpool/internal/fullmath"
	"clpool/internal/sqrtmath"
)

// FeeDenominator is the fee unit: fees are expressed in hundredths of a bip.
var FeeDenominator = uint256.NewInt(1_000_000)

// StepResult holds the outcome of swapping within a single range.
type StepResult struct {
	SqrtRatioNextX96 *uint256.Int
	AmountIn         *uint256.Int
	AmountOut        *uint256.Int
	FeeAmount        *uint256.Int
}

// ComputeSwapStep advances the price toward sqrtRatioTargetX96 given the
// available liquidity and the remaining amount. amountRemaining is a signed
// (two's complement) value: non-negative means exact input, negative means
// exact output. The step never moves past the target price and never pays
// out more than the exact-output remainder.
func ComputeSwapStep(sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, amountRemaining *uint256.Int, feePips uint32) (StepResult, error) {
	var res StepResult

	zeroForOne := sqrtRatioCurrentX96.Cmp(sqrtRatioTargetX96) >= 0
	exactIn := amountRemaining.Sign() >= 0

	feeComplement := new(uint256.Int).Sub(FeeDenominator, uint256.NewInt(uint64(feePips)))

	var err error
	if exactIn {
		amountRemainingLessFee, ferr := fullmath.MulDiv(amountRemaining, feeComplement, FeeDenominator)
		if ferr != nil {
			return res, ferr
		}
		if zeroForOne {
			res.AmountIn, err = sqrtmath.Amount0Delta(sqrtRatioTargetX96, sqrtRatioCurrentX96, liquidity, true)
		} else {
			res.AmountIn, err = sqrtmath.Amount1Delta(sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, true)
		}
		if err != nil {
			return res, err
		}
		if amountRemainingLessFee.Cmp(res.AmountIn) >= 0 {
			res.SqrtRatioNextX96 = sqrtRatioTargetX96.Clone()
		} else {
			res.SqrtRatioNextX96, err = sqrtmath.NextSqrtPriceFromInput(sqrtRatioCurrentX96, liquidity, amountRemainingLessFee, zeroForOne)
			if err != nil {
				return res, err
			}
		}
	} else {
		remainingOut := new(uint256.Int).Neg(amountRemaining)
		if zeroForOne {
			res.AmountOut, err = sqrtmath.Amount1Delta(sqrtRatioTargetX96, sqrtRatioCurrentX96, liquidity, false)
		} else {
			res.AmountOut, err = sqrtmath.Amount0Delta(sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, false)
		}
		if err != nil {
			return res, err
		}
		if remainingOut.Cmp(res.AmountOut) >= 0 {
			res.SqrtRatioNextX96 = sqrtRatioTargetX96.Clone()
		} else {
			res.SqrtRatioNextX96, err = sqrtmath.NextSqrtPriceFromOutput(sqrtRatioCurrentX96, liquidity, remainingOut, zeroForOne)
			if err != nil {
				return res, err
			}
		}
	}

	reachedTarget := sqrtRatioTargetX96.Eq(res.SqrtRatioNextX96)

	if zeroForOne {
		if !(reachedTarget && exactIn) {
			res.AmountIn, err = sqrtmath.Amount0Delta(res.SqrtRatioNextX96, sqrtRatioCurrentX96, liquidity, true)
			if err != nil {
				return res, err
			}
		}
		if !(reachedTarget && !exactIn) {
			res.AmountOut, err = sqrtmath.Amount1Delta(res.SqrtRatioNextX96, sqrtRatioCurrentX96, liquidity, false)
			if err != nil {
				return res, err
			}
		}
	} else {
		if !(reachedTarget && exactIn) {
			res.AmountIn, err = sqrtmath.Amount1Delta(sqrtRatioCurrentX96, res.SqrtRatioNextX96, liquidity, true)
			if err != nil {
				return res, err
			}
		}
		if !(reachedTarget && !exactIn) {
			res.AmountOut, err = sqrtmath.Amount0Delta(sqrtRatioCurrentX96, res.SqrtRatioNextX96, liquidity, false)
			if err != nil {
				return res, err
			}
		}
	}

	if !exactIn {
		remainingOut := new(uint256.Int).Neg(amountRemaining)
		if res.AmountOut.Cmp(remainingOut) > 0 {
			res.AmountOut = remainingOut
		}
	}

	if exactIn && !reachedTarget {
		// The target was not reached, so the entire remainder of the
		// input beyond amountIn is collected as fee.
		res.FeeAmount = new(uint256.Int).Sub(amountRemaining, res.AmountIn)
	} else {
		res.FeeAmount, err = fullmath.MulDivRoundingUp(res.AmountIn, uint256.NewInt(uint64(feePips)), feeComplement)
		if err != nil {
			return res, err
		}
	}

	return res, nil
}
