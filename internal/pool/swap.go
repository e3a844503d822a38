package pool

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"clpool/internal/fullmath"
	"clpool/internal/liquiditymath"
	"clpool/internal/model"
	"clpool/internal/swapmath"
	"clpool/internal/tickmath"
)

var q128 = new(uint256.Int).Lsh(uint256.NewInt(1), 128)

// crossing records a tick crossed during the swap loop together with the
// input-side fee growth at the moment of crossing. Crossings mutate tick
// state only at commit time, so a failed swap leaves no trace.
type crossing struct {
	tick          int32
	feeGrowthX128 *uint256.Int
}

// Swap trades one token for the other. amountSpecified is a signed two's
// complement value: positive means exact input, negative exact output.
// The price stops at sqrtPriceLimitX96 if the specified amount cannot be
// satisfied before reaching it. Returned amounts are from the pool's
// perspective: positive amounts are owed to the pool, negative amounts are
// paid out.
func (p *Pool) Swap(sender, recipient common.Address, zeroForOne bool, amountSpecified, sqrtPriceLimitX96 *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	unlock, err := p.lock()
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	if amountSpecified.IsZero() {
		return nil, nil, ErrZeroAmount
	}
	if zeroForOne {
		if sqrtPriceLimitX96.Cmp(p.slot0.SqrtPriceX96) >= 0 || sqrtPriceLimitX96.Cmp(tickmath.MinSqrtRatio) <= 0 {
			return nil, nil, ErrPriceLimit
		}
	} else {
		if sqrtPriceLimitX96.Cmp(p.slot0.SqrtPriceX96) <= 0 || sqrtPriceLimitX96.Cmp(tickmath.MaxSqrtRatio) >= 0 {
			return nil, nil, ErrPriceLimit
		}
	}

	exactInput := amountSpecified.Sign() > 0

	var feeProtocol uint8
	if zeroForOne {
		feeProtocol = p.slot0.FeeProtocol % 16
	} else {
		feeProtocol = p.slot0.FeeProtocol >> 4
	}

	blockTimestamp := p.deps.Clock()
	startTick := p.slot0.Tick
	liquidityStart := p.liquidity

	var feeGrowthGlobalX128 *uint256.Int
	if zeroForOne {
		feeGrowthGlobalX128 = p.feeGrowthGlobal0X128.Clone()
	} else {
		feeGrowthGlobalX128 = p.feeGrowthGlobal1X128.Clone()
	}

	// Running state; mutated freely, committed only on success.
	amountRemaining := amountSpecified.Clone()
	amountCalculated := uint256.NewInt(0)
	sqrtPriceX96 := p.slot0.SqrtPriceX96.Clone()
	currentTick := p.slot0.Tick
	liquidity := p.liquidity.Clone()
	protocolFee := uint256.NewInt(0)

	var crossings []crossing
	var tickCumulative int64
	var secondsPerLiquidity *uint256.Int
	observed := false

	for !amountRemaining.IsZero() && !sqrtPriceX96.Eq(sqrtPriceLimitX96) {
		sqrtPriceStartX96 := sqrtPriceX96.Clone()

		tickNext, initialized := p.tickBitmap.NextInitializedTickWithinOneWord(currentTick, p.cfg.TickSpacing, zeroForOne)
		if tickNext < tickmath.MinTick {
			tickNext = tickmath.MinTick
		} else if tickNext > tickmath.MaxTick {
			tickNext = tickmath.MaxTick
		}

		sqrtPriceNextX96, err := tickmath.SqrtRatioAtTick(tickNext)
		if err != nil {
			return nil, nil, err
		}

		target := sqrtPriceNextX96
		if zeroForOne {
			if sqrtPriceNextX96.Cmp(sqrtPriceLimitX96) < 0 {
				target = sqrtPriceLimitX96
			}
		} else {
			if sqrtPriceNextX96.Cmp(sqrtPriceLimitX96) > 0 {
				target = sqrtPriceLimitX96
			}
		}

		step, err := swapmath.ComputeSwapStep(sqrtPriceX96, target, liquidity, amountRemaining, p.cfg.Fee)
		if err != nil {
			return nil, nil, err
		}
		sqrtPriceX96 = step.SqrtRatioNextX96

		if exactInput {
			spent := new(uint256.Int).Add(step.AmountIn, step.FeeAmount)
			amountRemaining.Sub(amountRemaining, spent)
			amountCalculated.Sub(amountCalculated, step.AmountOut)
		} else {
			amountRemaining.Add(amountRemaining, step.AmountOut)
			earned := new(uint256.Int).Add(step.AmountIn, step.FeeAmount)
			amountCalculated.Add(amountCalculated, earned)
		}

		feeAmount := step.FeeAmount
		if feeProtocol > 0 {
			delta := new(uint256.Int).Div(feeAmount, uint256.NewInt(uint64(feeProtocol)))
			feeAmount = new(uint256.Int).Sub(feeAmount, delta)
			protocolFee.Add(protocolFee, delta)
		}
		if !liquidity.IsZero() {
			growth, err := fullmath.MulDiv(feeAmount, q128, liquidity)
			if err != nil {
				return nil, nil, err
			}
			// Wraps modulo 2^256 like every growth accumulator.
			feeGrowthGlobalX128.Add(feeGrowthGlobalX128, growth)
		}

		if sqrtPriceX96.Eq(sqrtPriceNextX96) {
			if initialized {
				if !observed {
					tickCumulative, secondsPerLiquidity, err = p.observations.ObserveSingle(blockTimestamp, 0, startTick, liquidityStart)
					if err != nil {
						return nil, nil, err
					}
					observed = true
				}
				crossings = append(crossings, crossing{tick: tickNext, feeGrowthX128: feeGrowthGlobalX128.Clone()})

				liquidityNet := p.ticks.LiquidityNet(tickNext)
				if zeroForOne {
					liquidityNet.Neg(liquidityNet)
				}
				liquidity, err = liquiditymath.AddDelta(liquidity, liquidityNet)
				if err != nil {
					return nil, nil, err
				}
			}
			if zeroForOne {
				currentTick = tickNext - 1
			} else {
				currentTick = tickNext
			}
		} else if !sqrtPriceX96.Eq(sqrtPriceStartX96) {
			currentTick, err = tickmath.TickAtSqrtRatio(sqrtPriceX96)
			if err != nil {
				return nil, nil, err
			}
		}
	}

	var amount0, amount1 *uint256.Int
	if zeroForOne == exactInput {
		amount0 = new(uint256.Int).Sub(amountSpecified, amountRemaining)
		amount1 = amountCalculated
	} else {
		amount0 = amountCalculated
		amount1 = new(uint256.Int).Sub(amountSpecified, amountRemaining)
	}

	// Settle against the ledger before committing: the input leg is
	// pulled from the sender, the output leg is paid to the recipient.
	var tokenIn, tokenOut common.Address
	var amountIn, amountOut *uint256.Int
	if zeroForOne {
		tokenIn, tokenOut = p.cfg.Token0, p.cfg.Token1
		amountIn, amountOut = amount0, amount1
	} else {
		tokenIn, tokenOut = p.cfg.Token1, p.cfg.Token0
		amountIn, amountOut = amount1, amount0
	}
	if err := p.deps.Ledger.Transfer(tokenIn, sender, p.cfg.Address, amountIn); err != nil {
		return nil, nil, err
	}
	if amountOut.Sign() < 0 {
		out := new(uint256.Int).Neg(amountOut)
		if err := p.deps.Ledger.Transfer(tokenOut, p.cfg.Address, recipient, out); err != nil {
			return nil, nil, err
		}
	}

	// Commit.
	for _, c := range crossings {
		if zeroForOne {
			p.ticks.Cross(c.tick, c.feeGrowthX128, p.feeGrowthGlobal1X128, secondsPerLiquidity, tickCumulative, blockTimestamp)
		} else {
			p.ticks.Cross(c.tick, p.feeGrowthGlobal0X128, c.feeGrowthX128, secondsPerLiquidity, tickCumulative, blockTimestamp)
		}
	}
	if currentTick != startTick {
		idx, card := p.observations.Write(blockTimestamp, startTick, liquidityStart)
		p.slot0.ObservationIndex = idx
		p.slot0.ObservationCardinality = card
		p.slot0.Tick = currentTick
	}
	p.slot0.SqrtPriceX96 = sqrtPriceX96
	p.liquidity = liquidity
	if zeroForOne {
		p.feeGrowthGlobal0X128 = feeGrowthGlobalX128
		if !protocolFee.IsZero() {
			p.protocolFees0 = new(uint256.Int).Add(p.protocolFees0, protocolFee)
		}
	} else {
		p.feeGrowthGlobal1X128 = feeGrowthGlobalX128
		if !protocolFee.IsZero() {
			p.protocolFees1 = new(uint256.Int).Add(p.protocolFees1, protocolFee)
		}
	}

	p.log.Debug("swap",
		zap.Bool("zero_for_one", zeroForOne),
		zap.String("amount0", signedDec(amount0)),
		zap.String("amount1", signedDec(amount1)),
		zap.Int32("tick", currentTick),
	)
	p.emit(model.EventSwap, model.SwapEventData{
		Sender:       sender.Hex(),
		Recipient:    recipient.Hex(),
		Amount0:      signedDec(amount0),
		Amount1:      signedDec(amount1),
		SqrtPriceX96: sqrtPriceX96.Dec(),
		Liquidity:    liquidity.Dec(),
		Tick:         currentTick,
	})
	return amount0, amount1, nil
}
