package pool

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"clpool/internal/liquiditymath"
	"clpool/internal/model"
	"clpool/internal/position"
	"clpool/internal/sqrtmath"
	"clpool/internal/tick"
	"clpool/internal/tickmath"
)

// MintPayer delivers the owed token amounts to the pool. A nil payer pulls
// the amounts from the sender through the ledger.
type MintPayer func(amount0, amount1 *uint256.Int) error

// positionChange is the staged outcome of a position modification. Nothing
// in the pool is mutated until commit, so a failure anywhere while staging
// leaves no trace.
type positionChange struct {
	key          position.Key
	pos          position.Info
	lowerInfo    tick.Info
	upperInfo    tick.Info
	flippedLower bool
	flippedUpper bool
	ticksTouched bool
	clearOnFlip  bool
	liquidity    *uint256.Int
	amount0      *uint256.Int // signed
	amount1      *uint256.Int // signed
}

func checkTicks(tickLower, tickUpper, tickSpacing int32) error {
	if tickLower >= tickUpper || tickLower < tickmath.MinTick || tickUpper > tickmath.MaxTick {
		return ErrInvalidTickRange
	}
	if tickLower%tickSpacing != 0 || tickUpper%tickSpacing != 0 {
		return tick.ErrUnalignedTick
	}
	return nil
}

// stagePosition computes the full effect of applying liquidityDelta (two's
// complement) to a position without touching pool state.
func (p *Pool) stagePosition(owner common.Address, tickLower, tickUpper int32, liquidityDelta *uint256.Int) (*positionChange, error) {
	if err := checkTicks(tickLower, tickUpper, p.cfg.TickSpacing); err != nil {
		return nil, err
	}

	change := &positionChange{
		key:       position.Key{Owner: owner, TickLower: tickLower, TickUpper: tickUpper},
		lowerInfo: p.ticks.Get(tickLower),
		upperInfo: p.ticks.Get(tickUpper),
		liquidity: p.liquidity,
		amount0:   uint256.NewInt(0),
		amount1:   uint256.NewInt(0),
	}
	change.pos = p.positions.Snapshot(change.key)

	if !liquidityDelta.IsZero() {
		change.ticksTouched = true
		change.clearOnFlip = liquidityDelta.Sign() < 0

		time := p.deps.Clock()
		tickCumulative, secondsPerLiquidity, err := p.observations.ObserveSingle(time, 0, p.slot0.Tick, p.liquidity)
		if err != nil {
			return nil, err
		}

		change.flippedLower, err = change.lowerInfo.Update(
			tickLower, p.slot0.Tick, liquidityDelta,
			p.feeGrowthGlobal0X128, p.feeGrowthGlobal1X128,
			secondsPerLiquidity, tickCumulative, time,
			false, p.maxLiquidityPerTick,
		)
		if err != nil {
			return nil, err
		}
		change.flippedUpper, err = change.upperInfo.Update(
			tickUpper, p.slot0.Tick, liquidityDelta,
			p.feeGrowthGlobal0X128, p.feeGrowthGlobal1X128,
			secondsPerLiquidity, tickCumulative, time,
			true, p.maxLiquidityPerTick,
		)
		if err != nil {
			return nil, err
		}
	}

	inside0, inside1 := tick.FeeGrowthInside(
		change.lowerInfo, change.upperInfo,
		tickLower, tickUpper, p.slot0.Tick,
		p.feeGrowthGlobal0X128, p.feeGrowthGlobal1X128,
	)
	if err := change.pos.Update(liquidityDelta, inside0, inside1); err != nil {
		return nil, err
	}

	if !liquidityDelta.IsZero() {
		sqrtLower, err := tickmath.SqrtRatioAtTick(tickLower)
		if err != nil {
			return nil, err
		}
		sqrtUpper, err := tickmath.SqrtRatioAtTick(tickUpper)
		if err != nil {
			return nil, err
		}

		switch {
		case p.slot0.Tick < tickLower:
			// Price below the range: the position is entirely token0.
			change.amount0, err = sqrtmath.Amount0DeltaSigned(sqrtLower, sqrtUpper, liquidityDelta)
			if err != nil {
				return nil, err
			}
		case p.slot0.Tick < tickUpper:
			change.amount0, err = sqrtmath.Amount0DeltaSigned(p.slot0.SqrtPriceX96, sqrtUpper, liquidityDelta)
			if err != nil {
				return nil, err
			}
			change.amount1, err = sqrtmath.Amount1DeltaSigned(sqrtLower, p.slot0.SqrtPriceX96, liquidityDelta)
			if err != nil {
				return nil, err
			}
			change.liquidity, err = liquiditymath.AddDelta(p.liquidity, liquidityDelta)
			if err != nil {
				return nil, err
			}
		default:
			// Price above the range: the position is entirely token1.
			change.amount1, err = sqrtmath.Amount1DeltaSigned(sqrtLower, sqrtUpper, liquidityDelta)
			if err != nil {
				return nil, err
			}
		}
	}

	return change, nil
}

// commitPosition applies a staged change. It cannot fail.
func (p *Pool) commitPosition(c *positionChange) {
	if c.ticksTouched {
		p.ticks.Set(c.key.TickLower, c.lowerInfo)
		p.ticks.Set(c.key.TickUpper, c.upperInfo)
		if c.flippedLower {
			p.tickBitmap.FlipTick(c.key.TickLower, p.cfg.TickSpacing) //nolint:errcheck // alignment validated by checkTicks
			if c.clearOnFlip {
				p.ticks.Clear(c.key.TickLower)
			}
		}
		if c.flippedUpper {
			p.tickBitmap.FlipTick(c.key.TickUpper, p.cfg.TickSpacing) //nolint:errcheck // alignment validated by checkTicks
			if c.clearOnFlip {
				p.ticks.Clear(c.key.TickUpper)
			}
		}
	}
	p.positions.Set(c.key, c.pos)
	p.liquidity = c.liquidity
}

// Mint adds liquidity to a position. It stages the change, collects the
// owed token amounts from the payer, verifies receipt against the pool's
// balances, and only then commits. Returned amounts are what the pool
// received.
func (p *Pool) Mint(sender, owner common.Address, tickLower, tickUpper int32, amount *uint256.Int, pay MintPayer) (*uint256.Int, *uint256.Int, error) {
	unlock, err := p.lock()
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	if amount.IsZero() || amount.Sign() < 0 {
		return nil, nil, ErrZeroAmount
	}

	change, err := p.stagePosition(owner, tickLower, tickUpper, amount)
	if err != nil {
		return nil, nil, err
	}
	amount0, amount1 := change.amount0, change.amount1

	if pay == nil {
		pay = func(a0, a1 *uint256.Int) error {
			if err := p.deps.Ledger.Transfer(p.cfg.Token0, sender, p.cfg.Address, a0); err != nil {
				return err
			}
			return p.deps.Ledger.Transfer(p.cfg.Token1, sender, p.cfg.Address, a1)
		}
	}

	balance0Before := p.deps.Ledger.BalanceOf(p.cfg.Token0, p.cfg.Address)
	balance1Before := p.deps.Ledger.BalanceOf(p.cfg.Token1, p.cfg.Address)
	if err := pay(amount0.Clone(), amount1.Clone()); err != nil {
		return nil, nil, err
	}
	if !amount0.IsZero() {
		owed := new(uint256.Int).Add(balance0Before, amount0)
		if p.deps.Ledger.BalanceOf(p.cfg.Token0, p.cfg.Address).Cmp(owed) < 0 {
			return nil, nil, ErrInsufficientPayment0
		}
	}
	if !amount1.IsZero() {
		owed := new(uint256.Int).Add(balance1Before, amount1)
		if p.deps.Ledger.BalanceOf(p.cfg.Token1, p.cfg.Address).Cmp(owed) < 0 {
			return nil, nil, ErrInsufficientPayment1
		}
	}

	p.commitPosition(change)

	p.log.Debug("mint",
		zap.String("owner", owner.Hex()),
		zap.Int32("tick_lower", tickLower),
		zap.Int32("tick_upper", tickUpper),
		zap.String("amount", amount.Dec()),
	)
	p.emit(model.EventMint, model.MintEventData{
		Sender:    sender.Hex(),
		Owner:     owner.Hex(),
		TickLower: tickLower,
		TickUpper: tickUpper,
		Amount:    amount.Dec(),
		Amount0:   amount0.Dec(),
		Amount1:   amount1.Dec(),
	})
	return amount0, amount1, nil
}

// Burn removes liquidity from the sender's position. The freed token
// amounts are not transferred; they are credited to the position's owed
// balances for a later Collect. A zero amount pokes the position so
// pending fees are brought current.
func (p *Pool) Burn(owner common.Address, tickLower, tickUpper int32, amount *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	unlock, err := p.lock()
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	if amount.Sign() < 0 {
		return nil, nil, ErrZeroAmount
	}

	delta := new(uint256.Int).Neg(amount)
	change, err := p.stagePosition(owner, tickLower, tickUpper, delta)
	if err != nil {
		return nil, nil, err
	}

	// Freed amounts come back negative; owed balances hold their
	// magnitude.
	amount0 := new(uint256.Int).Neg(change.amount0)
	amount1 := new(uint256.Int).Neg(change.amount1)
	if !amount.IsZero() && amount0.IsZero() && amount1.IsZero() {
		return nil, nil, ErrBurnAmountTooSmall
	}
	if !amount0.IsZero() || !amount1.IsZero() {
		change.pos.TokensOwed0 = new(uint256.Int).Add(change.pos.TokensOwed0, amount0)
		change.pos.TokensOwed1 = new(uint256.Int).Add(change.pos.TokensOwed1, amount1)
	}

	p.commitPosition(change)

	p.log.Debug("burn",
		zap.String("owner", owner.Hex()),
		zap.Int32("tick_lower", tickLower),
		zap.Int32("tick_upper", tickUpper),
		zap.String("amount", amount.Dec()),
	)
	p.emit(model.EventBurn, model.BurnEventData{
		Owner:     owner.Hex(),
		TickLower: tickLower,
		TickUpper: tickUpper,
		Amount:    amount.Dec(),
		Amount0:   amount0.Dec(),
		Amount1:   amount1.Dec(),
	})
	return amount0, amount1, nil
}

// Collect transfers accrued owed tokens from a position to the recipient,
// capped at the requested amounts.
func (p *Pool) Collect(owner, recipient common.Address, tickLower, tickUpper int32, amount0Requested, amount1Requested *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	unlock, err := p.lock()
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	key := position.Key{Owner: owner, TickLower: tickLower, TickUpper: tickUpper}
	pos, ok := p.positions.Lookup(key)
	if !ok {
		return uint256.NewInt(0), uint256.NewInt(0), nil
	}

	amount0 := uint256.NewInt(0)
	if amount0Requested.Cmp(pos.TokensOwed0) > 0 {
		amount0.Set(pos.TokensOwed0)
	} else {
		amount0.Set(amount0Requested)
	}
	amount1 := uint256.NewInt(0)
	if amount1Requested.Cmp(pos.TokensOwed1) > 0 {
		amount1.Set(pos.TokensOwed1)
	} else {
		amount1.Set(amount1Requested)
	}

	if err := p.deps.Ledger.Transfer(p.cfg.Token0, p.cfg.Address, recipient, amount0); err != nil {
		return nil, nil, err
	}
	if err := p.deps.Ledger.Transfer(p.cfg.Token1, p.cfg.Address, recipient, amount1); err != nil {
		return nil, nil, err
	}

	pos.TokensOwed0 = new(uint256.Int).Sub(pos.TokensOwed0, amount0)
	pos.TokensOwed1 = new(uint256.Int).Sub(pos.TokensOwed1, amount1)
	p.positions.Set(key, pos)

	p.emit(model.EventCollect, model.CollectEventData{
		Owner:     owner.Hex(),
		Recipient: recipient.Hex(),
		TickLower: tickLower,
		TickUpper: tickUpper,
		Amount0:   amount0.Dec(),
		Amount1:   amount1.Dec(),
	})
	return amount0, amount1, nil
}
