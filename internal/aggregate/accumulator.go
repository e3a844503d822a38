package aggregate

import (
	"encoding/json"
	"fmt"
	"math/big"

	"clpool/internal/model"
)

// Accumulator holds aggregate values for one pool window.
type Accumulator struct {
	PoolAddress string
	Fee         uint32
	WindowStart uint32
	WindowEnd   uint32
	SwapCount   uint64
	MintCount   uint64
	BurnCount   uint64
	FlashCount  uint64
	Volume0     *big.Int
	Volume1     *big.Int
	Fee0        *big.Int
	Fee1        *big.Int

	LastTS           uint32
	LastSqrtPriceX96 string
	LastTick         int32
	LastLiquidity    string
}

func NewAccumulator(poolAddress string, fee uint32, windowStart, windowEnd uint32) *Accumulator {
	return &Accumulator{
		PoolAddress: poolAddress,
		Fee:         fee,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		Volume0:     big.NewInt(0),
		Volume1:     big.NewInt(0),
		Fee0:        big.NewInt(0),
		Fee1:        big.NewInt(0),
	}
}

// AddEvent folds one event record into the window.
func (a *Accumulator) AddEvent(record model.EventRecord) error {
	if record.Timestamp >= a.LastTS {
		a.LastTS = record.Timestamp
	}

	switch record.Name {
	case model.EventSwap:
		var swap model.SwapEventData
		if err := json.Unmarshal(record.Data, &swap); err != nil {
			return fmt.Errorf("decode swap: %w", err)
		}
		return a.applySwap(swap)
	case model.EventMint:
		a.MintCount++
	case model.EventBurn:
		a.BurnCount++
	case model.EventFlash:
		var flash model.FlashEventData
		if err := json.Unmarshal(record.Data, &flash); err != nil {
			return fmt.Errorf("decode flash: %w", err)
		}
		return a.applyFlash(flash)
	}
	return nil
}

func (a *Accumulator) applySwap(swap model.SwapEventData) error {
	amount0, err := parseBigInt(swap.Amount0)
	if err != nil {
		return err
	}
	amount1, err := parseBigInt(swap.Amount1)
	if err != nil {
		return err
	}

	absAdd(a.Volume0, amount0)
	absAdd(a.Volume1, amount1)

	// Fees stay on the input side; approximate from the fee tier.
	if a.Fee > 0 {
		if amount0.Sign() > 0 {
			a.Fee0.Add(a.Fee0, feeFromAmount(amount0, a.Fee))
		} else if amount1.Sign() > 0 {
			a.Fee1.Add(a.Fee1, feeFromAmount(amount1, a.Fee))
		}
	}

	a.SwapCount++
	a.LastSqrtPriceX96 = swap.SqrtPriceX96
	a.LastTick = swap.Tick
	a.LastLiquidity = swap.Liquidity
	return nil
}

func (a *Accumulator) applyFlash(flash model.FlashEventData) error {
	paid0, err := parseBigInt(flash.Paid0)
	if err != nil {
		return err
	}
	paid1, err := parseBigInt(flash.Paid1)
	if err != nil {
		return err
	}
	a.Fee0.Add(a.Fee0, paid0)
	a.Fee1.Add(a.Fee1, paid1)
	a.FlashCount++
	return nil
}

// Metrics renders the window as a storable record.
func (a *Accumulator) Metrics(windowSizeSecs uint32) model.PoolWindowMetrics {
	return model.PoolWindowMetrics{
		PoolAddress:     a.PoolAddress,
		WindowSizeSecs:  windowSizeSecs,
		WindowStart:     a.WindowStart,
		WindowEnd:       a.WindowEnd,
		SwapCount:       a.SwapCount,
		MintCount:       a.MintCount,
		BurnCount:       a.BurnCount,
		FlashCount:      a.FlashCount,
		Volume0:         a.Volume0.String(),
		Volume1:         a.Volume1.String(),
		Fee0:            a.Fee0.String(),
		Fee1:            a.Fee1.String(),
		EndSqrtPriceX96: a.LastSqrtPriceX96,
		EndTick:         a.LastTick,
		EndLiquidity:    a.LastLiquidity,
	}
}

func parseBigInt(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid int: %s", value)
	}
	return parsed, nil
}

func absAdd(target *big.Int, value *big.Int) {
	if value == nil || target == nil {
		return
	}
	abs := new(big.Int).Abs(value)
	target.Add(target, abs)
}

func feeFromAmount(amountIn *big.Int, feeRate uint32) *big.Int {
	fee := new(big.Int).Abs(amountIn)
	fee.Mul(fee, big.NewInt(int64(feeRate)))
	fee.Div(fee, big.NewInt(1_000_000))
	return fee
}
