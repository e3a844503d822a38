// Package position tracks per-owner liquidity positions and the fees they
// have accrued.
package position

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"clpool/internal/fullmath"
	"clpool/internal/liquiditymath"
)

// ErrNoPosition is returned when poking a position that holds no liquidity
// with a zero delta.
var ErrNoPosition = errors.New("position: no liquidity")

var q128 = new(uint256.Int).Lsh(uint256.NewInt(1), 128)

// Key identifies a position by its owner and tick range.
type Key struct {
	Owner     common.Address
	TickLower int32
	TickUpper int32
}

// Info is the state of a single position. TokensOwed amounts are collectable
// balances; they saturate silently if fees outgrow 128 bits before a
// collect, matching the accumulator wrap convention.
type Info struct {
	Liquidity                *uint256.Int
	FeeGrowthInside0LastX128 *uint256.Int
	FeeGrowthInside1LastX128 *uint256.Int
	TokensOwed0              *uint256.Int
	TokensOwed1              *uint256.Int
}

func newInfo() Info {
	return Info{
		Liquidity:                uint256.NewInt(0),
		FeeGrowthInside0LastX128: uint256.NewInt(0),
		FeeGrowthInside1LastX128: uint256.NewInt(0),
		TokensOwed0:              uint256.NewInt(0),
		TokensOwed1:              uint256.NewInt(0),
	}
}

// Ledger stores positions keyed by owner and range. Info values returned by
// Snapshot are safe to mutate through Update and write back with Set;
// Update never mutates the shared big integers in place.
type Ledger struct {
	positions map[Key]Info
}

func NewLedger() *Ledger {
	return &Ledger{positions: make(map[Key]Info)}
}

// Snapshot returns the position for the key, zero-valued if absent.
func (l *Ledger) Snapshot(key Key) Info {
	if info, ok := l.positions[key]; ok {
		return info
	}
	return newInfo()
}

// Set stores the position.
func (l *Ledger) Set(key Key, info Info) {
	l.positions[key] = info
}

// Lookup returns the position without creating it.
func (l *Ledger) Lookup(key Key) (Info, bool) {
	info, ok := l.positions[key]
	return info, ok
}

// Update applies a liquidity delta to the position and credits fees accrued
// since the last touch, derived from the range's inside fee growth.
func (i *Info) Update(liquidityDelta, feeGrowthInside0X128, feeGrowthInside1X128 *uint256.Int) error {
	var liquidityNext *uint256.Int
	if liquidityDelta.IsZero() {
		if i.Liquidity.IsZero() {
			return ErrNoPosition
		}
		liquidityNext = i.Liquidity
	} else {
		var err error
		liquidityNext, err = liquiditymath.AddDelta(i.Liquidity, liquidityDelta)
		if err != nil {
			return err
		}
	}

	// Differences wrap modulo 2^256 against the stored snapshots.
	growth0 := new(uint256.Int).Sub(feeGrowthInside0X128, i.FeeGrowthInside0LastX128)
	growth1 := new(uint256.Int).Sub(feeGrowthInside1X128, i.FeeGrowthInside1LastX128)

	owed0, err := fullmath.MulDiv(growth0, i.Liquidity, q128)
	if err != nil {
		return err
	}
	owed1, err := fullmath.MulDiv(growth1, i.Liquidity, q128)
	if err != nil {
		return err
	}

	i.Liquidity = liquidityNext
	i.FeeGrowthInside0LastX128 = feeGrowthInside0X128.Clone()
	i.FeeGrowthInside1LastX128 = feeGrowthInside1X128.Clone()
	if !owed0.IsZero() || !owed1.IsZero() {
		i.TokensOwed0 = new(uint256.Int).Add(i.TokensOwed0, owed0)
		i.TokensOwed1 = new(uint256.Int).Add(i.TokensOwed1, owed1)
	}
	return nil
}
