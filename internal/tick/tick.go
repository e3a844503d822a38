// Package tick tracks per-tick liquidity bookkeeping and the initialized
// tick bitmap.
package tick

import (
	"github.com/holiman/uint256"

	"clpool/internal/liquiditymath"
)

// Info carries the state kept for each initialized tick. Outside values
// follow the relative convention: they are meaningful only in relation to a
// given point in time and flip every time the tick is crossed.
//
// Info values returned by Registry.Get are safe to mutate through Update
// and write back with Set; Update never mutates the shared big integers in
// place.
type Info struct {
	LiquidityGross                 *uint256.Int
	LiquidityNet                   *uint256.Int
	FeeGrowthOutside0X128          *uint256.Int
	FeeGrowthOutside1X128          *uint256.Int
	TickCumulativeOutside          int64
	SecondsPerLiquidityOutsideX128 *uint256.Int
	SecondsOutside                 uint32
	Initialized                    bool
}

func newInfo() Info {
	return Info{
		LiquidityGross:                 uint256.NewInt(0),
		LiquidityNet:                   uint256.NewInt(0),
		FeeGrowthOutside0X128:          uint256.NewInt(0),
		FeeGrowthOutside1X128:          uint256.NewInt(0),
		SecondsPerLiquidityOutsideX128: uint256.NewInt(0),
	}
}

// Update applies a signed liquidity delta to the tick and returns whether
// the tick flipped between initialized and uninitialized. When a tick is
// initialized at or below the current tick its outside values are seeded
// from the running global accumulators.
func (i *Info) Update(
	tick, tickCurrent int32,
	liquidityDelta *uint256.Int,
	feeGrowthGlobal0X128, feeGrowthGlobal1X128 *uint256.Int,
	secondsPerLiquidityCumulativeX128 *uint256.Int,
	tickCumulative int64,
	time uint32,
	upper bool,
	maxLiquidity *uint256.Int,
) (bool, error) {
	liquidityGrossBefore := i.LiquidityGross
	liquidityGrossAfter, err := liquiditymath.AddDelta(liquidityGrossBefore, liquidityDelta)
	if err != nil {
		return false, err
	}
	if liquidityGrossAfter.Cmp(maxLiquidity) > 0 {
		return false, liquiditymath.ErrLiquidityOverflow
	}

	flipped := liquidityGrossAfter.IsZero() != liquidityGrossBefore.IsZero()

	if liquidityGrossBefore.IsZero() {
		if tick <= tickCurrent {
			i.FeeGrowthOutside0X128 = feeGrowthGlobal0X128.Clone()
			i.FeeGrowthOutside1X128 = feeGrowthGlobal1X128.Clone()
			i.SecondsPerLiquidityOutsideX128 = secondsPerLiquidityCumulativeX128.Clone()
			i.TickCumulativeOutside = tickCumulative
			i.SecondsOutside = time
		}
		i.Initialized = true
	}

	i.LiquidityGross = liquidityGrossAfter

	if upper {
		i.LiquidityNet = new(uint256.Int).Sub(i.LiquidityNet, liquidityDelta)
	} else {
		i.LiquidityNet = new(uint256.Int).Add(i.LiquidityNet, liquidityDelta)
	}

	return flipped, nil
}

// Registry stores tick state keyed by tick index.
type Registry struct {
	ticks map[int32]Info
}

func NewRegistry() *Registry {
	return &Registry{ticks: make(map[int32]Info)}
}

// Get returns the tick's info, or a zero-valued info if the tick has never
// been touched.
func (r *Registry) Get(tick int32) Info {
	if info, ok := r.ticks[tick]; ok {
		return info
	}
	return newInfo()
}

// Set stores the tick's info.
func (r *Registry) Set(tick int32, info Info) {
	r.ticks[tick] = info
}

// Clear removes the tick's state entirely.
func (r *Registry) Clear(tick int32) {
	delete(r.ticks, tick)
}

// Cross flips the tick's outside accumulators against the current globals
// and returns the tick's net liquidity.
func (r *Registry) Cross(
	tick int32,
	feeGrowthGlobal0X128, feeGrowthGlobal1X128 *uint256.Int,
	secondsPerLiquidityCumulativeX128 *uint256.Int,
	tickCumulative int64,
	time uint32,
) *uint256.Int {
	info, ok := r.ticks[tick]
	if !ok {
		info = newInfo()
	}
	info.FeeGrowthOutside0X128 = new(uint256.Int).Sub(feeGrowthGlobal0X128, info.FeeGrowthOutside0X128)
	info.FeeGrowthOutside1X128 = new(uint256.Int).Sub(feeGrowthGlobal1X128, info.FeeGrowthOutside1X128)
	info.SecondsPerLiquidityOutsideX128 = new(uint256.Int).Sub(secondsPerLiquidityCumulativeX128, info.SecondsPerLiquidityOutsideX128)
	info.TickCumulativeOutside = tickCumulative - info.TickCumulativeOutside
	info.SecondsOutside = time - info.SecondsOutside
	r.ticks[tick] = info
	return info.LiquidityNet.Clone()
}

// LiquidityNet returns the tick's net liquidity without mutating anything.
func (r *Registry) LiquidityNet(tick int32) *uint256.Int {
	if info, ok := r.ticks[tick]; ok {
		return info.LiquidityNet.Clone()
	}
	return uint256.NewInt(0)
}

// FeeGrowthInside computes the fee growth accrued inside a tick range, per
// unit of liquidity, from the range boundary infos. The subtractions wrap
// modulo 2^256, which keeps later differences against position snapshots
// correct after wraparound.
func FeeGrowthInside(
	lower, upper Info,
	tickLower, tickUpper, tickCurrent int32,
	feeGrowthGlobal0X128, feeGrowthGlobal1X128 *uint256.Int,
) (*uint256.Int, *uint256.Int) {
	var below0, below1 *uint256.Int
	if tickCurrent >= tickLower {
		below0 = lower.FeeGrowthOutside0X128
		below1 = lower.FeeGrowthOutside1X128
	} else {
		below0 = new(uint256.Int).Sub(feeGrowthGlobal0X128, lower.FeeGrowthOutside0X128)
		below1 = new(uint256.Int).Sub(feeGrowthGlobal1X128, lower.FeeGrowthOutside1X128)
	}

	var above0, above1 *uint256.Int
	if tickCurrent < tickUpper {
		above0 = upper.FeeGrowthOutside0X128
		above1 = upper.FeeGrowthOutside1X128
	} else {
		above0 = new(uint256.Int).Sub(feeGrowthGlobal0X128, upper.FeeGrowthOutside0X128)
		above1 = new(uint256.Int).Sub(feeGrowthGlobal1X128, upper.FeeGrowthOutside1X128)
	}

	inside0 := new(uint256.Int).Sub(new(uint256.Int).Sub(feeGrowthGlobal0X128, below0), above0)
	inside1 := new(uint256.Int).Sub(new(uint256.Int).Sub(feeGrowthGlobal1X128, below1), above1)
	return inside0, inside1
}

// FeeGrowthInside is the registry convenience form of the package function.
func (r *Registry) FeeGrowthInside(
	tickLower, tickUpper, tickCurrent int32,
	feeGrowthGlobal0X128, feeGrowthGlobal1X128 *uint256.Int,
) (*uint256.Int, *uint256.Int) {
	return FeeGrowthInside(r.Get(tickLower), r.Get(tickUpper), tickLower, tickUpper, tickCurrent, feeGrowthGlobal0X128, feeGrowthGlobal1X128)
}
