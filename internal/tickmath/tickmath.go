// Package tickmath converts between tick indices and Q64.96 square-root
// prices. A tick i corresponds to sqrt(1.0001^i) * 2^96; the conversion is
// exact over the full [MinTick, MaxTick] range.
package tickmath

import (
	"errors"

	"github.com/holiman/uint256"
)

const (
	// MinTick is the lowest tick usable in any pool.
	MinTick int32 = -887272
	// MaxTick is the highest tick usable in any pool.
	MaxTick int32 = -MinTick
)

var (
	// MinSqrtRatio is the sqrt price at MinTick.
	MinSqrtRatio = uint256.NewInt(4295128739)
	// MaxSqrtRatio is the sqrt price at MaxTick.
	MaxSqrtRatio = mustFromDecimal("1461446703485210103287273052203988822378723970342")

	ErrTickOutOfRange      = errors.New("tickmath: tick out of range")
	ErrSqrtRatioOutOfRange = errors.New("tickmath: sqrt ratio out of range")
)

var (
	one        = uint256.NewInt(1)
	q32        = uint256.NewInt(1 << 32)
	maxUint256 = new(uint256.Int).Not(new(uint256.Int))

	// sqrt(1.0001^(2^i)) in Q128.128 for i = 1..19; bit 0 uses ratioBase.
	mulConstants = [19]*uint256.Int{
		mustFromHex("0xfff97272373d413259a46990580e213a"),
		mustFromHex("0xfff2e50f5f656932ef12357cf3c7fdcc"),
		mustFromHex("0xffe5caca7e10e4e61c3624eaa0941cd0"),
		mustFromHex("0xffcb9843d60f6159c9db58835c926644"),
		mustFromHex("0xff973b41fa98c081472e6896dfb254c0"),
		mustFromHex("0xff2ea16466c96a3843ec78b326b52861"),
		mustFromHex("0xfe5dee046a99a2a811c461f1969c3053"),
		mustFromHex("0xfcbe86c7900a88aedcffc83b479aa3a4"),
		mustFromHex("0xf987a7253ac413176f2b074cf7815e54"),
		mustFromHex("0xf3392b0822b70005940c7a398e4b70f3"),
		mustFromHex("0xe7159475a2c29b7443b29c7fa6e889d9"),
		mustFromHex("0xd097f3bdfd2022b8845ad8f792aa5825"),
		mustFromHex("0xa9f746462d870fdf8a65dc1f90e061e5"),
		mustFromHex("0x70d869a156d2a1b890bb3df62baf32f7"),
		mustFromHex("0x31be135f97d08fd981231505542fcfa6"),
		mustFromHex("0x9aa508b5b7a84e1c677de54f3e99bc9"),
		mustFromHex("0x5d6af8dedb81196699c329225ee604"),
		mustFromHex("0x2216e584f5fa1ea926041bedfe98"),
		mustFromHex("0x48a170391f7dc42444e8fa2"),
	}

	ratioBaseOdd  = mustFromHex("0xfffcb933bd6fad37aa2d162d1a594001")
	ratioBaseEven = mustFromHex("0x100000000000000000000000000000000")

	magicSqrt10001 = mustFromHex("0x3627a301d71055774c85")
	magicTickLow   = mustFromHex("0x28f6481ab7f045a5af012a19d003aaa")
	magicTickHigh  = mustFromHex("0xdb2df09e81959a81455e260799a0632f")
)

func mustFromHex(s string) *uint256.Int {
	v, err := uint256.FromHex(s)
	if err != nil {
		panic(err)
	}
	return v
}

func mustFromDecimal(s string) *uint256.Int {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		panic(err)
	}
	return v
}

// SqrtRatioAtTick returns the Q64.96 sqrt price for a tick. The result is
// monotonically increasing in tick and lies in [MinSqrtRatio, MaxSqrtRatio].
func SqrtRatioAtTick(tick int32) (*uint256.Int, error) {
	if tick < MinTick || tick > MaxTick {
		return nil, ErrTickOutOfRange
	}
	absTick := uint32(tick)
	if tick < 0 {
		absTick = uint32(-tick)
	}

	var ratio *uint256.Int
	if absTick&0x1 != 0 {
		ratio = ratioBaseOdd.Clone()
	} else {
		ratio = ratioBaseEven.Clone()
	}
	for i, c := range mulConstants {
		if absTick&(uint32(1)<<(uint(i)+1)) != 0 {
			ratio.Rsh(ratio.Mul(ratio, c), 128)
		}
	}

	if tick > 0 {
		ratio = new(uint256.Int).Div(maxUint256, ratio)
	}

	// Round up on the Q128 -> Q96 conversion so the round trip through
	// TickAtSqrtRatio lands on the same tick.
	result := new(uint256.Int).Div(ratio, q32)
	if !new(uint256.Int).Mod(ratio, q32).IsZero() {
		result.Add(result, one)
	}
	return result, nil
}

// TickAtSqrtRatio returns the largest tick whose sqrt ratio is at most the
// given Q64.96 sqrt price. The price must be in [MinSqrtRatio, MaxSqrtRatio).
func TickAtSqrtRatio(sqrtRatioX96 *uint256.Int) (int32, error) {
	if sqrtRatioX96.Cmp(MinSqrtRatio) < 0 || sqrtRatioX96.Cmp(MaxSqrtRatio) >= 0 {
		return 0, ErrSqrtRatioOutOfRange
	}

	sqrtRatioX128 := new(uint256.Int).Lsh(sqrtRatioX96, 32)
	msb := uint(sqrtRatioX128.BitLen() - 1)

	var r *uint256.Int
	if msb >= 128 {
		r = new(uint256.Int).Rsh(sqrtRatioX128, msb-127)
	} else {
		r = new(uint256.Int).Lsh(sqrtRatioX128, 127-msb)
	}

	// log2 in signed Q64.64, then refined 14 bits by repeated squaring.
	log2 := new(uint256.Int).Lsh(
		new(uint256.Int).Sub(uint256.NewInt(uint64(msb)), uint256.NewInt(128)), 64)

	for i := 0; i < 14; i++ {
		r.Rsh(r.Mul(r, r), 127)
		f := new(uint256.Int).Rsh(r, 128)
		log2.Or(log2, new(uint256.Int).Lsh(f, uint(63-i)))
		r.Rsh(r, uint(f.Uint64()))
	}

	logSqrt10001 := new(uint256.Int).Mul(log2, magicSqrt10001)

	tickLow := int32(new(uint256.Int).Rsh(
		new(uint256.Int).Sub(logSqrt10001, magicTickLow), 128).Uint64())
	tickHigh := int32(new(uint256.Int).Rsh(
		new(uint256.Int).Add(logSqrt10001, magicTickHigh), 128).Uint64())

	if tickLow == tickHigh {
		return tickLow, nil
	}
	ratioHigh, err := SqrtRatioAtTick(tickHigh)
	if err != nil {
		return 0, err
	}
	if ratioHigh.Cmp(sqrtRatioX96) <= 0 {
		return tickHigh, nil
	}
	return tickLow, nil
}

// MaxLiquidityPerTick returns the maximum gross liquidity any single tick
// may reference for the given spacing, so that the sum across all usable
// ticks cannot overflow 128 bits.
func MaxLiquidityPerTick(tickSpacing int32) *uint256.Int {
	minTick := (MinTick / tickSpacing) * tickSpacing
	maxTick := (MaxTick / tickSpacing) * tickSpacing
	numTicks := uint64((maxTick-minTick)/tickSpacing) + 1

	maxUint128 := new(uint256.Int).SubUint64(new(uint256.Int).Lsh(one, 128), 1)
	return maxUint128.Div(maxUint128, uint256.NewInt(numTicks))
}
