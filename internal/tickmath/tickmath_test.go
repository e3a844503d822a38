package tickmath

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestSqrtRatioAtTickZero(t *testing.T) {
	got, err := SqrtRatioAtTick(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := new(uint256.Int).Lsh(uint256.NewInt(1), 96)
	if !got.Eq(want) {
		t.Fatalf("tick 0 sqrt ratio mismatch: %s", got.Dec())
	}
}

func TestSqrtRatioAtTickBounds(t *testing.T) {
	min, err := SqrtRatioAtTick(MinTick)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !min.Eq(MinSqrtRatio) {
		t.Fatalf("min sqrt ratio mismatch: %s", min.Dec())
	}

	max, err := SqrtRatioAtTick(MaxTick)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !max.Eq(MaxSqrtRatio) {
		t.Fatalf("max sqrt ratio mismatch: %s", max.Dec())
	}
}

func TestSqrtRatioAtTickOutOfRange(t *testing.T) {
	if _, err := SqrtRatioAtTick(MinTick - 1); err != ErrTickOutOfRange {
		t.Fatalf("expected range error, got %v", err)
	}
	if _, err := SqrtRatioAtTick(MaxTick + 1); err != ErrTickOutOfRange {
		t.Fatalf("expected range error, got %v", err)
	}
}

func TestSqrtRatioAtTickMonotonic(t *testing.T) {
	ticks := []int32{MinTick, -887220, -250000, -600, -60, -1, 0, 1, 60, 600, 250000, 887220, MaxTick}
	var prev *uint256.Int
	for _, tick := range ticks {
		ratio, err := SqrtRatioAtTick(tick)
		if err != nil {
			t.Fatalf("tick %d: %v", tick, err)
		}
		if prev != nil && ratio.Cmp(prev) <= 0 {
			t.Fatalf("sqrt ratio not increasing at tick %d", tick)
		}
		prev = ratio
	}
}

func TestTickAtSqrtRatioRoundTrip(t *testing.T) {
	ticks := []int32{MinTick, -887220, -123456, -600, -60, -1, 0, 1, 60, 600, 123456, 887220, MaxTick - 1}
	for _, tick := range ticks {
		ratio, err := SqrtRatioAtTick(tick)
		if err != nil {
			t.Fatalf("tick %d: %v", tick, err)
		}
		got, err := TickAtSqrtRatio(ratio)
		if err != nil {
			t.Fatalf("tick %d: %v", tick, err)
		}
		if got != tick {
			t.Fatalf("round trip mismatch: %d -> %d", tick, got)
		}
	}
}

func TestTickAtSqrtRatioOutOfRange(t *testing.T) {
	below := new(uint256.Int).SubUint64(MinSqrtRatio, 1)
	if _, err := TickAtSqrtRatio(below); err != ErrSqrtRatioOutOfRange {
		t.Fatalf("expected range error, got %v", err)
	}
	// The max ratio itself is exclusive.
	if _, err := TickAtSqrtRatio(MaxSqrtRatio); err != ErrSqrtRatioOutOfRange {
		t.Fatalf("expected range error, got %v", err)
	}
}

func TestMaxLiquidityPerTick(t *testing.T) {
	got := MaxLiquidityPerTick(60)
	want, err := uint256.FromDecimal("11505743598341114571880798222544994")
	if err != nil {
		t.Fatalf("parse want: %v", err)
	}
	if !got.Eq(want) {
		t.Fatalf("max liquidity per tick mismatch: %s", got.Dec())
	}
}
