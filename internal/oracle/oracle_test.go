package oracle

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestObserveSingleAtInitialization(t *testing.T) {
	b := NewBuffer()
	b.Initialize(1)

	tickCumulative, perLiq, err := b.ObserveSingle(1, 0, 5, uint256.NewInt(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tickCumulative != 0 {
		t.Fatalf("tick cumulative mismatch: %d", tickCumulative)
	}
	if !perLiq.IsZero() {
		t.Fatalf("per-liquidity cumulative mismatch: %s", perLiq.Dec())
	}
}

func TestObserveSingleExtrapolatesCurrent(t *testing.T) {
	b := NewBuffer()
	b.Initialize(1)

	// No write since initialization; the last observation is projected
	// forward through the prevailing tick.
	tickCumulative, perLiq, err := b.ObserveSingle(11, 0, 5, uint256.NewInt(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tickCumulative != 50 {
		t.Fatalf("tick cumulative mismatch: %d", tickCumulative)
	}
	want := new(uint256.Int).Lsh(uint256.NewInt(5), 128)
	if !perLiq.Eq(want) {
		t.Fatalf("per-liquidity cumulative mismatch: %s", perLiq.Dec())
	}
}

func TestWriteAdvancesAccumulators(t *testing.T) {
	b := NewBuffer()
	b.Initialize(1)

	index, cardinality := b.Write(11, 5, uint256.NewInt(2))
	if index != 0 || cardinality != 1 {
		t.Fatalf("write position mismatch: index=%d cardinality=%d", index, cardinality)
	}

	obs := b.At(index)
	if obs.TickCumulative != 50 {
		t.Fatalf("tick cumulative mismatch: %d", obs.TickCumulative)
	}
	if obs.BlockTimestamp != 11 {
		t.Fatalf("timestamp mismatch: %d", obs.BlockTimestamp)
	}
}

func TestWriteSameTimestampNoop(t *testing.T) {
	b := NewBuffer()
	b.Initialize(10)

	index, cardinality := b.Write(10, 5, uint256.NewInt(1))
	if index != 0 || cardinality != 1 {
		t.Fatalf("same-timestamp write must not advance: index=%d cardinality=%d", index, cardinality)
	}
	if b.At(0).TickCumulative != 0 {
		t.Fatalf("same-timestamp write must not accumulate")
	}
}

func TestGrow(t *testing.T) {
	b := NewBuffer()
	if got := b.Grow(4); got != 0 {
		t.Fatalf("grow before initialize must be refused, got %d", got)
	}

	b.Initialize(1)
	if got := b.Grow(4); got != 4 {
		t.Fatalf("grow mismatch: %d", got)
	}
	if got := b.Grow(2); got != 4 {
		t.Fatalf("shrinking grow must be a no-op, got %d", got)
	}
	if b.Cardinality() != 1 {
		t.Fatalf("cardinality must stay until slots are written: %d", b.Cardinality())
	}

	// The next write past the old cardinality realizes the growth.
	_, cardinality := b.Write(11, 5, uint256.NewInt(1))
	if cardinality != 4 {
		t.Fatalf("cardinality after growth mismatch: %d", cardinality)
	}
}

func TestObserveSingleInterpolates(t *testing.T) {
	b := NewBuffer()
	b.Initialize(1)
	b.Grow(2)
	b.Write(11, 5, uint256.NewInt(1))

	// Target time 6 sits between the observations at 1 and 11.
	tickCumulative, _, err := b.ObserveSingle(11, 5, 5, uint256.NewInt(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tickCumulative != 25 {
		t.Fatalf("interpolated tick cumulative mismatch: %d", tickCumulative)
	}
}

func TestObserveSingleTargetTooOld(t *testing.T) {
	b := NewBuffer()
	b.Initialize(100)

	if _, _, err := b.ObserveSingle(110, 20, 5, uint256.NewInt(1)); err != ErrTargetTooOld {
		t.Fatalf("expected too-old error, got %v", err)
	}
}

func TestObserveSingleUninitialized(t *testing.T) {
	b := NewBuffer()
	if _, _, err := b.ObserveSingle(1, 0, 0, uint256.NewInt(1)); err != ErrNotInitialized {
		t.Fatalf("expected not-initialized error, got %v", err)
	}
}

func TestObserveMultiple(t *testing.T) {
	b := NewBuffer()
	b.Initialize(1)

	ticks, perLiqs, err := b.Observe(11, []uint32{0, 10}, 5, uint256.NewInt(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ticks) != 2 || len(perLiqs) != 2 {
		t.Fatalf("result length mismatch: %d, %d", len(ticks), len(perLiqs))
	}
	if ticks[0] != 50 || ticks[1] != 0 {
		t.Fatalf("tick cumulatives mismatch: %v", ticks)
	}
}
