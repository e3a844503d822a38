// Package oracle maintains a ring buffer of cumulative tick and liquidity
// observations so callers can query time-weighted averages over past windows.
package oracle

import (
	"errors"

	"github.com/holiman/uint256"
)

var (
	// ErrNotInitialized is returned when observing before the first write.
	ErrNotInitialized = errors.New("oracle: not initialized")
	// ErrTargetTooOld is returned when the requested time predates the
	// oldest stored observation.
	ErrTargetTooOld = errors.New("oracle: target predates oldest observation")
)

// Observation is one accumulator snapshot. Timestamps are uint32 seconds and
// comparisons are performed modulo 2^32, so the buffer stays correct across
// timestamp wraparound.
type Observation struct {
	BlockTimestamp                    uint32
	TickCumulative                    int64
	SecondsPerLiquidityCumulativeX128 *uint256.Int
	Initialized                       bool
}

// Buffer is the observation ring buffer. Cardinality is the number of
// populated slots; CardinalityNext is the size the buffer will grow into as
// new slots are written.
type Buffer struct {
	observations    []Observation
	index           uint16
	cardinality     uint16
	cardinalityNext uint16
}

// MaxCardinality bounds how far the buffer can grow.
const MaxCardinality = 65535

func NewBuffer() *Buffer {
	return &Buffer{}
}

func (b *Buffer) Index() uint16           { return b.index }
func (b *Buffer) Cardinality() uint16     { return b.cardinality }
func (b *Buffer) CardinalityNext() uint16 { return b.cardinalityNext }

// At returns the observation in the given slot.
func (b *Buffer) At(i uint16) Observation {
	if int(i) >= len(b.observations) {
		return Observation{SecondsPerLiquidityCumulativeX128: uint256.NewInt(0)}
	}
	return b.observations[i]
}

// Initialize writes the first observation at the given time.
func (b *Buffer) Initialize(time uint32) {
	b.observations = []Observation{{
		BlockTimestamp:                    time,
		SecondsPerLiquidityCumulativeX128: uint256.NewInt(0),
		Initialized:                       true,
	}}
	b.index = 0
	b.cardinality = 1
	b.cardinalityNext = 1
}

// transform projects an observation forward to the given time using the
// prevailing tick and liquidity.
func transform(last Observation, time uint32, tick int32, liquidity *uint256.Int) Observation {
	delta := time - last.BlockTimestamp
	perLiq := liquidity
	if perLiq.IsZero() {
		perLiq = uint256.NewInt(1)
	}
	increment := new(uint256.Int).Lsh(uint256.NewInt(uint64(delta)), 128)
	increment.Div(increment, perLiq)
	return Observation{
		BlockTimestamp:                    time,
		TickCumulative:                    last.TickCumulative + int64(tick)*int64(delta),
		SecondsPerLiquidityCumulativeX128: new(uint256.Int).Add(last.SecondsPerLiquidityCumulativeX128, increment),
		Initialized:                       true,
	}
}

// Write records a new observation if time has advanced since the last one.
// At most one slot of pending growth is realized per write. It returns the
// updated index and cardinality.
func (b *Buffer) Write(time uint32, tick int32, liquidity *uint256.Int) (uint16, uint16) {
	last := b.observations[b.index]
	if last.BlockTimestamp == time {
		return b.index, b.cardinality
	}

	cardinalityUpdated := b.cardinality
	if b.cardinalityNext > b.cardinality && b.index == b.cardinality-1 {
		cardinalityUpdated = b.cardinalityNext
	}

	indexUpdated := (b.index + 1) % cardinalityUpdated
	b.observations[indexUpdated] = transform(last, time, tick, liquidity)
	b.index = indexUpdated
	b.cardinality = cardinalityUpdated
	return indexUpdated, cardinalityUpdated
}

// Grow raises the target cardinality, allocating slots eagerly so future
// writes stay cheap. Slots are marked uninitialized until written.
func (b *Buffer) Grow(next uint16) uint16 {
	if b.cardinalityNext == 0 || next <= b.cardinalityNext {
		return b.cardinalityNext
	}
	for i := b.cardinalityNext; i < next; i++ {
		b.observations = append(b.observations, Observation{
			BlockTimestamp:                    1,
			SecondsPerLiquidityCumulativeX128: uint256.NewInt(0),
		})
	}
	b.cardinalityNext = next
	return next
}

// lte reports whether a <= b in circular uint32 time, anchored at the
// current time.
func lte(time, a, b uint32) bool {
	if a <= time && b <= time {
		return a <= b
	}
	var aAdj, bAdj uint64
	if a > time {
		aAdj = uint64(a)
	} else {
		aAdj = uint64(a) + (1 << 32)
	}
	if b > time {
		bAdj = uint64(b)
	} else {
		bAdj = uint64(b) + (1 << 32)
	}
	return aAdj <= bAdj
}

// binarySearch finds the observations bracketing the target time. The target
// must be known to lie within the stored history.
func (b *Buffer) binarySearch(time, target uint32) (Observation, Observation) {
	l := (uint32(b.index) + 1) % uint32(b.cardinality)
	r := l + uint32(b.cardinality) - 1

	var beforeOrAt, atOrAfter Observation
	for {
		i := (l + r) / 2
		beforeOrAt = b.observations[i%uint32(b.cardinality)]

		if !beforeOrAt.Initialized {
			l = i + 1
			continue
		}

		atOrAfter = b.observations[(i+1)%uint32(b.cardinality)]

		if lte(time, beforeOrAt.BlockTimestamp, target) {
			if lte(time, target, atOrAfter.BlockTimestamp) {
				return beforeOrAt, atOrAfter
			}
			l = i + 1
		} else {
			r = i - 1
		}
	}
}

func (b *Buffer) surroundingObservations(time, target uint32, tick int32, liquidity *uint256.Int) (Observation, Observation, error) {
	beforeOrAt := b.observations[b.index]

	if lte(time, beforeOrAt.BlockTimestamp, target) {
		if beforeOrAt.BlockTimestamp == target {
			return beforeOrAt, Observation{}, nil
		}
		return beforeOrAt, transform(beforeOrAt, target, tick, liquidity), nil
	}

	oldest := b.observations[(b.index+1)%b.cardinality]
	if !oldest.Initialized {
		oldest = b.observations[0]
	}
	beforeOrAt = oldest

	if !lte(time, beforeOrAt.BlockTimestamp, target) {
		return Observation{}, Observation{}, ErrTargetTooOld
	}

	lo, hi := b.binarySearch(time, target)
	return lo, hi, nil
}

// ObserveSingle returns the cumulative values as of secondsAgo before time,
// interpolating between stored observations when the target falls between
// two snapshots.
func (b *Buffer) ObserveSingle(time uint32, secondsAgo uint32, tick int32, liquidity *uint256.Int) (int64, *uint256.Int, error) {
	if b.cardinality == 0 {
		return 0, nil, ErrNotInitialized
	}

	if secondsAgo == 0 {
		last := b.observations[b.index]
		if last.BlockTimestamp != time {
			last = transform(last, time, tick, liquidity)
		}
		return last.TickCumulative, last.SecondsPerLiquidityCumulativeX128, nil
	}

	target := time - secondsAgo
	beforeOrAt, atOrAfter, err := b.surroundingObservations(time, target, tick, liquidity)
	if err != nil {
		return 0, nil, err
	}

	if beforeOrAt.BlockTimestamp == target {
		return beforeOrAt.TickCumulative, beforeOrAt.SecondsPerLiquidityCumulativeX128, nil
	}
	if atOrAfter.BlockTimestamp == target {
		return atOrAfter.TickCumulative, atOrAfter.SecondsPerLiquidityCumulativeX128, nil
	}

	// Interpolate between the two bracketing observations.
	obsDelta := atOrAfter.BlockTimestamp - beforeOrAt.BlockTimestamp
	targetDelta := target - beforeOrAt.BlockTimestamp

	tickCumulative := beforeOrAt.TickCumulative +
		(atOrAfter.TickCumulative-beforeOrAt.TickCumulative)/int64(obsDelta)*int64(targetDelta)

	perLiqDelta := new(uint256.Int).Sub(atOrAfter.SecondsPerLiquidityCumulativeX128, beforeOrAt.SecondsPerLiquidityCumulativeX128)
	perLiqDelta.Mul(perLiqDelta, uint256.NewInt(uint64(targetDelta)))
	perLiqDelta.Div(perLiqDelta, uint256.NewInt(uint64(obsDelta)))
	perLiq := new(uint256.Int).Add(beforeOrAt.SecondsPerLiquidityCumulativeX128, perLiqDelta)

	return tickCumulative, perLiq, nil
}

// Observe returns cumulative values at each of the given secondsAgo offsets.
func (b *Buffer) Observe(time uint32, secondsAgos []uint32, tick int32, liquidity *uint256.Int) ([]int64, []*uint256.Int, error) {
	tickCumulatives := make([]int64, len(secondsAgos))
	perLiqCumulatives := make([]*uint256.Int, len(secondsAgos))
	for i, secondsAgo := range secondsAgos {
		tc, pl, err := b.ObserveSingle(time, secondsAgo, tick, liquidity)
		if err != nil {
			return nil, nil, err
		}
		tickCumulatives[i] = tc
		perLiqCumulatives[i] = pl
	}
	return tickCumulatives, perLiqCumulatives, nil
}
