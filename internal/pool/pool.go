// Package pool implements a single concentrated-liquidity pool: tick-range
// liquidity positions, fee accrual, the tick-walking swap loop, and the
// observation oracle, settled against an injected token ledger.
package pool

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"clpool/internal/model"
	"clpool/internal/oracle"
	"clpool/internal/position"
	"clpool/internal/tick"
	"clpool/internal/tickmath"
	"clpool/internal/token"
)

// EventSink receives every event a pool emits. Emit must not call back
// into the pool.
type EventSink interface {
	Emit(model.Event)
}

// NopSink discards events.
type NopSink struct{}

func (NopSink) Emit(model.Event) {}

// Config is the immutable identity of a pool.
type Config struct {
	Address     common.Address
	Token0      common.Address
	Token1      common.Address
	Fee         uint32
	TickSpacing int32
}

// Deps are the pool's collaborators. Zero fields get working defaults: an
// in-memory ledger, a discarding sink, the wall clock, and a no-op logger.
type Deps struct {
	Ledger token.Ledger
	Events EventSink
	Clock  func() uint32
	Logger *zap.Logger
}

// Slot0 is the pool's hot state.
type Slot0 struct {
	SqrtPriceX96               *uint256.Int
	Tick                       int32
	ObservationIndex           uint16
	ObservationCardinality     uint16
	ObservationCardinalityNext uint16
	FeeProtocol                uint8
	Unlocked                   bool
}

// Pool is one pool's full state. Methods are not safe for concurrent use;
// the lock guard exists to reject reentrancy, not to serialize goroutines.
type Pool struct {
	cfg  Config
	deps Deps
	log  *zap.Logger

	slot0                Slot0
	feeGrowthGlobal0X128 *uint256.Int
	feeGrowthGlobal1X128 *uint256.Int
	protocolFees0        *uint256.Int
	protocolFees1        *uint256.Int
	liquidity            *uint256.Int
	maxLiquidityPerTick  *uint256.Int

	ticks        *tick.Registry
	tickBitmap   *tick.Bitmap
	positions    *position.Ledger
	observations *oracle.Buffer

	eventSeq uint64
}

func New(cfg Config, deps Deps) *Pool {
	if deps.Ledger == nil {
		deps.Ledger = token.NewMemLedger()
	}
	if deps.Events == nil {
		deps.Events = NopSink{}
	}
	if deps.Clock == nil {
		deps.Clock = func() uint32 { return uint32(time.Now().Unix()) }
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Pool{
		cfg:  cfg,
		deps: deps,
		log:  deps.Logger.With(zap.String("pool", cfg.Address.Hex())),
		slot0: Slot0{
			SqrtPriceX96: uint256.NewInt(0),
		},
		feeGrowthGlobal0X128: uint256.NewInt(0),
		feeGrowthGlobal1X128: uint256.NewInt(0),
		protocolFees0:        uint256.NewInt(0),
		protocolFees1:        uint256.NewInt(0),
		liquidity:            uint256.NewInt(0),
		maxLiquidityPerTick:  tickmath.MaxLiquidityPerTick(cfg.TickSpacing),
		ticks:                tick.NewRegistry(),
		tickBitmap:           tick.NewBitmap(),
		positions:            position.NewLedger(),
		observations:         oracle.NewBuffer(),
	}
}

// lock acquires the reentrancy guard and returns its release func.
func (p *Pool) lock() (func(), error) {
	if p.slot0.SqrtPriceX96.IsZero() {
		return nil, ErrNotInitialized
	}
	if !p.slot0.Unlocked {
		return nil, ErrLocked
	}
	p.slot0.Unlocked = false
	return func() { p.slot0.Unlocked = true }, nil
}

// Initialize sets the pool's starting price and boots the oracle. It may
// be called exactly once.
func (p *Pool) Initialize(sqrtPriceX96 *uint256.Int) error {
	if !p.slot0.SqrtPriceX96.IsZero() {
		return ErrAlreadyInitialized
	}
	initialTick, err := tickmath.TickAtSqrtRatio(sqrtPriceX96)
	if err != nil {
		return err
	}

	p.observations.Initialize(p.deps.Clock())
	p.slot0 = Slot0{
		SqrtPriceX96:               sqrtPriceX96.Clone(),
		Tick:                       initialTick,
		ObservationIndex:           0,
		ObservationCardinality:     1,
		ObservationCardinalityNext: 1,
		Unlocked:                   true,
	}

	p.log.Debug("pool initialized",
		zap.String("sqrt_price_x96", sqrtPriceX96.Dec()),
		zap.Int32("tick", initialTick),
	)
	p.emit(model.EventInitialize, model.InitializeEventData{
		SqrtPriceX96: sqrtPriceX96.Dec(),
		Tick:         initialTick,
	})
	return nil
}

// IncreaseObservationCardinalityNext grows the oracle's target capacity.
func (p *Pool) IncreaseObservationCardinalityNext(next uint16) error {
	unlock, err := p.lock()
	if err != nil {
		return err
	}
	defer unlock()

	old := p.slot0.ObservationCardinalityNext
	updated := p.observations.Grow(next)
	p.slot0.ObservationCardinalityNext = updated
	if updated != old {
		p.log.Debug("observation cardinality grown",
			zap.Uint16("old", old),
			zap.Uint16("new", updated),
		)
	}
	return nil
}

// Observe reports cumulative tick and liquidity values at the given
// offsets into the past.
func (p *Pool) Observe(secondsAgos []uint32) ([]int64, []*uint256.Int, error) {
	return p.observations.Observe(p.deps.Clock(), secondsAgos, p.slot0.Tick, p.liquidity)
}

// SetFeeProtocol sets the protocol's share of swap and flash fees per
// token. Valid values are 0 (off) or 4..10 (1/4th to 1/10th).
func (p *Pool) SetFeeProtocol(feeProtocol0, feeProtocol1 uint8) error {
	unlock, err := p.lock()
	if err != nil {
		return err
	}
	defer unlock()

	if (feeProtocol0 != 0 && (feeProtocol0 < 4 || feeProtocol0 > 10)) ||
		(feeProtocol1 != 0 && (feeProtocol1 < 4 || feeProtocol1 > 10)) {
		return ErrInvalidFeeProtocol
	}

	old := p.slot0.FeeProtocol
	p.slot0.FeeProtocol = feeProtocol0 + (feeProtocol1 << 4)

	p.emit(model.EventSetFeeProtocol, model.SetFeeProtocolEventData{
		FeeProtocol0Old: old % 16,
		FeeProtocol1Old: old >> 4,
		FeeProtocol0New: feeProtocol0,
		FeeProtocol1New: feeProtocol1,
	})
	return nil
}

// CollectProtocol pays out accrued protocol fees, leaving one unit behind
// on a full drain so the accumulator slot stays warm.
func (p *Pool) CollectProtocol(sender, recipient common.Address, amount0Requested, amount1Requested *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	unlock, err := p.lock()
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	amount0 := uint256.NewInt(0)
	if amount0Requested.Cmp(p.protocolFees0) > 0 {
		amount0.Set(p.protocolFees0)
	} else {
		amount0.Set(amount0Requested)
	}
	amount1 := uint256.NewInt(0)
	if amount1Requested.Cmp(p.protocolFees1) > 0 {
		amount1.Set(p.protocolFees1)
	} else {
		amount1.Set(amount1Requested)
	}

	if !amount0.IsZero() && amount0.Eq(p.protocolFees0) {
		amount0.SubUint64(amount0, 1)
	}
	if !amount1.IsZero() && amount1.Eq(p.protocolFees1) {
		amount1.SubUint64(amount1, 1)
	}

	if err := p.deps.Ledger.Transfer(p.cfg.Token0, p.cfg.Address, recipient, amount0); err != nil {
		return nil, nil, err
	}
	if err := p.deps.Ledger.Transfer(p.cfg.Token1, p.cfg.Address, recipient, amount1); err != nil {
		return nil, nil, err
	}

	p.protocolFees0 = new(uint256.Int).Sub(p.protocolFees0, amount0)
	p.protocolFees1 = new(uint256.Int).Sub(p.protocolFees1, amount1)

	p.emit(model.EventCollectProtocol, model.CollectProtocolEventData{
		Sender:    sender.Hex(),
		Recipient: recipient.Hex(),
		Amount0:   amount0.Dec(),
		Amount1:   amount1.Dec(),
	})
	return amount0, amount1, nil
}

func (p *Pool) emit(name string, data interface{}) {
	p.eventSeq++
	p.deps.Events.Emit(model.Event{
		Seq:       p.eventSeq,
		Pool:      p.cfg.Address.Hex(),
		Name:      name,
		Timestamp: p.deps.Clock(),
		Data:      data,
	})
}

// signedDec renders a two's-complement value as a signed decimal string.
func signedDec(x *uint256.Int) string {
	if x.Sign() < 0 {
		return "-" + new(uint256.Int).Neg(x).Dec()
	}
	return x.Dec()
}

func (p *Pool) Address() common.Address { return p.cfg.Address }
func (p *Pool) Token0() common.Address  { return p.cfg.Token0 }
func (p *Pool) Token1() common.Address  { return p.cfg.Token1 }
func (p *Pool) Fee() uint32             { return p.cfg.Fee }
func (p *Pool) TickSpacing() int32      { return p.cfg.TickSpacing }

// SlotState returns a copy of the pool's hot state.
func (p *Pool) SlotState() Slot0 {
	s := p.slot0
	s.SqrtPriceX96 = p.slot0.SqrtPriceX96.Clone()
	return s
}

func (p *Pool) SqrtPriceX96() *uint256.Int { return p.slot0.SqrtPriceX96.Clone() }
func (p *Pool) CurrentTick() int32         { return p.slot0.Tick }
func (p *Pool) Liquidity() *uint256.Int    { return p.liquidity.Clone() }

func (p *Pool) FeeGrowthGlobal0X128() *uint256.Int { return p.feeGrowthGlobal0X128.Clone() }
func (p *Pool) FeeGrowthGlobal1X128() *uint256.Int { return p.feeGrowthGlobal1X128.Clone() }

// ProtocolFees returns the accrued protocol fees per token.
func (p *Pool) ProtocolFees() (*uint256.Int, *uint256.Int) {
	return p.protocolFees0.Clone(), p.protocolFees1.Clone()
}

// Snapshot captures the pool's current state for reporting.
func (p *Pool) Snapshot() model.PoolSnapshot {
	return model.PoolSnapshot{
		Address:              p.cfg.Address.Hex(),
		Token0:               p.cfg.Token0.Hex(),
		Token1:               p.cfg.Token1.Hex(),
		Fee:                  p.cfg.Fee,
		TickSpacing:          p.cfg.TickSpacing,
		SqrtPriceX96:         p.slot0.SqrtPriceX96.Dec(),
		Tick:                 p.slot0.Tick,
		Liquidity:            p.liquidity.Dec(),
		FeeGrowthGlobal0X128: p.feeGrowthGlobal0X128.Dec(),
		FeeGrowthGlobal1X128: p.feeGrowthGlobal1X128.Dec(),
		ProtocolFees0:        p.protocolFees0.Dec(),
		ProtocolFees1:        p.protocolFees1.Dec(),
	}
}

// TickInfo returns the stored state for a tick.
func (p *Pool) TickInfo(tickIdx int32) tick.Info { return p.ticks.Get(tickIdx) }

// Position returns the stored state for a position key.
func (p *Pool) Position(key position.Key) (position.Info, bool) { return p.positions.Lookup(key) }

// MaxLiquidityPerTick returns the per-tick liquidity cap for this pool's
// spacing.
func (p *Pool) MaxLiquidityPerTick() *uint256.Int { return p.maxLiquidityPerTick.Clone() }
