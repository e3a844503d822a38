// Package factory creates and registers pools, owns the fee tier table,
// and gates the owner-only protocol fee surface.
package factory

import (
	"encoding/binary"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"clpool/internal/pool"
)

var (
	// ErrIdenticalTokens is returned when both pool tokens are the same.
	ErrIdenticalTokens = errors.New("factory: identical tokens")
	// ErrZeroAddress is returned when a pool token is the zero address.
	ErrZeroAddress = errors.New("factory: zero token address")
	// ErrUnknownFee is returned for a fee tier that has not been enabled.
	ErrUnknownFee = errors.New("factory: unknown fee tier")
	// ErrPoolExists is returned when the pair and fee already have a pool.
	ErrPoolExists = errors.New("factory: pool exists")
	// ErrNotOwner is returned for owner-gated calls from anyone else.
	ErrNotOwner = errors.New("factory: caller is not the owner")
	// ErrInvalidFeeAmount is returned when enabling an out-of-range fee
	// or tick spacing.
	ErrInvalidFeeAmount = errors.New("factory: invalid fee or tick spacing")
	// ErrFeeAmountEnabled is returned when re-enabling an existing tier.
	ErrFeeAmountEnabled = errors.New("factory: fee amount already enabled")
	// ErrUnknownPool is returned when addressing a pool that was never
	// created.
	ErrUnknownPool = errors.New("factory: unknown pool")
)

type poolKey struct {
	token0 common.Address
	token1 common.Address
	fee    uint32
}

// Factory registers pools by canonical token pair and fee tier.
type Factory struct {
	owner      common.Address
	deps       pool.Deps
	log        *zap.Logger
	feeAmounts map[uint32]int32
	pools      map[poolKey]*pool.Pool
}

// New creates a factory with the standard fee tiers enabled:
// 500→10, 3000→60, 10000→200.
func New(owner common.Address, deps pool.Deps) *Factory {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{
		owner: owner,
		deps:  deps,
		log:   logger,
		feeAmounts: map[uint32]int32{
			500:   10,
			3000:  60,
			10000: 200,
		},
		pools: make(map[poolKey]*pool.Pool),
	}
}

func (f *Factory) Owner() common.Address { return f.owner }

// SetOwner transfers factory ownership.
func (f *Factory) SetOwner(caller, newOwner common.Address) error {
	if caller != f.owner {
		return ErrNotOwner
	}
	f.log.Info("factory owner changed",
		zap.String("old", f.owner.Hex()),
		zap.String("new", newOwner.Hex()),
	)
	f.owner = newOwner
	return nil
}

// TickSpacingFor returns the tick spacing of an enabled fee tier.
func (f *Factory) TickSpacingFor(fee uint32) (int32, bool) {
	spacing, ok := f.feeAmounts[fee]
	return spacing, ok
}

// EnableFeeAmount adds a fee tier. Owner only; fee below 100%; spacing in
// 1..16384 so MinTick..MaxTick always spans a usable number of ticks.
func (f *Factory) EnableFeeAmount(caller common.Address, fee uint32, tickSpacing int32) error {
	if caller != f.owner {
		return ErrNotOwner
	}
	if fee >= 1_000_000 || tickSpacing <= 0 || tickSpacing > 16384 {
		return ErrInvalidFeeAmount
	}
	if _, ok := f.feeAmounts[fee]; ok {
		return ErrFeeAmountEnabled
	}
	f.feeAmounts[fee] = tickSpacing
	f.log.Info("fee amount enabled",
		zap.Uint32("fee", fee),
		zap.Int32("tick_spacing", tickSpacing),
	)
	return nil
}

func canonical(tokenA, tokenB common.Address) (common.Address, common.Address) {
	if tokenA.Cmp(tokenB) < 0 {
		return tokenA, tokenB
	}
	return tokenB, tokenA
}

// PoolAddress derives the deterministic address a pool gets for a pair and
// fee tier. Token order does not matter.
func PoolAddress(tokenA, tokenB common.Address, fee uint32) common.Address {
	token0, token1 := canonical(tokenA, tokenB)
	buf := make([]byte, 0, 44)
	buf = append(buf, token0.Bytes()...)
	buf = append(buf, token1.Bytes()...)
	buf = binary.BigEndian.AppendUint32(buf, fee)
	return common.BytesToAddress(crypto.Keccak256(buf)[12:])
}

// CreatePool registers a new pool for the pair and fee tier. The pool
// comes back uninitialized; the caller sets the starting price with
// Initialize.
func (f *Factory) CreatePool(tokenA, tokenB common.Address, fee uint32) (*pool.Pool, error) {
	if tokenA == tokenB {
		return nil, ErrIdenticalTokens
	}
	token0, token1 := canonical(tokenA, tokenB)
	if token0 == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	tickSpacing, ok := f.feeAmounts[fee]
	if !ok {
		return nil, ErrUnknownFee
	}
	key := poolKey{token0: token0, token1: token1, fee: fee}
	if _, ok := f.pools[key]; ok {
		return nil, ErrPoolExists
	}

	p := pool.New(pool.Config{
		Address:     PoolAddress(token0, token1, fee),
		Token0:      token0,
		Token1:      token1,
		Fee:         fee,
		TickSpacing: tickSpacing,
	}, f.deps)
	f.pools[key] = p

	f.log.Info("pool created",
		zap.String("pool", p.Address().Hex()),
		zap.String("token0", token0.Hex()),
		zap.String("token1", token1.Hex()),
		zap.Uint32("fee", fee),
	)
	return p, nil
}

// Pool looks up a pool by pair and fee, in either token order.
func (f *Factory) Pool(tokenA, tokenB common.Address, fee uint32) (*pool.Pool, bool) {
	token0, token1 := canonical(tokenA, tokenB)
	p, ok := f.pools[poolKey{token0: token0, token1: token1, fee: fee}]
	return p, ok
}

// Pools returns every registered pool.
func (f *Factory) Pools() []*pool.Pool {
	out := make([]*pool.Pool, 0, len(f.pools))
	for _, p := range f.pools {
		out = append(out, p)
	}
	return out
}

// SetFeeProtocol sets a pool's protocol fee fractions. Owner only.
func (f *Factory) SetFeeProtocol(caller, tokenA, tokenB common.Address, fee uint32, feeProtocol0, feeProtocol1 uint8) error {
	if caller != f.owner {
		return ErrNotOwner
	}
	p, ok := f.Pool(tokenA, tokenB, fee)
	if !ok {
		return ErrUnknownPool
	}
	return p.SetFeeProtocol(feeProtocol0, feeProtocol1)
}

// CollectProtocol drains a pool's accrued protocol fees. Owner only.
func (f *Factory) CollectProtocol(caller, tokenA, tokenB common.Address, fee uint32, recipient common.Address, amount0Requested, amount1Requested *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	if caller != f.owner {
		return nil, nil, ErrNotOwner
	}
	p, ok := f.Pool(tokenA, tokenB, fee)
	if !ok {
		return nil, nil, ErrUnknownPool
	}
	return p.CollectProtocol(caller, recipient, amount0Requested, amount1Requested)
}
