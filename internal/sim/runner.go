// Package sim replays scenario files through the pool engine, recording the
// emitted events and checkpointing progress so an interrupted replay can
// resume without duplicating records.
package sim

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"clpool/internal/factory"
	"clpool/internal/model"
	"clpool/internal/pool"
	"clpool/internal/storage"
	"clpool/internal/tickmath"
	"clpool/internal/token"
)

// RunConfig holds runtime settings for a scenario replay.
type RunConfig struct {
	ScenarioPath      string
	Owner             common.Address
	CheckpointPath    string
	CheckpointEnabled bool
	RecorderBatch     int
}

// Runner drives scenario operations through a factory and its pools.
// Replay is deterministic: the simulated clock only moves on advance_time
// operations.
type Runner struct {
	cfg        RunConfig
	store      storage.Storage
	recorder   *storage.Recorder
	ledger     *token.MemLedger
	factory    *factory.Factory
	logger     *zap.Logger
	checkpoint *CheckpointStore

	now   uint32
	muted bool
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, store storage.Storage, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		cfg:        cfg,
		store:      store,
		recorder:   storage.NewRecorder(store, cfg.RecorderBatch),
		ledger:     token.NewMemLedger(),
		logger:     logger,
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
		now:        1,
	}
	r.factory = factory.New(cfg.Owner, pool.Deps{
		Ledger: r.ledger,
		Events: r.recorder,
		Clock:  func() uint32 { return r.now },
		Logger: logger,
	})
	return r
}

// Factory exposes the replay's factory, mainly for inspection after a run.
func (r *Runner) Factory() *factory.Factory { return r.factory }

// Run executes the replay loop.
func (r *Runner) Run(ctx context.Context) error {
	if r.store == nil {
		return fmt.Errorf("storage is nil")
	}

	var resumeFrom uint64
	cp, ok, err := r.checkpoint.Load()
	if err != nil {
		return err
	}
	if ok {
		resumeFrom = cp.LastAppliedOp
		r.logger.Info("resume from checkpoint", zap.Uint64("last_applied_op", resumeFrom))
	}

	file, err := os.Open(r.cfg.ScenarioPath)
	if err != nil {
		return fmt.Errorf("open scenario: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var opIndex uint64
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		opIndex++

		// Operations at or before the checkpoint rebuild state silently.
		r.setMuted(opIndex <= resumeFrom)

		var op Op
		if err := json.Unmarshal(line, &op); err != nil {
			return fmt.Errorf("parse op %d: %w", opIndex, err)
		}

		if err := r.apply(op); err != nil {
			return fmt.Errorf("apply op %d (%s): %w", opIndex, op.Op, err)
		}

		if opIndex > resumeFrom {
			if err := r.recorder.Flush(); err != nil {
				return err
			}
			if err := r.checkpoint.Save(opIndex); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan scenario: %w", err)
	}

	if err := r.recorder.Flush(); err != nil {
		return err
	}

	for _, p := range r.factory.Pools() {
		snap := p.Snapshot()
		r.logger.Info("pool state",
			zap.String("pool", snap.Address),
			zap.String("sqrt_price_x96", snap.SqrtPriceX96),
			zap.Int32("tick", snap.Tick),
			zap.String("liquidity", snap.Liquidity),
			zap.String("protocol_fees0", snap.ProtocolFees0),
			zap.String("protocol_fees1", snap.ProtocolFees1),
		)
	}

	r.logger.Info("replay complete", zap.Uint64("ops", opIndex))
	return nil
}

func (r *Runner) setMuted(muted bool) {
	if r.muted == muted {
		return
	}
	r.muted = muted
	r.recorder.Mute(muted)
}

func (r *Runner) apply(op Op) error {
	switch op.Op {
	case OpAdvanceTime:
		r.now += op.Seconds
		return nil
	case OpFund:
		return r.applyFund(op)
	case OpCreatePool:
		return r.applyCreatePool(op)
	case OpEnableFeeAmount:
		sender, err := r.senderOrOwner(op)
		if err != nil {
			return err
		}
		return r.factory.EnableFeeAmount(sender, op.Fee, op.TickSpacing)
	case OpSetFeeProtocol:
		sender, err := r.senderOrOwner(op)
		if err != nil {
			return err
		}
		tokenA, tokenB, err := r.pairOf(op)
		if err != nil {
			return err
		}
		return r.factory.SetFeeProtocol(sender, tokenA, tokenB, op.Fee, op.FeeProtocol0, op.FeeProtocol1)
	case OpCollectProtocol:
		return r.applyCollectProtocol(op)
	}

	p, err := r.poolOf(op)
	if err != nil {
		return err
	}

	switch op.Op {
	case OpInitialize:
		sqrtPrice, err := parseAmount(op.SqrtPriceX96, "sqrt_price_x96")
		if err != nil {
			return err
		}
		return p.Initialize(sqrtPrice)
	case OpMint:
		return r.applyMint(p, op)
	case OpBurn:
		return r.applyBurn(p, op)
	case OpCollect:
		return r.applyCollect(p, op)
	case OpSwap:
		return r.applySwap(p, op)
	case OpFlash:
		return r.applyFlash(p, op)
	case OpIncreaseCardinality:
		return p.IncreaseObservationCardinalityNext(op.Next)
	default:
		return fmt.Errorf("unknown op %q", op.Op)
	}
}

func (r *Runner) applyFund(op Op) error {
	tok, err := parseAddress(op.Token, "token")
	if err != nil {
		return err
	}
	account, err := parseAddress(op.Account, "account")
	if err != nil {
		return err
	}
	amount, err := parseAmount(op.Amount, "amount")
	if err != nil {
		return err
	}
	r.ledger.Mint(tok, account, amount)
	return nil
}

func (r *Runner) applyCreatePool(op Op) error {
	tokenA, tokenB, err := r.pairOf(op)
	if err != nil {
		return err
	}
	p, err := r.factory.CreatePool(tokenA, tokenB, op.Fee)
	if err != nil {
		return err
	}
	if r.muted {
		return nil
	}
	return r.store.PutPoolBatch([]model.Pool{{
		Address:     p.Address().Hex(),
		Token0:      p.Token0().Hex(),
		Token1:      p.Token1().Hex(),
		Fee:         p.Fee(),
		TickSpacing: p.TickSpacing(),
		CreatedAt:   r.now,
	}})
}

func (r *Runner) applyMint(p *pool.Pool, op Op) error {
	sender, err := parseAddress(op.Sender, "sender")
	if err != nil {
		return err
	}
	owner := sender
	if op.Owner != "" {
		owner, err = parseAddress(op.Owner, "owner")
		if err != nil {
			return err
		}
	}
	amount, err := parseAmount(op.Amount, "amount")
	if err != nil {
		return err
	}
	_, _, err = p.Mint(sender, owner, op.TickLower, op.TickUpper, amount, nil)
	return err
}

func (r *Runner) applyBurn(p *pool.Pool, op Op) error {
	owner, err := parseAddress(op.Owner, "owner")
	if err != nil {
		return err
	}
	amount, err := parseAmount(op.Amount, "amount")
	if err != nil {
		return err
	}
	_, _, err = p.Burn(owner, op.TickLower, op.TickUpper, amount)
	return err
}

func (r *Runner) applyCollect(p *pool.Pool, op Op) error {
	owner, err := parseAddress(op.Owner, "owner")
	if err != nil {
		return err
	}
	recipient := owner
	if op.Recipient != "" {
		recipient, err = parseAddress(op.Recipient, "recipient")
		if err != nil {
			return err
		}
	}
	amount0, err := requestedOrMax(op.Amount0, "amount0")
	if err != nil {
		return err
	}
	amount1, err := requestedOrMax(op.Amount1, "amount1")
	if err != nil {
		return err
	}
	_, _, err = p.Collect(owner, recipient, op.TickLower, op.TickUpper, amount0, amount1)
	return err
}

func (r *Runner) applySwap(p *pool.Pool, op Op) error {
	sender, err := parseAddress(op.Sender, "sender")
	if err != nil {
		return err
	}
	recipient := sender
	if op.Recipient != "" {
		recipient, err = parseAddress(op.Recipient, "recipient")
		if err != nil {
			return err
		}
	}
	amountSpecified, err := parseSignedAmount(op.AmountSpecified, "amount_specified")
	if err != nil {
		return err
	}

	var limit *uint256.Int
	if op.SqrtPriceLimitX96 != "" {
		limit, err = parseAmount(op.SqrtPriceLimitX96, "sqrt_price_limit_x96")
		if err != nil {
			return err
		}
	} else if op.ZeroForOne {
		limit = new(uint256.Int).AddUint64(tickmath.MinSqrtRatio, 1)
	} else {
		limit = new(uint256.Int).SubUint64(tickmath.MaxSqrtRatio, 1)
	}

	_, _, err = p.Swap(sender, recipient, op.ZeroForOne, amountSpecified, limit)
	return err
}

func (r *Runner) applyFlash(p *pool.Pool, op Op) error {
	sender, err := parseAddress(op.Sender, "sender")
	if err != nil {
		return err
	}
	recipient := sender
	if op.Recipient != "" {
		recipient, err = parseAddress(op.Recipient, "recipient")
		if err != nil {
			return err
		}
	}
	amount0, err := parseAmount(op.Amount0, "amount0")
	if err != nil {
		return err
	}
	amount1, err := parseAmount(op.Amount1, "amount1")
	if err != nil {
		return err
	}
	return p.Flash(sender, recipient, amount0, amount1, nil)
}

func (r *Runner) applyCollectProtocol(op Op) error {
	sender, err := r.senderOrOwner(op)
	if err != nil {
		return err
	}
	recipient := sender
	if op.Recipient != "" {
		recipient, err = parseAddress(op.Recipient, "recipient")
		if err != nil {
			return err
		}
	}
	tokenA, tokenB, err := r.pairOf(op)
	if err != nil {
		return err
	}
	amount0, err := requestedOrMax(op.Amount0, "amount0")
	if err != nil {
		return err
	}
	amount1, err := requestedOrMax(op.Amount1, "amount1")
	if err != nil {
		return err
	}
	_, _, err = r.factory.CollectProtocol(sender, tokenA, tokenB, op.Fee, recipient, amount0, amount1)
	return err
}

func (r *Runner) pairOf(op Op) (common.Address, common.Address, error) {
	tokenA, err := parseAddress(op.TokenA, "token_a")
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	tokenB, err := parseAddress(op.TokenB, "token_b")
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	return tokenA, tokenB, nil
}

func (r *Runner) poolOf(op Op) (*pool.Pool, error) {
	tokenA, tokenB, err := r.pairOf(op)
	if err != nil {
		return nil, err
	}
	p, ok := r.factory.Pool(tokenA, tokenB, op.Fee)
	if !ok {
		return nil, factory.ErrUnknownPool
	}
	return p, nil
}

// senderOrOwner resolves the acting address, defaulting to the configured
// factory owner for owner-gated operations.
func (r *Runner) senderOrOwner(op Op) (common.Address, error) {
	if op.Sender == "" {
		return r.cfg.Owner, nil
	}
	return parseAddress(op.Sender, "sender")
}

// requestedOrMax treats an empty request as "everything available".
func requestedOrMax(value, field string) (*uint256.Int, error) {
	if value == "" {
		return new(uint256.Int).Not(new(uint256.Int)), nil
	}
	return parseAmount(value, field)
}
