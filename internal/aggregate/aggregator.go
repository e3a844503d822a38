package aggregate

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"clpool/internal/model"
	"clpool/internal/storage"
)

// MetricsSink receives finished pool records and window metrics.
type MetricsSink interface {
	UpsertPools(ctx context.Context, pools []model.Pool) error
	UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error
}

// Config controls aggregation behavior.
type Config struct {
	WindowSeconds uint32
	BatchSize     int
	RecomputeFrom uint64
	StateStore    StateStore
}

// Aggregator folds recorded engine events into pool window metrics.
type Aggregator struct {
	cfg          Config
	sink         MetricsSink
	logger       *zap.Logger
	pools        map[string]model.Pool
	accumulators map[string]*Accumulator
}

func NewAggregator(cfg Config, sink MetricsSink, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		cfg:          cfg,
		sink:         sink,
		logger:       logger,
		pools:        make(map[string]model.Pool),
		accumulators: make(map[string]*Accumulator),
	}
}

// Run aggregates the events JSONL at eventsPath, using the pool records at
// poolsPath for fee tiers.
func (a *Aggregator) Run(ctx context.Context, eventsPath, poolsPath string) error {
	if a.sink == nil {
		return fmt.Errorf("metrics sink is nil")
	}
	if a.cfg.WindowSeconds == 0 {
		return fmt.Errorf("window seconds must be > 0")
	}
	if a.cfg.BatchSize <= 0 {
		a.cfg.BatchSize = 1000
	}

	pools, err := storage.ReadPools(poolsPath)
	if err != nil {
		return err
	}
	for _, p := range pools {
		a.pools[poolKey(p.Address)] = p
	}
	if err := a.sink.UpsertPools(ctx, pools); err != nil {
		return err
	}

	startTs, err := a.loadStartTimestamp(ctx)
	if err != nil {
		return err
	}

	batch := make([]model.PoolWindowMetrics, 0, a.cfg.BatchSize)
	maxTs := startTs
	var total, aggregated, skipped, failed int

	process := func(record model.EventRecord) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		total++

		if uint64(record.Timestamp) <= startTs {
			skipped++
			return nil
		}

		windowStart := record.Timestamp - (record.Timestamp % a.cfg.WindowSeconds)
		windowEnd := windowStart + a.cfg.WindowSeconds

		key := poolKey(record.Pool)
		acc := a.accumulators[key]
		if acc == nil {
			acc = NewAccumulator(record.Pool, a.poolFee(record.Pool), windowStart, windowEnd)
			a.accumulators[key] = acc
		} else if acc.WindowStart != windowStart {
			batch = append(batch, acc.Metrics(a.cfg.WindowSeconds))
			aggregated++
			acc = NewAccumulator(record.Pool, a.poolFee(record.Pool), windowStart, windowEnd)
			a.accumulators[key] = acc
		}

		if err := acc.AddEvent(record); err != nil {
			failed++
			a.logger.Warn("aggregate event",
				zap.Error(err),
				zap.String("pool", record.Pool),
				zap.String("event", record.Name),
			)
			return nil
		}

		if uint64(record.Timestamp) > maxTs {
			maxTs = uint64(record.Timestamp)
		}

		if len(batch) >= a.cfg.BatchSize {
			if err := a.sink.UpsertWindowMetrics(ctx, batch); err != nil {
				return err
			}
			batch = batch[:0]
			if err := a.saveState(ctx); err != nil {
				return err
			}
		}
		return nil
	}

	if err := storage.ReadEvents(eventsPath, process); err != nil {
		return err
	}

	for _, acc := range a.accumulators {
		batch = append(batch, acc.Metrics(a.cfg.WindowSeconds))
		aggregated++
	}
	a.accumulators = make(map[string]*Accumulator)

	if len(batch) > 0 {
		if err := a.sink.UpsertWindowMetrics(ctx, batch); err != nil {
			return err
		}
	}

	a.cfg.RecomputeFrom = maxTs
	if err := a.saveState(ctx); err != nil {
		return err
	}

	a.logger.Info("aggregate complete",
		zap.Int("total", total),
		zap.Int("aggregated", aggregated),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)
	return nil
}

func (a *Aggregator) poolFee(address string) uint32 {
	if p, ok := a.pools[poolKey(address)]; ok {
		return p.Fee
	}
	a.logger.Warn("unknown pool fee tier", zap.String("pool", address))
	return 0
}

func (a *Aggregator) loadStartTimestamp(ctx context.Context) (uint64, error) {
	if a.cfg.RecomputeFrom > 0 {
		return a.cfg.RecomputeFrom - 1, nil
	}
	if a.cfg.StateStore == nil {
		return 0, nil
	}
	last, ok, err := a.cfg.StateStore.Load(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return last, nil
}

func (a *Aggregator) saveState(ctx context.Context) error {
	if a.cfg.StateStore == nil {
		return nil
	}

	if len(a.accumulators) == 0 {
		return a.cfg.StateStore.Save(ctx, a.cfg.RecomputeFrom)
	}

	safeTs := minOpenWindowStart(a.accumulators)
	if safeTs > 0 {
		safeTs--
	}
	if safeTs == 0 {
		safeTs = a.cfg.RecomputeFrom
	}
	return a.cfg.StateStore.Save(ctx, safeTs)
}

func poolKey(address string) string {
	return strings.ToLower(address)
}

func minOpenWindowStart(acc map[string]*Accumulator) uint64 {
	var min uint64
	for _, entry := range acc {
		if entry == nil {
			continue
		}
		if min == 0 || uint64(entry.WindowStart) < min {
			min = uint64(entry.WindowStart)
		}
	}
	return min
}
