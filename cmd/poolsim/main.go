package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"clpool/internal/config"
	"clpool/internal/sim"
	"clpool/internal/storage"
)

func main() {
	root := &cobra.Command{
		Use:          "poolsim",
		Short:        "Concentrated liquidity pool simulator",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Replay a scenario file through the pool engine",
		RunE:  runScenario,
	}

	runCmd.Flags().String("scenario", "", "scenario JSONL path")
	runCmd.Flags().String("owner", "", "factory owner address")
	runCmd.Flags().String("events-out", "./data/events.jsonl", "output events JSONL path")
	runCmd.Flags().String("pools-out", "./data/pools.jsonl", "output pools JSONL path")
	runCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	runCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	runCmd.Flags().Int("batch-size", 256, "event records per write batch")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	aggregateCmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Aggregate replay events into window metrics",
		RunE:  runAggregate,
	}

	aggregateCmd.Flags().String("events", "", "input events JSONL")
	aggregateCmd.Flags().String("pools", "", "input pools JSONL")
	aggregateCmd.Flags().String("window", "5m", "aggregation window (e.g. 1m, 5m, 1h)")
	aggregateCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	aggregateCmd.Flags().Int("batch-size", 1000, "batch size for DB writes")
	aggregateCmd.Flags().String("state-file", "", "optional local state file for progress tracking")
	aggregateCmd.Flags().String("recompute-from", "", "recompute from timestamp (unix seconds or RFC3339)")
	aggregateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(aggregateCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runScenario(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadRun(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Scenario == "" {
		return fmt.Errorf("scenario path is required")
	}
	if cfg.Owner != "" && !common.IsHexAddress(cfg.Owner) {
		return fmt.Errorf("invalid owner address %q", cfg.Owner)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storageSink := storage.NewJsonlStorage(cfg.EventsOut, cfg.PoolsOut)

	runner := sim.NewRunner(sim.RunConfig{
		ScenarioPath:      cfg.Scenario,
		Owner:             common.HexToAddress(cfg.Owner),
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		RecorderBatch:     cfg.BatchSize,
	}, storageSink, logger)

	logger.Info("replay start",
		zap.String("scenario", cfg.Scenario),
		zap.String("events_out", cfg.EventsOut),
		zap.String("pools_out", cfg.PoolsOut),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	return runner.Run(ctx)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
