package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

func TestLoadRunDefaults(t *testing.T) {
	cfg, err := LoadRun("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.EventsOut != "./data/events.jsonl" || cfg.PoolsOut != "./data/pools.jsonl" {
		t.Fatalf("output defaults mismatch: %+v", cfg)
	}
	if !cfg.CheckpointEnabled || cfg.BatchSize != 256 || cfg.LogLevel != "info" {
		t.Fatalf("defaults mismatch: %+v", cfg)
	}
}

func TestLoadRunFlagsOverride(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("scenario", "", "")
	flags.Int("batch-size", 256, "")
	if err := flags.Parse([]string{"--scenario=ops.jsonl", "--batch-size=16"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := LoadRun("", flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Scenario != "ops.jsonl" || cfg.BatchSize != 16 {
		t.Fatalf("flag values not applied: %+v", cfg)
	}
}

func TestLoadRunConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "scenario: from-file.jsonl\nlog-level: debug\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadRun(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Scenario != "from-file.jsonl" || cfg.LogLevel != "debug" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
}

func TestLoadAggregateDefaults(t *testing.T) {
	cfg, err := LoadAggregate("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Window != "5m" || cfg.BatchSize != 1000 || cfg.LogLevel != "info" {
		t.Fatalf("defaults mismatch: %+v", cfg)
	}
}

func TestParseTimestamp(t *testing.T) {
	if ts, err := ParseTimestamp(""); err != nil || ts != 0 {
		t.Fatalf("empty input: %d, %v", ts, err)
	}
	if ts, err := ParseTimestamp("1700000000"); err != nil || ts != 1700000000 {
		t.Fatalf("unix seconds: %d, %v", ts, err)
	}
	if ts, err := ParseTimestamp("2023-11-14T22:13:20Z"); err != nil || ts != 1700000000 {
		t.Fatalf("rfc3339: %d, %v", ts, err)
	}
	if _, err := ParseTimestamp("not-a-time"); err == nil {
		t.Fatalf("expected parse error")
	}
}
