// Package config loads command configuration from config file, environment
// variables (POOLSIM_*), and flags, in ascending priority.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// RunConfig holds configuration for the scenario replay command.
type RunConfig struct {
	Scenario          string
	EventsOut         string
	PoolsOut          string
	Checkpoint        string
	CheckpointEnabled bool
	Owner             string
	BatchSize         int
	LogLevel          string
}

// LoadRun merges config file, environment variables, and flags into
// RunConfig.
func LoadRun(cfgFile string, flags *pflag.FlagSet) (RunConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"events-out":         "./data/events.jsonl",
		"pools-out":          "./data/pools.jsonl",
		"checkpoint":         "./data/checkpoint.json",
		"checkpoint-enabled": true,
		"batch-size":         256,
		"log-level":          "info",
	})
	if err != nil {
		return RunConfig{}, err
	}

	cfg := RunConfig{
		Scenario:          v.GetString("scenario"),
		EventsOut:         v.GetString("events-out"),
		PoolsOut:          v.GetString("pools-out"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		Owner:             v.GetString("owner"),
		BatchSize:         v.GetInt("batch-size"),
		LogLevel:          v.GetString("log-level"),
	}

	return cfg, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("POOLSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return v, nil
}
