// Package config loads the bus/bar/replay/recorder settings via viper,
// following the YAML + mapstructure convention of
// internal/service/config.go in the teacher repo.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// BusConfig sizes the bus's ingress and per-subscriber queues.
type BusConfig struct {
	IngressCapacity int `mapstructure:"IngressCapacity"`
	PerSubCapacity  int `mapstructure:"PerSubCapacity"`
}

// BarConfig configures the bar builder.
type BarConfig struct {
	BucketNs uint64 `mapstructure:"BucketNs"`
}

// ReplayConfig configures default replay behavior.
type ReplayConfig struct {
	Path        string  `mapstructure:"Path"`
	Speed       float64 `mapstructure:"Speed"`
	StepMode    bool    `mapstructure:"StepMode"`
	MaxEvents   int     `mapstructure:"MaxEvents"`
	LimitEvents bool    `mapstructure:"LimitEvents"`
}

// RecorderConfig configures the event recorder.
type RecorderConfig struct {
	Path string `mapstructure:"Path"`
}

// LivefeedConfig configures the live websocket market-data producer, the
// alternative to file replay. Empty WSURL means live feed is disabled.
type LivefeedConfig struct {
	WSURL   string   `mapstructure:"WSURL"`
	Symbols []string `mapstructure:"Symbols"`
}

// StrategyConfig configures the bundled example adaptive strategy.
type StrategyConfig struct {
	StartingCash float64 `mapstructure:"StartingCash"`
	PositionQty  int     `mapstructure:"PositionQty"`
}

// Config is the top-level, YAML-backed configuration for an md-bus
// deployment.
type Config struct {
	Bus      BusConfig      `mapstructure:"Bus"`
	Bar      BarConfig      `mapstructure:"Bar"`
	Replay   ReplayConfig   `mapstructure:"Replay"`
	Recorder RecorderConfig `mapstructure:"Recorder"`
	Livefeed LivefeedConfig `mapstructure:"Livefeed"`
	Strategy StrategyConfig `mapstructure:"Strategy"`
}

// Default returns the spec.md-mandated defaults (65,536/65,536 queue
// capacities, 1s bucket width, 1x replay speed).
func Default() Config {
	return Config{
		Bus:      BusConfig{IngressCapacity: 65536, PerSubCapacity: 65536},
		Bar:      BarConfig{BucketNs: 1_000_000_000},
		Replay:   ReplayConfig{Speed: 1.0},
		Strategy: StrategyConfig{StartingCash: 10000.0, PositionQty: 1},
	}
}

// Load reads config.yaml from dir and unmarshals it over Default(),
// following LoadConfig in internal/service/config.go.
func Load(dir string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("config: reading config file: %w", err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("config: decoding config file: %w", err)
	}
	return cfg, nil
}
