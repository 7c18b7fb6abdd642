package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dylansturg/weakevent/internal/churn"
)

// fileConfig mirrors weakevent.yaml. Durations are strings so the file
// can say "60s" instead of nanosecond counts.
type fileConfig struct {
	LogLevel string          `yaml:"log_level" json:"log_level"`
	Relay    relayFileConfig `yaml:"relay" json:"relay"`
	Churn    churnFileConfig `yaml:"churn" json:"churn"`
}

type relayFileConfig struct {
	Redis struct {
		Address  string `yaml:"address" json:"address"`
		Password string `yaml:"password" json:"password"`
		DB       int    `yaml:"db" json:"db"`
	} `yaml:"redis" json:"redis"`
	Channel       string `yaml:"channel" json:"channel"`
	Listen        string `yaml:"listen" json:"listen"`
	Exclusive     bool   `yaml:"exclusive" json:"exclusive"`
	History       int    `yaml:"history" json:"history"`
	LeaseTTL      string `yaml:"lease_ttl" json:"lease_ttl"`
	SubscriberTTL string `yaml:"subscriber_ttl" json:"subscriber_ttl"`
	SweepEvery    string `yaml:"sweep_every" json:"sweep_every"`
	PruneEvery    string `yaml:"prune_every" json:"prune_every"`
}

type churnFileConfig struct {
	Generations int    `yaml:"generations" json:"generations"`
	Subscribers int    `yaml:"subscribers" json:"subscribers"`
	Raises      int    `yaml:"raises" json:"raises"`
	SettleLimit string `yaml:"settle_limit" json:"settle_limit"`
}

// config is the resolved runtime configuration.
type config struct {
	LogLevel string
	Relay    relayConfig
	Churn    churn.Scenario
}

type relayConfig struct {
	RedisAddress  string
	RedisPassword string
	RedisDB       int
	Channel       string
	Listen        string
	Exclusive     bool
	History       int
	LeaseTTL      time.Duration
	SubscriberTTL time.Duration
	SweepEvery    time.Duration
	PruneEvery    time.Duration
}

func defaultConfig() config {
	return config{
		LogLevel: "info",
		Relay: relayConfig{
			RedisAddress:  "localhost:6379",
			Channel:       "weakevent.notices",
			Listen:        ":8080",
			History:       128,
			LeaseTTL:      30 * time.Second,
			SubscriberTTL: time.Minute,
			SweepEvery:    time.Second,
			PruneEvery:    15 * time.Second,
		},
		Churn: churn.Scenario{}.WithDefaults(),
	}
}

// loadConfig reads a configuration file (YAML or JSON) and applies it
// over the defaults. A missing file is not an error: defaults apply.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return config{}, fmt.Errorf("failed to read config: %w", err)
	}

	var raw fileConfig
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".json" {
		if err := json.Unmarshal(data, &raw); err != nil {
			return config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		// Default to YAML
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if raw.LogLevel != "" {
		cfg.LogLevel = raw.LogLevel
	}

	if raw.Relay.Redis.Address != "" {
		cfg.Relay.RedisAddress = raw.Relay.Redis.Address
	}
	cfg.Relay.RedisPassword = raw.Relay.Redis.Password
	cfg.Relay.RedisDB = raw.Relay.Redis.DB
	if raw.Relay.Channel != "" {
		cfg.Relay.Channel = raw.Relay.Channel
	}
	if raw.Relay.Listen != "" {
		cfg.Relay.Listen = raw.Relay.Listen
	}
	cfg.Relay.Exclusive = raw.Relay.Exclusive
	if raw.Relay.History != 0 {
		cfg.Relay.History = raw.Relay.History
	}
	if err := applyDuration(&cfg.Relay.LeaseTTL, raw.Relay.LeaseTTL, "lease_ttl"); err != nil {
		return config{}, err
	}
	if err := applyDuration(&cfg.Relay.SubscriberTTL, raw.Relay.SubscriberTTL, "subscriber_ttl"); err != nil {
		return config{}, err
	}
	if err := applyDuration(&cfg.Relay.SweepEvery, raw.Relay.SweepEvery, "sweep_every"); err != nil {
		return config{}, err
	}
	if err := applyDuration(&cfg.Relay.PruneEvery, raw.Relay.PruneEvery, "prune_every"); err != nil {
		return config{}, err
	}

	if raw.Churn.Generations != 0 {
		cfg.Churn.Generations = raw.Churn.Generations
	}
	if raw.Churn.Subscribers != 0 {
		cfg.Churn.Subscribers = raw.Churn.Subscribers
	}
	if raw.Churn.Raises != 0 {
		cfg.Churn.Raises = raw.Churn.Raises
	}
	if err := applyDuration(&cfg.Churn.SettleLimit, raw.Churn.SettleLimit, "settle_limit"); err != nil {
		return config{}, err
	}

	return cfg, nil
}

// applyDuration parses raw into dst when raw is set.
func applyDuration(dst *time.Duration, raw, field string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", field, err)
	}
	*dst = d
	return nil
}
