package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Relay.RedisAddress != "localhost:6379" {
		t.Fatalf("unexpected redis address: %q", cfg.Relay.RedisAddress)
	}
	if cfg.Relay.SubscriberTTL != time.Minute {
		t.Fatalf("unexpected subscriber ttl: %v", cfg.Relay.SubscriberTTL)
	}
	if cfg.Churn.Generations != 3 {
		t.Fatalf("unexpected generations: %d", cfg.Churn.Generations)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weakevent.yaml")
	content := `
log_level: debug

relay:
  redis:
    address: redis.internal:6380
    db: 2
  channel: notices.prod
  listen: :9090
  exclusive: true
  history: 32
  subscriber_ttl: 90s
  prune_every: 5s

churn:
  generations: 7
  settle_limit: 30s
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("unexpected log level: %q", cfg.LogLevel)
	}
	if cfg.Relay.RedisAddress != "redis.internal:6380" {
		t.Fatalf("unexpected redis address: %q", cfg.Relay.RedisAddress)
	}
	if cfg.Relay.RedisDB != 2 {
		t.Fatalf("unexpected redis db: %d", cfg.Relay.RedisDB)
	}
	if cfg.Relay.Channel != "notices.prod" {
		t.Fatalf("unexpected channel: %q", cfg.Relay.Channel)
	}
	if cfg.Relay.Listen != ":9090" {
		t.Fatalf("unexpected listen: %q", cfg.Relay.Listen)
	}
	if !cfg.Relay.Exclusive {
		t.Fatalf("expected exclusive mode enabled")
	}
	if cfg.Relay.History != 32 {
		t.Fatalf("unexpected history size: %d", cfg.Relay.History)
	}
	if cfg.Relay.SubscriberTTL != 90*time.Second {
		t.Fatalf("unexpected subscriber ttl: %v", cfg.Relay.SubscriberTTL)
	}
	if cfg.Relay.PruneEvery != 5*time.Second {
		t.Fatalf("unexpected prune interval: %v", cfg.Relay.PruneEvery)
	}
	if cfg.Relay.SweepEvery != time.Second {
		t.Fatalf("sweep interval should keep its default: %v", cfg.Relay.SweepEvery)
	}
	if cfg.Churn.Generations != 7 {
		t.Fatalf("unexpected generations: %d", cfg.Churn.Generations)
	}
	if cfg.Churn.Subscribers != 100 {
		t.Fatalf("subscribers should keep their default: %d", cfg.Churn.Subscribers)
	}
	if cfg.Churn.SettleLimit != 30*time.Second {
		t.Fatalf("unexpected settle limit: %v", cfg.Churn.SettleLimit)
	}
}

func TestLoadConfigJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weakevent.json")
	content := `{"relay": {"channel": "notices.json", "subscriber_ttl": "45s"}}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Relay.Channel != "notices.json" {
		t.Fatalf("unexpected channel: %q", cfg.Relay.Channel)
	}
	if cfg.Relay.SubscriberTTL != 45*time.Second {
		t.Fatalf("unexpected subscriber ttl: %v", cfg.Relay.SubscriberTTL)
	}
}

func TestLoadConfigBadDuration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weakevent.yaml")
	content := `
relay:
  subscriber_ttl: soon
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := loadConfig(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadConfigBadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weakevent.yaml")
	if err := os.WriteFile(path, []byte("relay: 42\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := loadConfig(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
