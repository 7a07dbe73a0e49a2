package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := LoadFrom(viper.New(), filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Notification.TTL() != 3*time.Second {
		t.Fatalf("unexpected notification ttl: %s", cfg.Notification.TTL())
	}
	if cfg.Events.Redis.Channel != "pos:cart-events" || cfg.Events.Kafka.Enabled {
		t.Fatalf("unexpected events config: %+v", cfg.Events)
	}
	if cfg.Queue.Queues["critical"] != 5 {
		t.Fatalf("unexpected queues: %+v", cfg.Queue.Queues)
	}
	if cfg.Monitor.IdleTimeout() != 30*time.Minute {
		t.Fatalf("unexpected idle timeout: %s", cfg.Monitor.IdleTimeout())
	}
}

func TestLoadFromFileAndEnv(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yml")
	content := []byte("upstream:\n  base_url: http://pos.internal\n  token: file-token\nnotification:\n  ttl_seconds: 5\n")
	if err := os.WriteFile(file, content, 0o644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}
	t.Setenv("UPSTREAM_TOKEN", "env-token")

	cfg, err := LoadFrom(viper.New(), file)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Upstream.BaseURL != "http://pos.internal" {
		t.Fatalf("unexpected base url: %s", cfg.Upstream.BaseURL)
	}
	if cfg.Upstream.Token != "env-token" {
		t.Fatalf("env should override file, got %s", cfg.Upstream.Token)
	}
	if cfg.Notification.TTL() != 5*time.Second {
		t.Fatalf("unexpected ttl: %s", cfg.Notification.TTL())
	}
}

func TestDurationFallbacks(t *testing.T) {
	if got := (UpstreamConfig{}).Timeout(); got != 15*time.Second {
		t.Fatalf("unexpected timeout fallback: %s", got)
	}
	if got := (NotificationConfig{TTLSeconds: -1}).TTL(); got != 3*time.Second {
		t.Fatalf("unexpected ttl fallback: %s", got)
	}
}
