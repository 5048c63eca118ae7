package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE", "")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("GATEWAY_TIMEOUT", "")
	t.Setenv("RECONCILER_WORKERS", "")

	cfg := Load()
	if cfg.Store != "postgres" {
		t.Errorf("expected postgres store by default, got %q", cfg.Store)
	}
	if cfg.HTTPAddr != ":8081" {
		t.Errorf("expected default addr, got %q", cfg.HTTPAddr)
	}
	if cfg.GatewayTimeout != 10*time.Second {
		t.Errorf("expected 10s gateway timeout, got %s", cfg.GatewayTimeout)
	}
	if cfg.ReconcilerWorkers != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.ReconcilerWorkers)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092 ")
	t.Setenv("GATEWAY_TIMEOUT", "3s")
	t.Setenv("RECONCILER_WORKERS", "-2")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE", "Memory")

	cfg := Load()
	if !reflect.DeepEqual(cfg.KafkaBrokers, []string{"k1:9092", "k2:9092"}) {
		t.Errorf("unexpected brokers: %v", cfg.KafkaBrokers)
	}
	if cfg.GatewayTimeout != 3*time.Second {
		t.Errorf("expected 3s, got %s", cfg.GatewayTimeout)
	}
	if cfg.ReconcilerWorkers != 4 {
		t.Errorf("negative worker count should fall back to default, got %d", cfg.ReconcilerWorkers)
	}
	if cfg.Store != "memory" {
		t.Errorf("expected store to be lower-cased, got %q", cfg.Store)
	}
	if string(cfg.JWTSecret) != "s3cret" {
		t.Errorf("unexpected secret %q", cfg.JWTSecret)
	}
}
