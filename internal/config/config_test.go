// README: Tests for config defaults, YAML file loading and env overrides.
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CARPOOL_CONFIG_FILE", "")
	t.Setenv("CARPOOL_HTTP_ADDR", "")
	t.Setenv("CARPOOL_PROMO_TIMEOUT", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("unexpected addr %q", cfg.HTTP.Addr)
	}
	if cfg.Promo.EvaluateTimeout != 5*time.Second {
		t.Fatalf("unexpected promo timeout %v", cfg.Promo.EvaluateTimeout)
	}
	if cfg.Kafka.RideTopic != "ride.status" {
		t.Fatalf("unexpected topic %q", cfg.Kafka.RideTopic)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "carpool.yaml")
	body := []byte(`
http:
  addr: ":9000"
kafka:
  brokers: ["k1:9092", "k2:9092"]
promo:
  evaluate_timeout: 2s
search:
  radius_km: 25
`)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CARPOOL_CONFIG_FILE", path)
	t.Setenv("CARPOOL_HTTP_ADDR", ":9100")
	t.Setenv("CARPOOL_KAFKA_BROKERS", "")
	t.Setenv("CARPOOL_PROMO_TIMEOUT", "")
	t.Setenv("CARPOOL_SEARCH_RADIUS_KM", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":9100" {
		t.Fatalf("env should override file, got %q", cfg.HTTP.Addr)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Fatalf("unexpected brokers %v", cfg.Kafka.Brokers)
	}
	if cfg.Promo.EvaluateTimeout != 2*time.Second {
		t.Fatalf("unexpected promo timeout %v", cfg.Promo.EvaluateTimeout)
	}
	if cfg.Search.RadiusKm != 25 {
		t.Fatalf("invalid env value should keep file value, got %v", cfg.Search.RadiusKm)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing file", map[string]string{"CARPOOL_CONFIG_FILE": "/nonexistent/carpool.yaml"}},
		{"zero promo timeout", map[string]string{"CARPOOL_CONFIG_FILE": "", "CARPOOL_PROMO_TIMEOUT": "0s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestEnvOrDefaultList(t *testing.T) {
	t.Setenv("CARPOOL_TEST_LIST", " a, ,b ")
	got := envOrDefaultList("CARPOOL_TEST_LIST", []string{"x"})
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected list %v", got)
	}
	if got := envOrDefaultList("CARPOOL_TEST_UNSET", []string{"x"}); len(got) != 1 || got[0] != "x" {
		t.Fatalf("expected default, got %v", got)
	}
}
