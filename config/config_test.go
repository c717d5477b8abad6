package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("JWT_SECRET", " secret ")

	cfg := LoadConfig()

	if cfg.ServerPort != 8080 {
		t.Fatalf("unexpected port: %d", cfg.ServerPort)
	}
	if cfg.Auth.JWTSecret != "secret" {
		t.Fatalf("expected trimmed secret, got %q", cfg.Auth.JWTSecret)
	}
	if cfg.Auth.TokenTTL != time.Hour {
		t.Fatalf("expected 1h token ttl, got %s", cfg.Auth.TokenTTL)
	}
	if cfg.Storage.Backend != StorageLocal {
		t.Fatalf("unexpected storage backend: %q", cfg.Storage.Backend)
	}
	if cfg.MQ.Backend != MQNone {
		t.Fatalf("unexpected mq backend: %q", cfg.MQ.Backend)
	}
	if cfg.IsDev() {
		t.Fatalf("expected non-dev env by default")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("JWT_EXPIRES_IN", "15m")
	t.Setenv("STRICT_STATUS_WORKFLOW", "true")
	t.Setenv("DB_DRIVER", DriverSQLite)
	t.Setenv("MAX_RESUME_BYTES", "1024")

	cfg := LoadConfig()

	if cfg.ServerPort != 9090 {
		t.Fatalf("unexpected port: %d", cfg.ServerPort)
	}
	if cfg.Auth.TokenTTL != 15*time.Minute {
		t.Fatalf("unexpected ttl: %s", cfg.Auth.TokenTTL)
	}
	if !cfg.Workflow.StrictStatus {
		t.Fatalf("expected strict workflow")
	}
	if cfg.Database.Driver != DriverSQLite {
		t.Fatalf("unexpected driver: %q", cfg.Database.Driver)
	}
	if cfg.Workflow.MaxResumeBytes != 1024 {
		t.Fatalf("unexpected max resume bytes: %d", cfg.Workflow.MaxResumeBytes)
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("SERVER_PORT", "abc")
	t.Setenv("JWT_EXPIRES_IN", "-5m")
	t.Setenv("DB_USE_SSL", "maybe")

	cfg := LoadConfig()

	if cfg.ServerPort != 8080 {
		t.Fatalf("expected default port, got %d", cfg.ServerPort)
	}
	if cfg.Auth.TokenTTL != time.Hour {
		t.Fatalf("expected default ttl, got %s", cfg.Auth.TokenTTL)
	}
	if cfg.Database.UseSSL {
		t.Fatalf("expected ssl disabled")
	}
}
