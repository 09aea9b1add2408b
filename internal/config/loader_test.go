package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/example/eventform/internal/application"
	"github.com/example/eventform/internal/export"
)

var configEnv = []string{
	"EVENTFORM_CONFIG",
	"EVENTFORM_HTTP_PORT",
	"EVENTFORM_STORE_DRIVER",
	"EVENTFORM_SQLITE_DSN",
	"EVENTFORM_REDIS_ADDR",
	"EVENTFORM_REDIS_PASSWORD",
	"EVENTFORM_REDIS_DB",
	"EVENTFORM_REDIS_PREFIX",
	"EVENTFORM_PUBLIC_BASE_URL",
	"EVENTFORM_ADMIN_TOKEN",
	"EVENTFORM_KEY_SOURCE",
	"EVENTFORM_CSV_QUOTING",
	"EVENTFORM_QR_WORKERS",
	"EVENTFORM_LOG_LEVEL",
}

// clearEnv blanks every variable the loader reads. Empty values count as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnv {
		t.Setenv(key, "")
	}
}

func TestLoader_ParseEnvironment(t *testing.T) {

	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		clearEnv(t)
		const token = "admin-secret"
		t.Setenv("EVENTFORM_ADMIN_TOKEN", token)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.StoreDriver != StoreSQLite || cfg.SQLiteDSN != "data/eventform.db" {
			t.Fatalf("unexpected default store: %q %q", cfg.StoreDriver, cfg.SQLiteDSN)
		}
		if cfg.PublicBaseURL != "http://localhost:8080/" {
			t.Fatalf("unexpected default base url: %q", cfg.PublicBaseURL)
		}
		if cfg.AdminToken != token {
			t.Fatalf("expected admin token to be %q, got %q", token, cfg.AdminToken)
		}
		if cfg.KeySource != application.SecretSourceCrypto {
			t.Fatalf("expected crypto key source, got %q", cfg.KeySource)
		}
		if cfg.CSVQuoting != export.QuotingLegacy {
			t.Fatalf("expected legacy quoting, got %q", cfg.CSVQuoting)
		}
		if cfg.QRWorkers != 4 || cfg.LogLevel != "info" {
			t.Fatalf("unexpected worker/log defaults: %d %q", cfg.QRWorkers, cfg.LogLevel)
		}
		if cfg.Redis.Prefix != "eventform:" {
			t.Fatalf("unexpected redis prefix: %q", cfg.Redis.Prefix)
		}
	})

	t.Run("errors when required values are missing", func(t *testing.T) {
		clearEnv(t)

		_, err := Load()
		if err == nil {
			t.Fatalf("expected error when required values are missing")
		}
		expected := "必須の環境変数が設定されていません: EVENTFORM_ADMIN_TOKEN"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("redis driver requires an address", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("EVENTFORM_ADMIN_TOKEN", "token")
		t.Setenv("EVENTFORM_STORE_DRIVER", "redis")

		_, err := Load()
		expected := "必須の環境変数が設定されていません: EVENTFORM_REDIS_ADDR"
		if err == nil || err.Error() != expected {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("parses numeric and enumerated fields", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("EVENTFORM_ADMIN_TOKEN", "token")
		t.Setenv("EVENTFORM_HTTP_PORT", "9090")
		t.Setenv("EVENTFORM_STORE_DRIVER", "REDIS")
		t.Setenv("EVENTFORM_REDIS_ADDR", "localhost:6379")
		t.Setenv("EVENTFORM_REDIS_DB", "3")
		t.Setenv("EVENTFORM_PUBLIC_BASE_URL", "https://forms.example.com/register")
		t.Setenv("EVENTFORM_KEY_SOURCE", "math")
		t.Setenv("EVENTFORM_CSV_QUOTING", "rfc4180")
		t.Setenv("EVENTFORM_QR_WORKERS", "8")
		t.Setenv("EVENTFORM_LOG_LEVEL", "DEBUG")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 9090 || cfg.QRWorkers != 8 {
			t.Fatalf("unexpected numeric values: port=%d workers=%d", cfg.HTTPPort, cfg.QRWorkers)
		}
		if cfg.StoreDriver != StoreRedis || cfg.Redis.Addr != "localhost:6379" || cfg.Redis.DB != 3 {
			t.Fatalf("unexpected redis config: %+v (%s)", cfg.Redis, cfg.StoreDriver)
		}
		if cfg.PublicBaseURL != "https://forms.example.com/register" {
			t.Fatalf("unexpected base url: %q", cfg.PublicBaseURL)
		}
		if cfg.KeySource != application.SecretSourceMath || cfg.CSVQuoting != export.QuotingRFC4180 {
			t.Fatalf("unexpected enumerations: %q %q", cfg.KeySource, cfg.CSVQuoting)
		}
		if cfg.LogLevel != "debug" {
			t.Fatalf("expected lower-cased log level, got %q", cfg.LogLevel)
		}
	})

	t.Run("reports every invalid value together", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("EVENTFORM_ADMIN_TOKEN", "token")
		t.Setenv("EVENTFORM_HTTP_PORT", "eighty")
		t.Setenv("EVENTFORM_QR_WORKERS", "0")
		t.Setenv("EVENTFORM_STORE_DRIVER", "postgres")
		t.Setenv("EVENTFORM_CSV_QUOTING", "excel")

		_, err := Load()
		if err == nil {
			t.Fatalf("expected error for invalid values")
		}
		expected := "環境変数の値が不正です: EVENTFORM_HTTP_PORT, EVENTFORM_QR_WORKERS, EVENTFORM_STORE_DRIVER, EVENTFORM_CSV_QUOTING, EVENTFORM_PUBLIC_BASE_URL"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("reads a yaml file and lets the environment override it", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), "eventform.yaml")
		body := "admin_token: from-file\nhttp_port: 7070\nstore:\n  driver: memory\n"
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatalf("write config: %v", err)
		}
		t.Setenv("EVENTFORM_CONFIG", path)
		t.Setenv("EVENTFORM_HTTP_PORT", "7171")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.AdminToken != "from-file" || cfg.StoreDriver != StoreMemory {
			t.Fatalf("expected file values, got %+v", cfg)
		}
		if cfg.HTTPPort != 7171 {
			t.Fatalf("expected environment override, got %d", cfg.HTTPPort)
		}
	})

	t.Run("missing explicit file is an error", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("EVENTFORM_ADMIN_TOKEN", "token")

		if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
			t.Fatalf("expected error for a missing config file")
		}
	})
}
