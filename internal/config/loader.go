package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/example/eventform/internal/application"
	"github.com/example/eventform/internal/export"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "EVENTFORM"

// Store drivers accepted by StoreDriver.
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Config captures environment driven configuration values for the event form service.
type Config struct {
	HTTPPort      int
	StoreDriver   string
	SQLiteDSN     string
	Redis         RedisConfig
	PublicBaseURL string
	AdminToken    string
	KeySource     application.SecretSource
	CSVQuoting    export.Quoting
	QRWorkers     int
	LogLevel      string
}

// RedisConfig holds the Redis slot store settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Load parses configuration from the process environment and, when
// EVENTFORM_CONFIG names one, a YAML file. Environment values win over the file.
func Load() (Config, error) {
	return LoadFile(strings.TrimSpace(os.Getenv(EnvPrefix + "_CONFIG")))
}

// LoadFile behaves like Load with an explicit config file path. An empty path
// looks for eventform.yaml in the working directory and ignores its absence.
func LoadFile(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("設定ファイルを読み込めません: %w", err)
		}
	} else {
		v.SetConfigName("eventform")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("設定ファイルを読み込めません: %w", err)
			}
		}
	}

	return parse(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_port", "8080")
	v.SetDefault("store.driver", StoreSQLite)
	v.SetDefault("sqlite.dsn", "data/eventform.db")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", "0")
	v.SetDefault("redis.prefix", "eventform:")
	v.SetDefault("public_base_url", "")
	v.SetDefault("admin_token", "")
	v.SetDefault("key_source", string(application.SecretSourceCrypto))
	v.SetDefault("csv_quoting", string(export.QuotingLegacy))
	v.SetDefault("qr_workers", "4")
	v.SetDefault("log_level", "info")
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func parse(v *viper.Viper) (Config, error) {
	cfg := Config{
		SQLiteDSN: strings.TrimSpace(v.GetString("sqlite.dsn")),
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(v.GetString("redis.addr")),
			Password: v.GetString("redis.password"),
			Prefix:   v.GetString("redis.prefix"),
		},
		LogLevel: strings.ToLower(strings.TrimSpace(v.GetString("log_level"))),
	}

	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 4)

	positiveInt := func(key string, allowZero bool) int {
		value, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
		if err != nil || value < 0 || (value == 0 && !allowZero) {
			invalid = append(invalid, envName(key))
			return 0
		}
		return value
	}

	cfg.HTTPPort = positiveInt("http_port", false)
	cfg.Redis.DB = positiveInt("redis.db", true)
	cfg.QRWorkers = positiveInt("qr_workers", false)

	switch driver := strings.ToLower(strings.TrimSpace(v.GetString("store.driver"))); driver {
	case StoreSQLite:
		cfg.StoreDriver = driver
		if cfg.SQLiteDSN == "" {
			missing = append(missing, envName("sqlite.dsn"))
		}
	case StoreRedis:
		cfg.StoreDriver = driver
		if cfg.Redis.Addr == "" {
			missing = append(missing, envName("redis.addr"))
		}
	case StoreMemory:
		cfg.StoreDriver = driver
	default:
		invalid = append(invalid, envName("store.driver"))
	}

	if token := strings.TrimSpace(v.GetString("admin_token")); token == "" {
		missing = append(missing, envName("admin_token"))
	} else {
		cfg.AdminToken = token
	}

	if source, err := application.ParseSecretSource(v.GetString("key_source")); err != nil {
		invalid = append(invalid, envName("key_source"))
	} else {
		cfg.KeySource = source
	}

	if quoting, err := export.ParseQuoting(v.GetString("csv_quoting")); err != nil {
		invalid = append(invalid, envName("csv_quoting"))
	} else {
		cfg.CSVQuoting = quoting
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		invalid = append(invalid, envName("log_level"))
	}

	base := strings.TrimSpace(v.GetString("public_base_url"))
	if base == "" && cfg.HTTPPort > 0 {
		base = fmt.Sprintf("http://localhost:%d/", cfg.HTTPPort)
	}
	if parsed, err := url.Parse(base); err != nil || !parsed.IsAbs() || parsed.Host == "" {
		invalid = append(invalid, envName("public_base_url"))
	} else {
		cfg.PublicBaseURL = base
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("必須の環境変数が設定されていません: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
