package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Поддерживаемые драйверы хранилища заявок.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Config описывает настройки запуска клиента.
type Config struct {
	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool
	// GuardedClose включает условную запись закрытия (status == open).
	GuardedClose bool

	KafkaBrokers []string
	KafkaGroupID string

	RedisAddr    string
	SessionToken string
	// SessionTTL используется командой login; 0: без срока.
	SessionTTL time.Duration

	// MetricsAddr пустой: HTTP-сервер метрик не запускается.
	MetricsAddr string
	Timezone    string
	LogLevel    string
	TraceStdout bool
}

// DefaultConfig возвращает настройки для локального запуска без внешних сервисов.
func DefaultConfig() Config {
	return Config{
		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,
		KafkaGroupID:        "helpdesk-cli",
		SessionTTL:          12 * time.Hour,
		Timezone:            "Local",
		LogLevel:            "info",
	}
}

// ConfigFromEnv читает переменные HELPDESK_* поверх DefaultConfig.
func ConfigFromEnv() (Config, error) {
	return configFromLookup(os.LookupEnv)
}

func configFromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := DefaultConfig()
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		if !ok {
			return "", false
		}
		v = strings.TrimSpace(v)
		return v, v != ""
	}

	if v, ok := get("HELPDESK_STORAGE_DRIVER"); ok {
		cfg.StorageDriver = strings.ToLower(v)
	}
	if v, ok := get("HELPDESK_POSTGRES_DSN"); ok {
		cfg.PostgresDSN = v
	}
	if v, ok := get("HELPDESK_POSTGRES_AUTO_MIGRATE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("HELPDESK_POSTGRES_AUTO_MIGRATE: %w", err)
		}
		cfg.PostgresAutoMigrate = b
	}
	if v, ok := get("HELPDESK_GUARDED_CLOSE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("HELPDESK_GUARDED_CLOSE: %w", err)
		}
		cfg.GuardedClose = b
	}
	if v, ok := get("HELPDESK_KAFKA_BROKERS"); ok {
		cfg.KafkaBrokers = splitBrokers(v)
	}
	if v, ok := get("HELPDESK_KAFKA_GROUP_ID"); ok {
		cfg.KafkaGroupID = v
	}
	if v, ok := get("HELPDESK_REDIS_ADDR"); ok {
		cfg.RedisAddr = v
	}
	if v, ok := get("HELPDESK_SESSION_TOKEN"); ok {
		cfg.SessionToken = v
	}
	if v, ok := get("HELPDESK_SESSION_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("HELPDESK_SESSION_TTL: %w", err)
		}
		cfg.SessionTTL = d
	}
	if v, ok := get("HELPDESK_METRICS_ADDR"); ok {
		cfg.MetricsAddr = v
	}
	if v, ok := get("HELPDESK_TIMEZONE"); ok {
		cfg.Timezone = v
	}
	if v, ok := get("HELPDESK_LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := get("HELPDESK_TRACE_STDOUT"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("HELPDESK_TRACE_STDOUT: %w", err)
		}
		cfg.TraceStdout = b
	}
	return cfg, nil
}

// Validate проверяет согласованность настроек до подключения к сервисам.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("postgres storage requires HELPDESK_POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", c.StorageDriver)
	}
	if c.SessionTTL < 0 {
		return fmt.Errorf("session ttl must not be negative")
	}
	return nil
}

func splitBrokers(raw string) []string {
	var out []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
