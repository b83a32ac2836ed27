package config

import (
	"os"
	"strconv"
	"time"
)

// ServerConfig HTTP server settings
type ServerConfig struct {
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

// LogConfig logger settings
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // json | console
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// StoreConfig selects the record store driver
type StoreConfig struct {
	Driver string `yaml:"driver"` // postgres | sheets | memory
}

// DBConfig database settings
type DBConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	User               string        `yaml:"user"`
	Password           string        `yaml:"password"`
	Name               string        `yaml:"name"`
	SSLMode            string        `yaml:"sslmode"`
	MaxConns           int32         `yaml:"max_conns"`
	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold"`
}

// SheetsConfig spreadsheet store settings
type SheetsConfig struct {
	SpreadsheetID   string        `yaml:"spreadsheet_id"`
	CredentialsFile string        `yaml:"credentials_file"`
	CredentialsJSON string        `yaml:"credentials_json"`
	UsersSheet      string        `yaml:"users_sheet"`
	TasksSheet      string        `yaml:"tasks_sheet"`
	BreakerTimeout  time.Duration `yaml:"breaker_timeout"`
	BreakerFailures uint32        `yaml:"breaker_failures"`
}

// RedisConfig Redis settings
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// MQConfig message queue settings
type MQConfig struct {
	URL        string `yaml:"url"`
	MaxRetries int64  `yaml:"max_retries"`
	// Outbox routes events through the outbox_events table (postgres only).
	Outbox bool `yaml:"outbox"`
}

// JWTConfig session token settings
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl"`
}

// OverrideDBFromEnv overrides database settings from the environment
func OverrideDBFromEnv(cfg *DBConfig) {
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Name = name
	}
}

// OverrideSheetsFromEnv overrides spreadsheet settings from the environment.
// GOOGLE_APPLICATION_CREDENTIALS may hold either a path or the JSON document itself.
func OverrideSheetsFromEnv(cfg *SheetsConfig) {
	if id := os.Getenv("SHEET_ID"); id != "" {
		cfg.SpreadsheetID = id
	}
	if creds := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); creds != "" {
		if len(creds) > 0 && creds[0] == '{' {
			cfg.CredentialsJSON = creds
		} else {
			cfg.CredentialsFile = creds
		}
	}
}

// OverrideMQFromEnv overrides MQ settings from the environment
func OverrideMQFromEnv(cfg *MQConfig) {
	if url := os.Getenv("MQ_URL"); url != "" {
		cfg.URL = url
	}
}

// OverrideRedisFromEnv overrides Redis settings from the environment
func OverrideRedisFromEnv(cfg *RedisConfig) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Password = password
	}
}

// OverrideJWTFromEnv overrides JWT settings from the environment
func OverrideJWTFromEnv(cfg *JWTConfig) {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Secret = secret
	}
}

// OverrideServerFromEnv overrides server settings from the environment.
// PORT is honoured for hosting platforms that inject it.
func OverrideServerFromEnv(cfg *ServerConfig) {
	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = ":" + port
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}
}

// OverrideStoreFromEnv overrides the store driver from the environment
func OverrideStoreFromEnv(cfg *StoreConfig) {
	if driver := os.Getenv("STORE_DRIVER"); driver != "" {
		cfg.Driver = driver
	}
}
