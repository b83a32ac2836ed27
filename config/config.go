package config

import (
	"fmt"
	"os"
	"time"

	"taskmanager/pkg/config"
)

type AuthConfig struct {
	RequireToken bool `yaml:"require_token"`
}

type TasksConfig struct {
	TransitionMode string `yaml:"transition_mode"` // strict | permissive
}

type AppConfig struct {
	Timezone string `yaml:"timezone"`
}

type Config struct {
	Server config.ServerConfig `yaml:"server"`
	Log    config.LogConfig    `yaml:"log"`
	Store  config.StoreConfig  `yaml:"store"`
	DB     config.DBConfig     `yaml:"db"`
	Sheets config.SheetsConfig `yaml:"sheets"`
	Redis  config.RedisConfig  `yaml:"redis"`
	MQ     config.MQConfig     `yaml:"mq"`
	JWT    config.JWTConfig    `yaml:"jwt"`
	Auth   AuthConfig          `yaml:"auth"`
	Tasks  TasksConfig         `yaml:"tasks"`
	App    AppConfig           `yaml:"app"`
}

// Load reads config/<CONFIG_ENV>.yaml layered over config/base.yaml, then applies
// environment overrides. CONFIG_DIR moves the lookup directory.
func Load() (*Config, error) {
	cfg := Default()
	if err := config.LoadConfig(config.GetConfigEnv(), os.Getenv("CONFIG_DIR"), cfg); err != nil {
		return nil, err
	}

	// environment overrides (production)
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideStoreFromEnv(&cfg.Store)
	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideSheetsFromEnv(&cfg.Sheets)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideJWTFromEnv(&cfg.JWT)
	if tz := os.Getenv("TZ"); tz != "" {
		cfg.App.Timezone = tz
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the values used when a key is absent from every layer.
func Default() *Config {
	return &Config{
		Server: config.ServerConfig{Port: ":3000", ShutdownTimeout: 10 * time.Second},
		Log:    config.LogConfig{Level: "info", Format: "json", MaxSizeMB: 10, MaxBackups: 3, MaxAgeDays: 28},
		Store:  config.StoreConfig{Driver: "postgres"},
		DB:     config.DBConfig{Port: 5432, SSLMode: "disable", MaxConns: 10, SlowQueryThreshold: 100 * time.Millisecond},
		Sheets: config.SheetsConfig{UsersSheet: "Users", TasksSheet: "Sheet1", BreakerTimeout: 5 * time.Second, BreakerFailures: 3},
		MQ:     config.MQConfig{MaxRetries: 3},
		JWT:    config.JWTConfig{TTL: 24 * time.Hour},
		Tasks:  TasksConfig{TransitionMode: "strict"},
		App:    AppConfig{Timezone: "Local"},
	}
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "postgres", "sheets", "memory":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Store.Driver == "sheets" && c.Sheets.SpreadsheetID == "" {
		return fmt.Errorf("sheets.spreadsheet_id is required for the sheets driver")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves app.timezone; "Local" and "" mean the process zone.
func (c *Config) Location() (*time.Location, error) {
	if c.App.Timezone == "" || c.App.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid app.timezone %q: %w", c.App.Timezone, err)
	}
	return loc, nil
}
