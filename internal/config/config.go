package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/loykin/longrun/internal/logger"
	"github.com/loykin/longrun/internal/store"
)

// Config is the top-level TOML structure for the serve daemon.
//
// Example:
//
//	[server]
//	listen = ":8080"
//	base_path = "/api"
//
//	[store]
//	type = "sqlite"
//	path = "/var/lib/longrun/longrun.db"
//
//	[[history]]
//	dsn = "sqlite:///var/lib/longrun/history.db"
//
//	[supervisor]
//	step_interval = "1s"
//	poll_interval = "500ms"
//	stale_after = "30s"
//	reconcile_interval = "10s"
type Config struct {
	Server     ServerConfig     `toml:"server" mapstructure:"server"`
	Store      store.Config     `toml:"store" mapstructure:"store"`
	History    []HistoryConfig  `toml:"history" mapstructure:"history"`
	Metrics    MetricsConfig    `toml:"metrics" mapstructure:"metrics"`
	Log        logger.Config    `toml:"log" mapstructure:"log"`
	Supervisor SupervisorConfig `toml:"supervisor" mapstructure:"supervisor"`
}

type ServerConfig struct {
	Listen   string `toml:"listen" mapstructure:"listen"`
	BasePath string `toml:"base_path" mapstructure:"base_path"`
}

// HistoryConfig configures one sink by DSN. Table is used by the
// ClickHouse sink only; SQL sinks always write operation_history.
type HistoryConfig struct {
	DSN   string `toml:"dsn" mapstructure:"dsn"`
	Table string `toml:"table" mapstructure:"table"`
}

type MetricsConfig struct {
	Enabled bool `toml:"enabled" mapstructure:"enabled"`
}

type SupervisorConfig struct {
	StepInterval      time.Duration `toml:"step_interval" mapstructure:"step_interval"`
	PollInterval      time.Duration `toml:"poll_interval" mapstructure:"poll_interval"`
	StaleAfter        time.Duration `toml:"stale_after" mapstructure:"stale_after"`
	ReconcileInterval time.Duration `toml:"reconcile_interval" mapstructure:"reconcile_interval"`
}

// Load reads a TOML config file and applies defaults.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = ":8080"
	}
	if c.Server.BasePath == "" {
		c.Server.BasePath = "/api"
	}
	if c.Store.Type == "" {
		c.Store.Type = "memory"
	}
	if c.Supervisor.StepInterval <= 0 {
		c.Supervisor.StepInterval = time.Second
	}
	if c.Supervisor.PollInterval <= 0 {
		c.Supervisor.PollInterval = 500 * time.Millisecond
	}
	if c.Supervisor.StaleAfter <= 0 {
		c.Supervisor.StaleAfter = 30 * time.Second
	}
	if c.Supervisor.ReconcileInterval <= 0 {
		c.Supervisor.ReconcileInterval = 10 * time.Second
	}
}
