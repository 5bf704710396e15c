// Package config loads and exposes application configuration (TOML).
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath       = "config.toml"
	DefaultHTTPAddr         = ":8080"
	DefaultPGHost           = "127.0.0.1"
	DefaultPGPort           = 5432
	DefaultPGUser           = "postgres"
	DefaultPGDatabase       = "rollcall"
	DefaultPGSSLMode        = "disable"
	DefaultMatchThreshold   = 80
	DefaultContainmentScore = 90
)

// Config is the root application configuration loaded from TOML.
type Config struct {
	Log       LogConfig       `toml:"log"`
	Server    ServerConfig    `toml:"server"`
	Discord   DiscordConfig   `toml:"discord"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Reconcile ReconcileConfig `toml:"reconcile"`
}

// LogConfig holds logging level and format (e.g. level=info, format=text).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig holds the HTTP server listen address.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// DiscordConfig holds the bot credential and the guild the service observes.
type DiscordConfig struct {
	BotToken string `toml:"bot_token"`
	GuildID  string `toml:"guild_id"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// ReconcileConfig holds identity matching constants and the optional
// cron spec for scheduled reconciliation runs (empty disables the schedule).
type ReconcileConfig struct {
	ScoreThreshold   int    `toml:"score_threshold"`
	ContainmentScore int    `toml:"containment_score"`
	CronSpec         string `toml:"cron_spec"`
}

// Load reads and parses the TOML config file at path and applies default values
// for missing fields. Environment variables DISCORD_BOT_TOKEN and HTTP_ADDR
// override their file counterparts.
func Load(path string) (Config, error) {
	cfg := Config{
		Log:    LogConfig{Level: "info", Format: "text"},
		Server: ServerConfig{Addr: DefaultHTTPAddr},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Reconcile: ReconcileConfig{
			ScoreThreshold:   DefaultMatchThreshold,
			ContainmentScore: DefaultContainmentScore,
		},
	}
	if path == "" {
		path = DefaultConfigPath
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	if cfg.Reconcile.ScoreThreshold <= 0 || cfg.Reconcile.ScoreThreshold > 100 {
		return Config{}, fmt.Errorf("reconcile score_threshold must be in (0,100], got %d", cfg.Reconcile.ScoreThreshold)
	}
	if cfg.Reconcile.ContainmentScore <= 0 || cfg.Reconcile.ContainmentScore > 100 {
		return Config{}, fmt.Errorf("reconcile containment_score must be in (0,100], got %d", cfg.Reconcile.ContainmentScore)
	}

	if v := os.Getenv("DISCORD_BOT_TOKEN"); v != "" {
		cfg.Discord.BotToken = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	return cfg, nil
}
