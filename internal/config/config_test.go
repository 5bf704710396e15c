package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[discord]
bot_token = "token"
guild_id = "123"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != DefaultHTTPAddr {
		t.Fatalf("addr = %q, want %q", cfg.Server.Addr, DefaultHTTPAddr)
	}
	if cfg.Postgres.Port != DefaultPGPort {
		t.Fatalf("pg port = %d, want %d", cfg.Postgres.Port, DefaultPGPort)
	}
	if cfg.Reconcile.ScoreThreshold != DefaultMatchThreshold {
		t.Fatalf("threshold = %d, want %d", cfg.Reconcile.ScoreThreshold, DefaultMatchThreshold)
	}
	if cfg.Reconcile.ContainmentScore != DefaultContainmentScore {
		t.Fatalf("containment = %d, want %d", cfg.Reconcile.ContainmentScore, DefaultContainmentScore)
	}
	if cfg.Discord.BotToken != "token" || cfg.Discord.GuildID != "123" {
		t.Fatalf("discord config not loaded: %+v", cfg.Discord)
	}
}

func TestLoadOverridesFromFile(t *testing.T) {
	path := writeConfig(t, `
[server]
addr = ":9999"

[reconcile]
score_threshold = 85
containment_score = 92
cron_spec = "0 3 * * *"

[postgres]
host = "db.internal"
port = 6432
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":9999" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Reconcile.ScoreThreshold != 85 || cfg.Reconcile.ContainmentScore != 92 {
		t.Fatalf("reconcile = %+v", cfg.Reconcile)
	}
	if cfg.Reconcile.CronSpec != "0 3 * * *" {
		t.Fatalf("cron = %q", cfg.Reconcile.CronSpec)
	}
	if cfg.Postgres.Host != "db.internal" || cfg.Postgres.Port != 6432 {
		t.Fatalf("postgres = %+v", cfg.Postgres)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
[discord]
bot_token = "from-file"
`)
	t.Setenv("DISCORD_BOT_TOKEN", "from-env")
	t.Setenv("HTTP_ADDR", ":7777")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Discord.BotToken != "from-env" {
		t.Fatalf("token = %q, want env override", cfg.Discord.BotToken)
	}
	if cfg.Server.Addr != ":7777" {
		t.Fatalf("addr = %q, want env override", cfg.Server.Addr)
	}
}

func TestLoadRejectsBadThreshold(t *testing.T) {
	path := writeConfig(t, `
[reconcile]
score_threshold = 150
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for out-of-range threshold")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}
