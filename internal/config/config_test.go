package config

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	if _, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected missing token error")
	}
}

func TestLoadYAMLThenEnv(t *testing.T) {
	path := writeYAML(t, `
discord_token: from-file
default_language: fr
storage:
  driver: bbolt
  path: /tmp/gk.db
invite_roles:
  revoke_delay_ms: 5000
api:
  enabled: true
  token: secret
`)
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("API_BURST", "20")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DiscordToken != "from-file" || cfg.Storage.Driver != DriverBolt {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.InviteRoles.RevokeDelayMS != 5000 || cfg.API.Burst != 20 || cfg.API.Rate != 5 {
		t.Fatalf("unexpected overrides %+v", cfg)
	}
	if cfg.Stats.Language != "fr" {
		t.Fatalf("expected stats language to follow default, got %q", cfg.Stats.Language)
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("STORAGE_DRIVER", "mongo")
	if _, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected driver error")
	}
}

func TestLoadPostgresNeedsDSN(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("DATABASE_DSN", "")
	if _, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected dsn error")
	}
}

func TestDefaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("STORAGE_DRIVER", "")
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != DriverSQLite || cfg.InviteRoles.RevokeDelayMS != 2000 || cfg.API.Enabled {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestParseLevel(t *testing.T) {
	if parseLevel("warn") != zapcore.WarnLevel || parseLevel("nope") != zapcore.InfoLevel {
		t.Fatalf("unexpected level mapping")
	}
	if _, err := BuildLogger("debug"); err != nil {
		t.Fatalf("build logger: %v", err)
	}
}
