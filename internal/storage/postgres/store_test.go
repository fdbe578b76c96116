package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"guildkeeper/internal/guild"
	"guildkeeper/internal/storage"
)

func connect(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("GUILDKEEPER_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("GUILDKEEPER_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	store, err := Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestGuildConfigRoundTrip(t *testing.T) {
	store := connect(t)
	ctx := context.Background()
	guildID := "test-" + time.Now().Format("150405.000000")

	if _, err := store.GetGuildConfig(ctx, guildID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	cfg := guild.NewConfig(guildID, "en")
	cfg.BlockedDomains = []string{"bad.example"}
	if err := store.PutGuildConfig(ctx, cfg); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := store.GetGuildConfig(ctx, guildID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.BlockedDomains) != 1 || got.BlockedDomains[0] != "bad.example" {
		t.Fatalf("unexpected document %+v", got)
	}
}

func TestAuditLogs(t *testing.T) {
	store := connect(t)
	ctx := context.Background()
	guildID := "audit-" + time.Now().Format("150405.000000")
	now := time.Now().UTC().Truncate(time.Second)

	if err := store.AddAuditLog(ctx, storage.AuditLog{GuildID: guildID, Level: "INFO", Event: "rule_created", CreatedAt: now}); err != nil {
		t.Fatalf("add: %v", err)
	}
	logs, err := store.ListAuditLogs(ctx, guildID, now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 1 || logs[0].Event != "rule_created" {
		t.Fatalf("unexpected logs %+v", logs)
	}
}
