package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"guildkeeper/internal/guild"
	"guildkeeper/internal/storage"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestGuildConfigRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	if _, err := store.GetGuildConfig(ctx, "g1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	cfg := guild.NewConfig("g1", "en")
	cfg.LogChannelID = "c1"
	cfg.Leaderboards["lb"] = &guild.Leaderboard{Name: "lb", Title: "Top", Type: guild.TypeUser}
	if err := store.PutGuildConfig(ctx, cfg); err != nil {
		t.Fatalf("put: %v", err)
	}

	cfg.LogChannelID = "c2"
	if err := store.PutGuildConfig(ctx, cfg); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := store.GetGuildConfig(ctx, "g1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.LogChannelID != "c2" {
		t.Fatalf("expected channel c2, got %q", got.LogChannelID)
	}
	if got.Leaderboards["lb"] == nil || got.Leaderboards["lb"].Title != "Top" {
		t.Fatalf("expected leaderboard persisted, got %+v", got.Leaderboards)
	}
}

func TestMigrateTwice(t *testing.T) {
	store := newStore(t)
	if err := store.Migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestAuditLogs(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	entries := []storage.AuditLog{
		{GuildID: "g1", Level: "INFO", Event: "rule_created", CreatedAt: now.Add(-48 * time.Hour)},
		{GuildID: "g1", Level: "WARN", Event: "role_grant_failed", CreatedAt: now.Add(-time.Hour)},
		{GuildID: "g2", Level: "INFO", Event: "rule_created", CreatedAt: now},
	}
	for _, entry := range entries {
		if err := store.AddAuditLog(ctx, entry); err != nil {
			t.Fatalf("add audit log: %v", err)
		}
	}

	logs, err := store.ListAuditLogs(ctx, "g1", now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 1 || logs[0].Event != "role_grant_failed" {
		t.Fatalf("unexpected logs %+v", logs)
	}
	if !logs[0].CreatedAt.Equal(now.Add(-time.Hour)) {
		t.Fatalf("unexpected timestamp %v", logs[0].CreatedAt)
	}

	if err := store.CleanupAuditLogs(ctx, now.Add(-24*time.Hour)); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	logs, _ = store.ListAuditLogs(ctx, "g1", time.Time{})
	if len(logs) != 1 {
		t.Fatalf("expected one log after cleanup, got %d", len(logs))
	}
}
