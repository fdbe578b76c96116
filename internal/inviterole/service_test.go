package inviterole

import (
	"context"
	"errors"
	"testing"
	"time"

	"guildkeeper/internal/apperrors"
	"guildkeeper/internal/audit"
	"guildkeeper/internal/clock"
	"guildkeeper/internal/storage"

	"go.uber.org/zap"
)

func TestServicePersistsAndAudits(t *testing.T) {
	store := storage.NewMemory()
	service := NewService(store, audit.NewLogger(store, zap.NewNop()), "en")
	service.WithClock(clock.NewFake(time.UnixMilli(42_000)))
	ctx := context.Background()

	result, err := service.Add(ctx, "g1", "admin", Input{Name: "tens", Invites: []string{"INV"}}, Refs{})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if result.Rule.CreatedAt != 42_000 {
		t.Fatalf("expected clock time, got %d", result.Rule.CreatedAt)
	}

	rules, err := service.List(ctx, "g1", "")
	if err != nil || len(rules) != 1 {
		t.Fatalf("expected stored rule, got %v %v", rules, err)
	}

	if _, err := service.Remove(ctx, "g1", "admin", "tens"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := service.Remove(ctx, "g1", "admin", "tens"); !errors.Is(err, apperrors.ErrRuleNotFound) {
		t.Fatalf("expected not found on second remove, got %v", err)
	}

	logs, _ := store.ListAuditLogs(ctx, "g1", time.Time{})
	if len(logs) != 2 {
		t.Fatalf("expected two audit entries, got %d", len(logs))
	}
}

func TestServiceFailedUpsertDoesNotPersist(t *testing.T) {
	store := storage.NewMemory()
	service := NewService(store, audit.NewLogger(store, zap.NewNop()), "en")
	ctx := context.Background()

	if _, err := service.Update(ctx, "g1", "admin", Input{Name: "nope"}, Refs{}); !errors.Is(err, apperrors.ErrRuleNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := store.GetGuildConfig(ctx, "g1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected nothing stored, got %v", err)
	}
}
