// Package storage defines the persistence contract for guild documents and
// the audit trail. Implementations live in the sqlite, bbolt and postgres
// subpackages.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"guildkeeper/internal/guild"
)

// ErrNotFound is returned when a guild has no stored document.
var ErrNotFound = errors.New("record not found")

type AuditLog struct {
	ID        int64     `db:"id"`
	GuildID   string    `db:"guild_id"`
	UserID    string    `db:"user_id"`
	Level     string    `db:"level"`
	Event     string    `db:"event"`
	Details   string    `db:"details"`
	CreatedAt time.Time `db:"-"`
}

// Store persists whole guild documents. PutGuildConfig replaces the stored
// document; there is no partial update.
type Store interface {
	GetGuildConfig(ctx context.Context, guildID string) (*guild.Config, error)
	PutGuildConfig(ctx context.Context, cfg *guild.Config) error
	AddAuditLog(ctx context.Context, log AuditLog) error
	ListAuditLogs(ctx context.Context, guildID string, since time.Time) ([]AuditLog, error)
	CleanupAuditLogs(ctx context.Context, before time.Time) error
	Close() error
}

// LoadGuildConfig returns the stored document, or fresh defaults when the
// guild has none yet.
func LoadGuildConfig(ctx context.Context, store Store, guildID, language string) (*guild.Config, error) {
	cfg, err := store.GetGuildConfig(ctx, guildID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return guild.NewConfig(guildID, language), nil
		}
		return nil, fmt.Errorf("load guild config %s: %w", guildID, err)
	}
	cfg.Normalize()
	if cfg.Language == "" {
		cfg.Language = language
	}
	return cfg, nil
}

// EnsureGuildConfig stores default settings for a guild that has none.
func EnsureGuildConfig(ctx context.Context, store Store, guildID, language string) (*guild.Config, error) {
	cfg, err := store.GetGuildConfig(ctx, guildID)
	if err == nil {
		cfg.Normalize()
		return cfg, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("load guild config %s: %w", guildID, err)
	}
	cfg = guild.NewConfig(guildID, language)
	if err := store.PutGuildConfig(ctx, cfg); err != nil {
		return nil, fmt.Errorf("create guild config %s: %w", guildID, err)
	}
	return cfg, nil
}
