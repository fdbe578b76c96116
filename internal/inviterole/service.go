package inviterole

import (
	"context"
	"fmt"
	"strings"

	"guildkeeper/internal/audit"
	"guildkeeper/internal/clock"
	"guildkeeper/internal/guild"
	"guildkeeper/internal/storage"
)

// Service runs rule operations against stored guild documents.
type Service struct {
	store    storage.Store
	audit    *audit.Logger
	clock    clock.Clock
	language string
}

func NewService(store storage.Store, auditLogger *audit.Logger, language string) *Service {
	return &Service{store: store, audit: auditLogger, clock: clock.Real(), language: language}
}

func (s *Service) WithClock(c clock.Clock) {
	s.clock = c
}

func (s *Service) Add(ctx context.Context, guildID, actorID string, in Input, refs Refs) (Result, error) {
	return s.upsert(ctx, guildID, actorID, in, false, refs)
}

func (s *Service) Update(ctx context.Context, guildID, actorID string, in Input, refs Refs) (Result, error) {
	return s.upsert(ctx, guildID, actorID, in, true, refs)
}

func (s *Service) upsert(ctx context.Context, guildID, actorID string, in Input, isUpdate bool, refs Refs) (Result, error) {
	cfg, err := storage.LoadGuildConfig(ctx, s.store, guildID, s.language)
	if err != nil {
		return Result{}, err
	}
	result, err := Upsert(cfg, in, isUpdate, refs, clock.NowMillis(s.clock))
	if err != nil {
		return Result{}, err
	}
	if err := s.store.PutGuildConfig(ctx, cfg); err != nil {
		return Result{}, fmt.Errorf("save guild config: %w", err)
	}

	event := audit.EventRuleCreated
	if isUpdate {
		event = audit.EventRuleUpdated
	}
	s.audit.Log(ctx, audit.LevelInfo, guildID, actorID, event, describe(result.Rule))
	return result, nil
}

func (s *Service) Remove(ctx context.Context, guildID, actorID, name string) (guild.InviteRoleRule, error) {
	cfg, err := storage.LoadGuildConfig(ctx, s.store, guildID, s.language)
	if err != nil {
		return guild.InviteRoleRule{}, err
	}
	removed, err := Remove(cfg, name)
	if err != nil {
		return guild.InviteRoleRule{}, err
	}
	if err := s.store.PutGuildConfig(ctx, cfg); err != nil {
		return guild.InviteRoleRule{}, fmt.Errorf("save guild config: %w", err)
	}
	s.audit.Log(ctx, audit.LevelInfo, guildID, actorID, audit.EventRuleRemoved, describe(removed))
	return removed, nil
}

func (s *Service) List(ctx context.Context, guildID, name string) ([]guild.InviteRoleRule, error) {
	cfg, err := storage.LoadGuildConfig(ctx, s.store, guildID, s.language)
	if err != nil {
		return nil, err
	}
	return List(cfg, name), nil
}

func describe(rule guild.InviteRoleRule) string {
	return fmt.Sprintf("rule=%s invites=%s add=%s remove=%s enabled=%t",
		rule.Name,
		strings.Join(rule.Invites, ","),
		strings.Join(rule.RolesToAdd, ","),
		strings.Join(rule.RolesToRemove, ","),
		rule.Enabled)
}
