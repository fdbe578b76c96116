package membership

import (
	"context"
	"fmt"
	"strings"

	"guildkeeper/internal/audit"
	"guildkeeper/internal/storage"
)

// Service ties the invite cache, the stored rules and the resolver
// together for platform join events.
type Service struct {
	store    storage.Store
	cache    *InviteCache
	resolver *Resolver
	audit    *audit.Logger
	language string
}

func NewService(store storage.Store, cache *InviteCache, resolver *Resolver, auditLogger *audit.Logger, language string) *Service {
	return &Service{store: store, cache: cache, resolver: resolver, audit: auditLogger, language: language}
}

func (s *Service) Cache() *InviteCache {
	return s.cache
}

// MemberJoined swaps in the fresh invite counts, applies matching rules
// and saves the occurrence counts.
func (s *Service) MemberJoined(ctx context.Context, guildID, memberID string, current []InviteUse) (JoinOutcome, error) {
	previous := s.cache.Swap(guildID, current)

	cfg, err := storage.LoadGuildConfig(ctx, s.store, guildID, s.language)
	if err != nil {
		return JoinOutcome{}, err
	}
	outcome, err := s.resolver.HandleJoin(ctx, cfg, JoinEvent{
		GuildID:  guildID,
		MemberID: memberID,
		Previous: previous,
		Current:  current,
	})
	if err != nil {
		return JoinOutcome{}, err
	}
	if !outcome.Resolved {
		s.audit.Log(ctx, audit.LevelInfo, guildID, memberID, audit.EventJoinUnresolved, "no invite use count changed")
		return outcome, nil
	}
	if len(outcome.Applied) == 0 {
		return outcome, nil
	}
	if err := s.store.PutGuildConfig(ctx, cfg); err != nil {
		return outcome, fmt.Errorf("save guild config: %w", err)
	}
	for _, report := range outcome.Reports {
		s.audit.Log(ctx, audit.LevelInfo, guildID, memberID, audit.EventInviteRoleApplied,
			fmt.Sprintf("rule=%s invite=%s granted=%s failed=%d scheduled=%s",
				report.Rule, outcome.Code,
				strings.Join(report.Granted, ","), len(report.Failed),
				strings.Join(report.Scheduled, ",")))
	}
	return outcome, nil
}
