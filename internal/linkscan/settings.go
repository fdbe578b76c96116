package linkscan

import (
	"context"
	"fmt"
	"sort"

	"guildkeeper/internal/apperrors"
	"guildkeeper/internal/audit"
	"guildkeeper/internal/guild"
	"guildkeeper/internal/storage"
	"guildkeeper/internal/utils"

	"github.com/samber/lo"
)

// Allow adds domain to the allow list and takes it off the block list.
func Allow(cfg *guild.Config, domain string) {
	cfg.AllowedDomains = addDomain(cfg.AllowedDomains, domain)
	cfg.BlockedDomains = lo.Without(cfg.BlockedDomains, domain)
}

// Block adds domain to the block list and takes it off the allow list.
func Block(cfg *guild.Config, domain string) {
	cfg.BlockedDomains = addDomain(cfg.BlockedDomains, domain)
	cfg.AllowedDomains = lo.Without(cfg.AllowedDomains, domain)
}

// Forget removes domain from both lists and reports whether it was listed.
func Forget(cfg *guild.Config, domain string) bool {
	listed := lo.Contains(cfg.AllowedDomains, domain) || lo.Contains(cfg.BlockedDomains, domain)
	cfg.AllowedDomains = lo.Without(cfg.AllowedDomains, domain)
	cfg.BlockedDomains = lo.Without(cfg.BlockedDomains, domain)
	return listed
}

func addDomain(list []string, domain string) []string {
	list = lo.Uniq(append(list, domain))
	sort.Strings(list)
	return list
}

// Settings edits the link lists of stored guild documents.
type Settings struct {
	store    storage.Store
	audit    *audit.Logger
	language string
}

func NewSettings(store storage.Store, auditLogger *audit.Logger, language string) *Settings {
	return &Settings{store: store, audit: auditLogger, language: language}
}

type Lists struct {
	Allowed []string
	Blocked []string
}

func (s *Settings) Allow(ctx context.Context, guildID, actorID, input string) (string, error) {
	return s.edit(ctx, guildID, actorID, input, "allow", func(cfg *guild.Config, domain string) { Allow(cfg, domain) })
}

func (s *Settings) Block(ctx context.Context, guildID, actorID, input string) (string, error) {
	return s.edit(ctx, guildID, actorID, input, "block", func(cfg *guild.Config, domain string) { Block(cfg, domain) })
}

// Remove reports false when the domain was on neither list.
func (s *Settings) Remove(ctx context.Context, guildID, actorID, input string) (string, bool, error) {
	var listed bool
	domain, err := s.edit(ctx, guildID, actorID, input, "remove", func(cfg *guild.Config, domain string) {
		listed = Forget(cfg, domain)
	})
	return domain, listed, err
}

func (s *Settings) List(ctx context.Context, guildID string) (Lists, error) {
	cfg, err := storage.LoadGuildConfig(ctx, s.store, guildID, s.language)
	if err != nil {
		return Lists{}, err
	}
	return Lists{Allowed: cfg.AllowedDomains, Blocked: cfg.BlockedDomains}, nil
}

func (s *Settings) edit(ctx context.Context, guildID, actorID, input, action string, apply func(*guild.Config, string)) (string, error) {
	domain, err := utils.NormalizeDomain(input)
	if err != nil {
		return "", &apperrors.Error{
			Code:     apperrors.CodeValidation,
			Message:  fmt.Sprintf("invalid domain %q", input),
			Metadata: map[string]string{"Domain": input},
			Cause:    err,
		}
	}
	cfg, err := storage.LoadGuildConfig(ctx, s.store, guildID, s.language)
	if err != nil {
		return "", err
	}
	apply(cfg, domain)
	if err := s.store.PutGuildConfig(ctx, cfg); err != nil {
		return "", fmt.Errorf("save guild config: %w", err)
	}
	s.audit.Log(ctx, audit.LevelInfo, guildID, actorID, audit.EventSettingsChanged, fmt.Sprintf("links %s %s", action, domain))
	return domain, nil
}
