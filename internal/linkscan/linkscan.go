// Package linkscan removes messages that link to domains a guild has
// blocked.
package linkscan

import (
	"context"
	"fmt"
	"time"

	"guildkeeper/internal/audit"
	"guildkeeper/internal/clock"
	"guildkeeper/internal/guild"
	"guildkeeper/internal/utils"

	"go.uber.org/zap"
)

// Actions are the chat operations the scanner needs.
type Actions interface {
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	Alert(ctx context.Context, channelID, content string) error
}

type Message struct {
	ID        string
	ChannelID string
	GuildID   string
	AuthorID  string
	Content   string
}

type Verdict struct {
	Blocked bool
	URL     string
	Domain  string
}

// An author gets at most alertLimit alerts per alertWindow. Later
// removals are still deleted and audited.
const (
	alertWindow = 10 * time.Minute
	alertLimit  = 3
)

type Module struct {
	actions  Actions
	audit    *audit.Logger
	logger   *zap.Logger
	clock    clock.Clock
	offenses *utils.SlidingWindow
}

func New(actions Actions, auditLogger *audit.Logger, logger *zap.Logger) *Module {
	return &Module{
		actions:  actions,
		audit:    auditLogger,
		logger:   logger,
		clock:    clock.Real(),
		offenses: utils.NewSlidingWindow(alertWindow),
	}
}

func (m *Module) WithClock(c clock.Clock) {
	m.clock = c
}

// Scan reports the first link in content whose domain is blocked and not
// allowed.
func Scan(content string, allowlist, blocklist []string) Verdict {
	if len(blocklist) == 0 {
		return Verdict{}
	}
	for _, raw := range utils.ExtractURLs(content) {
		normalized, domain, err := utils.NormalizeURL(raw)
		if err != nil {
			continue
		}
		allowed, blocked := utils.DomainMatch(domain, allowlist, blocklist)
		if allowed {
			continue
		}
		if blocked {
			return Verdict{Blocked: true, URL: normalized, Domain: domain}
		}
	}
	return Verdict{}
}

// HandleMessage deletes msg when it links to a blocked domain and posts an
// alert to the guild's alerts channel.
func (m *Module) HandleMessage(ctx context.Context, cfg *guild.Config, msg Message) (Verdict, error) {
	verdict := Scan(msg.Content, cfg.AllowedDomains, cfg.BlockedDomains)
	if !verdict.Blocked {
		return verdict, nil
	}

	m.audit.Log(ctx, audit.LevelWarn, msg.GuildID, msg.AuthorID, audit.EventLinkBlocked,
		fmt.Sprintf("channel=%s domain=%s url=%s", msg.ChannelID, verdict.Domain, verdict.URL))

	if err := m.actions.DeleteMessage(ctx, msg.ChannelID, msg.ID); err != nil {
		return verdict, fmt.Errorf("delete blocked message: %w", err)
	}
	count := m.offenses.Add(msg.GuildID+":"+msg.AuthorID, m.clock.Now())
	if cfg.AlertsChannelID == "" || count > alertLimit {
		return verdict, nil
	}
	alert := fmt.Sprintf("Removed a message from <@%s> in <#%s> linking to blocked domain `%s`.", msg.AuthorID, msg.ChannelID, verdict.Domain)
	if count > 1 {
		alert += fmt.Sprintf(" (%d in the last %d minutes)", count, int(alertWindow/time.Minute))
	}
	if count == alertLimit {
		alert += " Further removals for this member are not announced for a while."
	}
	if err := m.actions.Alert(ctx, cfg.AlertsChannelID, alert); err != nil {
		m.logger.Warn("link alert failed", zap.String("guild_id", msg.GuildID), zap.Error(err))
	}
	return verdict, nil
}
