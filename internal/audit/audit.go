package audit

import (
	"context"
	"time"

	"guildkeeper/internal/clock"
	"guildkeeper/internal/storage"

	"go.uber.org/zap"
)

const (
	LevelInfo = "INFO"
	LevelWarn = "WARN"
	LevelCrit = "CRIT"
)

// Event names written to the audit trail.
const (
	EventRuleCreated        = "invite_role_created"
	EventRuleUpdated        = "invite_role_updated"
	EventRuleRemoved        = "invite_role_removed"
	EventInviteRoleApplied  = "invite_role_applied"
	EventRoleGrantFailed    = "role_grant_failed"
	EventRoleRevokeFailed   = "role_revoke_failed"
	EventJoinUnresolved     = "join_invite_unresolved"
	EventLeaderboardCreated = "leaderboard_created"
	EventLeaderboardDeleted = "leaderboard_deleted"
	EventLeaderboardReset   = "leaderboard_reset"
	EventLeaderboardPosted  = "leaderboard_posted"
	EventScoreUpdated       = "leaderboard_score_updated"
	EventLinkBlocked        = "link_blocked"
	EventSettingsChanged    = "settings_changed"
)

type Logger struct {
	store  storage.Store
	logger *zap.Logger
	clock  clock.Clock
	notify func(context.Context, storage.AuditLog)
}

func NewLogger(store storage.Store, logger *zap.Logger) *Logger {
	return &Logger{store: store, logger: logger, clock: clock.Real()}
}

func (l *Logger) WithClock(c clock.Clock) {
	l.clock = c
}

// SetNotifier mirrors every entry to notify, typically the guild's log
// channel.
func (l *Logger) SetNotifier(notify func(context.Context, storage.AuditLog)) {
	l.notify = notify
}

func (l *Logger) Log(ctx context.Context, level, guildID, userID, event, details string) {
	if l == nil {
		return
	}
	entry := storage.AuditLog{
		GuildID:   guildID,
		UserID:    userID,
		Level:     level,
		Event:     event,
		Details:   details,
		CreatedAt: l.clock.Now(),
	}
	if l.store != nil {
		if err := l.store.AddAuditLog(ctx, entry); err != nil {
			l.logger.Warn("audit store failed", zap.String("guild_id", guildID), zap.String("event", event), zap.Error(err))
		}
	}
	if l.notify != nil {
		l.notify(ctx, entry)
	}
	l.logger.Info("audit", zap.String("level", level), zap.String("guild_id", guildID), zap.String("user_id", userID), zap.String("event", event), zap.String("details", details))
}

// Prune drops entries older than retention.
func (l *Logger) Prune(ctx context.Context, retention time.Duration) error {
	if l.store == nil || retention <= 0 {
		return nil
	}
	return l.store.CleanupAuditLogs(ctx, l.clock.Now().Add(-retention))
}
