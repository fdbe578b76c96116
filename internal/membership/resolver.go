package membership

import (
	"context"
	"fmt"
	"sync"
	"time"

	"guildkeeper/internal/audit"
	"guildkeeper/internal/clock"
	"guildkeeper/internal/guild"
	"guildkeeper/internal/inviterole"

	"go.uber.org/zap"
)

// DefaultRevokeDelay leaves time for every matching rule to grant its
// roles before any rule strips roles.
const DefaultRevokeDelay = 2 * time.Second

// Roles changes a member's roles. Each call may fail on its own.
type Roles interface {
	AddRole(ctx context.Context, guildID, memberID, roleID string) error
	RemoveRole(ctx context.Context, guildID, memberID, roleID string) error
}

type RoleFailure struct {
	RoleID string
	Err    error
}

// Report is the outcome of applying one rule to one member.
type Report struct {
	Rule      string
	Granted   []string
	Failed    []RoleFailure
	Scheduled []string
}

type JoinEvent struct {
	GuildID  string
	MemberID string
	Previous map[string]int
	Current  []InviteUse
}

type JoinOutcome struct {
	Code     string
	Resolved bool
	Applied  []string
	Reports  []Report
}

type Resolver struct {
	roles  Roles
	clock  clock.Clock
	delay  time.Duration
	logger *zap.Logger
	audit  *audit.Logger
}

func NewResolver(roles Roles, logger *zap.Logger, auditLogger *audit.Logger, delay time.Duration) *Resolver {
	if delay <= 0 {
		delay = DefaultRevokeDelay
	}
	return &Resolver{
		roles:  roles,
		clock:  clock.Real(),
		delay:  delay,
		logger: logger,
		audit:  auditLogger,
	}
}

func (r *Resolver) WithClock(c clock.Clock) {
	r.clock = c
}

// grants tracks the role grants of one rule application while they are
// in flight.
type grants struct {
	wg      sync.WaitGroup
	report  Report
	roleIDs []string
	errs    []error
}

// Apply counts an occurrence of rule, schedules its removals after the
// revoke delay and grants its roles. A failed grant never stops the
// others. Scheduled removals are not cancelled.
func (r *Resolver) Apply(ctx context.Context, guildID string, rule *guild.InviteRoleRule, memberID string) Report {
	return r.start(ctx, guildID, rule, memberID).wait()
}

// start schedules the revocation first, then issues every grant on its
// own goroutine.
func (r *Resolver) start(ctx context.Context, guildID string, rule *guild.InviteRoleRule, memberID string) *grants {
	rule.Occurrences++
	g := &grants{report: Report{Rule: rule.Name}}
	ruleName := rule.Name

	if len(rule.RolesToRemove) > 0 {
		removals := append([]string(nil), rule.RolesToRemove...)
		g.report.Scheduled = removals
		detached := context.WithoutCancel(ctx)
		r.clock.AfterFunc(r.delay, func() {
			r.revoke(detached, guildID, memberID, ruleName, removals)
		})
	}

	g.roleIDs = append([]string(nil), rule.RolesToAdd...)
	g.errs = make([]error, len(g.roleIDs))
	for i, roleID := range g.roleIDs {
		i, roleID := i, roleID
		g.wg.Add(1)
		go func() {
			defer g.wg.Done()
			if err := r.roles.AddRole(ctx, guildID, memberID, roleID); err != nil {
				g.errs[i] = err
				r.logger.Warn("invite role grant failed",
					zap.String("guild_id", guildID),
					zap.String("user_id", memberID),
					zap.String("rule", ruleName),
					zap.String("role_id", roleID),
					zap.Error(err))
				r.audit.Log(ctx, audit.LevelWarn, guildID, memberID, audit.EventRoleGrantFailed,
					fmt.Sprintf("rule=%s role=%s error=%v", ruleName, roleID, err))
			}
		}()
	}
	return g
}

// wait blocks until every grant settled and reports them in rule order.
func (g *grants) wait() Report {
	g.wg.Wait()
	for i, roleID := range g.roleIDs {
		if err := g.errs[i]; err != nil {
			g.report.Failed = append(g.report.Failed, RoleFailure{RoleID: roleID, Err: err})
			continue
		}
		g.report.Granted = append(g.report.Granted, roleID)
	}
	return g.report
}

func (r *Resolver) revoke(ctx context.Context, guildID, memberID, ruleName string, roleIDs []string) {
	for _, roleID := range roleIDs {
		if err := r.roles.RemoveRole(ctx, guildID, memberID, roleID); err != nil {
			r.logger.Warn("invite role revoke failed",
				zap.String("guild_id", guildID),
				zap.String("user_id", memberID),
				zap.String("rule", ruleName),
				zap.String("role_id", roleID),
				zap.Error(err))
			r.audit.Log(ctx, audit.LevelWarn, guildID, memberID, audit.EventRoleRevokeFailed,
				fmt.Sprintf("rule=%s role=%s error=%v", ruleName, roleID, err))
		}
	}
}

// HandleJoin resolves the invite used for a join and applies every enabled
// rule that lists it. cfg is mutated in place; the caller saves it when
// Applied is not empty.
func (r *Resolver) HandleJoin(ctx context.Context, cfg *guild.Config, event JoinEvent) (JoinOutcome, error) {
	if cfg.GuildID != event.GuildID {
		return JoinOutcome{}, fmt.Errorf("join for guild %s applied to config of guild %s", event.GuildID, cfg.GuildID)
	}
	code, ok := ResolveUsedInvite(event.Previous, event.Current)
	if !ok {
		return JoinOutcome{}, nil
	}

	outcome := JoinOutcome{Code: code, Resolved: true}
	var pending []*grants
	for _, index := range inviterole.Matching(cfg, code) {
		rule := &cfg.InviteRoles[index]
		pending = append(pending, r.start(ctx, event.GuildID, rule, event.MemberID))
		outcome.Applied = append(outcome.Applied, rule.Name)
	}
	for _, g := range pending {
		outcome.Reports = append(outcome.Reports, g.wait())
	}
	return outcome, nil
}
