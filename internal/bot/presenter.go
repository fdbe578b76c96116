package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"guildkeeper/internal/apperrors"
	"guildkeeper/internal/audit"
	"guildkeeper/internal/guild"
	"guildkeeper/internal/leaderboard"
	"guildkeeper/internal/stats"

	"github.com/bwmarrin/discordgo"
	"github.com/samber/lo"
)

var errBadColor = errors.New("bad color")

// errorMessage turns an engine error into the reply shown to the invoker.
func errorMessage(err error) string {
	meta := apperrors.MetadataOf(err)
	switch apperrors.CodeOf(err) {
	case apperrors.CodeNameFormat:
		return fmt.Sprintf("`%s` is not a valid name. Use only letters, digits, `-` and `_`.", meta["Name"])
	case apperrors.CodeRuleExists:
		return fmt.Sprintf("A rule named `%s` already exists.", meta["Name"])
	case apperrors.CodeRuleNotFound:
		return fmt.Sprintf("No rule named `%s`.", meta["Name"])
	case apperrors.CodeRoleResolution:
		if errors.Is(err, apperrors.ErrRoleDisallowed) {
			return fmt.Sprintf("<@&%s> is managed by Discord or an integration and cannot be used in a rule.", meta["RoleID"])
		}
		return "One of the roles could not be found."
	case apperrors.CodeDuplicateLeaderboard:
		return fmt.Sprintf("A leaderboard named `%s` already exists.", meta["Name"])
	case apperrors.CodeLeaderboardNotFound:
		return fmt.Sprintf("No leaderboard named `%s`.", meta["Name"])
	case apperrors.CodeWrongLeaderboardType:
		return fmt.Sprintf("`%s` is a %s leaderboard.", meta["Name"], meta["Type"])
	case apperrors.CodeValidation:
		var appErr *apperrors.Error
		if errors.As(err, &appErr) && appErr.Message != "" {
			return upperFirst(appErr.Message) + "."
		}
		return "Invalid input."
	}
	if errors.Is(err, errBadColor) {
		return "Colors are hex values such as `#5865F2`."
	}
	return "Something went wrong. Try again later."
}

// appErrorIsUnexpected reports whether err is worth logging. Engine
// errors are user mistakes and are only replied to.
func appErrorIsUnexpected(err error) bool {
	return apperrors.CodeOf(err) == apperrors.CodeUnknown && !errors.Is(err, errBadColor)
}

// parseColor accepts "#5865F2", "0x5865F2" or "5865F2".
func parseColor(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "#")
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "0x"), "0X")
	if raw == "" {
		return 0, errBadColor
	}
	value, err := strconv.ParseInt(raw, 16, 64)
	if err != nil {
		return 0, errBadColor
	}
	return int(value), nil
}

func formatColor(color *int) string {
	if color == nil {
		return "none"
	}
	return fmt.Sprintf("#%06X", *color)
}

func ruleFields(rule guild.InviteRoleRule, format *stats.Formatter, nowMs int64) []*discordgo.MessageEmbedField {
	invites := lo.Map(rule.Invites, func(code string, _ int) string { return "`" + code + "`" })
	add := lo.Map(rule.RolesToAdd, func(id string, _ int) string { return "<@&" + id + ">" })
	remove := lo.Map(rule.RolesToRemove, func(id string, _ int) string { return "<@&" + id + ">" })
	fields := []*discordgo.MessageEmbedField{
		{Name: "Invites", Value: joinOrNone(invites), Inline: false},
		{Name: "Roles to add", Value: joinOrNone(add), Inline: true},
		{Name: "Roles to remove", Value: joinOrNone(remove), Inline: true},
		{Name: "Enabled", Value: strconv.FormatBool(rule.Enabled), Inline: true},
		{Name: "Uses", Value: format.Count(int64(rule.Occurrences)), Inline: true},
		{Name: "Color", Value: formatColor(rule.Color), Inline: true},
	}
	if rule.UpdatedAt > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Updated", Value: format.RelativeTime(rule.UpdatedAt, nowMs), Inline: true})
	}
	return fields
}

func ruleSummary(rule guild.InviteRoleRule) string {
	status := "on"
	if !rule.Enabled {
		status = "off"
	}
	line := fmt.Sprintf("**%s** [%s] %d invite(s), +%d/-%d role(s)",
		rule.Name, status, len(rule.Invites), len(rule.RolesToAdd), len(rule.RolesToRemove))
	if rule.Description != "" {
		line += " - " + rule.Description
	}
	return line
}

func auditEventLabel(event string) string {
	switch event {
	case audit.EventRuleCreated:
		return "Invite rule created"
	case audit.EventRuleUpdated:
		return "Invite rule updated"
	case audit.EventRuleRemoved:
		return "Invite rule removed"
	case audit.EventInviteRoleApplied:
		return "Invite rule applied"
	case audit.EventRoleGrantFailed:
		return "Role grant failed"
	case audit.EventRoleRevokeFailed:
		return "Role revoke failed"
	case audit.EventJoinUnresolved:
		return "Join invite unknown"
	case audit.EventLeaderboardCreated:
		return "Leaderboard created"
	case audit.EventLeaderboardDeleted:
		return "Leaderboard deleted"
	case audit.EventLeaderboardReset:
		return "Leaderboard reset"
	case audit.EventLeaderboardPosted:
		return "Leaderboard posted"
	case audit.EventScoreUpdated:
		return "Score updated"
	case audit.EventLinkBlocked:
		return "Link blocked"
	case audit.EventSettingsChanged:
		return "Settings changed"
	}
	return event
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "none"
	}
	return truncate(strings.Join(values, " "), 1024)
}

// emptyRulesMessage tells an empty guild apart from a name that matched
// nothing.
func emptyRulesMessage(name string) string {
	if name != "" {
		return fmt.Sprintf("No rule named `%s`.", name)
	}
	return "No invite role rules yet."
}

// messageLimit is Discord's cap on message content.
const messageLimit = 2000

func leaderboardReply(lb *guild.Leaderboard) string {
	return truncate(leaderboard.Render(lb), messageLimit)
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}

func upperFirst(value string) string {
	if value == "" {
		return value
	}
	return strings.ToUpper(value[:1]) + value[1:]
}
