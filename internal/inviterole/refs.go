package inviterole

import (
	"fmt"
	"regexp"
	"strings"

	"guildkeeper/internal/apperrors"
	"guildkeeper/internal/guild"

	"github.com/samber/lo"
)

var (
	rolePattern   = regexp.MustCompile(`^(?:<@&(\d+)>|(\d+))$`)
	invitePattern = regexp.MustCompile(`^(?:(?:https?://)?(?:www\.)?(?:discord\.gg|discord(?:app)?\.com/invite)/)?([A-Za-z0-9-]+)/?$`)
	tokenSplitter = regexp.MustCompile(`[\s,]+`)
)

// RoleRef is a guild role as seen by the rule engine.
type RoleRef struct {
	ID       string
	Name     string
	Everyone bool
	Managed  bool
}

// Disallowed reports whether a rule may never grant or revoke the role.
func (r RoleRef) Disallowed() bool {
	return r.Everyone || r.Managed
}

// ValidateName fails unless name only uses letters, digits, '-' and '_'.
func ValidateName(name string) error {
	if !guild.ValidName(name) {
		return apperrors.WithMetadata(apperrors.CodeNameFormat,
			fmt.Sprintf("invalid rule name %q", name),
			map[string]string{"Name": name})
	}
	return nil
}

// SplitTokens breaks free-form command input into mention or code tokens.
func SplitTokens(raw string) []string {
	return lo.Filter(tokenSplitter.Split(strings.TrimSpace(raw), -1), func(token string, _ int) bool {
		return token != ""
	})
}

// ResolveRoleReferences matches role mentions or bare IDs against the
// guild's roles. Tokens that match nothing are reported in one warning.
// Everyone and managed roles are returned like any other match.
func ResolveRoleReferences(raw []string, known []RoleRef) ([]RoleRef, []string) {
	byID := lo.KeyBy(known, func(role RoleRef) string { return role.ID })

	var matched []RoleRef
	var missing []string
	seen := make(map[string]bool)
	for _, token := range raw {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		groups := rolePattern.FindStringSubmatch(token)
		if groups == nil {
			missing = append(missing, token)
			continue
		}
		id := groups[1]
		if id == "" {
			id = groups[2]
		}
		role, ok := byID[id]
		if !ok {
			missing = append(missing, token)
			continue
		}
		if !seen[id] {
			seen[id] = true
			matched = append(matched, role)
		}
	}

	var warnings []string
	if len(missing) > 0 {
		warnings = append(warnings, "Could not find the following channels or roles: "+strings.Join(lo.Uniq(missing), ", "))
	}
	return matched, warnings
}

// ResolveInviteReferences extracts invite codes from codes or invite URLs.
// When known is nil every well-formed code is accepted.
func ResolveInviteReferences(raw []string, known []string) ([]string, []string) {
	var codes []string
	var missing []string
	for _, token := range raw {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		groups := invitePattern.FindStringSubmatch(token)
		if groups == nil {
			missing = append(missing, token)
			continue
		}
		code := groups[1]
		if known != nil && !lo.Contains(known, code) {
			missing = append(missing, token)
			continue
		}
		codes = append(codes, code)
	}

	var warnings []string
	if len(missing) > 0 {
		warnings = append(warnings, "Could not find the following invites: "+strings.Join(lo.Uniq(missing), ", "))
	}
	return lo.Uniq(codes), warnings
}
