package guild

import (
	"regexp"
	"sort"
)

var namePattern = regexp.MustCompile(`^[0-9A-Za-z_-]+$`)

// ValidName reports whether name is usable as a rule or leaderboard name.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// Config is the per-guild settings document. It is always read and
// written whole.
type Config struct {
	GuildID         string                  `json:"guild_id"`
	LogChannelID    string                  `json:"log_channel_id,omitempty"`
	AlertsChannelID string                  `json:"alerts_channel_id,omitempty"`
	Language        string                  `json:"language,omitempty"`
	AllowedDomains  []string                `json:"allowed_domains,omitempty"`
	BlockedDomains  []string                `json:"blocked_domains,omitempty"`
	InviteRoles     []InviteRoleRule        `json:"invite_roles"`
	Leaderboards    map[string]*Leaderboard `json:"leaderboards"`
}

// NewConfig returns the defaults used when the bot joins a guild.
func NewConfig(guildID, language string) *Config {
	return &Config{
		GuildID:      guildID,
		Language:     language,
		InviteRoles:  []InviteRoleRule{},
		Leaderboards: make(map[string]*Leaderboard),
	}
}

// Normalize fills nil collections left behind by older documents.
func (c *Config) Normalize() {
	if c.InviteRoles == nil {
		c.InviteRoles = []InviteRoleRule{}
	}
	if c.Leaderboards == nil {
		c.Leaderboards = make(map[string]*Leaderboard)
	}
	for name, lb := range c.Leaderboards {
		if lb == nil {
			delete(c.Leaderboards, name)
			continue
		}
		if lb.Name == "" {
			lb.Name = name
		}
	}
}

// RuleIndex returns the position of the named rule, or -1.
func (c *Config) RuleIndex(name string) int {
	for i := range c.InviteRoles {
		if c.InviteRoles[i].Name == name {
			return i
		}
	}
	return -1
}

// LeaderboardNames returns leaderboard names in lexical order.
func (c *Config) LeaderboardNames() []string {
	names := make([]string, 0, len(c.Leaderboards))
	for name := range c.Leaderboards {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InviteRoleRule maps invite codes to role grants and revocations.
type InviteRoleRule struct {
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	Color         *int     `json:"color,omitempty"`
	Invites       []string `json:"invites"`
	RolesToAdd    []string `json:"roles_to_add"`
	RolesToRemove []string `json:"roles_to_remove"`
	Occurrences   int      `json:"occurrences"`
	Enabled       bool     `json:"enabled"`
	CreatedAt     int64    `json:"created_at"`
	UpdatedAt     int64    `json:"updated_at"`
}

// HasInvite reports whether the rule lists code.
func (r InviteRoleRule) HasInvite(code string) bool {
	for _, invite := range r.Invites {
		if invite == code {
			return true
		}
	}
	return false
}
