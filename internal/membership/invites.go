// Package membership works out which invite a new member used and applies
// the invite-role rules bound to it.
package membership

import "sync"

// InviteUse is the live use count of one invite.
type InviteUse struct {
	Code string
	Uses int
}

// ResolveUsedInvite returns the first invite in current whose use count
// grew past the cached count. Codes missing from previous count as zero
// uses. It reports false when no count grew, e.g. a vanity URL join.
func ResolveUsedInvite(previous map[string]int, current []InviteUse) (string, bool) {
	for _, invite := range current {
		if invite.Uses > previous[invite.Code] {
			return invite.Code, true
		}
	}
	return "", false
}

// InviteCache holds the last known invite use counts per guild.
type InviteCache struct {
	mu     sync.Mutex
	guilds map[string]map[string]int
}

func NewInviteCache() *InviteCache {
	return &InviteCache{guilds: make(map[string]map[string]int)}
}

// Seed replaces the guild's counts.
func (c *InviteCache) Seed(guildID string, invites []InviteUse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.guilds[guildID] = toCounts(invites)
}

// Snapshot returns a copy of the guild's counts.
func (c *InviteCache) Snapshot(guildID string) map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyCounts(c.guilds[guildID])
}

// Swap stores fresh counts and returns the counts they replace.
func (c *InviteCache) Swap(guildID string, invites []InviteUse) map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	previous := c.guilds[guildID]
	c.guilds[guildID] = toCounts(invites)
	if previous == nil {
		return map[string]int{}
	}
	return previous
}

// Track records a newly created invite.
func (c *InviteCache) Track(guildID, code string, uses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	counts := c.guilds[guildID]
	if counts == nil {
		counts = make(map[string]int)
		c.guilds[guildID] = counts
	}
	counts[code] = uses
}

// Forget drops a deleted invite.
func (c *InviteCache) Forget(guildID, code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.guilds[guildID], code)
}

// Drop removes everything known about a guild.
func (c *InviteCache) Drop(guildID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.guilds, guildID)
}

func toCounts(invites []InviteUse) map[string]int {
	counts := make(map[string]int, len(invites))
	for _, invite := range invites {
		counts[invite.Code] = invite.Uses
	}
	return counts
}

func copyCounts(counts map[string]int) map[string]int {
	out := make(map[string]int, len(counts))
	for code, uses := range counts {
		out[code] = uses
	}
	return out
}
