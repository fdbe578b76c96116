// Package leaderboard keeps named per-guild rankings and the chat message
// that displays each one.
package leaderboard

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"guildkeeper/internal/apperrors"
	"guildkeeper/internal/guild"
)

// Rank is one rendered row.
type Rank struct {
	Position int     `json:"position"`
	UserID   string  `json:"userId"`
	Score    float64 `json:"score"`
}

// Create adds an empty leaderboard to cfg.
func Create(cfg *guild.Config, name, title string, kind guild.LeaderboardType) (*guild.Leaderboard, error) {
	if !guild.ValidName(name) {
		return nil, apperrors.WithMetadata(apperrors.CodeNameFormat,
			fmt.Sprintf("invalid leaderboard name %q", name),
			map[string]string{"Name": name})
	}
	if !kind.Valid() {
		return nil, apperrors.WithMetadata(apperrors.CodeValidation,
			fmt.Sprintf("unknown leaderboard type %q", kind),
			map[string]string{"Type": string(kind)})
	}
	if _, ok := cfg.Leaderboards[name]; ok {
		return nil, apperrors.WithMetadata(apperrors.CodeDuplicateLeaderboard,
			fmt.Sprintf("leaderboard %q already exists", name),
			map[string]string{"Name": name})
	}
	lb := &guild.Leaderboard{
		Name:   name,
		Title:  title,
		Type:   kind,
		Scores: []guild.ScoreEntry{},
	}
	cfg.Leaderboards[name] = lb
	return lb, nil
}

// Get returns the named leaderboard.
func Get(cfg *guild.Config, name string) (*guild.Leaderboard, error) {
	lb, ok := cfg.Leaderboards[name]
	if !ok {
		return nil, notFound(name)
	}
	return lb, nil
}

// Delete removes the leaderboard from cfg. Deleting its rendered message is
// left to the caller.
func Delete(cfg *guild.Config, name string) (*guild.Leaderboard, error) {
	lb, err := Get(cfg, name)
	if err != nil {
		return nil, err
	}
	delete(cfg.Leaderboards, name)
	return lb, nil
}

// Reset clears every score. The rendered message pointers are kept.
func Reset(cfg *guild.Config, name string) (*guild.Leaderboard, error) {
	lb, err := Get(cfg, name)
	if err != nil {
		return nil, err
	}
	lb.Scores = []guild.ScoreEntry{}
	return lb, nil
}

// List returns the guild's leaderboards ordered by name.
func List(cfg *guild.Config) []*guild.Leaderboard {
	names := cfg.LeaderboardNames()
	boards := make([]*guild.Leaderboard, 0, len(names))
	for _, name := range names {
		boards = append(boards, cfg.Leaderboards[name])
	}
	return boards
}

// RecordPostScore credits a message to a user. Crediting the same message
// twice is a no-op and reports false.
func RecordPostScore(lb *guild.Leaderboard, userID, channelID, messageID string) (bool, error) {
	if lb.Type != guild.TypePost {
		return false, wrongType(lb, guild.TypePost)
	}
	ref := guild.PostRef{ChannelID: channelID, MessageID: messageID}
	entry := lb.Entry(userID)
	for _, existing := range entry.Posts {
		if existing == ref {
			return false, nil
		}
	}
	entry.Posts = append(entry.Posts, ref)
	return true, nil
}

// IncrementUserScore adds amount to the user's score and returns the total.
func IncrementUserScore(lb *guild.Leaderboard, userID string, amount float64) (float64, error) {
	if lb.Type != guild.TypeUser {
		return 0, wrongType(lb, guild.TypeUser)
	}
	entry := lb.Entry(userID)
	entry.Points += amount
	return entry.Points, nil
}

// Ranking orders entries by ascending score. Equal scores keep the order
// in which users first scored.
func Ranking(lb *guild.Leaderboard) []Rank {
	entries := append([]guild.ScoreEntry{}, lb.Scores...)
	sort.SliceStable(entries, func(i, j int) bool {
		return lb.ScoreOf(entries[i]) < lb.ScoreOf(entries[j])
	})
	ranks := make([]Rank, len(entries))
	for i, entry := range entries {
		ranks[i] = Rank{Position: i + 1, UserID: entry.UserID, Score: lb.ScoreOf(entry)}
	}
	return ranks
}

// Render produces the message body for lb.
func Render(lb *guild.Leaderboard) string {
	header := "**__" + lb.Title + "__**"
	if len(lb.Scores) == 0 {
		return header + "\n\nNothing here yet!"
	}
	lines := make([]string, 0, len(lb.Scores))
	for _, rank := range Ranking(lb) {
		lines = append(lines, fmt.Sprintf("%d. <@%s>: %s", rank.Position, rank.UserID, FormatScore(rank.Score)))
	}
	return header + "\n\n" + strings.Join(lines, "\n")
}

// FormatScore prints a score without trailing zeros.
func FormatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

func notFound(name string) error {
	return apperrors.WithMetadata(apperrors.CodeLeaderboardNotFound,
		fmt.Sprintf("leaderboard %q not found", name),
		map[string]string{"Name": name})
}

func wrongType(lb *guild.Leaderboard, want guild.LeaderboardType) error {
	return apperrors.WithMetadata(apperrors.CodeWrongLeaderboardType,
		fmt.Sprintf("leaderboard %q is a %s leaderboard, not %s", lb.Name, lb.Type, want),
		map[string]string{"Name": lb.Name, "Type": string(lb.Type), "Expected": string(want)})
}
