package guild

// LeaderboardType decides the shape of a leaderboard's scores.
type LeaderboardType string

const (
	// TypePost boards count attributed posts per user.
	TypePost LeaderboardType = "post"
	// TypeUser boards keep a numeric score per user.
	TypeUser LeaderboardType = "user"
)

// Valid reports whether t is a known type.
func (t LeaderboardType) Valid() bool {
	return t == TypePost || t == TypeUser
}

// PostRef points at a message credited to a user.
type PostRef struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}

// ScoreEntry is one user's score. Posts is used by post boards, Points by
// user boards.
type ScoreEntry struct {
	UserID string    `json:"user_id"`
	Posts  []PostRef `json:"posts,omitempty"`
	Points float64   `json:"points,omitempty"`
}

// Leaderboard is a named ranking. Scores keep insertion order so equal
// scores rank deterministically.
type Leaderboard struct {
	Name      string          `json:"name"`
	Title     string          `json:"title"`
	Type      LeaderboardType `json:"type"`
	Scores    []ScoreEntry    `json:"scores"`
	ChannelID string          `json:"channel_id,omitempty"`
	MessageID string          `json:"message_id,omitempty"`
}

// Posted reports whether a rendered message is being tracked.
func (lb *Leaderboard) Posted() bool {
	return lb.ChannelID != "" && lb.MessageID != ""
}

// Entry returns the user's score entry, creating it when missing.
func (lb *Leaderboard) Entry(userID string) *ScoreEntry {
	for i := range lb.Scores {
		if lb.Scores[i].UserID == userID {
			return &lb.Scores[i]
		}
	}
	lb.Scores = append(lb.Scores, ScoreEntry{UserID: userID})
	return &lb.Scores[len(lb.Scores)-1]
}

// Lookup returns the user's score entry without creating one.
func (lb *Leaderboard) Lookup(userID string) (ScoreEntry, bool) {
	for _, entry := range lb.Scores {
		if entry.UserID == userID {
			return entry, true
		}
	}
	return ScoreEntry{}, false
}

// ScoreOf is the ranking value of an entry on this board.
func (lb *Leaderboard) ScoreOf(entry ScoreEntry) float64 {
	if lb.Type == TypePost {
		return float64(len(entry.Posts))
	}
	return entry.Points
}
