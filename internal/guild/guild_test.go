package guild

import (
	"encoding/json"
	"testing"
)

func TestNormalizeFillsCollections(t *testing.T) {
	var cfg Config
	if err := json.Unmarshal([]byte(`{"guild_id":"g1","leaderboards":{"lb":{"title":"T","type":"user"},"gone":null}}`), &cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	cfg.Normalize()
	if cfg.InviteRoles == nil {
		t.Fatalf("expected invite roles slice")
	}
	if _, ok := cfg.Leaderboards["gone"]; ok {
		t.Fatalf("expected nil leaderboard dropped")
	}
	if cfg.Leaderboards["lb"].Name != "lb" {
		t.Fatalf("expected name backfilled, got %q", cfg.Leaderboards["lb"].Name)
	}
}

func TestEntryKeepsInsertionOrder(t *testing.T) {
	lb := &Leaderboard{Name: "lb", Type: TypeUser}
	lb.Entry("b").Points = 1
	lb.Entry("a").Points = 2
	lb.Entry("b").Points += 3
	if len(lb.Scores) != 2 || lb.Scores[0].UserID != "b" || lb.Scores[1].UserID != "a" {
		t.Fatalf("unexpected scores %+v", lb.Scores)
	}
	if entry, ok := lb.Lookup("b"); !ok || entry.Points != 4 {
		t.Fatalf("expected b=4, got %+v", entry)
	}
}

func TestLeaderboardNamesSorted(t *testing.T) {
	cfg := NewConfig("g1", "en")
	cfg.Leaderboards["zeta"] = &Leaderboard{Name: "zeta"}
	cfg.Leaderboards["alpha"] = &Leaderboard{Name: "alpha"}
	names := cfg.LeaderboardNames()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Fatalf("unexpected order %v", names)
	}
}
