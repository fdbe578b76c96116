package inviterole

import (
	"errors"
	"reflect"
	"testing"

	"guildkeeper/internal/apperrors"
	"guildkeeper/internal/guild"
)

var testRoles = []RoleRef{
	{ID: "100000000000000001", Name: "@everyone", Everyone: true},
	{ID: "100000000000000002", Name: "Member"},
	{ID: "100000000000000003", Name: "Newcomer"},
	{ID: "100000000000000004", Name: "Bot", Managed: true},
}

func ptr[T any](v T) *T { return &v }

func TestValidateName(t *testing.T) {
	for _, name := range []string{"a", "tens", "Rule_1", "x-y", "0123"} {
		if err := ValidateName(name); err != nil {
			t.Fatalf("expected %q valid, got %v", name, err)
		}
	}
	for _, name := range []string{"", "has space", "bad!", "émoji", "a.b"} {
		err := ValidateName(name)
		if !errors.Is(err, apperrors.ErrNameFormat) {
			t.Fatalf("expected name format error for %q, got %v", name, err)
		}
		if !errors.Is(err, apperrors.ErrValidation) {
			t.Fatalf("expected %q to also be a validation error", name)
		}
	}
}

func TestResolveRoleReferences(t *testing.T) {
	matched, warnings := ResolveRoleReferences(
		[]string{"<@&100000000000000002>", "100000000000000003", "<@&999>", "nope", "100000000000000002"},
		testRoles,
	)
	if len(matched) != 2 || matched[0].ID != "100000000000000002" || matched[1].ID != "100000000000000003" {
		t.Fatalf("unexpected matches %+v", matched)
	}
	want := []string{"Could not find the following channels or roles: <@&999>, nope"}
	if !reflect.DeepEqual(warnings, want) {
		t.Fatalf("unexpected warnings %v", warnings)
	}
}

func TestResolveRoleReferencesKeepsDisallowed(t *testing.T) {
	matched, warnings := ResolveRoleReferences([]string{"<@&100000000000000001>", "<@&100000000000000004>"}, testRoles)
	if len(matched) != 2 || len(warnings) != 0 {
		t.Fatalf("expected disallowed roles matched, got %+v %v", matched, warnings)
	}
}

func TestResolveInviteReferences(t *testing.T) {
	codes, warnings := ResolveInviteReferences(
		[]string{"abc", "https://discord.gg/def", "discord.com/invite/abc", "gone", "bad code!"},
		[]string{"abc", "def"},
	)
	if !reflect.DeepEqual(codes, []string{"abc", "def"}) {
		t.Fatalf("unexpected codes %v", codes)
	}
	want := []string{"Could not find the following invites: gone, bad code!"}
	if !reflect.DeepEqual(warnings, want) {
		t.Fatalf("unexpected warnings %v", warnings)
	}

	codes, warnings = ResolveInviteReferences([]string{"anything"}, nil)
	if len(codes) != 1 || len(warnings) != 0 {
		t.Fatalf("expected unchecked invites accepted, got %v %v", codes, warnings)
	}
}

func TestUpsertCreateDefaults(t *testing.T) {
	cfg := guild.NewConfig("g1", "en")
	result, err := Upsert(cfg, Input{Name: "x"}, false, Refs{Roles: testRoles}, 1_000)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	rule := result.Rule
	if !rule.Enabled || rule.Occurrences != 0 || rule.CreatedAt != 1_000 || rule.UpdatedAt != 1_000 {
		t.Fatalf("unexpected defaults %+v", rule)
	}
	if rule.Invites == nil || rule.RolesToAdd == nil || rule.RolesToRemove == nil {
		t.Fatalf("expected empty lists, got %+v", rule)
	}
	if len(cfg.InviteRoles) != 1 {
		t.Fatalf("expected rule appended")
	}
}

func TestUpsertCreateTwiceFails(t *testing.T) {
	cfg := guild.NewConfig("g1", "en")
	if _, err := Upsert(cfg, Input{Name: "x"}, false, Refs{}, 1); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := Upsert(cfg, Input{Name: "x"}, false, Refs{}, 2)
	if !errors.Is(err, apperrors.ErrRuleExists) {
		t.Fatalf("expected rule exists, got %v", err)
	}
	if len(cfg.InviteRoles) != 1 {
		t.Fatalf("expected one rule, got %d", len(cfg.InviteRoles))
	}
}

func TestUpsertUpdateMissingFails(t *testing.T) {
	cfg := guild.NewConfig("g1", "en")
	_, err := Upsert(cfg, Input{Name: "ghost"}, true, Refs{}, 1)
	if !errors.Is(err, apperrors.ErrRuleNotFound) {
		t.Fatalf("expected rule not found, got %v", err)
	}
}

func TestUpsertWarningsAreStable(t *testing.T) {
	cfg := guild.NewConfig("g1", "en")
	in := Input{Name: "x", RolesToAdd: []string{"<@&123>"}}
	first, err := Upsert(cfg, in, false, Refs{Roles: testRoles}, 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := Upsert(cfg, in, true, Refs{Roles: testRoles}, 2)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(first.Warnings) != 1 || !reflect.DeepEqual(first.Warnings, second.Warnings) {
		t.Fatalf("expected identical warnings, got %v and %v", first.Warnings, second.Warnings)
	}
}

func TestUpsertRejectsDisallowedRoles(t *testing.T) {
	for _, token := range []string{"<@&100000000000000001>", "100000000000000004"} {
		cfg := guild.NewConfig("g1", "en")
		_, err := Upsert(cfg, Input{Name: "x", RolesToRemove: []string{token}}, false, Refs{Roles: testRoles}, 1)
		if !errors.Is(err, apperrors.ErrRoleDisallowed) {
			t.Fatalf("expected disallowed role for %s, got %v", token, err)
		}
		if len(cfg.InviteRoles) != 0 {
			t.Fatalf("expected config untouched")
		}
	}
}

func TestUpsertValidationOrder(t *testing.T) {
	cfg := guild.NewConfig("g1", "en")
	_, _ = Upsert(cfg, Input{Name: "x"}, false, Refs{}, 1)

	_, err := Upsert(cfg, Input{Name: "bad name", Color: ptr(-1)}, false, Refs{}, 1)
	if !errors.Is(err, apperrors.ErrNameFormat) {
		t.Fatalf("expected name format first, got %v", err)
	}
	_, err = Upsert(cfg, Input{Name: "x", RenameTo: ptr("bad name")}, true, Refs{}, 1)
	if !errors.Is(err, apperrors.ErrNameFormat) {
		t.Fatalf("expected rename target checked, got %v", err)
	}
	_, err = Upsert(cfg, Input{Name: "x", Color: ptr(0x1000000)}, false, Refs{}, 1)
	if !errors.Is(err, apperrors.ErrValidation) || errors.Is(err, apperrors.ErrRuleExists) {
		t.Fatalf("expected color validation before existence, got %v", err)
	}
}

func TestUpsertUpdateAppliesOnlySuppliedFields(t *testing.T) {
	cfg := guild.NewConfig("g1", "en")
	_, err := Upsert(cfg, Input{
		Name:        "x",
		Description: ptr("first"),
		Color:       ptr(0x00FF00),
		Invites:     []string{"INV"},
		RolesToAdd:  []string{"100000000000000002"},
	}, false, Refs{Roles: testRoles}, 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	cfg.InviteRoles[0].Occurrences = 7

	result, err := Upsert(cfg, Input{
		Name:       "x",
		RenameTo:   ptr("y"),
		RolesToAdd: []string{"100000000000000003", "<@&100000000000000003>"},
		Enabled:    ptr(false),
	}, true, Refs{Roles: testRoles}, 5)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	rule := result.Rule
	if rule.Name != "y" || rule.Description != "first" || rule.Color == nil || *rule.Color != 0x00FF00 {
		t.Fatalf("expected untouched fields kept, got %+v", rule)
	}
	if !reflect.DeepEqual(rule.Invites, []string{"INV"}) {
		t.Fatalf("expected invites kept, got %v", rule.Invites)
	}
	if !reflect.DeepEqual(rule.RolesToAdd, []string{"100000000000000003"}) {
		t.Fatalf("expected roles replaced and de-duplicated, got %v", rule.RolesToAdd)
	}
	if rule.Enabled || rule.Occurrences != 7 || rule.CreatedAt != 1 || rule.UpdatedAt != 5 {
		t.Fatalf("unexpected bookkeeping %+v", rule)
	}
	if cfg.RuleIndex("x") != -1 || cfg.RuleIndex("y") != 0 {
		t.Fatalf("expected rule renamed in place")
	}
}

func TestUpsertRenameOntoExistingFails(t *testing.T) {
	cfg := guild.NewConfig("g1", "en")
	_, _ = Upsert(cfg, Input{Name: "a"}, false, Refs{}, 1)
	_, _ = Upsert(cfg, Input{Name: "b"}, false, Refs{}, 1)
	_, err := Upsert(cfg, Input{Name: "a", RenameTo: ptr("b")}, true, Refs{}, 2)
	if !errors.Is(err, apperrors.ErrRuleExists) {
		t.Fatalf("expected rule exists, got %v", err)
	}
	_, err = Upsert(cfg, Input{Name: "a", RenameTo: ptr("a")}, true, Refs{}, 2)
	if err != nil {
		t.Fatalf("expected rename onto itself allowed, got %v", err)
	}
}

func TestRemoveMissingLeavesConfig(t *testing.T) {
	cfg := guild.NewConfig("g1", "en")
	_, _ = Upsert(cfg, Input{Name: "a", Invites: []string{"INV"}}, false, Refs{}, 1)
	before := append([]guild.InviteRoleRule{}, cfg.InviteRoles...)

	_, err := Remove(cfg, "missing")
	if !errors.Is(err, apperrors.ErrRuleNotFound) {
		t.Fatalf("expected rule not found, got %v", err)
	}
	if !reflect.DeepEqual(before, cfg.InviteRoles) {
		t.Fatalf("expected config unchanged")
	}
}

func TestRemoveReturnsRule(t *testing.T) {
	cfg := guild.NewConfig("g1", "en")
	_, _ = Upsert(cfg, Input{Name: "a"}, false, Refs{}, 1)
	_, _ = Upsert(cfg, Input{Name: "b"}, false, Refs{}, 1)
	removed, err := Remove(cfg, "a")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if removed.Name != "a" || len(cfg.InviteRoles) != 1 || cfg.InviteRoles[0].Name != "b" {
		t.Fatalf("unexpected state %+v %+v", removed, cfg.InviteRoles)
	}
}

func TestList(t *testing.T) {
	cfg := guild.NewConfig("g1", "en")
	if got := List(cfg, ""); len(got) != 0 {
		t.Fatalf("expected empty list")
	}
	_, _ = Upsert(cfg, Input{Name: "a"}, false, Refs{}, 1)
	_, _ = Upsert(cfg, Input{Name: "b"}, false, Refs{}, 1)
	if got := List(cfg, ""); len(got) != 2 {
		t.Fatalf("expected two rules, got %d", len(got))
	}
	if got := List(cfg, "b"); len(got) != 1 || got[0].Name != "b" {
		t.Fatalf("unexpected filtered list %+v", got)
	}
	if got := List(cfg, "zzz"); len(got) != 0 {
		t.Fatalf("expected no match")
	}
}

func TestMatchingIsInclusive(t *testing.T) {
	cfg := guild.NewConfig("g1", "en")
	cfg.InviteRoles = []guild.InviteRoleRule{
		{Name: "a", Invites: []string{"INV"}, Enabled: true},
		{Name: "b", Invites: []string{"OTHER", "INV"}, Enabled: true},
		{Name: "c", Invites: []string{"INV"}, Enabled: false},
	}
	if got := Matching(cfg, "INV"); !reflect.DeepEqual(got, []int{0, 1}) {
		t.Fatalf("unexpected matches %v", got)
	}
}

func TestSplitTokens(t *testing.T) {
	got := SplitTokens(" <@&1>, <@&2>  3 ")
	if !reflect.DeepEqual(got, []string{"<@&1>", "<@&2>", "3"}) {
		t.Fatalf("unexpected tokens %v", got)
	}
	if got := SplitTokens("   "); len(got) != 0 {
		t.Fatalf("expected no tokens, got %v", got)
	}
}
