package bot

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"testing"

	"guildkeeper/internal/apperrors"
	"guildkeeper/internal/guild"
	"guildkeeper/internal/leaderboard"

	"github.com/bwmarrin/discordgo"
)

func stringOpt(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: value}
}

func TestErrorMessageByCode(t *testing.T) {
	cfg := guild.NewConfig("g1", "en")
	_, dup := leaderboard.Create(cfg, "weekly", "Weekly", guild.TypeUser)
	if dup != nil {
		t.Fatalf("create: %v", dup)
	}
	_, dup = leaderboard.Create(cfg, "weekly", "Weekly", guild.TypeUser)

	cases := []struct {
		err  error
		want string
	}{
		{apperrors.WithMetadata(apperrors.CodeNameFormat, "bad", map[string]string{"Name": "a b"}), "`a b` is not a valid name"},
		{dup, "A leaderboard named `weekly` already exists."},
		{apperrors.WithMetadata(apperrors.CodeRuleNotFound, "missing", map[string]string{"Name": "tens"}), "No rule named `tens`."},
		{apperrors.WithKind(apperrors.CodeRoleResolution, apperrors.KindDisallowed, "nope", map[string]string{"RoleID": "42"}), "<@&42> is managed"},
		{apperrors.New(apperrors.CodeValidation, "color 16777216 out of range"), "Color 16777216 out of range."},
		{fmt.Errorf("wrapped: %w", errBadColor), "hex values"},
		{errors.New("disk full"), "Something went wrong"},
	}
	for _, tc := range cases {
		if got := errorMessage(tc.err); !strings.Contains(got, tc.want) {
			t.Fatalf("errorMessage(%v) = %q, want it to contain %q", tc.err, got, tc.want)
		}
	}
}

func TestUnexpectedErrorsAreLogged(t *testing.T) {
	if appErrorIsUnexpected(apperrors.ErrRuleExists) {
		t.Fatalf("engine errors should not be logged")
	}
	if appErrorIsUnexpected(errBadColor) {
		t.Fatalf("bad colors should not be logged")
	}
	if !appErrorIsUnexpected(errors.New("boom")) {
		t.Fatalf("unknown errors should be logged")
	}
}

func TestParseColor(t *testing.T) {
	cases := []struct {
		raw  string
		want int
		ok   bool
	}{
		{"#5865F2", 0x5865F2, true},
		{"0xff0000", 0xFF0000, true},
		{"00ff00", 0x00FF00, true},
		{"#", 0, false},
		{"blue", 0, false},
	}
	for _, tc := range cases {
		got, err := parseColor(tc.raw)
		if (err == nil) != tc.ok || got != tc.want {
			t.Fatalf("parseColor(%q) = %d, %v", tc.raw, got, err)
		}
	}
}

func TestParseMessageRef(t *testing.T) {
	channelID, messageID, ok := parseMessageRef("https://discord.com/channels/1/22/333", "9")
	if !ok || channelID != "22" || messageID != "333" {
		t.Fatalf("link: %q %q %v", channelID, messageID, ok)
	}
	channelID, messageID, ok = parseMessageRef("444", "9")
	if !ok || channelID != "9" || messageID != "444" {
		t.Fatalf("bare id: %q %q %v", channelID, messageID, ok)
	}
	if _, _, ok := parseMessageRef("not a link", "9"); ok {
		t.Fatalf("expected junk rejected")
	}
}

func TestRequiresManage(t *testing.T) {
	cases := []struct {
		command string
		sub     string
		want    bool
	}{
		{"inviterole", "list", true},
		{"leaderboard", "show", false},
		{"leaderboard", "list", false},
		{"leaderboard", "add", true},
		{"links", "list", true},
		{"stats", "", false},
	}
	for _, tc := range cases {
		if got := requiresManage(tc.command, tc.sub); got != tc.want {
			t.Fatalf("requiresManage(%s %s) = %v", tc.command, tc.sub, got)
		}
	}
}

func TestCanManage(t *testing.T) {
	interaction := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Member: &discordgo.Member{Permissions: discordgo.PermissionManageServer},
	}}
	if !canManage(interaction) {
		t.Fatalf("expected manage server to pass")
	}
	interaction.Member.Permissions = discordgo.PermissionSendMessages
	if canManage(interaction) {
		t.Fatalf("expected plain member to fail")
	}
}

func TestInviteRoleInputFromOptions(t *testing.T) {
	opts := optionsOf([]*discordgo.ApplicationCommandInteractionDataOption{
		stringOpt("name", "tens"),
		stringOpt("invites", "INV https://discord.gg/abc"),
		stringOpt("roles_to_remove", "none"),
		stringOpt("color", "#00FF00"),
		{Name: "enabled", Type: discordgo.ApplicationCommandOptionBoolean, Value: false},
	})
	in, err := inviteRoleInput(opts)
	if err != nil {
		t.Fatalf("input: %v", err)
	}
	if in.Name != "tens" || !reflect.DeepEqual(in.Invites, []string{"INV", "https://discord.gg/abc"}) {
		t.Fatalf("unexpected input %+v", in)
	}
	if in.RolesToAdd != nil {
		t.Fatalf("expected missing option to stay unset")
	}
	if in.RolesToRemove == nil || len(in.RolesToRemove) != 0 {
		t.Fatalf("expected none to clear the list, got %#v", in.RolesToRemove)
	}
	if in.Color == nil || *in.Color != 0x00FF00 || in.Enabled == nil || *in.Enabled {
		t.Fatalf("unexpected color or enabled %+v", in)
	}

	_, err = inviteRoleInput(optionsOf([]*discordgo.ApplicationCommandInteractionDataOption{
		stringOpt("name", "tens"),
		stringOpt("color", "teal"),
	}))
	if !errors.Is(err, errBadColor) {
		t.Fatalf("expected bad color, got %v", err)
	}
}

func TestSubcommandSplitsOptions(t *testing.T) {
	data := discordgo.ApplicationCommandInteractionData{
		Name: "leaderboard",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{{
			Name:    "show",
			Type:    discordgo.ApplicationCommandOptionSubCommand,
			Options: []*discordgo.ApplicationCommandInteractionDataOption{stringOpt("name", "weekly")},
		}},
	}
	sub, opts := subcommand(data)
	if name, _ := opts.text("name"); sub != "show" || name != "weekly" {
		t.Fatalf("got %q %q", sub, name)
	}
}

func TestRoleRefsFlagEveryoneAndManaged(t *testing.T) {
	refs := roleRefs("g1", []*discordgo.Role{
		{ID: "g1", Name: "@everyone"},
		{ID: "r1", Name: "Bot", Managed: true},
		nil,
		{ID: "r2", Name: "Member"},
	})
	if len(refs) != 3 {
		t.Fatalf("expected 3 refs, got %d", len(refs))
	}
	if !refs[0].Everyone || !refs[1].Managed || refs[2].Disallowed() {
		t.Fatalf("unexpected flags %+v", refs)
	}
}

func TestInviteUsesSkipsBlankCodes(t *testing.T) {
	uses := inviteUses([]*discordgo.Invite{{Code: "INV", Uses: 10}, {Code: ""}, nil})
	if len(uses) != 1 || uses[0].Code != "INV" || uses[0].Uses != 10 {
		t.Fatalf("unexpected uses %+v", uses)
	}
}

func TestIsNotFound(t *testing.T) {
	err := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusNotFound}}
	if !isNotFound(fmt.Errorf("fetch: %w", err)) {
		t.Fatalf("expected 404 to be not found")
	}
	if isNotFound(&discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusForbidden}}) {
		t.Fatalf("expected 403 to be a real error")
	}
	if isNotFound(nil) {
		t.Fatalf("expected nil to be fine")
	}
}

func TestCommandDefinitionsOrderRequiredFirst(t *testing.T) {
	for _, cmd := range commandDefinitions() {
		for _, sub := range cmd.Options {
			optional := false
			for _, opt := range sub.Options {
				if !opt.Required {
					optional = true
				} else if optional {
					t.Fatalf("/%s %s: required option %s after optional one", cmd.Name, sub.Name, opt.Name)
				}
			}
		}
	}
}

func TestEmptyRulesMessage(t *testing.T) {
	if got := emptyRulesMessage(""); got != "No invite role rules yet." {
		t.Fatalf("unexpected empty guild text %q", got)
	}
	if got := emptyRulesMessage("foo"); got != "No rule named `foo`." {
		t.Fatalf("unexpected unknown name text %q", got)
	}
}

func TestLeaderboardReplyFitsMessageLimit(t *testing.T) {
	cfg := guild.NewConfig("g1", "en")
	lb, err := leaderboard.Create(cfg, "weekly", "Weekly", guild.TypeUser)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for i := 0; i < 200; i++ {
		lb.Scores = append(lb.Scores, guild.ScoreEntry{UserID: fmt.Sprintf("1000000000000000%03d", i), Points: float64(i)})
	}
	got := leaderboardReply(lb)
	if n := len([]rune(got)); n > messageLimit {
		t.Fatalf("expected at most %d runes, got %d", messageLimit, n)
	}
	if !strings.HasPrefix(got, "**__Weekly__**") || !strings.HasSuffix(got, "…") {
		t.Fatalf("expected truncated render, got prefix %q", got[:20])
	}

	small, _ := leaderboard.Create(cfg, "tiny", "Tiny", guild.TypeUser)
	if got := leaderboardReply(small); got != leaderboard.Render(small) {
		t.Fatalf("expected short render untouched, got %q", got)
	}
}
