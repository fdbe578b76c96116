package bot

import (
	"regexp"
	"strings"

	"guildkeeper/internal/inviterole"

	"github.com/bwmarrin/discordgo"
	"github.com/samber/lo"
)

var messageLinkPattern = regexp.MustCompile(`^https?://(?:(?:ptb|canary)\.)?discord(?:app)?\.com/channels/(?:\d+|@me)/(\d+)/(\d+)/?$`)

var snowflakePattern = regexp.MustCompile(`^\d+$`)

type options map[string]*discordgo.ApplicationCommandInteractionDataOption

func optionsOf(opts []*discordgo.ApplicationCommandInteractionDataOption) options {
	return lo.KeyBy(opts, func(opt *discordgo.ApplicationCommandInteractionDataOption) string {
		return opt.Name
	})
}

// subcommand splits a command's payload into the subcommand name and its
// options.
func subcommand(data discordgo.ApplicationCommandInteractionData) (string, options) {
	if len(data.Options) == 0 {
		return "", options{}
	}
	sub := data.Options[0]
	if sub.Type != discordgo.ApplicationCommandOptionSubCommand {
		return "", optionsOf(data.Options)
	}
	return sub.Name, optionsOf(sub.Options)
}

func (o options) text(name string) (string, bool) {
	opt, ok := o[name]
	if !ok {
		return "", false
	}
	return strings.TrimSpace(opt.StringValue()), true
}

func (o options) stringOr(name, fallback string) string {
	if value, ok := o.text(name); ok && value != "" {
		return value
	}
	return fallback
}

func (o options) stringPtr(name string) *string {
	value, ok := o.text(name)
	if !ok {
		return nil
	}
	return &value
}

func (o options) boolPtr(name string) *bool {
	opt, ok := o[name]
	if !ok {
		return nil
	}
	value := opt.BoolValue()
	return &value
}

func (o options) float(name string) (float64, bool) {
	opt, ok := o[name]
	if !ok {
		return 0, false
	}
	return opt.FloatValue(), true
}

// id returns the snowflake carried by a user, channel or role option.
func (o options) id(name string) (string, bool) {
	opt, ok := o[name]
	if !ok {
		return "", false
	}
	value, _ := opt.Value.(string)
	return value, value != ""
}

// tokens splits a free-form list option. A lone "-" or "none" clears the
// list; a missing option leaves it unset.
func (o options) tokens(name string) []string {
	value, ok := o.text(name)
	if !ok {
		return nil
	}
	if value == "-" || strings.EqualFold(value, "none") {
		return []string{}
	}
	return inviterole.SplitTokens(value)
}

// parseMessageRef accepts a message link or a bare message ID. A bare ID
// is taken to live in channelID.
func parseMessageRef(raw, channelID string) (string, string, bool) {
	raw = strings.TrimSpace(raw)
	if groups := messageLinkPattern.FindStringSubmatch(raw); groups != nil {
		return groups[1], groups[2], true
	}
	if snowflakePattern.MatchString(raw) && channelID != "" {
		return channelID, raw, true
	}
	return "", "", false
}

func canManage(interaction *discordgo.InteractionCreate) bool {
	if interaction.Member == nil {
		return false
	}
	perms := interaction.Member.Permissions
	return perms&discordgo.PermissionAdministrator != 0 || perms&discordgo.PermissionManageServer != 0
}

func actorID(interaction *discordgo.InteractionCreate) string {
	if interaction.Member != nil && interaction.Member.User != nil {
		return interaction.Member.User.ID
	}
	if interaction.User != nil {
		return interaction.User.ID
	}
	return ""
}
