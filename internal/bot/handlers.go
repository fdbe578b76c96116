package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"guildkeeper/internal/audit"
	"guildkeeper/internal/clock"
	"guildkeeper/internal/guild"
	"guildkeeper/internal/inviterole"
	"guildkeeper/internal/leaderboard"
	"guildkeeper/internal/stats"
	"guildkeeper/internal/storage"

	"github.com/bwmarrin/discordgo"
	"github.com/samber/lo"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
)

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if interaction.GuildID == "" {
		b.respondEmbed(session, interaction, b.commandEmbed("guildkeeper", "Commands only work inside a server.", b.cfg.Notifications.EmbedColors.Error, nil), true)
		return
	}

	ctx := context.Background()
	data := interaction.ApplicationCommandData()
	sub, opts := subcommand(data)
	if requiresManage(data.Name, sub) && !canManage(interaction) {
		b.respondEmbed(session, interaction, b.commandEmbed(commandTitle(data.Name), "You need the Manage Server permission for this.", b.cfg.Notifications.EmbedColors.Error, nil), true)
		return
	}

	switch data.Name {
	case "inviterole":
		b.handleInviteRoleCommand(ctx, session, interaction, sub, opts)
	case "leaderboard":
		b.handleLeaderboardCommand(ctx, session, interaction, sub, opts)
	case "links":
		b.handleLinksCommand(ctx, session, interaction, sub, opts)
	case "logs":
		b.handleLogsCommand(ctx, session, interaction, opts)
	case "stats":
		b.handleStatsCommand(ctx, session, interaction)
	}
}

// requiresManage reports whether a command changes guild state.
func requiresManage(command, sub string) bool {
	switch command {
	case "stats":
		return false
	case "leaderboard":
		return sub != "show" && sub != "list"
	}
	return true
}

func commandTitle(command string) string {
	switch command {
	case "inviterole":
		return "Invite roles"
	case "leaderboard":
		return "Leaderboards"
	case "links":
		return "Links"
	case "logs":
		return "Logs"
	}
	return "Stats"
}

func (b *Bot) handleInviteRoleCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, sub string, opts options) {
	title := commandTitle("inviterole")
	colors := b.cfg.Notifications.EmbedColors
	actor := actorID(interaction)

	switch sub {
	case "add", "update":
		in, err := inviteRoleInput(opts)
		if err != nil {
			b.respondError(session, interaction, title, err)
			return
		}
		refs, err := b.discord.Refs(interaction.GuildID)
		if err != nil {
			b.respondError(session, interaction, title, err)
			return
		}

		var result inviterole.Result
		if sub == "add" {
			result, err = b.inviteRoles.Add(ctx, interaction.GuildID, actor, in, refs)
		} else {
			result, err = b.inviteRoles.Update(ctx, interaction.GuildID, actor, in, refs)
		}
		if err != nil {
			b.respondError(session, interaction, title, err)
			return
		}

		verb := "created"
		if sub == "update" {
			verb = "updated"
		}
		description := fmt.Sprintf("Rule `%s` %s.", result.Rule.Name, verb)
		if len(result.Warnings) > 0 {
			description += "\n\n" + strings.Join(result.Warnings, "\n")
		}
		color := colors.Info
		if len(result.Warnings) > 0 {
			color = colors.Warning
		}
		format := b.formatterFor(ctx, interaction.GuildID)
		b.respondEmbed(session, interaction, b.commandEmbed(title, description, color, ruleFields(result.Rule, format, clock.NowMillis(b.clock))), true)
	case "remove":
		name, _ := opts.text("name")
		removed, err := b.inviteRoles.Remove(ctx, interaction.GuildID, actor, name)
		if err != nil {
			b.respondError(session, interaction, title, err)
			return
		}
		b.respondEmbed(session, interaction, b.commandEmbed(title, fmt.Sprintf("Rule `%s` removed.", removed.Name), colors.Info, nil), true)
	case "list":
		name := opts.stringOr("name", "")
		rules, err := b.inviteRoles.List(ctx, interaction.GuildID, name)
		if err != nil {
			b.respondError(session, interaction, title, err)
			return
		}
		if name != "" && len(rules) == 1 {
			format := b.formatterFor(ctx, interaction.GuildID)
			rule := rules[0]
			description := rule.Description
			if description == "" {
				description = "`" + rule.Name + "`"
			}
			b.respondEmbed(session, interaction, b.commandEmbed(rule.Name, description, lo.FromPtrOr(rule.Color, colors.Info), ruleFields(rule, format, clock.NowMillis(b.clock))), true)
			return
		}
		if len(rules) == 0 {
			b.respondEmbed(session, interaction, b.commandEmbed(title, emptyRulesMessage(name), colors.Info, nil), true)
			return
		}
		lines := lo.Map(rules, func(rule guild.InviteRoleRule, _ int) string { return ruleSummary(rule) })
		b.respondEmbed(session, interaction, b.commandEmbed(title, truncate(strings.Join(lines, "\n"), 4000), colors.Info, nil), true)
	default:
		b.respondEmbed(session, interaction, b.commandEmbed(title, "Unknown subcommand.", colors.Error, nil), true)
	}
}

func inviteRoleInput(opts options) (inviterole.Input, error) {
	name, _ := opts.text("name")
	in := inviterole.Input{
		Name:          name,
		RenameTo:      opts.stringPtr("rename"),
		Description:   opts.stringPtr("description"),
		Invites:       opts.tokens("invites"),
		RolesToAdd:    opts.tokens("roles_to_add"),
		RolesToRemove: opts.tokens("roles_to_remove"),
		Enabled:       opts.boolPtr("enabled"),
	}
	if raw, ok := opts.text("color"); ok {
		color, err := parseColor(raw)
		if err != nil {
			return inviterole.Input{}, err
		}
		in.Color = &color
	}
	return in, nil
}

func (b *Bot) handleLeaderboardCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, sub string, opts options) {
	title := commandTitle("leaderboard")
	colors := b.cfg.Notifications.EmbedColors
	actor := actorID(interaction)
	name, _ := opts.text("name")

	switch sub {
	case "create":
		kind := guild.LeaderboardType(opts.stringOr("type", string(guild.TypeUser)))
		lb, err := b.leaderboards.Create(ctx, interaction.GuildID, actor, name, opts.stringOr("title", name), kind)
		if err != nil {
			b.respondError(session, interaction, title, err)
			return
		}
		b.respondEmbed(session, interaction, b.commandEmbed(title, fmt.Sprintf("Created %s leaderboard `%s`.", lb.Type, lb.Name), colors.Info, nil), true)
	case "delete":
		if _, err := b.leaderboards.Delete(ctx, interaction.GuildID, actor, name); err != nil {
			b.respondError(session, interaction, title, err)
			return
		}
		b.respondEmbed(session, interaction, b.commandEmbed(title, fmt.Sprintf("Deleted leaderboard `%s`.", name), colors.Info, nil), true)
	case "reset":
		if _, err := b.leaderboards.Reset(ctx, interaction.GuildID, actor, name); err != nil {
			b.respondError(session, interaction, title, err)
			return
		}
		b.respondEmbed(session, interaction, b.commandEmbed(title, fmt.Sprintf("Cleared every score on `%s`.", name), colors.Info, nil), true)
	case "post":
		channelID, ok := opts.id("channel")
		if !ok {
			channelID = interaction.ChannelID
		}
		lb, err := b.leaderboards.Post(ctx, interaction.GuildID, actor, name, channelID)
		if err != nil {
			b.respondError(session, interaction, title, err)
			return
		}
		b.respondEmbed(session, interaction, b.commandEmbed(title, fmt.Sprintf("Posted `%s` in <#%s>. It will update as scores change.", lb.Name, lb.ChannelID), colors.Info, nil), true)
	case "show":
		lb, err := b.leaderboards.Get(ctx, interaction.GuildID, name)
		if err != nil {
			b.respondError(session, interaction, title, err)
			return
		}
		b.respond(session, interaction, leaderboardReply(lb), false)
	case "add":
		userID, _ := opts.id("user")
		amount, ok := opts.float("amount")
		if !ok {
			amount = 1
		}
		total, err := b.leaderboards.IncrementUser(ctx, interaction.GuildID, actor, name, userID, amount)
		if err != nil {
			b.respondError(session, interaction, title, err)
			return
		}
		b.respondEmbed(session, interaction, b.commandEmbed(title, fmt.Sprintf("<@%s> now has %s on `%s`.", userID, leaderboard.FormatScore(total), name), colors.Info, nil), true)
	case "addpost":
		userID, _ := opts.id("user")
		raw, _ := opts.text("message")
		channelID, messageID, ok := parseMessageRef(raw, interaction.ChannelID)
		if !ok {
			b.respondEmbed(session, interaction, b.commandEmbed(title, "Give a message link or a message ID from this channel.", colors.Error, nil), true)
			return
		}
		added, err := b.leaderboards.AttributePost(ctx, interaction.GuildID, actor, name, userID, channelID, messageID)
		if err != nil {
			b.respondError(session, interaction, title, err)
			return
		}
		description := fmt.Sprintf("Credited the post to <@%s> on `%s`.", userID, name)
		if !added {
			description = "That post is already credited."
		}
		b.respondEmbed(session, interaction, b.commandEmbed(title, description, colors.Info, nil), true)
	case "list":
		boards, err := b.leaderboards.List(ctx, interaction.GuildID)
		if err != nil {
			b.respondError(session, interaction, title, err)
			return
		}
		if len(boards) == 0 {
			b.respondEmbed(session, interaction, b.commandEmbed(title, "No leaderboards yet.", colors.Info, nil), true)
			return
		}
		lines := lo.Map(boards, func(lb *guild.Leaderboard, _ int) string {
			line := fmt.Sprintf("`%s` %s (%s, %d entries)", lb.Name, lb.Title, lb.Type, len(lb.Scores))
			if lb.Posted() {
				line += fmt.Sprintf(" in <#%s>", lb.ChannelID)
			}
			return line
		})
		b.respondEmbed(session, interaction, b.commandEmbed(title, truncate(strings.Join(lines, "\n"), 4000), colors.Info, nil), true)
	default:
		b.respondEmbed(session, interaction, b.commandEmbed(title, "Unknown subcommand.", colors.Error, nil), true)
	}
}

func (b *Bot) handleLinksCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, sub string, opts options) {
	title := commandTitle("links")
	colors := b.cfg.Notifications.EmbedColors
	actor := actorID(interaction)
	input, _ := opts.text("domain")

	switch sub {
	case "allow", "block":
		edit := b.linkSettings.Allow
		if sub == "block" {
			edit = b.linkSettings.Block
		}
		domain, err := edit(ctx, interaction.GuildID, actor, input)
		if err != nil {
			b.respondError(session, interaction, title, err)
			return
		}
		b.respondEmbed(session, interaction, b.commandEmbed(title, fmt.Sprintf("`%s` is now %sed.", domain, sub), colors.Info, nil), true)
	case "remove":
		domain, listed, err := b.linkSettings.Remove(ctx, interaction.GuildID, actor, input)
		if err != nil {
			b.respondError(session, interaction, title, err)
			return
		}
		description := fmt.Sprintf("`%s` removed.", domain)
		if !listed {
			description = fmt.Sprintf("`%s` was not listed.", domain)
		}
		b.respondEmbed(session, interaction, b.commandEmbed(title, description, colors.Info, nil), true)
	case "list":
		lists, err := b.linkSettings.List(ctx, interaction.GuildID)
		if err != nil {
			b.respondError(session, interaction, title, err)
			return
		}
		fields := []*discordgo.MessageEmbedField{
			{Name: "Allowed", Value: joinOrNone(lists.Allowed), Inline: false},
			{Name: "Blocked", Value: joinOrNone(lists.Blocked), Inline: false},
		}
		b.respondEmbed(session, interaction, b.commandEmbed(title, "Messages linking to blocked domains are removed.", colors.Info, fields), true)
	default:
		b.respondEmbed(session, interaction, b.commandEmbed(title, "Unknown subcommand.", colors.Error, nil), true)
	}
}

func (b *Bot) handleLogsCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, opts options) {
	title := commandTitle("logs")
	colors := b.cfg.Notifications.EmbedColors

	cfg, err := storage.LoadGuildConfig(ctx, b.store, interaction.GuildID, b.cfg.DefaultLanguage)
	if err != nil {
		b.respondError(session, interaction, title, err)
		return
	}

	logChannel, setLog := opts.id("channel")
	alertChannel, setAlerts := opts.id("alerts")
	language, setLanguage := opts.text("language")
	if setLog || setAlerts || setLanguage {
		var changes []string
		if setLog {
			cfg.LogChannelID = logChannel
			changes = append(changes, "log="+logChannel)
		}
		if setAlerts {
			cfg.AlertsChannelID = alertChannel
			changes = append(changes, "alerts="+alertChannel)
		}
		if setLanguage {
			cfg.Language = stats.NewFormatter(language).Tag().String()
			changes = append(changes, "language="+cfg.Language)
		}
		if err := b.store.PutGuildConfig(ctx, cfg); err != nil {
			b.respondError(session, interaction, title, err)
			return
		}
		b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, actorID(interaction), audit.EventSettingsChanged, strings.Join(changes, " "))
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Log channel", Value: channelMention(cfg.LogChannelID), Inline: true},
		{Name: "Alerts channel", Value: channelMention(cfg.AlertsChannelID), Inline: true},
		{Name: "Language", Value: lo.Ternary(cfg.Language == "", b.cfg.DefaultLanguage, cfg.Language), Inline: true},
	}
	description := "Current settings."
	if setLog || setAlerts || setLanguage {
		description = "Settings updated."
	}
	b.respondEmbed(session, interaction, b.commandEmbed(title, description, colors.Info, fields), true)
}

func (b *Bot) handleStatsCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	title := commandTitle("stats")
	colors := b.cfg.Notifications.EmbedColors

	cfg, err := storage.LoadGuildConfig(ctx, b.store, interaction.GuildID, b.cfg.DefaultLanguage)
	if err != nil {
		b.respondError(session, interaction, title, err)
		return
	}
	format := b.formatter(cfg)
	now := b.clock.Now()

	fields := []*discordgo.MessageEmbedField{
		{Name: "Uptime", Value: format.Duration(now.Sub(b.startedAt)), Inline: true},
		{Name: "Servers", Value: format.Count(int64(len(session.State.Guilds))), Inline: true},
		{Name: "Online since", Value: format.Date(b.startedAt), Inline: true},
		{Name: "Invite rules", Value: format.Count(int64(len(cfg.InviteRoles))), Inline: true},
		{Name: "Leaderboards", Value: format.Count(int64(len(cfg.Leaderboards))), Inline: true},
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Host memory",
			Value:  fmt.Sprintf("%s / %s MiB (%.0f%%)", format.Count(int64(vm.Used>>20)), format.Count(int64(vm.Total>>20)), vm.UsedPercent),
			Inline: true,
		})
	} else {
		b.logger.Debug("memory stats unavailable", zap.Error(err))
	}

	report, err := b.analytics.Report(ctx, interaction.GuildID, now.Add(-24*time.Hour))
	if err != nil {
		b.respondError(session, interaction, title, err)
		return
	}
	activity := fmt.Sprintf("%s events (%s warnings, %s critical)",
		format.Count(int64(report.Total)),
		format.Count(int64(report.ByLevel[audit.LevelWarn])),
		format.Count(int64(report.ByLevel[audit.LevelCrit])))
	if top := report.TopEvents(3); len(top) > 0 {
		lines := make([]string, 0, len(top))
		for _, row := range top {
			lines = append(lines, fmt.Sprintf("%s: %s", auditEventLabel(row.Event), format.Count(int64(row.Count))))
		}
		activity += "\n" + strings.Join(lines, "\n")
	}
	fields = append(fields, &discordgo.MessageEmbedField{Name: "Last 24h", Value: activity, Inline: false})

	b.respondEmbed(session, interaction, b.commandEmbed(title, "", colors.Info, fields), true)
}

func (b *Bot) formatterFor(ctx context.Context, guildID string) *stats.Formatter {
	cfg, err := storage.LoadGuildConfig(ctx, b.store, guildID, b.cfg.DefaultLanguage)
	if err != nil {
		return stats.NewFormatter(b.cfg.Stats.Language)
	}
	return b.formatter(cfg)
}

func (b *Bot) formatter(cfg *guild.Config) *stats.Formatter {
	if cfg.Language != "" {
		return stats.NewFormatter(cfg.Language)
	}
	return stats.NewFormatter(b.cfg.Stats.Language)
}

func channelMention(channelID string) string {
	if channelID == "" {
		return "not set"
	}
	return "<#" + channelID + ">"
}
