package bot

import (
	"context"
	"fmt"
	"time"

	"guildkeeper/internal/analytics"
	"guildkeeper/internal/audit"
	"guildkeeper/internal/clock"
	"guildkeeper/internal/config"
	"guildkeeper/internal/inviterole"
	"guildkeeper/internal/leaderboard"
	"guildkeeper/internal/linkscan"
	"guildkeeper/internal/membership"
	"guildkeeper/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Services are the domain services the bot dispatches to.
type Services struct {
	Store        storage.Store
	Audit        *audit.Logger
	Analytics    *analytics.Service
	InviteRoles  *inviterole.Service
	Leaderboards *leaderboard.Service
	Members      *membership.Service
	Links        *linkscan.Module
	LinkSettings *linkscan.Settings
}

type Bot struct {
	cfg          config.Config
	logger       *zap.Logger
	session      *discordgo.Session
	discord      *Discord
	store        storage.Store
	audit        *audit.Logger
	analytics    *analytics.Service
	inviteRoles  *inviterole.Service
	leaderboards *leaderboard.Service
	members      *membership.Service
	links        *linkscan.Module
	linkSettings *linkscan.Settings
	clock        clock.Clock
	startedAt    time.Time
}

func New(cfg config.Config, logger *zap.Logger, session *discordgo.Session, services Services) (*Bot, error) {
	if session == nil {
		return nil, fmt.Errorf("bot: nil session")
	}
	b := &Bot{
		cfg:          cfg,
		logger:       logger,
		session:      session,
		discord:      NewDiscord(session),
		store:        services.Store,
		audit:        services.Audit,
		analytics:    services.Analytics,
		inviteRoles:  services.InviteRoles,
		leaderboards: services.Leaderboards,
		members:      services.Members,
		links:        services.Links,
		linkSettings: services.LinkSettings,
		clock:        clock.Real(),
	}
	if b.audit != nil {
		b.audit.SetNotifier(func(ctx context.Context, entry storage.AuditLog) {
			if !b.cfg.Notifications.AuditToChannel {
				return
			}
			b.notifyAudit(ctx, entry)
		})
	}
	return b, nil
}

func (b *Bot) Start() error {
	b.startedAt = b.clock.Now()

	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onGuildCreate)
	b.session.AddHandler(b.onGuildDelete)
	b.session.AddHandler(b.onInviteCreate)
	b.session.AddHandler(b.onInviteDelete)
	b.session.AddHandler(b.onGuildMemberAdd)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	return b.registerCommands()
}

func (b *Bot) Close(ctx context.Context) {
	_ = ctx
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready",
		zap.String("user", session.State.User.Username),
		zap.Int("guilds", len(event.Guilds)))
}

// onGuildCreate fires on join and for every guild after connecting. Both
// cases store default settings if none exist and seed the invite cache.
func (b *Bot) onGuildCreate(session *discordgo.Session, event *discordgo.GuildCreate) {
	if event.Guild == nil || event.Unavailable {
		return
	}
	ctx := context.Background()
	if _, err := storage.EnsureGuildConfig(ctx, b.store, event.ID, b.cfg.DefaultLanguage); err != nil {
		b.logger.Error("ensure guild config failed", zap.String("guild_id", event.ID), zap.Error(err))
	}

	invites, err := b.discord.Invites(event.ID)
	if err != nil {
		b.logger.Warn("invite snapshot failed", zap.String("guild_id", event.ID), zap.Error(err))
		return
	}
	b.members.Cache().Seed(event.ID, invites)
}

func (b *Bot) onGuildDelete(session *discordgo.Session, event *discordgo.GuildDelete) {
	if event.Guild == nil || event.Unavailable {
		return
	}
	b.members.Cache().Drop(event.ID)
}

func (b *Bot) onInviteCreate(session *discordgo.Session, event *discordgo.InviteCreate) {
	if event.Invite == nil || event.GuildID == "" {
		return
	}
	b.members.Cache().Track(event.GuildID, event.Code, event.Uses)
}

func (b *Bot) onInviteDelete(session *discordgo.Session, event *discordgo.InviteDelete) {
	if event.GuildID == "" {
		return
	}
	b.members.Cache().Forget(event.GuildID, event.Code)
}

func (b *Bot) onGuildMemberAdd(session *discordgo.Session, event *discordgo.GuildMemberAdd) {
	if event.Member == nil || event.User == nil || event.User.Bot {
		return
	}
	ctx := context.Background()
	invites, err := b.discord.Invites(event.GuildID)
	if err != nil {
		b.logger.Warn("invite fetch failed", zap.String("guild_id", event.GuildID), zap.Error(err))
		return
	}

	outcome, err := b.members.MemberJoined(ctx, event.GuildID, event.User.ID, invites)
	if err != nil {
		b.logger.Error("member join handling failed",
			zap.String("guild_id", event.GuildID),
			zap.String("user_id", event.User.ID),
			zap.Error(err))
		return
	}
	b.logger.Debug("member joined",
		zap.String("guild_id", event.GuildID),
		zap.String("user_id", event.User.ID),
		zap.String("invite", outcome.Code),
		zap.Strings("rules", outcome.Applied))
}

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.Author.Bot {
		return
	}
	if msg.GuildID == "" {
		return
	}

	ctx := context.Background()
	cfg, err := storage.LoadGuildConfig(ctx, b.store, msg.GuildID, b.cfg.DefaultLanguage)
	if err != nil {
		b.logger.Warn("guild config load failed", zap.String("guild_id", msg.GuildID), zap.Error(err))
		return
	}
	if _, err := b.links.HandleMessage(ctx, cfg, linkscan.Message{
		ID:        msg.ID,
		ChannelID: msg.ChannelID,
		GuildID:   msg.GuildID,
		AuthorID:  msg.Author.ID,
		Content:   msg.Content,
	}); err != nil {
		b.logger.Warn("link scan failed", zap.String("guild_id", msg.GuildID), zap.Error(err))
	}
}

func (b *Bot) notifyAudit(ctx context.Context, entry storage.AuditLog) {
	cfg, err := storage.LoadGuildConfig(ctx, b.store, entry.GuildID, b.cfg.DefaultLanguage)
	if err != nil || cfg.LogChannelID == "" {
		return
	}
	embed := b.buildAuditEmbed(entry)
	if _, err := b.session.ChannelMessageSendEmbed(cfg.LogChannelID, embed); err != nil {
		b.logger.Debug("audit notify failed", zap.String("guild_id", entry.GuildID), zap.Error(err))
	}
}

func (b *Bot) buildAuditEmbed(entry storage.AuditLog) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Level", Value: entry.Level, Inline: true},
	}
	if entry.UserID != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "User", Value: "<@" + entry.UserID + ">", Inline: true})
	}
	description := entry.Details
	if description == "" {
		description = "-"
	}
	return &discordgo.MessageEmbed{
		Title:       auditEventLabel(entry.Event),
		Description: truncate(description, 4000),
		Color:       b.levelColor(entry.Level),
		Timestamp:   entry.CreatedAt.Format(time.RFC3339),
		Fields:      fields,
	}
}

func (b *Bot) levelColor(level string) int {
	colors := b.cfg.Notifications.EmbedColors
	switch level {
	case audit.LevelCrit:
		return colors.Error
	case audit.LevelWarn:
		return colors.Warning
	default:
		return colors.Info
	}
}

func (b *Bot) respond(session *discordgo.Session, interaction *discordgo.InteractionCreate, content string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	err := session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
	b.logRespondError(interaction, err)
}

func (b *Bot) respondEmbed(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	if embed == nil {
		b.respond(session, interaction, "No response available.", ephemeral)
		return
	}
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	err := session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  flags,
		},
	})
	b.logRespondError(interaction, err)
}

func (b *Bot) logRespondError(interaction *discordgo.InteractionCreate, err error) {
	if err == nil {
		return
	}
	b.logger.Warn("interaction reply failed",
		zap.String("guild_id", interaction.GuildID),
		zap.String("interaction_id", interaction.ID),
		zap.Error(err))
}

func (b *Bot) respondError(session *discordgo.Session, interaction *discordgo.InteractionCreate, title string, err error) {
	if appErrorIsUnexpected(err) {
		b.logger.Error("command failed",
			zap.String("guild_id", interaction.GuildID),
			zap.String("command", title),
			zap.Error(err))
	}
	b.respondEmbed(session, interaction, b.commandEmbed(title, errorMessage(err), b.cfg.Notifications.EmbedColors.Error, nil), true)
}

func (b *Bot) commandEmbed(title, description string, color int, fields []*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   b.clock.Now().Format(time.RFC3339),
		Fields:      fields,
	}
}
