package bot

import (
	"context"
	"errors"
	"net/http"

	"guildkeeper/internal/inviterole"
	"guildkeeper/internal/leaderboard"
	"guildkeeper/internal/membership"

	"github.com/bwmarrin/discordgo"
	"github.com/samber/lo"
)

// Discord carries out chat and role side effects over a live session.
type Discord struct {
	session *discordgo.Session
}

func NewDiscord(session *discordgo.Session) *Discord {
	return &Discord{session: session}
}

func NewSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildInvites |
		discordgo.IntentsMessageContent
	return session, nil
}

func (d *Discord) SendMessage(ctx context.Context, channelID, content string) (*leaderboard.Message, error) {
	msg, err := d.session.ChannelMessageSend(channelID, content)
	if err != nil {
		return nil, err
	}
	return &leaderboard.Message{ID: msg.ID, ChannelID: msg.ChannelID}, nil
}

func (d *Discord) FetchMessage(ctx context.Context, channelID, messageID string) (*leaderboard.Message, error) {
	msg, err := d.session.ChannelMessage(channelID, messageID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &leaderboard.Message{ID: msg.ID, ChannelID: msg.ChannelID}, nil
}

func (d *Discord) EditMessage(ctx context.Context, channelID, messageID, content string) error {
	_, err := d.session.ChannelMessageEdit(channelID, messageID, content)
	return err
}

func (d *Discord) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	err := d.session.ChannelMessageDelete(channelID, messageID)
	if isNotFound(err) {
		return nil
	}
	return err
}

func (d *Discord) Alert(ctx context.Context, channelID, content string) error {
	_, err := d.session.ChannelMessageSend(channelID, content)
	return err
}

func (d *Discord) AddRole(ctx context.Context, guildID, memberID, roleID string) error {
	return d.session.GuildMemberRoleAdd(guildID, memberID, roleID)
}

func (d *Discord) RemoveRole(ctx context.Context, guildID, memberID, roleID string) error {
	return d.session.GuildMemberRoleRemove(guildID, memberID, roleID)
}

// Invites lists the guild's invites with their use counts.
func (d *Discord) Invites(guildID string) ([]membership.InviteUse, error) {
	invites, err := d.session.GuildInvites(guildID)
	if err != nil {
		return nil, err
	}
	return inviteUses(invites), nil
}

// Refs collects the guild's roles and invite codes for rule validation.
// Roles come from the state cache when it has them.
func (d *Discord) Refs(guildID string) (inviterole.Refs, error) {
	var roles []*discordgo.Role
	if g, err := d.session.State.Guild(guildID); err == nil && len(g.Roles) > 0 {
		roles = g.Roles
	} else {
		roles, err = d.session.GuildRoles(guildID)
		if err != nil {
			return inviterole.Refs{}, err
		}
	}
	refs := inviterole.Refs{Roles: roleRefs(guildID, roles)}
	// Without Manage Server the invite list is unavailable; codes are then
	// taken as given.
	if invites, err := d.session.GuildInvites(guildID); err == nil {
		refs.Invites = lo.Map(invites, func(invite *discordgo.Invite, _ int) string {
			return invite.Code
		})
	}
	return refs, nil
}

func roleRefs(guildID string, roles []*discordgo.Role) []inviterole.RoleRef {
	refs := make([]inviterole.RoleRef, 0, len(roles))
	for _, role := range roles {
		if role == nil {
			continue
		}
		refs = append(refs, inviterole.RoleRef{
			ID:       role.ID,
			Name:     role.Name,
			Everyone: role.ID == guildID,
			Managed:  role.Managed,
		})
	}
	return refs
}

func inviteUses(invites []*discordgo.Invite) []membership.InviteUse {
	uses := make([]membership.InviteUse, 0, len(invites))
	for _, invite := range invites {
		if invite == nil || invite.Code == "" {
			continue
		}
		uses = append(uses, membership.InviteUse{Code: invite.Code, Uses: invite.Uses})
	}
	return uses
}

func isNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
		return true
	}
	return restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeUnknownMessage
}
