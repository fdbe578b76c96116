package leaderboard

import (
	"context"
	"fmt"

	"guildkeeper/internal/guild"

	"go.uber.org/zap"
)

// Message identifies a sent chat message.
type Message struct {
	ID        string
	ChannelID string
}

// Channel is the chat surface a leaderboard is rendered to. FetchMessage
// returns a nil message, not an error, when the message is gone.
type Channel interface {
	SendMessage(ctx context.Context, channelID, content string) (*Message, error)
	FetchMessage(ctx context.Context, channelID, messageID string) (*Message, error)
	EditMessage(ctx context.Context, channelID, messageID, content string) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
}

// Publisher keeps a leaderboard's rendered message in step with its
// scores.
type Publisher struct {
	channel Channel
	logger  *zap.Logger
}

func NewPublisher(channel Channel, logger *zap.Logger) *Publisher {
	return &Publisher{channel: channel, logger: logger}
}

// Sync edits the rendered message to the current render. It does nothing
// when lb is not posted or its message can no longer be fetched.
func (p *Publisher) Sync(ctx context.Context, lb *guild.Leaderboard) error {
	if !lb.Posted() {
		return nil
	}
	msg, err := p.channel.FetchMessage(ctx, lb.ChannelID, lb.MessageID)
	if err != nil || msg == nil {
		p.logger.Debug("leaderboard message unavailable",
			zap.String("leaderboard", lb.Name),
			zap.String("channel_id", lb.ChannelID),
			zap.String("message_id", lb.MessageID),
			zap.Error(err))
		return nil
	}
	if err := p.channel.EditMessage(ctx, msg.ChannelID, msg.ID, Render(lb)); err != nil {
		return fmt.Errorf("edit leaderboard message: %w", err)
	}
	return nil
}

// Post sends a fresh render to channelID and points lb at it. It returns
// the message lb pointed at before, if any, for the caller to Discard once
// the new pointers are saved. lb is unchanged when the send fails.
func (p *Publisher) Post(ctx context.Context, lb *guild.Leaderboard, channelID string) (*Message, error) {
	msg, err := p.channel.SendMessage(ctx, channelID, Render(lb))
	if err != nil {
		return nil, fmt.Errorf("send leaderboard message: %w", err)
	}
	var previous *Message
	if lb.Posted() {
		previous = &Message{ID: lb.MessageID, ChannelID: lb.ChannelID}
	}
	lb.ChannelID = msg.ChannelID
	if lb.ChannelID == "" {
		lb.ChannelID = channelID
	}
	lb.MessageID = msg.ID
	return previous, nil
}

// Discard deletes msg best-effort. A nil msg is ignored.
func (p *Publisher) Discard(ctx context.Context, name string, msg *Message) {
	if msg == nil {
		return
	}
	if err := p.channel.DeleteMessage(ctx, msg.ChannelID, msg.ID); err != nil {
		p.logger.Warn("delete leaderboard message failed",
			zap.String("leaderboard", name),
			zap.String("channel_id", msg.ChannelID),
			zap.String("message_id", msg.ID),
			zap.Error(err))
	}
}

// Unpost deletes the rendered message best-effort and clears the pointers.
func (p *Publisher) Unpost(ctx context.Context, lb *guild.Leaderboard) {
	if lb.Posted() {
		p.Discard(ctx, lb.Name, &Message{ID: lb.MessageID, ChannelID: lb.ChannelID})
	}
	lb.ChannelID = ""
	lb.MessageID = ""
}
