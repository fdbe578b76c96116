package leaderboard

import (
	"context"
	"fmt"

	"guildkeeper/internal/audit"
	"guildkeeper/internal/guild"
	"guildkeeper/internal/storage"

	"go.uber.org/zap"
)

// Service runs leaderboard operations against stored guild documents.
// Every mutation loads the document, changes it, saves it and then
// refreshes the rendered message.
type Service struct {
	store     storage.Store
	publisher *Publisher
	audit     *audit.Logger
	logger    *zap.Logger
	language  string
}

func NewService(store storage.Store, publisher *Publisher, auditLogger *audit.Logger, logger *zap.Logger, language string) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		audit:     auditLogger,
		logger:    logger,
		language:  language,
	}
}

func (s *Service) Create(ctx context.Context, guildID, actorID, name, title string, kind guild.LeaderboardType) (*guild.Leaderboard, error) {
	var created *guild.Leaderboard
	err := s.mutate(ctx, guildID, func(cfg *guild.Config) error {
		lb, err := Create(cfg, name, title, kind)
		created = lb
		return err
	})
	if err != nil {
		return nil, err
	}
	s.audit.Log(ctx, audit.LevelInfo, guildID, actorID, audit.EventLeaderboardCreated, fmt.Sprintf("leaderboard=%s type=%s", name, kind))
	return created, nil
}

// Delete removes the leaderboard and its rendered message.
func (s *Service) Delete(ctx context.Context, guildID, actorID, name string) (*guild.Leaderboard, error) {
	var removed *guild.Leaderboard
	err := s.mutate(ctx, guildID, func(cfg *guild.Config) error {
		lb, err := Delete(cfg, name)
		removed = lb
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publisher.Unpost(ctx, removed)
	s.audit.Log(ctx, audit.LevelInfo, guildID, actorID, audit.EventLeaderboardDeleted, "leaderboard="+name)
	return removed, nil
}

func (s *Service) Reset(ctx context.Context, guildID, actorID, name string) (*guild.Leaderboard, error) {
	var reset *guild.Leaderboard
	err := s.mutate(ctx, guildID, func(cfg *guild.Config) error {
		lb, err := Reset(cfg, name)
		reset = lb
		return err
	})
	if err != nil {
		return nil, err
	}
	s.sync(ctx, guildID, reset)
	s.audit.Log(ctx, audit.LevelInfo, guildID, actorID, audit.EventLeaderboardReset, "leaderboard="+name)
	return reset, nil
}

// Post renders the leaderboard into channelID. The earlier post is
// deleted only after the new pointers are saved.
func (s *Service) Post(ctx context.Context, guildID, actorID, name, channelID string) (*guild.Leaderboard, error) {
	var posted *guild.Leaderboard
	var previous *Message
	err := s.mutate(ctx, guildID, func(cfg *guild.Config) error {
		lb, err := Get(cfg, name)
		if err != nil {
			return err
		}
		previous, err = s.publisher.Post(ctx, lb, channelID)
		if err != nil {
			return err
		}
		posted = lb
		return nil
	})
	if err != nil {
		if posted != nil {
			// sent but never saved
			s.publisher.Discard(ctx, name, &Message{ID: posted.MessageID, ChannelID: posted.ChannelID})
		}
		return nil, err
	}
	s.publisher.Discard(ctx, name, previous)
	s.audit.Log(ctx, audit.LevelInfo, guildID, actorID, audit.EventLeaderboardPosted, fmt.Sprintf("leaderboard=%s channel=%s message=%s", name, posted.ChannelID, posted.MessageID))
	return posted, nil
}

func (s *Service) Get(ctx context.Context, guildID, name string) (*guild.Leaderboard, error) {
	cfg, err := storage.LoadGuildConfig(ctx, s.store, guildID, s.language)
	if err != nil {
		return nil, err
	}
	return Get(cfg, name)
}

func (s *Service) List(ctx context.Context, guildID string) ([]*guild.Leaderboard, error) {
	cfg, err := storage.LoadGuildConfig(ctx, s.store, guildID, s.language)
	if err != nil {
		return nil, err
	}
	return List(cfg), nil
}

// IncrementUser adds amount to a user's score on a user leaderboard.
func (s *Service) IncrementUser(ctx context.Context, guildID, actorID, name, userID string, amount float64) (float64, error) {
	var total float64
	var board *guild.Leaderboard
	err := s.mutate(ctx, guildID, func(cfg *guild.Config) error {
		lb, err := Get(cfg, name)
		if err != nil {
			return err
		}
		board = lb
		total, err = IncrementUserScore(lb, userID, amount)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.sync(ctx, guildID, board)
	s.audit.Log(ctx, audit.LevelInfo, guildID, actorID, audit.EventScoreUpdated,
		fmt.Sprintf("leaderboard=%s user=%s amount=%s total=%s", name, userID, FormatScore(amount), FormatScore(total)))
	return total, nil
}

// AttributePost credits a message to a user on a post leaderboard. It
// reports false, without saving, when the message was already credited.
func (s *Service) AttributePost(ctx context.Context, guildID, actorID, name, userID, channelID, messageID string) (bool, error) {
	cfg, err := storage.LoadGuildConfig(ctx, s.store, guildID, s.language)
	if err != nil {
		return false, err
	}
	lb, err := Get(cfg, name)
	if err != nil {
		return false, err
	}
	added, err := RecordPostScore(lb, userID, channelID, messageID)
	if err != nil || !added {
		return false, err
	}
	if err := s.store.PutGuildConfig(ctx, cfg); err != nil {
		return false, fmt.Errorf("save guild config: %w", err)
	}
	s.sync(ctx, guildID, lb)
	s.audit.Log(ctx, audit.LevelInfo, guildID, actorID, audit.EventScoreUpdated,
		fmt.Sprintf("leaderboard=%s user=%s post=%s/%s", name, userID, channelID, messageID))
	return true, nil
}

func (s *Service) mutate(ctx context.Context, guildID string, fn func(cfg *guild.Config) error) error {
	cfg, err := storage.LoadGuildConfig(ctx, s.store, guildID, s.language)
	if err != nil {
		return err
	}
	if err := fn(cfg); err != nil {
		return err
	}
	if err := s.store.PutGuildConfig(ctx, cfg); err != nil {
		return fmt.Errorf("save guild config: %w", err)
	}
	return nil
}

func (s *Service) sync(ctx context.Context, guildID string, lb *guild.Leaderboard) {
	if err := s.publisher.Sync(ctx, lb); err != nil {
		s.logger.Warn("leaderboard sync failed", zap.String("guild_id", guildID), zap.String("leaderboard", lb.Name), zap.Error(err))
	}
}
