package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"guildkeeper/internal/analytics"
	"guildkeeper/internal/api"
	"guildkeeper/internal/audit"
	"guildkeeper/internal/bot"
	"guildkeeper/internal/config"
	"guildkeeper/internal/inviterole"
	"guildkeeper/internal/leaderboard"
	"guildkeeper/internal/linkscan"
	"guildkeeper/internal/membership"
	"guildkeeper/internal/storage"
	boltstore "guildkeeper/internal/storage/bbolt"
	"guildkeeper/internal/storage/postgres"
	"guildkeeper/internal/storage/sqlite"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal("storage init failed", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer store.Close()

	session, err := bot.NewSession(cfg.DiscordToken)
	if err != nil {
		logger.Fatal("discord session init failed", zap.Error(err))
	}
	discord := bot.NewDiscord(session)

	auditLogger := audit.NewLogger(store, logger)
	revokeDelay := time.Duration(cfg.InviteRoles.RevokeDelayMS) * time.Millisecond

	inviteRoles := inviterole.NewService(store, auditLogger, cfg.DefaultLanguage)
	leaderboards := leaderboard.NewService(store, leaderboard.NewPublisher(discord, logger), auditLogger, logger, cfg.DefaultLanguage)
	resolver := membership.NewResolver(discord, logger, auditLogger, revokeDelay)
	members := membership.NewService(store, membership.NewInviteCache(), resolver, auditLogger, cfg.DefaultLanguage)

	botSvc, err := bot.New(cfg, logger, session, bot.Services{
		Store:        store,
		Audit:        auditLogger,
		Analytics:    analytics.New(store),
		InviteRoles:  inviteRoles,
		Leaderboards: leaderboards,
		Members:      members,
		Links:        linkscan.New(discord, auditLogger, logger),
		LinkSettings: linkscan.NewSettings(store, auditLogger, cfg.DefaultLanguage),
	})
	if err != nil {
		logger.Fatal("bot init failed", zap.Error(err))
	}

	if err := botSvc.Start(); err != nil {
		logger.Fatal("bot start failed", zap.Error(err))
	}
	logger.Info("bot started", zap.String("storage", cfg.Storage.Driver))

	var server *http.Server
	if cfg.API.Enabled {
		server = api.New(cfg.API, logger, leaderboards, inviteRoles).HTTPServer()
		go func() {
			logger.Info("api enabled", zap.String("addr", cfg.API.Addr))
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("api server error", zap.Error(err))
			}
		}()
	}

	go pruneAuditLogs(ctx, auditLogger, logger, time.Duration(cfg.RetentionDays)*24*time.Hour)

	<-ctx.Done()
	logger.Info("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if server != nil {
		_ = server.Shutdown(shutdownCtx)
	}
	botSvc.Close(shutdownCtx)
}

func openStore(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return storage.NewMemory(), nil
	case config.DriverBolt:
		store, err := boltstore.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DriverPostgres:
		store, err := postgres.Connect(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("migrations failed: %w", err)
		}
		return store, nil
	default:
		store, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("migrations failed: %w", err)
		}
		return store, nil
	}
}

// pruneAuditLogs drops audit rows older than retention once at startup
// and then daily. A zero retention keeps everything.
func pruneAuditLogs(ctx context.Context, auditLogger *audit.Logger, logger *zap.Logger, retention time.Duration) {
	if retention <= 0 {
		return
	}
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		if err := auditLogger.Prune(ctx, retention); err != nil {
			logger.Warn("audit prune failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
