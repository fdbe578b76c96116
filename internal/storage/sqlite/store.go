// Package sqlite stores guild documents in an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"guildkeeper/internal/guild"
	"guildkeeper/internal/storage"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	db *sqlx.DB
}

type auditRow struct {
	storage.AuditLog
	Created int64 `db:"created_at"`
}

func New(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if dbPath == ":memory:" {
		// each connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Migrate() error {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return err
	}

	var files []string
	for _, entry := range entries {
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := migrations.ReadFile(path.Join("migrations", file))
		if err != nil {
			return err
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			if isIgnorableMigrationError(err) {
				continue
			}
			return fmt.Errorf("migration %s failed: %w", file, err)
		}
	}
	return nil
}

func (s *Store) GetGuildConfig(ctx context.Context, guildID string) (*guild.Config, error) {
	var document string
	err := s.db.GetContext(ctx, &document, `SELECT document FROM guild_configs WHERE guild_id = ?`, guildID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	var cfg guild.Config
	if err := json.Unmarshal([]byte(document), &cfg); err != nil {
		return nil, fmt.Errorf("decode guild config %s: %w", guildID, err)
	}
	cfg.Normalize()
	return &cfg, nil
}

func (s *Store) PutGuildConfig(ctx context.Context, cfg *guild.Config) error {
	document, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode guild config %s: %w", cfg.GuildID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO guild_configs (guild_id, document, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			document = excluded.document,
			updated_at = excluded.updated_at
	`, cfg.GuildID, string(document), time.Now().Unix())
	return err
}

func (s *Store) AddAuditLog(ctx context.Context, log storage.AuditLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (guild_id, user_id, level, event, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, log.GuildID, log.UserID, log.Level, log.Event, log.Details, log.CreatedAt.Unix())
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, guildID string, since time.Time) ([]storage.AuditLog, error) {
	var rows []auditRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, guild_id, user_id, level, event, details, created_at
		FROM audit_logs
		WHERE guild_id = ? AND created_at >= ?
		ORDER BY created_at DESC, id DESC
	`, guildID, since.Unix())
	if err != nil {
		return nil, err
	}

	logs := make([]storage.AuditLog, 0, len(rows))
	for _, row := range rows {
		log := row.AuditLog
		log.CreatedAt = time.Unix(row.Created, 0)
		logs = append(logs, log)
	}
	return logs, nil
}

func (s *Store) CleanupAuditLogs(ctx context.Context, before time.Time) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < ?`, before.Unix())
	return err
}

func isIgnorableMigrationError(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	return strings.Contains(message, "duplicate column name") || strings.Contains(message, "already exists")
}
