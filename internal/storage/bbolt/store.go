// Package bbolt stores guild documents in a single BoltDB file.
package bbolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"guildkeeper/internal/guild"
	"guildkeeper/internal/storage"

	"go.etcd.io/bbolt"
)

const (
	guildBucket = "guild_configs"
	auditBucket = "audit_logs"
)

// Store provides a BoltDB-backed guild store.
type Store struct {
	db *bbolt.DB
}

// Open opens a BoltDB-backed store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}

	store := &Store{db: db}
	if err := store.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) GetGuildConfig(ctx context.Context, guildID string) (*guild.Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(guildID) == "" {
		return nil, fmt.Errorf("guild id is required")
	}

	var cfg guild.Config
	err := s.db.View(func(tx *bbolt.Tx) error {
		payload := tx.Bucket([]byte(guildBucket)).Get([]byte(guildID))
		if payload == nil {
			return storage.ErrNotFound
		}
		if err := json.Unmarshal(payload, &cfg); err != nil {
			return fmt.Errorf("unmarshal guild config: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	cfg.Normalize()
	return &cfg, nil
}

func (s *Store) PutGuildConfig(ctx context.Context, cfg *guild.Config) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.GuildID) == "" {
		return fmt.Errorf("guild id is required")
	}

	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal guild config: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(guildBucket)).Put([]byte(cfg.GuildID), payload)
	})
}

type auditRecord struct {
	GuildID   string `json:"guild_id"`
	UserID    string `json:"user_id"`
	Level     string `json:"level"`
	Event     string `json:"event"`
	Details   string `json:"details"`
	CreatedAt int64  `json:"created_at"`
}

func (s *Store) AddAuditLog(ctx context.Context, log storage.AuditLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(auditBucket))
		seq, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("next audit sequence: %w", err)
		}
		payload, err := json.Marshal(auditRecord{
			GuildID:   log.GuildID,
			UserID:    log.UserID,
			Level:     log.Level,
			Event:     log.Event,
			Details:   log.Details,
			CreatedAt: log.CreatedAt.Unix(),
		})
		if err != nil {
			return fmt.Errorf("marshal audit log: %w", err)
		}
		return bucket.Put(sequenceKey(seq), payload)
	})
}

func (s *Store) ListAuditLogs(ctx context.Context, guildID string, since time.Time) ([]storage.AuditLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var logs []storage.AuditLog
	err := s.db.View(func(tx *bbolt.Tx) error {
		cursor := tx.Bucket([]byte(auditBucket)).Cursor()
		// newest first
		for key, value := cursor.Last(); key != nil; key, value = cursor.Prev() {
			var record auditRecord
			if err := json.Unmarshal(value, &record); err != nil {
				return fmt.Errorf("unmarshal audit log: %w", err)
			}
			if record.GuildID != guildID || record.CreatedAt < since.Unix() {
				continue
			}
			logs = append(logs, storage.AuditLog{
				ID:        int64(binary.BigEndian.Uint64(key)),
				GuildID:   record.GuildID,
				UserID:    record.UserID,
				Level:     record.Level,
				Event:     record.Event,
				Details:   record.Details,
				CreatedAt: time.Unix(record.CreatedAt, 0),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CleanupAuditLogs(ctx context.Context, before time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(auditBucket))
		var stale [][]byte
		err := bucket.ForEach(func(key, value []byte) error {
			var record auditRecord
			if err := json.Unmarshal(value, &record); err != nil {
				return fmt.Errorf("unmarshal audit log: %w", err)
			}
			if record.CreatedAt < before.Unix() {
				stale = append(stale, append([]byte(nil), key...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, key := range stale {
			if err := bucket.Delete(key); err != nil {
				return fmt.Errorf("delete audit log: %w", err)
			}
		}
		return nil
	})
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{guildBucket, auditBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}

func sequenceKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
