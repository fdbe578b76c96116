package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"guildkeeper/internal/guild"
)

// Memory is an in-process Store. Documents are stored encoded so callers
// never share state with the store.
type Memory struct {
	mu     sync.Mutex
	docs   map[string][]byte
	logs   []AuditLog
	nextID int64
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[string][]byte)}
}

func (m *Memory) GetGuildConfig(ctx context.Context, guildID string) (*guild.Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	payload, ok := m.docs[guildID]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	var cfg guild.Config
	if err := json.Unmarshal(payload, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal guild config: %w", err)
	}
	cfg.Normalize()
	return &cfg, nil
}

func (m *Memory) PutGuildConfig(ctx context.Context, cfg *guild.Config) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal guild config: %w", err)
	}
	m.mu.Lock()
	m.docs[cfg.GuildID] = payload
	m.mu.Unlock()
	return nil
}

func (m *Memory) AddAuditLog(ctx context.Context, log AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	log.ID = m.nextID
	m.logs = append(m.logs, log)
	return nil
}

func (m *Memory) ListAuditLogs(ctx context.Context, guildID string, since time.Time) ([]AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var logs []AuditLog
	for _, log := range m.logs {
		if log.GuildID == guildID && !log.CreatedAt.Before(since) {
			logs = append(logs, log)
		}
	}
	sort.SliceStable(logs, func(i, j int) bool { return logs[i].CreatedAt.After(logs[j].CreatedAt) })
	return logs, nil
}

func (m *Memory) CleanupAuditLogs(ctx context.Context, before time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.logs[:0]
	for _, log := range m.logs {
		if !log.CreatedAt.Before(before) {
			kept = append(kept, log)
		}
	}
	m.logs = kept
	return nil
}

func (m *Memory) Close() error { return nil }
