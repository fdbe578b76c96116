package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite   = "sqlite"
	DriverBolt     = "bbolt"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	DiscordToken    string           `yaml:"discord_token" env:"DISCORD_TOKEN"`
	LogLevel        string           `yaml:"log_level" env:"LOG_LEVEL"`
	DefaultLanguage string           `yaml:"default_language" env:"DEFAULT_LANGUAGE"`
	RetentionDays   int              `yaml:"retention_days" env:"RETENTION_DAYS"`
	Storage         StorageConfig    `yaml:"storage"`
	API             APIConfig        `yaml:"api"`
	InviteRoles     InviteRoleConfig `yaml:"invite_roles"`
	Stats           StatsConfig      `yaml:"stats"`
	Notifications   NotifyConfig     `yaml:"notifications"`
}

type StorageConfig struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER"`
	Path   string `yaml:"path" env:"DATABASE_PATH"`
	DSN    string `yaml:"dsn" env:"DATABASE_DSN"`
}

type APIConfig struct {
	Enabled bool    `yaml:"enabled" env:"API_ENABLED"`
	Addr    string  `yaml:"addr" env:"API_ADDR"`
	Token   string  `yaml:"token" env:"API_TOKEN"`
	Rate    float64 `yaml:"rate" env:"API_RATE"`
	Burst   int     `yaml:"burst" env:"API_BURST"`
}

type InviteRoleConfig struct {
	RevokeDelayMS int `yaml:"revoke_delay_ms" env:"INVITE_ROLE_REVOKE_DELAY_MS"`
}

type StatsConfig struct {
	Language string `yaml:"language" env:"STATS_LANGUAGE"`
}

type NotifyConfig struct {
	AuditToChannel bool        `yaml:"audit_to_channel" env:"AUDIT_TO_CHANNEL"`
	EmbedColors    EmbedColors `yaml:"embed_colors"`
}

type EmbedColors struct {
	Info    int `yaml:"info" env:"EMBED_COLOR_INFO"`
	Warning int `yaml:"warning" env:"EMBED_COLOR_WARNING"`
	Error   int `yaml:"error" env:"EMBED_COLOR_ERROR"`
}

func DefaultConfig() Config {
	return Config{
		LogLevel:        "info",
		DefaultLanguage: "en",
		RetentionDays:   30,
		Storage:         StorageConfig{Driver: DriverSQLite, Path: "/data/guildkeeper.db"},
		API:             APIConfig{Enabled: false, Addr: ":8080", Rate: 5, Burst: 10},
		InviteRoles:     InviteRoleConfig{RevokeDelayMS: 2000},
		Notifications: NotifyConfig{
			AuditToChannel: true,
			EmbedColors: EmbedColors{
				Info:    0x5865F2,
				Warning: 0xF59E0B,
				Error:   0xEF4444,
			},
		},
	}
}

// Load reads .env, then the YAML file named by CONFIG_PATH, then the
// environment. Later sources win.
func Load() (Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	return LoadFrom(path)
}

func LoadFrom(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := DefaultConfig()
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}
	if err := normalize(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func normalize(cfg *Config) error {
	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	switch cfg.Storage.Driver {
	case "":
		cfg.Storage.Driver = DriverSQLite
	case DriverSQLite, DriverBolt, DriverMemory:
	case DriverPostgres:
		if cfg.Storage.DSN == "" {
			return errors.New("storage.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	if cfg.API.Enabled && cfg.API.Token == "" {
		return errors.New("API_TOKEN is required when the API is enabled")
	}
	if cfg.API.Rate <= 0 {
		cfg.API.Rate = 5
	}
	if cfg.API.Burst <= 0 {
		cfg.API.Burst = 1
	}
	if cfg.InviteRoles.RevokeDelayMS <= 0 {
		cfg.InviteRoles.RevokeDelayMS = 2000
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "en"
	}
	if cfg.Stats.Language == "" {
		cfg.Stats.Language = cfg.DefaultLanguage
	}
	return nil
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := strings.ToLower(level)
	switch lvl {
	case "debug", "info", "warn", "error":
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(lvl))
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
