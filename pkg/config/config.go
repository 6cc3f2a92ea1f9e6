package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Discord  DiscordConfig  `json:"discord"`
	Telegram TelegramConfig `json:"telegram"`
	Relay    RelayConfig    `json:"relay"`
	Logging  LoggingConfig  `json:"logging"`
	mu       sync.RWMutex
}

type DiscordConfig struct {
	Token          string `json:"token" env:"DISCOGRAM_DISCORD_TOKEN"`
	ChannelID      string `json:"channel_id" env:"DISCOGRAM_DISCORD_CHANNEL_ID"`
	MaxAttachments int    `json:"max_attachments" env:"DISCOGRAM_DISCORD_MAX_ATTACHMENTS"`
}

type TelegramConfig struct {
	Token    string `json:"token" env:"DISCOGRAM_TELEGRAM_TOKEN"`
	ChatID   int64  `json:"chat_id" env:"DISCOGRAM_TELEGRAM_CHAT_ID"`
	ThreadID int    `json:"thread_id" env:"DISCOGRAM_TELEGRAM_THREAD_ID"`
	// BotID identifies the bridge's own messages in replies; resolved from
	// getMe when zero.
	BotID          int64  `json:"bot_id" env:"DISCOGRAM_TELEGRAM_BOT_ID"`
	Proxy          string `json:"proxy" env:"DISCOGRAM_TELEGRAM_PROXY"`
	MaxAttachments int    `json:"max_attachments" env:"DISCOGRAM_TELEGRAM_MAX_ATTACHMENTS"`
}

type RelayConfig struct {
	FetchTimeoutSeconds int `json:"fetch_timeout_seconds" env:"DISCOGRAM_RELAY_FETCH_TIMEOUT_SECONDS"`
	MaxFileMB           int `json:"max_file_mb" env:"DISCOGRAM_RELAY_MAX_FILE_MB"`
}

type LoggingConfig struct {
	Level           string `json:"level" env:"DISCOGRAM_LOGGING_LEVEL"`
	FileEnabled     bool   `json:"file_enabled" env:"DISCOGRAM_LOGGING_FILE_ENABLED"`
	FilePath        string `json:"file_path" env:"DISCOGRAM_LOGGING_FILE_PATH"`
	RotationEnabled bool   `json:"rotation_enabled" env:"DISCOGRAM_LOGGING_ROTATION_ENABLED"`
	MaxAgeDays      int    `json:"max_age_days" env:"DISCOGRAM_LOGGING_MAX_AGE_DAYS"`
	MaxSizeMB       int    `json:"max_size_mb" env:"DISCOGRAM_LOGGING_MAX_SIZE_MB"`
}

func DefaultConfig() *Config {
	return &Config{
		Discord: DiscordConfig{
			Token:          "",
			ChannelID:      "",
			MaxAttachments: 50,
		},
		Telegram: TelegramConfig{
			Token:          "",
			ChatID:         0,
			ThreadID:       0,
			BotID:          0,
			MaxAttachments: 50,
		},
		Relay: RelayConfig{
			FetchTimeoutSeconds: 60,
			MaxFileMB:           25,
		},
		Logging: LoggingConfig{
			Level:           "info",
			FileEnabled:     false,
			FilePath:        "~/.discogram/discogram.log",
			RotationEnabled: true,
			MaxAgeDays:      7,
			MaxSizeMB:       50,
		},
	}
}

// LoadConfig reads the JSON file at path over DefaultConfig, then applies
// .env and environment overrides. A missing file is not an error so the
// bridge can be configured from the environment alone.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := loadDotEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	cfg.Discord.Token = resolveEnvRef(cfg.Discord.Token)
	cfg.Telegram.Token = resolveEnvRef(cfg.Telegram.Token)
	cfg.Telegram.Proxy = resolveEnvRef(cfg.Telegram.Proxy)

	return cfg, nil
}

// loadDotEnv fills unset environment variables from a .env file if present.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func resolveEnvRef(v string) string {
	s := strings.TrimSpace(v)
	if s == "" {
		return v
	}
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		key := strings.TrimSpace(s[2 : len(s)-1])
		if key == "" {
			return v
		}
		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		return v
	}
	if strings.HasPrefix(s, "$") && len(s) > 1 {
		key := strings.TrimSpace(s[1:])
		if key == "" {
			return v
		}
		if val, ok := os.LookupEnv(key); ok {
			return val
		}
	}
	return v
}

// Validate reports every missing required setting at once.
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var errs []error
	if strings.TrimSpace(c.Discord.Token) == "" {
		errs = append(errs, errors.New("discord.token is required"))
	}
	if strings.TrimSpace(c.Discord.ChannelID) == "" {
		errs = append(errs, errors.New("discord.channel_id is required"))
	}
	if strings.TrimSpace(c.Telegram.Token) == "" {
		errs = append(errs, errors.New("telegram.token is required"))
	}
	if c.Telegram.ChatID == 0 {
		errs = append(errs, errors.New("telegram.chat_id is required"))
	}
	if c.Telegram.ThreadID < 0 {
		errs = append(errs, errors.New("telegram.thread_id must not be negative"))
	}
	return errors.Join(errs...)
}

func SaveConfig(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// TelegramChatKey is the Telegram chat id in the string form bindings use.
func (c *Config) TelegramChatKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return strconv.FormatInt(c.Telegram.ChatID, 10)
}

// TelegramThreadKey is the configured forum topic, or "" for none.
func (c *Config) TelegramThreadKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Telegram.ThreadID == 0 {
		return ""
	}
	return strconv.Itoa(c.Telegram.ThreadID)
}

func (c *Config) FetchTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Relay.FetchTimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.Relay.FetchTimeoutSeconds) * time.Second
}

func (c *Config) MaxFileBytes() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Relay.MaxFileMB <= 0 {
		return 0
	}
	return int64(c.Relay.MaxFileMB) * 1024 * 1024
}

func (c *Config) LogFilePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return expandHome(c.Logging.FilePath)
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
