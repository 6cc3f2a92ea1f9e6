package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestDefaultConfig_Limits verifies per-dispatch caps have defaults
func TestDefaultConfig_Limits(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Telegram.MaxAttachments != 50 {
		t.Errorf("Telegram max attachments = %d, want 50", cfg.Telegram.MaxAttachments)
	}
	if cfg.Discord.MaxAttachments != 50 {
		t.Errorf("Discord max attachments = %d, want 50", cfg.Discord.MaxAttachments)
	}
}

// TestDefaultConfig_Relay verifies fetch defaults
func TestDefaultConfig_Relay(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.FetchTimeout() != 60*time.Second {
		t.Errorf("FetchTimeout = %v", cfg.FetchTimeout())
	}
	if cfg.MaxFileBytes() != 25*1024*1024 {
		t.Errorf("MaxFileBytes = %d", cfg.MaxFileBytes())
	}
}

// TestDefaultConfig_Credentials verifies credentials are empty by default
func TestDefaultConfig_Credentials(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Discord.Token != "" || cfg.Telegram.Token != "" {
		t.Error("tokens should be empty by default")
	}
	if err := cfg.Validate(); err == nil {
		t.Error("default config should not validate")
	}
}

func TestValidateReportsAllMissing(t *testing.T) {
	err := DefaultConfig().Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"discord.token", "discord.channel_id", "telegram.token", "telegram.chat_id"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	data := `{
  "discord": {"token": "dtoken", "channel_id": "123456"},
  "telegram": {"token": "ttoken", "chat_id": -1001234, "thread_id": 7, "bot_id": 99},
  "logging": {"level": "debug"}
}`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.TelegramChatKey() != "-1001234" || cfg.TelegramThreadKey() != "7" {
		t.Fatalf("unexpected telegram binding %q/%q", cfg.TelegramChatKey(), cfg.TelegramThreadKey())
	}
	if cfg.Telegram.BotID != 99 || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected config %+v", cfg.Telegram)
	}
	// Defaults survive partial files
	if cfg.Telegram.MaxAttachments != 50 {
		t.Fatalf("max attachments default lost: %d", cfg.Telegram.MaxAttachments)
	}
}

func TestLoadConfigMissingFileUsesEnv(t *testing.T) {
	t.Setenv("DISCOGRAM_DISCORD_TOKEN", "from-env")
	t.Setenv("DISCOGRAM_TELEGRAM_CHAT_ID", "-42")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Discord.Token != "from-env" {
		t.Fatalf("discord token = %q", cfg.Discord.Token)
	}
	if cfg.Telegram.ChatID != -42 {
		t.Fatalf("telegram chat id = %d", cfg.Telegram.ChatID)
	}
	if cfg.TelegramThreadKey() != "" {
		t.Fatalf("thread key should be empty, got %q", cfg.TelegramThreadKey())
	}
}

func TestLoadConfigDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("DISCOGRAM_TEST_TG_TOKEN=secret\n"), 0600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"telegram": {"token": "${DISCOGRAM_TEST_TG_TOKEN}"}}`), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("DISCOGRAM_TEST_TG_TOKEN") })

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Telegram.Token != "secret" {
		t.Fatalf("telegram token = %q, want value from .env", cfg.Telegram.Token)
	}
}

func TestResolveEnvRef(t *testing.T) {
	t.Setenv("DISCOGRAM_TEST_REF", "value")

	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"$DISCOGRAM_TEST_REF", "value"},
		{"${DISCOGRAM_TEST_REF}", "value"},
		{"${DISCOGRAM_TEST_UNSET}", "${DISCOGRAM_TEST_UNSET}"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := resolveEnvRef(tc.in); got != tc.want {
			t.Fatalf("resolveEnvRef(%q)=%q want %q", tc.in, got, tc.want)
		}
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := DefaultConfig()
	cfg.Discord.ChannelID = "555"
	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.Discord.ChannelID != "555" {
		t.Fatalf("channel id = %q", loaded.Discord.ChannelID)
	}
}
