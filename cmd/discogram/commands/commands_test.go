package commands

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/discogram/discogram/pkg/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd("test")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigInitThenCheck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	out, err := execute(t, "config", "init", "--config", path)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, path) {
		t.Fatalf("unexpected output %q", out)
	}

	if _, err := execute(t, "config", "init", "--config", path); err == nil {
		t.Fatal("init must not overwrite an existing file")
	}

	_, err = execute(t, "config", "check", "--config", path)
	if err == nil || !strings.Contains(err.Error(), "discord.token") {
		t.Fatalf("default config should fail validation, got %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.Discord.Token = "d"
	cfg.Discord.ChannelID = "123"
	cfg.Telegram.Token = "t"
	cfg.Telegram.ChatID = -100
	if err := config.SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	out, err = execute(t, "config", "check", "--config", path)
	if err != nil {
		t.Fatalf("config check: %v", err)
	}
	if !strings.Contains(out, "123") || !strings.Contains(out, "-100") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := config.SaveConfig(path, config.DefaultConfig()); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	if _, err := execute(t, "run", "--config", path); err == nil {
		t.Fatal("run should refuse an invalid config")
	}
}

func TestVersionFlag(t *testing.T) {
	out, err := execute(t, "--version")
	if err != nil {
		t.Fatalf("--version: %v", err)
	}
	if !strings.Contains(out, "test") {
		t.Fatalf("unexpected version output %q", out)
	}
}
