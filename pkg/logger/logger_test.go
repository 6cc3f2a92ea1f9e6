package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"", INFO},
		{"debug", DEBUG},
		{"Info", INFO},
		{"warning", WARN},
		{"ERROR", ERROR},
	}
	for _, tc := range tests {
		got, err := ParseLevel(tc.in)
		if err != nil {
			t.Fatalf("ParseLevel(%q) error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseLevel(%q)=%v want %v", tc.in, got, tc.want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestFormatFieldsSorted(t *testing.T) {
	got := formatFields(map[string]interface{}{"to": "discord", "event": "ab12", "from": "telegram"})
	if got != "{event=ab12, from=telegram, to=discord}" {
		t.Fatalf("formatFields=%q", got)
	}
}

func TestFileLoggingWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "discogram.log")
	if err := EnableFileLoggingWithRotation(path, false, 0, 0); err != nil {
		t.Fatalf("enable file logging: %v", err)
	}
	defer DisableFileLogging()

	prev := GetLevel()
	SetLevel(DEBUG)
	defer SetLevel(prev)

	InfoCF("relay", "Message relayed", map[string]interface{}{"event": "ab12"})
	WarnCF("relay", "Attachment dropped", map[string]interface{}{"reason": "too large"})
	ErrorCF("relay", "Dispatch failed", nil)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 log lines, got %d: %q", len(lines), data)
	}

	var entry LogEntry
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("unmarshal entry: %v", err)
	}
	if entry.Level != "INFO" || entry.Component != "relay" || entry.Fields["event"] != "ab12" {
		t.Fatalf("unexpected entry %+v", entry)
	}
	for i, want := range []string{"WARN", "ERROR"} {
		var e LogEntry
		if err := json.Unmarshal([]byte(lines[i+1]), &e); err != nil {
			t.Fatalf("unmarshal entry %d: %v", i+1, err)
		}
		if e.Level != want {
			t.Fatalf("line %d level=%q want %q", i+1, e.Level, want)
		}
	}
}
