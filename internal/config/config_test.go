package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aiko.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "log_level: debug\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Engine.GapThreshold.Std() != 2*time.Hour {
		t.Errorf("gap threshold = %v, want 2h", cfg.Engine.GapThreshold)
	}
	if cfg.Engine.SummarizeThreshold != 16 {
		t.Errorf("summarize threshold = %d, want 16", cfg.Engine.SummarizeThreshold)
	}
	if cfg.Engine.KeepRecent != 5 {
		t.Errorf("keep recent = %d, want 5", cfg.Engine.KeepRecent)
	}
	if cfg.Models.OllamaURL != "http://localhost:11434" {
		t.Errorf("ollama url = %q", cfg.Models.OllamaURL)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q, want debug", cfg.LogLevel)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
engine:
  gap_threshold: 30m
  summarize_threshold: 20
  keep_recent: 8
models:
  text: qwen2.5
  vision: llava:13b
session:
  persist: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Engine.GapThreshold.Std() != 30*time.Minute {
		t.Errorf("gap threshold = %v, want 30m", cfg.Engine.GapThreshold)
	}
	if cfg.Engine.SummarizeThreshold != 20 {
		t.Errorf("summarize threshold = %d, want 20", cfg.Engine.SummarizeThreshold)
	}
	if cfg.Models.Vision != "llava:13b" {
		t.Errorf("vision model = %q", cfg.Models.Vision)
	}
	if !cfg.Session.Persist {
		t.Error("session.persist should be true")
	}
}

func TestLoadRejectsKeepAboveThreshold(t *testing.T) {
	path := writeConfig(t, `
engine:
  summarize_threshold: 4
  keep_recent: 6
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for keep_recent >= summarize_threshold")
	}
}

func TestLoadAppliesEnvOverlay(t *testing.T) {
	t.Setenv("AIKO_MQTT_USERNAME", "aiko-bot")
	t.Setenv("AIKO_MQTT_PASSWORD", "hunter2")

	path := writeConfig(t, `
mqtt:
  enabled: true
  broker: mqtt://localhost:1883
  password: from-yaml
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.MQTT.Username != "aiko-bot" {
		t.Errorf("username = %q, want aiko-bot", cfg.MQTT.Username)
	}
	// Environment wins over the YAML value.
	if cfg.MQTT.Password != "hunter2" {
		t.Errorf("password = %q, want hunter2", cfg.MQTT.Password)
	}
	if cfg.MQTT.Broker != "mqtt://localhost:1883" {
		t.Errorf("broker = %q", cfg.MQTT.Broker)
	}
}

func TestLoadEnvBrokerSatisfiesValidation(t *testing.T) {
	t.Setenv("AIKO_MQTT_BROKER", "mqtts://broker.example:8883")

	path := writeConfig(t, "mqtt:\n  enabled: true\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.MQTT.Broker != "mqtts://broker.example:8883" {
		t.Errorf("broker = %q", cfg.MQTT.Broker)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, "engine:\n  gap_threshold: soon\n")

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unparsable duration")
	}
}

func TestLoadRejectsMQTTWithoutBroker(t *testing.T) {
	path := writeConfig(t, "mqtt:\n  enabled: true\n")

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for mqtt.enabled without broker")
	}
}

func TestFindConfigExplicitMissing(t *testing.T) {
	if _, err := FindConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"info", slog.LevelInfo, false},
		{"TRACE", LevelTrace, false},
		{"debug", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{" warn ", slog.LevelWarn, false},
		{"loud", slog.LevelInfo, true},
	}

	for _, tc := range tests {
		got, err := ParseLogLevel(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseLogLevel(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseLogLevel(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
