// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultSettings(t *testing.T) {
	s := defaultSettings()

	if s.PingInterval != 30*time.Second {
		t.Errorf("Expected ping interval 30s, got %v", s.PingInterval)
	}
	if s.DisconnectGrace != 10*time.Second {
		t.Errorf("Expected disconnect grace 10s, got %v", s.DisconnectGrace)
	}
	if s.AgentBinary != "claude" {
		t.Errorf("Expected agent binary 'claude', got %q", s.AgentBinary)
	}
	if s.CompressionLevel != 3 {
		t.Errorf("Expected compression level 3, got %d", s.CompressionLevel)
	}
}

func TestLoadSettingsFile(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "config-test-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "config.yaml")
	content := "port: 9100\nping_interval: 5s\nagent_binary: claude-next\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{Settings: defaultSettings()}
	if err := cfg.loadSettingsFile(path); err != nil {
		t.Fatalf("loadSettingsFile failed: %v", err)
	}

	if cfg.Settings.Port != 9100 {
		t.Errorf("Expected port 9100, got %d", cfg.Settings.Port)
	}
	if cfg.Settings.PingInterval != 5*time.Second {
		t.Errorf("Expected ping interval 5s, got %v", cfg.Settings.PingInterval)
	}
	if cfg.Settings.AgentBinary != "claude-next" {
		t.Errorf("Expected agent binary 'claude-next', got %q", cfg.Settings.AgentBinary)
	}

	// Unset fields keep their defaults
	if cfg.Settings.DisconnectGrace != 10*time.Second {
		t.Errorf("Expected default disconnect grace, got %v", cfg.Settings.DisconnectGrace)
	}
}

func TestLoadSettingsFileMissing(t *testing.T) {
	cfg := &Config{Settings: defaultSettings()}
	if err := cfg.loadSettingsFile("/non/existent/config.yaml"); err != nil {
		t.Errorf("Expected missing config file to be ignored, got %v", err)
	}
}

func TestStateDir(t *testing.T) {
	cfg := &Config{}
	got := cfg.StateDir("/home/user/project")
	want := filepath.Join("/home/user/project", StateDirName)
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}
