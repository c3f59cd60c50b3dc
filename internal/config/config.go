// internal/config/config.go
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// StateDirName is the project-scoped directory holding checkpoint state
const StateDirName = ".pageforge"

// Settings holds tunable server settings loaded from config.yaml
type Settings struct {
	Port             int
	PingInterval     time.Duration
	DisconnectGrace  time.Duration
	AgentBinary      string
	CompressionLevel int
}

// fileSettings is the yaml shape of config.yaml; durations are strings
// like "30s" so they can be parsed with time.ParseDuration
type fileSettings struct {
	Port             int    `yaml:"port"`
	PingInterval     string `yaml:"ping_interval"`
	DisconnectGrace  string `yaml:"disconnect_grace"`
	AgentBinary      string `yaml:"agent_binary"`
	CompressionLevel int    `yaml:"compression_level"`
}

// Config holds all application configuration paths and settings
type Config struct {
	HomeDir      string
	PageforgeDir string
	LogDir       string
	DatabasePath string
	Settings     Settings
}

// Load creates a Config instance with resolved paths and settings
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	pageforgeDir := filepath.Join(home, ".pageforge")
	logDir := filepath.Join(pageforgeDir, "logs")

	// Ensure directories exist
	for _, dir := range []string{pageforgeDir, logDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		HomeDir:      home,
		PageforgeDir: pageforgeDir,
		LogDir:       logDir,
		DatabasePath: filepath.Join(pageforgeDir, "pageforge.db"),
		Settings:     defaultSettings(),
	}

	if err := cfg.loadSettingsFile(filepath.Join(pageforgeDir, "config.yaml")); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaultSettings() Settings {
	return Settings{
		Port:             0, // 0 = pick an ephemeral port
		PingInterval:     30 * time.Second,
		DisconnectGrace:  10 * time.Second,
		AgentBinary:      "claude",
		CompressionLevel: 3,
	}
}

// loadSettingsFile overlays settings from a yaml file if it exists.
// A missing file is not an error; zero values keep their defaults.
func (c *Config) loadSettingsFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var s fileSettings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return err
	}

	if s.Port != 0 {
		c.Settings.Port = s.Port
	}
	if s.PingInterval != "" {
		d, err := time.ParseDuration(s.PingInterval)
		if err != nil {
			return err
		}
		c.Settings.PingInterval = d
	}
	if s.DisconnectGrace != "" {
		d, err := time.ParseDuration(s.DisconnectGrace)
		if err != nil {
			return err
		}
		c.Settings.DisconnectGrace = d
	}
	if s.AgentBinary != "" {
		c.Settings.AgentBinary = s.AgentBinary
	}
	if s.CompressionLevel != 0 {
		c.Settings.CompressionLevel = s.CompressionLevel
	}

	return nil
}

// StateDir returns the path to a project's checkpoint state directory
func (c *Config) StateDir(projectPath string) string {
	return filepath.Join(projectPath, StateDirName)
}
