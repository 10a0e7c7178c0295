// ABOUTME: Configuration for eureka backends, AI analysis and PDF export
// ABOUTME: Handles XDG config paths, .env loading and environment overrides

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendCharm = "charm"
	BackendLocal = "local"
)

// Config holds all persisted settings.
type Config struct {
	// Backend selects the remote store: "charm" (default) or "local" sqlite.
	Backend string `json:"backend"`

	// UserID owns notes on the local backend. Charm uses the account ID.
	UserID string `json:"user_id,omitempty"`

	// CharmHost is the charm server URL (default: charm.2389.dev)
	CharmHost string `json:"charm_host,omitempty"`

	// AutoSync enables automatic sync after writes (default: true)
	AutoSync bool `json:"auto_sync"`

	// StaleThreshold forces a pull from the charm server when the last sync is older.
	StaleThreshold Duration `json:"stale_threshold"`

	// PollInterval is how often subscriptions refresh their snapshot.
	PollInterval Duration `json:"poll_interval"`

	// RemoteTimeout bounds each create/update/delete call.
	RemoteTimeout Duration `json:"remote_timeout"`

	// LocalDB is the sqlite path for the local backend.
	LocalDB string `json:"local_db,omitempty"`

	AI     AIConfig     `json:"ai"`
	Export ExportConfig `json:"export"`
}

// AIConfig configures the analysis client.
type AIConfig struct {
	Endpoint string   `json:"endpoint"`
	Models   []string `json:"models"`
	Timeout  Duration `json:"timeout"`

	// APIKey only comes from the environment.
	APIKey string `json:"-"`
}

// ExportConfig configures PDF export.
type ExportConfig struct {
	OutputDir        string   `json:"output_dir,omitempty"`
	FontFile         string   `json:"font_file,omitempty"`
	ConfirmThreshold int      `json:"confirm_threshold"`
	ImageTimeout     Duration `json:"image_timeout"`
	ImageConcurrency int      `json:"image_concurrency"`
	MaxImageWidth    int      `json:"max_image_width"`
	JPEGQuality      int      `json:"jpeg_quality"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Backend:        BackendCharm,
		CharmHost:      "charm.2389.dev",
		AutoSync:       true,
		StaleThreshold: Duration(5 * time.Minute),
		PollInterval:   Duration(30 * time.Second),
		RemoteTimeout:  Duration(15 * time.Second),
		AI: AIConfig{
			Endpoint: "https://generativelanguage.googleapis.com/v1beta",
			Models:   []string{"gemini-2.5-flash", "gemini-2.0-flash"},
			Timeout:  Duration(60 * time.Second),
		},
		Export: ExportConfig{
			ConfirmThreshold: 20,
			ImageTimeout:     Duration(7 * time.Second),
			ImageConcurrency: 4,
			MaxImageWidth:    800,
			JPEGQuality:      80,
		},
	}
}

// ConfigDir returns the configuration directory path.
func ConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "eureka")
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// DataDir returns the data directory used for the local database.
func DataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "eureka")
}

// LoadConfig loads configuration from disk, returns defaults if not found.
// Environment overrides are applied on top.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, err
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", ConfigPath(), err)
		}
	}

	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

// LoadDotEnv loads a .env file from the working directory if one exists.
func LoadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	return godotenv.Load()
}

// ApplyEnv overrides settings from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("EUREKA_BACKEND"); v != "" {
		c.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("EUREKA_DB"); v != "" {
		c.LocalDB = v
	}
	if v := os.Getenv("EUREKA_USER"); v != "" {
		c.UserID = v
	}
	if v := os.Getenv("EUREKA_OUTPUT_DIR"); v != "" {
		c.Export.OutputDir = v
	}
	for _, key := range []string{"EUREKA_API_KEY", "GEMINI_API_KEY"} {
		if v := os.Getenv(key); v != "" {
			c.AI.APIKey = v
			break
		}
	}
}

// Validate rejects settings the rest of the program cannot work with.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendCharm, BackendLocal:
	default:
		return fmt.Errorf("unknown backend %q (want %q or %q)", c.Backend, BackendCharm, BackendLocal)
	}
	if c.Export.MaxImageWidth <= 0 {
		return fmt.Errorf("export.max_image_width must be positive")
	}
	if c.Export.JPEGQuality < 1 || c.Export.JPEGQuality > 100 {
		return fmt.Errorf("export.jpeg_quality must be between 1 and 100")
	}
	return nil
}

// LocalDBPath returns the configured sqlite path or the XDG default.
func (c *Config) LocalDBPath() string {
	if c.LocalDB != "" {
		return c.LocalDB
	}
	return filepath.Join(DataDir(), "eureka.db")
}

// SaveConfig writes configuration to disk.
func SaveConfig(cfg *Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(ConfigPath(), data, 0600)
}

// ConfigExists returns true if a config file exists.
func ConfigExists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}

// Duration is a time.Duration that reads and writes as "30s" in JSON.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("duration %q: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("duration: %w", err)
	}
	*d = Duration(time.Duration(n) * time.Second)
	return nil
}
