// Package config loads citesync settings from a YAML file, a dotenv file
// and the process environment, in increasing order of precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/roach88/citesync/internal/dialog"
)

// Environment variables read by Load.
const (
	EnvDatabase     = "CITESYNC_DB"
	EnvStylesDir    = "CITESYNC_STYLES_DIR"
	EnvLogLevel     = "CITESYNC_LOG_LEVEL"
	EnvSessionIdle  = "CITESYNC_SESSION_IDLE"
	EnvDefaultStyle = "CITESYNC_DEFAULT_STYLE"
)

// Config is the resolved configuration.
type Config struct {
	// Database is the SQLite file holding items, installed styles and the
	// command journal.
	Database string `yaml:"database"`

	// StylesDir holds extra .cue style files loaded at startup.
	StylesDir string `yaml:"styles_dir"`

	// TrustedPrefixes are style origins installed without asking. Empty
	// means the built-in list.
	TrustedPrefixes []string `yaml:"trusted_prefixes"`

	// SessionIdle discards document sessions unused for this long.
	SessionIdle time.Duration `yaml:"session_idle"`

	LogLevel string `yaml:"log_level"`

	// CitationDialog is quickFormat or selectItemsDialog.
	CitationDialog string `yaml:"citation_dialog"`

	// DefaultStyle is preselected for documents without data.
	DefaultStyle string `yaml:"default_style"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Database:       "citesync.db",
		SessionIdle:    30 * time.Minute,
		LogLevel:       "info",
		CitationDialog: dialog.QuickFormat,
		DefaultStyle:   "http://www.zotero.org/styles/cell",
	}
}

// Load reads path (optional, "" skips it), then envFile (optional), then
// the environment. Variables already set in the environment win over the
// dotenv file.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	env := map[string]string{}
	if envFile != "" {
		vars, err := godotenv.Read(envFile)
		if err != nil {
			return nil, fmt.Errorf("read env file: %w", err)
		}
		env = vars
	}
	for _, key := range []string{EnvDatabase, EnvStylesDir, EnvLogLevel, EnvSessionIdle, EnvDefaultStyle} {
		if v, ok := os.LookupEnv(key); ok {
			env[key] = v
		}
	}
	if err := cfg.applyEnv(env); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv(env map[string]string) error {
	if v := env[EnvDatabase]; v != "" {
		c.Database = v
	}
	if v := env[EnvStylesDir]; v != "" {
		c.StylesDir = v
	}
	if v := env[EnvLogLevel]; v != "" {
		c.LogLevel = v
	}
	if v := env[EnvDefaultStyle]; v != "" {
		c.DefaultStyle = v
	}
	if v := env[EnvSessionIdle]; v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSessionIdle, err)
		}
		c.SessionIdle = d
	}
	return nil
}

// Validate checks values that have a fixed set of choices.
func (c *Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("config: database path is empty")
	}
	if c.SessionIdle < 0 {
		return fmt.Errorf("config: session_idle must not be negative")
	}
	switch c.CitationDialog {
	case dialog.QuickFormat, dialog.SelectItems:
	default:
		return fmt.Errorf("config: unknown citation_dialog %q", c.CitationDialog)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level returns LogLevel as a slog level.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: log_level: %w", err)
	}
	return l, nil
}
