// Package config loads chronocadence settings from defaults, an optional YAML
// file, a .env file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/joshsymonds/chronocadence/internal/timestamp"
)

const (
	InsightsRules = "rules"
	InsightsLLM   = "llm"

	AuthToken    = "token"
	AuthGmailctl = "gmailctl"

	maxPageSize = 500
)

type Config struct {
	Timezone   string          `yaml:"timezone"`
	MaxRecords int             `yaml:"max_records"`
	PageSize   int             `yaml:"page_size"`
	RPS        int             `yaml:"rps"`
	Insights   string          `yaml:"insights"`
	LogLevel   string          `yaml:"log_level"`
	Gmail      GmailConfig     `yaml:"gmail"`
	Anthropic  AnthropicConfig `yaml:"anthropic"`
	Mongo      MongoConfig     `yaml:"mongo"`
}

// GmailConfig selects the credential source. ConfigDir defaults per auth mode.
type GmailConfig struct {
	Auth      string `yaml:"auth"`
	ConfigDir string `yaml:"config_dir"`
}

type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// MongoConfig enables the snapshot archive when URI is set.
type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// Enabled reports whether snapshots should be archived.
func (c MongoConfig) Enabled() bool {
	return strings.TrimSpace(c.URI) != ""
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Timezone:   "Asia/Tokyo",
		MaxRecords: 500,
		PageSize:   100,
		RPS:        4,
		Insights:   InsightsRules,
		LogLevel:   "info",
		Gmail:      GmailConfig{Auth: AuthToken},
		Anthropic:  AnthropicConfig{Model: "claude-sonnet-4-20250514"},
		Mongo:      MongoConfig{Database: "chronocadence"},
	}
}

// Load builds the configuration. path may be empty; a missing .env file is fine.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	if cfg.Gmail.ConfigDir == "" {
		cfg.Gmail.ConfigDir = defaultConfigDir(cfg.Gmail.Auth)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Timezone, "CADENCE_TIMEZONE")
	setInt(&cfg.MaxRecords, "CADENCE_MAX_RECORDS")
	setInt(&cfg.PageSize, "CADENCE_PAGE_SIZE")
	setInt(&cfg.RPS, "CADENCE_RPS")
	setString(&cfg.Insights, "CADENCE_INSIGHTS")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.Gmail.Auth, "CADENCE_AUTH")
	setString(&cfg.Gmail.ConfigDir, "CADENCE_CONFIG_DIR")
	if cfg.Gmail.Auth == AuthGmailctl {
		setString(&cfg.Gmail.ConfigDir, "GMAILCTL_DIR")
	}
	setString(&cfg.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	setString(&cfg.Anthropic.Model, "CADENCE_MODEL")
	setString(&cfg.Mongo.URI, "MONGODB_URI")
	setString(&cfg.Mongo.Database, "MONGODB_DATABASE")
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// setInt ignores values that do not parse, keeping the earlier setting.
func setInt(dst *int, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

func defaultConfigDir(auth string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	if auth == AuthGmailctl {
		return filepath.Join(home, ".gmailctl")
	}
	return filepath.Join(home, ".chronocadence")
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.MaxRecords <= 0 {
		errs = append(errs, fmt.Errorf("max_records must be positive, got %d", c.MaxRecords))
	}
	if c.PageSize <= 0 || c.PageSize > maxPageSize {
		errs = append(errs, fmt.Errorf("page_size must be within 1..%d, got %d", maxPageSize, c.PageSize))
	}
	if c.RPS <= 0 {
		errs = append(errs, fmt.Errorf("rps must be positive, got %d", c.RPS))
	}
	if _, err := timestamp.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, err)
	}
	switch c.Insights {
	case InsightsRules:
	case InsightsLLM:
		if c.Anthropic.APIKey == "" {
			errs = append(errs, errors.New("llm insights require ANTHROPIC_API_KEY"))
		}
	default:
		errs = append(errs, fmt.Errorf("insights must be %q or %q, got %q", InsightsRules, InsightsLLM, c.Insights))
	}
	switch c.Gmail.Auth {
	case AuthToken, AuthGmailctl:
	default:
		errs = append(errs, fmt.Errorf("gmail auth must be %q or %q, got %q", AuthToken, AuthGmailctl, c.Gmail.Auth))
	}
	return errors.Join(errs...)
}
