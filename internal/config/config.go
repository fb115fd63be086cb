// Package config provides configuration management for the crawler and migrator.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"steamscraper/internal/models"
	"steamscraper/internal/validator"
)

// Configuration validation errors.
var (
	ErrConfigNotFound           = errors.New("configuration file not found")
	ErrMissingBaseURL           = errors.New("crawler.base_url is required")
	ErrInvalidDelay             = errors.New("crawler.delay_ms must be non-negative")
	ErrInvalidSchemaVersion     = errors.New("crawler.schema_version must be 1.0, 2.0 or 3.0")
	ErrInvalidProgressEvery     = errors.New("progress_every must be at least 1")
	ErrInvalidMaxAttempts       = errors.New("retry.max_attempts must be at least 1")
	ErrInvalidInitialDelay      = errors.New("retry.initial_delay_ms must be non-negative")
	ErrInvalidBackoffMultiplier = errors.New("retry.backoff_multiplier must be >= 1.0")
	ErrInvalidTimeout           = errors.New("retry.timeout_sec must be at least 1")
	ErrMissingGamesDir          = errors.New("storage.games_dir is required")
	ErrInvalidWorkers           = errors.New("migration.workers must be at least 1")
	ErrMissingJournalPath       = errors.New("journal.path is required when the journal is enabled")
	ErrInvalidLogLevel          = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat         = errors.New("logging.format must be 'console' or 'json'")
)

// Config represents the complete configuration.
type Config struct {
	Crawler    CrawlerConfig    `yaml:"crawler"`
	Storage    StorageConfig    `yaml:"storage"`
	Validation ValidationConfig `yaml:"validation"`
	Migration  MigrationConfig  `yaml:"migration"`
	Journal    JournalConfig    `yaml:"journal"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// CrawlerConfig contains fetch and crawl settings.
type CrawlerConfig struct {
	BaseURL             string            `yaml:"base_url"`
	UserAgent           string            `yaml:"user_agent"`
	Headers             map[string]string `yaml:"headers"`
	DelayMs             *int              `yaml:"delay_ms"`
	SchemaVersion       string            `yaml:"schema_version"`
	ProgressEvery       int               `yaml:"progress_every"`
	DisableAgeGateRetry bool              `yaml:"disable_age_gate_retry"`
	Retry               RetryPolicy       `yaml:"retry"`
	AgeGate             AgeGateConfig     `yaml:"age_gate"`
}

// RetryPolicy defines retry behavior.
type RetryPolicy struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	InitialDelayMs    int     `yaml:"initial_delay_ms"`
	MaxDelayMs        int     `yaml:"max_delay_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	TimeoutSec        int     `yaml:"timeout_sec"`
}

// AgeGateConfig holds the cookie values presented on an age-verified retry.
type AgeGateConfig struct {
	Birthtime       string `yaml:"birthtime"`
	LastAgeCheckAge string `yaml:"lastagecheckage"`
}

// StorageConfig defines where records are written.
type StorageConfig struct {
	GamesDir string `yaml:"games_dir"`
	Compact  bool   `yaml:"compact"`
}

// ValidationConfig selects the validity policy per schema version. Explicit
// required_fields win over a named preset.
type ValidationConfig struct {
	Policies       map[string]string   `yaml:"policies"`
	RequiredFields map[string][]string `yaml:"required_fields"`
}

// MigrationConfig defines batch migration behavior.
type MigrationConfig struct {
	Workers        int    `yaml:"workers"`
	ProgressEvery  int    `yaml:"progress_every"`
	SkipHTMLVerify bool   `yaml:"skip_html_verify"`
	ReportPath     string `yaml:"report_path"`
}

// JournalConfig enables the SQLite run journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Crawler: CrawlerConfig{
			BaseURL:       "https://store.steampowered.com",
			DelayMs:       intPtr(1000),
			SchemaVersion: string(models.SchemaV3),
			ProgressEvery: 50,
			Retry: RetryPolicy{
				MaxAttempts:       3,
				InitialDelayMs:    500,
				MaxDelayMs:        10000,
				BackoffMultiplier: 2.0,
				TimeoutSec:        30,
			},
			AgeGate: AgeGateConfig{
				Birthtime:       "568022401",
				LastAgeCheckAge: "1-0-1988",
			},
		},
		Storage: StorageConfig{
			GamesDir: "data/games",
		},
		Validation: ValidationConfig{
			Policies: map[string]string{
				string(models.SchemaV1): validator.PolicyStrict,
				string(models.SchemaV2): validator.PolicyRelaxed,
				string(models.SchemaV3): validator.PolicyRelaxed,
			},
		},
		Migration: MigrationConfig{
			Workers:       1,
			ProgressEvery: 50,
		},
		Journal: JournalConfig{
			Path: "data/journal.db",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// LoadConfig reads path, merges <name>.local.<ext> over it when present,
// fills unset values from Default and validates the result. An empty path
// yields the validated defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		var err error

		cfg, err = readLayered(path)
		if err != nil {
			return nil, err
		}
	}

	if err := mergo.Merge(cfg, Default(), mergo.WithTransformers(explicitValues{})); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func readLayered(path string) (*Config, error) {
	cfg := &Config{}
	found := false

	if err := readYAML(path, cfg, &found); err != nil {
		return nil, err
	}

	ext := filepath.Ext(path)
	localPath := strings.TrimSuffix(path, ext) + ".local" + ext

	override := &Config{}
	localFound := false

	if err := readYAML(localPath, override, &localFound); err != nil {
		return nil, err
	}

	if localFound {
		if err := mergo.Merge(cfg, override, mergo.WithOverride, mergo.WithTransformers(explicitValues{override: true})); err != nil {
			return nil, fmt.Errorf("failed to merge %s: %w", localPath, err)
		}

		slog.Debug("merged local config overrides", "local", localPath)
	}

	if !found && !localFound {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	}

	return cfg, nil
}

// explicitValues makes mergo treat a set *int as present even when it points
// at zero, so "delay_ms: 0" is not replaced by the default. With override, a
// set source value wins.
type explicitValues struct {
	override bool
}

func (e explicitValues) Transformer(typ reflect.Type) func(dst, src reflect.Value) error {
	if typ != reflect.TypeOf((*int)(nil)) {
		return nil
	}

	return func(dst, src reflect.Value) error {
		if e.override && !src.IsNil() && dst.CanSet() {
			dst.Set(src)
		}

		return nil
	}
}

func intPtr(v int) *int {
	return &v
}

func readYAML(path string, out *Config, found *bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("failed to read config file: %w", err)
	}

	*found = true

	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse YAML %s: %w", path, err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Crawler.BaseURL == "" {
		return ErrMissingBaseURL
	}

	if c.Crawler.DelayMs != nil && *c.Crawler.DelayMs < 0 {
		return ErrInvalidDelay
	}

	if _, err := models.ParseSchemaVersion(c.Crawler.SchemaVersion); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSchemaVersion, err)
	}

	if c.Crawler.ProgressEvery < 1 {
		return fmt.Errorf("crawler: %w", ErrInvalidProgressEvery)
	}

	if c.Crawler.Retry.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}

	if c.Crawler.Retry.InitialDelayMs < 0 {
		return ErrInvalidInitialDelay
	}

	if c.Crawler.Retry.BackoffMultiplier < 1.0 {
		return ErrInvalidBackoffMultiplier
	}

	if c.Crawler.Retry.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}

	if c.Storage.GamesDir == "" {
		return ErrMissingGamesDir
	}

	if _, err := c.ValidityPolicies(); err != nil {
		return err
	}

	if c.Migration.Workers < 1 {
		return ErrInvalidWorkers
	}

	if c.Migration.ProgressEvery < 1 {
		return fmt.Errorf("migration: %w", ErrInvalidProgressEvery)
	}

	if c.Journal.Enabled && c.Journal.Path == "" {
		return ErrMissingJournalPath
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return ErrInvalidLogFormat
	}

	return nil
}

// ValidityPolicies resolves the validation section into one policy per schema version.
func (c *Config) ValidityPolicies() (map[models.SchemaVersion]validator.Policy, error) {
	policies := make(map[models.SchemaVersion]validator.Policy)

	for raw, name := range c.Validation.Policies {
		version, err := models.ParseSchemaVersion(raw)
		if err != nil {
			return nil, fmt.Errorf("validation.policies: %w", err)
		}

		policy, err := validator.PolicyByName(name)
		if err != nil {
			return nil, fmt.Errorf("validation.policies[%s]: %w", raw, err)
		}

		policies[version] = policy
	}

	for raw, fields := range c.Validation.RequiredFields {
		version, err := models.ParseSchemaVersion(raw)
		if err != nil {
			return nil, fmt.Errorf("validation.required_fields: %w", err)
		}

		policy, err := validator.NewPolicy("custom-"+string(version), fields)
		if err != nil {
			return nil, fmt.Errorf("validation.required_fields[%s]: %w", raw, err)
		}

		policies[version] = policy
	}

	return policies, nil
}

// Schema returns the schema version new crawls write.
func (c *CrawlerConfig) Schema() models.SchemaVersion {
	v, err := models.ParseSchemaVersion(c.SchemaVersion)
	if err != nil {
		return models.Latest()
	}

	return v
}

// Delay returns the politeness delay between fetches.
func (c *CrawlerConfig) Delay() time.Duration {
	if c.DelayMs == nil {
		return 0
	}

	return time.Duration(*c.DelayMs) * time.Millisecond
}

// GetRetryDelay calculates exponential backoff delay for attempt number.
func (rp *RetryPolicy) GetRetryDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delayMs := float64(rp.InitialDelayMs)
	for i := 1; i < attempt; i++ {
		delayMs *= rp.BackoffMultiplier
	}

	if int(delayMs) > rp.MaxDelayMs {
		delayMs = float64(rp.MaxDelayMs)
	}

	return time.Duration(int(delayMs)) * time.Millisecond
}

// GetTimeout returns the timeout duration.
func (rp *RetryPolicy) GetTimeout() time.Duration {
	return time.Duration(rp.TimeoutSec) * time.Second
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{BaseURL: %s, Schema: %s, GamesDir: %s, Workers: %d}",
		c.Crawler.BaseURL,
		c.Crawler.SchemaVersion,
		c.Storage.GamesDir,
		c.Migration.Workers,
	)
}
