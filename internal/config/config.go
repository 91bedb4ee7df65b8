// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for parley.
//
// Configuration is read from ~/.parley/config.toml (or an explicit path),
// layered over built-in defaults, then environment overrides, then validated.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/parley/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete parley configuration.
type Config struct {
	Backend BackendConfig `toml:"backend"`
	Storage StorageConfig `toml:"storage"`
	Chat    ChatConfig    `toml:"chat"`
	Export  ExportConfig  `toml:"export"`
	Log     LogConfig     `toml:"log"`
}

// BackendConfig holds settings for the chat backend.
type BackendConfig struct {
	// URL is the base address; requests go to {URL}/chat.
	URL string `toml:"url"`

	// TimeoutSecs bounds one request at the transport level.
	TimeoutSecs int `toml:"timeout_secs"`

	// RequestsPerMinute throttles the client; 0 disables throttling.
	RequestsPerMinute int `toml:"requests_per_minute"`
}

// Timeout returns TimeoutSecs as a duration.
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSecs) * time.Second
}

// StorageConfig selects the persistence driver.
type StorageConfig struct {
	// Driver is file, sqlite or memory.
	Driver string `toml:"driver"`

	// Path is the store directory (file) or database file (sqlite).
	// Empty selects the driver's default under ~/.parley.
	Path string `toml:"path"`
}

// ChatConfig holds the selectable models and roles and the display locale.
type ChatConfig struct {
	// Models is the closed set of backend models; the first is the default.
	Models []string `toml:"models"`

	// Roles is the closed set of persona roles; must include "default".
	Roles []string `toml:"roles"`

	// Locale is fr or en.
	Locale string `toml:"locale"`
}

// ExportConfig configures the download action.
type ExportConfig struct {
	Dir string `toml:"dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `toml:"level"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with built-in defaults.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			URL:               "http://localhost:8000",
			TimeoutSecs:       120,
			RequestsPerMinute: 0,
		},
		Storage: StorageConfig{
			Driver: "file",
		},
		Chat: ChatConfig{
			Models: []string{"llama3-8b-8192", "mixtral-8x7b-32768", "gemma-7b-it"},
			Roles:  []string{"default", "teacher", "analyst", "concise"},
			Locale: "fr",
		},
		Export: ExportConfig{
			Dir: ".",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// PATH FUNCTIONS
// =============================================================================

// ConfigDir returns the parley configuration directory (~/.parley).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".parley"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ensureSecurePermissions checks and fixes permissions on config files.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	mode := info.Mode().Perm()
	if mode&0077 != 0 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the default path.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		return cfg, cfg.Validate()
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from path. A missing file yields the
// defaults. Environment overrides are applied before validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		// Non-fatal; the file still loaded.
		_ = ensureSecurePermissions(path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config: %w", err)
	}

	fillDefaults(cfg)
	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg. Unknown keys are rejected.
func LoadTOML(cfg *Config, path string) error {
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Backend.URL == "" {
		cfg.Backend.URL = defaults.Backend.URL
	}
	if cfg.Backend.TimeoutSecs == 0 {
		cfg.Backend.TimeoutSecs = defaults.Backend.TimeoutSecs
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = defaults.Storage.Driver
	}
	if len(cfg.Chat.Models) == 0 {
		cfg.Chat.Models = defaults.Chat.Models
	}
	if len(cfg.Chat.Roles) == 0 {
		cfg.Chat.Roles = defaults.Chat.Roles
	}
	if cfg.Chat.Locale == "" {
		cfg.Chat.Locale = defaults.Chat.Locale
	}
	if cfg.Export.Dir == "" {
		cfg.Export.Dir = defaults.Export.Dir
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer

	fmt.Fprintln(&buf, "# parley configuration file")
	fmt.Fprintln(&buf, "# Generated by parley - edit with care")
	fmt.Fprintln(&buf, "")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// String renders the configuration as TOML.
func (c *Config) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Sprintf("<error encoding config: %v>", err)
	}
	return buf.String()
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	// Backend
	if u, err := url.Parse(c.Backend.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "backend.url",
			Message: fmt.Sprintf("must be an absolute http(s) URL, got %q", c.Backend.URL),
		})
	}
	if c.Backend.TimeoutSecs < 1 || c.Backend.TimeoutSecs > 3600 {
		errs = append(errs, ValidationError{
			Field:   "backend.timeout_secs",
			Message: "must be between 1 and 3600",
		})
	}
	if c.Backend.RequestsPerMinute < 0 {
		errs = append(errs, ValidationError{
			Field:   "backend.requests_per_minute",
			Message: "must be non-negative",
		})
	}

	// Storage
	switch strings.ToLower(c.Storage.Driver) {
	case "file", "sqlite", "memory":
	default:
		errs = append(errs, ValidationError{
			Field:   "storage.driver",
			Message: fmt.Sprintf("must be file, sqlite, or memory, got %s", c.Storage.Driver),
		})
	}

	// Chat
	errs = append(errs, validateList("chat.models", c.Chat.Models)...)
	errs = append(errs, validateList("chat.roles", c.Chat.Roles)...)
	if !contains(c.Chat.Roles, "default") {
		errs = append(errs, ValidationError{
			Field:   "chat.roles",
			Message: `must include "default"`,
		})
	}
	locale := strings.ToLower(c.Chat.Locale)
	if !strings.HasPrefix(locale, "fr") && !strings.HasPrefix(locale, "en") {
		errs = append(errs, ValidationError{
			Field:   "chat.locale",
			Message: fmt.Sprintf("must be fr or en, got %s", c.Chat.Locale),
		})
	}

	// Log
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("must be debug, info, warn, or error, got %s", c.Log.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateList(field string, values []string) []ValidationError {
	var errs []ValidationError
	if len(values) == 0 {
		return append(errs, ValidationError{Field: field, Message: "must not be empty"})
	}
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			errs = append(errs, ValidationError{Field: field, Message: "entries must not be blank"})
			continue
		}
		if seen[v] {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("duplicate entry %q", v)})
		}
		seen[v] = true
	}
	return errs
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies PARLEY_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	// PARLEY_BACKEND_URL
	if v := os.Getenv("PARLEY_BACKEND_URL"); v != "" {
		c.Backend.URL = v
	}

	// PARLEY_STORAGE_DRIVER
	if v := os.Getenv("PARLEY_STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}

	// PARLEY_STORAGE_PATH
	if v := os.Getenv("PARLEY_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}

	// PARLEY_LOCALE
	if v := os.Getenv("PARLEY_LOCALE"); v != "" {
		c.Chat.Locale = v
	}

	// PARLEY_LOG_LEVEL
	if v := os.Getenv("PARLEY_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}
