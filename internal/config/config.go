// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/MarceTxt/gwen-ai-chat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete gwen configuration.
type Config struct {
	Completion CompletionConfig `toml:"completion"`
	Store      StoreConfig      `toml:"store"`
	Chat       ChatConfig       `toml:"chat"`
	UI         UIConfig         `toml:"ui"`
	Log        LogConfig        `toml:"log"`
}

// CompletionConfig selects the language-model provider.
type CompletionConfig struct {
	// Provider is "gemini" or "openai" (any OpenAI-compatible endpoint)
	Provider string `toml:"provider"`
	// Model is the provider model name, e.g. "gemini-2.5-flash"
	Model string `toml:"model"`
	// APIKey is the completion-service credential. Required at start.
	APIKey string `toml:"api_key"`
	// BaseURL overrides the provider endpoint (empty = provider default)
	BaseURL string `toml:"base_url"`
	// TimeoutSecs bounds a single completion call
	TimeoutSecs int `toml:"timeout_secs"`
	// RequestsPerMinute throttles completion calls (0 = unlimited)
	RequestsPerMinute int `toml:"requests_per_minute"`
}

// StoreConfig selects the conversation store.
type StoreConfig struct {
	// Driver is "sqlite" or "mongo"
	Driver string `toml:"driver"`
	// Path is the SQLite database file
	Path string `toml:"path"`
	// MongoURI is the MongoDB connection string (driver = "mongo")
	MongoURI string `toml:"mongo_uri"`
	// MongoDatabase is the MongoDB database name
	MongoDatabase string `toml:"mongo_database"`
	// Watch publishes changes made by other processes to live subscriptions
	Watch bool `toml:"watch"`
}

// ChatConfig holds conversation and dispatch settings.
type ChatConfig struct {
	// DefaultName is given to new conversations
	DefaultName string `toml:"default_name"`
	// Persona is the preamble of every prompt
	Persona string `toml:"persona"`
	// AssistantName signs completion messages
	AssistantName string `toml:"assistant_name"`
	// HistoryWindow is how many recent messages go into a prompt
	HistoryWindow int `toml:"history_window"`
	// AutoNameLength bounds names derived from a first message
	AutoNameLength int `toml:"auto_name_length"`
	// ApologyText is shown when a completion fails
	ApologyText string `toml:"apology_text"`
}

// UIConfig holds terminal UI settings.
type UIConfig struct {
	// Markdown renders assistant replies through glamour
	Markdown bool `toml:"markdown"`
	// GlamourStyle is a glamour style name ("dark", "light", "notty", "auto")
	GlamourStyle string `toml:"glamour_style"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is a zerolog level name
	Level string `toml:"level"`
	// File receives log output; the terminal UI owns stdout
	File string `toml:"file"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Completion: CompletionConfig{
			Provider:          ProviderGemini,
			Model:             "gemini-2.5-flash",
			TimeoutSecs:       60,
			RequestsPerMinute: 30,
		},
		Store: StoreConfig{
			Driver:        DriverSQLite,
			Path:          defaultPath("gwen.db"),
			MongoDatabase: "gwen",
			Watch:         true,
		},
		Chat: ChatConfig{
			DefaultName:    "Untitled Conversation",
			Persona:        "You are Gwen, a friendly and helpful assistant.",
			AssistantName:  "Gwen AI",
			HistoryWindow:  5,
			AutoNameLength: 30,
			ApologyText:    "Sorry, I'm having technical problems. Please try again in a few moments.",
		},
		UI: UIConfig{
			Markdown:     true,
			GlamourStyle: "dark",
		},
		Log: LogConfig{
			Level: "info",
			File:  defaultPath("gwen.log"),
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the gwen configuration directory. GWEN_HOME overrides
// the default ~/.gwen.
func ConfigDir() (string, error) {
	if dir := os.Getenv("GWEN_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "could not determine home directory")
	}
	return filepath.Join(home, ".gwen"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

func defaultPath(name string) string {
	dir, err := ConfigDir()
	if err != nil {
		return name
	}
	return filepath.Join(dir, name)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads the default config file if it exists, then applies environment
// overrides and validates the result.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from path. A missing file yields the
// defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, statErr := os.Stat(path); statErr == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, errors.Wrapf(err, "failed to load config from %s", path)
		}
	} else if !os.IsNotExist(statErr) {
		return nil, errors.Wrapf(statErr, "failed to stat %s", path)
	}

	cfg.ApplyEnvOverrides()
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

// LoadTOML decodes the TOML file at path over cfg.
func LoadTOML(cfg *Config, path string) error {
	// Config holds the API key
	if err := ensureSecurePermissions(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("could not ensure secure permissions")
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return errors.Wrap(err, "failed to decode TOML file")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		log.Warn().Strs("keys", keys).Str("path", path).Msg("unknown config keys ignored")
	}
	return nil
}

// ensureSecurePermissions narrows config files to 0600.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return errors.Wrapf(err, "failed to fix insecure permissions (was %o)", mode)
		}
	}
	return nil
}

// fillDefaults fills in zero values a partial file left behind.
func (c *Config) fillDefaults() {
	d := Default()

	if c.Completion.Provider == "" {
		c.Completion.Provider = d.Completion.Provider
	}
	if c.Completion.Model == "" {
		c.Completion.Model = d.Completion.Model
	}
	if c.Completion.TimeoutSecs == 0 {
		c.Completion.TimeoutSecs = d.Completion.TimeoutSecs
	}

	if c.Store.Driver == "" {
		c.Store.Driver = d.Store.Driver
	}
	if c.Store.Path == "" {
		c.Store.Path = d.Store.Path
	}
	if c.Store.MongoDatabase == "" {
		c.Store.MongoDatabase = d.Store.MongoDatabase
	}

	if c.Chat.DefaultName == "" {
		c.Chat.DefaultName = d.Chat.DefaultName
	}
	if c.Chat.Persona == "" {
		c.Chat.Persona = d.Chat.Persona
	}
	if c.Chat.AssistantName == "" {
		c.Chat.AssistantName = d.Chat.AssistantName
	}
	if c.Chat.HistoryWindow == 0 {
		c.Chat.HistoryWindow = d.Chat.HistoryWindow
	}
	if c.Chat.AutoNameLength == 0 {
		c.Chat.AutoNameLength = d.Chat.AutoNameLength
	}
	if c.Chat.ApologyText == "" {
		c.Chat.ApologyText = d.Chat.ApologyText
	}

	if c.UI.GlamourStyle == "" {
		c.UI.GlamourStyle = d.UI.GlamourStyle
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg to the default config path.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg to path with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# gwen configuration file\n")
	buf.WriteString("# The completion credential can also be supplied as GWEN_API_KEY.\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return errors.Wrap(err, "failed to encode config")
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}
	return nil
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
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errs ValidateErrors

	switch c.Completion.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		errs = append(errs, ValidationError{
			Field:   "completion.provider",
			Message: fmt.Sprintf("invalid provider '%s', must be one of: gemini, openai", c.Completion.Provider),
		})
	}
	if c.Completion.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{Field: "completion.timeout_secs", Message: "must not be negative"})
	}
	if c.Completion.RequestsPerMinute < 0 {
		errs = append(errs, ValidationError{Field: "completion.requests_per_minute", Message: "must not be negative"})
	}

	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.Path == "" {
			errs = append(errs, ValidationError{Field: "store.path", Message: "required for sqlite driver"})
		}
	case DriverMongo:
		if c.Store.MongoURI == "" {
			errs = append(errs, ValidationError{Field: "store.mongo_uri", Message: "required for mongo driver"})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "store.driver",
			Message: fmt.Sprintf("invalid driver '%s', must be one of: sqlite, mongo", c.Store.Driver),
		})
	}

	if c.Chat.HistoryWindow < 0 {
		errs = append(errs, ValidationError{Field: "chat.history_window", Message: "must not be negative"})
	}
	if c.Chat.AutoNameLength < 1 {
		errs = append(errs, ValidationError{Field: "chat.auto_name_length", Message: "must be at least 1"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ErrMissingCredential is returned by RequireCredential.
var ErrMissingCredential = errors.New("completion API key not configured (set GWEN_API_KEY or completion.api_key)")

// RequireCredential fails when no completion credential was supplied.
func (c *Config) RequireCredential() error {
	if strings.TrimSpace(c.Completion.APIKey) == "" {
		return ErrMissingCredential
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides:
//   - GWEN_API_KEY: completion.api_key
//   - GWEN_PROVIDER: completion.provider
//   - GWEN_MODEL: completion.model
//   - GWEN_BASE_URL: completion.base_url
//   - GWEN_RPM: completion.requests_per_minute
//   - GWEN_STORE_DRIVER: store.driver
//   - GWEN_STORE_PATH: store.path
//   - GWEN_MONGO_URI: store.mongo_uri
//   - GWEN_LOG_LEVEL: log.level
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("GWEN_API_KEY"); v != "" {
		c.Completion.APIKey = v
	}
	if v := os.Getenv("GWEN_PROVIDER"); v != "" {
		c.Completion.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("GWEN_MODEL"); v != "" {
		c.Completion.Model = v
	}
	if v := os.Getenv("GWEN_BASE_URL"); v != "" {
		c.Completion.BaseURL = v
	}
	if v := os.Getenv("GWEN_RPM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Completion.RequestsPerMinute = n
		} else {
			log.Warn().Str("value", v).Msg("ignoring invalid GWEN_RPM")
		}
	}
	if v := os.Getenv("GWEN_STORE_DRIVER"); v != "" {
		c.Store.Driver = strings.ToLower(v)
	}
	if v := os.Getenv("GWEN_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("GWEN_MONGO_URI"); v != "" {
		c.Store.MongoURI = v
	}
	if v := os.Getenv("GWEN_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// String renders the configuration as TOML with the API key masked.
func (c *Config) String() string {
	clone := *c
	if clone.Completion.APIKey != "" {
		clone.Completion.APIKey = maskKey(clone.Completion.APIKey)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(clone); err != nil {
		return fmt.Sprintf("<config encode error: %v>", err)
	}
	return buf.String()
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
