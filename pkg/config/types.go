package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent traza configuration stored as config.toml
// in the .traza/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	API         APIConfig         `toml:"api"`
	LLM         LLMConfig         `toml:"llm"`
	Governance  GovernanceConfig  `toml:"governance"`
	Risk        RiskConfig        `toml:"risk"`
	Export      ExportConfig      `toml:"export"`
	EventStream EventStreamConfig `toml:"eventstream"`
	Client      ClientConfig      `toml:"client"`
}

// StorageConfig selects and configures the persistence driver.
type StorageConfig struct {
	// Driver is one of "inmemory", "sqlite", "postgres".
	Driver      string `toml:"driver,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// LLMConfig selects and configures the tutoring LLM provider. API keys are
// never written to config.toml; they come from the environment
// (TRAZA_LLM_API_KEY) only.
type LLMConfig struct {
	Provider       string `toml:"provider,omitempty"`
	Model          string `toml:"model,omitempty"`
	BaseURL        string `toml:"base_url,omitempty"`
	MaxTokens      uint   `toml:"max_tokens,omitempty"`
	TimeoutSeconds uint   `toml:"timeout_seconds,omitempty"`
}

// GovernanceConfig holds governance gate settings.
type GovernanceConfig struct {
	// PatternsPath, when set, points at a TOML pattern file that overrides
	// the embedded catalog and is hot-reloaded on change.
	PatternsPath string `toml:"patterns_path,omitempty"`
}

// RiskConfig tunes the risk analyst's detection thresholds. Zero values
// fall back to the analyst's defaults.
type RiskConfig struct {
	HighInvolvement  float64 `toml:"high_involvement,omitempty"`
	StreakLength     uint    `toml:"streak_length,omitempty"`
	BlockedAttempts  uint    `toml:"blocked_attempts,omitempty"`
	AcceptanceWindow uint    `toml:"acceptance_window,omitempty"`
}

// ExportConfig holds research export settings.
type ExportConfig struct {
	KAnonymity uint `toml:"k_anonymity,omitempty"`
}

// EventStreamConfig selects and configures the event stream backend.
type EventStreamConfig struct {
	// Provider is one of "nop", "kafka".
	Provider string `toml:"provider,omitempty"`
	// Brokers is a comma-separated broker list for kafka.
	Brokers string `toml:"brokers,omitempty"`
	Topic   string `toml:"topic,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to a running
// API server. Values are full URLs (scheme + host + port).
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func uintKey(get func(c *Config) uint, set func(c *Config, v uint), name string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if get(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(get(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			set(c, uint(n))
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.driver": {
		get: func(c *Config) string { return c.Storage.Driver },
		set: func(c *Config, v string) error { c.Storage.Driver = v; return nil },
	},
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"storage.postgres_dsn": {
		get: func(c *Config) string { return c.Storage.PostgresDSN },
		set: func(c *Config, v string) error { c.Storage.PostgresDSN = v; return nil },
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"llm.provider": {
		get: func(c *Config) string { return c.LLM.Provider },
		set: func(c *Config, v string) error { c.LLM.Provider = v; return nil },
	},
	"llm.model": {
		get: func(c *Config) string { return c.LLM.Model },
		set: func(c *Config, v string) error { c.LLM.Model = v; return nil },
	},
	"llm.base_url": {
		get: func(c *Config) string { return c.LLM.BaseURL },
		set: func(c *Config, v string) error { c.LLM.BaseURL = v; return nil },
	},
	"llm.max_tokens": uintKey(
		func(c *Config) uint { return c.LLM.MaxTokens },
		func(c *Config, v uint) { c.LLM.MaxTokens = v },
		"llm.max_tokens"),
	"llm.timeout_seconds": uintKey(
		func(c *Config) uint { return c.LLM.TimeoutSeconds },
		func(c *Config, v uint) { c.LLM.TimeoutSeconds = v },
		"llm.timeout_seconds"),
	"governance.patterns_path": {
		get: func(c *Config) string { return c.Governance.PatternsPath },
		set: func(c *Config, v string) error { c.Governance.PatternsPath = v; return nil },
	},
	"risk.high_involvement": {
		get: func(c *Config) string {
			if c.Risk.HighInvolvement == 0 {
				return ""
			}
			return strconv.FormatFloat(c.Risk.HighInvolvement, 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for risk.high_involvement: %w", err)
			}
			c.Risk.HighInvolvement = f
			return nil
		},
	},
	"risk.streak_length": uintKey(
		func(c *Config) uint { return c.Risk.StreakLength },
		func(c *Config, v uint) { c.Risk.StreakLength = v },
		"risk.streak_length"),
	"risk.blocked_attempts": uintKey(
		func(c *Config) uint { return c.Risk.BlockedAttempts },
		func(c *Config, v uint) { c.Risk.BlockedAttempts = v },
		"risk.blocked_attempts"),
	"risk.acceptance_window": uintKey(
		func(c *Config) uint { return c.Risk.AcceptanceWindow },
		func(c *Config, v uint) { c.Risk.AcceptanceWindow = v },
		"risk.acceptance_window"),
	"export.k_anonymity": uintKey(
		func(c *Config) uint { return c.Export.KAnonymity },
		func(c *Config, v uint) { c.Export.KAnonymity = v },
		"export.k_anonymity"),
	"eventstream.provider": {
		get: func(c *Config) string { return c.EventStream.Provider },
		set: func(c *Config, v string) error { c.EventStream.Provider = v; return nil },
	},
	"eventstream.brokers": {
		get: func(c *Config) string { return c.EventStream.Brokers },
		set: func(c *Config, v string) error { c.EventStream.Brokers = v; return nil },
	},
	"eventstream.topic": {
		get: func(c *Config) string { return c.EventStream.Topic },
		set: func(c *Config, v string) error { c.EventStream.Topic = v; return nil },
	},
	"client.api_target": {
		get: func(c *Config) string { return c.Client.APITarget },
		set: func(c *Config, v string) error { c.Client.APITarget = v; return nil },
	},
}
