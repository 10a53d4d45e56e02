// Package config provides file-based configuration for promptfit.
// Configuration is loaded with a layered precedence: defaults → config file → env vars.
// Environment variables always win, so existing workflows are unaffected.
//
// File search order:
//  1. --config CLI flag (explicit path)
//  2. PROMPTFIT_CONFIG environment variable
//  3. ~/.promptfit/config.yaml
//  4. ./promptfit.yaml
//
// Files ending in .toml are parsed as TOML; everything else as YAML.
// If no file is found the system runs entirely from env vars.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration file structure.
// Field names mirror the env var naming (lowercase, underscored).
type Config struct {
	// Trim configures the default token budget.
	Trim TrimConfig `yaml:"trim" toml:"trim"`

	// Tokenizer selects the token counting backend.
	Tokenizer TokenizerConfig `yaml:"tokenizer" toml:"tokenizer"`

	// Model configures the LLM chat model provider used by `promptfit ask`.
	Model ModelConfig `yaml:"model" toml:"model"`

	// Server configures the HTTP server.
	Server ServerConfig `yaml:"server" toml:"server"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging" toml:"logging"`

	// TrimLog configures persistence of served trims.
	TrimLog TrimLogConfig `yaml:"trim_log" toml:"trim_log"`

	// Tracing configures Langfuse tracing integration.
	Tracing TracingConfig `yaml:"tracing" toml:"tracing"`
}

// TrimConfig holds trimming defaults.
type TrimConfig struct {
	// ContextSize is the default token budget.
	ContextSize int `yaml:"context_size" toml:"context_size"`
}

// TokenizerConfig holds token counting settings.
type TokenizerConfig struct {
	// Backend is embedded, tiktoken or heuristic.
	Backend string `yaml:"backend" toml:"backend"`
	// Encoding is the BPE encoding name, e.g. o200k_base.
	Encoding string `yaml:"encoding" toml:"encoding"`
}

// ModelConfig holds LLM chat model settings.
type ModelConfig struct {
	// Provider selects the backend: openai, azure, ollama, ark, gemini.
	Provider string `yaml:"provider" toml:"provider"`
	// MaxTokens is the maximum number of tokens in the response.
	MaxTokens int `yaml:"max_tokens" toml:"max_tokens"`
	// Temperature controls response randomness (0.0–1.0).
	Temperature float32 `yaml:"temperature" toml:"temperature"`
	// ReasoningEffort is passed to reasoning models (low, medium, high).
	ReasoningEffort string `yaml:"reasoning_effort" toml:"reasoning_effort"`

	Ollama OllamaConfig `yaml:"ollama" toml:"ollama"`
	OpenAI OpenAIConfig `yaml:"openai" toml:"openai"`
	Azure  AzureConfig  `yaml:"azure" toml:"azure"`
	Ark    ArkConfig    `yaml:"ark" toml:"ark"`
	Gemini GeminiConfig `yaml:"gemini" toml:"gemini"`
}

// OllamaConfig holds Ollama provider settings.
type OllamaConfig struct {
	Host  string `yaml:"host" toml:"host"`
	Model string `yaml:"model" toml:"model"`
}

// OpenAIConfig holds OpenAI provider settings.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key. Prefer env var OPENAI_API_KEY.
	APIKey string `yaml:"api_key" toml:"api_key"`
	Model  string `yaml:"model" toml:"model"`
}

// AzureConfig holds Azure OpenAI provider settings.
type AzureConfig struct {
	// APIKey is the Azure OpenAI API key. Prefer env var AZURE_OPENAI_API_KEY.
	APIKey     string `yaml:"api_key" toml:"api_key"`
	Endpoint   string `yaml:"endpoint" toml:"endpoint"`
	Deployment string `yaml:"deployment" toml:"deployment"`
	APIVersion string `yaml:"api_version" toml:"api_version"`
}

// ArkConfig holds Volcano Engine Ark provider settings.
type ArkConfig struct {
	// APIKey is the Ark API key. Prefer env var ARK_API_KEY.
	APIKey  string `yaml:"api_key" toml:"api_key"`
	Model   string `yaml:"model" toml:"model"`
	BaseURL string `yaml:"base_url" toml:"base_url"`
}

// GeminiConfig holds Google Gemini provider settings.
type GeminiConfig struct {
	// APIKey is the Google API key. Prefer env var GOOGLE_API_KEY.
	APIKey string `yaml:"api_key" toml:"api_key"`
	Model  string `yaml:"model" toml:"model"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host" toml:"host"`
	Port int    `yaml:"port" toml:"port"`
	// APIKey is the Bearer token for API authentication. Prefer env var PROMPTFIT_API_KEY.
	APIKey string `yaml:"api_key" toml:"api_key"`
	// RateLimit is the sustained per-IP request rate (requests/second).
	RateLimit float64 `yaml:"rate_limit" toml:"rate_limit"`
	// RateBurst is the per-IP burst size.
	RateBurst int `yaml:"rate_burst" toml:"rate_burst"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level" toml:"level"`
	// Format is the log output format: json, text.
	Format string `yaml:"format" toml:"format"`
}

// TrimLogConfig holds trim log settings.
type TrimLogConfig struct {
	// DBPath is the SQLite database path. Set to "disabled" to disable.
	DBPath string `yaml:"db_path" toml:"db_path"`
}

// TracingConfig holds Langfuse tracing settings.
type TracingConfig struct {
	// PublicKey is the Langfuse public key. Prefer env var LANGFUSE_PUBLIC_KEY.
	PublicKey string `yaml:"public_key" toml:"public_key"`
	// SecretKey is the Langfuse secret key. Prefer env var LANGFUSE_SECRET_KEY.
	SecretKey string `yaml:"secret_key" toml:"secret_key"`
	// Host is the Langfuse API host.
	Host string `yaml:"host" toml:"host"`
}

// envMapping maps config file fields to their corresponding env var names.
// Only non-empty file values are applied; env vars always take precedence.
var envMapping = []struct {
	envKey string
	value  func(*Config) string
}{
	{"CONTEXT_SIZE", func(c *Config) string { return intStr(c.Trim.ContextSize) }},
	{"TOKENIZER_BACKEND", func(c *Config) string { return c.Tokenizer.Backend }},
	{"TOKENIZER_ENCODING", func(c *Config) string { return c.Tokenizer.Encoding }},
	{"MODEL_PROVIDER", func(c *Config) string { return c.Model.Provider }},
	{"MODEL_MAX_TOKENS", func(c *Config) string { return intStr(c.Model.MaxTokens) }},
	{"MODEL_TEMPERATURE", func(c *Config) string { return float32Str(c.Model.Temperature) }},
	{"MODEL_REASONING_EFFORT", func(c *Config) string { return c.Model.ReasoningEffort }},
	{"OLLAMA_HOST", func(c *Config) string { return c.Model.Ollama.Host }},
	{"OLLAMA_MODEL", func(c *Config) string { return c.Model.Ollama.Model }},
	{"OPENAI_API_KEY", func(c *Config) string { return c.Model.OpenAI.APIKey }},
	{"OPENAI_MODEL", func(c *Config) string { return c.Model.OpenAI.Model }},
	{"AZURE_OPENAI_API_KEY", func(c *Config) string { return c.Model.Azure.APIKey }},
	{"AZURE_OPENAI_ENDPOINT", func(c *Config) string { return c.Model.Azure.Endpoint }},
	{"AZURE_OPENAI_DEPLOYMENT", func(c *Config) string { return c.Model.Azure.Deployment }},
	{"AZURE_OPENAI_API_VERSION", func(c *Config) string { return c.Model.Azure.APIVersion }},
	{"ARK_API_KEY", func(c *Config) string { return c.Model.Ark.APIKey }},
	{"ARK_MODEL", func(c *Config) string { return c.Model.Ark.Model }},
	{"ARK_BASE_URL", func(c *Config) string { return c.Model.Ark.BaseURL }},
	{"GOOGLE_API_KEY", func(c *Config) string { return c.Model.Gemini.APIKey }},
	{"GEMINI_MODEL", func(c *Config) string { return c.Model.Gemini.Model }},
	{"PROMPTFIT_HOST", func(c *Config) string { return c.Server.Host }},
	{"PROMPTFIT_PORT", func(c *Config) string { return intStr(c.Server.Port) }},
	{"PROMPTFIT_API_KEY", func(c *Config) string { return c.Server.APIKey }},
	{"PROMPTFIT_RATE_LIMIT", func(c *Config) string { return float64Str(c.Server.RateLimit) }},
	{"PROMPTFIT_RATE_BURST", func(c *Config) string { return intStr(c.Server.RateBurst) }},
	{"LOG_LEVEL", func(c *Config) string { return c.Logging.Level }},
	{"LOG_FORMAT", func(c *Config) string { return c.Logging.Format }},
	{"PROMPTFIT_TRIM_DB", func(c *Config) string { return c.TrimLog.DBPath }},
	{"LANGFUSE_PUBLIC_KEY", func(c *Config) string { return c.Tracing.PublicKey }},
	{"LANGFUSE_SECRET_KEY", func(c *Config) string { return c.Tracing.SecretKey }},
	{"LANGFUSE_HOST", func(c *Config) string { return c.Tracing.Host }},
}

// Load reads a config file and applies non-empty values as environment
// variables. Existing env vars are never overwritten (env always wins).
// Returns the path that was loaded, or empty string if no file was found.
func Load(explicitPath string, log *slog.Logger) (string, error) {
	path := resolveConfigPath(explicitPath)
	if path == "" {
		log.Debug("config: no config file found, using env vars only")
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	cfg, err := parse(path, data)
	if err != nil {
		return "", err
	}

	applied := 0
	for _, m := range envMapping {
		fileVal := m.value(cfg)
		if fileVal == "" || fileVal == "0" || fileVal == "false" {
			continue
		}
		if os.Getenv(m.envKey) != "" {
			continue // env var already set: do not override
		}
		if err := os.Setenv(m.envKey, fileVal); err != nil {
			return "", fmt.Errorf("config: failed to set %s: %w", m.envKey, err)
		}
		applied++
	}

	log.Info("config: loaded config file",
		slog.String("path", path),
		slog.Int("keys_applied", applied),
	)

	return path, nil
}

// parse decodes data as TOML or YAML depending on the file extension.
func parse(path string, data []byte) (*Config, error) {
	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
		}
		return &cfg, nil
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	return &cfg, nil
}

// resolveConfigPath returns the first config file path that exists.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}

	if envPath := os.Getenv("PROMPTFIT_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		p := filepath.Join(home, ".promptfit", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if _, err := os.Stat("promptfit.yaml"); err == nil {
		return "promptfit.yaml"
	}

	return ""
}

// intStr converts an int to string, returning "" for zero values.
func intStr(v int) string {
	if v == 0 {
		return ""
	}
	return fmt.Sprintf("%d", v)
}

// float32Str converts a float32 to string, returning "" for zero values.
func float32Str(v float32) string {
	if v == 0 {
		return ""
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", v), "0"), ".")
}

// float64Str converts a float64 to string, returning "" for zero values.
func float64Str(v float64) string {
	if v == 0 {
		return ""
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", v), "0"), ".")
}
