package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/components/model"
)

// ConfigFromEnv builds a Config from environment variables. MODEL_PROVIDER
// selects the backend; each provider uses its own native credential env vars.
//
// Environment variables:
//
//	MODEL_PROVIDER = ollama | openai | azure | ark | gemini (default: ollama)
//
//	Ollama:  OLLAMA_HOST (default: http://localhost:11434), OLLAMA_MODEL (default: llama3)
//	OpenAI:  OPENAI_API_KEY, OPENAI_MODEL (default: gpt-4o)
//	Azure:   AZURE_OPENAI_API_KEY, AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_DEPLOYMENT,
//	         AZURE_OPENAI_API_VERSION (default: 2024-02-01)
//	Ark:     ARK_API_KEY, ARK_MODEL, ARK_BASE_URL (optional)
//	Gemini:  GOOGLE_API_KEY, GEMINI_MODEL (default: gemini-1.5-pro)
//
//	Shared:  MODEL_MAX_TOKENS (default: 4096), MODEL_TEMPERATURE (default: 0.2),
//	         MODEL_REASONING_EFFORT (optional)
func ConfigFromEnv() *Config {
	return &Config{
		Backend: Backend(strings.ToLower(getEnvOrDefault("MODEL_PROVIDER", string(BackendOllama)))),
		Ollama: ProviderOllama{
			Host:  getEnvOrDefault("OLLAMA_HOST", "http://localhost:11434"),
			Model: getEnvOrDefault("OLLAMA_MODEL", "llama3"),
		},
		OpenAI: ProviderOpenAI{
			APIKey: os.Getenv("OPENAI_API_KEY"),
			Model:  getEnvOrDefault("OPENAI_MODEL", "gpt-4o"),
		},
		AzureOpenAI: ProviderAzureOpenAI{
			APIKey:     os.Getenv("AZURE_OPENAI_API_KEY"),
			Endpoint:   os.Getenv("AZURE_OPENAI_ENDPOINT"),
			Deployment: os.Getenv("AZURE_OPENAI_DEPLOYMENT"),
			APIVersion: getEnvOrDefault("AZURE_OPENAI_API_VERSION", "2024-02-01"),
		},
		Ark: ProviderArk{
			APIKey:  os.Getenv("ARK_API_KEY"),
			Model:   os.Getenv("ARK_MODEL"),
			BaseURL: os.Getenv("ARK_BASE_URL"),
		},
		Gemini: ProviderGemini{
			APIKey: os.Getenv("GOOGLE_API_KEY"),
			Model:  getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-pro"),
		},
		Tuning: SharedTuning{
			MaxTokens:       getEnvInt("MODEL_MAX_TOKENS", 4096),
			Temperature:     getEnvFloat32("MODEL_TEMPERATURE", 0.2),
			ReasoningEffort: strings.ToLower(os.Getenv("MODEL_REASONING_EFFORT")),
		},
	}
}

// NewFromEnv constructs a ChatModel from ConfigFromEnv.
func NewFromEnv(ctx context.Context) (model.BaseChatModel, *Config, error) {
	cfg := ConfigFromEnv()
	m, err := New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return m, cfg, nil
}

// New constructs a ChatModel from an explicit Config, delegating to the
// appropriate backend factory function. It validates the config first so
// callers get a clear error at startup rather than on the first request.
func New(ctx context.Context, cfg *Config) (model.BaseChatModel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendOllama:
		return newOllama(ctx, cfg)
	case BackendOpenAI:
		return newOpenAI(ctx, cfg)
	case BackendAzure:
		return newAzure(ctx, cfg)
	case BackendArk:
		return newArk(ctx, cfg)
	case BackendGemini:
		return newGemini(ctx, cfg)
	default:
		return nil, fmt.Errorf("provider: unknown backend %q", cfg.Backend)
	}
}

// Validate reports every missing setting of the selected backend in one
// error so operators can fix their environment in a single pass.
func (c *Config) Validate() error {
	var errs []error
	missing := func(key, val string) {
		if val == "" {
			errs = append(errs, fmt.Errorf("%s is required for %s backend", key, c.Backend))
		}
	}

	switch c.Backend {
	case BackendOllama:
		missing("OLLAMA_HOST", c.Ollama.Host)
		missing("OLLAMA_MODEL", c.Ollama.Model)
	case BackendOpenAI:
		missing("OPENAI_API_KEY", c.OpenAI.APIKey)
		missing("OPENAI_MODEL", c.OpenAI.Model)
	case BackendAzure:
		missing("AZURE_OPENAI_API_KEY", c.AzureOpenAI.APIKey)
		missing("AZURE_OPENAI_ENDPOINT", c.AzureOpenAI.Endpoint)
		missing("AZURE_OPENAI_DEPLOYMENT", c.AzureOpenAI.Deployment)
	case BackendArk:
		missing("ARK_API_KEY", c.Ark.APIKey)
		missing("ARK_MODEL", c.Ark.Model)
	case BackendGemini:
		missing("GOOGLE_API_KEY", c.Gemini.APIKey)
		missing("GEMINI_MODEL", c.Gemini.Model)
	default:
		return fmt.Errorf("provider: unknown backend %q (valid: ollama, openai, azure, ark, gemini)", c.Backend)
	}

	switch c.Tuning.ReasoningEffort {
	case "", "low", "medium", "high":
	default:
		errs = append(errs, fmt.Errorf("MODEL_REASONING_EFFORT must be low, medium or high, got %q", c.Tuning.ReasoningEffort))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("provider: invalid config: %w", err)
	}
	return nil
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvFloat32 returns the float32 value of the named environment variable,
// or fallback if the variable is unset, empty, or not parseable.
func getEnvFloat32(key string, fallback float32) float32 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			return float32(f)
		}
	}
	return fallback
}
