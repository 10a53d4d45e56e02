package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DefaultContextSize is the token budget used when CONTEXT_SIZE is unset.
const DefaultContextSize = 128_000

// ErrInvalidSetting wraps every validation failure reported by FromEnv.
var ErrInvalidSetting = errors.New("config: invalid setting")

// Settings is the validated, read-only view of the environment that the
// commands consume. It is resolved once at startup by FromEnv.
type Settings struct {
	// ContextSize is the default token budget (CONTEXT_SIZE).
	ContextSize int
	// TokenizerBackend is TOKENIZER_BACKEND (default: embedded).
	TokenizerBackend string
	// TokenizerEncoding is TOKENIZER_ENCODING (default: o200k_base).
	TokenizerEncoding string
	// TrimDBPath is PROMPTFIT_TRIM_DB. Empty means the default location;
	// "disabled" turns the trim log off.
	TrimDBPath string
	// Host is the HTTP bind address (PROMPTFIT_HOST, default 127.0.0.1).
	Host string
	// Port is the HTTP port (PROMPTFIT_PORT, default 8080).
	Port int
	// APIKey is the Bearer token for /api/* (PROMPTFIT_API_KEY). Empty disables auth.
	APIKey string
	// RateLimit is the per-IP request rate (PROMPTFIT_RATE_LIMIT, default 10).
	RateLimit float64
	// RateBurst is the per-IP burst (PROMPTFIT_RATE_BURST, default 20).
	RateBurst int
}

// TrimLogDisabled reports whether the trim log was switched off.
func (s *Settings) TrimLogDisabled() bool {
	return strings.EqualFold(s.TrimDBPath, "disabled")
}

// FromEnv reads and validates Settings from the environment. Call it after
// Load so file values are visible.
func FromEnv() (*Settings, error) {
	var errs []error

	s := &Settings{
		TokenizerBackend:  getEnvOrDefault("TOKENIZER_BACKEND", "embedded"),
		TokenizerEncoding: getEnvOrDefault("TOKENIZER_ENCODING", "o200k_base"),
		TrimDBPath:        os.Getenv("PROMPTFIT_TRIM_DB"),
		Host:              getEnvOrDefault("PROMPTFIT_HOST", "127.0.0.1"),
		APIKey:            os.Getenv("PROMPTFIT_API_KEY"),
	}

	var err error
	if s.ContextSize, err = envInt("CONTEXT_SIZE", DefaultContextSize); err != nil {
		errs = append(errs, err)
	} else if s.ContextSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: CONTEXT_SIZE must be positive, got %d", ErrInvalidSetting, s.ContextSize))
	}

	if s.Port, err = envInt("PROMPTFIT_PORT", 8080); err != nil {
		errs = append(errs, err)
	} else if s.Port <= 0 || s.Port > 65535 {
		errs = append(errs, fmt.Errorf("%w: PROMPTFIT_PORT out of range: %d", ErrInvalidSetting, s.Port))
	}

	if s.RateLimit, err = envFloat("PROMPTFIT_RATE_LIMIT", 10); err != nil {
		errs = append(errs, err)
	} else if s.RateLimit <= 0 {
		errs = append(errs, fmt.Errorf("%w: PROMPTFIT_RATE_LIMIT must be positive, got %g", ErrInvalidSetting, s.RateLimit))
	}

	if s.RateBurst, err = envInt("PROMPTFIT_RATE_BURST", 20); err != nil {
		errs = append(errs, err)
	} else if s.RateBurst <= 0 {
		errs = append(errs, fmt.Errorf("%w: PROMPTFIT_RATE_BURST must be positive, got %d", ErrInvalidSetting, s.RateBurst))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return s, nil
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envInt parses the named environment variable as an int. Unset or empty
// yields fallback; anything unparseable is an error.
func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(strings.ReplaceAll(v, "_", ""))
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidSetting, key, v)
	}
	return i, nil
}

// envFloat parses the named environment variable as a float64.
func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not a number", ErrInvalidSetting, key, v)
	}
	return f, nil
}
