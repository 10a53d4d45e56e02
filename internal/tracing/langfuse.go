// Package tracing wires the Langfuse callback handler that receives the
// instrumentation events emitted around every model call.
package tracing

import (
	"os"

	"github.com/cloudwego/eino-ext/callbacks/langfuse"
	"github.com/cloudwego/eino/callbacks"

	"github.com/54b3r/promptfit/internal/version"
)

// DefaultHost is the Langfuse endpoint used when LANGFUSE_HOST is unset.
const DefaultHost = "http://localhost:3000"

// traceName groups promptfit traces in the Langfuse UI.
const traceName = "promptfit"

// Config holds the Langfuse connection settings.
type Config struct {
	Host      string
	PublicKey string
	SecretKey string
}

// Enabled reports whether both keys are present.
func (c Config) Enabled() bool {
	return c.PublicKey != "" && c.SecretKey != ""
}

// ConfigFromEnv reads LANGFUSE_HOST, LANGFUSE_PUBLIC_KEY and LANGFUSE_SECRET_KEY.
func ConfigFromEnv() Config {
	host := os.Getenv("LANGFUSE_HOST")
	if host == "" {
		host = DefaultHost
	}
	return Config{
		Host:      host,
		PublicKey: os.Getenv("LANGFUSE_PUBLIC_KEY"),
		SecretKey: os.Getenv("LANGFUSE_SECRET_KEY"),
	}
}

// Setup initialises the Langfuse callback handler from the environment.
// The returned flush function must be called before process exit so queued
// traces are sent. When Langfuse is not configured it returns nil, nil, false
// and tracing is silently disabled.
func Setup() (callbacks.Handler, func(), bool) {
	return New(ConfigFromEnv())
}

// New builds a handler from an explicit Config.
func New(cfg Config) (callbacks.Handler, func(), bool) {
	if !cfg.Enabled() {
		return nil, nil, false
	}

	handler, flusher := langfuse.NewLangfuseHandler(&langfuse.Config{
		Host:      cfg.Host,
		PublicKey: cfg.PublicKey,
		SecretKey: cfg.SecretKey,
		Name:      traceName,
		Release:   version.Version,
	})

	return handler, flusher, true
}
