package server

import (
	"context"
	"fmt"

	"github.com/54b3r/promptfit/internal/provider"
)

// LLMPinger probes a model backend through its zero-cost health check
// (model or tag listing). It never generates, so readiness costs no tokens.
type LLMPinger struct {
	// check is the backend-specific probe.
	check provider.HealthChecker
	// name identifies the backend in readiness responses (e.g. "ollama").
	name string
}

// NewLLMPinger constructs an LLMPinger for the given probe and backend name.
func NewLLMPinger(check provider.HealthChecker, name string) *LLMPinger {
	return &LLMPinger{check: check, name: name}
}

// Name returns the backend label used in readiness responses.
func (p *LLMPinger) Name() string { return p.name }

// Ping runs the backend health check.
func (p *LLMPinger) Ping(ctx context.Context) error {
	if err := p.check.HealthCheck(ctx); err != nil {
		return fmt.Errorf("%s health check failed: %w", p.name, err)
	}
	return nil
}
