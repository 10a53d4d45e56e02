package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HealthChecker is a zero-cost reachability probe for a model backend. It
// lists models or tags rather than generating, so readiness checks never
// consume tokens.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// httpCheck issues a single authenticated GET and expects a 2xx response.
type httpCheck struct {
	client *http.Client
	url    string
	header http.Header
}

// HealthCheck implements HealthChecker.
func (h *httpCheck) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return fmt.Errorf("provider: build health request: %w", err)
	}
	for k, vs := range h.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("provider: health request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only probe
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("provider: health check returned %d", resp.StatusCode)
	}
	return nil
}

// NewHealthChecker returns a zero-cost probe for backends that expose a
// model listing endpoint. It returns nil for backends without one (ark,
// gemini); callers then skip the LLM readiness probe.
func NewHealthChecker(cfg *Config, client *http.Client) HealthChecker {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	switch cfg.Backend {
	case BackendOllama:
		return &httpCheck{
			client: client,
			url:    strings.TrimRight(cfg.Ollama.Host, "/") + "/api/tags",
		}
	case BackendOpenAI:
		return &httpCheck{
			client: client,
			url:    "https://api.openai.com/v1/models",
			header: http.Header{"Authorization": {"Bearer " + cfg.OpenAI.APIKey}},
		}
	case BackendAzure:
		az := cfg.AzureOpenAI
		return &httpCheck{
			client: client,
			url:    strings.TrimRight(az.Endpoint, "/") + "/openai/models?api-version=" + az.APIVersion,
			header: http.Header{"Api-Key": {az.APIKey}},
		}
	default:
		return nil
	}
}
