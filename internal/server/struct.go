package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/promptfit/internal/store"
	"github.com/54b3r/promptfit/internal/trim"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// DefaultBudget is used when a request omits the budget or sends 0.
	DefaultBudget int
	// BatchConcurrency bounds parallel trims within one batch request.
	// Defaults to trim.DefaultConcurrency.
	BatchConcurrency int
	// TrimLog persists one entry per trim. Nil disables the log.
	TrimLog store.TrimLog
	// MetricsRegistry is where server metrics are registered.
	// Defaults to prometheus.DefaultRegisterer.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer serves GET /metrics. Defaults to prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// Fitter is what the trim handlers call. *trim.Trimmer satisfies it.
type Fitter interface {
	Fit(prompt string, budget int) (trim.Result, error)
	TrimAll(ctx context.Context, prompts []string, budget, concurrency int) ([]trim.Result, error)
}

// Counter is what handleCount calls. Every tokenizer.Counter satisfies it.
type Counter interface {
	Count(text string) (int, error)
}

// Server is the HTTP server that exposes the trimmer.
type Server struct {
	// trimmer fits prompts to a budget.
	trimmer Fitter
	// counter counts tokens for /api/count.
	counter Counter
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus collectors owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// trimRequest is the JSON body for POST /api/trim.
type trimRequest struct {
	// Prompt is the text to fit. Empty is valid and returned unchanged.
	Prompt string `json:"prompt"`
	// Budget is the token budget. 0 or absent means the server default.
	Budget int `json:"budget"`
}

// batchRequest is the JSON body for POST /api/trim/batch.
type batchRequest struct {
	// Prompts are trimmed independently with the same budget.
	Prompts []string `json:"prompts"`
	// Budget is the token budget. 0 or absent means the server default.
	Budget int `json:"budget"`
}

// batchResponse is the JSON response for POST /api/trim/batch.
type batchResponse struct {
	// Results are in request order.
	Results []trim.Result `json:"results"`
}

// countRequest is the JSON body for POST /api/count.
type countRequest struct {
	Text string `json:"text"`
}

// countResponse is the JSON response for POST /api/count.
type countResponse struct {
	Tokens int `json:"tokens"`
}

// trimsResponse is the JSON response for GET /api/trims.
type trimsResponse struct {
	Entries []store.Entry `json:"entries"`
}
