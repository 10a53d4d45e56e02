// metrics.go registers the Prometheus metrics for the HTTP server and the
// helpers handlers and middleware use to record them.
package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/54b3r/promptfit/internal/trim"
)

// Metric label values shared across registrations.
const (
	// labelHandler is the "handler" label value used to partition metrics by
	// the logical endpoint name rather than the raw URL path.
	labelHandler = "handler"
)

// Trim outcomes recorded on promptfit_trim_requests_total.
const (
	outcomeUnchanged = "unchanged"
	outcomeTrimmed   = "trimmed"
	outcomeHardCut   = "hard_cut"
	outcomeError     = "error"
)

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// A single instance is created in New and stored on Server so that tests can
// inject a fresh prometheus.Registry without polluting the default one.
type serverMetrics struct {
	// trimRequestsTotal counts trimmed prompts, partitioned by handler and
	// outcome: "unchanged", "trimmed", "hard_cut", or "error".
	trimRequestsTotal *prometheus.CounterVec

	// trimDurationSeconds records the time spent inside the trimmer.
	trimDurationSeconds *prometheus.HistogramVec

	// trimTokensRemoved records TokensBefore-TokensAfter per trimmed prompt.
	trimTokensRemoved prometheus.Histogram

	// trimIterations records reduction steps per prompt.
	trimIterations prometheus.Histogram

	// httpRequestsTotal counts all HTTP requests handled by the mux,
	// partitioned by method, handler, and status code.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of all HTTP requests.
	httpDurationSeconds *prometheus.HistogramVec
}

// newServerMetrics registers all server metrics against reg and returns the
// populated serverMetrics. promauto.With(reg) is used so that each call
// registers into the provided registry rather than the global default.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		trimRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "promptfit",
			Subsystem: "trim",
			Name:      "requests_total",
			Help:      "Total number of prompts trimmed, partitioned by handler and outcome.",
		}, []string{labelHandler, "outcome"}),

		trimDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "promptfit",
			Subsystem: "trim",
			Name:      "duration_seconds",
			Help:      "Time spent fitting prompts to their budget.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{labelHandler}),

		trimTokensRemoved: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "promptfit",
			Subsystem: "trim",
			Name:      "tokens_removed",
			Help:      "Tokens removed from each prompt.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),

		trimIterations: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "promptfit",
			Subsystem: "trim",
			Name:      "iterations",
			Help:      "Reduction steps taken per prompt.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "promptfit",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method, handler, and status code.",
		}, []string{"method", labelHandler, "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "promptfit",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", labelHandler}),
	}
}

// outcomeOf classifies a successful trim.
func outcomeOf(res trim.Result) string {
	switch {
	case res.HardCut:
		return outcomeHardCut
	case res.Trimmed:
		return outcomeTrimmed
	default:
		return outcomeUnchanged
	}
}

// observe records the trim metrics for one successful result.
func (s *Server) observe(handler string, res trim.Result, elapsed time.Duration) {
	m := s.metrics
	m.trimRequestsTotal.WithLabelValues(handler, outcomeOf(res)).Inc()
	m.trimDurationSeconds.WithLabelValues(handler).Observe(elapsed.Seconds())
	m.trimIterations.Observe(float64(res.Iterations))
	if res.Trimmed {
		m.trimTokensRemoved.Observe(float64(res.TokensBefore - res.TokensAfter))
	}
}

// instrument wraps h so every request is counted and timed under name.
func (s *Server) instrument(name string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		h(rw, r)
		s.metrics.httpRequestsTotal.WithLabelValues(r.Method, name, strconv.Itoa(rw.status)).Inc()
		s.metrics.httpDurationSeconds.WithLabelValues(r.Method, name).Observe(time.Since(start).Seconds())
	})
}
