package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/54b3r/promptfit/internal/logging"
	"github.com/54b3r/promptfit/internal/store"
	"github.com/54b3r/promptfit/internal/trim"
)

const (
	// maxBodyBytes caps every JSON request body.
	maxBodyBytes = 10 << 20
	// maxBatchPrompts caps the number of prompts in one batch request.
	maxBatchPrompts = 256
	// defaultRecentTrims is the page size of GET /api/trims without ?limit.
	defaultRecentTrims = 50
	// maxRecentTrims caps ?limit on GET /api/trims.
	maxRecentTrims = 1000
)

// errNegativeBudget is returned to callers that send budget < 0.
var errNegativeBudget = errors.New("budget must not be negative")

// handleTrim handles POST /api/trim.
func (s *Server) handleTrim(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req trimRequest
	if err := decodeJSON(w, r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	budget, err := s.resolveBudget(req.Budget)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	start := time.Now()
	res, err := s.trimmer.Fit(req.Prompt, budget)
	if err != nil {
		s.metrics.trimRequestsTotal.WithLabelValues("trim", outcomeError).Inc()
		log.Error("trim failed", slog.Int("budget", budget), slog.Any("error", err))
		http.Error(w, "trim failed", http.StatusInternalServerError)
		return
	}
	s.observe("trim", res, time.Since(start))
	s.record(r, budget, req.Prompt, res)

	log.Debug("trimmed",
		slog.Int("budget", budget),
		slog.Int("tokens_before", res.TokensBefore),
		slog.Int("tokens_after", res.TokensAfter),
		slog.Int("iterations", res.Iterations),
		slog.Bool("hard_cut", res.HardCut),
	)
	writeJSON(w, log, http.StatusOK, res)
}

// handleTrimBatch handles POST /api/trim/batch. Prompts are trimmed in
// parallel; results keep request order. One failing prompt fails the batch.
func (s *Server) handleTrimBatch(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req batchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Prompts) > maxBatchPrompts {
		http.Error(w, fmt.Sprintf("at most %d prompts per batch", maxBatchPrompts), http.StatusBadRequest)
		return
	}
	budget, err := s.resolveBudget(req.Budget)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	start := time.Now()
	results, err := s.trimmer.TrimAll(r.Context(), req.Prompts, budget, s.cfg.BatchConcurrency)
	if err != nil {
		s.metrics.trimRequestsTotal.WithLabelValues("trim_batch", outcomeError).Inc()
		log.Error("batch trim failed", slog.Int("prompts", len(req.Prompts)), slog.Any("error", err))
		http.Error(w, "trim failed", http.StatusInternalServerError)
		return
	}
	elapsed := time.Since(start)
	for i, res := range results {
		s.observe("trim_batch", res, elapsed)
		s.record(r, budget, req.Prompts[i], res)
	}
	if results == nil {
		results = []trim.Result{}
	}

	writeJSON(w, log, http.StatusOK, batchResponse{Results: results})
}

// handleCount handles POST /api/count.
func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req countRequest
	if err := decodeJSON(w, r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	n, err := s.counter.Count(req.Text)
	if err != nil {
		log.Error("count failed", slog.Any("error", err))
		http.Error(w, "count failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, log, http.StatusOK, countResponse{Tokens: n})
}

// handleRecentTrims handles GET /api/trims?limit=N, newest first.
func (s *Server) handleRecentTrims(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	if s.cfg.TrimLog == nil {
		http.Error(w, "trim log disabled", http.StatusNotFound)
		return
	}

	limit := defaultRecentTrims
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxRecentTrims)
	}

	entries, err := s.cfg.TrimLog.Recent(r.Context(), limit)
	if err != nil {
		log.Error("trim log read failed", slog.Any("error", err))
		http.Error(w, "trim log unavailable", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []store.Entry{}
	}
	writeJSON(w, log, http.StatusOK, trimsResponse{Entries: entries})
}

// resolveBudget applies the server default to 0 and rejects negatives.
func (s *Server) resolveBudget(b int) (int, error) {
	switch {
	case b < 0:
		return 0, errNegativeBudget
	case b == 0:
		return s.cfg.DefaultBudget, nil
	default:
		return b, nil
	}
}

// record appends a trim log entry. Failures are logged and never surface to
// the caller.
func (s *Server) record(r *http.Request, budget int, prompt string, res trim.Result) {
	if s.cfg.TrimLog == nil {
		return
	}
	_, err := s.cfg.TrimLog.Record(r.Context(), store.Entry{
		PromptSHA256: store.HashPrompt(prompt),
		Budget:       budget,
		TokensBefore: res.TokensBefore,
		TokensAfter:  res.TokensAfter,
		Iterations:   res.Iterations,
		HardCut:      res.HardCut,
	})
	if err != nil {
		logging.FromContext(r.Context()).Warn("trim log write failed", slog.Any("error", err))
	}
}

// decodeJSON reads a size-limited JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("request body exceeds %d bytes", maxBodyBytes)
		}
		return errors.New("invalid request body")
	}
	return nil
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("response encode error", slog.Any("error", err))
	}
}
