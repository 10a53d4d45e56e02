package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/54b3r/promptfit/internal/store"
	"github.com/54b3r/promptfit/internal/tokenizer"
	"github.com/54b3r/promptfit/internal/trim"
)

// ---------------------------------------------------------------------------
// Test doubles
// ---------------------------------------------------------------------------

// fakeFitter records the budget it was called with and returns canned values.
type fakeFitter struct {
	budget int
	result trim.Result
	err    error
}

func (f *fakeFitter) Fit(prompt string, budget int) (trim.Result, error) {
	f.budget = budget
	if f.err != nil {
		return trim.Result{}, f.err
	}
	res := f.result
	if res.Prompt == "" {
		res.Prompt = prompt
	}
	return res, nil
}

func (f *fakeFitter) TrimAll(_ context.Context, prompts []string, budget, _ int) ([]trim.Result, error) {
	out := make([]trim.Result, len(prompts))
	for i, p := range prompts {
		r, err := f.Fit(p, budget)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

// newTestServer builds a *Server backed by a heuristic-token trimmer and an
// isolated metrics registry.
func newTestServer() *Server {
	t, err := trim.New(tokenizer.Heuristic{})
	if err != nil {
		panic(err)
	}
	return newTestServerWith(t)
}

// newTestServerWith builds a *Server around the given Fitter.
func newTestServerWith(f Fitter) *Server {
	return &Server{
		trimmer: f,
		counter: tokenizer.Heuristic{},
		cfg:     &Config{DefaultBudget: 1000, BatchConcurrency: 2},
		log:     slog.New(slog.DiscardHandler),
		metrics: newServerMetrics(prometheus.NewRegistry()),
	}
}

// post issues a JSON POST to h and returns the recorder.
func post(h http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

// ---------------------------------------------------------------------------
// POST /api/trim
// ---------------------------------------------------------------------------

func TestHandleTrim_FitsBudget(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	prompt := strings.TrimSpace(strings.Repeat("word ", 400)) // 1999 runes, 499 tokens
	body, _ := json.Marshal(trimRequest{Prompt: prompt, Budget: 100})

	w := post(s.handleTrim, "/api/trim", string(body))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body: %s", w.Code, w.Body.String())
	}
	var res trim.Result
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.TokensBefore != 499 {
		t.Errorf("tokensBefore: expected 499, got %d", res.TokensBefore)
	}
	if res.TokensAfter > 100 {
		t.Errorf("tokensAfter: expected <= 100, got %d", res.TokensAfter)
	}
	if !res.Trimmed || res.HardCut {
		t.Errorf("expected trimmed without hard cut, got %+v", res)
	}
	if !strings.HasPrefix(prompt, res.Prompt) {
		t.Error("trimmed prompt is not a prefix of the input")
	}
	if got := testutil.ToFloat64(s.metrics.trimRequestsTotal.WithLabelValues("trim", outcomeTrimmed)); got != 1 {
		t.Errorf("trim_requests_total{trimmed}: expected 1, got %v", got)
	}
}

func TestHandleTrim_EmptyPrompt(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	w := post(s.handleTrim, "/api/trim", `{"prompt":""}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var res trim.Result
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Prompt != "" || res.Trimmed {
		t.Errorf("expected empty unchanged result, got %+v", res)
	}
}

func TestHandleTrim_BudgetResolution(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		body       string
		wantStatus int
		wantBudget int
	}{
		{"absent uses default", `{"prompt":"x"}`, http.StatusOK, 1000},
		{"zero uses default", `{"prompt":"x","budget":0}`, http.StatusOK, 1000},
		{"explicit", `{"prompt":"x","budget":42}`, http.StatusOK, 42},
		{"negative rejected", `{"prompt":"x","budget":-1}`, http.StatusBadRequest, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := &fakeFitter{}
			s := newTestServerWith(f)

			w := post(s.handleTrim, "/api/trim", tc.body)

			if w.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d, body: %s", tc.wantStatus, w.Code, w.Body.String())
			}
			if f.budget != tc.wantBudget {
				t.Errorf("budget: expected %d, got %d", tc.wantBudget, f.budget)
			}
		})
	}
}

func TestHandleTrim_InvalidBody(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	w := post(s.handleTrim, "/api/trim", `{not json`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleTrim_BodyTooLarge(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	body := `{"prompt":"` + strings.Repeat("a", maxBodyBytes+1) + `"}`
	w := post(s.handleTrim, "/api/trim", body)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "exceeds") {
		t.Errorf("expected size error, got %q", w.Body.String())
	}
}

func TestHandleTrim_TrimmerError(t *testing.T) {
	t.Parallel()

	f := &fakeFitter{err: errors.New("tokenizer exploded")}
	s := newTestServerWith(f)

	w := post(s.handleTrim, "/api/trim", `{"prompt":"x"}`)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "exploded") {
		t.Error("internal error detail leaked to client")
	}
	if got := testutil.ToFloat64(s.metrics.trimRequestsTotal.WithLabelValues("trim", outcomeError)); got != 1 {
		t.Errorf("trim_requests_total{error}: expected 1, got %v", got)
	}
}

func TestHandleTrim_RecordsTrimLog(t *testing.T) {
	t.Parallel()

	tl, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = tl.Close() })

	f := &fakeFitter{result: trim.Result{TokensBefore: 50, TokensAfter: 10, Iterations: 1, HardCut: true, Trimmed: true}}
	s := newTestServerWith(f)
	s.cfg.TrimLog = tl

	w := post(s.handleTrim, "/api/trim", `{"prompt":"secret prompt","budget":10}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	entries, err := tl.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.PromptSHA256 != store.HashPrompt("secret prompt") || e.Budget != 10 || !e.HardCut || e.TokensBefore != 50 {
		t.Errorf("unexpected entry: %+v", e)
	}
}

// ---------------------------------------------------------------------------
// POST /api/trim/batch
// ---------------------------------------------------------------------------

func TestHandleTrimBatch_PreservesOrder(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	w := post(s.handleTrimBatch, "/api/trim/batch", `{"prompts":["one","two","three"],"budget":50}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body: %s", w.Code, w.Body.String())
	}
	var resp batchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []string{"one", "two", "three"}
	if len(resp.Results) != len(want) {
		t.Fatalf("expected %d results, got %d", len(want), len(resp.Results))
	}
	for i, r := range resp.Results {
		if r.Prompt != want[i] {
			t.Errorf("result %d: expected %q, got %q", i, want[i], r.Prompt)
		}
	}
}

func TestHandleTrimBatch_Empty(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	w := post(s.handleTrimBatch, "/api/trim/batch", `{"prompts":[]}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"results":[]}` {
		t.Errorf("expected empty results array, got %s", got)
	}
}

func TestHandleTrimBatch_TooMany(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	prompts := make([]string, maxBatchPrompts+1)
	body, _ := json.Marshal(batchRequest{Prompts: prompts})
	w := post(s.handleTrimBatch, "/api/trim/batch", string(body))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleTrimBatch_NegativeBudget(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	w := post(s.handleTrimBatch, "/api/trim/batch", `{"prompts":["a"],"budget":-5}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// POST /api/count, GET /api/trims
// ---------------------------------------------------------------------------

func TestHandleCount(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	w := post(s.handleCount, "/api/count", `{"text":"abcdefgh"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp countResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Tokens != 2 {
		t.Errorf("tokens: expected 2, got %d", resp.Tokens)
	}
}

func TestHandleRecentTrims_Disabled(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/trims", nil)
	w := httptest.NewRecorder()

	s.handleRecentTrims(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestHandleRecentTrims_Limit(t *testing.T) {
	t.Parallel()

	tl, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = tl.Close() })
	for range 3 {
		if _, err := tl.Record(context.Background(), store.Entry{PromptSHA256: "x"}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	s := newTestServer()
	s.cfg.TrimLog = tl

	for _, tc := range []struct {
		query      string
		wantStatus int
		wantLen    int
	}{
		{"", http.StatusOK, 3},
		{"?limit=2", http.StatusOK, 2},
		{"?limit=0", http.StatusBadRequest, 0},
		{"?limit=abc", http.StatusBadRequest, 0},
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/trims"+tc.query, nil)
		w := httptest.NewRecorder()
		s.handleRecentTrims(w, req)

		if w.Code != tc.wantStatus {
			t.Errorf("%q: expected %d, got %d", tc.query, tc.wantStatus, w.Code)
			continue
		}
		if tc.wantStatus != http.StatusOK {
			continue
		}
		var resp trimsResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(resp.Entries) != tc.wantLen {
			t.Errorf("%q: expected %d entries, got %d", tc.query, tc.wantLen, len(resp.Entries))
		}
	}
}

// ---------------------------------------------------------------------------
// Full routing through New
// ---------------------------------------------------------------------------

func TestServer_Routing(t *testing.T) {
	t.Parallel()

	trimmer, err := trim.New(tokenizer.Heuristic{})
	if err != nil {
		t.Fatalf("trim.New: %v", err)
	}
	reg := prometheus.NewRegistry()
	s, err := New(trimmer, tokenizer.Heuristic{}, &Config{
		Logger:          slog.New(slog.DiscardHandler),
		APIKey:          "secret",
		MetricsRegistry: reg,
		MetricsGatherer: reg,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.stopRL)
	h := s.Handler()

	do := func(method, path, body, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.RemoteAddr = "127.0.0.1:4000"
		req.Header.Set("X-Request-ID", "req-123")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	if w := do(http.MethodGet, "/api/health", "", ""); w.Code != http.StatusOK {
		t.Errorf("health without token: expected 200, got %d", w.Code)
	}
	if w := do(http.MethodGet, "/api/ready", "", ""); w.Code != http.StatusOK {
		t.Errorf("ready without token: expected 200, got %d", w.Code)
	}
	if w := do(http.MethodPost, "/api/trim", `{"prompt":"hi"}`, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("trim without token: expected 401, got %d", w.Code)
	}

	w := do(http.MethodPost, "/api/trim", `{"prompt":"hi"}`, "secret")
	if w.Code != http.StatusOK {
		t.Fatalf("trim with token: expected 200, got %d, body: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("X-Request-ID"); got != "req-123" {
		t.Errorf("X-Request-ID: expected req-123, got %q", got)
	}
	if w.Header().Get("X-Promptfit-Version") == "" {
		t.Error("expected X-Promptfit-Version header")
	}

	if w := do(http.MethodGet, "/api/trim", "", "secret"); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/trim: expected 405, got %d", w.Code)
	}

	m := do(http.MethodGet, "/metrics", "", "")
	if m.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", m.Code)
	}
	if !strings.Contains(m.Body.String(), `promptfit_http_requests_total{code="200",handler="trim",method="POST"} 1`) {
		t.Errorf("metrics body missing trim request counter:\n%s", m.Body.String())
	}
}

// newRoutedServer builds a Server through New with a heuristic trimmer and an
// isolated registry, and returns its root handler.
func newRoutedServer(t *testing.T, cfg *Config) http.Handler {
	t.Helper()
	trimmer, err := trim.New(tokenizer.Heuristic{})
	if err != nil {
		t.Fatalf("trim.New: %v", err)
	}
	reg := prometheus.NewRegistry()
	cfg.Logger = slog.New(slog.DiscardHandler)
	cfg.MetricsRegistry = reg
	cfg.MetricsGatherer = reg
	s, err := New(trimmer, tokenizer.Heuristic{}, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.stopRL)
	return s.Handler()
}

// call sends one request from ip to h with an optional Bearer token.
func call(h http.Handler, method, path, body, ip, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = ip + ":5000"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}
