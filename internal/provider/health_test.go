package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthChecker_Ollama(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()

	hc := NewHealthChecker(&Config{Backend: BackendOllama, Ollama: ProviderOllama{Host: srv.URL + "/"}}, srv.Client())
	if hc == nil {
		t.Fatal("expected a health checker for ollama")
	}
	if err := hc.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() = %v", err)
	}
}

func TestHealthChecker_AzureSendsKey(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Api-Key") != "az-key" || r.URL.Query().Get("api-version") != "2024-02-01" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := &Config{Backend: BackendAzure, AzureOpenAI: ProviderAzureOpenAI{
		APIKey: "az-key", Endpoint: srv.URL, APIVersion: "2024-02-01",
	}}
	if err := NewHealthChecker(cfg, srv.Client()).HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() = %v", err)
	}
}

func TestHealthChecker_Non2xx(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	hc := NewHealthChecker(&Config{Backend: BackendOllama, Ollama: ProviderOllama{Host: srv.URL}}, srv.Client())
	if err := hc.HealthCheck(context.Background()); err == nil {
		t.Error("expected error for 503")
	}
}

func TestHealthChecker_UnsupportedBackends(t *testing.T) {
	t.Parallel()
	for _, b := range []Backend{BackendArk, BackendGemini} {
		if hc := NewHealthChecker(&Config{Backend: b}, nil); hc != nil {
			t.Errorf("%s: expected nil health checker", b)
		}
	}
}
