package tracing

import "testing"

func TestConfigFromEnv_DefaultHost(t *testing.T) {
	t.Setenv("LANGFUSE_HOST", "")
	t.Setenv("LANGFUSE_PUBLIC_KEY", "pk-lf-1")
	t.Setenv("LANGFUSE_SECRET_KEY", "")

	cfg := ConfigFromEnv()
	if cfg.Host != DefaultHost {
		t.Errorf("Host = %q, want %q", cfg.Host, DefaultHost)
	}
	if cfg.Enabled() {
		t.Error("Enabled() = true with only a public key")
	}
}

func TestSetup_DisabledWithoutKeys(t *testing.T) {
	t.Setenv("LANGFUSE_PUBLIC_KEY", "")
	t.Setenv("LANGFUSE_SECRET_KEY", "")

	h, flush, ok := Setup()
	if ok || h != nil || flush != nil {
		t.Errorf("Setup() = %v, %v, %v; want disabled", h, flush != nil, ok)
	}
}
