package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestAuthMiddleware_Disabled verifies that when no API key is configured
// all requests pass through without an Authorization header.
func TestAuthMiddleware_Disabled(t *testing.T) {
	t.Parallel()

	h := authMiddleware("", okHandler)
	req := httptest.NewRequest(http.MethodGet, "/api/trim", nil)
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200 when auth disabled, got %d", w.Code)
	}
}

// TestAuthMiddleware_MissingHeader verifies that a request with no
// Authorization header receives 401 when auth is enabled.
func TestAuthMiddleware_MissingHeader(t *testing.T) {
	t.Parallel()

	h := authMiddleware("secret", okHandler)
	req := httptest.NewRequest(http.MethodGet, "/api/trim", nil)
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if w.Header().Get("WWW-Authenticate") == "" {
		t.Error("expected WWW-Authenticate header on 401")
	}
}

// TestAuthMiddleware_WrongToken verifies that an incorrect Bearer token
// receives 401.
func TestAuthMiddleware_WrongToken(t *testing.T) {
	t.Parallel()

	h := authMiddleware("secret", okHandler)
	req := httptest.NewRequest(http.MethodGet, "/api/trim", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

// TestAuthMiddleware_CorrectToken verifies that a valid Bearer token
// passes through to the downstream handler.
func TestAuthMiddleware_CorrectToken(t *testing.T) {
	t.Parallel()

	h := authMiddleware("secret", okHandler)
	req := httptest.NewRequest(http.MethodGet, "/api/trim", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

// TestAuthMiddleware_CaseInsensitiveScheme verifies that "bearer" (lowercase)
// is accepted as well as "Bearer".
func TestAuthMiddleware_CaseInsensitiveScheme(t *testing.T) {
	t.Parallel()

	h := authMiddleware("secret", okHandler)
	req := httptest.NewRequest(http.MethodGet, "/api/count", nil)
	req.Header.Set("Authorization", "bearer secret")
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with lowercase bearer scheme, got %d", w.Code)
	}
}

// TestAuthMiddleware_MalformedHeader verifies that a non-Bearer Authorization
// header (e.g. Basic auth) is rejected with 401.
func TestAuthMiddleware_MalformedHeader(t *testing.T) {
	t.Parallel()

	h := authMiddleware("secret", okHandler)
	req := httptest.NewRequest(http.MethodGet, "/api/count", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for Basic auth header, got %d", w.Code)
	}
}

// TestBearerToken verifies the bearerToken extraction helper.
func TestBearerToken(t *testing.T) {
	t.Parallel()

	cases := []struct {
		header string
		want   string
	}{
		{"Bearer mytoken", "mytoken"},
		{"bearer mytoken", "mytoken"},
		{"BEARER mytoken", "mytoken"},
		{"Bearer  spaced ", "spaced"},
		{"Basic dXNlcjpwYXNz", ""},
		{"", ""},
		{"Bearer", ""},
		{"token only", ""},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		got := bearerToken(req)
		if got != tc.want {
			t.Errorf("header=%q: expected %q, got %q", tc.header, tc.want, got)
		}
	}
}

// TestAuthMiddleware_ChallengeRealm verifies the realm sent on 401.
func TestAuthMiddleware_ChallengeRealm(t *testing.T) {
	t.Parallel()

	h := authMiddleware("secret", okHandler)
	req := httptest.NewRequest(http.MethodPost, "/api/trim", nil)
	req.Header.Set("Authorization", "Bearer nope")
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	want := `Bearer realm="promptfit" error="invalid_token"`
	if got := w.Header().Get("WWW-Authenticate"); got != want {
		t.Errorf("WWW-Authenticate: expected %q, got %q", want, got)
	}
}

// TestAuth_TrimRoutes verifies every trimming endpoint requires the token
// and the health, ready and metrics endpoints stay open.
func TestAuth_TrimRoutes(t *testing.T) {
	t.Parallel()

	h := newRoutedServer(t, &Config{APIKey: "k3y", RateBurst: 100})

	protected := []struct {
		method, path, body string
		wantWithToken      int
	}{
		{http.MethodPost, "/api/trim", `{"prompt":"some words","budget":50}`, http.StatusOK},
		{http.MethodPost, "/api/trim/batch", `{"prompts":["a","b"],"budget":50}`, http.StatusOK},
		{http.MethodPost, "/api/count", `{"text":"abcdefgh"}`, http.StatusOK},
		// The trim log is not configured, so an authorised caller gets 404.
		{http.MethodGet, "/api/trims", "", http.StatusNotFound},
	}
	for _, tc := range protected {
		if w := call(h, tc.method, tc.path, tc.body, "10.0.0.1", ""); w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without token: expected 401, got %d", tc.method, tc.path, w.Code)
		}
		if w := call(h, tc.method, tc.path, tc.body, "10.0.0.1", "nope"); w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s with wrong token: expected 401, got %d", tc.method, tc.path, w.Code)
		}
		if w := call(h, tc.method, tc.path, tc.body, "10.0.0.1", "k3y"); w.Code != tc.wantWithToken {
			t.Errorf("%s %s with token: expected %d, got %d, body: %s", tc.method, tc.path, tc.wantWithToken, w.Code, w.Body.String())
		}
	}

	for _, path := range []string{"/api/health", "/api/ready", "/metrics"} {
		if w := call(h, http.MethodGet, path, "", "10.0.0.1", ""); w.Code != http.StatusOK {
			t.Errorf("GET %s without token: expected 200, got %d", path, w.Code)
		}
	}
}
