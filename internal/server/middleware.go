package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/54b3r/promptfit/internal/logging"
	"github.com/54b3r/promptfit/internal/version"
)

// headerRequestID carries the request ID in both directions.
const headerRequestID = "X-Request-ID"

// headerVersion reports the server build on every response.
const headerVersion = "X-Promptfit-Version"

// maxRequestIDLen bounds a caller-supplied request ID before it reaches logs.
const maxRequestIDLen = 64

// requestLogger is an [http.Handler] middleware that:
//  1. Reuses the caller's X-Request-ID or generates a UUID.
//  2. Injects a child [*slog.Logger] carrying that ID into the request context.
//  3. Echoes the ID and server version as response headers.
//  4. Logs method, path, status code, and latency on completion.
func requestLogger(base *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(headerRequestID)
		if reqID == "" || len(reqID) > maxRequestIDLen {
			reqID = uuid.NewString()
		}

		log := base.With(
			slog.String("request_id", reqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)

		ctx := logging.WithLogger(r.Context(), log)
		r = r.WithContext(ctx)

		w.Header().Set(headerRequestID, reqID)
		w.Header().Set(headerVersion, version.Version)
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		start := time.Now()
		next.ServeHTTP(rw, r)
		elapsed := time.Since(start)

		log.Info("request",
			slog.Int("status", rw.status),
			slog.Duration("duration", elapsed),
		)
	})
}

// responseWriter wraps [http.ResponseWriter] to capture the status code
// written by the handler so the middleware can log it.
type responseWriter struct {
	http.ResponseWriter
	// status is the HTTP status code sent to the client.
	status int
}

// WriteHeader captures the status code before delegating to the underlying writer.
func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
