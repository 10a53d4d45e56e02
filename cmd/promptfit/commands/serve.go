package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/54b3r/promptfit/internal/logging"
	"github.com/54b3r/promptfit/internal/provider"
	"github.com/54b3r/promptfit/internal/server"
	"github.com/54b3r/promptfit/internal/store"
)

// newServeCmd constructs the `promptfit serve` command, which starts the
// HTTP API.
func newServeCmd(a *app) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the promptfit HTTP API",
		Long: `Start the promptfit HTTP API.

Endpoints:
  POST /api/trim         {"prompt": "...", "budget": 100}
  POST /api/trim/batch   {"prompts": ["...", "..."], "budget": 100}
  POST /api/count        {"text": "..."}
  GET  /api/trims        recent trim log entries
  GET  /api/health       liveness
  GET  /api/ready        readiness (trim log, LLM backend when MODEL_PROVIDER is set)
  GET  /metrics          Prometheus metrics

Examples:
  promptfit serve
  promptfit serve --port 9090
  PROMPTFIT_API_KEY=s3cret CONTEXT_SIZE=32000 promptfit serve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := a.log
			ctx = logging.WithLogger(ctx, log)
			s := a.settings

			if !cmd.Flags().Changed("host") {
				host = s.Host
			}
			if !cmd.Flags().Changed("port") {
				port = s.Port
			}

			trimmer, counter, err := a.newTrimmer()
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			log.Info("serve starting",
				slog.String("tokenizer", s.TokenizerBackend),
				slog.String("encoding", s.TokenizerEncoding),
				slog.Int("context_size", s.ContextSize),
			)

			var pingers []server.Pinger

			var trimLog store.TrimLog
			if ts := openTrimLog(s.TrimDBPath, s.TrimLogDisabled(), log); ts != nil {
				defer func() { _ = ts.Close() }()
				trimLog = ts
				pingers = append(pingers, ts)
			}

			if p := llmPinger(log); p != nil {
				pingers = append(pingers, p)
			}

			srv, err := server.New(trimmer, counter, &server.Config{
				Host:          host,
				Port:          port,
				Logger:        log,
				Pingers:       pingers,
				RateLimit:     s.RateLimit,
				RateBurst:     s.RateBurst,
				APIKey:        s.APIKey,
				DefaultBudget: s.ContextSize,
				TrimLog:       trimLog,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to (default: PROMPTFIT_HOST)")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on (default: PROMPTFIT_PORT)")

	return cmd
}

// openTrimLog opens the SQLite trim log. PROMPTFIT_TRIM_DB overrides the
// default path (~/.promptfit/trims.db); "disabled" turns it off. Any failure
// disables the log with a warning rather than stopping the server.
func openTrimLog(path string, disabled bool, log *slog.Logger) *store.SQLiteStore {
	if disabled {
		log.Info("trimlog: disabled via PROMPTFIT_TRIM_DB=disabled")
		return nil
	}
	if path == "" {
		var err error
		path, err = store.DefaultDBPath()
		if err != nil {
			log.Warn("trimlog: could not resolve default DB path, disabling", slog.Any("error", err))
			return nil
		}
	}
	ts, err := store.Open(path)
	if err != nil {
		log.Warn("trimlog: failed to open store, disabling", slog.Any("error", err))
		return nil
	}
	log.Info("trimlog: store opened", slog.String("path", path))
	return ts
}

// llmPinger returns a readiness probe for the model backend when
// MODEL_PROVIDER is set and the backend has a zero-cost health endpoint.
func llmPinger(log *slog.Logger) server.Pinger {
	if os.Getenv("MODEL_PROVIDER") == "" {
		return nil
	}
	cfg := provider.ConfigFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Warn("readiness: model provider misconfigured, skipping LLM probe", slog.Any("error", err))
		return nil
	}
	hc := provider.NewHealthChecker(cfg, nil)
	if hc == nil {
		log.Info("readiness: no health endpoint for backend, skipping LLM probe", slog.String("provider", string(cfg.Backend)))
		return nil
	}
	return server.NewLLMPinger(hc, string(cfg.Backend))
}
