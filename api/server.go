package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/thisisjab/reelbox/metrics"
	"github.com/thisisjab/reelbox/querier"
)

type services struct {
	querier querier.Querier
	storage Pinger
}

type server struct {
	cfg      Config
	logger   *slog.Logger
	services services
}

// NewServer creates the search API server. storage may be nil, in which case
// the healthcheck does not probe it.
func NewServer(cfg Config, logger *slog.Logger, q querier.Querier, storage Pinger) (*server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &server{
		cfg:      cfg.withDefaults(),
		logger:   logger,
		services: services{querier: q, storage: storage},
	}, nil
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/healthcheck", s.healthCheckHandler)
	mux.HandleFunc("POST /api/search", s.searchMediaHandler)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s.requestIDMiddleware(s.recoverPanicMiddleware(s.requestLoggerMiddleware(s.corsMiddleware(metrics.Middleware(mux)))))
}

func (s *server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.routes(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		ErrorLog:     slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info("shutting down server", "addr", s.cfg.Addr)
		if err := srv.Shutdown(context.WithoutCancel(ctx)); err != nil {
			s.logger.Error("failed to shutdown server", "addr", s.cfg.Addr, "error", err)
		}
	}()

	var serverErr error
	if s.cfg.CertFile != "" && s.cfg.KeyFile != "" {
		s.logger.Info("starting server with TLS", "addr", s.cfg.Addr)
		serverErr = srv.ListenAndServeTLS(s.cfg.CertFile, s.cfg.KeyFile)
	} else {
		s.logger.Info("starting server without TLS", "addr", s.cfg.Addr)
		serverErr = srv.ListenAndServe()
	}

	if serverErr != nil && serverErr != http.ErrServerClosed {
		return serverErr
	}

	return nil
}
