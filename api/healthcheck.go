package api

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports whether the catalog storage is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

func (s *server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if s.services.storage != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := s.services.storage.Ping(ctx); err != nil {
			s.logger.Warn("storage healthcheck failed", "request-id", requestID(r.Context()), "error", err)
			s.writeJson(w, http.StatusServiceUnavailable, apiResponse{ //nolint:errcheck
				Success: false,
				Message: "Storage unavailable",
			}, nil)
			return
		}
	}

	s.writeJson(w, http.StatusOK, apiResponse{ //nolint:errcheck
		Success: true,
		Message: "OK",
		Data:    map[string]any{"storage": s.services.storage != nil},
	}, nil)
}
