package api

import (
	"crypto/subtle"
	"net/http"
	"time"
)

const scanSecretHeader = "X-Scan-Secret"

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r, 5*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if s.db != nil {
		checks["postgres"] = "ok"
		if err := s.db.Ping(ctx); err != nil {
			checks["postgres"] = err.Error()
			healthy = false
		}
	}
	if s.cache != nil {
		checks["redis"] = "ok"
		if err := s.cache.Ping(ctx); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		}
	}

	status := http.StatusOK
	state := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}

	respondJSON(w, status, map[string]interface{}{
		"status":  state,
		"service": "auction-indexer",
		"checks":  checks,
	})
}

// handleScan triggers one indexing run and always reports the run summary.
// Partial failures are carried inside the summary rather than surfaced as an
// HTTP error, so schedulers see what the run accomplished before it stopped.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid or missing scan secret", nil)
		return
	}

	summary, err := s.runner.Run(r.Context())
	if err != nil {
		// The run could not start at all. Fold the cause into the summary
		// so the response shape stays the same for callers.
		summary.TotalErrors++
		summary.Errors = append(summary.Errors, err.Error())
	}

	respondJSON(w, http.StatusOK, summary)
}

// authorized checks the shared secret header. An empty configured secret
// disables the check, which is only intended for local development.
func (s *Server) authorized(r *http.Request) bool {
	if s.secret == "" {
		return true
	}
	provided := r.Header.Get(scanSecretHeader)
	return subtle.ConstantTimeCompare([]byte(provided), []byte(s.secret)) == 1
}
