package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/upb/coffee-shop/auth0"
	"github.com/upb/coffee-shop/utils"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Success   bool                   `json:"success"`
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Checks    map[string]interface{} `json:"checks,omitempty"`
}

// DatabaseChecker reports whether the database is reachable
type DatabaseChecker interface {
	HealthCheck(ctx context.Context) error
}

// KeyCacheReporter exposes the signing key cache state
type KeyCacheReporter interface {
	Stats() auth0.KeyCacheStats
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	db     DatabaseChecker
	keys   KeyCacheReporter
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. keys may be nil when token
// verification is not configured.
func NewHealthHandler(db DatabaseChecker, keys KeyCacheReporter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		keys:   keys,
		logger: logger,
	}
}

// HandleHealth handles GET /healthz
// Basic health check - always returns 200 if service is running
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteJSON(w, http.StatusOK, HealthResponse{
		Success:   true,
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleReadiness handles GET /readyz. Only the database gates readiness;
// signing keys are fetched lazily and merely reported.
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]interface{})
	healthy := true

	switch {
	case h.db == nil:
		checks["database"] = "not_configured"
	default:
		if err := h.db.HealthCheck(ctx); err != nil {
			h.logger.Warn("database health check failed", zap.Error(err))
			checks["database"] = "unhealthy"
			healthy = false
		} else {
			checks["database"] = "healthy"
		}
	}

	if h.keys != nil {
		stats := h.keys.Stats()
		jwks := map[string]interface{}{
			"cached":    stats.Cached,
			"key_count": stats.KeyCount,
		}
		if !stats.LastFetch.IsZero() {
			jwks["last_fetch"] = stats.LastFetch.UTC().Format(time.RFC3339)
		}
		checks["jwks"] = jwks
	} else {
		checks["jwks"] = "not_configured"
	}

	status, httpStatus := "healthy", http.StatusOK
	if !healthy {
		status, httpStatus = "unhealthy", http.StatusServiceUnavailable
	}

	if err := utils.WriteJSON(w, httpStatus, HealthResponse{
		Success:   healthy,
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}
