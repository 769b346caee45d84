package controllers

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/gincol-ia/ollama-api/services/ollama"
	"github.com/gincol-ia/ollama-api/sources/redisstore"
	"github.com/gincol-ia/ollama-api/utils/logging"
)

type HealthController struct {
	backend *ollama.Client
	store   *redisstore.Store
}

func NewHealthController(backend *ollama.Client, store *redisstore.Store) *HealthController {
	return &HealthController{backend: backend, store: store}
}

func (c *HealthController) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "online",
		"message": "ollama relay with redis memory is running",
	})
}

// HealthCheck reports composite liveness. An unreachable backend is a
// hard 503; an unreachable store degrades to a 200 warning so the
// relay keeps serving without memory.
func (c *HealthController) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := c.backend.Health(r.Context()); err != nil {
		logging.ErrorLogger.Error("ollama health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"detail": "ollama service is not available",
		})
		return
	}

	if err := c.store.Ping(r.Context()); err != nil {
		logging.ErrorLogger.Error("redis health check failed", zap.Error(err))
		writeJSON(w, http.StatusOK, map[string]any{
			"status":            "warning",
			"ollama_connection": "connected",
			"redis_connection":  "error",
			"redis_error":       err.Error(),
			"message":           "service is running but conversation memory is unavailable",
		})
		return
	}

	ttl := c.store.TTL()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "healthy",
		"ollama_connection": "connected",
		"redis_connection":  "connected",
		"conversation_ttl":  fmt.Sprintf("%.0f seconds (%.1f hours)", ttl.Seconds(), ttl.Hours()),
	})
}
