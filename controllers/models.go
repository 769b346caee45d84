package controllers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/gincol-ia/ollama-api/services/ollama"
	"github.com/gincol-ia/ollama-api/utils/logging"
)

type ModelsController struct {
	backend *ollama.Client
}

func NewModelsController(backend *ollama.Client) *ModelsController {
	return &ModelsController{backend: backend}
}

// ListModels passes the backend's model list straight through.
func (c *ModelsController) ListModels(w http.ResponseWriter, r *http.Request) {
	models, err := c.backend.ListModels(r.Context())
	if err != nil {
		logging.ErrorLogger.Error("model listing failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]any{"detail": "failed to fetch models"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": models})
}
