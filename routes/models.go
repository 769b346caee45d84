package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/gincol-ia/ollama-api/controllers"
)

func ModelRoutes(ctrl *controllers.ModelsController) chi.Router {
	r := chi.NewRouter()
	r.Get("/", ctrl.ListModels)
	return r
}
