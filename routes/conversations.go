package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/gincol-ia/ollama-api/controllers"
)

func ConversationRoutes(ctrl *controllers.ConversationsController) chi.Router {
	r := chi.NewRouter()
	r.Get("/", ctrl.List)
	r.Get("/{conversation_id}", ctrl.Get)
	r.Delete("/{conversation_id}", ctrl.Delete)
	r.Put("/{conversation_id}/rename", ctrl.Rename)
	return r
}
