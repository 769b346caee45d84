package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/gincol-ia/ollama-api/sources/redisstore"
	"github.com/gincol-ia/ollama-api/utils/logging"
	"github.com/gincol-ia/ollama-api/utils/types"
)

type ConversationsController struct {
	store *redisstore.Store
}

func NewConversationsController(store *redisstore.Store) *ConversationsController {
	return &ConversationsController{store: store}
}

// List enumerates all conversations. Ids whose metadata expired
// between enumeration and fetch are skipped; a store outage degrades
// to an empty list.
func (c *ConversationsController) List(w http.ResponseWriter, r *http.Request) {
	conversations := []types.ConversationInfo{}

	ids, err := c.store.ListIDs(r.Context())
	if err != nil {
		logging.ErrorLogger.Error("conversation listing failed", zap.Error(err))
		writeJSON(w, http.StatusOK, map[string]any{"conversations": conversations})
		return
	}

	for _, id := range ids {
		info, err := c.info(r.Context(), id)
		if err != nil {
			continue
		}
		conversations = append(conversations, info)
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": conversations})
}

func (c *ConversationsController) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversation_id")

	info, err := c.info(r.Context(), id)
	if err != nil {
		notFound(w, id)
		return
	}
	messages, err := c.store.ReadMessages(r.Context(), id)
	if err != nil {
		logging.ErrorLogger.Error("message read failed", zap.String("conversation_id", id), zap.Error(err))
		messages = []types.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"info":     info,
		"messages": messages,
	})
}

func (c *ConversationsController) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversation_id")

	if err := c.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, redisstore.ErrNotFound) {
			notFound(w, id)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	logging.AppLogger.Info("conversation deleted", zap.String("conversation_id", id))
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "conversation " + id + " deleted",
	})
}

func (c *ConversationsController) Rename(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversation_id")

	var req types.RenameConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.NewName == "" {
		http.Error(w, "new_name is required", http.StatusBadRequest)
		return
	}

	if err := c.store.SetDisplayName(r.Context(), id, req.NewName); err != nil {
		if errors.Is(err, redisstore.ErrNotFound) {
			notFound(w, id)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "success",
		"message":         "conversation renamed to '" + req.NewName + "'",
		"conversation_id": id,
		"new_name":        req.NewName,
	})
}

func (c *ConversationsController) info(ctx context.Context, id string) (types.ConversationInfo, error) {
	meta, ttl, err := c.store.ReadMetadata(ctx, id)
	if err != nil {
		return types.ConversationInfo{}, err
	}
	count, err := c.store.MessageCount(ctx, id)
	if err != nil {
		return types.ConversationInfo{}, err
	}

	model := meta.Model
	if model == "" {
		model = "unknown"
	}
	updated := time.Unix(int64(meta.UpdatedAt), 0)

	return types.ConversationInfo{
		ConversationID: id,
		Model:          model,
		MessageCount:   count,
		LastUpdated:    updated.Format("2006-01-02 15:04:05"),
		TimeToLive:     ttl,
		DisplayName:    meta.DisplayName,
	}, nil
}

func notFound(w http.ResponseWriter, id string) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"detail": "conversation " + id + " not found",
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
