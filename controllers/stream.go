package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gincol-ia/ollama-api/services/relay"
	"github.com/gincol-ia/ollama-api/utils/types"
)

type StreamController struct {
	engine *relay.Engine
}

func NewStreamController(engine *relay.Engine) *StreamController {
	return &StreamController{engine: engine}
}

func (c *StreamController) GenerateStream(w http.ResponseWriter, r *http.Request) {
	var req types.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Prompt == "" {
		http.Error(w, "prompt is required", http.StatusBadRequest)
		return
	}
	writeSSE(w, r, c.engine.GenerateStream(r.Context(), req))
}

func (c *StreamController) ChatStream(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Messages) == 0 {
		http.Error(w, "messages are required", http.StatusBadRequest)
		return
	}
	writeSSE(w, r, c.engine.ChatStream(r.Context(), req))
}

// GenerateEvents exposes the relay channel for non-SSE transports.
func (c *StreamController) GenerateEvents(ctx context.Context, req types.GenerateRequest) <-chan types.StreamEvent {
	return c.engine.GenerateStream(ctx, req)
}

// ChatEvents exposes the relay channel for non-SSE transports.
func (c *StreamController) ChatEvents(ctx context.Context, req types.ChatRequest) <-chan types.StreamEvent {
	return c.engine.ChatStream(ctx, req)
}

// writeSSE forwards relay events as server-sent events, flushing after
// each one so fragments reach the caller as soon as they decode.
func writeSSE(w http.ResponseWriter, r *http.Request, events <-chan types.StreamEvent) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}
}
