package routes

import (
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"github.com/gincol-ia/ollama-api/controllers"
	"github.com/gincol-ia/ollama-api/utils/types"
)

// RegisterStreamRoutes attaches the relay endpoints at the router
// root: the two SSE endpoints plus a websocket variant that carries
// the same event payloads as frames.
func RegisterStreamRoutes(r chi.Router, ctrl *controllers.StreamController) {
	r.Post("/generate-stream", ctrl.GenerateStream)
	r.Post("/chat-stream", ctrl.ChatStream)

	r.HandleFunc("/stream/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusInternalError, "internal error")

		ctx := r.Context()
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageText {
			conn.Close(websocket.StatusUnsupportedData, "unsupported data")
			return
		}

		var input struct {
			Mode    string          `json:"mode"`
			Request json.RawMessage `json:"request"`
		}
		if err := json.Unmarshal(data, &input); err != nil {
			conn.Write(ctx, websocket.MessageText, []byte(`{"error":"invalid json"}`))
			return
		}

		var events <-chan types.StreamEvent
		switch input.Mode {
		case "generate":
			var req types.GenerateRequest
			if err := json.Unmarshal(input.Request, &req); err != nil || req.Prompt == "" {
				conn.Write(ctx, websocket.MessageText, []byte(`{"error":"invalid generate request"}`))
				return
			}
			events = ctrl.GenerateEvents(ctx, req)
		case "chat":
			var req types.ChatRequest
			if err := json.Unmarshal(input.Request, &req); err != nil || len(req.Messages) == 0 {
				conn.Write(ctx, websocket.MessageText, []byte(`{"error":"invalid chat request"}`))
				return
			}
			events = ctrl.ChatEvents(ctx, req)
		default:
			conn.Write(ctx, websocket.MessageText, []byte(`{"error":"unknown mode"}`))
			return
		}

		for ev := range events {
			frame, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
				return
			}
		}
		conn.Close(websocket.StatusNormalClosure, "")
	})
}
