// Package relay orchestrates one generation or chat request: it
// resolves the conversation, persists the inbound turn(s), injects
// stored history into the upstream call, forwards decoded fragments
// tagged with the conversation id, and persists the assistant's full
// response exactly once when the stream completes cleanly.
package relay

import (
	"context"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gincol-ia/ollama-api/services/ollama"
	"github.com/gincol-ia/ollama-api/sources/redisstore"
	"github.com/gincol-ia/ollama-api/utils/logging"
	"github.com/gincol-ia/ollama-api/utils/types"
)

const defaultModel = "gemma3:27b"

type Engine struct {
	store   *redisstore.Store
	backend *ollama.Client
}

func NewEngine(store *redisstore.Store, backend *ollama.Client) *Engine {
	return &Engine{store: store, backend: backend}
}

// GenerateStream relays one prompt request. The returned channel is
// closed after the terminal event; if the caller's context is
// cancelled mid-stream nothing further is persisted.
func (e *Engine) GenerateStream(ctx context.Context, req types.GenerateRequest) <-chan types.StreamEvent {
	id := req.ConversationID
	if id == "" {
		id = uuid.NewString()
		logging.AppLogger.Info("new conversation", zap.String("conversation_id", id))
	}
	model := req.Model
	if model == "" {
		model = defaultModel
	}

	e.saveMessage(ctx, id, "user", req.Prompt, model)

	history, err := e.store.ReadMessages(ctx, id)
	if err != nil {
		logging.ErrorLogger.Error("history read failed, continuing without memory",
			zap.String("conversation_id", id), zap.Error(err))
		history = nil
	}

	prompt := req.Prompt
	if len(history) > 1 {
		prompt = BuildContextPrompt(history[:len(history)-1], req.Prompt)
	}

	params := ollama.GenerateParams{
		Model:   model,
		Prompt:  prompt,
		Stream:  true,
		Options: options(req.Options),
	}

	ch := make(chan types.StreamEvent)
	go func() {
		defer close(ch)
		body, err := e.backend.Generate(ctx, params)
		if err != nil {
			emit(ctx, ch, types.StreamEvent{Error: err.Error(), ConversationID: id})
			return
		}
		defer body.Close()
		e.pump(ctx, ch, ollama.NewDecoder(body, ollama.ModeGenerate), id, model)
	}()
	return ch
}

// ChatStream relays one chat request. Every inbound message is
// persisted in order, then the upstream message list is replaced with
// the full stored history.
func (e *Engine) ChatStream(ctx context.Context, req types.ChatRequest) <-chan types.StreamEvent {
	id := req.ConversationID
	if id == "" {
		id = uuid.NewString()
		logging.AppLogger.Info("new conversation", zap.String("conversation_id", id))
	}
	model := req.Model
	if model == "" {
		model = defaultModel
	}

	for _, msg := range req.Messages {
		e.saveMessage(ctx, id, msg.Role, msg.Content, model)
	}

	messages := req.Messages
	history, err := e.store.ReadMessages(ctx, id)
	if err != nil {
		logging.ErrorLogger.Error("history read failed, continuing without memory",
			zap.String("conversation_id", id), zap.Error(err))
	} else if len(history) > 0 {
		messages = history
	}

	params := ollama.ChatParams{
		Model:    model,
		Messages: messages,
		Stream:   true,
		Options:  options(req.Options),
	}

	ch := make(chan types.StreamEvent)
	go func() {
		defer close(ch)
		body, err := e.backend.Chat(ctx, params)
		if err != nil {
			emit(ctx, ch, types.StreamEvent{Error: err.Error(), ConversationID: id})
			return
		}
		defer body.Close()
		e.pump(ctx, ch, ollama.NewDecoder(body, ollama.ModeChat), id, model)
	}()
	return ch
}

// pump drives the decoder: every fragment is forwarded immediately and
// accumulated; a clean done fragment triggers the single assistant
// write followed by the terminal empty event.
func (e *Engine) pump(ctx context.Context, ch chan<- types.StreamEvent, dec *ollama.Decoder, id, model string) {
	var full strings.Builder
	done := false
	for {
		frag, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			emit(ctx, ch, types.StreamEvent{Error: err.Error(), ConversationID: id})
			return
		}
		full.WriteString(frag.Text)
		done = frag.Done
		if !emit(ctx, ch, types.StreamEvent{Response: frag.Text, Done: frag.Done, ConversationID: id}) {
			return
		}
	}

	if !done {
		return
	}
	if full.Len() > 0 {
		e.saveMessage(ctx, id, "assistant", full.String(), model)
	}
	emit(ctx, ch, types.StreamEvent{Response: "", Done: true, ConversationID: id})
}

// saveMessage logs rather than propagates a failed write: the stream
// keeps flowing, but silent message loss would be undetectable.
func (e *Engine) saveMessage(ctx context.Context, id, role, content, model string) {
	if err := e.store.SaveMessage(ctx, id, role, content, model); err != nil {
		logging.ErrorLogger.Error("message save failed",
			zap.String("conversation_id", id),
			zap.String("role", role),
			zap.Error(err))
	}
}

func emit(ctx context.Context, ch chan<- types.StreamEvent, ev types.StreamEvent) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func options(opts map[string]any) map[string]any {
	if opts == nil {
		opts = map[string]any{"temperature": 0.7}
	}
	return opts
}
