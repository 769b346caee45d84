package types

import "encoding/json"

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type GenerateRequest struct {
	Prompt         string         `json:"prompt"`
	Model          string         `json:"model,omitempty"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Stream         bool           `json:"stream,omitempty"`
	Options        map[string]any `json:"options,omitempty"`
}

type ChatRequest struct {
	Messages       []ChatMessage  `json:"messages"`
	Model          string         `json:"model,omitempty"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Stream         bool           `json:"stream,omitempty"`
	Options        map[string]any `json:"options,omitempty"`
}

type RenameConversationRequest struct {
	NewName string `json:"new_name"`
}

// ConversationInfo is the directory view of one conversation.
// TimeToLive is seconds remaining before expiry (-1 means no expiry).
type ConversationInfo struct {
	ConversationID string `json:"conversation_id"`
	Model          string `json:"model"`
	MessageCount   int64  `json:"message_count"`
	LastUpdated    string `json:"last_updated"`
	TimeToLive     int64  `json:"time_to_live"`
	DisplayName    string `json:"display_name,omitempty"`
}

// StreamEvent is one downstream relay event. Error events carry only
// the error text and the conversation id; content events carry the
// response fragment and the done flag.
type StreamEvent struct {
	Response       string
	Done           bool
	ConversationID string
	Error          string
}

func (e StreamEvent) MarshalJSON() ([]byte, error) {
	if e.Error != "" {
		return json.Marshal(struct {
			Error          string `json:"error"`
			ConversationID string `json:"conversation_id"`
		}{e.Error, e.ConversationID})
	}
	return json.Marshal(struct {
		Response       string `json:"response"`
		Done           bool   `json:"done"`
		ConversationID string `json:"conversation_id"`
	}{e.Response, e.Done, e.ConversationID})
}
