package models

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatRequest is the payload accepted by POST /api/chat and forwarded to the
// chat backend.
type ChatRequest struct {
	Message          string            `json:"message"`
	IsInitialContext bool              `json:"isInitialContext"`
	ConversationID   string            `json:"conversation_id,omitempty"`
	Context          map[string]string `json:"context,omitempty"`
}

// ChatResponse is the chat backend reply, passed through unchanged.
type ChatResponse struct {
	Response                string   `json:"response"`
	Suggestions             []string `json:"suggestions"`
	ConversationID          string   `json:"conversation_id"`
	ContainsRecommendations bool     `json:"contains_recommendations"`
	AsksForEmail            bool     `json:"asks_for_email"`
}

type ResetRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
}

type AutoReplyRequest struct {
	Input string `json:"input"`
}

type AutoReplyResponse struct {
	Suggestions []string `json:"suggestions"`
}
