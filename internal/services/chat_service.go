package services

import (
	"context"
	"encoding/json"
	"log"

	"coopleo-web/internal/models"
	"coopleo-web/internal/repository"
)

// ChatService forwards turns to the chat backend and mirrors each answered
// exchange into the turn log.
type ChatService struct {
	backend *ChatBackend
	turns   repository.TurnLog
}

func NewChatService(backend *ChatBackend, turns repository.TurnLog) *ChatService {
	return &ChatService{backend: backend, turns: turns}
}

func (s *ChatService) Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	resp, err := s.backend.Chat(ctx, req)
	if err != nil {
		return nil, err
	}

	convID := resp.ConversationID
	if convID == "" {
		convID = req.ConversationID
	}
	if convID != "" && s.turns != nil {
		turn := &models.Turn{ConversationID: convID, AssistantMessage: resp.Response}
		// context and closing turns are instructions, not user words
		if !req.IsInitialContext {
			turn.UserMessage = req.Message
		}
		if err := s.turns.Append(ctx, turn); err != nil {
			log.Printf("⚠ Failed to log turn for %s: %v", convID, err)
		}
	}
	return resp, nil
}

func (s *ChatService) Reset(ctx context.Context, conversationID string) (json.RawMessage, error) {
	raw, err := s.backend.Reset(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conversationID != "" && s.turns != nil {
		if err := s.turns.DeleteConversation(ctx, conversationID); err != nil {
			log.Printf("⚠ Failed to clear turn log for %s: %v", conversationID, err)
		}
	}
	return raw, nil
}

func (s *ChatService) AutoReply(ctx context.Context, input string) ([]string, error) {
	return s.backend.AutoReply(ctx, input)
}
