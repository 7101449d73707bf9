package services

import (
	"context"
	"log"
	"strings"

	"coopleo-web/internal/models"
	"coopleo-web/internal/repository"
)

type recommendationsSender interface {
	SendRecommendations(ctx context.Context, msg RecommendationsEmail) (string, error)
	Provider() string
}

// ConversationTokens signs and checks the per-conversation grants carried by
// transcript links.
type ConversationTokens interface {
	ConversationToken(conversationID string) (string, error)
	ConversationFromToken(token string) (string, error)
}

// TranscriptService sends the recommendations email for a conversation.
type TranscriptService struct {
	email      recommendationsSender
	turns      repository.TurnLog
	deliveries repository.DeliveryLog
	tokens     ConversationTokens
}

func NewTranscriptService(email *EmailService, turns repository.TurnLog, deliveries repository.DeliveryLog, tokens ConversationTokens) *TranscriptService {
	return &TranscriptService{email: email, turns: turns, deliveries: deliveries, tokens: tokens}
}

// Send validates the request and delivers the email. When the caller supplies
// neither recommendations nor a prebuilt body, the transcript is rebuilt from
// the turn log, which requires an access token for that conversation.
func (s *TranscriptService) Send(ctx context.Context, req models.TranscriptRequest) (string, error) {
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		return "", &ValidationError{Fields: map[string]string{"email": "Email is required"}}
	}
	if !IsValidEmail(req.Email) {
		return "", &ValidationError{Fields: map[string]string{"email": "Invalid email format"}}
	}

	recommendations := req.FinalRecommendations
	if recommendations == "" && req.EmailContent == "" {
		if !s.authorized(req.ConversationID, req.AccessToken) {
			return "", &ValidationError{Fields: map[string]string{"accessToken": "A valid access token is required to send the logged transcript"}}
		}
		transcript, err := s.transcript(ctx, req.ConversationID)
		if err != nil {
			return "", err
		}
		if transcript == "" {
			return "", &ValidationError{Fields: map[string]string{"finalRecommendations": "Nothing to send for this conversation"}}
		}
		recommendations = transcript
	}

	id, err := s.email.SendRecommendations(ctx, RecommendationsEmail{
		To:                   req.Email,
		Name:                 req.Name,
		Topic:                req.Topic,
		ConversationID:       req.ConversationID,
		FinalRecommendations: recommendations,
		HTML:                 req.EmailContent,
		ContinueToken:        s.continueToken(req.ConversationID),
	})
	if err != nil {
		return "", err
	}

	if s.deliveries != nil {
		d := &models.Delivery{ID: id, ConversationID: req.ConversationID, Recipient: req.Email, Provider: s.email.Provider()}
		if err := s.deliveries.Record(ctx, d); err != nil {
			log.Printf("⚠ Failed to record delivery %s: %v", id, err)
		}
	}
	return id, nil
}

func (s *TranscriptService) authorized(conversationID, token string) bool {
	if conversationID == "" || token == "" || s.tokens == nil {
		return false
	}
	cid, err := s.tokens.ConversationFromToken(token)
	return err == nil && cid == conversationID
}

func (s *TranscriptService) continueToken(conversationID string) string {
	if conversationID == "" || s.tokens == nil {
		return ""
	}
	token, err := s.tokens.ConversationToken(conversationID)
	if err != nil {
		log.Printf("⚠ Failed to sign transcript link for %s: %v", conversationID, err)
		return ""
	}
	return token
}

// transcript renders the logged turns as "role: content" paragraphs.
func (s *TranscriptService) transcript(ctx context.Context, conversationID string) (string, error) {
	if conversationID == "" || s.turns == nil {
		return "", nil
	}
	turns, err := s.turns.ListByConversation(ctx, conversationID)
	if err != nil {
		return "", err
	}

	var parts []string
	for _, t := range turns {
		if t.UserMessage != "" {
			parts = append(parts, models.RoleUser+": "+t.UserMessage)
		}
		if t.AssistantMessage != "" {
			parts = append(parts, models.RoleAssistant+": "+t.AssistantMessage)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}
