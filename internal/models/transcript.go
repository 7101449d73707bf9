package models

import "time"

// TranscriptRequest is the body of POST /api/send-transcript. EmailContent,
// when present, is a prebuilt HTML body and wins over FinalRecommendations.
// AccessToken is only needed to email the logged transcript of a conversation.
type TranscriptRequest struct {
	Email                string `json:"email"`
	ConversationID       string `json:"conversationId"`
	FinalRecommendations string `json:"finalRecommendations,omitempty"`
	EmailContent         string `json:"emailContent,omitempty"`
	Name                 string `json:"name,omitempty"`
	Topic                string `json:"topic,omitempty"`
	AccessToken          string `json:"accessToken,omitempty"`
}

type TranscriptResponse struct {
	Success bool           `json:"success"`
	Data    TranscriptData `json:"data"`
}

type TranscriptData struct {
	ID string `json:"id"`
}

// Turn is one user/assistant exchange kept in the conversation log.
type Turn struct {
	ID               int64     `json:"id"`
	ConversationID   string    `json:"conversation_id"`
	UserMessage      string    `json:"user_message"`
	AssistantMessage string    `json:"assistant_message"`
	CreatedAt        time.Time `json:"created_at"`
}

// Delivery is one recommendations email accepted by a provider.
type Delivery struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Recipient      string    `json:"recipient"`
	Provider       string    `json:"provider"`
	CreatedAt      time.Time `json:"created_at"`
}
