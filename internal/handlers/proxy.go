package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"coopleo-web/internal/models"
)

type chatService interface {
	Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error)
	Reset(ctx context.Context, conversationID string) (json.RawMessage, error)
	AutoReply(ctx context.Context, input string) ([]string, error)
}

type transcriptSender interface {
	Send(ctx context.Context, req models.TranscriptRequest) (string, error)
}

// ProxyHandler exposes the JSON routes the chat UI calls. It holds no
// conversation state: the conversation id always comes from the caller.
type ProxyHandler struct {
	chat        chatService
	transcripts transcriptSender
}

func NewProxyHandler(chat chatService, transcripts transcriptSender) *ProxyHandler {
	return &ProxyHandler{chat: chat, transcripts: transcripts}
}

// Chat handles POST /api/chat.
func (h *ProxyHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("Invalid request body", ""))
		return
	}

	resp, err := h.chat.Chat(r.Context(), req)
	if err != nil {
		log.Printf("Error in chat API: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("Error communicating with AI service", err.Error()))
		return
	}

	setNoCache(w)
	writeJSON(w, http.StatusOK, resp)
}

// Reset handles DELETE /api/chat. The body is optional.
func (h *ProxyHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req models.ResetRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("Invalid request body", ""))
		return
	}

	raw, err := h.chat.Reset(r.Context(), req.ConversationID)
	if err != nil {
		log.Printf("Error in reset API: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResp(err.Error(), ""))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}

// SendTranscript handles POST /api/send-transcript.
func (h *ProxyHandler) SendTranscript(w http.ResponseWriter, r *http.Request) {
	var req models.TranscriptRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("Invalid request body", ""))
		return
	}

	id, err := h.transcripts.Send(r.Context(), req)
	if err != nil {
		log.Printf("Error in /api/send-transcript: %v", err)
		handleServiceError(w, err, "An error occurred sending the transcript")
		return
	}

	writeJSON(w, http.StatusOK, models.TranscriptResponse{Success: true, Data: models.TranscriptData{ID: id}})
}

// AutoReply handles POST /api/auto-reply.
func (h *ProxyHandler) AutoReply(w http.ResponseWriter, r *http.Request) {
	var req models.AutoReplyRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("Invalid request body", ""))
		return
	}
	if strings.TrimSpace(req.Input) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("Input is required", ""))
		return
	}

	suggestions, err := h.chat.AutoReply(r.Context(), req.Input)
	if err != nil {
		log.Printf("Error in /api/auto-reply: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("An error occurred generating the auto-replies", ""))
		return
	}

	writeJSON(w, http.StatusOK, models.AutoReplyResponse{Suggestions: suggestions})
}

func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
