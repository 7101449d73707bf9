package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"coopleo-web/internal/models"
)

// ChatBackend talks to the conversational backend. It keeps no conversation
// state: every call carries the caller's conversation id.
type ChatBackend struct {
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

func NewChatBackend(baseURL string, timeout time.Duration) *ChatBackend {
	return &ChatBackend{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

// Chat forwards one turn to POST /chat. A timestamp query parameter and the
// no-cache headers keep intermediaries from replaying an old answer.
func (c *ChatBackend) Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	url := c.baseURL + "/chat?t=" + strconv.FormatInt(c.now().UnixMilli(), 10)

	var resp models.ChatResponse
	if err := c.post(ctx, url, req, noCacheHeaders, &resp); err != nil {
		return nil, err
	}
	if resp.Suggestions == nil {
		resp.Suggestions = []string{}
	}
	return &resp, nil
}

// Reset asks the backend to drop a conversation. The payload is returned
// verbatim since its shape belongs to the backend.
func (c *ChatBackend) Reset(ctx context.Context, conversationID string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.post(ctx, c.baseURL+"/reset", models.ResetRequest{ConversationID: conversationID}, nil, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	return raw, nil
}

func (c *ChatBackend) AutoReply(ctx context.Context, input string) ([]string, error) {
	var resp models.AutoReplyResponse
	if err := c.post(ctx, c.baseURL+"/auto-reply", models.AutoReplyRequest{Input: input}, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Suggestions == nil {
		resp.Suggestions = []string{}
	}
	return resp.Suggestions, nil
}

var noCacheHeaders = map[string]string{
	"Cache-Control": "no-cache, no-store, must-revalidate",
	"Pragma":        "no-cache",
	"Expires":       "0",
}

func (c *ChatBackend) post(ctx context.Context, url string, body interface{}, headers map[string]string, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("chat backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read chat backend response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &UpstreamError{Status: resp.StatusCode, Message: upstreamMessage(data)}
	}

	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode chat backend response: %w", err)
	}
	return nil
}

// upstreamMessage picks the error field out of a JSON error body, falling back
// to the raw text.
func upstreamMessage(data []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		return body.Error
	}
	const max = 200
	if len(data) > max {
		data = data[:max]
	}
	return string(bytes.TrimSpace(data))
}
