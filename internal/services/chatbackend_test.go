package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"coopleo-web/internal/models"
)

func TestChatBackend_Chat_ForwardsTurn(t *testing.T) {
	var got models.ChatRequest
	var gotQuery, gotCache string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotQuery = r.URL.Query().Get("t")
		gotCache = r.Header.Get("Cache-Control")
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"response":"Bonjour","conversation_id":"abc123","contains_recommendations":false}`))
	}))
	defer srv.Close()

	c := NewChatBackend(srv.URL, 5*time.Second)
	c.now = func() time.Time { return time.UnixMilli(1700000000000) }

	resp, err := c.Chat(context.Background(), models.ChatRequest{
		Message:        "Merci",
		ConversationID: "abc123",
		Context:        map[string]string{"mood": "Heureux"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotQuery != "1700000000000" {
		t.Errorf("expected timestamp query, got %q", gotQuery)
	}
	if gotCache != "no-cache, no-store, must-revalidate" {
		t.Errorf("expected no-cache header, got %q", gotCache)
	}
	if got.Message != "Merci" || got.ConversationID != "abc123" || got.Context["mood"] != "Heureux" {
		t.Errorf("unexpected forwarded body: %+v", got)
	}
	if resp.Response != "Bonjour" || resp.ConversationID != "abc123" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.Suggestions == nil || len(resp.Suggestions) != 0 {
		t.Errorf("expected empty non-nil suggestions, got %#v", resp.Suggestions)
	}
}

func TestChatBackend_Chat_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":"model overloaded"}`))
	}))
	defer srv.Close()

	c := NewChatBackend(srv.URL, 5*time.Second)
	_, err := c.Chat(context.Background(), models.ChatRequest{Message: "x"})

	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upErr.Status != http.StatusBadGateway || upErr.Message != "model overloaded" {
		t.Errorf("unexpected upstream error: %+v", upErr)
	}
}

func TestChatBackend_Chat_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewChatBackend(url, time.Second)
	if _, err := c.Chat(context.Background(), models.ChatRequest{Message: "x"}); err == nil {
		t.Fatal("expected error for unreachable backend")
	}
}

func TestChatBackend_Reset_OmitsEmptyConversationID(t *testing.T) {
	var raw map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reset" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&raw)
		w.Write([]byte(`{"message":"Conversation reset"}`))
	}))
	defer srv.Close()

	c := NewChatBackend(srv.URL, time.Second)
	out, err := c.Reset(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := raw["conversation_id"]; ok {
		t.Errorf("expected conversation_id to be omitted, got %v", raw)
	}
	if string(out) != `{"message":"Conversation reset"}` {
		t.Errorf("expected payload passed through, got %s", out)
	}
}

func TestChatBackend_AutoReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.AutoReplyRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Input != "Je suis fatigué" {
			t.Errorf("unexpected input %q", req.Input)
		}
		w.Write([]byte(`{"suggestions":["Oui","Un peu"]}`))
	}))
	defer srv.Close()

	c := NewChatBackend(srv.URL, time.Second)
	got, err := c.AutoReply(context.Background(), "Je suis fatigué")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[1] != "Un peu" {
		t.Errorf("unexpected suggestions %v", got)
	}
}

func TestUpstreamMessage_FallsBackToText(t *testing.T) {
	if got := upstreamMessage([]byte("  gateway timeout \n")); got != "gateway timeout" {
		t.Errorf("expected trimmed text, got %q", got)
	}
}
