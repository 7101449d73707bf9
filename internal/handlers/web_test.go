package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"coopleo-web/internal/conversation"
	"coopleo-web/internal/middleware"
	"coopleo-web/internal/models"
	"coopleo-web/internal/render"
	"coopleo-web/internal/repository"
	"coopleo-web/internal/session"
)

const testSessionID = "6f1c7c0e-6a43-4c2e-9c59-4a1a3f0f9b11"

type scriptedBackend struct {
	mu       sync.Mutex
	requests []models.ChatRequest
	replies  []*models.ChatResponse
}

func (b *scriptedBackend) Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, req)
	if len(b.replies) == 0 {
		return &models.ChatResponse{Response: "D'accord.", Suggestions: []string{}}, nil
	}
	resp := b.replies[0]
	b.replies = b.replies[1:]
	return resp, nil
}

func (b *scriptedBackend) Reset(ctx context.Context, id string) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

type recordingMailer struct {
	sent []models.TranscriptRequest
}

func (m *recordingMailer) Send(ctx context.Context, req models.TranscriptRequest) (string, error) {
	m.sent = append(m.sent, req)
	return "id-1", nil
}

type webFixture struct {
	handler  *WebHandler
	backend  *scriptedBackend
	mailer   *recordingMailer
	turns    *repository.MemoryTurnLog
	registry *session.Registry
	sessions *middleware.Sessions
}

func newWebFixture(t *testing.T, replies ...*models.ChatResponse) *webFixture {
	t.Helper()
	renderer, err := render.New()
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}
	backend := &scriptedBackend{replies: replies}
	mailer := &recordingMailer{}
	turns := repository.NewMemoryTurnLog()
	registry := session.NewRegistry(session.NewMemoryStore(), backend, mailer, conversation.Options{}, nil)
	sessions := middleware.NewSessions("secret", time.Hour, false)

	return &webFixture{
		handler:  NewWebHandler(registry, renderer, sessions, turns),
		backend:  backend,
		mailer:   mailer,
		turns:    turns,
		registry: registry,
		sessions: sessions,
	}
}

func sessionRequest(method, target string, form url.Values) *http.Request {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	return req.WithContext(middleware.WithSessionID(req.Context(), testSessionID))
}

func TestWebQuestionnairePage(t *testing.T) {
	f := newWebFixture(t)
	rr := httptest.NewRecorder()
	f.handler.Questionnaire(rr, sessionRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `action="/questionnaire"`) {
		t.Errorf("expected questionnaire form")
	}
}

func TestWebSubmitQuestionnaire_Invalid(t *testing.T) {
	f := newWebFixture(t)
	rr := httptest.NewRecorder()
	f.handler.SubmitQuestionnaire(rr, sessionRequest(http.MethodPost, "/questionnaire", url.Values{"state": {"Stable"}}))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "toutes les questions") {
		t.Errorf("expected validation notice")
	}
	if len(f.backend.requests) != 0 {
		t.Errorf("invalid form must not reach the backend")
	}
}

func TestWebQuestionnaireToChat(t *testing.T) {
	f := newWebFixture(t,
		&models.ChatResponse{Response: "Bonjour, parlons de confiance.", Suggestions: []string{}, ConversationID: "abc123"},
	)
	form := url.Values{"state": {"Stable"}, "mood": {"Heureux"}, "location": {"Maison"}, "topic": {"Confiance"}}

	rr := httptest.NewRecorder()
	f.handler.SubmitQuestionnaire(rr, sessionRequest(http.MethodPost, "/questionnaire", form))
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rr.Code)
	}
	location := rr.Header().Get("Location")
	if !strings.HasPrefix(location, "/chat?context=") {
		t.Fatalf("unexpected redirect %q", location)
	}
	if len(f.backend.requests) != 1 || !f.backend.requests[0].IsInitialContext {
		t.Fatalf("expected the context turn, got %+v", f.backend.requests)
	}

	rr = httptest.NewRecorder()
	f.handler.Chat(rr, sessionRequest(http.MethodGet, location, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if len(f.backend.requests) != 1 {
		t.Fatalf("context must only be sent once, got %d requests", len(f.backend.requests))
	}
	body := rr.Body.String()
	if !strings.Contains(body, "parlons de confiance") {
		t.Errorf("expected assistant reply in page")
	}
	if strings.Contains(body, `name="option"`) {
		t.Errorf("no suggestion buttons expected")
	}
}

func TestWebChatGreeting(t *testing.T) {
	f := newWebFixture(t)
	rr := httptest.NewRecorder()
	f.handler.Chat(rr, sessionRequest(http.MethodGet, "/chat", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Quel est votre nom") {
		t.Errorf("expected greeting")
	}
}

func TestWebEmailFlow(t *testing.T) {
	f := newWebFixture(t,
		&models.ChatResponse{Response: "Voici mes recommandations finales :\n• Parler", ContainsRecommendations: true, ConversationID: "abc123"},
		&models.ChatResponse{Response: "Au revoir !"},
	)
	h := f.handler

	rr := httptest.NewRecorder()
	h.SendMessage(rr, sessionRequest(http.MethodPost, "/chat/message", url.Values{"message": {"Merci"}}))
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/chat" {
		t.Fatalf("expected redirect to /chat, got %d %q", rr.Code, rr.Header().Get("Location"))
	}

	rr = httptest.NewRecorder()
	h.Chat(rr, sessionRequest(http.MethodGet, "/chat", nil))
	if n := strings.Count(rr.Body.String(), `name="option"`); n != 2 {
		t.Fatalf("expected the two opt-in buttons, got %d", n)
	}

	rr = httptest.NewRecorder()
	h.Option(rr, sessionRequest(http.MethodPost, "/chat/option", url.Values{"option": {conversation.OptInYes}}))
	if rr.Header().Get("Location") != "/chat/email" {
		t.Fatalf("expected redirect to the email prompt, got %q", rr.Header().Get("Location"))
	}

	rr = httptest.NewRecorder()
	h.EmailPrompt(rr, sessionRequest(http.MethodGet, "/chat/email", nil))
	if !strings.Contains(rr.Body.String(), `action="/chat/email"`) {
		t.Fatalf("expected email modal")
	}

	rr = httptest.NewRecorder()
	h.SubmitEmail(rr, sessionRequest(http.MethodPost, "/chat/email", url.Values{"email": {"pas-valide"}}))
	if rr.Header().Get("Location") != "/chat/email" {
		t.Fatalf("invalid address should keep the prompt open, got %q", rr.Header().Get("Location"))
	}
	if len(f.mailer.sent) != 0 {
		t.Fatalf("invalid address must not send")
	}

	rr = httptest.NewRecorder()
	h.SubmitEmail(rr, sessionRequest(http.MethodPost, "/chat/email", url.Values{"email": {"user@example.com"}}))
	if rr.Header().Get("Location") != "/chat" {
		t.Fatalf("expected redirect to /chat, got %q", rr.Header().Get("Location"))
	}
	if len(f.mailer.sent) != 1 || f.mailer.sent[0].ConversationID != "abc123" {
		t.Fatalf("expected one email for abc123, got %+v", f.mailer.sent)
	}

	rr = httptest.NewRecorder()
	h.Chat(rr, sessionRequest(http.MethodGet, "/chat", nil))
	body := rr.Body.String()
	if !strings.Contains(body, "Au revoir") || !strings.Contains(body, "La conversation est terminée") {
		t.Errorf("expected closed conversation with goodbye")
	}
}

func TestWebEmailPromptRedirectsWhenClosed(t *testing.T) {
	f := newWebFixture(t)
	rr := httptest.NewRecorder()
	f.handler.EmailPrompt(rr, sessionRequest(http.MethodGet, "/chat/email", nil))
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/chat" {
		t.Fatalf("expected redirect to /chat, got %d %q", rr.Code, rr.Header().Get("Location"))
	}
}

func TestWebContinue(t *testing.T) {
	f := newWebFixture(t)
	_ = f.turns.Append(context.Background(), &models.Turn{ConversationID: "abc123", UserMessage: "Merci", AssistantMessage: "Avec plaisir"})

	token, err := f.sessions.ConversationToken("abc123")
	if err != nil {
		t.Fatalf("ConversationToken: %v", err)
	}
	otherToken, _ := f.sessions.ConversationToken("other")

	tests := []struct {
		name  string
		id    string
		token string
		want  int
	}{
		{name: "link token", id: "abc123", token: token, want: http.StatusOK},
		{name: "no token", id: "abc123", want: http.StatusNotFound},
		{name: "token for another conversation", id: "abc123", token: otherToken, want: http.StatusNotFound},
		{name: "forged token", id: "abc123", token: "abc.def.ghi", want: http.StatusNotFound},
		{name: "unknown conversation", id: "unknown", token: token, want: http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			f.handler.Continue(rr, continueRequest(tc.id, tc.token))
			if rr.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rr.Code)
			}
			body := rr.Body.String()
			if tc.want == http.StatusOK && !strings.Contains(body, "Avec plaisir") {
				t.Errorf("expected transcript in page")
			}
			if tc.want != http.StatusOK && strings.Contains(body, "Avec plaisir") {
				t.Errorf("transcript must not be shown")
			}
		})
	}
}

func TestWebContinue_OwningSession(t *testing.T) {
	f := newWebFixture(t)
	ctx := context.Background()
	_ = f.turns.Append(ctx, &models.Turn{ConversationID: "abc123", AssistantMessage: "Avec plaisir"})
	_ = f.registry.Do(ctx, testSessionID, func(c *conversation.Controller) error {
		c.Restore(conversation.State{ConversationID: "abc123"})
		return nil
	})

	rr := httptest.NewRecorder()
	f.handler.Continue(rr, continueRequest("abc123", ""))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Avec plaisir") {
		t.Fatalf("expected the owning session to read its transcript, got %d", rr.Code)
	}
}

func continueRequest(id, token string) *http.Request {
	target := "/continue/" + id
	if token != "" {
		target += "?token=" + url.QueryEscape(token)
	}
	req := sessionRequest(http.MethodGet, target, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("conversationId", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}
