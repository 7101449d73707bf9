package handlers

import (
	"bytes"
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"coopleo-web/internal/conversation"
	"coopleo-web/internal/middleware"
	"coopleo-web/internal/models"
	"coopleo-web/internal/questionnaire"
	"coopleo-web/internal/render"
	"coopleo-web/internal/repository"
)

type conversationRegistry interface {
	Get(ctx context.Context, id string) (*conversation.Controller, error)
	Do(ctx context.Context, id string, fn func(*conversation.Controller) error) error
}

type tokenIssuer interface {
	SessionToken(sid string) (string, error)
	ConversationFromToken(token string) (string, error)
}

// WebHandler serves the server-rendered screens. Every POST ends in a
// redirect back to a GET page.
type WebHandler struct {
	registry conversationRegistry
	renderer *render.Renderer
	tokens   tokenIssuer
	turns    repository.TurnLog
}

func NewWebHandler(registry conversationRegistry, renderer *render.Renderer, tokens tokenIssuer, turns repository.TurnLog) *WebHandler {
	return &WebHandler{registry: registry, renderer: renderer, tokens: tokens, turns: turns}
}

const missingAnswers = "Merci de répondre à toutes les questions avant de continuer."

// Questionnaire handles GET /.
func (h *WebHandler) Questionnaire(w http.ResponseWriter, r *http.Request) {
	h.page(w, http.StatusOK, func(buf *bytes.Buffer) error {
		return h.renderer.Questionnaire(buf, render.QuestionnairePage{})
	})
}

// SubmitQuestionnaire handles POST /questionnaire: a valid form starts a
// fresh conversation seeded with the answers.
func (h *WebHandler) SubmitQuestionnaire(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	answers, err := questionnaire.FromForm(r.PostForm)
	if err != nil {
		selected := map[string]string{}
		for _, q := range questionnaire.Questions {
			selected[q.Key] = r.PostForm.Get(q.Key)
		}
		h.page(w, http.StatusBadRequest, func(buf *bytes.Buffer) error {
			return h.renderer.Questionnaire(buf, render.QuestionnairePage{Selected: selected, Error: missingAnswers})
		})
		return
	}

	sid := middleware.GetSessionID(r.Context())
	err = h.registry.Do(r.Context(), sid, func(c *conversation.Controller) error {
		return c.Reset(r.Context(), answers.Map())
	})
	if err != nil && !isConversationState(err) {
		h.fail(w, r, err)
		return
	}

	http.Redirect(w, r, answers.URL(), http.StatusSeeOther)
}

// Chat handles GET /chat. The context in the URL is only sent the first time
// the session loads the page.
func (h *WebHandler) Chat(w http.ResponseWriter, r *http.Request) {
	sid := middleware.GetSessionID(r.Context())

	var initial map[string]string
	answers, err := questionnaire.Parse(r.URL.Query())
	switch {
	case err == nil:
		initial = answers.Map()
	case !errors.Is(err, questionnaire.ErrMissingContext):
		log.Printf("Error parsing context: %v", err)
	}

	var view conversation.View
	err = h.registry.Do(r.Context(), sid, func(c *conversation.Controller) error {
		err := c.LoadInitialContext(r.Context(), initial)
		view = c.View()
		return err
	})
	if err != nil && !isConversationState(err) {
		h.fail(w, r, err)
		return
	}

	h.renderChat(w, sid, view)
}

// SendMessage handles POST /chat/message.
func (h *WebHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(c *conversation.Controller) error {
		return c.SendMessage(r.Context(), r.PostForm.Get("message"), false)
	})
}

// Option handles POST /chat/option.
func (h *WebHandler) Option(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(c *conversation.Controller) error {
		return c.RespondToOption(r.Context(), r.PostForm.Get("option"))
	})
}

// Reset handles POST /chat/reset. The questionnaire answers of the session,
// if any, are sent again.
func (h *WebHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(c *conversation.Controller) error {
		return c.Reset(r.Context(), c.State().Context)
	})
}

// EmailPrompt handles GET /chat/email. The modal only opens once the user has
// accepted to receive the recommendations.
func (h *WebHandler) EmailPrompt(w http.ResponseWriter, r *http.Request) {
	sid := middleware.GetSessionID(r.Context())
	c, err := h.registry.Get(r.Context(), sid)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	view := c.View()
	if !view.EmailPromptOpen() {
		http.Redirect(w, r, "/chat", http.StatusSeeOther)
		return
	}
	h.renderChat(w, sid, view)
}

// SubmitEmail handles POST /chat/email.
func (h *WebHandler) SubmitEmail(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(c *conversation.Controller) error {
		return c.SubmitEmail(r.Context(), r.PostForm.Get("email"))
	})
}

// DismissEmail handles POST /chat/email/dismiss.
func (h *WebHandler) DismissEmail(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(c *conversation.Controller) error {
		return c.DismissEmailPrompt(r.Context())
	})
}

// Continue handles GET /continue/{conversationId}, the link sent in the
// recommendations email. It shows the logged transcript read-only to the
// holder of the link token or to the session that owns the conversation.
func (h *WebHandler) Continue(w http.ResponseWriter, r *http.Request) {
	convID := chi.URLParam(r, "conversationId")

	var messages []models.ChatMessage
	if h.turns != nil && convID != "" && h.canRead(r, convID) {
		turns, err := h.turns.ListByConversation(r.Context(), convID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		for _, t := range turns {
			if t.UserMessage != "" {
				messages = append(messages, models.ChatMessage{Role: models.RoleUser, Content: t.UserMessage})
			}
			if t.AssistantMessage != "" {
				messages = append(messages, models.ChatMessage{Role: models.RoleAssistant, Content: t.AssistantMessage})
			}
		}
	}

	status := http.StatusOK
	if len(messages) == 0 {
		status = http.StatusNotFound
	}
	h.page(w, status, func(buf *bytes.Buffer) error {
		return h.renderer.Continue(buf, render.ContinuePage{
			ConversationID: convID,
			Bubbles:        render.Bubbles(messages),
			StartURL:       "/",
		})
	})
}

func (h *WebHandler) canRead(r *http.Request, conversationID string) bool {
	if token := r.URL.Query().Get("token"); token != "" {
		if cid, err := h.tokens.ConversationFromToken(token); err == nil && cid == conversationID {
			return true
		}
	}
	c, err := h.registry.Get(r.Context(), middleware.GetSessionID(r.Context()))
	return err == nil && c.View().ConversationID == conversationID
}

// act runs one controller operation for the current session and redirects
// back to the chat. Conversation state errors (busy, closed, bad address) are
// already reflected in the page the redirect shows.
func (h *WebHandler) act(w http.ResponseWriter, r *http.Request, fn func(*conversation.Controller) error) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	sid := middleware.GetSessionID(r.Context())
	if err := h.registry.Do(r.Context(), sid, fn); err != nil {
		if !isConversationState(err) {
			h.fail(w, r, err)
			return
		}
		log.Printf("session %s: %v", sid, err)
	}

	target := "/chat"
	if c, err := h.registry.Get(r.Context(), sid); err == nil && c.View().EmailPromptOpen() {
		target = "/chat/email"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *WebHandler) renderChat(w http.ResponseWriter, sid string, view conversation.View) {
	token, err := h.tokens.SessionToken(sid)
	if err != nil {
		log.Printf("⚠ Failed to mint live token for %s: %v", sid, err)
	}
	setNoCache(w)
	h.page(w, http.StatusOK, func(buf *bytes.Buffer) error {
		return h.renderer.Chat(buf, render.NewChatPage(view, token))
	})
}

// page renders into a buffer so a template failure can still become a 500.
func (h *WebHandler) page(w http.ResponseWriter, status int, fn func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		log.Printf("✗ Failed to render page: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (h *WebHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	log.Printf("✗ %s %s: %v", r.Method, r.URL.Path, err)
	h.page(w, http.StatusInternalServerError, func(buf *bytes.Buffer) error {
		return h.renderer.Error(buf, "Une erreur est survenue. Veuillez réessayer.")
	})
}

// isConversationState reports errors that describe the conversation rather
// than a failure of the request.
func isConversationState(err error) bool {
	for _, target := range []error{
		conversation.ErrBusy,
		conversation.ErrClosed,
		conversation.ErrAwaitingChoice,
		conversation.ErrEmptyMessage,
		conversation.ErrInvalidEmail,
		conversation.ErrNoRecommendations,
		conversation.ErrStale,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
