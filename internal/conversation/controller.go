package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"sync"

	"coopleo-web/internal/models"
	"coopleo-web/internal/services"
)

var (
	ErrBusy              = errors.New("conversation: a message is already being answered")
	ErrClosed            = errors.New("conversation: conversation is closed")
	ErrAwaitingChoice    = errors.New("conversation: waiting for the email choice")
	ErrEmptyMessage      = errors.New("conversation: message is empty")
	ErrInvalidEmail      = errors.New("conversation: invalid email address")
	ErrNoRecommendations = errors.New("conversation: no final recommendations in history")
	ErrStale             = errors.New("conversation: reply belongs to a reset conversation")
)

// Backend is the chat service the controller talks to.
type Backend interface {
	Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error)
	Reset(ctx context.Context, conversationID string) (json.RawMessage, error)
}

// Mailer delivers the recommendations email.
type Mailer interface {
	Send(ctx context.Context, req models.TranscriptRequest) (string, error)
}

// NotifyFunc receives live events (typing started, message appended).
type NotifyFunc func(event models.LiveEvent)

type Options struct {
	// KeepSuggestionsAfterFreeText leaves the pending quick replies in place
	// while a typed message is being answered.
	KeepSuggestionsAfterFreeText bool
	// ShowContextTurn adds the questionnaire payload to the visible history.
	ShowContextTurn bool
}

// State is the persisted part of a conversation.
type State struct {
	Messages       []models.ChatMessage `json:"messages"`
	Suggestions    []string             `json:"suggestions"`
	ConversationID string               `json:"conversation_id,omitempty"`
	Context        map[string]string    `json:"context,omitempty"`
	Phase          Phase                `json:"phase"`
	ContextSent    bool                 `json:"context_sent"`
	AsksForEmail   bool                 `json:"asks_for_email"`
	EmailNotice    string               `json:"email_notice,omitempty"`
	Generation     uint64               `json:"generation"`
}

// View is an immutable snapshot handed to the renderer.
type View struct {
	Messages       []models.ChatMessage
	Suggestions    []string
	ConversationID string
	Context        map[string]string
	Phase          Phase
	Typing         bool
	EmailNotice    string
}

func (v View) EmailPromptOpen() bool {
	return v.Phase == PhaseAwaitingEmailAddress
}

func (v View) InputDisabled() bool {
	return v.Typing || !v.Phase.AcceptsFreeText()
}

type turnKind int

const (
	turnUser       turnKind = iota // typed by the user
	turnSuggestion                 // quick reply clicked
	turnContext                    // questionnaire payload, hidden by default
	turnClosing                    // invisible goodbye request, allowed when closed
)

// Controller sequences one browser session's conversation. At most one
// request is in flight at a time.
type Controller struct {
	backend Backend
	mailer  Mailer
	opts    Options
	notify  NotifyFunc

	mu     sync.Mutex
	state  State
	typing bool
}

func NewController(backend Backend, mailer Mailer, opts Options, notify NotifyFunc) *Controller {
	return &Controller{
		backend: backend,
		mailer:  mailer,
		opts:    opts,
		notify:  notify,
		state:   State{Phase: PhaseActive},
	}
}

// Restore replaces the controller state, typically with one loaded from a
// session store.
func (c *Controller) Restore(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.Phase == "" {
		s.Phase = PhaseActive
	}
	c.state = cloneState(s)
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneState(c.state)
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := cloneState(c.state)
	return View{
		Messages:       s.Messages,
		Suggestions:    s.Suggestions,
		ConversationID: s.ConversationID,
		Context:        s.Context,
		Phase:          s.Phase,
		Typing:         c.typing,
		EmailNotice:    s.EmailNotice,
	}
}

// SendMessage sends one turn. Context turns carry the questionnaire payload
// and stay out of the visible history unless ShowContextTurn is set.
func (c *Controller) SendMessage(ctx context.Context, text string, isContextTurn bool) error {
	kind := turnUser
	if isContextTurn {
		kind = turnContext
	}
	return c.send(ctx, text, kind)
}

// RespondToOption handles a quick-reply click.
func (c *Controller) RespondToOption(ctx context.Context, text string) error {
	c.mu.Lock()
	if c.typing {
		c.mu.Unlock()
		return ErrBusy
	}

	switch c.state.Phase {
	case PhaseAwaitingEmailOptIn:
		c.state.Suggestions = nil
		if isYes(text) {
			c.state.Phase = PhaseAwaitingEmailAddress
			c.state.EmailNotice = ""
			c.mu.Unlock()
			c.emit(models.LiveEvent{Type: "phase", Payload: PhaseAwaitingEmailAddress})
			return nil
		}
		c.mu.Unlock()
		return c.send(ctx, ClosingPrompt, turnClosing)
	case PhaseClosed, PhaseAwaitingEmailAddress:
		c.mu.Unlock()
		return ErrClosed
	}

	c.mu.Unlock()
	return c.send(ctx, text, turnSuggestion)
}

// SubmitEmail validates the address, extracts the final recommendations from
// history and hands them to the mailer. Leaving the email prompt, whatever the
// outcome, closes the conversation with an invisible goodbye turn.
func (c *Controller) SubmitEmail(ctx context.Context, address string) error {
	address = strings.TrimSpace(address)

	c.mu.Lock()
	if c.typing {
		c.mu.Unlock()
		return ErrBusy
	}
	switch c.state.Phase {
	case PhaseAwaitingEmailAddress:
	case PhaseClosed:
		c.mu.Unlock()
		return ErrClosed
	default:
		c.mu.Unlock()
		return ErrAwaitingChoice
	}
	if !services.IsValidEmail(address) {
		c.state.EmailNotice = InvalidEmailNotice
		c.mu.Unlock()
		return ErrInvalidEmail
	}

	recommendations, ok := FinalRecommendations(c.state.Messages)
	if !ok {
		c.state.EmailNotice = ""
		c.state.Phase = PhaseActive
		c.state.Suggestions = nil
		c.state.Messages = append(c.state.Messages, assistantMessage(MissingRecommendations))
		c.mu.Unlock()
		c.emit(models.LiveEvent{Type: "message"})
		return ErrNoRecommendations
	}

	req := models.TranscriptRequest{
		Email:                address,
		ConversationID:       c.state.ConversationID,
		FinalRecommendations: recommendations,
		Topic:                topicOf(c.state.Context),
	}
	gen := c.state.Generation
	c.typing = true
	c.state.EmailNotice = ""
	c.mu.Unlock()
	c.emit(models.LiveEvent{Type: "typing"})

	_, sendErr := c.mailer.Send(ctx, req)

	c.mu.Lock()
	if gen != c.state.Generation {
		c.mu.Unlock()
		return ErrStale
	}
	c.typing = false
	if sendErr != nil {
		log.Printf("conversation %s: failed to send recommendations email: %v", req.ConversationID, sendErr)
		c.state.Messages = append(c.state.Messages, assistantMessage(EmailFailed))
	} else {
		c.state.Messages = append(c.state.Messages, assistantMessage(EmailSent))
	}
	c.state.Phase = PhaseClosed
	c.state.Suggestions = nil
	c.mu.Unlock()
	c.emit(models.LiveEvent{Type: "message"})

	return c.send(ctx, ClosingPrompt, turnClosing)
}

// DismissEmailPrompt closes the email modal without sending anything.
func (c *Controller) DismissEmailPrompt(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Phase != PhaseAwaitingEmailAddress {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	return c.send(ctx, ClosingPrompt, turnClosing)
}

// LoadInitialContext sends the questionnaire context once per session. With
// no context, an empty conversation is seeded with the greeting instead.
func (c *Controller) LoadInitialContext(ctx context.Context, initial map[string]string) error {
	c.mu.Lock()
	if c.state.ContextSent {
		c.mu.Unlock()
		return nil
	}
	if len(initial) == 0 {
		if len(c.state.Messages) == 0 {
			c.state.Messages = []models.ChatMessage{assistantMessage(Greeting)}
		}
		c.mu.Unlock()
		return nil
	}
	c.state.ContextSent = true
	c.state.Context = cloneMap(initial)
	c.mu.Unlock()

	payload, err := json.Marshal(initial)
	if err != nil {
		return err
	}

	err = c.send(ctx, string(payload), turnContext)
	if errors.Is(err, ErrBusy) {
		c.mu.Lock()
		c.state.ContextSent = false
		c.mu.Unlock()
	}
	return err
}

// Reset starts over: history, suggestions and the one-shot context guard are
// cleared and the backend is told to forget the conversation. Replies still
// in flight for the old conversation are dropped.
func (c *Controller) Reset(ctx context.Context, initial map[string]string) error {
	c.mu.Lock()
	conversationID := c.state.ConversationID
	c.state = State{Phase: PhaseActive, Generation: c.state.Generation + 1}
	c.typing = false
	c.mu.Unlock()

	if _, err := c.backend.Reset(ctx, conversationID); err != nil {
		log.Printf("conversation %s: reset failed: %v", conversationID, err)
	}

	err := c.LoadInitialContext(ctx, initial)
	c.emit(models.LiveEvent{Type: "message"})
	return err
}

func (c *Controller) send(ctx context.Context, text string, kind turnKind) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}

	c.mu.Lock()
	if c.typing {
		c.mu.Unlock()
		return ErrBusy
	}
	if kind != turnClosing {
		switch c.state.Phase {
		case PhaseClosed:
			c.mu.Unlock()
			return ErrClosed
		case PhaseAwaitingEmailOptIn, PhaseAwaitingEmailAddress:
			if kind != turnContext {
				c.mu.Unlock()
				return ErrAwaitingChoice
			}
		}
	}

	c.typing = true
	gen := c.state.Generation
	if kind == turnClosing {
		c.state.Phase = PhaseClosed
		c.state.EmailNotice = ""
	}

	if kind == turnUser || kind == turnSuggestion || (kind == turnContext && c.opts.ShowContextTurn) {
		c.state.Messages = append(c.state.Messages, models.ChatMessage{Role: models.RoleUser, Content: text})
	}
	if !(kind == turnUser && c.opts.KeepSuggestionsAfterFreeText) {
		c.state.Suggestions = nil
	}

	req := models.ChatRequest{
		Message:          text,
		IsInitialContext: kind == turnContext || kind == turnClosing,
		ConversationID:   c.state.ConversationID,
		Context:          cloneMap(c.state.Context),
	}
	c.mu.Unlock()
	c.emit(models.LiveEvent{Type: "typing"})

	resp, err := c.backend.Chat(ctx, req)

	c.mu.Lock()
	if gen != c.state.Generation {
		c.mu.Unlock()
		return ErrStale
	}
	c.typing = false

	if err != nil {
		log.Printf("conversation %s: chat turn failed: %v", req.ConversationID, err)
		c.state.Messages = append(c.state.Messages, assistantMessage(ErrorReply))
		c.mu.Unlock()
		c.emit(models.LiveEvent{Type: "message"})
		return nil
	}

	if resp.Response != "" {
		c.state.Messages = append(c.state.Messages, assistantMessage(resp.Response))
	}
	c.state.AsksForEmail = resp.AsksForEmail
	if resp.ConversationID != "" {
		c.state.ConversationID = resp.ConversationID
	}

	switch {
	case kind == turnClosing || c.state.Phase == PhaseClosed:
		c.state.Suggestions = nil
	case resp.ContainsRecommendations:
		c.state.Phase = PhaseAwaitingEmailOptIn
		c.state.Suggestions = OptInOptions()
	case c.state.Phase == PhaseActive:
		c.state.Suggestions = append([]string{}, resp.Suggestions...)
	}
	c.mu.Unlock()
	c.emit(models.LiveEvent{Type: "message"})

	return nil
}

func (c *Controller) emit(event models.LiveEvent) {
	if c.notify != nil {
		c.notify(event)
	}
}

func isYes(option string) bool {
	if option == OptInYes {
		return true
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(option)), "oui")
}

func topicOf(ctx map[string]string) string {
	return ctx["topic"]
}

func assistantMessage(content string) models.ChatMessage {
	return models.ChatMessage{Role: models.RoleAssistant, Content: content}
}

func cloneState(s State) State {
	out := s
	out.Messages = append([]models.ChatMessage(nil), s.Messages...)
	out.Suggestions = append([]string(nil), s.Suggestions...)
	out.Context = cloneMap(s.Context)
	return out
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
