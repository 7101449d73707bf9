// Package render draws the server-side pages: the check-in questionnaire, the
// chat transcript and the continue page linked from the email.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"

	"coopleo-web/internal/conversation"
	"coopleo-web/internal/models"
	"coopleo-web/internal/questionnaire"
)

//go:embed templates/*.html
var templateFiles embed.FS

//go:embed static
var staticFiles embed.FS

// Bubble is one rendered transcript entry.
type Bubble struct {
	Assistant bool
	HTML      template.HTML
	// Suggestions are only set on the last assistant bubble.
	Suggestions []string
}

type ChatPage struct {
	Bubbles         []Bubble
	Typing          bool
	InputDisabled   bool
	EmailPromptOpen bool
	EmailNotice     string
	Closed          bool
	OptIn           bool
	ConversationID  string
	LiveToken       string
}

type QuestionnairePage struct {
	Questions []questionnaire.Question
	Selected  map[string]string
	Error     string
}

type ContinuePage struct {
	ConversationID string
	Bubbles        []Bubble
	StartURL       string
}

type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"markdown": Markdown,
}

// New parses every page template once. Each page is executed through the
// shared layout.
func New() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, page := range []string{"questionnaire", "chat", "continue", "error"} {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFiles, "templates/layout.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", page, err)
		}
		r.pages[page] = t
	}
	return r, nil
}

// NewChatPage builds the chat page model from a conversation snapshot.
func NewChatPage(v conversation.View, liveToken string) ChatPage {
	page := ChatPage{
		Typing:          v.Typing,
		InputDisabled:   v.InputDisabled(),
		EmailPromptOpen: v.EmailPromptOpen(),
		EmailNotice:     v.EmailNotice,
		Closed:          v.Phase == conversation.PhaseClosed,
		OptIn:           v.Phase == conversation.PhaseAwaitingEmailOptIn,
		ConversationID:  v.ConversationID,
		LiveToken:       liveToken,
	}

	page.Bubbles = Bubbles(v.Messages)

	if n := len(page.Bubbles); n > 0 && page.Bubbles[n-1].Assistant && !v.Typing && len(v.Suggestions) > 0 {
		page.Bubbles[n-1].Suggestions = append([]string(nil), v.Suggestions...)
	}
	return page
}

// Bubbles renders messages without any quick replies.
func Bubbles(messages []models.ChatMessage) []Bubble {
	out := make([]Bubble, 0, len(messages))
	for _, m := range messages {
		assistant := m.Role == models.RoleAssistant
		out = append(out, Bubble{
			Assistant: assistant,
			HTML:      Markdown(FormatMessage(m.Content, assistant)),
		})
	}
	return out
}

func (r *Renderer) Chat(w io.Writer, page ChatPage) error {
	return r.execute(w, "chat", page)
}

func (r *Renderer) Questionnaire(w io.Writer, page QuestionnairePage) error {
	if page.Questions == nil {
		page.Questions = questionnaire.Questions
	}
	return r.execute(w, "questionnaire", page)
}

func (r *Renderer) Continue(w io.Writer, page ContinuePage) error {
	return r.execute(w, "continue", page)
}

func (r *Renderer) Error(w io.Writer, message string) error {
	return r.execute(w, "error", struct{ Message string }{message})
}

// execute renders into a buffer first so a template error never leaves a
// half-written page.
func (r *Renderer) execute(w io.Writer, page string, data interface{}) error {
	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

// StaticHandler serves the embedded logo and stylesheet under /static/.
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
