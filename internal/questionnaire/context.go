package questionnaire

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrMissingContext = errors.New("questionnaire: no initial context in request")

// InvalidAnswerError reports a form field that is empty or not in the catalog.
type InvalidAnswerError struct {
	Field string
	Value string
}

func (e *InvalidAnswerError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("questionnaire: %s is required", e.Field)
	}
	return fmt.Sprintf("questionnaire: %q is not a valid %s", e.Value, e.Field)
}

// Context is the check-in answers sent as the conversation's first turn.
type Context struct {
	State    string `json:"state"`
	Mood     string `json:"mood"`
	Location string `json:"location"`
	Topic    string `json:"topic"`
}

// FromForm reads a submitted check-in form. Every answer is required and
// must come from the catalog.
func FromForm(form url.Values) (Context, error) {
	answers := make(map[string]string, len(Questions))
	for _, q := range Questions {
		v := strings.TrimSpace(form.Get(q.Key))
		if v == "" || !q.has(v) {
			return Context{}, &InvalidAnswerError{Field: q.Key, Value: v}
		}
		answers[q.Key] = v
	}
	return Context{
		State:    answers["state"],
		Mood:     answers["mood"],
		Location: answers["location"],
		Topic:    answers["topic"],
	}, nil
}

// Parse accepts the three ways a chat URL can carry the initial context: the
// encoded `context` parameter, the four answer keys, or the older
// weather/mood/location/aspect keys.
func Parse(query url.Values) (Context, error) {
	if raw := query.Get("context"); raw != "" {
		var envelope struct {
			InitialContext *Context `json:"initialContext"`
		}
		if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
			return Context{}, fmt.Errorf("questionnaire: malformed context parameter: %w", err)
		}
		if envelope.InitialContext == nil || envelope.InitialContext.empty() {
			return Context{}, ErrMissingContext
		}
		return *envelope.InitialContext, nil
	}

	c := Context{
		State:    query.Get("state"),
		Mood:     query.Get("mood"),
		Location: query.Get("location"),
		Topic:    query.Get("topic"),
	}
	if c.complete() {
		return c, nil
	}

	legacy := Context{
		State:    query.Get("weather"),
		Mood:     query.Get("mood"),
		Location: query.Get("location"),
		Topic:    query.Get("aspect"),
	}
	if legacy.complete() {
		return legacy, nil
	}
	return Context{}, ErrMissingContext
}

// Map returns the non-empty answers keyed by field name.
func (c Context) Map() map[string]string {
	m := make(map[string]string, 4)
	for k, v := range map[string]string{"state": c.State, "mood": c.Mood, "location": c.Location, "topic": c.Topic} {
		if v != "" {
			m[k] = v
		}
	}
	return m
}

// Encode builds the `context` query value for the chat URL.
func (c Context) Encode() string {
	payload, _ := json.Marshal(struct {
		InitialContext Context `json:"initialContext"`
	}{c})
	return string(payload)
}

// URL returns the chat page URL carrying this context.
func (c Context) URL() string {
	return "/chat?" + url.Values{"context": {c.Encode()}}.Encode()
}

func (c Context) complete() bool {
	return c.State != "" && c.Mood != "" && c.Location != "" && c.Topic != ""
}

func (c Context) empty() bool {
	return c.State == "" && c.Mood == "" && c.Location == "" && c.Topic == ""
}
