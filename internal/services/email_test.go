package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/resend/resend-go/v2"
)

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		address string
		valid   bool
	}{
		{"user@example.com", true},
		{"prenom.nom@mail.fr", true},
		{"not-an-email", false},
		{"user@example", false},
		{"us er@example.com", false},
		{"", false},
	}

	for _, tc := range tests {
		if got := IsValidEmail(tc.address); got != tc.valid {
			t.Errorf("IsValidEmail(%q) = %v, want %v", tc.address, got, tc.valid)
		}
	}
}

func TestRecommendationItems(t *testing.T) {
	text := "Recommandations finales :\n• Parlez chaque soir\n  • Planifiez un week-end  \nMerci\n•   \n"
	items := RecommendationItems(text)

	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %v", items)
	}
	if items[0] != "Parlez chaque soir" || items[1] != "Planifiez un week-end" {
		t.Errorf("unexpected items %v", items)
	}
}

func TestRenderRecommendationsEmail(t *testing.T) {
	body, err := RenderRecommendationsEmail("https://coopleo.fr", RecommendationsEmail{
		Name:                 "Léa",
		Topic:                "Confiance",
		ConversationID:       "abc123",
		FinalRecommendations: "• Écoutez <vraiment>\n• Remerciez",
		ContinueToken:        "tok.en",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{
		"Bonjour Léa,",
		"<strong>Confiance</strong>",
		"https://coopleo.fr/continue/abc123?token=tok.en",
		"Écoutez &lt;vraiment&gt;",
		"<li style=\"margin-bottom: 10px;\">Remerciez</li>",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected body to contain %q", want)
		}
	}
}

func TestRenderRecommendationsEmail_NoBulletsUsesRawText(t *testing.T) {
	body, err := RenderRecommendationsEmail("http://localhost:8080", RecommendationsEmail{
		ConversationID:       "x",
		FinalRecommendations: "user: bonjour\n\nassistant: salut",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(body, "<pre") || !strings.Contains(body, "assistant: salut") {
		t.Errorf("expected raw transcript in a pre block")
	}
	if !strings.Contains(body, "Bonjour,") {
		t.Errorf("expected greeting without name")
	}
}

type stubResend struct {
	params *resend.SendEmailRequest
	err    error
}

func (s *stubResend) SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	s.params = params
	if s.err != nil {
		return nil, s.err
	}
	return &resend.SendEmailResponse{Id: "re_123"}, nil
}

func TestEmailService_SendRecommendations_Resend(t *testing.T) {
	stub := &stubResend{}
	s := &EmailService{resend: stub, from: "Coopleo <bonjour@ramponneau.com>", subject: "Plan", baseURL: "http://x"}

	id, err := s.SendRecommendations(context.Background(), RecommendationsEmail{
		To:                   "user@example.com",
		ConversationID:       "abc",
		FinalRecommendations: "• Un",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "re_123" {
		t.Errorf("expected provider id, got %q", id)
	}
	if stub.params.To[0] != "user@example.com" || stub.params.Subject != "Plan" {
		t.Errorf("unexpected params %+v", stub.params)
	}
	if !strings.Contains(stub.params.Html, "Un</li>") {
		t.Errorf("expected rendered template in html")
	}
}

func TestEmailService_SendRecommendations_PrebuiltHTML(t *testing.T) {
	stub := &stubResend{}
	s := &EmailService{resend: stub}

	_, err := s.SendRecommendations(context.Background(), RecommendationsEmail{
		To:   "user@example.com",
		HTML: "<p>déjà prêt</p>",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stub.params.Html != "<p>déjà prêt</p>" {
		t.Errorf("expected prebuilt html to be sent untouched, got %q", stub.params.Html)
	}
}

func TestEmailService_SendRecommendations_ProviderError(t *testing.T) {
	s := &EmailService{resend: &stubResend{err: errors.New("quota exceeded")}}

	_, err := s.SendRecommendations(context.Background(), RecommendationsEmail{To: "user@example.com", HTML: "x"})

	var emailErr *EmailError
	if !errors.As(err, &emailErr) {
		t.Fatalf("expected EmailError, got %v", err)
	}
}

func TestEmailService_SendRecommendations_InvalidAddress(t *testing.T) {
	stub := &stubResend{}
	s := &EmailService{resend: stub}

	_, err := s.SendRecommendations(context.Background(), RecommendationsEmail{To: "not-an-email", HTML: "x"})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if stub.params != nil {
		t.Fatalf("provider must not be called for an invalid address")
	}
}

func TestEmailService_DevMode(t *testing.T) {
	s := NewEmailService("", "", "587", "", "", "Coopleo <bonjour@ramponneau.com>", "Plan", "http://localhost:8080")

	id, err := s.SendRecommendations(context.Background(), RecommendationsEmail{To: "user@example.com", FinalRecommendations: "• Un"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(id, "dev-") {
		t.Errorf("expected dev id, got %q", id)
	}
}

func TestEnvelopeAddress(t *testing.T) {
	if got := envelopeAddress("Coopleo <bonjour@ramponneau.com>"); got != "bonjour@ramponneau.com" {
		t.Errorf("unexpected envelope address %q", got)
	}
	if got := envelopeAddress("plain"); got != "plain" {
		t.Errorf("expected unparsable address returned as is, got %q", got)
	}
}
