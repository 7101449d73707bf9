package services

import (
	"context"
	"fmt"
	"log"
	"net/mail"
	"net/smtp"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/resend/resend-go/v2"
)

// emailPattern accepts anything shaped like local@domain.tld without spaces.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func IsValidEmail(address string) bool {
	return emailPattern.MatchString(address)
}

// RecommendationsEmail describes one outgoing recommendations email. HTML, when
// set, is sent as is; otherwise the body is rendered from the template.
type RecommendationsEmail struct {
	To                   string
	Name                 string
	Topic                string
	ConversationID       string
	FinalRecommendations string
	HTML                 string

	// ContinueToken authorizes the transcript link in the email.
	ContinueToken string
}

type resendSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

type EmailService struct {
	host    string
	port    string
	user    string
	pass    string
	from    string
	subject string
	baseURL string
	resend  resendSender
	devMode bool
}

func NewEmailService(resendAPIKey, host, port, user, pass, from, subject, baseURL string) *EmailService {
	s := &EmailService{
		host:    host,
		port:    port,
		user:    user,
		pass:    pass,
		from:    from,
		subject: subject,
		baseURL: baseURL,
	}

	switch {
	case resendAPIKey != "":
		s.resend = resend.NewClient(resendAPIKey).Emails
		log.Println("✓ Email service using Resend")
	case host != "" && user != "":
		log.Printf("✓ Email service using SMTP %s:%s", host, port)
	default:
		s.devMode = true
		log.Println("⚠ Email service running in DEV MODE (logging to console)")
	}
	return s
}

// Provider names the delivery path in use: "resend", "smtp" or "dev".
func (s *EmailService) Provider() string {
	switch {
	case s.devMode:
		return "dev"
	case s.resend != nil:
		return "resend"
	default:
		return "smtp"
	}
}

// SendRecommendations delivers the recommendations email and returns the
// provider message id.
func (s *EmailService) SendRecommendations(ctx context.Context, msg RecommendationsEmail) (string, error) {
	if !IsValidEmail(msg.To) {
		return "", &ValidationError{Fields: map[string]string{"email": "Invalid email format"}}
	}

	body := msg.HTML
	if body == "" {
		rendered, err := RenderRecommendationsEmail(s.baseURL, msg)
		if err != nil {
			return "", &EmailError{Message: "Failed to build email", Err: err}
		}
		body = rendered
	}

	return s.sendHTML(ctx, msg.To, s.subject, body)
}

func (s *EmailService) sendHTML(ctx context.Context, to, subject, htmlBody string) (string, error) {
	if s.devMode {
		id := "dev-" + uuid.NewString()
		log.Printf("📧 [DEV EMAIL] To: %s | Subject: %s | ID: %s", to, subject, id)
		log.Printf("📧 Body:\n%s", htmlBody)
		return id, nil
	}

	if s.resend != nil {
		sent, err := s.resend.SendWithContext(ctx, &resend.SendEmailRequest{
			From:    s.from,
			To:      []string{to},
			Subject: subject,
			Html:    htmlBody,
		})
		if err != nil {
			return "", &EmailError{Message: "Failed to send email", Err: err}
		}
		log.Printf("📧 Email sent to %s via Resend: %s", to, sent.Id)
		return sent.Id, nil
	}

	headers := []string{
		fmt.Sprintf("From: %s", s.from),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
	}

	message := strings.Join(headers, "\r\n") + "\r\n\r\n" + htmlBody

	auth := smtp.PlainAuth("", s.user, s.pass, s.host)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)

	if err := smtp.SendMail(addr, auth, envelopeAddress(s.from), []string{to}, []byte(message)); err != nil {
		return "", &EmailError{Message: fmt.Sprintf("Failed to send email to %s", to), Err: err}
	}

	id := "smtp-" + uuid.NewString()
	log.Printf("📧 Email sent to %s: %s", to, subject)
	return id, nil
}

// envelopeAddress strips the display name from "Name <addr>" for the SMTP
// envelope sender.
func envelopeAddress(from string) string {
	addr, err := mail.ParseAddress(from)
	if err != nil {
		return from
	}
	return addr.Address
}
