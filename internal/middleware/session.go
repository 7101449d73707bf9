package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const SessionIDKey contextKey = "session_id"

const SessionCookieName = "coopleo_session"

// ConversationTokenTTL bounds how long an emailed transcript link stays valid.
const ConversationTokenTTL = 30 * 24 * time.Hour

// Sessions ties every browser to an anonymous session id carried in a signed
// cookie.
type Sessions struct {
	Secret []byte
	TTL    time.Duration
	Secure bool
	now    func() time.Time
}

func NewSessions(secret string, ttl time.Duration, secure bool) *Sessions {
	return &Sessions{Secret: []byte(secret), TTL: ttl, Secure: secure, now: time.Now}
}

// SessionToken signs sid into an HS256 token valid for the session TTL.
func (s *Sessions) SessionToken(sid string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sid": sid,
		"iat": now.Unix(),
		"exp": now.Add(s.TTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.Secret)
}

// ParseToken returns the session id of a valid token.
func (s *Sessions) ParseToken(tokenStr string) (string, error) {
	claims, err := s.parse(tokenStr)
	if err != nil {
		return "", err
	}
	sid, ok := claims["sid"].(string)
	if !ok {
		return "", errors.New("invalid session id in token")
	}
	if _, err := uuid.Parse(sid); err != nil {
		return "", errors.New("invalid session id format")
	}
	return sid, nil
}

// ConversationToken signs a read grant for one logged conversation. It rides
// on the link in the recommendations email.
func (s *Sessions) ConversationToken(conversationID string) (string, error) {
	if conversationID == "" {
		return "", errors.New("conversation id is required")
	}
	now := s.now()
	claims := jwt.MapClaims{
		"cid": conversationID,
		"iat": now.Unix(),
		"exp": now.Add(ConversationTokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.Secret)
}

// ConversationFromToken returns the conversation id a token grants access to.
// Session tokens carry no cid and are rejected.
func (s *Sessions) ConversationFromToken(tokenStr string) (string, error) {
	claims, err := s.parse(tokenStr)
	if err != nil {
		return "", err
	}
	cid, ok := claims["cid"].(string)
	if !ok || cid == "" {
		return "", errors.New("invalid conversation id in token")
	}
	return cid, nil
}

func (s *Sessions) parse(tokenStr string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.Secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// Middleware reads the session cookie, issuing a new session when it is
// missing, expired or tampered with, and attaches the id to the context.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sid string
		if c, err := r.Cookie(SessionCookieName); err == nil {
			sid, _ = s.ParseToken(c.Value)
		}

		if sid == "" {
			sid = uuid.NewString()
			token, err := s.SessionToken(sid)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "Failed to start session")
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookieName,
				Value:    token,
				Path:     "/",
				MaxAge:   int(s.TTL.Seconds()),
				HttpOnly: true,
				Secure:   s.Secure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), SessionIDKey, sid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetSessionID extracts the session id from request context
func GetSessionID(ctx context.Context) string {
	id, _ := ctx.Value(SessionIDKey).(string)
	return id
}

// WithSessionID is used by tests and background jobs that act for a session.
func WithSessionID(ctx context.Context, sid string) context.Context {
	return context.WithValue(ctx, SessionIDKey, sid)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
