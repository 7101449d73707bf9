package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Chat backend
	ChatBackendURL  string
	UpstreamTimeout time.Duration

	// Public URLs
	BaseURL     string
	FrontendURL string

	// Persistence (both optional)
	DatabaseURL string
	RedisURL    string

	// Sessions
	SessionSecret string
	SessionTTL    time.Duration

	// Email
	ResendAPIKey string
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPass     string
	EmailFrom    string
	EmailSubject string

	TranscriptRateLimit int

	// Conversation behaviour
	KeepSuggestionsAfterFreeText bool
	ShowContextTurn              bool
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	env := getEnvOrDefault("ENV", "development")

	cfg := &Config{
		Port:            getEnvOrDefault("PORT", "8080"),
		Env:             env,
		ChatBackendURL:  strings.TrimRight(getEnvOrDefault("CHAT_BACKEND_URL", "http://localhost:5000"), "/"),
		UpstreamTimeout: getEnvAsDurationOrDefault("UPSTREAM_TIMEOUT", 30*time.Second),
		BaseURL:         strings.TrimRight(getEnvOrDefault("BASE_URL", "http://localhost:8080"), "/"),
		FrontendURL:     getEnvOrDefault("FRONTEND_URL", "*"),
		DatabaseURL:     getEnvOrDefault("DATABASE_URL", ""),
		RedisURL:        getEnvOrDefault("REDIS_URL", ""),
		SessionTTL:      getEnvAsDurationOrDefault("SESSION_TTL", 24*time.Hour),
		ResendAPIKey:    getEnvOrDefault("RESEND_API_KEY", ""),
		SMTPHost:        getEnvOrDefault("SMTP_HOST", ""),
		SMTPPort:        getEnvOrDefault("SMTP_PORT", "587"),
		SMTPUser:        getEnvOrDefault("SMTP_USER", ""),
		SMTPPass:        getEnvOrDefault("SMTP_PASS", ""),
		EmailFrom:       getEnvOrDefault("EMAIL_FROM", "Coopleo <bonjour@ramponneau.com>"),
		EmailSubject:    getEnvOrDefault("EMAIL_SUBJECT", "Votre plan sur-mesure de gestion de votre couple"),

		TranscriptRateLimit: getEnvAsIntOrDefault("TRANSCRIPT_RATE_LIMIT", 5),

		KeepSuggestionsAfterFreeText: getEnvAsBoolOrDefault("KEEP_SUGGESTIONS_AFTER_FREE_TEXT", false),
		ShowContextTurn:              getEnvAsBoolOrDefault("SHOW_CONTEXT_TURN", false),
	}

	if env == "development" {
		cfg.SessionSecret = getEnvOrDefault("SESSION_SECRET", "dev-session-secret")
	} else {
		cfg.SessionSecret = mustGetEnv("SESSION_SECRET")
	}

	return cfg
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsBoolOrDefault(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}
