package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"coopleo-web/internal/config"
	"coopleo-web/internal/conversation"
	"coopleo-web/internal/database"
	"coopleo-web/internal/handlers"
	"coopleo-web/internal/middleware"
	"coopleo-web/internal/render"
	"coopleo-web/internal/repository"
	"coopleo-web/internal/router"
	"coopleo-web/internal/services"
	"coopleo-web/internal/session"
	"coopleo-web/internal/websocket"
	"coopleo-web/migrations"
)

func main() {
	log.Println("🚀 Starting Coopleo...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Conversation Log (PostgreSQL when configured) ────
	var turns repository.TurnLog = repository.NewMemoryTurnLog()
	var deliveries repository.DeliveryLog = repository.NewMemoryDeliveryLog()
	if cfg.DatabaseURL != "" {
		pool, err := database.NewPostgresPool(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("✗ PostgreSQL connection failed: %v", err)
		}
		defer pool.Close()
		log.Println("✓ PostgreSQL connected")

		if err := database.RunMigrations(pool, migrations.Files); err != nil {
			log.Fatalf("✗ Database migration failed: %v", err)
		}
		log.Println("✓ Database migrations applied")

		turns = repository.NewTurnRepo(pool)
		deliveries = repository.NewDeliveryRepo(pool)
	} else {
		log.Println("⚠ DATABASE_URL not set, conversation log kept in memory")
	}

	// ──── Step 3: Session State (Redis when configured) ────
	var store session.Store = session.NewMemoryStore()
	var pubsub *redis.Client
	if cfg.RedisURL != "" {
		redisClients, err := database.NewRedisClients(cfg.RedisURL)
		if err != nil {
			log.Fatalf("✗ Redis connection failed: %v", err)
		}
		defer redisClients.Close()
		log.Println("✓ Redis connected")

		store = session.NewRedisStore(redisClients.State, cfg.SessionTTL)
		pubsub = redisClients.PubSub
	} else {
		log.Println("⚠ REDIS_URL not set, sessions kept in memory")
	}

	// ──── Step 4: Services ────
	backend := services.NewChatBackend(cfg.ChatBackendURL, cfg.UpstreamTimeout)
	chatService := services.NewChatService(backend, turns)
	emailService := services.NewEmailService(
		cfg.ResendAPIKey,
		cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass,
		cfg.EmailFrom, cfg.EmailSubject, cfg.BaseURL,
	)
	sessions := middleware.NewSessions(cfg.SessionSecret, cfg.SessionTTL, !cfg.IsDevelopment())
	transcriptService := services.NewTranscriptService(emailService, turns, deliveries, sessions)
	log.Printf("✓ Chat backend at %s", cfg.ChatBackendURL)

	renderer, err := render.New()
	if err != nil {
		log.Fatalf("✗ Template parsing failed: %v", err)
	}

	// ──── Step 5: Sessions & Live Updates ────
	wsHub := websocket.NewHub(pubsub, sessions)
	registry := session.NewRegistry(store, chatService, transcriptService, conversation.Options{
		KeepSuggestionsAfterFreeText: cfg.KeepSuggestionsAfterFreeText,
		ShowContextTurn:              cfg.ShowContextTurn,
	}, wsHub.Notify)
	log.Println("✓ WebSocket hub started")

	ctx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	go registry.RunSweeper(ctx, 5*time.Minute, 30*time.Minute)

	transcriptLimiter := middleware.NewRateLimiter(cfg.TranscriptRateLimit, time.Minute)
	go transcriptLimiter.RunCleanup(ctx)

	// ──── Step 6: Handlers ────
	proxyHandler := handlers.NewProxyHandler(chatService, transcriptService)
	webHandler := handlers.NewWebHandler(registry, renderer, sessions, turns)

	// ──── Step 7: Start HTTP Server ────
	r := router.New(sessions, proxyHandler, webHandler, wsHub, transcriptLimiter, cfg.FrontendURL)

	// a chat turn may wait on the backend for the full upstream timeout
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.UpstreamTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		stopBackground()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Coopleo ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
