package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"coopleo-web/internal/handlers"
	"coopleo-web/internal/middleware"
	"coopleo-web/internal/render"
	"coopleo-web/internal/websocket"
)

func New(
	sessions *middleware.Sessions,
	proxyHandler *handlers.ProxyHandler,
	webHandler *handlers.WebHandler,
	wsHub *websocket.Hub,
	transcriptLimiter *middleware.RateLimiter,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		w.Write([]byte(`{"error":"Method not allowed"}`))
	})

	r.Get("/health", handlers.Health)
	r.Handle("/static/*", render.StaticHandler())

	// ──── JSON proxy (stateless) ────
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.CORS(frontendURL))

		r.Post("/chat", proxyHandler.Chat)
		r.Delete("/chat", proxyHandler.Reset)
		r.Post("/auto-reply", proxyHandler.AutoReply)

		r.Group(func(r chi.Router) {
			r.Use(transcriptLimiter.Middleware)
			r.Post("/send-transcript", proxyHandler.SendTranscript)
		})
	})

	// ──── Screens (session cookie) ────
	r.Group(func(r chi.Router) {
		r.Use(sessions.Middleware)

		r.Get("/", webHandler.Questionnaire)
		r.Post("/questionnaire", webHandler.SubmitQuestionnaire)

		r.Route("/chat", func(r chi.Router) {
			r.Get("/", webHandler.Chat)
			r.Post("/message", webHandler.SendMessage)
			r.Post("/option", webHandler.Option)
			r.Post("/reset", webHandler.Reset)
			r.Get("/email", webHandler.EmailPrompt)
			r.Post("/email", webHandler.SubmitEmail)
			r.Post("/email/dismiss", webHandler.DismissEmail)
		})

		r.Get("/continue/{conversationId}", webHandler.Continue)
	})

	// WebSocket authenticates with the session token in the query string
	r.Get("/ws", wsHub.HandleWebSocket)

	return r
}
