package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/capitalize-ai/chatdesk/internal/middleware"
	"github.com/capitalize-ai/chatdesk/pkg/logger"
)

// Handlers groups everything the browser API routes to.
type Handlers struct {
	Health   *HealthHandler
	Chats    *ChatHandler
	Messages *MessageHandler
	Projects *ProjectHandler
	Voice    *VoiceHandler
	Stream   *StreamHandler
}

// RouterConfig tunes the shared middleware.
type RouterConfig struct {
	AllowedOrigins    []string
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// NewRouter builds the browser API.
func NewRouter(h Handlers, cfg RouterConfig, log *logger.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	r.Get("/health", h.Health.Health)
	r.Get("/ready", h.Health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		// The stream is long lived and must not count against the limiter.
		r.Get("/view/stream", h.Stream.Stream)

		r.Group(func(r chi.Router) {
			if cfg.RateLimitRequests > 0 {
				r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
			}

			r.Get("/session", h.Chats.Session)

			r.Route("/chats", func(r chi.Router) {
				r.Post("/", h.Chats.Create)
				r.Delete("/", h.Chats.DeleteAll)
				r.Get("/recent", h.Chats.Recent)
				r.Get("/search", h.Chats.Search)
				r.Post("/open", h.Chats.Open)
				r.Post("/clear", h.Chats.Clear)
				r.Delete("/{id}", h.Chats.Delete)
			})

			r.Post("/messages", h.Messages.Send)

			r.Route("/rows/{row}", func(r chi.Router) {
				r.Post("/speak", h.Voice.Speak)
				r.Get("/images/{index}", h.Messages.Download)
				r.Post("/images/{index}/regenerate", h.Messages.Regenerate)
			})

			r.Route("/projects", func(r chi.Router) {
				r.Get("/", h.Projects.List)
				r.Post("/", h.Projects.Create)
				r.Delete("/", h.Projects.DeleteAll)

				r.Route("/{name}", func(r chi.Router) {
					r.Delete("/", h.Projects.Delete)
					r.Get("/chats", h.Projects.Chats)
					r.Post("/chats", h.Projects.CreateChat)
				})
			})

			r.Route("/settings/voice", func(r chi.Router) {
				r.Get("/", h.Voice.GetSettings)
				r.Put("/", h.Voice.PutSettings)
				r.Post("/test", h.Voice.Test)
			})

			r.Post("/mic", h.Voice.Mic)
			r.Post("/mic/transcript", h.Voice.Transcript)
		})
	})

	return r
}
