// internal/server/server.go

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"trendcatch/internal/config"
	"trendcatch/internal/domain/sound"
	"trendcatch/internal/server/handlers"
)

const (
	requestTimeout = 60 * time.Second
	contentTimeout = 150 * time.Second

	// writeMargin leaves room to flush a content response after its handler
	// times out
	writeMargin = 30 * time.Second
)

// Dependencies are the services the HTTP layer is wired to
type Dependencies struct {
	Catcher    sound.Catcher
	Auth       handlers.Authenticator
	Content    handlers.ContentPipeline
	CronSecret string

	// Events streams snapshot events on EventsSubject over /ws/sounds; nil
	// disables the endpoint
	Events        handlers.EventSource
	EventsSubject string

	// RateLimit is the per-client request rate of the content endpoints
	RateLimit float64
	RateBurst int
}

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router *chi.Mux
}

// NewServer creates a new HTTP server
func NewServer(cfg config.ServerConfig, deps Dependencies) *Server {
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{handlers.FallbackHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	soundHandler := handlers.NewSoundHandler(deps.Catcher, deps.CronSecret)
	authHandler := handlers.NewAuthHandler(deps.Auth)
	contentHandler := handlers.NewContentHandler(deps.Content)
	limiter := handlers.NewClientRateLimiter(deps.RateLimit, deps.RateBurst)

	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		r.Route("/sounds", func(r chi.Router) {
			r.Get("/", soundHandler.ListSounds)
			r.Post("/", soundHandler.CreateSound)
			r.Get("/refresh", soundHandler.RefreshInfo)
			r.Post("/refresh", soundHandler.Refresh)
			r.Get("/{id}", soundHandler.GetSound)
		})

		r.Post("/auth", authHandler.RequestLink)
		r.Get("/auth/verify", authHandler.Verify)

		r.Route("/settings", func(r chi.Router) {
			r.Use(authHandler.RequireAuth)
			r.Get("/", authHandler.GetSettings)
			r.Put("/", authHandler.UpdateSettings)
		})
	})

	// Transcription and generation wait on hosted services
	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(contentTimeout))
		r.Use(limiter.Middleware)

		r.Post("/transcribe", contentHandler.Transcribe)
		r.Post("/generate", contentHandler.Generate)
	})

	if deps.Events != nil {
		router.Get("/ws/sounds", handlers.SoundStreamHandler(deps.Events, deps.EventsSubject))
	}

	// Create HTTP server
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: writeTimeout(cfg.WriteTimeout),
	}

	return &Server{
		server: httpServer,
		router: router,
	}
}

// writeTimeout raises a configured write timeout that would cut off content
// responses. Zero leaves writes unbounded.
func writeTimeout(configured time.Duration) time.Duration {
	if configured <= 0 {
		return 0
	}
	return max(configured, contentTimeout+writeMargin)
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
