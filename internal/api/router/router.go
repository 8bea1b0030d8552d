package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/wolfman30/clinic-appointment-bot/internal/conversation"
	"github.com/wolfman30/clinic-appointment-bot/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/clinic-appointment-bot/internal/http/middleware"
	"github.com/wolfman30/clinic-appointment-bot/internal/webchat"
	"github.com/wolfman30/clinic-appointment-bot/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	Health              *handlers.HealthHandler
	ConversationHandler *conversation.Handler
	WebChat             *webchat.Handler
	AdminBookings       *handlers.AdminBookingsHandler
	AdminAuthSecret     string
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string
	RateLimiter         *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	health := cfg.Health
	if health == nil {
		health = handlers.NewHealthHandler(nil, cfg.Logger)
	}

	// Probes and metrics are never rate limited.
	r.Group(func(public chi.Router) {
		public.Get("/health", health.Live)
		public.Get("/ready", health.Ready)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Patient-facing API
	r.Route("/v1", func(v1 chi.Router) {
		if cfg.RateLimiter != nil {
			v1.Use(httpmiddleware.RateLimit(cfg.RateLimiter))
		}
		if cfg.ConversationHandler != nil {
			v1.Post("/conversations/message", cfg.ConversationHandler.Message)
			v1.Get("/conversations/{userID}/history", cfg.ConversationHandler.History)
			v1.Get("/doctors", cfg.ConversationHandler.Doctors)
			v1.Get("/doctors/{doctorID}/slots", cfg.ConversationHandler.FreeSlots)
		}
		if cfg.WebChat != nil {
			v1.Route("/chat", func(chat chi.Router) {
				chat.Get("/ws", cfg.WebChat.HandleWebSocket)
				chat.Post("/message", cfg.WebChat.HandleMessage)
				chat.Get("/history", cfg.WebChat.HandleHistory)
			})
		}
	})

	// Front-desk routes (protected by JWT)
	if cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			if cfg.ConversationHandler != nil {
				admin.Get("/sessions/{userID}", cfg.ConversationHandler.Session)
				admin.Delete("/sessions/{userID}", cfg.ConversationHandler.EndSession)
				admin.Get("/bookings/{bookingID}", cfg.ConversationHandler.Booking)
			}
			if cfg.AdminBookings != nil {
				admin.Get("/bookings", cfg.AdminBookings.ListBookings)
				admin.Get("/stats", cfg.AdminBookings.Stats)
			}
		})
	}

	return r
}
