package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-login/internal/web/handlers"
	"github.com/kozaktomas/face-login/internal/web/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) setupRoutes() {
	authHandler := handlers.NewAuthHandler(s.config, s.registry, s.sessionManager)
	messagesHandler := handlers.NewMessagesHandler(s.messages)
	galleryHandler := handlers.NewGalleryHandler(s.registry)

	// Health check and metrics (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		// Auth
		r.Post("/auth/match", authHandler.Match)
		r.Post("/auth/select", authHandler.Select)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/status", authHandler.Status)

		// Gallery & diagnostics
		r.Get("/gallery", galleryHandler.List)
		r.Post("/fingerprint", galleryHandler.Fingerprint)

		// Message board: reading is public, posting requires a face login
		r.Get("/messages", messagesHandler.List)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(s.sessionManager))
			r.Post("/messages", messagesHandler.Post)
		})
	})
}
