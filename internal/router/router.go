package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"school-admin-api/internal/config"
	"school-admin-api/internal/handler"
	"school-admin-api/internal/middleware"
)

type Handlers struct {
	Auth     *handler.AuthHandler
	Recovery *handler.RecoveryHandler
	Audit    *handler.AuditHandler
}

func New(cfg *config.Config, authMiddleware *middleware.AuthMiddleware, h Handlers, healthCheck http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", healthCheck)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/login", h.Auth.Login)
			auth.Post("/refresh", h.Auth.Refresh)
			auth.With(authMiddleware.RequireAuth).Post("/logout", h.Auth.Logout)
			auth.With(authMiddleware.RequireAuth).Get("/me", h.Auth.Me)
		})

		api.Route("/recovery", func(rec chi.Router) {
			rec.Use(authMiddleware.RequireAuth, authMiddleware.RequireRoles("admin"))
			rec.Get("/entities", h.Recovery.Entities)
			rec.Get("/list", h.Recovery.List)
			rec.Post("/preview", h.Recovery.Preview)
			rec.Post("/restore", h.Recovery.Restore)
		})

		api.With(authMiddleware.RequireAuth, authMiddleware.RequireRoles("admin")).Get("/audit", h.Audit.List)
	})

	return r
}
