package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/paperbase-ai/paperbase/internal/api"
	"github.com/paperbase-ai/paperbase/internal/api/handlers"
	"github.com/paperbase-ai/paperbase/internal/api/middleware"
)

type RouterConfig struct {
	AuthValidator   middleware.AuthValidator
	AuthHandler     *handlers.AuthHandler
	DocumentHandler *handlers.DocumentHandler
	SearchHandler   *handlers.SearchHandler

	// MaxBodyBytes bounds request bodies; uploads need headroom above
	// the PDF size limit for multipart framing.
	MaxBodyBytes int64
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = 12 * 1024 * 1024
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", cfg.AuthHandler.Register)
		r.Post("/auth/login", cfg.AuthHandler.Login)
		r.Get("/auth/check-users", cfg.AuthHandler.CheckUsers)

		r.Group(func(r chi.Router) {
			r.Use(middleware.SessionAuth(cfg.AuthValidator))

			r.Get("/auth/me", cfg.AuthHandler.Me)
			r.Post("/auth/logout", cfg.AuthHandler.Logout)

			r.Route("/files", func(r chi.Router) {
				r.Post("/", cfg.DocumentHandler.Upload)
				r.Get("/", cfg.DocumentHandler.List)
				r.Get("/{id}", cfg.DocumentHandler.Get)
				r.Get("/{id}/view", cfg.DocumentHandler.View)
				r.Delete("/{id}", cfg.DocumentHandler.Delete)
				r.Post("/{id}/summarize", cfg.DocumentHandler.Summarize)
			})

			r.Post("/search", cfg.SearchHandler.Search)
		})
	})

	return r
}
