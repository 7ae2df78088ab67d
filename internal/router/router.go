// Package router sets up all HTTP routes and middleware chains for the
// PromptForge API. It organizes routes into public, member, and admin
// groups with appropriate middleware stacks.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"promptforge/internal/handlers"
	"promptforge/internal/middleware"
	"promptforge/internal/session"
)

// New creates and returns the configured Chi router with all middleware
// and route groups wired up. generateLimiter is a much tighter rate
// limiter than apiLimiter because generation is expensive upstream.
func New(
	sessionStore *session.Store,
	auth *handlers.Auth,
	prompts *handlers.Prompts,
	generate *handlers.Generate,
	admin *handlers.Admin,
	apiLimiter *middleware.RateLimiter,
	generateLimiter *middleware.RateLimiter,
) chi.Router {
	r := chi.NewRouter()

	// Global middleware — applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.LoadSession(sessionStore))

	// Health check — no auth, no CSRF, no rate limit.
	r.Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(apiLimiter.Middleware)
		r.Use(middleware.CSRF)

		// Public gallery — browsable without an account.
		r.Get("/gallery", prompts.Gallery)
		r.Get("/gallery/{slug}", prompts.Show)

		// Account entry points.
		r.Post("/auth/register", auth.Register)
		r.Post("/auth/login", auth.Login)
		r.Post("/auth/logout", auth.Logout)

		// Member area.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			r.Get("/auth/me", auth.Me)
			r.Post("/auth/2fa/setup", auth.TwoFASetup)
			r.Post("/auth/2fa/verify", auth.TwoFAVerify)

			r.Route("/prompts", func(r chi.Router) {
				r.Get("/", prompts.ListMine)
				r.Post("/", prompts.Create)
				r.Put("/{id}", prompts.Update)
				r.Delete("/{id}", prompts.Delete)
				r.Post("/{id}/images", generate.AttachImages)
				r.Post("/{id}/like", prompts.Like)
			})

			r.Get("/generations", generate.History)
			r.With(generateLimiter.Middleware).Post("/generate", generate.Run)
		})

		// Admin area — 2FA-verified admins only.
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Use(middleware.Require2FA)
			r.Use(middleware.RequireAdmin)

			r.Get("/settings", admin.SettingsList)
			r.Put("/settings", admin.SettingsUpdate)
			r.Post("/probe-cache/clear", admin.ProbeCacheClear)
			r.Post("/gallery-cache/clear", admin.GalleryCacheClear)

			r.Route("/users", func(r chi.Router) {
				r.Get("/", admin.UsersList)
				r.Post("/{id}/reset-2fa", admin.UserResetTwoFA)
				r.Delete("/{id}", admin.UserDelete)
			})
		})
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
