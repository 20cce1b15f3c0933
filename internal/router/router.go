package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ayush/layout-library/backend/internal/auth"
	"github.com/ayush/layout-library/backend/internal/layouts"
	"github.com/ayush/layout-library/backend/internal/middleware"
)

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	BasePath    string
	CORSOrigins []string
	MaxFileSize int64

	Tokens   *auth.TokenIssuer
	Accounts auth.AccountStore
	Layouts  layouts.LayoutStore
	Files    layouts.FileStore

	// optional
	Metrics        *middleware.Metrics
	MetricsHandler http.Handler
}

// New builds the router with every route mounted under d.BasePath.
func New(d Deps) http.Handler {
	authHandler := auth.NewHandler(d.Accounts, d.Tokens)
	layoutHandler := layouts.NewHandler(d.Layouts, d.Accounts, d.Files, layouts.NewReceiver(d.Files, d.MaxFileSize))
	requireAuth := middleware.RequireAuth(d.Tokens, d.Accounts)

	r := chi.NewRouter()
	r.NotFound(middleware.NotFound)
	r.MethodNotAllowed(middleware.NotFound)

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger)
	// metrics wrap Recover so requests that panic are still counted
	if d.Metrics != nil {
		r.Use(d.Metrics.Handler)
	}
	r.Use(middleware.Recover)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Accept"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	base := d.BasePath
	if base == "" {
		base = "/"
	}
	r.Route(base, func(r chi.Router) {
		// Health check
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Write([]byte("Server is running"))
		})
		if d.MetricsHandler != nil {
			r.Handle("/metrics", d.MetricsHandler)
		}

		r.Get("/uploads/{filename}", layoutHandler.Serve)

		r.Route("/api", func(r chi.Router) {
			r.Get("/download/{filename}", layoutHandler.Download)

			r.Route("/auth", func(r chi.Router) {
				r.Post("/login", authHandler.Login)

				r.Group(func(r chi.Router) {
					r.Use(requireAuth)
					r.Get("/profile", authHandler.Profile)
					r.Post("/logout", authHandler.Logout)
					r.With(middleware.RequireAdminOrOwner(middleware.PathParam("userId"))).
						Get("/users/{userId}", authHandler.GetUser)

					r.Group(func(r chi.Router) {
						r.Use(middleware.RequireAdmin)
						r.Post("/register", authHandler.Register)
						r.Get("/users", authHandler.ListUsers)
						r.Patch("/users/{userId}", authHandler.UpdateUser)
						r.Patch("/users/{userId}/role", authHandler.UpdateRole)
						r.Patch("/users/{userId}/deactivate", authHandler.Deactivate)
						r.Patch("/users/{userId}/activate", authHandler.Activate)
					})
				})
			})

			// Layout routes (protected)
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/upload", layoutHandler.Create)
				r.Get("/layouts", layoutHandler.List)
				r.Get("/layouts/{id}", layoutHandler.Get)
				r.Get("/archived", layoutHandler.ListArchived)
				r.Patch("/layouts/{id}/archive", layoutHandler.Archive)
				r.Patch("/layouts/{id}/restore", layoutHandler.Restore)
				r.With(middleware.RequireAdmin).Patch("/layouts/{id}", layoutHandler.Update)
				r.With(middleware.RequireAdmin).Delete("/layouts/{id}/permanent", layoutHandler.DeletePermanent)
			})
		})
	})

	return r
}
