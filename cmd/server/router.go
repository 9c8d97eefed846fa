package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/draftwire/newsletter-api/internal/api"
	apiMiddleware "github.com/draftwire/newsletter-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all
// routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	newsletterHandler := api.NewNewsletterHandler(
		app.newsletterStore,
		app.initializer,
		app.progressService,
	)
	healthHandler := api.NewHealthHandler(app.db)

	r.Route("/api", func(r chi.Router) {
		r.Post("/newsletters/{id}/generate", newsletterHandler.GenerateNewsletter)
		r.Get("/newsletters/{id}/progress", newsletterHandler.GetProgress)
	})

	r.Get("/health", healthHandler.Health)

	return r
}
