package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the HTTP surface. Identity comes from the auth proxy in
// front of the service.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Group(func(r chi.Router) {
		r.Use(RequireViewer)

		r.Route("/newsletters", func(r chi.Router) {
			r.Get("/", h.ListNewsletters)
			r.Post("/", h.CreateNewsletter)

			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.NewsletterCtx)

				r.Get("/", h.GetNewsletter)
				r.Get("/logs", h.ListLogs)

				r.With(ActiveOnly).Put("/", h.UpdateNewsletter)
				r.With(ActiveOnly).Delete("/", h.DeactivateNewsletter)
			})
		})

		r.Get("/logs", h.ListAllLogs)
		r.Get("/logs/{id}", h.GetLog)

		r.Post("/messages", h.CreateMessage)
		r.Post("/clients/import", h.ImportClients)
	})

	return r
}
