package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/lexa/internal/drillservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *drillservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)
	dh := NewDeckHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/groups", h.ListGroups)

	r.Get("/items", h.ListItems)
	r.Get("/items/due", h.DueItems)
	r.Put("/items/{id}/mute", h.MuteItem)

	r.Get("/search", h.Search)
	r.Get("/profile", h.Profile)

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", h.ListSessions)
		r.Post("/", h.StartSession)
		r.Get("/{id}", h.GetSession)
		r.Delete("/{id}", h.DiscardSession)
		r.Post("/{id}/answers", h.SubmitAnswer)
		r.Post("/{id}/complete", h.CompleteSession)
	})

	r.Post("/decks", dh.Upload)
	r.Delete("/decks/{name}", dh.Remove)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
