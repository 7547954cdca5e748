package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/mindpulse/internal/reminderservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *reminderservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Reminders.
	r.Get("/reminders", h.ListReminders)
	r.Get("/reminders/stats", h.Stats)
	r.Post("/reminders", h.CreateReminder)
	r.Delete("/reminders/{id}", h.DeleteReminder)
	r.Post("/reminders/{id}/toggle", h.ToggleDone)

	// Message protocol.
	r.Post("/commands", h.Command)

	// Maintenance.
	r.Post("/reconcile", h.Reconcile)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
