package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/roundtable-dev/roundtable/internal/adapter/ws"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers, hub *ws.Hub) {
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if hub != nil {
		r.Get("/ws", hub.HandleWS)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Sessions
		r.Get("/sessions", h.ListSessions)
		r.Post("/sessions", h.CreateSession)
		r.Get("/sessions/{id}", h.GetSession)

		// Personas (nested under sessions)
		r.Post("/sessions/{id}/personas", h.AddPersona)
		r.Get("/sessions/{id}/personas", h.ListPersonas)

		// Personas (direct access)
		r.Post("/personas/{id}/hush", h.HushPersona)

		// Messages
		r.Post("/sessions/{id}/messages", h.PostMessage)
		r.Get("/sessions/{id}/messages", h.ListMessages)

		// Turns
		r.Post("/sessions/{id}/turn", h.RunTurn)
		r.Post("/sessions/{id}/continue", h.ContinueSession)

		// Selector settings
		r.Get("/settings/selector", h.GetSelectorSettings)
		r.Put("/settings/selector", h.UpdateSelectorSettings)
	})
}
