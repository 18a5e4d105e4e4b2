package serversync

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
)

func PopulateSyncRoutes(r *chi.Router, syncer Syncer, hub *Hub, logger *slog.Logger) error {
	h := &syncHandler{
		syncer:   syncer,
		logger:   logger,
		inFlight: newInFlight(),
	}

	(*r).Use(requireUser)
	(*r).Post("/students/{studentID}", h.syncStudent)
	(*r).Post("/all", h.syncAll)
	(*r).Get("/calendars", h.listCalendars)
	if hub != nil {
		(*r).Get("/watch", hub.watch)
	}

	return nil
}
