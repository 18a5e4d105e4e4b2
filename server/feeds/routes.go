package serverfeeds

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Pjt727/homeroom/calsync/providers"
	"github.com/go-chi/chi/v5"
)

// Renderer is implemented by the feed provider
type Renderer interface {
	Render(ctx context.Context, calendarID string) ([]byte, error)
}

type feedHandler struct {
	feeds  Renderer
	logger *slog.Logger
}

func PopulateFeedRoutes(r *chi.Router, feeds Renderer, logger *slog.Logger) error {
	h := feedHandler{feeds: feeds, logger: logger}
	(*r).Get("/{feedFile}", h.getFeed)
	return nil
}

func (h *feedHandler) getFeed(w http.ResponseWriter, r *http.Request) {
	calendarID, ok := strings.CutSuffix(chi.URLParam(r, "feedFile"), ".ics")
	if !ok || calendarID == "" {
		http.NotFound(w, r)
		return
	}

	body, err := h.feeds.Render(r.Context(), calendarID)
	if errors.Is(err, providers.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.logger.Error("Could not render feed", "calendar", calendarID, "err", err)
		http.Error(w, http.StatusText(500), 500)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="`+calendarID+`.ics"`)
	w.Write(body)
}
