package serverfeeds

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Pjt727/homeroom/calsync/providers"
	"github.com/go-chi/chi/v5"
)

type fakeFeeds map[string]string

func (f fakeFeeds) Render(ctx context.Context, calendarID string) ([]byte, error) {
	if calendarID == "broken" {
		return nil, errors.New("db down")
	}
	body, ok := f[calendarID]
	if !ok {
		return nil, providers.ErrNotFound
	}
	return []byte(body), nil
}

func TestGetFeed(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/feeds", func(r chi.Router) {
		PopulateFeedRoutes(&r, fakeFeeds{"abc": "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	testCases := []struct {
		path   string
		status int
	}{
		{"/feeds/abc.ics", http.StatusOK},
		{"/feeds/abc", http.StatusNotFound},
		{"/feeds/missing.ics", http.StatusNotFound},
		{"/feeds/broken.ics", http.StatusInternalServerError},
	}
	for _, tc := range testCases {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if rec.Code != tc.status {
			t.Errorf("%s: status = %d, want %d", tc.path, rec.Code, tc.status)
		}
		if tc.status == http.StatusOK {
			if ct := rec.Header().Get("Content-Type"); ct != "text/calendar; charset=utf-8" {
				t.Errorf("content type = %q", ct)
			}
			if rec.Body.String() != "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n" {
				t.Errorf("body = %q", rec.Body.String())
			}
		}
	}
}
