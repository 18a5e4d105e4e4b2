// Package googletest serves the subset of the Google Calendar v3 REST API the
// google provider uses, backed by memory
package googletest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"google.golang.org/api/calendar/v3"
)

type mockCalendar struct {
	calendar calendar.Calendar
	events   []*calendar.Event
}

type mockServerState struct {
	logger    *slog.Logger
	mu        sync.Mutex
	calendars map[string]*mockCalendar
	nextID    int
	requests  int
	// returning a non zero status short circuits the request
	fail func(r *http.Request) int
}

type Server struct {
	*httptest.Server
	state *mockServerState
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// errors are shaped the way googleapi.CheckResponse expects
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    status,
			"message": message,
		},
	})
}

func (m *mockServerState) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.requests++
		fail := m.fail
		m.mu.Unlock()
		m.logger.Debug("mock calendar request", "method", r.Method, "path", r.URL.Path)
		if fail != nil {
			if status := fail(r); status != 0 {
				writeError(w, status, http.StatusText(status))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (m *mockServerState) handleInsertCalendar(w http.ResponseWriter, r *http.Request) {
	var cal calendar.Calendar
	if err := json.NewDecoder(r.Body).Decode(&cal); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if cal.Summary == "" {
		writeError(w, http.StatusBadRequest, "Missing summary.")
		return
	}
	m.mu.Lock()
	m.nextID++
	cal.Id = fmt.Sprintf("cal%d@group.calendar.google.com", m.nextID)
	cal.Kind = "calendar#calendar"
	m.calendars[cal.Id] = &mockCalendar{calendar: cal}
	m.mu.Unlock()
	writeJSON(w, http.StatusOK, cal)
}

func (m *mockServerState) lookup(w http.ResponseWriter, r *http.Request) (*mockCalendar, bool) {
	cal, ok := m.calendars[r.PathValue("calendarId")]
	if !ok {
		writeError(w, http.StatusNotFound, "Not Found")
	}
	return cal, ok
}

func (m *mockServerState) handleGetCalendar(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cal, ok := m.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, cal.calendar)
}

func (m *mockServerState) handleListEvents(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cal, ok := m.lookup(w, r)
	if !ok {
		return
	}
	maxResults := 250
	if v, err := strconv.Atoi(r.URL.Query().Get("maxResults")); err == nil && v > 0 {
		maxResults = v
	}
	offset := 0
	if v, err := strconv.Atoi(r.URL.Query().Get("pageToken")); err == nil && v > 0 {
		offset = v
	}
	offset = min(offset, len(cal.events))
	end := min(offset+maxResults, len(cal.events))
	page := calendar.Events{
		Kind:  "calendar#events",
		Items: cal.events[offset:end],
	}
	if end < len(cal.events) {
		page.NextPageToken = strconv.Itoa(end)
	}
	writeJSON(w, http.StatusOK, page)
}

func (m *mockServerState) handleInsertEvent(w http.ResponseWriter, r *http.Request) {
	var ev calendar.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if ev.Start == nil || ev.End == nil || ev.Start.DateTime == "" {
		writeError(w, http.StatusBadRequest, "Missing start or end time.")
		return
	}
	if len(ev.Recurrence) > 0 && ev.Start.TimeZone == "" {
		writeError(w, http.StatusBadRequest, "Missing time zone definition for start time.")
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cal, ok := m.lookup(w, r)
	if !ok {
		return
	}
	m.nextID++
	ev.Id = fmt.Sprintf("ev%d", m.nextID)
	ev.Status = "confirmed"
	cal.events = append(cal.events, &ev)
	writeJSON(w, http.StatusOK, ev)
}

func (m *mockServerState) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cal, ok := m.lookup(w, r)
	if !ok {
		return
	}
	id := r.PathValue("eventId")
	for i, ev := range cal.events {
		if ev.Id == id {
			cal.events = append(cal.events[:i], cal.events[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeError(w, http.StatusGone, "Resource has been deleted")
}

// NewServer starts a mock api, point the provider at server.URL
func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	serverState := &mockServerState{
		logger:    logger,
		calendars: map[string]*mockCalendar{},
	}

	mux := http.NewServeMux()
	// Go 1.22+ routing syntax
	mux.HandleFunc("POST /calendars", serverState.handleInsertCalendar)
	mux.HandleFunc("GET /calendars/{calendarId}", serverState.handleGetCalendar)
	mux.HandleFunc("GET /calendars/{calendarId}/events", serverState.handleListEvents)
	mux.HandleFunc("POST /calendars/{calendarId}/events", serverState.handleInsertEvent)
	mux.HandleFunc("DELETE /calendars/{calendarId}/events/{eventId}", serverState.handleDeleteEvent)

	return &Server{
		Server: httptest.NewServer(serverState.middleware(mux)),
		state:  serverState,
	}
}

// FailWith makes every request for which f returns a non zero status fail
func (s *Server) FailWith(f func(r *http.Request) int) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	s.state.fail = f
}

func (s *Server) AddCalendar(summary string) string {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	s.state.nextID++
	id := fmt.Sprintf("cal%d@group.calendar.google.com", s.state.nextID)
	s.state.calendars[id] = &mockCalendar{calendar: calendar.Calendar{Id: id, Summary: summary}}
	return id
}

func (s *Server) AddEvent(calendarID string, ev *calendar.Event) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	if cal, ok := s.state.calendars[calendarID]; ok {
		s.state.nextID++
		ev.Id = fmt.Sprintf("ev%d", s.state.nextID)
		cal.events = append(cal.events, ev)
	}
}

func (s *Server) DeleteCalendar(calendarID string) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	delete(s.state.calendars, calendarID)
}

func (s *Server) Calendar(calendarID string) (calendar.Calendar, bool) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	cal, ok := s.state.calendars[calendarID]
	if !ok {
		return calendar.Calendar{}, false
	}
	return cal.calendar, true
}

func (s *Server) Events(calendarID string) []*calendar.Event {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	cal, ok := s.state.calendars[calendarID]
	if !ok {
		return nil
	}
	return append([]*calendar.Event(nil), cal.events...)
}

func (s *Server) Requests() int {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	return s.state.requests
}
