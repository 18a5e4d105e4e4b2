package serversync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Pjt727/homeroom/calsync"
	"github.com/go-chi/chi/v5"
)

const (
	testUser  = "parent-1"
	testEmail = "parent@example.com"
)

type fakeSyncer struct {
	mu       sync.Mutex
	students map[string]calsync.Student
	syncErr  error
	all      calsync.AllResult
	allErr   error
	records  []calsync.CalendarRecord
	// when set, SyncStudent signals entered and waits on release
	entered chan struct{}
	release chan struct{}
	calls   int
}

func (f *fakeSyncer) Student(ctx context.Context, userID, userEmail, studentID string) (calsync.Student, error) {
	s, ok := f.students[studentID]
	if !ok {
		return calsync.Student{}, &calsync.SyncError{Subject: studentID, Op: "find student", Err: calsync.ErrStudentNotFound}
	}
	return s, nil
}

func (f *fakeSyncer) SyncStudent(ctx context.Context, userID, userEmail string, student calsync.Student) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	if f.syncErr != nil {
		return "", f.syncErr
	}
	return "cal-" + student.ID, nil
}

func (f *fakeSyncer) SyncAll(ctx context.Context, userID, userEmail string) (calsync.AllResult, error) {
	return f.all, f.allErr
}

func (f *fakeSyncer) Records(ctx context.Context, userID string) ([]calsync.CalendarRecord, error) {
	return f.records, nil
}

func newFakeSyncer() *fakeSyncer {
	return &fakeSyncer{students: map[string]calsync.Student{
		"s1": {ID: "s1", Name: "Ada", ParentID: testUser},
		"s2": {ID: "s2", Name: "Grace", ParentID: testUser},
	}}
}

func newRouter(syncer Syncer, hub *Hub) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	r.Route("/sync", func(r chi.Router) {
		PopulateSyncRoutes(&r, syncer, hub, logger)
	})
	return r
}

func do(t *testing.T, h http.Handler, method, path string, withUser bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if withUser {
		req.Header.Set(UserIDHeader, testUser)
		req.Header.Set(UserEmailHeader, testEmail)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var e errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&e); err != nil {
		t.Fatalf("could not decode error body: %v", err)
	}
	return e.Error
}

func TestMissingIdentity(t *testing.T) {
	h := newRouter(newFakeSyncer(), nil)
	for _, path := range []string{"/sync/students/s1", "/sync/all"} {
		rec := do(t, h, http.MethodPost, path, false)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", path, rec.Code)
		}
	}
}

func TestSyncStudent(t *testing.T) {
	h := newRouter(newFakeSyncer(), nil)
	rec := do(t, h, http.MethodPost, "/sync/students/s1", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var resp studentSyncResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.CalendarID != "cal-s1" {
		t.Errorf("calendar_id = %q", resp.CalendarID)
	}
}

func TestErrorStatuses(t *testing.T) {
	testCases := []struct {
		name   string
		err    error
		status int
	}{
		{"provider", fmt.Errorf("%w: %w", calsync.ErrProviderFailure, errors.New("quota exceeded")), http.StatusBadGateway},
		{"persistence", fmt.Errorf("%w: %w", calsync.ErrPersistenceFailure, errors.New("db down")), http.StatusInternalServerError},
		{"no students", calsync.ErrNoStudents, http.StatusUnprocessableEntity},
		{"not found", calsync.ErrStudentNotFound, http.StatusNotFound},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			syncer := newFakeSyncer()
			syncer.syncErr = &calsync.SyncError{Subject: "s1", Op: "push events", Err: tc.err}
			rec := do(t, newRouter(syncer, nil), http.MethodPost, "/sync/students/s1", true)
			if rec.Code != tc.status {
				t.Errorf("status = %d, want %d", rec.Code, tc.status)
			}
			msg := decodeError(t, rec)
			if !strings.HasPrefix(msg, "Failed to sync calendar: ") {
				t.Errorf("unexpected message %q", msg)
			}
		})
	}
}

func TestUnknownStudent(t *testing.T) {
	rec := do(t, newRouter(newFakeSyncer(), nil), http.MethodPost, "/sync/students/nobody", true)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestSyncAll(t *testing.T) {
	syncer := newFakeSyncer()
	syncer.all = calsync.AllResult{
		CalendarID: "https://calendar.google.com/calendar/embed?src=cal-s1",
		Students: []calsync.StudentResult{
			{Student: syncer.students["s1"], CalendarID: "cal-s1"},
			{Student: syncer.students["s2"], Err: &calsync.SyncError{
				Subject: "s2", Op: "push events",
				Err: fmt.Errorf("%w: %w", calsync.ErrProviderFailure, errors.New("quota exceeded")),
			}},
		},
	}
	rec := do(t, newRouter(syncer, nil), http.MethodPost, "/sync/all", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var resp allSyncResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.CalendarID != syncer.all.CalendarID {
		t.Errorf("calendar_id = %q", resp.CalendarID)
	}
	if len(resp.Students) != 2 {
		t.Fatalf("students = %+v", resp.Students)
	}
	if resp.Students[0].Error != "" || resp.Students[0].CalendarID != "cal-s1" {
		t.Errorf("first student = %+v", resp.Students[0])
	}
	if !strings.Contains(resp.Students[1].Error, "quota exceeded") {
		t.Errorf("second student = %+v", resp.Students[1])
	}
}

func TestSyncAllEveryStudentFailed(t *testing.T) {
	syncer := newFakeSyncer()
	syncer.allErr = errors.Join(calsync.ErrAllStudentsFailed, fmt.Errorf("%w: timeout", calsync.ErrProviderFailure))
	rec := do(t, newRouter(syncer, nil), http.MethodPost, "/sync/all", true)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestListCalendars(t *testing.T) {
	syncer := newFakeSyncer()
	synced := time.Date(2026, 1, 2, 8, 30, 0, 0, time.UTC)
	syncer.records = []calsync.CalendarRecord{
		{UserID: testUser, SubjectID: "s1", CalendarID: "cal-s1", IsActive: true, LastSyncedAt: synced},
		{UserID: testUser, SubjectID: calsync.AllStudentsSubject, CalendarID: "embed", IsCombined: true, IsActive: true, SourceCalendarIDs: []string{"cal-s1"}},
	}
	rec := do(t, newRouter(syncer, nil), http.MethodGet, "/sync/calendars", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp []calendarRecord
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp) != 2 {
		t.Fatalf("records = %+v", resp)
	}
	if resp[0].LastSyncedAt == nil || !resp[0].LastSyncedAt.Equal(synced) {
		t.Errorf("last_synced_at = %v", resp[0].LastSyncedAt)
	}
	if resp[1].LastSyncedAt != nil || !resp[1].IsCombined || len(resp[1].SourceCalendarIDs) != 1 {
		t.Errorf("combined record = %+v", resp[1])
	}
}

func TestConcurrentSyncOfSameStudentConflicts(t *testing.T) {
	syncer := newFakeSyncer()
	syncer.entered = make(chan struct{})
	syncer.release = make(chan struct{})
	h := newRouter(syncer, nil)

	done := make(chan *httptest.ResponseRecorder)
	go func() {
		done <- do(t, h, http.MethodPost, "/sync/students/s1", true)
	}()
	<-syncer.entered

	if rec := do(t, h, http.MethodPost, "/sync/students/s1", true); rec.Code != http.StatusConflict {
		t.Errorf("same student: status = %d, want 409", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/sync/all", true); rec.Code != http.StatusConflict {
		t.Errorf("all students: status = %d, want 409", rec.Code)
	}

	close(syncer.release)
	if rec := <-done; rec.Code != http.StatusOK {
		t.Errorf("first sync: status = %d", rec.Code)
	}

	syncer.entered = nil
	if rec := do(t, h, http.MethodPost, "/sync/students/s1", true); rec.Code != http.StatusOK {
		t.Errorf("after release: status = %d, want 200", rec.Code)
	}
}

func TestInFlight(t *testing.T) {
	f := newInFlight()
	if !f.acquire("u", "s1") || !f.acquire("u", "s2") {
		t.Fatal("different students should not conflict")
	}
	if f.acquire("u", calsync.AllStudentsSubject) {
		t.Error("all students should wait for running students")
	}
	if !f.acquire("other", calsync.AllStudentsSubject) {
		t.Error("other users are independent")
	}
	f.release("u", "s1")
	f.release("u", "s2")
	if !f.acquire("u", calsync.AllStudentsSubject) {
		t.Error("all students should run once nothing else is")
	}
	if f.acquire("u", "s1") {
		t.Error("students should wait for all students")
	}
}
