package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Pjt727/homeroom/calsync"
	"github.com/Pjt727/homeroom/config"
)

type nopSyncer struct{}

func (nopSyncer) Student(ctx context.Context, userID, userEmail, studentID string) (calsync.Student, error) {
	return calsync.Student{}, calsync.ErrStudentNotFound
}

func (nopSyncer) SyncStudent(ctx context.Context, userID, userEmail string, student calsync.Student) (string, error) {
	return "", nil
}

func (nopSyncer) SyncAll(ctx context.Context, userID, userEmail string) (calsync.AllResult, error) {
	return calsync.AllResult{}, calsync.ErrNoStudents
}

func (nopSyncer) Records(ctx context.Context, userID string) ([]calsync.CalendarRecord, error) {
	return nil, nil
}

func testRouter() http.Handler {
	cfg := config.DefaultConfig()
	cfg.AllowedOrigins = []string{"https://homeroom.example"}
	return NewRouter(cfg, Deps{
		Syncer: nopSyncer{},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestFeedsOnlyWhenConfigured(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/feeds/abc.ics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 without a feed provider", rec.Code)
	}
}

func TestCorsAllowsIdentityHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/sync/all", nil)
	req.Header.Set("Origin", "https://homeroom.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "X-User-Id")
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://homeroom.example" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestSyncRoutesMounted(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/sync/all", nil)
	req.Header.Set("X-User-ID", "u1")
	req.Header.Set("X-User-Email", "u1@example.com")
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422 for a user without students", rec.Code)
	}
}
