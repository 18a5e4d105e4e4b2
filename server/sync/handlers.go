package serversync

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Pjt727/homeroom/calsync"
	"github.com/go-chi/chi/v5"
)

// Syncer is the part of *calsync.Orchestrator the handlers drive
type Syncer interface {
	Student(ctx context.Context, userID, userEmail, studentID string) (calsync.Student, error)
	SyncStudent(ctx context.Context, userID, userEmail string, student calsync.Student) (string, error)
	SyncAll(ctx context.Context, userID, userEmail string) (calsync.AllResult, error)
	Records(ctx context.Context, userID string) ([]calsync.CalendarRecord, error)
}

type syncHandler struct {
	syncer   Syncer
	logger   *slog.Logger
	inFlight *inFlight
}

type errorResponse struct {
	Error string `json:"error"`
}

type studentSyncResponse struct {
	CalendarID string `json:"calendar_id"`
}

type studentResult struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	CalendarID  string `json:"calendar_id,omitempty"`
	Error       string `json:"error,omitempty"`
}

type allSyncResponse struct {
	CalendarID string          `json:"calendar_id"`
	Students   []studentResult `json:"students"`
}

type calendarRecord struct {
	SubjectID         string     `json:"subject_id"`
	CalendarID        string     `json:"calendar_id"`
	IsCombined        bool       `json:"is_combined"`
	IsActive          bool       `json:"is_active"`
	LastSyncedAt      *time.Time `json:"last_synced_at"`
	SourceCalendarIDs []string   `json:"source_calendar_ids,omitempty"`
}

func (h *syncHandler) syncStudent(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r.Context())
	studentID := chi.URLParam(r, "studentID")

	if !h.inFlight.acquire(u.ID, studentID) {
		writeError(w, http.StatusConflict, "a sync for this student is already running")
		return
	}
	defer h.inFlight.release(u.ID, studentID)

	// a closed tab should not leave a calendar half cleared
	ctx := context.WithoutCancel(r.Context())
	student, err := h.syncer.Student(ctx, u.ID, u.Email, studentID)
	if err != nil {
		h.fail(w, err)
		return
	}
	calendarID, err := h.syncer.SyncStudent(ctx, u.ID, u.Email, student)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, studentSyncResponse{CalendarID: calendarID})
}

func (h *syncHandler) syncAll(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r.Context())

	if !h.inFlight.acquire(u.ID, calsync.AllStudentsSubject) {
		writeError(w, http.StatusConflict, "a sync is already running")
		return
	}
	defer h.inFlight.release(u.ID, calsync.AllStudentsSubject)

	ctx := context.WithoutCancel(r.Context())
	result, err := h.syncer.SyncAll(ctx, u.ID, u.Email)
	if err != nil {
		h.fail(w, err)
		return
	}

	resp := allSyncResponse{
		CalendarID: result.CalendarID,
		Students:   make([]studentResult, len(result.Students)),
	}
	for i, s := range result.Students {
		resp.Students[i] = studentResult{
			StudentID:   s.Student.ID,
			StudentName: s.Student.Name,
			CalendarID:  s.CalendarID,
		}
		if s.Err != nil {
			resp.Students[i].Error = calsync.UserMessage(s.Err)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *syncHandler) listCalendars(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r.Context())
	records, err := h.syncer.Records(r.Context(), u.ID)
	if err != nil {
		h.fail(w, err)
		return
	}
	resp := make([]calendarRecord, len(records))
	for i, rec := range records {
		resp[i] = calendarRecord{
			SubjectID:         rec.SubjectID,
			CalendarID:        rec.CalendarID,
			IsCombined:        rec.IsCombined,
			IsActive:          rec.IsActive,
			SourceCalendarIDs: rec.SourceCalendarIDs,
		}
		if !rec.LastSyncedAt.IsZero() {
			lastSynced := rec.LastSyncedAt
			resp[i].LastSyncedAt = &lastSynced
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *syncHandler) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("sync request failed", "status", status, "err", err)
	} else {
		h.logger.Info("sync request rejected", "status", status, "err", err)
	}
	writeError(w, status, calsync.UserMessage(err))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, calsync.ErrStudentNotFound):
		return http.StatusNotFound
	case errors.Is(err, calsync.ErrNoStudents):
		return http.StatusUnprocessableEntity
	case errors.Is(err, calsync.ErrProviderFailure):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Error("Could not marshal response", "err", err)
		http.Error(w, http.StatusText(500), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}
