package calsync

import (
	"errors"
	"fmt"
)

// steps of a sync wrap their failures in a SyncError whose Err wraps one of
// these sentinels, e.g. a timed out CalendarExists call is an ErrProviderFailure
var (
	// the calendar provider rejected or never answered a call
	ErrProviderFailure = errors.New("calendar provider failure")

	// the calendar record could not be read or written, without it the next sync
	// could not find the calendar again
	ErrPersistenceFailure = errors.New("calendar record persistence failure")

	// courses or students could not be loaded
	ErrStoreFailure = errors.New("course store failure")

	ErrNoStudents        = errors.New("no students to sync")
	ErrStudentNotFound   = errors.New("student not found")
	ErrAllStudentsFailed = errors.New("every student failed to sync")
)

type SyncError struct {
	// student id or AllStudentsSubject
	Subject string
	// the step which failed (e.g. "create calendar")
	Op  string
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("%s for %s: %v", e.Op, e.Subject, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

func newSyncError(subject, op string, kind error, cause error) *SyncError {
	return &SyncError{
		Subject: subject,
		Op:      op,
		Err:     fmt.Errorf("%w: %w", kind, cause),
	}
}

// UserMessage is the text shown next to the sync button
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var syncErr *SyncError
	if errors.As(err, &syncErr) {
		return "Failed to sync calendar: " + syncErr.Err.Error()
	}
	return "Failed to sync calendar: " + err.Error()
}
