package calsync

import (
	"context"
	"time"

	"github.com/Pjt727/homeroom/calsync/providers"
	log "github.com/sirupsen/logrus"
)

const (
	CombinedCalendarName = "All Students"
	defaultCallTimeout   = 15 * time.Second
)

type LifecycleOptions struct {
	// bound on every single provider call
	CallTimeout time.Duration
	Now         func() time.Time
}

// LifecycleManager owns the mapping between subjects and provider calendars.
// It never retries, a failed call fails the step.
type LifecycleManager struct {
	provider    providers.Provider
	records     RecordStore
	callTimeout time.Duration
	now         func() time.Time
}

func NewLifecycleManager(provider providers.Provider, records RecordStore, opts LifecycleOptions) *LifecycleManager {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = defaultCallTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &LifecycleManager{
		provider:    provider,
		records:     records,
		callTimeout: opts.CallTimeout,
		now:         opts.Now,
	}
}

func (m *LifecycleManager) ProviderName() string {
	return m.provider.Name()
}

// runs fn with its own deadline and turns any failure into a provider SyncError
func (m *LifecycleManager) call(ctx context.Context, logger *log.Entry, subject, op string, fn func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, m.callTimeout)
	defer cancel()

	err := fn(callCtx)
	if err == nil {
		return nil
	}
	if callCtx.Err() != nil && ctx.Err() == nil {
		err = callCtx.Err()
	}
	logger.WithFields(log.Fields{
		"op":       op,
		"provider": m.provider.Name(),
	}).Errorf("provider call failed: %v", err)
	return newSyncError(subject, op, ErrProviderFailure, err)
}

func (m *LifecycleManager) exists(ctx context.Context, logger *log.Entry, subject, calendarID string) (bool, error) {
	var exists bool
	err := m.call(ctx, logger, subject, "verify calendar", func(ctx context.Context) error {
		var err error
		exists, err = m.provider.CalendarExists(ctx, calendarID)
		if providers.IsNotFound(err) {
			exists, err = false, nil
		}
		return err
	})
	return exists, err
}

func (m *LifecycleManager) create(ctx context.Context, logger *log.Entry, subject, name string, sources []string) (string, error) {
	var calendarID string
	err := m.call(ctx, logger, subject, "create calendar", func(ctx context.Context) error {
		var err error
		calendarID, err = m.provider.CreateCalendar(ctx, name, sources)
		return err
	})
	return calendarID, err
}

func (m *LifecycleManager) load(ctx context.Context, logger *log.Entry, userID, subject string) (CalendarRecord, bool, error) {
	record, ok, err := m.records.GetCalendarRecord(ctx, userID, subject)
	if err != nil {
		logger.WithField("op", "load record").Errorf("could not read calendar record: %v", err)
		return CalendarRecord{}, false, newSyncError(subject, "load record", ErrPersistenceFailure, err)
	}
	return record, ok, nil
}

func (m *LifecycleManager) save(ctx context.Context, logger *log.Entry, record CalendarRecord) (CalendarRecord, error) {
	saved, err := m.records.UpsertCalendarRecord(ctx, record)
	if err != nil {
		logger.WithField("op", "save record").Errorf("could not write calendar record: %v", err)
		return CalendarRecord{}, newSyncError(record.SubjectID, "save record", ErrPersistenceFailure, err)
	}
	return saved, nil
}

// EnsureStudentCalendar returns the student's live calendar, creating a new
// one when there is no record or the recorded calendar is gone. The bool
// reports whether a calendar was created.
func (m *LifecycleManager) EnsureStudentCalendar(ctx context.Context, logger *log.Entry, userID string, student Student) (CalendarRecord, bool, error) {
	owner := recordOwner(userID, student)
	record, ok, err := m.load(ctx, logger, owner, student.ID)
	if err != nil {
		return CalendarRecord{}, false, err
	}
	if ok && record.IsActive && record.CalendarID != "" {
		exists, err := m.exists(ctx, logger, student.ID, record.CalendarID)
		if err != nil {
			return CalendarRecord{}, false, err
		}
		if exists {
			return record, false, nil
		}
		logger.WithField("calendar", record.CalendarID).Info("recorded calendar is gone, recreating")
	}

	calendarID, err := m.create(ctx, logger, student.ID, student.Name, nil)
	if err != nil {
		return CalendarRecord{}, false, err
	}
	logger.WithField("calendar", calendarID).Info("created calendar")
	saved, err := m.save(ctx, logger, CalendarRecord{
		UserID:       owner,
		SubjectID:    student.ID,
		CalendarID:   calendarID,
		IsActive:     true,
		LastSyncedAt: record.LastSyncedAt,
	})
	if err != nil {
		return CalendarRecord{}, false, err
	}
	return saved, true, nil
}

// Clear wipes every event so the calendar can be rebuilt from scratch
func (m *LifecycleManager) Clear(ctx context.Context, logger *log.Entry, record CalendarRecord) error {
	return m.call(ctx, logger, record.SubjectID, "clear events", func(ctx context.Context) error {
		return m.provider.ClearEvents(ctx, record.CalendarID)
	})
}

func (m *LifecycleManager) Push(ctx context.Context, logger *log.Entry, record CalendarRecord, ev providers.Event) (string, error) {
	var eventID string
	err := m.call(ctx, logger, record.SubjectID, "push event", func(ctx context.Context) error {
		var err error
		eventID, err = m.provider.PushEvent(ctx, record.CalendarID, ev)
		return err
	})
	return eventID, err
}

// EnsureCombinedCalendar reuses the parent's combined calendar only while it
// still references exactly sources, otherwise a new one is created. The
// combined calendar never holds events of its own.
func (m *LifecycleManager) EnsureCombinedCalendar(ctx context.Context, logger *log.Entry, userID string, sources []string) (CalendarRecord, error) {
	record, ok, err := m.load(ctx, logger, userID, AllStudentsSubject)
	if err != nil {
		return CalendarRecord{}, err
	}
	if ok && record.IsActive && record.CalendarID != "" && sameSources(record.SourceCalendarIDs, sources) {
		exists, err := m.exists(ctx, logger, AllStudentsSubject, record.CalendarID)
		if err != nil {
			return CalendarRecord{}, err
		}
		if exists {
			return record, nil
		}
	}

	calendarID, err := m.create(ctx, logger, AllStudentsSubject, CombinedCalendarName, sources)
	if err != nil {
		return CalendarRecord{}, err
	}
	logger.WithFields(log.Fields{"calendar": calendarID, "sources": len(sources)}).Info("created combined calendar")
	return m.save(ctx, logger, CalendarRecord{
		UserID:            userID,
		SubjectID:         AllStudentsSubject,
		CalendarID:        calendarID,
		IsCombined:        true,
		IsActive:          true,
		LastSyncedAt:      record.LastSyncedAt,
		SourceCalendarIDs: append([]string(nil), sources...),
	})
}

// MarkSynced stamps the record, failing here fails the sync
func (m *LifecycleManager) MarkSynced(ctx context.Context, logger *log.Entry, record CalendarRecord) (CalendarRecord, error) {
	record.LastSyncedAt = m.now()
	return m.save(ctx, logger, record)
}

// a student has one calendar whoever syncs it, so its record belongs to the
// parent and co-teachers share it
func recordOwner(userID string, student Student) string {
	if student.ParentID != "" {
		return student.ParentID
	}
	return userID
}

func sameSources(a, b []string) bool {
	counts := make(map[string]int, len(a))
	for _, id := range a {
		counts[id]++
	}
	for _, id := range b {
		counts[id]--
	}
	for _, n := range counts {
		if n != 0 {
			return false
		}
	}
	return true
}
