package calsync

import (
	"time"
)

type SyncState int

const (
	StateIdle SyncState = iota
	StateEnsuringCalendar
	StateClearingEvents
	StatePushingEvents
	StateDone
	StateFailed
)

func (s SyncState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEnsuringCalendar:
		return "ensuring_calendar"
	case StateClearingEvents:
		return "clearing_events"
	case StatePushingEvents:
		return "pushing_events"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

func (s SyncState) Terminal() bool {
	return s == StateDone || s == StateFailed
}

type Transition struct {
	UserID      string
	SubjectID   string
	SubjectName string
	From        SyncState
	To          SyncState
	// set once a calendar has been ensured
	CalendarID string
	// set when To is StateFailed
	Err error
	At  time.Time
}

// Observer receives every transition of every sync. SyncAll runs students in
// parallel so implementations must be safe for concurrent use.
type Observer interface {
	Observe(Transition)
}

type ObserverFunc func(Transition)

func (f ObserverFunc) Observe(t Transition) {
	f(t)
}

type nopObserver struct{}

func (nopObserver) Observe(Transition) {}

// syncRun walks a single subject through the state machine
type syncRun struct {
	observer    Observer
	now         func() time.Time
	userID      string
	subjectID   string
	subjectName string
	state       SyncState
	calendarID  string
}

func (r *syncRun) advance(to SyncState) {
	r.emit(to, nil)
}

func (r *syncRun) fail(err error) error {
	r.emit(StateFailed, err)
	return err
}

func (r *syncRun) emit(to SyncState, err error) {
	if r.state.Terminal() {
		return
	}
	t := Transition{
		UserID:      r.userID,
		SubjectID:   r.subjectID,
		SubjectName: r.subjectName,
		From:        r.state,
		To:          to,
		CalendarID:  r.calendarID,
		Err:         err,
		At:          r.now(),
	}
	r.state = to
	r.observer.Observe(t)
}
