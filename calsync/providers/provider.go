package providers

import (
	"context"
	"errors"
	"time"
)

// providers wrap transport errors they can recognize, e.g. a calendar which no
// longer exists wraps ErrNotFound
var ErrNotFound = errors.New("calendar resource not found")

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Event is one weekly recurring meeting of a course. Start and End are the
// first occurrence, Until is the last calendar date the rule may produce.
type Event struct {
	Summary     string
	Description string
	Location    string
	ColorID     string
	TimeZone    string
	Weekday     time.Weekday
	Start       time.Time
	End         time.Time
	Until       time.Time
	// RFC 5545 lines such as "RRULE:FREQ=WEEKLY;..."
	Recurrence []string
}

type Provider interface {
	Name() string

	// sources is only set for combined calendars which reference the
	// calendars of each student instead of holding their own events
	CreateCalendar(ctx context.Context, name string, sources []string) (string, error)

	CalendarExists(ctx context.Context, calendarID string) (bool, error)

	// removes every event from the calendar
	ClearEvents(ctx context.Context, calendarID string) error

	// returns the provider's id of the new event
	PushEvent(ctx context.Context, calendarID string, ev Event) (string, error)
}
