// Package feed hosts calendars in Postgres and serves them as iCalendar
// feeds, for families who subscribe from any calendar app instead of
// connecting a Google account
package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Pjt727/homeroom/calsync/providers"
	"github.com/Pjt727/homeroom/data/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const ProviderName = "feed"

type Provider struct {
	q        *db.Queries
	timeZone string
	now      func() time.Time
}

func New(conn db.DBTX, timeZone string) *Provider {
	if timeZone == "" {
		timeZone = "UTC"
	}
	return &Provider{q: db.New(conn), timeZone: timeZone, now: time.Now}
}

func (p *Provider) Name() string {
	return ProviderName
}

func (p *Provider) calendar(ctx context.Context, calendarID string) (db.FeedCalendar, error) {
	cal, err := p.q.GetFeedCalendar(ctx, calendarID)
	if errors.Is(err, pgx.ErrNoRows) {
		return db.FeedCalendar{}, fmt.Errorf("feed %s: %w", calendarID, providers.ErrNotFound)
	}
	return cal, err
}

func (p *Provider) CreateCalendar(ctx context.Context, name string, sources []string) (string, error) {
	if sources == nil {
		sources = []string{}
	}
	id := uuid.NewString()
	err := p.q.InsertFeedCalendar(ctx, db.InsertFeedCalendarParams{
		ID:        id,
		Name:      name,
		TimeZone:  p.timeZone,
		SourceIds: sources,
	})
	if err != nil {
		return "", fmt.Errorf("insert feed calendar: %w", err)
	}
	return id, nil
}

// a combined feed only exists while every feed it references does
func (p *Provider) CalendarExists(ctx context.Context, calendarID string) (bool, error) {
	cal, err := p.calendar(ctx, calendarID)
	if providers.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(cal.SourceIds) == 0 {
		return true, nil
	}
	sources, err := p.q.ListFeedCalendars(ctx, cal.SourceIds)
	if err != nil {
		return false, err
	}
	return len(sources) == len(cal.SourceIds), nil
}

func (p *Provider) ClearEvents(ctx context.Context, calendarID string) error {
	if _, err := p.calendar(ctx, calendarID); err != nil {
		return err
	}
	if _, err := p.q.DeleteFeedEvents(ctx, calendarID); err != nil {
		return fmt.Errorf("delete feed events: %w", err)
	}
	return nil
}

func (p *Provider) PushEvent(ctx context.Context, calendarID string, ev providers.Event) (string, error) {
	cal, err := p.calendar(ctx, calendarID)
	if err != nil {
		return "", err
	}
	if len(cal.SourceIds) > 0 {
		return "", errors.New("combined feeds only reference other feeds")
	}
	timeZone := ev.TimeZone
	if timeZone == "" {
		timeZone = cal.TimeZone
	}
	recurrence := ev.Recurrence
	if recurrence == nil {
		recurrence = []string{}
	}
	id := uuid.NewString()
	err = p.q.InsertFeedEvent(ctx, db.InsertFeedEventParams{
		ID:          id,
		CalendarID:  calendarID,
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		ColorID:     ev.ColorID,
		TimeZone:    timeZone,
		StartsAt:    pgtype.Timestamptz{Time: ev.Start, Valid: true},
		EndsAt:      pgtype.Timestamptz{Time: ev.End, Valid: true},
		Recurrence:  recurrence,
	})
	if err != nil {
		return "", fmt.Errorf("insert feed event: %w", err)
	}
	return id, nil
}

// Render serializes the calendar, combined feeds include the events of
// every source
func (p *Provider) Render(ctx context.Context, calendarID string) ([]byte, error) {
	cal, err := p.calendar(ctx, calendarID)
	if err != nil {
		return nil, err
	}
	ids := []string{cal.ID}
	sources := map[string]db.FeedCalendar{}
	if len(cal.SourceIds) > 0 {
		ids = cal.SourceIds
		rows, err := p.q.ListFeedCalendars(ctx, cal.SourceIds)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			sources[row.ID] = row
		}
	}
	events, err := p.q.ListFeedEvents(ctx, ids)
	if err != nil {
		return nil, err
	}
	return []byte(renderCalendar(cal, sources, events, p.now())), nil
}
