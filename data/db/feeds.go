package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const insertFeedCalendar = `
INSERT INTO feed_calendars (id, name, time_zone, source_ids)
VALUES ($1, $2, $3, $4)
`

type InsertFeedCalendarParams struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	TimeZone  string   `json:"time_zone"`
	SourceIds []string `json:"source_ids"`
}

func (q *Queries) InsertFeedCalendar(ctx context.Context, arg InsertFeedCalendarParams) error {
	_, err := q.db.Exec(ctx, insertFeedCalendar,
		arg.ID,
		arg.Name,
		arg.TimeZone,
		arg.SourceIds,
	)
	return err
}

const getFeedCalendar = `
SELECT id, name, time_zone, source_ids, created_at
FROM feed_calendars
WHERE id = $1
`

func (q *Queries) GetFeedCalendar(ctx context.Context, id string) (FeedCalendar, error) {
	row := q.db.QueryRow(ctx, getFeedCalendar, id)
	var i FeedCalendar
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.TimeZone,
		&i.SourceIds,
		&i.CreatedAt,
	)
	return i, err
}

const deleteFeedEvents = `
DELETE FROM feed_events
WHERE calendar_id = $1
`

func (q *Queries) DeleteFeedEvents(ctx context.Context, calendarID string) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteFeedEvents, calendarID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const insertFeedEvent = `
INSERT INTO feed_events (
    id, calendar_id, summary, description, location, color_id,
    time_zone, starts_at, ends_at, recurrence
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

type InsertFeedEventParams struct {
	ID          string             `json:"id"`
	CalendarID  string             `json:"calendar_id"`
	Summary     string             `json:"summary"`
	Description string             `json:"description"`
	Location    string             `json:"location"`
	ColorID     string             `json:"color_id"`
	TimeZone    string             `json:"time_zone"`
	StartsAt    pgtype.Timestamptz `json:"starts_at"`
	EndsAt      pgtype.Timestamptz `json:"ends_at"`
	Recurrence  []string           `json:"recurrence"`
}

func (q *Queries) InsertFeedEvent(ctx context.Context, arg InsertFeedEventParams) error {
	_, err := q.db.Exec(ctx, insertFeedEvent,
		arg.ID,
		arg.CalendarID,
		arg.Summary,
		arg.Description,
		arg.Location,
		arg.ColorID,
		arg.TimeZone,
		arg.StartsAt,
		arg.EndsAt,
		arg.Recurrence,
	)
	return err
}

const listFeedEvents = `
SELECT id, calendar_id, summary, description, location, color_id,
       time_zone, starts_at, ends_at, recurrence, created_at
FROM feed_events
WHERE calendar_id = ANY($1::text[])
ORDER BY calendar_id, starts_at, id
`

// takes several ids so combined feeds resolve every source in one round trip
func (q *Queries) ListFeedEvents(ctx context.Context, calendarIDs []string) ([]FeedEvent, error) {
	rows, err := q.db.Query(ctx, listFeedEvents, calendarIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []FeedEvent
	for rows.Next() {
		var i FeedEvent
		if err := rows.Scan(
			&i.ID,
			&i.CalendarID,
			&i.Summary,
			&i.Description,
			&i.Location,
			&i.ColorID,
			&i.TimeZone,
			&i.StartsAt,
			&i.EndsAt,
			&i.Recurrence,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listFeedCalendars = `
SELECT id, name, time_zone, source_ids, created_at
FROM feed_calendars
WHERE id = ANY($1::text[])
`

func (q *Queries) ListFeedCalendars(ctx context.Context, ids []string) ([]FeedCalendar, error) {
	rows, err := q.db.Query(ctx, listFeedCalendars, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []FeedCalendar
	for rows.Next() {
		var i FeedCalendar
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.TimeZone,
			&i.SourceIds,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
