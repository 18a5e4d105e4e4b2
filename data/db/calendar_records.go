package db

import (
	"context"
)

const getCalendarRecord = `
SELECT user_id, subject_id, calendar_id, is_combined, is_active, last_sync, source_calendar_ids
FROM calendar_records
WHERE user_id = $1 AND subject_id = $2
`

type GetCalendarRecordParams struct {
	UserID    string `json:"user_id"`
	SubjectID string `json:"subject_id"`
}

func (q *Queries) GetCalendarRecord(ctx context.Context, arg GetCalendarRecordParams) (CalendarRecord, error) {
	row := q.db.QueryRow(ctx, getCalendarRecord, arg.UserID, arg.SubjectID)
	var i CalendarRecord
	err := row.Scan(
		&i.UserID,
		&i.SubjectID,
		&i.CalendarID,
		&i.IsCombined,
		&i.IsActive,
		&i.LastSync,
		&i.SourceCalendarIds,
	)
	return i, err
}

const upsertCalendarRecord = `
INSERT INTO calendar_records (
    user_id, subject_id, calendar_id, is_combined, is_active, last_sync, source_calendar_ids
) VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (user_id, subject_id) DO UPDATE SET
    calendar_id         = EXCLUDED.calendar_id,
    is_combined         = EXCLUDED.is_combined,
    is_active           = EXCLUDED.is_active,
    last_sync           = EXCLUDED.last_sync,
    source_calendar_ids = EXCLUDED.source_calendar_ids
RETURNING user_id, subject_id, calendar_id, is_combined, is_active, last_sync, source_calendar_ids
`

type UpsertCalendarRecordParams = CalendarRecord

func (q *Queries) UpsertCalendarRecord(ctx context.Context, arg UpsertCalendarRecordParams) (CalendarRecord, error) {
	row := q.db.QueryRow(ctx, upsertCalendarRecord,
		arg.UserID,
		arg.SubjectID,
		arg.CalendarID,
		arg.IsCombined,
		arg.IsActive,
		arg.LastSync,
		arg.SourceCalendarIds,
	)
	var i CalendarRecord
	err := row.Scan(
		&i.UserID,
		&i.SubjectID,
		&i.CalendarID,
		&i.IsCombined,
		&i.IsActive,
		&i.LastSync,
		&i.SourceCalendarIds,
	)
	return i, err
}

const listCalendarRecords = `
SELECT user_id, subject_id, calendar_id, is_combined, is_active, last_sync, source_calendar_ids
FROM calendar_records
WHERE user_id = $1
ORDER BY is_combined, subject_id
`

func (q *Queries) ListCalendarRecords(ctx context.Context, userID string) ([]CalendarRecord, error) {
	rows, err := q.db.Query(ctx, listCalendarRecords, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CalendarRecord
	for rows.Next() {
		var i CalendarRecord
		if err := rows.Scan(
			&i.UserID,
			&i.SubjectID,
			&i.CalendarID,
			&i.IsCombined,
			&i.IsActive,
			&i.LastSync,
			&i.SourceCalendarIds,
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
