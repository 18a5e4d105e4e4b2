package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const listOwnedCourses = `
SELECT merged.id, merged.source, merged.student_id, merged.title,
       merged.location, merged.instructor, merged.days, merged.times,
       merged.dates, merged.start_date, merged.end_date
FROM (
    SELECT c.id::text AS id, 'course' AS source, c.student_id::text AS student_id,
           c.title, c.location, c.instructor, c.days, c.times, c.dates,
           c.start_date, c.end_date, c.created_at, 0 AS source_order
    FROM courses c
    WHERE c.student_id::text = $3::text
      AND (c.created_by = $1::text OR $2::text = ANY(c.co_teacher_emails))
    UNION ALL
    SELECT cc.id::text, 'custom', cc.student_id::text,
           cc.course_name, cc.meeting_place, cc.teacher_name, cc.meeting_days,
           cc.meeting_times, cc.term_dates, cc.term_start, cc.term_end,
           cc.created_at, 1
    FROM custom_courses cc
    WHERE cc.student_id::text = $3::text
      AND (cc.created_by = $1::text OR $2::text = ANY(cc.co_teacher_emails))
) merged
ORDER BY merged.source_order, merged.created_at, merged.id
`

type ListOwnedCoursesParams struct {
	UserID    string `json:"user_id"`
	UserEmail string `json:"user_email"`
	StudentID string `json:"student_id"`
}

func (q *Queries) ListOwnedCourses(ctx context.Context, arg ListOwnedCoursesParams) ([]OwnedCourse, error) {
	rows, err := q.db.Query(ctx, listOwnedCourses, arg.UserID, arg.UserEmail, arg.StudentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OwnedCourse
	for rows.Next() {
		var i OwnedCourse
		if err := rows.Scan(
			&i.ID,
			&i.Source,
			&i.StudentID,
			&i.Title,
			&i.Location,
			&i.Instructor,
			&i.Days,
			&i.Times,
			&i.Dates,
			&i.StartDate,
			&i.EndDate,
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

const insertCourse = `
INSERT INTO courses (
    student_id, title, location, instructor, days, times, dates,
    start_date, end_date, created_by, co_teacher_emails
) VALUES ($1::text::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id::text
`

type InsertCourseParams struct {
	StudentID       string             `json:"student_id"`
	Title           string             `json:"title"`
	Location        pgtype.Text        `json:"location"`
	Instructor      pgtype.Text        `json:"instructor"`
	Days            pgtype.Text        `json:"days"`
	Times           pgtype.Text        `json:"times"`
	Dates           pgtype.Text        `json:"dates"`
	StartDate       pgtype.Timestamptz `json:"start_date"`
	EndDate         pgtype.Timestamptz `json:"end_date"`
	CreatedBy       string             `json:"created_by"`
	CoTeacherEmails []string           `json:"co_teacher_emails"`
}

func (q *Queries) InsertCourse(ctx context.Context, arg InsertCourseParams) (string, error) {
	row := q.db.QueryRow(ctx, insertCourse,
		arg.StudentID,
		arg.Title,
		arg.Location,
		arg.Instructor,
		arg.Days,
		arg.Times,
		arg.Dates,
		arg.StartDate,
		arg.EndDate,
		arg.CreatedBy,
		arg.CoTeacherEmails,
	)
	var id string
	err := row.Scan(&id)
	return id, err
}

const insertCustomCourse = `
INSERT INTO custom_courses (
    student_id, course_name, meeting_place, teacher_name, meeting_days,
    meeting_times, term_dates, term_start, term_end, created_by, co_teacher_emails
) VALUES ($1::text::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id::text
`

// custom courses share the column set of InsertCourseParams under different names
func (q *Queries) InsertCustomCourse(ctx context.Context, arg InsertCourseParams) (string, error) {
	row := q.db.QueryRow(ctx, insertCustomCourse,
		arg.StudentID,
		arg.Title,
		arg.Location,
		arg.Instructor,
		arg.Days,
		arg.Times,
		arg.Dates,
		arg.StartDate,
		arg.EndDate,
		arg.CreatedBy,
		arg.CoTeacherEmails,
	)
	var id string
	err := row.Scan(&id)
	return id, err
}
