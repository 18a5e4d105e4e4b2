package db

import (
	"context"
)

// these queries follow the sqlc layout but are written manually because the
// ownership checks cast uuid columns to text

const listStudents = `
SELECT id::text, parent_id, parent_email, name, co_teacher_emails
FROM students
WHERE parent_id = $1::text
   OR $2::text = ANY(co_teacher_emails)
ORDER BY created_at, id
`

type ListStudentsParams struct {
	UserID    string `json:"user_id"`
	UserEmail string `json:"user_email"`
}

func (q *Queries) ListStudents(ctx context.Context, arg ListStudentsParams) ([]Student, error) {
	rows, err := q.db.Query(ctx, listStudents, arg.UserID, arg.UserEmail)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Student
	for rows.Next() {
		var i Student
		if err := rows.Scan(
			&i.ID,
			&i.ParentID,
			&i.ParentEmail,
			&i.Name,
			&i.CoTeacherEmails,
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

const listParents = `
SELECT DISTINCT parent_id, parent_email
FROM students
ORDER BY parent_id
`

func (q *Queries) ListParents(ctx context.Context) ([]Parent, error) {
	rows, err := q.db.Query(ctx, listParents)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Parent
	for rows.Next() {
		var i Parent
		if err := rows.Scan(&i.ParentID, &i.ParentEmail); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertStudent = `
INSERT INTO students (parent_id, parent_email, name, co_teacher_emails)
VALUES ($1, $2, $3, $4)
RETURNING id::text
`

type InsertStudentParams struct {
	ParentID        string   `json:"parent_id"`
	ParentEmail     string   `json:"parent_email"`
	Name            string   `json:"name"`
	CoTeacherEmails []string `json:"co_teacher_emails"`
}

// used by tests and the seed command, student management lives elsewhere
func (q *Queries) InsertStudent(ctx context.Context, arg InsertStudentParams) (string, error) {
	row := q.db.QueryRow(ctx, insertStudent,
		arg.ParentID,
		arg.ParentEmail,
		arg.Name,
		arg.CoTeacherEmails,
	)
	var id string
	err := row.Scan(&id)
	return id, err
}
