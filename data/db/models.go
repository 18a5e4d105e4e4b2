package db

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type Student struct {
	ID              string   `json:"id"`
	ParentID        string   `json:"parent_id"`
	ParentEmail     string   `json:"parent_email"`
	Name            string   `json:"name"`
	CoTeacherEmails []string `json:"co_teacher_emails"`
}

type Parent struct {
	ParentID    string `json:"parent_id"`
	ParentEmail string `json:"parent_email"`
}

// OwnedCourse is a row from either the courses or custom_courses table
// normalized to the same columns
type OwnedCourse struct {
	ID         string             `json:"id"`
	Source     string             `json:"source"`
	StudentID  string             `json:"student_id"`
	Title      string             `json:"title"`
	Location   pgtype.Text        `json:"location"`
	Instructor pgtype.Text        `json:"instructor"`
	Days       pgtype.Text        `json:"days"`
	Times      pgtype.Text        `json:"times"`
	Dates      pgtype.Text        `json:"dates"`
	StartDate  pgtype.Timestamptz `json:"start_date"`
	EndDate    pgtype.Timestamptz `json:"end_date"`
}

type CalendarRecord struct {
	UserID            string             `json:"user_id"`
	SubjectID         string             `json:"subject_id"`
	CalendarID        string             `json:"calendar_id"`
	IsCombined        bool               `json:"is_combined"`
	IsActive          bool               `json:"is_active"`
	LastSync          pgtype.Timestamptz `json:"last_sync"`
	SourceCalendarIds []string           `json:"source_calendar_ids"`
}

type FeedCalendar struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	TimeZone  string             `json:"time_zone"`
	SourceIds []string           `json:"source_ids"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
}

type FeedEvent struct {
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
	CreatedAt   pgtype.Timestamptz `json:"created_at"`
}
