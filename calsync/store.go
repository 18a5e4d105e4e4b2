package calsync

import (
	"context"
	"errors"
	"time"

	"github.com/Pjt727/homeroom/data/db"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// AllStudentsSubject is the subject id of a parent's combined calendar
const AllStudentsSubject = "all_students"

const (
	SourceCourse = "course"
	SourceCustom = "custom"
)

type Course struct {
	ID         string
	Title      string
	Location   string
	Instructor string
	StudentID  string
	Days       string
	Times      string
	Dates      string
	// when both are set they win over Dates
	StartDate *time.Time
	EndDate   *time.Time
	// SourceCourse or SourceCustom
	Source string
}

type Student struct {
	ID          string
	Name        string
	ParentID    string
	ParentEmail string
}

type Parent struct {
	ID    string
	Email string
}

type CalendarRecord struct {
	UserID            string
	SubjectID         string
	CalendarID        string
	IsCombined        bool
	IsActive          bool
	LastSyncedAt      time.Time
	SourceCalendarIDs []string
}

// CourseStore reads data owned by the course management side of the product
type CourseStore interface {
	ListStudents(ctx context.Context, userID, userEmail string) ([]Student, error)
	ListCourses(ctx context.Context, userID, userEmail, studentID string) ([]Course, error)
	ListParents(ctx context.Context) ([]Parent, error)
}

type RecordStore interface {
	// the bool is false when no record exists
	GetCalendarRecord(ctx context.Context, userID, subjectID string) (CalendarRecord, bool, error)
	UpsertCalendarRecord(ctx context.Context, record CalendarRecord) (CalendarRecord, error)
	ListCalendarRecords(ctx context.Context, userID string) ([]CalendarRecord, error)
}

type PgStore struct {
	q *db.Queries
}

func NewPgStore(conn db.DBTX) *PgStore {
	return &PgStore{q: db.New(conn)}
}

func (s *PgStore) ListStudents(ctx context.Context, userID, userEmail string) ([]Student, error) {
	rows, err := s.q.ListStudents(ctx, db.ListStudentsParams{UserID: userID, UserEmail: userEmail})
	if err != nil {
		return nil, err
	}
	students := make([]Student, len(rows))
	for i, row := range rows {
		students[i] = Student{
			ID:          row.ID,
			Name:        row.Name,
			ParentID:    row.ParentID,
			ParentEmail: row.ParentEmail,
		}
	}
	return students, nil
}

func (s *PgStore) ListCourses(ctx context.Context, userID, userEmail, studentID string) ([]Course, error) {
	rows, err := s.q.ListOwnedCourses(ctx, db.ListOwnedCoursesParams{
		UserID:    userID,
		UserEmail: userEmail,
		StudentID: studentID,
	})
	if err != nil {
		return nil, err
	}
	courses := make([]Course, len(rows))
	for i, row := range rows {
		courses[i] = Course{
			ID:         row.ID,
			Title:      row.Title,
			Location:   row.Location.String,
			Instructor: row.Instructor.String,
			StudentID:  row.StudentID,
			Days:       row.Days.String,
			Times:      row.Times.String,
			Dates:      row.Dates.String,
			StartDate:  timePtr(row.StartDate),
			EndDate:    timePtr(row.EndDate),
			Source:     row.Source,
		}
	}
	return courses, nil
}

func (s *PgStore) ListParents(ctx context.Context) ([]Parent, error) {
	rows, err := s.q.ListParents(ctx)
	if err != nil {
		return nil, err
	}
	parents := make([]Parent, len(rows))
	for i, row := range rows {
		parents[i] = Parent{ID: row.ParentID, Email: row.ParentEmail}
	}
	return parents, nil
}

func (s *PgStore) GetCalendarRecord(ctx context.Context, userID, subjectID string) (CalendarRecord, bool, error) {
	row, err := s.q.GetCalendarRecord(ctx, db.GetCalendarRecordParams{UserID: userID, SubjectID: subjectID})
	if errors.Is(err, pgx.ErrNoRows) {
		return CalendarRecord{}, false, nil
	}
	if err != nil {
		return CalendarRecord{}, false, err
	}
	return recordFromRow(row), true, nil
}

func (s *PgStore) UpsertCalendarRecord(ctx context.Context, record CalendarRecord) (CalendarRecord, error) {
	sources := record.SourceCalendarIDs
	if sources == nil {
		sources = []string{}
	}
	row, err := s.q.UpsertCalendarRecord(ctx, db.UpsertCalendarRecordParams{
		UserID:            record.UserID,
		SubjectID:         record.SubjectID,
		CalendarID:        record.CalendarID,
		IsCombined:        record.IsCombined,
		IsActive:          record.IsActive,
		LastSync:          pgtype.Timestamptz{Time: record.LastSyncedAt, Valid: !record.LastSyncedAt.IsZero()},
		SourceCalendarIds: sources,
	})
	if err != nil {
		return CalendarRecord{}, err
	}
	return recordFromRow(row), nil
}

func (s *PgStore) ListCalendarRecords(ctx context.Context, userID string) ([]CalendarRecord, error) {
	rows, err := s.q.ListCalendarRecords(ctx, userID)
	if err != nil {
		return nil, err
	}
	records := make([]CalendarRecord, len(rows))
	for i, row := range rows {
		records[i] = recordFromRow(row)
	}
	return records, nil
}

func recordFromRow(row db.CalendarRecord) CalendarRecord {
	r := CalendarRecord{
		UserID:            row.UserID,
		SubjectID:         row.SubjectID,
		CalendarID:        row.CalendarID,
		IsCombined:        row.IsCombined,
		IsActive:          row.IsActive,
		SourceCalendarIDs: row.SourceCalendarIds,
	}
	if row.LastSync.Valid {
		r.LastSyncedAt = row.LastSync.Time
	}
	return r
}

func timePtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
