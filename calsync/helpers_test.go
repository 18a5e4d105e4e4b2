package calsync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Pjt727/homeroom/calsync/providers/providertest"
)

// memStore is an in memory CourseStore and RecordStore
type memStore struct {
	mu        sync.Mutex
	students  []Student
	courses   map[string][]Course
	records   map[string]CalendarRecord
	upserts   int
	failWrite error
	failList  error
}

func newMemStore() *memStore {
	return &memStore{
		courses: map[string][]Course{},
		records: map[string]CalendarRecord{},
	}
}

func (s *memStore) addStudent(st Student, courses ...Course) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students = append(s.students, st)
	for i := range courses {
		courses[i].StudentID = st.ID
	}
	s.courses[st.ID] = courses
}

func (s *memStore) ListStudents(_ context.Context, userID, userEmail string) ([]Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failList != nil {
		return nil, s.failList
	}
	visible := make([]Student, 0)
	for _, st := range s.students {
		if st.ParentID == userID || (userEmail != "" && st.ParentEmail == userEmail) {
			visible = append(visible, st)
		}
	}
	return visible, nil
}

func (s *memStore) ListCourses(_ context.Context, _, _ string, studentID string) ([]Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failList != nil {
		return nil, s.failList
	}
	return append([]Course(nil), s.courses[studentID]...), nil
}

func (s *memStore) ListParents(context.Context) ([]Parent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]bool{}
	parents := make([]Parent, 0)
	for _, st := range s.students {
		if !seen[st.ParentID] {
			seen[st.ParentID] = true
			parents = append(parents, Parent{ID: st.ParentID, Email: st.ParentEmail})
		}
	}
	return parents, nil
}

func (s *memStore) GetCalendarRecord(_ context.Context, userID, subjectID string) (CalendarRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[userID+"/"+subjectID]
	return r, ok, nil
}

func (s *memStore) UpsertCalendarRecord(_ context.Context, r CalendarRecord) (CalendarRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrite != nil {
		return CalendarRecord{}, s.failWrite
	}
	s.upserts++
	s.records[r.UserID+"/"+r.SubjectID] = r
	return r, nil
}

func (s *memStore) ListCalendarRecords(_ context.Context, userID string) ([]CalendarRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := make([]CalendarRecord, 0)
	for _, r := range s.records {
		if r.UserID == userID {
			records = append(records, r)
		}
	}
	return records, nil
}

func (s *memStore) record(t *testing.T, userID, subjectID string) CalendarRecord {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[userID+"/"+subjectID]
	if !ok {
		t.Fatalf("no record for %s/%s", userID, subjectID)
	}
	return r
}

type recordingObserver struct {
	mu          sync.Mutex
	transitions []Transition
}

func (o *recordingObserver) Observe(t Transition) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transitions = append(o.transitions, t)
}

func (o *recordingObserver) forSubject(subject string) []Transition {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Transition, 0)
	for _, t := range o.transitions {
		if t.SubjectID == subject {
			out = append(out, t)
		}
	}
	return out
}

type harness struct {
	store    *memStore
	provider *providertest.Memory
	observer *recordingObserver
	orch     *Orchestrator
}

func newHarness(t *testing.T, timeout time.Duration) *harness {
	t.Helper()
	h := &harness{
		store:    newMemStore(),
		provider: providertest.NewMemory(),
		observer: &recordingObserver{},
	}
	lifecycle := NewLifecycleManager(h.provider, h.store, LifecycleOptions{CallTimeout: timeout, Now: fixedNow})
	h.orch = NewOrchestrator(OrchestratorConfig{
		Courses:     h.store,
		Lifecycle:   lifecycle,
		Parser:      testParser(),
		Location:    newYork,
		Observer:    h.observer,
		Concurrency: 2,
		Now:         fixedNow,
	})
	return h
}

var errBoom = errors.New("boom")

const (
	parentID    = "parent-1"
	parentEmail = "parent@example.com"
)

func algebra() Course {
	return Course{ID: "algebra", Title: "Algebra I", Location: "Kitchen table", Days: "MW", Times: "09:00am-10:00am", Dates: "01/06-06/01", Source: SourceCourse}
}

func biology() Course {
	return Course{ID: "biology", Title: "Biology", Days: "TR", Times: "1:00pm-2:15pm", Dates: "01/06-05/29", Source: SourceCustom}
}
