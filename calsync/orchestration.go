package calsync

import (
	"context"
	"errors"
	"time"

	"github.com/Pjt727/homeroom/calsync/providers"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 4

type OrchestratorConfig struct {
	Courses   CourseStore
	Lifecycle *LifecycleManager
	Parser    *ScheduleParser
	// the single zone every schedule is read in
	Location    *time.Location
	Observer    Observer
	Concurrency int
	Now         func() time.Time
}

type Orchestrator struct {
	courses     CourseStore
	lifecycle   *LifecycleManager
	parser      *ScheduleParser
	loc         *time.Location
	observer    Observer
	concurrency int
	now         func() time.Time
}

func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Parser == nil {
		cfg.Parser = NewScheduleParser(cfg.Location, cfg.Now)
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return &Orchestrator{
		courses:     cfg.Courses,
		lifecycle:   cfg.Lifecycle,
		parser:      cfg.Parser,
		loc:         cfg.Location,
		observer:    cfg.Observer,
		concurrency: cfg.Concurrency,
		now:         cfg.Now,
	}
}

func getSubjectLogger(userID, subjectID, subjectName string) *log.Entry {
	return log.WithFields(log.Fields{
		"user":    userID,
		"subject": subjectID,
		"name":    subjectName,
	})
}

func (o *Orchestrator) newRun(userID, subjectID, subjectName string) *syncRun {
	return &syncRun{
		observer:    o.observer,
		now:         o.now,
		userID:      userID,
		subjectID:   subjectID,
		subjectName: subjectName,
		state:       StateIdle,
	}
}

// SyncStudent rebuilds the student's calendar from their current courses and
// returns its id. Any failed push fails the whole sync.
func (o *Orchestrator) SyncStudent(ctx context.Context, userID, userEmail string, student Student) (string, error) {
	logger := getSubjectLogger(userID, student.ID, student.Name)
	run := o.newRun(userID, student.ID, student.Name)

	run.advance(StateEnsuringCalendar)
	courses, err := o.courses.ListCourses(ctx, userID, userEmail, student.ID)
	if err != nil {
		logger.WithField("op", "list courses").Errorf("could not load courses: %v", err)
		return "", run.fail(newSyncError(student.ID, "list courses", ErrStoreFailure, err))
	}
	record, created, err := o.lifecycle.EnsureStudentCalendar(ctx, logger, userID, student)
	if err != nil {
		return "", run.fail(err)
	}
	run.calendarID = record.CalendarID

	run.advance(StateClearingEvents)
	if err := o.lifecycle.Clear(ctx, logger, record); err != nil {
		return "", run.fail(err)
	}

	run.advance(StatePushingEvents)
	pushed := 0
	for _, course := range courses {
		sched := o.parse(logger, course)
		for _, ev := range BuildEvents(course, sched, o.buildOptions(student.Name, false)) {
			if _, err := o.lifecycle.Push(ctx, logger, record, ev); err != nil {
				logger.WithField("course", course.ID).Warn("aborting sync, calendar is partially built")
				return "", run.fail(err)
			}
			pushed++
		}
	}

	if _, err := o.lifecycle.MarkSynced(ctx, logger, record); err != nil {
		return "", run.fail(err)
	}
	run.advance(StateDone)
	logger.WithFields(log.Fields{
		"calendar": record.CalendarID,
		"created":  created,
		"courses":  len(courses),
		"events":   pushed,
	}).Info("synced calendar")
	return record.CalendarID, nil
}

func (o *Orchestrator) parse(logger *log.Entry, course Course) NormalizedSchedule {
	sched := o.parser.Parse(course)
	if sched.TimeDefaulted || sched.RangeDefaulted {
		logger.WithFields(log.Fields{
			"course":          course.ID,
			"times":           course.Times,
			"dates":           course.Dates,
			"time_defaulted":  sched.TimeDefaulted,
			"range_defaulted": sched.RangeDefaulted,
		}).Debug("using default schedule values")
	}
	if len(sched.Weekdays) == 0 {
		logger.WithFields(log.Fields{"course": course.ID, "days": course.Days}).Debug("course has no meeting days")
	}
	return sched
}

func (o *Orchestrator) buildOptions(studentName string, combined bool) BuildOptions {
	return BuildOptions{
		StudentName: studentName,
		Combined:    combined,
		Location:    o.loc,
	}
}

type StudentResult struct {
	Student    Student
	CalendarID string
	Err        error
}

type AllResult struct {
	// the combined calendar
	CalendarID string
	Students   []StudentResult
}

// Failed lists the students whose sync failed
func (r AllResult) Failed() []StudentResult {
	failed := make([]StudentResult, 0)
	for _, s := range r.Students {
		if s.Err != nil {
			failed = append(failed, s)
		}
	}
	return failed
}

// SyncAll syncs every student of the user in parallel then points the
// combined calendar at the calendars which synced. One student failing
// does not stop the others.
func (o *Orchestrator) SyncAll(ctx context.Context, userID, userEmail string) (AllResult, error) {
	logger := getSubjectLogger(userID, AllStudentsSubject, CombinedCalendarName)
	students, err := o.courses.ListStudents(ctx, userID, userEmail)
	if err != nil {
		logger.WithField("op", "list students").Errorf("could not load students: %v", err)
		return AllResult{}, newSyncError(AllStudentsSubject, "list students", ErrStoreFailure, err)
	}
	if len(students) == 0 {
		return AllResult{}, newSyncError(AllStudentsSubject, "list students", ErrNoStudents, errors.New("user has no students"))
	}

	results := make([]StudentResult, len(students))
	var eg errgroup.Group
	eg.SetLimit(o.concurrency)
	for i, student := range students {
		eg.Go(func() error {
			calendarID, err := o.SyncStudent(ctx, userID, userEmail, student)
			results[i] = StudentResult{Student: student, CalendarID: calendarID, Err: err}
			// never cancel siblings
			return nil
		})
	}
	_ = eg.Wait()

	result := AllResult{Students: results}
	sources := make([]string, 0, len(results))
	failures := make([]error, 0)
	for _, r := range results {
		if r.Err != nil {
			failures = append(failures, r.Err)
			continue
		}
		sources = append(sources, r.CalendarID)
	}
	if len(sources) == 0 {
		return result, errors.Join(append([]error{ErrAllStudentsFailed}, failures...)...)
	}
	if len(failures) > 0 {
		logger.WithField("failed", len(failures)).Warn("some students failed, combined calendar only references the rest")
	}

	run := o.newRun(userID, AllStudentsSubject, CombinedCalendarName)
	run.advance(StateEnsuringCalendar)
	record, err := o.lifecycle.EnsureCombinedCalendar(ctx, logger, userID, sources)
	if err != nil {
		return result, run.fail(err)
	}
	run.calendarID = record.CalendarID
	if _, err := o.lifecycle.MarkSynced(ctx, logger, record); err != nil {
		return result, run.fail(err)
	}
	run.advance(StateDone)

	result.CalendarID = record.CalendarID
	return result, nil
}

// Student resolves one of the user's students
func (o *Orchestrator) Student(ctx context.Context, userID, userEmail, studentID string) (Student, error) {
	students, err := o.courses.ListStudents(ctx, userID, userEmail)
	if err != nil {
		return Student{}, newSyncError(studentID, "list students", ErrStoreFailure, err)
	}
	for _, s := range students {
		if s.ID == studentID {
			return s, nil
		}
	}
	return Student{}, newSyncError(studentID, "find student", ErrStudentNotFound, errors.New("not visible to this user"))
}

type PreviewEvent struct {
	Student  Student
	CourseID string
	Schedule NormalizedSchedule
	Event    providers.Event
}

// Preview builds every event a sync would push without calling the provider
func (o *Orchestrator) Preview(ctx context.Context, userID, userEmail string, combined bool) ([]PreviewEvent, error) {
	students, err := o.courses.ListStudents(ctx, userID, userEmail)
	if err != nil {
		return nil, newSyncError(AllStudentsSubject, "list students", ErrStoreFailure, err)
	}
	if len(students) == 0 {
		return nil, newSyncError(AllStudentsSubject, "list students", ErrNoStudents, errors.New("user has no students"))
	}
	previews := make([]PreviewEvent, 0)
	for _, student := range students {
		logger := getSubjectLogger(userID, student.ID, student.Name)
		courses, err := o.courses.ListCourses(ctx, userID, userEmail, student.ID)
		if err != nil {
			return nil, newSyncError(student.ID, "list courses", ErrStoreFailure, err)
		}
		for _, course := range courses {
			sched := o.parse(logger, course)
			for _, ev := range BuildEvents(course, sched, o.buildOptions(student.Name, combined)) {
				previews = append(previews, PreviewEvent{
					Student:  student,
					CourseID: course.ID,
					Schedule: sched,
					Event:    ev,
				})
			}
		}
	}
	return previews, nil
}

// Records lists the user's calendars
func (o *Orchestrator) Records(ctx context.Context, userID string) ([]CalendarRecord, error) {
	records, err := o.lifecycle.records.ListCalendarRecords(ctx, userID)
	if err != nil {
		return nil, newSyncError(AllStudentsSubject, "list records", ErrPersistenceFailure, err)
	}
	return records, nil
}
