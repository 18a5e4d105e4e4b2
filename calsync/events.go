package calsync

import (
	"fmt"
	"strings"
	"time"

	"github.com/Pjt727/homeroom/calsync/providers"
	"github.com/teambition/rrule-go"
)

const untitledCourse = "Untitled course"

var rruleWeekdays = map[time.Weekday]rrule.Weekday{
	time.Sunday:    rrule.SU,
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
}

type BuildOptions struct {
	StudentName string
	// suffixes summaries with the student name to tell students apart
	Combined bool
	Location *time.Location
}

// BuildEvents emits one weekly recurring event per scheduled weekday which
// occurs at least once inside the schedule's range
func BuildEvents(c Course, sched NormalizedSchedule, opts BuildOptions) []providers.Event {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	summary := strings.TrimSpace(c.Title)
	if summary == "" {
		summary = untitledCourse
	}
	if opts.Combined && opts.StudentName != "" {
		summary = fmt.Sprintf("%s (%s)", summary, opts.StudentName)
	}
	description := describe(c, opts.StudentName)
	color := ColorFor(c.StudentID)
	rangeStart := sched.RangeStart.In(loc)
	rangeEnd := sched.RangeEnd.In(loc)
	// the range is inclusive, so the rule ends with the last local day
	until := time.Date(rangeEnd.Year(), rangeEnd.Month(), rangeEnd.Day(), 23, 59, 59, 0, loc).UTC()

	events := make([]providers.Event, 0, len(sched.Weekdays))
	for _, day := range sched.Weekdays {
		offset := (int(day) - int(rangeStart.Weekday()) + 7) % 7
		anchor := rangeStart.AddDate(0, 0, offset)
		if anchor.After(rangeEnd) {
			continue
		}
		start := time.Date(anchor.Year(), anchor.Month(), anchor.Day(), sched.Start.Hour, sched.Start.Minute, 0, 0, loc)
		end := time.Date(anchor.Year(), anchor.Month(), anchor.Day(), sched.End.Hour, sched.End.Minute, 0, 0, loc)
		rule := rrule.ROption{
			Freq:      rrule.WEEKLY,
			Until:     until,
			Byweekday: []rrule.Weekday{rruleWeekdays[day]},
		}
		events = append(events, providers.Event{
			Summary:     summary,
			Description: description,
			Location:    c.Location,
			ColorID:     color,
			TimeZone:    loc.String(),
			Weekday:     day,
			Start:       start,
			End:         end,
			Until:       until,
			Recurrence:  []string{"RRULE:" + rule.RRuleString()},
		})
	}
	return events
}

func describe(c Course, studentName string) string {
	lines := make([]string, 0, 4)
	add := func(label, value string) {
		if value = strings.TrimSpace(value); value != "" {
			lines = append(lines, label+": "+value)
		}
	}
	add("Course", c.Title)
	add("Location", c.Location)
	add("Instructor", c.Instructor)
	add("Student", studentName)
	return strings.Join(lines, "\n")
}

// ExpandOccurrences lists the start of every occurrence of ev inside [from, to]
func ExpandOccurrences(ev providers.Event, from, to time.Time) ([]time.Time, error) {
	for _, line := range ev.Recurrence {
		if !strings.HasPrefix(line, "RRULE:") {
			continue
		}
		r, err := rrule.StrToRRule(strings.TrimPrefix(line, "RRULE:"))
		if err != nil {
			return nil, fmt.Errorf("could not parse recurrence %q: %w", line, err)
		}
		r.DTStart(ev.Start)
		return r.Between(from, to, true), nil
	}
	// no rule means a single occurrence
	if ev.Start.Before(from) || ev.Start.After(to) {
		return nil, nil
	}
	return []time.Time{ev.Start}, nil
}
