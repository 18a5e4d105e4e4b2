package calsync

import (
	"strings"
	"testing"
	"time"
)

func buildFor(t *testing.T, c Course, opts BuildOptions) []eventView {
	t.Helper()
	if opts.Location == nil {
		opts.Location = newYork
	}
	events := BuildEvents(c, testParser().Parse(c), opts)
	views := make([]eventView, len(events))
	for i, ev := range events {
		views[i] = eventView{
			weekday: ev.Start.Weekday(),
			start:   ev.Start.Format("15:04"),
			end:     ev.End.Format("15:04"),
			rule:    strings.Join(ev.Recurrence, "\n"),
			summary: ev.Summary,
			day:     ev.Weekday,
			until:   ev.Until.In(opts.Location).Format(time.DateTime),
		}
	}
	return views
}

type eventView struct {
	weekday    time.Weekday
	day        time.Weekday
	start, end string
	rule       string
	summary    string
	// last moment of the range in the course's zone
	until string
}

func TestBuildEventsOnePerWeekday(t *testing.T) {
	c := Course{ID: "c1", Title: "Latin", Location: "Library", StudentID: "abc", Days: "MTWRF", Times: "10:45am - 01:50pm", Dates: "01/27-05/24"}
	events := buildFor(t, c, BuildOptions{})
	if len(events) != 5 {
		t.Fatalf("got %d events, want 5", len(events))
	}
	seen := map[time.Weekday]bool{}
	for _, ev := range events {
		if ev.weekday != ev.day {
			t.Errorf("event starts on %s but is for %s", ev.weekday, ev.day)
		}
		if seen[ev.day] {
			t.Errorf("duplicate event for %s", ev.day)
		}
		seen[ev.day] = true
		if ev.start != "10:45" || ev.end != "13:50" {
			t.Errorf("event on %s runs %s-%s", ev.day, ev.start, ev.end)
		}
		if ev.until != "2026-05-24 23:59:59" {
			t.Errorf("rule ends %s, want the end of 05/24", ev.until)
		}
		// 23:59:59 EDT
		if !strings.Contains(ev.rule, "UNTIL=20260525T035959Z") {
			t.Errorf("rule %q should end on 05/24 in New York", ev.rule)
		}
		if !strings.HasPrefix(ev.rule, "RRULE:") || !strings.Contains(ev.rule, "FREQ=WEEKLY") {
			t.Errorf("rule %q is not weekly", ev.rule)
		}
	}
}

func TestBuildEventsAnchorsOnFirstOccurrence(t *testing.T) {
	parser := testParser()
	c := Course{Title: "Algebra I", StudentID: "s1", Days: "MW", Times: "09:00am-10:00am", Dates: "01/06-06/01"}
	sched := parser.Parse(c)
	events := BuildEvents(c, sched, BuildOptions{StudentName: "Sam", Location: newYork})
	if len(events) != 2 {
		t.Fatalf("got %d events", len(events))
	}
	// 01/06/2026 is a Tuesday
	if got := events[0].Start.Format(time.DateTime); got != "2026-01-12 09:00:00" {
		t.Errorf("monday anchor = %s", got)
	}
	if got := events[1].Start.Format(time.DateTime); got != "2026-01-07 09:00:00" {
		t.Errorf("wednesday anchor = %s", got)
	}
	if !strings.Contains(events[0].Recurrence[0], "BYDAY=MO") || !strings.Contains(events[1].Recurrence[0], "BYDAY=WE") {
		t.Errorf("unexpected rules %v %v", events[0].Recurrence, events[1].Recurrence)
	}
	for _, ev := range events {
		if ev.ColorID != ColorFor("s1") {
			t.Errorf("color = %s, want %s", ev.ColorID, ColorFor("s1"))
		}
		if ev.TimeZone != "America/New_York" {
			t.Errorf("time zone = %s", ev.TimeZone)
		}
		if ev.Summary != "Algebra I" {
			t.Errorf("single student summary = %q", ev.Summary)
		}
		if !strings.Contains(ev.Description, "Student: Sam") || !strings.Contains(ev.Description, "Course: Algebra I") {
			t.Errorf("description = %q", ev.Description)
		}
		if strings.Contains(ev.Description, "Location:") {
			t.Errorf("empty location should be omitted: %q", ev.Description)
		}
	}
}

func TestBuildEventsCombinedSuffix(t *testing.T) {
	c := Course{Title: "Biology", Days: "F", Times: "1:00pm-2:00pm", Dates: "01/05-02/27"}
	events := buildFor(t, c, BuildOptions{StudentName: "Ava", Combined: true})
	if len(events) != 1 || events[0].summary != "Biology (Ava)" {
		t.Errorf("combined events = %+v", events)
	}
}

func TestBuildEventsEdgeCases(t *testing.T) {
	if got := buildFor(t, Course{Title: "Art", Days: "", Times: "10:00-11:00"}, BuildOptions{}); len(got) != 0 {
		t.Errorf("no days should build no events, got %d", len(got))
	}
	if got := buildFor(t, Course{Title: "Art", Days: "XYZ"}, BuildOptions{}); len(got) != 0 {
		t.Errorf("unknown days should build no events, got %d", len(got))
	}
	// 01/05/2026 is a Monday, only monday and tuesday fall in the range
	got := buildFor(t, Course{Title: "Art", Days: "MTF", Dates: "01/05-01/06"}, BuildOptions{})
	if len(got) != 2 {
		t.Errorf("days outside the range should be skipped, got %d events", len(got))
	}
	got = buildFor(t, Course{Days: "M", Dates: "01/05-01/06"}, BuildOptions{})
	if len(got) != 1 || got[0].summary != untitledCourse {
		t.Errorf("untitled course = %+v", got)
	}
}

func TestExpandOccurrences(t *testing.T) {
	parser := testParser()
	c := Course{Title: "Algebra I", Days: "M", Times: "09:00am-10:00am", Dates: "01/06-06/01"}
	sched := parser.Parse(c)
	events := BuildEvents(c, sched, BuildOptions{Location: newYork})
	if len(events) != 1 {
		t.Fatalf("got %d events", len(events))
	}
	occurrences, err := ExpandOccurrences(events[0], sched.RangeStart, sched.RangeEnd.AddDate(0, 0, 7))
	if err != nil {
		t.Fatal(err)
	}
	if len(occurrences) != 21 {
		t.Fatalf("got %d mondays, want 21", len(occurrences))
	}
	last := occurrences[len(occurrences)-1].In(newYork)
	if got := last.Format(time.DateTime); got != "2026-06-01 09:00:00" {
		t.Errorf("last occurrence = %s", got)
	}
	for _, o := range occurrences {
		if o.In(newYork).Weekday() != time.Monday || o.In(newYork).Hour() != 9 {
			t.Errorf("occurrence %s is not monday at 9", o)
		}
	}
}

func TestEveningClassKeepsLastMeeting(t *testing.T) {
	parser := testParser()
	// 01/26/2026 is a Monday and the last day of the range
	c := Course{Title: "Night Choir", Days: "M", Times: "8:00pm-9:00pm", Dates: "01/05-01/26"}
	sched := parser.Parse(c)
	events := BuildEvents(c, sched, BuildOptions{Location: newYork})
	if len(events) != 1 {
		t.Fatalf("got %d events", len(events))
	}
	if !strings.Contains(events[0].Recurrence[0], "UNTIL=20260127T045959Z") {
		t.Errorf("rule %q should end at midnight in New York", events[0].Recurrence[0])
	}

	occurrences, err := ExpandOccurrences(events[0], sched.RangeStart, sched.RangeEnd.AddDate(0, 0, 2))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"2026-01-05 20:00:00", "2026-01-12 20:00:00", "2026-01-19 20:00:00", "2026-01-26 20:00:00"}
	if len(occurrences) != len(want) {
		t.Fatalf("got %d meetings %v, want %d", len(occurrences), occurrences, len(want))
	}
	for i, o := range occurrences {
		if got := o.In(newYork).Format(time.DateTime); got != want[i] {
			t.Errorf("meeting %d = %s, want %s", i, got, want[i])
		}
	}
}
