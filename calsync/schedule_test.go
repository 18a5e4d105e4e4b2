package calsync

import (
	"slices"
	"testing"
	"time"
)

var newYork = mustLoad("America/New_York")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func fixedNow() time.Time {
	return time.Date(2026, time.January, 2, 8, 30, 0, 0, newYork)
}

func testParser() *ScheduleParser {
	return NewScheduleParser(newYork, fixedNow)
}

func TestParseDaysOrderIndependent(t *testing.T) {
	p := testParser()
	want := []time.Weekday{time.Monday, time.Wednesday, time.Friday}
	for _, in := range []string{"MWF", "FWM", "wmf", "MWFWM", "M W F", "MxWyF"} {
		got := p.ParseDays(in)
		if !slices.Equal(got, want) {
			t.Errorf("ParseDays(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseDaysIdempotent(t *testing.T) {
	p := testParser()
	codes := map[time.Weekday]string{
		time.Sunday: "U", time.Monday: "M", time.Tuesday: "T", time.Wednesday: "W",
		time.Thursday: "R", time.Friday: "F", time.Saturday: "S",
	}
	for _, in := range []string{"UMTWRFS", "TR", "S", "", "XYZ"} {
		first := p.ParseDays(in)
		var again string
		for _, d := range first {
			again += codes[d]
		}
		if second := p.ParseDays(again); !slices.Equal(first, second) {
			t.Errorf("ParseDays not idempotent for %q: %v then %v", in, first, second)
		}
	}
	if got := p.ParseDays("UMTWRFS"); len(got) != 7 || got[0] != time.Sunday || got[6] != time.Saturday {
		t.Errorf("full week parsed as %v", got)
	}
}

func TestParseTimeRange(t *testing.T) {
	testCases := []struct {
		in         string
		start, end string
		ok         bool
	}{
		{"10:45am - 01:50pm", "10:45", "13:50", true},
		{"12:00am-12:00pm", "00:00", "12:00", true},
		{"12:00pm - 1:00PM", "12:00", "13:00", true},
		{"9:00 a.m. to 10:15 a.m.", "09:00", "10:15", true},
		{"13:00-14:15", "13:00", "14:15", true},
		{"08:00 – 09:30", "08:00", "09:30", true},
		{"1:00-2:30pm", "13:00", "14:30", true},
		{"11:00-1:00pm", "11:00", "13:00", true},
		{"9am-10am", "09:00", "10:00", true},
		{"TBA", "", "", false},
		{"tbd - tbd", "", "", false},
		{"10:00am-9:00am", "", "", false},
		{"25:00-26:00", "", "", false},
		{"13:00pm-14:00pm", "", "", false},
		{"9-10", "", "", false},
		{"", "", "", false},
		{"sometime", "", "", false},
	}
	p := testParser()
	for _, tc := range testCases {
		start, end, ok := p.ParseTimeRange(tc.in)
		if ok != tc.ok {
			t.Errorf("ParseTimeRange(%q) ok = %v, want %v", tc.in, ok, tc.ok)
			continue
		}
		if !ok {
			continue
		}
		if start.String() != tc.start || end.String() != tc.end {
			t.Errorf("ParseTimeRange(%q) = %s-%s, want %s-%s", tc.in, start, end, tc.start, tc.end)
		}
	}
}

func TestParseDateRange(t *testing.T) {
	testCases := []struct {
		in         string
		start, end string
		ok         bool
	}{
		{"01/27-05/24", "2026-01-27", "2026-05-24", true},
		{"1/6 - 6/1", "2026-01-06", "2026-06-01", true},
		{"08/25-05/30", "2026-08-25", "2027-05-30", true},
		{"08/25/2025-05/30/2026", "2025-08-25", "2026-05-30", true},
		{"09/01/25-12/15", "2025-09-01", "2025-12-15", true},
		{"08/25-05/30/2027", "2026-08-25", "2027-05-30", true},
		{"09/01/2026-05/30/2026", "", "", false},
		{"02/30-03/10", "", "", false},
		{"13/01-14/01", "", "", false},
		{"spring", "", "", false},
		{"", "", "", false},
	}
	p := testParser()
	for _, tc := range testCases {
		start, end, ok := p.ParseDateRange(tc.in)
		if ok != tc.ok {
			t.Errorf("ParseDateRange(%q) ok = %v, want %v", tc.in, ok, tc.ok)
			continue
		}
		if !ok {
			continue
		}
		if got := start.Format(time.DateOnly); got != tc.start {
			t.Errorf("ParseDateRange(%q) start = %s, want %s", tc.in, got, tc.start)
		}
		if got := end.Format(time.DateOnly); got != tc.end {
			t.Errorf("ParseDateRange(%q) end = %s, want %s", tc.in, got, tc.end)
		}
		if start.Location() != newYork || start.Hour() != 0 {
			t.Errorf("ParseDateRange(%q) start %v is not midnight in the configured zone", tc.in, start)
		}
	}
}

func TestParseDefaults(t *testing.T) {
	p := testParser()
	for _, c := range []Course{
		{Days: "MW", Times: "TBA", Dates: "whenever"},
		{Days: "??", Times: "10:00-09:00", Dates: "99/99-99/99"},
		{},
	} {
		sched := p.Parse(c)
		if !sched.TimeDefaulted || sched.Start.String() != "09:00" || sched.End.String() != "10:00" {
			t.Errorf("Parse(%+v) time = %s-%s defaulted=%v", c, sched.Start, sched.End, sched.TimeDefaulted)
		}
		if !sched.RangeDefaulted {
			t.Errorf("Parse(%+v) range should be defaulted", c)
		}
		if got := sched.RangeStart.Format(time.DateOnly); got != "2026-01-02" {
			t.Errorf("default range start = %s", got)
		}
		if got := sched.RangeEnd.Format(time.DateOnly); got != "2026-04-02" {
			t.Errorf("default range end = %s", got)
		}
	}
}

func TestParseExplicitDatesWin(t *testing.T) {
	p := testParser()
	start := time.Date(2026, time.February, 3, 15, 0, 0, 0, time.UTC)
	end := time.Date(2026, time.March, 31, 3, 0, 0, 0, time.UTC)
	sched := p.Parse(Course{Days: "T", Times: "10:00-11:00", Dates: "01/27-05/24", StartDate: &start, EndDate: &end})
	if sched.RangeDefaulted {
		t.Fatal("explicit dates should not be defaulted")
	}
	if got := sched.RangeStart.Format(time.DateOnly); got != "2026-02-03" {
		t.Errorf("RangeStart = %s", got)
	}
	// 03:00 UTC is still the 30th in New York
	if got := sched.RangeEnd.Format(time.DateOnly); got != "2026-03-30" {
		t.Errorf("RangeEnd = %s", got)
	}

	// reversed explicit dates fall back to the text
	sched = p.Parse(Course{Dates: "01/27-05/24", StartDate: &end, EndDate: &start})
	if got := sched.RangeEnd.Format(time.DateOnly); got != "2026-05-24" {
		t.Errorf("reversed explicit dates should use the text range, got %s", got)
	}
}

func TestParseInvariants(t *testing.T) {
	p := testParser()
	inputs := []string{"", "TBA", "MWF", "10:00-11:00", "01/01-12/31", "12:59pm-1:00pm", "x-y", "-", "to", "1/1-1/1"}
	for _, days := range inputs {
		for _, times := range inputs {
			for _, dates := range inputs {
				sched := p.Parse(Course{Days: days, Times: times, Dates: dates})
				if !sched.Start.Before(sched.End) {
					t.Fatalf("start %s not before end %s for %q", sched.Start, sched.End, times)
				}
				if sched.RangeEnd.Before(sched.RangeStart) {
					t.Fatalf("range end before start for %q", dates)
				}
			}
		}
	}
}
