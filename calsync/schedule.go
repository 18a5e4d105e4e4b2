package calsync

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

const defaultRangeDays = 90

var (
	defaultStart = ClockTime{Hour: 9}
	defaultEnd   = ClockTime{Hour: 10}
)

var dayCodes = map[rune]time.Weekday{
	'U': time.Sunday,
	'M': time.Monday,
	'T': time.Tuesday,
	'W': time.Wednesday,
	'R': time.Thursday,
	'F': time.Friday,
	'S': time.Saturday,
}

var (
	rangeSeparator = regexp.MustCompile(`\s*(?:-|–|—|\bto\b)\s*`)
	clockPattern   = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?(am|pm)?$`)
	datePattern    = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})(?:/(\d{4}|\d{2}))?$`)
	announced      = regexp.MustCompile(`(?i)\btb[ad]\b`)
)

// ClockTime is a wall clock time of day in the configured zone
type ClockTime struct {
	Hour   int
	Minute int
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func (c ClockTime) Minutes() int {
	return c.Hour*60 + c.Minute
}

func (c ClockTime) Before(o ClockTime) bool {
	return c.Minutes() < o.Minutes()
}

// NormalizedSchedule is the typed form of a course's free text schedule.
// RangeStart and RangeEnd are both midnight in the configured zone and the
// range is inclusive.
type NormalizedSchedule struct {
	Weekdays       []time.Weekday
	Start          ClockTime
	End            ClockTime
	RangeStart     time.Time
	RangeEnd       time.Time
	TimeDefaulted  bool
	RangeDefaulted bool
}

type ScheduleParser struct {
	loc *time.Location
	now func() time.Time
}

func NewScheduleParser(loc *time.Location, now func() time.Time) *ScheduleParser {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &ScheduleParser{loc: loc, now: now}
}

// ParseDays reads single letter day codes, unknown letters are dropped
func (p *ScheduleParser) ParseDays(s string) []time.Weekday {
	seen := map[time.Weekday]bool{}
	days := make([]time.Weekday, 0, 7)
	for _, r := range strings.ToUpper(s) {
		day, ok := dayCodes[r]
		if !ok || seen[day] {
			continue
		}
		seen[day] = true
		days = append(days, day)
	}
	slices.Sort(days)
	return days
}

// ParseTimeRange reads strings like "10:45am - 01:50pm" or "13:00-14:15"
func (p *ScheduleParser) ParseTimeRange(s string) (ClockTime, ClockTime, bool) {
	s = strings.TrimSpace(s)
	if s == "" || announced.MatchString(s) {
		return ClockTime{}, ClockTime{}, false
	}
	parts := rangeSeparator.Split(strings.ToLower(s), -1)
	if len(parts) != 2 {
		return ClockTime{}, ClockTime{}, false
	}
	start, startMeridiem, ok := parseClock(parts[0])
	if !ok {
		return ClockTime{}, ClockTime{}, false
	}
	end, endMeridiem, ok := parseClock(parts[1])
	if !ok {
		return ClockTime{}, ClockTime{}, false
	}

	if startMeridiem == "" && endMeridiem != "" && start.Hour >= 1 && start.Hour <= 12 {
		// "1:00-2:30pm" means both are in the afternoon
		if borrowed := applyMeridiem(start, endMeridiem); borrowed.Before(end) {
			start = borrowed
		}
	}
	if !start.Before(end) {
		return ClockTime{}, ClockTime{}, false
	}
	return start, end, true
}

// returns the 24 hour time and the meridiem which was present if any
func parseClock(s string) (ClockTime, string, bool) {
	s = strings.NewReplacer(".", "", " ", "").Replace(s)
	m := clockPattern.FindStringSubmatch(s)
	if m == nil {
		return ClockTime{}, "", false
	}
	// a bare number is ambiguous
	if m[2] == "" && m[3] == "" {
		return ClockTime{}, "", false
	}
	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	if minute > 59 {
		return ClockTime{}, "", false
	}
	meridiem := m[3]
	if meridiem == "" {
		if hour > 23 {
			return ClockTime{}, "", false
		}
		return ClockTime{Hour: hour, Minute: minute}, "", true
	}
	if hour < 1 || hour > 12 {
		return ClockTime{}, "", false
	}
	return applyMeridiem(ClockTime{Hour: hour, Minute: minute}, meridiem), meridiem, true
}

// expects a 12 hour clock reading
func applyMeridiem(c ClockTime, meridiem string) ClockTime {
	hour := c.Hour % 12
	if meridiem == "pm" {
		hour += 12
	}
	return ClockTime{Hour: hour, Minute: c.Minute}
}

// ParseDateRange reads "MM/DD-MM/DD" relative to the current year, either side
// may carry its own year. An end before the start rolls into the next year.
func (p *ScheduleParser) ParseDateRange(s string) (time.Time, time.Time, bool) {
	parts := rangeSeparator.Split(strings.ToLower(strings.TrimSpace(s)), -1)
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, false
	}
	startMonth, startDay, startYear, ok := parseMonthDay(parts[0])
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	endMonth, endDay, endYear, ok := parseMonthDay(parts[1])
	if !ok {
		return time.Time{}, time.Time{}, false
	}

	currentYear := p.now().In(p.loc).Year()
	explicitStart, explicitEnd := startYear != 0, endYear != 0
	switch {
	case startYear == 0 && endYear == 0:
		startYear, endYear = currentYear, currentYear
	case startYear == 0:
		startYear = endYear
	case endYear == 0:
		endYear = startYear
	}

	start, ok := p.date(startYear, startMonth, startDay)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	end, ok := p.date(endYear, endMonth, endDay)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	if end.Before(start) {
		// "08/25-05/30" is a school year
		switch {
		case !explicitEnd:
			end, ok = p.date(endYear+1, endMonth, endDay)
		case !explicitStart:
			start, ok = p.date(startYear-1, startMonth, startDay)
		default:
			ok = false
		}
		if !ok {
			return time.Time{}, time.Time{}, false
		}
	}
	return start, end, true
}

// year is 0 when absent
func parseMonthDay(s string) (int, int, int, bool) {
	m := datePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, 0, 0, false
	}
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	year := 0
	if m[3] != "" {
		year, _ = strconv.Atoi(m[3])
		if len(m[3]) == 2 {
			year += 2000
		}
	}
	return month, day, year, true
}

// rejects dates which time.Date would normalize such as 02/30
func (p *ScheduleParser) date(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, p.loc)
	if t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func (p *ScheduleParser) midnight(t time.Time) time.Time {
	t = t.In(p.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, p.loc)
}

// Parse never fails, anything unreadable falls back to a default so the
// course still shows up on the calendar
func (p *ScheduleParser) Parse(c Course) NormalizedSchedule {
	sched := NormalizedSchedule{
		Weekdays: p.ParseDays(c.Days),
	}

	start, end, ok := p.ParseTimeRange(c.Times)
	if ok {
		sched.Start, sched.End = start, end
	} else {
		sched.Start, sched.End = defaultStart, defaultEnd
		sched.TimeDefaulted = true
	}

	switch {
	case c.StartDate != nil && c.EndDate != nil && !c.EndDate.Before(*c.StartDate):
		sched.RangeStart = p.midnight(*c.StartDate)
		sched.RangeEnd = p.midnight(*c.EndDate)
	default:
		rangeStart, rangeEnd, ok := p.ParseDateRange(c.Dates)
		if ok {
			sched.RangeStart, sched.RangeEnd = rangeStart, rangeEnd
		} else {
			today := p.midnight(p.now())
			sched.RangeStart = today
			sched.RangeEnd = today.AddDate(0, 0, defaultRangeDays)
			sched.RangeDefaulted = true
		}
	}
	return sched
}
