package feed

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/Pjt727/homeroom/calsync"
	"github.com/Pjt727/homeroom/data/db"
)

const (
	productID   = "-//homeroom//calendar sync//EN"
	localLayout = "20060102T150405"
)

func tzid(zone string) ics.PropertyParameter {
	return &ics.KeyValues{Key: string(ics.ParameterTzid), Value: []string{zone}}
}

// sources holds the calendars a combined feed references by id, it is empty
// for a student feed
func renderCalendar(cal db.FeedCalendar, sources map[string]db.FeedCalendar, events []db.FeedEvent, stamp time.Time) string {
	out := ics.NewCalendar()
	out.SetMethod(ics.MethodPublish)
	out.SetProductId(productID)
	out.SetXWRCalName(cal.Name)
	out.SetXWRTimezone(cal.TimeZone)

	for _, ev := range events {
		loc, err := time.LoadLocation(ev.TimeZone)
		if err != nil {
			loc = time.UTC
		}
		summary := ev.Summary
		if source, ok := sources[ev.CalendarID]; ok {
			summary = fmt.Sprintf("%s (%s)", summary, source.Name)
		}

		vevent := out.AddEvent(ev.ID + "@homeroom")
		vevent.SetDtStampTime(stamp)
		vevent.SetSummary(summary)
		if ev.Description != "" {
			vevent.SetDescription(ev.Description)
		}
		if ev.Location != "" {
			vevent.SetLocation(ev.Location)
		}
		// floating local times with a zone keep weekly events on the same
		// wall clock time across daylight saving changes
		vevent.SetProperty(ics.ComponentPropertyDtStart, ev.StartsAt.Time.In(loc).Format(localLayout), tzid(loc.String()))
		vevent.SetProperty(ics.ComponentPropertyDtEnd, ev.EndsAt.Time.In(loc).Format(localLayout), tzid(loc.String()))
		for _, line := range ev.Recurrence {
			if rule, ok := strings.CutPrefix(line, "RRULE:"); ok && rule != "" {
				vevent.AddRrule(rule)
			}
		}
		if color, ok := calsync.PaletteColor(ev.ColorID); ok {
			vevent.SetProperty(ics.ComponentProperty("COLOR"), color.Hex)
		}
	}
	return out.Serialize()
}
