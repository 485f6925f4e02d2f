package ical

import (
	"fmt"
	"io"
	"strings"
	"time"

	"calfeed/src-server/ical/utils"

	ics "github.com/arran4/golang-ical"
)

// Parse an ICS stream into a Document. Date-times are moved to the display
// timezone; missing required fields are left empty for Validate to report.
func Parse(r io.Reader, tz Timezone) (*Document, error) {
	cal, err := ics.ParseCalendarWithOptions(r,
		ics.WithUnknownPropertyHandler(ics.AcceptUnknownPropertyHandler),
	)
	if err != nil {
		return nil, fmt.Errorf("ical.Parse: %w: %w", ErrMalformedCalendar, err)
	}
	if len(cal.CalendarProperties) == 0 && len(cal.Components) == 0 {
		return nil, fmt.Errorf("ical.Parse: %w: no VCALENDAR found", ErrMalformedCalendar)
	}

	d := &Document{tz: tz}
	for _, p := range cal.CalendarProperties {
		switch strings.ToUpper(p.IANAToken) {
		case string(ics.PropertyXWRCalName):
			d.name = p.Value
		case string(ics.PropertyXWRCalDesc):
			d.description = p.Value
		}
	}
	if d.description == "" {
		d.description = d.name
	}

	for i, ve := range cal.Events() {
		e, err := fromVEvent(ve, tz)
		if err != nil {
			return nil, fmt.Errorf("ical.Parse: event #%d: %w", i, err)
		}
		d.events = append(d.events, e)
	}
	return d, nil
}

func fromVEvent(ve *ics.VEvent, tz Timezone) (Event, error) {
	var e Event
	for _, p := range ve.Properties {
		token := strings.ToUpper(p.IANAToken)
		switch token {
		case string(ics.PropertyUid):
			e.UID = strings.TrimSpace(p.Value)
		case string(ics.PropertySummary):
			e.Summary = p.Value
		case string(ics.PropertyDescription):
			e.Description = p.Value
		case string(ics.PropertyLocation):
			e.Location = p.Value
		case string(ics.PropertyDtstart):
			start, allDay, err := parseDateProperty(p.BaseProperty, tz)
			if err != nil {
				return e, NewCustomError(ErrMalformedCalendar, "invalid DTSTART", map[string]any{"uid": e.UID, "value": p.Value, "error": err})
			}
			e.Start, e.AllDay = start, allDay
		case string(ics.PropertyDtend):
			end, _, err := parseDateProperty(p.BaseProperty, tz)
			if err != nil {
				return e, NewCustomError(ErrMalformedCalendar, "invalid DTEND", map[string]any{"uid": e.UID, "value": p.Value, "error": err})
			}
			e.End = end
		case string(ics.PropertyDuration):
			d, err := utils.ParseDuration(p.Value)
			if err != nil {
				return e, NewCustomError(ErrMalformedCalendar, "invalid DURATION", map[string]any{"uid": e.UID, "value": p.Value, "error": err})
			}
			e.Duration, e.HasDuration = d, true
		case string(ics.PropertyRrule):
			e.RRule = strings.ToUpper(strings.TrimSpace(p.Value))
		case string(ics.PropertyCategories):
			if e.Categories == "" {
				e.Categories = p.Value
			} else {
				e.Categories += "," + p.Value
			}
		case string(ics.PropertyColor):
			e.Color = p.Value
		default:
			if strings.HasPrefix(token, "X-") {
				e.Extra = append(e.Extra, Property{Name: token, Value: p.Value})
			}
		}
	}

	// a recurrence is expanded in the zone of its DTSTART, moving it could
	// change the weekday BYDAY refers to
	loc := tz.Location()
	if e.RRule != "" && !e.Start.IsZero() {
		loc = e.Start.Location()
	}
	if !e.Start.IsZero() {
		e.Start = e.Start.In(loc)
	}
	if !e.End.IsZero() {
		e.End = e.End.In(loc)
	}
	return e, nil
}

// DTSTART / DTEND value honoring VALUE=DATE and TZID. Timed values keep the
// zone they were written in: UTC for the Z form, the TZID's zone otherwise.
func parseDateProperty(p ics.BaseProperty, tz Timezone) (time.Time, bool, error) {
	value := strings.TrimSpace(p.Value)
	loc := tz.Location()
	if tzid, ok := p.ICalParameters[string(ics.ParameterTzid)]; ok && len(tzid) > 0 {
		loc = tz.resolve(tzid[0])
	}
	if strings.HasSuffix(value, "Z") {
		loc = time.UTC
	}
	t, isDate, err := utils.IcalDatetimeToTime(value, loc)
	if err != nil {
		return time.Time{}, false, err
	}
	if isDate {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, tz.Location()), true, nil
	}
	return t, false, nil
}
