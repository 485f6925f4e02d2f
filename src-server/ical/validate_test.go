package ical_test

import (
	"errors"
	"testing"
	"time"

	"calfeed/src-server/ical"
)

func validEvent() ical.Event {
	loc := ical.DefaultTimezone.Location()
	return ical.Event{
		UID:     "lecture-1",
		Summary: "Lecture",
		Start:   time.Date(2024, 3, 5, 10, 0, 0, 0, loc), // tuesday
		End:     time.Date(2024, 3, 5, 11, 30, 0, 0, loc),
	}
}

func TestValidateEvent(t *testing.T) {
	loc := ical.DefaultTimezone.Location()

	if err := ical.ValidateEvent(validEvent()); err != nil {
		t.Errorf("valid event rejected: %v", err)
	}

	// all-day needs no end bound
	allDay := ical.Event{UID: "a", Summary: "Holiday", Start: time.Date(2024, 3, 8, 0, 0, 0, 0, loc), AllDay: true}
	if err := ical.ValidateEvent(allDay); err != nil {
		t.Errorf("all-day event rejected: %v", err)
	}

	// zero duration is still a duration
	marker := validEvent()
	marker.End = time.Time{}
	marker.HasDuration = true
	if err := ical.ValidateEvent(marker); err != nil {
		t.Errorf("PT0S event rejected: %v", err)
	}

	// anchored weekly rule
	weekly := validEvent()
	weekly.RRule = "freq=weekly;byday=tu;count=10"
	if err := ical.ValidateEvent(weekly); err != nil {
		t.Errorf("anchored rule rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(e *ical.Event)
		want   error
	}{
		{"missing uid", func(e *ical.Event) { e.UID = "  " }, ical.ErrMissingIdentifier},
		{"missing start", func(e *ical.Event) { e.Start = time.Time{} }, ical.ErrMissingStart},
		{"end and duration", func(e *ical.Event) { e.HasDuration = true; e.Duration = time.Hour }, ical.ErrConflictingEndSpecification},
		{"no end, no duration", func(e *ical.Event) { e.End = time.Time{} }, ical.ErrMissingEndSpecification},
		{"end before start", func(e *ical.Event) { e.End = e.Start.Add(-time.Minute) }, ical.ErrInvertedRange},
		{"negative duration", func(e *ical.Event) { e.End = time.Time{}; e.HasDuration = true; e.Duration = -time.Hour }, ical.ErrInvertedRange},
		{"rule not anchored", func(e *ical.Event) { e.RRule = "FREQ=WEEKLY;BYDAY=MO" }, ical.ErrRecurrenceAnchorMismatch},
		{"garbage rule", func(e *ical.Event) { e.RRule = "FREQ=SOMETIMES" }, ical.ErrInvalidRecurrence},
	}
	for _, c := range cases {
		e := validEvent()
		c.mutate(&e)
		err := ical.ValidateEvent(e)
		if !errors.Is(err, c.want) {
			t.Errorf("%s: expected %v, got %v", c.name, c.want, err)
			continue
		}
		if !errors.Is(err, ical.ErrInvalidCalendar) {
			t.Errorf("%s: error does not match ErrInvalidCalendar", c.name)
		}
		var verr *ical.ValidationError
		if !errors.As(err, &verr) || verr.Index != -1 {
			t.Errorf("%s: expected standalone *ValidationError, got %#v", c.name, err)
		}
	}
}

func TestValidateDocument(t *testing.T) {
	doc := ical.NewDocument("Group", ical.DefaultTimezone)
	doc.AddEvent(validEvent())
	second := validEvent()
	second.UID = "lecture-2"
	doc.AddEvent(second)
	if err := ical.Validate(doc); err != nil {
		t.Fatalf("valid document rejected: %v", err)
	}

	doc.AddEvent(validEvent())
	err := ical.Validate(doc)
	if !errors.Is(err, ical.ErrDuplicateIdentifier) {
		t.Fatalf("expected ErrDuplicateIdentifier, got %v", err)
	}
	var verr *ical.ValidationError
	if !errors.As(err, &verr) || verr.Index != 2 || verr.UID != "lecture-1" {
		t.Errorf("unexpected error details: %#v", err)
	}

	if err := ical.Validate(ical.NewDocument("Empty", ical.DefaultTimezone)); err != nil {
		t.Errorf("empty document rejected: %v", err)
	}
}
