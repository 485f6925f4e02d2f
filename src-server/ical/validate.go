package ical

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xyedo/rrule"
)

var (
	ErrMissingIdentifier           = errors.New("event has no UID")
	ErrMissingStart                = errors.New("event has no DTSTART")
	ErrConflictingEndSpecification = errors.New("event has both DTEND and DURATION")
	ErrMissingEndSpecification     = errors.New("event has neither DTEND nor DURATION")
	ErrInvertedRange               = errors.New("event ends before it starts")
	ErrRecurrenceAnchorMismatch    = errors.New("first RRULE occurrence is not on the DTSTART date")
	ErrInvalidRecurrence           = errors.New("RRULE can't be parsed")
	ErrDuplicateIdentifier         = errors.New("UID is used by more than one event")
)

// Structural violation of a single event. Matches both its Kind and
// ErrInvalidCalendar with errors.Is.
type ValidationError struct {
	Kind  error
	UID   string
	Index int // position within the document, -1 for a standalone event
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid event uid=%q: %v", e.UID, e.Kind)
	}
	return fmt.Sprintf("invalid event #%d uid=%q: %v", e.Index, e.UID, e.Kind)
}

func (e *ValidationError) Unwrap() []error {
	return []error{e.Kind, ErrInvalidCalendar}
}

// Check every event and UID uniqueness across the document. Stops at the
// first violation.
func Validate(d *Document) error {
	seen := make(map[string]struct{}, len(d.events))
	for i, e := range d.events {
		if err := validateEvent(e, i); err != nil {
			return err
		}
		if _, ok := seen[e.UID]; ok {
			return &ValidationError{Kind: ErrDuplicateIdentifier, UID: e.UID, Index: i}
		}
		seen[e.UID] = struct{}{}
	}
	return nil
}

// Check a single event against the RFC 5545 rules the feeds rely on.
func ValidateEvent(e Event) error {
	return validateEvent(e, -1)
}

func validateEvent(e Event, index int) error {
	fail := func(kind error) error {
		return &ValidationError{Kind: kind, UID: e.UID, Index: index}
	}

	switch {
	case strings.TrimSpace(e.UID) == "":
		return fail(ErrMissingIdentifier)
	case e.Start.IsZero():
		return fail(ErrMissingStart)
	case !e.End.IsZero() && e.HasDuration:
		return fail(ErrConflictingEndSpecification)
	case e.End.IsZero() && !e.HasDuration && !e.AllDay:
		return fail(ErrMissingEndSpecification)
	case !e.EffectiveEnd().IsZero() && e.Start.After(e.EffectiveEnd()):
		return fail(ErrInvertedRange)
	}

	if e.RRule != "" {
		if err := checkAnchor(e); err != nil {
			return fail(err)
		}
	}
	return nil
}

// The first occurrence produced by the rule, starting from DTSTART, has to
// land on DTSTART's own date.
func checkAnchor(e Event) error {
	opt, err := rrule.StrToROption(strings.ToUpper(e.RRule))
	if err != nil {
		return ErrInvalidRecurrence
	}
	opt.Dtstart = e.Start
	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		return ErrInvalidRecurrence
	}

	first := rule.After(e.Start, true)
	if first.IsZero() {
		return ErrRecurrenceAnchorMismatch
	}
	fy, fm, fd := first.In(e.Start.Location()).Date()
	sy, sm, sd := e.Start.Date()
	if fy != sy || fm != sm || fd != sd {
		return ErrRecurrenceAnchorMismatch
	}
	return nil
}
