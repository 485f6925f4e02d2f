package ical

import (
	"strings"
	"time"
)

// Vendor extension field (X-...) carried through parse and serialize as is.
type Property struct {
	Name  string
	Value string
}

// A single VEVENT. Start/End are wall-clock instants in the display
// timezone; for all-day events Start (and End, if set) are midnights.
type Event struct {
	UID         string // required
	Summary     string // required
	Description string
	Location    string

	Start       time.Time // required
	End         time.Time // zero when absent
	Duration    time.Duration
	HasDuration bool // DURATION present, possibly PT0S
	AllDay      bool

	RRule      string // upper-cased RRULE value, without the "RRULE:" prefix
	Categories string
	Color      string

	Extra []Property
}

// Value of the first vendor field with the given name.
func (e *Event) GetExtra(name string) (string, bool) {
	for _, p := range e.Extra {
		if strings.EqualFold(p.Name, name) {
			return p.Value, true
		}
	}
	return "", false
}

// Set replaces the first vendor field with the given name, otherwise appends.
func (e *Event) SetExtra(name, value string) {
	name = strings.ToUpper(name)
	for i := range e.Extra {
		if strings.EqualFold(e.Extra[i].Name, name) {
			e.Extra[i].Value = value
			return
		}
	}
	e.Extra = append(e.Extra, Property{Name: name, Value: value})
}

// End bound after taking DURATION into account. Zero if neither is set.
func (e *Event) EffectiveEnd() time.Time {
	switch {
	case !e.End.IsZero():
		return e.End
	case e.HasDuration:
		return e.Start.Add(e.Duration)
	default:
		return time.Time{}
	}
}

// Zero-duration "marker": DTEND equal to DTSTART, DURATION:PT0S, or a timed
// DTSTART with no end at all.
func (e *Event) IsMarker() bool {
	if e.AllDay || e.Start.IsZero() {
		return false
	}
	switch {
	case !e.End.IsZero():
		return e.End.Equal(e.Start)
	case e.HasDuration:
		return e.Duration == 0
	default:
		return true
	}
}

// Deep copy, so that documents never share Extra slices.
func (e Event) clone() Event {
	if e.Extra != nil {
		e.Extra = append([]Property(nil), e.Extra...)
	}
	return e
}
