package ical

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"calfeed/src-server/ical/utils"

	ics "github.com/arran4/golang-ical"
)

const (
	ProductID = "-//calfeed//Schedule Feeds 1.0//EN"
	Version   = "2.0"
	Trailer   = "END:VCALENDAR\r\n"

	newLine = "\r\n"
)

var serialConfig = &ics.SerializationConfiguration{
	MaxLength:         75,
	PropertyMaxLength: 75,
	NewLine:           newLine,
}

// Calendar document. Metadata is fixed at construction, events are only
// ever appended so serialization order stays stable between generations.
type Document struct {
	name        string
	description string
	tz          Timezone
	events      []Event
}

type DocumentOption func(*Document)

func WithDescription(description string) DocumentOption {
	return func(d *Document) {
		d.description = description
	}
}

func NewDocument(name string, tz Timezone, opts ...DocumentOption) *Document {
	d := &Document{
		name:        name,
		description: name,
		tz:          tz,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// #region Getters

func (d *Document) Name() string {
	return d.name
}

func (d *Document) Description() string {
	return d.description
}

func (d *Document) Timezone() Timezone {
	return d.tz
}

func (d *Document) Len() int {
	return len(d.events)
}

// Copy of the events in insertion order.
func (d *Document) Events() []Event {
	events := make([]Event, len(d.events))
	for i, e := range d.events {
		events[i] = e.clone()
	}
	return events
}

// #endregion

// Append an event. The record is copied, later changes to the caller's
// value don't leak into the document.
func (d *Document) AddEvent(e Event) {
	d.events = append(d.events, e.clone())
}

func (d *Document) AddEvents(events ...Event) {
	for _, e := range events {
		d.AddEvent(e)
	}
}

// Complete document, trailer included.
func (d *Document) Serialize(w io.Writer) error {
	if err := d.SerializeWithoutTrailer(w); err != nil {
		return err
	}
	if _, err := io.WriteString(w, Trailer); err != nil {
		return fmt.Errorf("(*Document).Serialize: %w", err)
	}
	return nil
}

// Everything up to (not including) END:VCALENDAR, so that more events can be
// streamed after it.
func (d *Document) SerializeWithoutTrailer(w io.Writer) error {
	cal := d.header()
	if _, err := io.WriteString(w, "BEGIN:VCALENDAR"+newLine); err != nil {
		return fmt.Errorf("(*Document).SerializeWithoutTrailer: %w", err)
	}
	for _, p := range cal.CalendarProperties {
		if err := p.SerializeTo(w, serialConfig); err != nil {
			return fmt.Errorf("(*Document).SerializeWithoutTrailer: %w", err)
		}
	}
	for _, c := range cal.Components {
		if err := c.SerializeTo(w, serialConfig); err != nil {
			return fmt.Errorf("(*Document).SerializeWithoutTrailer: %w", err)
		}
	}
	for _, e := range d.events {
		if err := SerializeEvent(w, e, d.tz); err != nil {
			return err
		}
	}
	return nil
}

func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Render a single VEVENT block.
func SerializeEvent(w io.Writer, e Event, tz Timezone) error {
	if err := toVEvent(e, tz).SerializeTo(w, serialConfig); err != nil {
		return fmt.Errorf("SerializeEvent: uid=%s: %w", e.UID, err)
	}
	return nil
}

// Calendar properties plus the VTIMEZONE block, no events.
func (d *Document) header() *ics.Calendar {
	cal := ics.NewCalendarFor("calfeed")
	cal.SetProductId(ProductID)
	cal.SetVersion(Version)
	cal.SetMethod(ics.MethodPublish)
	cal.SetXWRCalName(d.name)
	cal.SetXWRCalDesc(d.description)
	cal.SetXWRTimezone(d.tz.ID)

	vtz := ics.NewTimezone(d.tz.ID)
	std := vtz.AddStandard()
	std.AddProperty(ics.ComponentPropertyDtStart, "19700101T000000")
	std.AddProperty(ics.ComponentProperty(ics.PropertyTzoffsetfrom), d.tz.OffsetString())
	std.AddProperty(ics.ComponentProperty(ics.PropertyTzoffsetto), d.tz.OffsetString())
	std.AddProperty(ics.ComponentProperty(ics.PropertyTzname), d.tz.Abbr)
	cal.AddVTimezone(vtz)
	return cal
}

func toVEvent(e Event, tz Timezone) *ics.VEvent {
	loc := tz.Location()
	ve := ics.NewEvent(e.UID)
	// derived from the start, not the wall clock, to keep output byte-stable
	ve.AddProperty(ics.ComponentPropertyDtstamp, utils.TimeToIcalUTC(e.Start))
	ve.AddProperty(ics.ComponentPropertySummary, e.Summary)
	if e.Description != "" {
		ve.AddProperty(ics.ComponentPropertyDescription, e.Description)
	}
	if e.Location != "" {
		ve.AddProperty(ics.ComponentPropertyLocation, e.Location)
	}

	switch {
	case e.Start.IsZero():
	case e.AllDay:
		ve.AddProperty(ics.ComponentPropertyDtStart, utils.TimeToIcalDate(e.Start, loc), ics.WithValue(string(ics.ValueDataTypeDate)))
	default:
		addTimed(ve, ics.ComponentPropertyDtStart, e.Start, e.RRule != "", tz)
	}
	switch {
	case !e.End.IsZero() && e.AllDay:
		ve.AddProperty(ics.ComponentPropertyDtEnd, utils.TimeToIcalDate(e.End, loc), ics.WithValue(string(ics.ValueDataTypeDate)))
	case !e.End.IsZero():
		addTimed(ve, ics.ComponentPropertyDtEnd, e.End, e.RRule != "", tz)
	}
	if e.HasDuration {
		ve.AddProperty(ics.ComponentPropertyDuration, utils.FormatDuration(e.Duration))
	}

	if e.RRule != "" {
		ve.AddProperty(ics.ComponentPropertyRrule, strings.ToUpper(e.RRule))
	}
	if e.Categories != "" {
		ve.AddProperty(ics.ComponentPropertyCategories, e.Categories)
	}
	if e.Color != "" {
		ve.AddProperty(ics.ComponentPropertyColor, e.Color)
	}
	for _, p := range e.Extra {
		ve.AddProperty(ics.ComponentProperty(strings.ToUpper(p.Name)), p.Value)
	}
	return ve
}

// Timed DTSTART / DTEND. Recurring events stay in the zone they were defined
// in, everything else is written in the display zone.
func addTimed(ve *ics.VEvent, prop ics.ComponentProperty, t time.Time, recurring bool, tz Timezone) {
	if recurring {
		switch zone := t.Location(); {
		case zone == time.UTC:
			ve.AddProperty(prop, utils.TimeToIcalUTC(t))
			return
		case !tz.isDisplay(zone):
			ve.AddProperty(prop, utils.TimeToIcalLocal(t, zone), ics.WithTZID(zone.String()))
			return
		}
	}
	ve.AddProperty(prop, utils.TimeToIcalLocal(t, tz.Location()), ics.WithTZID(tz.ID))
}
