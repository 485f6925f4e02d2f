package ical

import (
	"fmt"
	"log/slog"
	"time"

	// foreign TZIDs resolve without system zoneinfo
	_ "time/tzdata"
)

// Display timezone of generated documents. The embedded VTIMEZONE models a
// single fixed offset without daylight-saving transitions.
type Timezone struct {
	ID     string        // e.g. Europe/Moscow
	Abbr   string        // STANDARD TZNAME, e.g. MSK
	Offset time.Duration // east of UTC
}

var DefaultTimezone = Timezone{
	ID:     "Europe/Moscow",
	Abbr:   "MSK",
	Offset: 3 * time.Hour,
}

// Fixed location matching the offset, never loaded from tzdata.
func (tz Timezone) Location() *time.Location {
	return time.FixedZone(tz.Abbr, int(tz.Offset/time.Second))
}

// Offset in the "+0300" form used by TZOFFSETFROM / TZOFFSETTO.
func (tz Timezone) OffsetString() string {
	sign := '+'
	offset := tz.Offset
	if offset < 0 {
		sign = '-'
		offset = -offset
	}
	hours := int(offset / time.Hour)
	minutes := int((offset % time.Hour) / time.Minute)
	return fmt.Sprintf("%c%02d%02d", sign, hours, minutes)
}

// Resolve a TZID parameter. The display zone id maps to the fixed location;
// anything else goes through tzdata and falls back to the display zone.
func (tz Timezone) resolve(tzid string) *time.Location {
	if tzid == "" || tzid == tz.ID {
		return tz.Location()
	}
	loc, err := time.LoadLocation(tzid)
	if err != nil {
		slog.Warn("unknown TZID, reading as display zone", "tzid", tzid, "display", tz.ID, "error", err)
		return tz.Location()
	}
	return loc
}

// Whether loc is the display zone itself rather than a zone a source
// calendar brought along.
func (tz Timezone) isDisplay(loc *time.Location) bool {
	switch loc.String() {
	case tz.Abbr, tz.ID, "Local", "":
		return true
	}
	return false
}

// Parse "+03:00", "+0300" or "-05:30" into an offset.
func ParseOffset(s string) (time.Duration, error) {
	t, err := time.Parse("-07:00", s)
	if err != nil {
		if t, err = time.Parse("-0700", s); err != nil {
			return 0, fmt.Errorf("ParseOffset: invalid offset %q", s)
		}
	}
	_, secs := t.Zone()
	return time.Duration(secs) * time.Second, nil
}
