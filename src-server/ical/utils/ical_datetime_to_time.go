package utils

import (
	"fmt"
	"regexp"
	"time"
)

var (
	datePattern      = regexp.MustCompile(`^\d{8}$`)
	localTimePattern = regexp.MustCompile(`^\d{8}T\d{6}$`)
	UTCTimePattern   = regexp.MustCompile(`^\d{8}T\d{6}Z$`)
)

const (
	DateLayout      = "20060102"
	LocalTimeLayout = "20060102T150405"
	UTCTimeLayout   = "20060102T150405Z"
)

// Parsing the value part of DATE / DATE-TIME properties, for example:
//   - 20240301 (all-day, returned as midnight in `loc`)
//   - 20240301T100000 with TZID (parsed in `loc`)
//   - 20240301T070000Z (parsed in UTC, then moved to `loc`)
//
// The boolean result reports whether the value is a bare date.
func IcalDatetimeToTime(value string, loc *time.Location) (time.Time, bool, error) {
	if loc == nil {
		loc = time.UTC
	}
	switch {
	case datePattern.MatchString(value):
		result, err := time.ParseInLocation(DateLayout, value, loc)
		if err != nil {
			return time.Time{}, false, err
		}
		return result, true, nil
	case localTimePattern.MatchString(value):
		result, err := time.ParseInLocation(LocalTimeLayout, value, loc)
		if err != nil {
			return time.Time{}, false, err
		}
		return result, false, nil
	case UTCTimePattern.MatchString(value):
		result, err := time.Parse(UTCTimeLayout, value)
		if err != nil {
			return time.Time{}, false, err
		}
		return result.In(loc), false, nil
	default:
		return time.Time{}, false, fmt.Errorf("invalid date-time format: %q", value)
	}
}
