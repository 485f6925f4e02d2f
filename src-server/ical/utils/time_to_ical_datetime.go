package utils

import (
	"time"
)

// Local wall-clock form used together with a TZID parameter: YYYYMMDDTHHMMSS
func TimeToIcalLocal(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(LocalTimeLayout)
}

// YYYYMMDD in the given location
func TimeToIcalDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}

// YYYYMMDDTHHMMSSZ
func TimeToIcalUTC(t time.Time) string {
	return t.UTC().Format(UTCTimeLayout)
}
