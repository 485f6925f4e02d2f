package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var durationPattern = regexp.MustCompile(`^([+-])?P(?:(\d+)W)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// Parse an RFC 5545 DURATION value such as "PT1H30M", "P1D" or "-PT15M".
func ParseDuration(value string) (time.Duration, error) {
	value = strings.ToUpper(strings.TrimSpace(value))
	m := durationPattern.FindStringSubmatch(value)
	if m == nil || value == "P" || strings.HasSuffix(value, "T") {
		return 0, fmt.Errorf("invalid duration: %q", value)
	}

	var d time.Duration
	for i, unit := range []time.Duration{
		7 * 24 * time.Hour,
		24 * time.Hour,
		time.Hour,
		time.Minute,
		time.Second,
	} {
		part := m[i+2]
		if part == "" {
			continue
		}
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %q: %w", value, err)
		}
		d += time.Duration(n) * unit
	}
	if m[1] == "-" {
		d = -d
	}
	return d, nil
}

// Format a duration in the RFC 5545 form. Whole days are written as "P<n>D".
func FormatDuration(d time.Duration) string {
	var sb strings.Builder
	if d < 0 {
		sb.WriteByte('-')
		d = -d
	}
	sb.WriteByte('P')

	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	if days > 0 {
		sb.WriteString(strconv.FormatInt(int64(days), 10))
		sb.WriteByte('D')
	}
	if d == 0 && days > 0 {
		return sb.String()
	}

	sb.WriteByte('T')
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second

	if hours > 0 {
		sb.WriteString(strconv.FormatInt(int64(hours), 10) + "H")
	}
	if minutes > 0 {
		sb.WriteString(strconv.FormatInt(int64(minutes), 10) + "M")
	}
	if seconds > 0 || (hours == 0 && minutes == 0) {
		sb.WriteString(strconv.FormatInt(int64(seconds), 10) + "S")
	}
	return sb.String()
}
