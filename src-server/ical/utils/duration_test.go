package utils_test

import (
	"testing"
	"time"

	"calfeed/src-server/ical/utils"
)

func TestDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"PT0S":      0,
		"PT45M":     45 * time.Minute,
		"PT1H30M":   90 * time.Minute,
		"P1D":       24 * time.Hour,
		"P1DT2H":    26 * time.Hour,
		"P2W":       14 * 24 * time.Hour,
		"-PT15M":    -15 * time.Minute,
		"pt1h":      time.Hour,
		"PT1H0M10S": time.Hour + 10*time.Second,
	}
	for in, want := range cases {
		got, err := utils.ParseDuration(in)
		if err != nil {
			t.Errorf("%s: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("%s: expected %v, got %v", in, want, got)
		}
		back, err := utils.ParseDuration(utils.FormatDuration(got))
		if err != nil || back != got {
			t.Errorf("%s: format %q did not parse back", in, utils.FormatDuration(got))
		}
	}

	for _, bad := range []string{"", "P", "PT", "1H", "P1H", "PTXS"} {
		if _, err := utils.ParseDuration(bad); err == nil {
			t.Errorf("%q: expected an error", bad)
		}
	}

	if got := utils.FormatDuration(0); got != "PT0S" {
		t.Errorf("zero formatted as %q", got)
	}
	if got := utils.FormatDuration(24 * time.Hour); got != "P1D" {
		t.Errorf("one day formatted as %q", got)
	}
}

func TestIcalDatetimeToTime(t *testing.T) {
	msk := time.FixedZone("MSK", 3*60*60)

	got, isDate, err := utils.IcalDatetimeToTime("20240301", msk)
	if err != nil || !isDate || !got.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, msk)) {
		t.Errorf("date: %v %v %v", got, isDate, err)
	}
	got, isDate, err = utils.IcalDatetimeToTime("20240301T100000", msk)
	if err != nil || isDate || got.Hour() != 10 {
		t.Errorf("local: %v %v %v", got, isDate, err)
	}
	got, _, err = utils.IcalDatetimeToTime("20240301T070000Z", msk)
	if err != nil || got.Hour() != 10 || got.Location() != msk {
		t.Errorf("utc: %v %v", got, err)
	}
	if _, _, err := utils.IcalDatetimeToTime("2024-03-01", msk); err == nil {
		t.Error("expected an error for an ISO date")
	}

	if s := utils.TimeToIcalLocal(time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC), msk); s != "20240301T100000" {
		t.Errorf("local format: %s", s)
	}
}
