package mapper

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"calfeed/src-server/fetch"
	"calfeed/src-server/ical"
)

const DefaultSportWindowDays = 14

// Training session in the sport service's calendar format.
type SportTraining struct {
	Title         string             `json:"title"`
	Start         string             `json:"start"`
	End           string             `json:"end"`
	AllDay        bool               `json:"allDay"`
	ExtendedProps SportTrainingProps `json:"extendedProps"`
}

type SportTrainingProps struct {
	ID            int64  `json:"id"`
	GroupID       int64  `json:"group_id"`
	TrainingClass string `json:"training_class"`
	CanCheckIn    bool   `json:"can_check_in"`
	CheckedIn     bool   `json:"checked_in"`
}

// Map a training the user checked in to. ok is false for every other
// training, those never make it into the feed.
func MapSport(t SportTraining, tz ical.Timezone) (e ical.Event, ok bool, err error) {
	if !t.ExtendedProps.CheckedIn {
		return ical.Event{}, false, nil
	}
	loc := tz.Location()

	start, err := parseTime(t.Start, loc)
	if err != nil {
		return ical.Event{}, false, fmt.Errorf("MapSport: training %d: %w", t.ExtendedProps.ID, err)
	}
	var end time.Time
	if t.End != "" {
		if end, err = parseTime(t.End, loc); err != nil {
			return ical.Event{}, false, fmt.Errorf("MapSport: training %d: %w", t.ExtendedProps.ID, err)
		}
	}

	id := strconv.FormatInt(t.ExtendedProps.ID, 10)
	e = ical.Event{
		UID:     ical.StableUID("sport-", id),
		Summary: t.Title,
		Start:   start,
		End:     end,
		AllDay:  t.AllDay,
		Color:   ical.AssignColor(t.Title),
	}
	if t.AllDay {
		e.Start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
		if !end.IsZero() {
			e.End = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, loc)
		}
	}
	if t.ExtendedProps.TrainingClass != "" {
		e.Description = "Class: " + t.ExtendedProps.TrainingClass
	}
	e.SetExtra("X-SPORT-TRAINING-ID", id)
	e.SetExtra("X-SPORT-CHECKED-IN", "TRUE")
	return e, true, nil
}

type SportClient struct {
	client
	windowDays int
	tz         ical.Timezone
	now        func() time.Time
}

func NewSportClient(baseURL, token string, windowDays int, fetcher *fetch.Fetcher, tz ical.Timezone) *SportClient {
	if windowDays <= 0 {
		windowDays = DefaultSportWindowDays
	}
	return &SportClient{
		client:     newClient(baseURL, token, fetcher),
		windowDays: windowDays,
		tz:         tz,
		now:        time.Now,
	}
}

// Replace the clock that centres the requested window.
func (c *SportClient) WithClock(now func() time.Time) *SportClient {
	c.now = now
	return c
}

func (c *SportClient) Name() string {
	return "Sport"
}

// Trainings within windowDays around today.
func (c *SportClient) Events(ctx context.Context, email string) ([]ical.Event, error) {
	loc := c.tz.Location()
	now := c.now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	query := url.Values{}
	query.Set("email", email)
	query.Set("start", today.AddDate(0, 0, -c.windowDays).Format(time.RFC3339))
	query.Set("end", today.AddDate(0, 0, c.windowDays).Format(time.RFC3339))

	var trainings []SportTraining
	if err := c.get(ctx, "/calendar/trainings", query, &trainings); err != nil {
		return nil, fmt.Errorf("(*SportClient).Events: %w", err)
	}

	events := make([]ical.Event, 0, len(trainings))
	for _, t := range trainings {
		e, ok, err := MapSport(t, c.tz)
		if err != nil {
			return nil, fmt.Errorf("(*SportClient).Events: %w: %w", ErrBadRecord, err)
		}
		if ok {
			events = append(events, e)
		}
	}
	return events, nil
}
