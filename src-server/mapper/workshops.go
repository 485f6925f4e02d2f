package mapper

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"calfeed/src-server/fetch"
	"calfeed/src-server/ical"
)

// Workshop the user checked in to.
type WorkshopCheckIn struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Place       string `json:"place"`
	DTStart     string `json:"dtstart"`
	DTEnd       string `json:"dtend"`
}

func MapWorkshop(w WorkshopCheckIn, tz ical.Timezone) (ical.Event, error) {
	loc := tz.Location()
	start, err := parseTime(w.DTStart, loc)
	if err != nil {
		return ical.Event{}, fmt.Errorf("MapWorkshop: workshop %d: %w", w.ID, err)
	}
	end, err := parseTime(w.DTEnd, loc)
	if err != nil {
		return ical.Event{}, fmt.Errorf("MapWorkshop: workshop %d: %w", w.ID, err)
	}

	id := strconv.FormatInt(w.ID, 10)
	e := ical.Event{
		UID:         ical.StableUID("workshop-", id),
		Summary:     w.Name,
		Description: w.Description,
		Location:    w.Place,
		Start:       start,
		End:         end,
		Color:       ical.AssignColor(w.Place),
	}
	e.SetExtra("X-WORKSHOP-ID", id)
	return e, nil
}

type WorkshopsClient struct {
	client
	tz ical.Timezone
}

func NewWorkshopsClient(baseURL, token string, fetcher *fetch.Fetcher, tz ical.Timezone) *WorkshopsClient {
	return &WorkshopsClient{
		client: newClient(baseURL, token, fetcher),
		tz:     tz,
	}
}

func (c *WorkshopsClient) Name() string {
	return "Workshops"
}

// All of the user's check-ins, no filtering.
func (c *WorkshopsClient) Events(ctx context.Context, email string) ([]ical.Event, error) {
	var checkIns []WorkshopCheckIn
	if err := c.get(ctx, "/users/checkins", url.Values{"email": {email}}, &checkIns); err != nil {
		return nil, fmt.Errorf("(*WorkshopsClient).Events: %w", err)
	}

	events := make([]ical.Event, 0, len(checkIns))
	for _, w := range checkIns {
		e, err := MapWorkshop(w, c.tz)
		if err != nil {
			return nil, fmt.Errorf("(*WorkshopsClient).Events: %w: %w", ErrBadRecord, err)
		}
		events = append(events, e)
	}
	return events, nil
}
