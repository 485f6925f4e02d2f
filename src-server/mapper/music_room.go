package mapper

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"calfeed/src-server/fetch"
	"calfeed/src-server/ical"
)

type MusicRoomBooking struct {
	ID        int64  `json:"id"`
	RoomName  string `json:"room_name"`
	TimeStart string `json:"time_start"`
	TimeEnd   string `json:"time_end"`
}

// The room doubles as location and color seed, so one room keeps one color.
func MapMusicRoom(b MusicRoomBooking, tz ical.Timezone) (ical.Event, error) {
	loc := tz.Location()
	start, err := parseTime(b.TimeStart, loc)
	if err != nil {
		return ical.Event{}, fmt.Errorf("MapMusicRoom: booking %d: %w", b.ID, err)
	}
	end, err := parseTime(b.TimeEnd, loc)
	if err != nil {
		return ical.Event{}, fmt.Errorf("MapMusicRoom: booking %d: %w", b.ID, err)
	}

	id := strconv.FormatInt(b.ID, 10)
	e := ical.Event{
		UID:      ical.StableUID("music-room-", id),
		Summary:  "Music room: " + b.RoomName,
		Location: b.RoomName,
		Start:    start,
		End:      end,
		Color:    ical.AssignColor(b.RoomName),
	}
	e.SetExtra("X-MUSIC-ROOM-BOOKING-ID", id)
	return e, nil
}

type MusicRoomClient struct {
	client
	tz ical.Timezone
}

func NewMusicRoomClient(baseURL, token string, fetcher *fetch.Fetcher, tz ical.Timezone) *MusicRoomClient {
	return &MusicRoomClient{
		client: newClient(baseURL, token, fetcher),
		tz:     tz,
	}
}

func (c *MusicRoomClient) Name() string {
	return "Music room"
}

func (c *MusicRoomClient) Events(ctx context.Context, email string) ([]ical.Event, error) {
	var bookings []MusicRoomBooking
	if err := c.get(ctx, "/bookings", url.Values{"email": {email}}, &bookings); err != nil {
		return nil, fmt.Errorf("(*MusicRoomClient).Events: %w", err)
	}

	events := make([]ical.Event, 0, len(bookings))
	for _, b := range bookings {
		e, err := MapMusicRoom(b, c.tz)
		if err != nil {
			return nil, fmt.Errorf("(*MusicRoomClient).Events: %w: %w", ErrBadRecord, err)
		}
		events = append(events, e)
	}
	return events, nil
}
