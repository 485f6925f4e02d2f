package mapper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"calfeed/src-server/fetch"
	"calfeed/src-server/ical"
)

// A record the upstream sent that can't become a valid event. Wraps
// fetch.ErrUpstream since the fault is on the other side.
var ErrBadRecord = fmt.Errorf("%w: malformed record", fetch.ErrUpstream)

// Third-party service that knows a user's bookings by email.
type Provider interface {
	// Feed name, also used as the calendar name.
	Name() string
	Events(ctx context.Context, email string) ([]ical.Event, error)
}

// Build the user's calendar from a provider. Every mapped event is checked
// by ical.ValidateEvent before it is added.
func Calendar(ctx context.Context, p Provider, email string, tz ical.Timezone) (*ical.Document, error) {
	events, err := p.Events(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("mapper.Calendar: %s: %w", p.Name(), err)
	}
	doc := ical.NewDocument(p.Name(), tz)
	for _, e := range events {
		if err := ical.ValidateEvent(e); err != nil {
			return nil, fmt.Errorf("mapper.Calendar: %s: %w: %w", p.Name(), ErrBadRecord, err)
		}
		doc.AddEvent(e)
	}
	slog.Debug("mapped provider events", "provider", p.Name(), "events", doc.Len())
	return doc, nil
}

// JSON API reached with a bearer token.
type client struct {
	baseURL string
	token   string
	fetcher *fetch.Fetcher
}

func newClient(baseURL, token string, fetcher *fetch.Fetcher) client {
	return client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		fetcher: fetcher,
	}
}

func (c client) get(ctx context.Context, path string, query url.Values, v any) error {
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	rawURL := c.baseURL + path
	if len(query) > 0 {
		rawURL += "?" + query.Encode()
	}
	return c.fetcher.FetchJSON(ctx, rawURL, header, v)
}

// Timestamps as the integration APIs send them: RFC 3339, a local
// date-time without offset, or a bare date.
func parseTime(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}
