package moodle

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"calfeed/src-server/fetch"
	"calfeed/src-server/ical"
)

var ErrNotConfigured = errors.New("moodle credentials are not set")

const exportPath = "/calendar/export_execute.php"

// Per-user calendar export of a Moodle instance.
type Client struct {
	baseURL string
	fetcher *fetch.Fetcher
	tz      ical.Timezone
}

func NewClient(baseURL string, fetcher *fetch.Fetcher, tz ical.Timezone) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		fetcher: fetcher,
		tz:      tz,
	}
}

// Export URL for a user. The auth token ends up in the query string, so the
// result must only be logged through fetch.RedactURL.
func (c *Client) ExportURL(userID int64, authToken string) string {
	q := url.Values{}
	q.Set("userid", fmt.Sprint(userID))
	q.Set("authtoken", authToken)
	q.Set("preset_what", "all")
	q.Set("preset_time", "recentupcoming")
	return c.baseURL + exportPath + "?" + q.Encode()
}

// Download the user's export and run it through Repair.
func (c *Client) Calendar(ctx context.Context, userID int64, authToken string) (*ical.Document, error) {
	if userID == 0 || authToken == "" {
		return nil, ErrNotConfigured
	}
	raw, err := c.fetcher.FetchCalendar(ctx, c.ExportURL(userID, authToken), nil, c.tz)
	if err != nil {
		return nil, fmt.Errorf("(*Client).Calendar: %w", err)
	}
	return Repair(raw, c.tz), nil
}
