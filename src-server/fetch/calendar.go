package fetch

import (
	"context"
	"fmt"
	"net/http"

	"calfeed/src-server/ical"
)

// Fetch and parse a calendar. The whole body is buffered by the parser, so
// the same size and time bounds as FetchBytes apply.
func (f *Fetcher) FetchCalendar(ctx context.Context, rawURL string, header http.Header, tz ical.Timezone) (*ical.Document, error) {
	rc, err := f.FetchBytes(ctx, rawURL, header)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	doc, err := ical.Parse(rc, tz)
	if err != nil {
		return nil, fmt.Errorf("(*Fetcher).FetchCalendar: %s: %w", RedactURL(rawURL), err)
	}
	return doc, nil
}
