package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// GET a JSON document into v. Integration APIs answer with chunked bodies,
// so only the running byte budget is enforced, not a declared length.
func (f *Fetcher) FetchJSON(ctx context.Context, rawURL string, header http.Header, v any) error {
	header = header.Clone()
	if header == nil {
		header = http.Header{}
	}
	if header.Get("Accept") == "" {
		header.Set("Accept", "application/json")
	}
	rc, err := f.open(ctx, rawURL, header, false)
	if err != nil {
		return err
	}
	defer rc.Close()

	if err := json.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("(*Fetcher).FetchJSON: %s: %w", RedactURL(rawURL), err)
	}
	return nil
}
