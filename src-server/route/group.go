package route

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"calfeed/src-server/feed"
	"calfeed/src-server/utils"
)

type publishResponse struct {
	Result string `json:"result"`
}

// Published per-group calendars, and the admin upload that replaces them.
func Groups(muxer *http.ServeMux, as *utils.AppState) {
	muxer.HandleFunc("GET /event-groups/by-alias/{file}", func(w http.ResponseWriter, r *http.Request) {
		alias, ok := feedFile(r)
		if !ok {
			http.NotFound(w, r)
			return
		}
		serveFeed(as, "group", w, func(out io.Writer) error {
			return as.Feeds.GroupByAlias(r.Context(), out, alias)
		})
	})

	muxer.HandleFunc("GET /event-groups/by-id/{file}", func(w http.ResponseWriter, r *http.Request) {
		name, ok := feedFile(r)
		if !ok {
			http.NotFound(w, r)
			return
		}
		serveFeed(as, "group", w, func(out io.Writer) error {
			id, err := strconv.ParseInt(name, 10, 64)
			if err != nil {
				return feed.ErrNotFound
			}
			return as.Feeds.GroupByID(r.Context(), out, id)
		})
	})

	muxer.HandleFunc("PUT /event-groups/{id}/schedule.ics", AdminMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			as.Metrics.CountFeedRequest("upload", writeError(w, feed.ErrNotFound))
			return
		}
		body := http.MaxBytesReader(w, r.Body, as.Fetcher.MaxSize())
		defer body.Close()

		result, err := as.Feeds.PublishGroup(r.Context(), id, body)
		if err != nil {
			as.Metrics.CountFeedRequest("upload", writeError(w, err))
			return
		}
		as.Metrics.CountFeedRequest("upload", http.StatusOK)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(publishResponse{Result: result.String()})
	}))
}
