package route

import (
	"errors"
	"log/slog"
	"net/http"

	"calfeed/src-server/feed"
	"calfeed/src-server/feedcache"
	"calfeed/src-server/fetch"
	"calfeed/src-server/ical"
	"calfeed/src-server/model"
)

// Map a domain error to its status code and write it as plain text.
// Returns the status that was written.
func writeError(w http.ResponseWriter, err error) int {
	code := statusOf(err)
	if code >= http.StatusInternalServerError {
		slog.Error("request failed", "status", code, "error", err)
	} else {
		slog.Debug("request rejected", "status", code, "error", err)
	}
	http.Error(w, err.Error(), code)
	return code
}

func statusOf(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, feed.ErrNotFound),
		errors.Is(err, model.ErrNotFound),
		errors.Is(err, feedcache.ErrNotFound),
		errors.Is(err, feed.ErrNotConfigured):
		return http.StatusNotFound
	case errors.Is(err, feed.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, feed.ErrNoStaticSource):
		return http.StatusNotImplemented
	// malformed upstream records wrap a validation error too
	case errors.Is(err, fetch.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, ical.ErrInvalidCalendar),
		errors.Is(err, fetch.ErrPayloadTooLarge),
		errors.Is(err, fetch.ErrSizeUnknown),
		errors.Is(err, feedcache.ErrInvalidPath),
		errors.As(err, &maxBytes):
		return http.StatusBadRequest
	case errors.Is(err, fetch.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
