package route

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"calfeed/src-server/feed"
	"calfeed/src-server/utils"
)

const (
	calendarContentType = "text/calendar; charset=utf-8"
	userIDHeader        = "X-User-Id"
)

var errBadUserID = errors.New("missing or malformed user id")

// Sets the calendar content type right before the first byte goes out, so
// an error found before that can still become a proper status.
type feedWriter struct {
	w       http.ResponseWriter
	written bool
}

func (fw *feedWriter) Write(p []byte) (int, error) {
	if !fw.written {
		fw.w.Header().Set("Content-Type", calendarContentType)
		fw.written = true
	}
	return fw.w.Write(p)
}

// Run a feed generator against the response. Once streaming has started
// the status can't change anymore, so a late failure aborts the connection
// and the client never sees a truncated calendar as complete.
func serveFeed(as *utils.AppState, name string, w http.ResponseWriter, generate func(io.Writer) error) {
	fw := &feedWriter{w: w}
	err := generate(fw)
	switch {
	case err == nil:
		if !fw.written {
			fw.Write(nil)
		}
		as.Metrics.CountFeedRequest(name, http.StatusOK)
	case !fw.written:
		as.Metrics.CountFeedRequest(name, writeError(w, err))
	default:
		as.Metrics.CountAbortedFeed(name)
		slog.Error("feed interrupted", "feed", name, "error", err)
		panic(http.ErrAbortHandler)
	}
}

// Feed name from a "{name}.ics" path segment.
func feedFile(r *http.Request) (string, bool) {
	name, ok := strings.CutSuffix(r.PathValue("file"), ".ics")
	return name, ok && name != ""
}

type userFeed func(ctx context.Context, w io.Writer, userID int64) error

func userFeeds(s *feed.Service) map[string]userFeed {
	return map[string]userFeed{
		"all":        s.UserAll,
		"sport":      s.UserSport,
		"moodle":     s.UserMoodle,
		"music-room": s.UserMusicRoom,
		"workshops":  s.UserWorkshops,
	}
}

// Per-user feeds, both for the caller ("me", identified by the gateway) and
// for anyone holding an access key for the exact path.
func Feeds(muxer *http.ServeMux, as *utils.AppState) {
	feeds := userFeeds(as.Feeds)

	// #region me

	muxer.HandleFunc("GET /users/me/{file}", func(w http.ResponseWriter, r *http.Request) {
		name, ok := feedFile(r)
		generate, known := feeds[name]
		if !ok || !known {
			http.NotFound(w, r)
			return
		}
		userID, err := gatewayUserID(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		serveFeed(as, name, w, func(out io.Writer) error {
			return generate(r.Context(), out, userID)
		})
	})

	muxer.HandleFunc("GET /users/me/linked/{file}", func(w http.ResponseWriter, r *http.Request) {
		alias, ok := feedFile(r)
		if !ok {
			http.NotFound(w, r)
			return
		}
		userID, err := gatewayUserID(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		serveFeed(as, "linked", w, func(out io.Writer) error {
			return as.Feeds.Linked(r.Context(), out, userID, alias)
		})
	})

	// #endregion

	// #region access key

	muxer.HandleFunc("GET /users/{user_id}/{file}", func(w http.ResponseWriter, r *http.Request) {
		name, ok := feedFile(r)
		generate, known := feeds[name]
		if !ok || !known {
			http.NotFound(w, r)
			return
		}
		serveFeed(as, name, w, func(out io.Writer) error {
			userID, err := authorizedUserID(as, r)
			if err != nil {
				return err
			}
			return generate(r.Context(), out, userID)
		})
	})

	muxer.HandleFunc("GET /users/{user_id}/linked/{file}", func(w http.ResponseWriter, r *http.Request) {
		alias, ok := feedFile(r)
		if !ok {
			http.NotFound(w, r)
			return
		}
		serveFeed(as, "linked", w, func(out io.Writer) error {
			userID, err := authorizedUserID(as, r)
			if err != nil {
				return err
			}
			return as.Feeds.Linked(r.Context(), out, userID, alias)
		})
	})

	// #endregion
}

func gatewayUserID(r *http.Request) (int64, error) {
	userID, err := strconv.ParseInt(strings.TrimSpace(r.Header.Get(userIDHeader)), 10, 64)
	if err != nil || userID <= 0 {
		return 0, errBadUserID
	}
	return userID, nil
}

// User id from the path, checked against the access_key query parameter.
func authorizedUserID(as *utils.AppState, r *http.Request) (int64, error) {
	userID, err := strconv.ParseInt(r.PathValue("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		return 0, feed.ErrNotFound
	}
	if err := as.Feeds.Authorize(r.Context(), userID, r.URL.Query().Get("access_key"), r.URL.Path); err != nil {
		return 0, err
	}
	return userID, nil
}
