package route

import (
	"log/slog"
	"net/http"

	"calfeed/src-server/utils"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Metrics(muxer *http.ServeMux, as *utils.AppState) {
	muxer.Handle("GET /metrics", promhttp.HandlerFor(as.Registry, promhttp.HandlerOpts{
		ErrorLog:      slog.NewLogLogger(slog.Default().Handler(), slog.LevelError),
		Registry:      as.Registry,
		ErrorHandling: promhttp.ContinueOnError,
	}))
}
