package main

import (
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"calfeed/src-server/route"
	"calfeed/src-server/scheduler"
	"calfeed/src-server/utils"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
)

func init() {
	if err := godotenv.Load(); err != nil {
		slog.Info(err.Error())
	}
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.RFC1123Z,
		}),
	))
}

func main() {
	cfg, err := utils.NewConfig()
	if err != nil {
		slog.Error("can't read config", "error", err)
		os.Exit(1)
	}
	as, err := utils.NewAppState(cfg)
	if err != nil {
		slog.Error("can't initialize app", "error", err)
		os.Exit(1)
	}

	// background jobs
	as.Metrics.WatchDatabase(as.Store, cfg.GetMetricInterval(), as.CreateGracefulShutdownChan())
	if err := scheduler.GroupRefresh(as, as.CreateGracefulShutdownChan()); err != nil {
		slog.Error("can't schedule group refresh", "error", err)
		os.Exit(1)
	}

	// http server
	go func() {
		muxer := http.NewServeMux()
		route.Metrics(muxer, as)
		route.Groups(muxer, as)
		route.Feeds(muxer, as)
		if err := http.ListenAndServe(":"+cfg.GetPort(), route.LogMiddleware(muxer)); err != nil {
			slog.Error("cannot start HTTP server", "error", err)
			as.AppCloseSignalChan <- syscall.SIGTERM
		}
	}()

	slog.Info("app is now running, press Ctrl+C to exit", "port", cfg.GetPort())

	signal.Notify(as.AppCloseSignalChan, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-as.AppCloseSignalChan
	slog.Info("Gracefully shutting down...")
	as.GracefulShutdown()
}
