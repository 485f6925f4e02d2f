package utils

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"calfeed/src-server/aggregate"
	"calfeed/src-server/feed"
	"calfeed/src-server/feedcache"
	"calfeed/src-server/fetch"
	"calfeed/src-server/mapper"
	"calfeed/src-server/metric"
	"calfeed/src-server/model"
	"calfeed/src-server/moodle"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

// Every long-lived collaborator, built once in main and handed to the
// routes and background jobs.
type AppState struct {
	Config *Config

	RawDB *sql.DB
	BunDB *bun.DB
	Store *model.Store

	Cache   *feedcache.Cache
	Fetcher *fetch.Fetcher
	Feeds   *feed.Service

	Registry *prometheus.Registry
	Metrics  *metric.Metrics

	AppCloseSignalChan chan os.Signal

	shutdownMu    sync.Mutex
	shutdownChans []chan struct{}
}

func NewAppState(cfg *Config) (*AppState, error) {
	as := &AppState{
		Config:             cfg,
		AppCloseSignalChan: make(chan os.Signal, 1),
	}

	// metrics
	as.Registry = prometheus.NewRegistry()
	as.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	as.Metrics = metric.New(as.Registry)

	// database
	var err error
	as.RawDB, err = sql.Open(sqliteshim.ShimName, cfg.GetDatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("NewAppState: can't open sqlite database: %w", err)
	}
	as.RawDB.SetMaxIdleConns(8)

	as.BunDB = bun.NewDB(as.RawDB, sqlitedialect.New())
	as.BunDB.AddQueryHook(bundebug.NewQueryHook(
		bundebug.WithVerbose(true),
		bundebug.FromEnv("BUNDEBUG"),
	))
	if err := model.CreateSchema(context.Background(), as.BunDB); err != nil {
		return nil, fmt.Errorf("NewAppState: %w", err)
	}
	as.Store = model.NewStore(as.BunDB)

	// feed storage and upstream access
	as.Cache, err = feedcache.NewOS(cfg.GetStaticRoot(), feedcache.WithWriteHook(func(r feedcache.WriteResult) {
		as.Metrics.CountCacheWrite(r.String())
	}))
	if err != nil {
		return nil, fmt.Errorf("NewAppState: %w", err)
	}
	as.Fetcher = fetch.New(
		fetch.WithTimeout(cfg.GetFetchTimeout()),
		fetch.WithMaxSize(cfg.GetFetchMaxSize()),
		fetch.WithObserver(as.Metrics.ObserveFetch),
	)

	as.Feeds = feed.New(as.Store, as.Cache, as.Fetcher, cfg.GetTimezone(), as.feedOptions()...)
	return as, nil
}

// Integrations present in the config become feed providers.
func (as *AppState) feedOptions() []feed.Option {
	tz := as.Config.GetTimezone()
	integrations := as.Config.GetIntegrations()

	opts := []feed.Option{
		feed.WithAggregator(aggregate.New(tz,
			aggregate.WithParallelism(as.Config.GetAggregateParallelism()),
			aggregate.WithEventHook(as.Metrics.CountAggregatedEvents),
		)),
	}
	if i := integrations.Moodle; i.Enabled() {
		opts = append(opts, feed.WithMoodle(moodle.NewClient(i.APIURL, as.Fetcher, tz)))
		slog.Info("integration enabled", "name", "moodle", "url", fetch.RedactURL(i.APIURL))
	}
	if i := integrations.Sport; i.Enabled() {
		opts = append(opts, feed.WithSport(mapper.NewSportClient(i.APIURL, i.Token, i.WindowDays, as.Fetcher, tz)))
		slog.Info("integration enabled", "name", "sport", "url", fetch.RedactURL(i.APIURL))
	}
	if i := integrations.MusicRoom; i.Enabled() {
		opts = append(opts, feed.WithMusicRoom(mapper.NewMusicRoomClient(i.APIURL, i.Token, as.Fetcher, tz)))
		slog.Info("integration enabled", "name", "music_room", "url", fetch.RedactURL(i.APIURL))
	}
	if i := integrations.Workshops; i.Enabled() {
		opts = append(opts, feed.WithWorkshops(mapper.NewWorkshopsClient(i.APIURL, i.Token, as.Fetcher, tz)))
		slog.Info("integration enabled", "name", "workshops", "url", fetch.RedactURL(i.APIURL))
	}
	return opts
}

// Channel closed by GracefulShutdown, for background loops to return on.
func (as *AppState) CreateGracefulShutdownChan() <-chan struct{} {
	as.shutdownMu.Lock()
	defer as.shutdownMu.Unlock()
	ch := make(chan struct{})
	as.shutdownChans = append(as.shutdownChans, ch)
	return ch
}

func (as *AppState) GracefulShutdown() {
	as.shutdownMu.Lock()
	for _, ch := range as.shutdownChans {
		close(ch)
	}
	as.shutdownChans = nil
	as.shutdownMu.Unlock()

	if as.BunDB != nil {
		if err := as.BunDB.Close(); err != nil {
			slog.Warn("can't close database", "error", err)
		}
	}
}
