package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"calfeed/src-server/feedcache"
	"calfeed/src-server/model"
	"calfeed/src-server/utils"

	"github.com/robfig/cron/v3"
)

const (
	WORKER_COUNT = 4
)

type GroupLister interface {
	GroupsWithSource(ctx context.Context) ([]model.EventGroup, error)
}

type GroupRefresher interface {
	RefreshGroup(ctx context.Context, group model.EventGroup) (feedcache.WriteResult, error)
}

type RefreshStats struct {
	Written   int
	Unchanged int
	Failed    int
}

// Re-publish every group that has an upstream calendar. A failing group is
// logged and counted, the rest still run.
func RefreshGroups(ctx context.Context, lister GroupLister, refresher GroupRefresher) (RefreshStats, error) {
	groups, err := lister.GroupsWithSource(ctx)
	if err != nil {
		return RefreshStats{}, fmt.Errorf("RefreshGroups: can't list groups: %w", err)
	}

	jobs := make(chan model.EventGroup, len(groups))
	for _, group := range groups {
		jobs <- group
	}
	close(jobs)

	var written, unchanged, failed atomic.Int64
	var wg sync.WaitGroup
	for range WORKER_COUNT {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for group := range jobs {
				if ctx.Err() != nil {
					failed.Add(1)
					continue
				}
				result, err := refresher.RefreshGroup(ctx, group)
				switch {
				case err != nil:
					failed.Add(1)
					slog.Warn("RefreshGroups: can't refresh group", "alias", group.Alias, "error", err)
				case result == feedcache.Written:
					written.Add(1)
				default:
					unchanged.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	return RefreshStats{
		Written:   int(written.Load()),
		Unchanged: int(unchanged.Load()),
		Failed:    int(failed.Load()),
	}, ctx.Err()
}

// Schedule RefreshGroups on REFRESH_CRON until done is closed. A run still
// in progress when the next one is due makes the next one skip.
func GroupRefresh(as *utils.AppState, done <-chan struct{}) error {
	logger := cronLogger{}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := c.AddFunc(as.Config.GetRefreshCron(), func() {
		start := time.Now()
		stats, err := RefreshGroups(ctx, as.Store, as.Feeds)
		if err != nil {
			slog.Error("GroupRefresh: run failed", "error", err)
			return
		}
		slog.Info("GroupRefresh: run finished",
			"written", stats.Written,
			"unchanged", stats.Unchanged,
			"failed", stats.Failed,
			"elapsed", time.Since(start),
		)
	}); err != nil {
		cancel()
		return fmt.Errorf("GroupRefresh: invalid schedule %q: %w", as.Config.GetRefreshCron(), err)
	}

	c.Start()
	go func() {
		<-done
		cancel()
		<-c.Stop().Done()
		slog.Info("GroupRefresh: stopped")
	}()
	return nil
}

type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
