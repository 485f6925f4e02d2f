package metric

import (
	"context"
	"log/slog"
	"time"
)

type Pinger interface {
	Ping(ctx context.Context) (time.Duration, error)
}

// Ping the database every interval until done is closed, publishing the
// latency of an empty read.
func (m *Metrics) WatchDatabase(db Pinger, interval time.Duration, done <-chan struct{}) {
	m.DatabaseEmptyRead.Set(0)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				slog.Debug("database watch stopped")
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), interval)
				latency, err := db.Ping(ctx)
				cancel()
				if err != nil {
					slog.Error("can't get database latency", "error", err)
					continue
				}
				m.DatabaseEmptyRead.Set(float64(latency.Microseconds()))
			}
		}
	}()
}
