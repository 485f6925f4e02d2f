package metric_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"calfeed/src-server/metric"

	"github.com/prometheus/client_golang/prometheus"
)

type fakeDB struct{}

func (fakeDB) Ping(context.Context) (time.Duration, error) {
	return 250 * time.Microsecond, nil
}

// Value of a counter or gauge, or the sample count of a histogram.
func value(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	next:
		for _, m := range family.GetMetric() {
			for _, pair := range m.GetLabel() {
				if labels[pair.GetName()] != pair.GetValue() {
					continue next
				}
			}
			return m.GetCounter().GetValue() + m.GetGauge().GetValue() + float64(m.GetHistogram().GetSampleCount())
		}
	}
	return 0
}

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metric.New(reg)

	m.CountFeedRequest("all", http.StatusOK)
	m.CountFeedRequest("all", http.StatusOK)
	m.CountFeedRequest("sport", http.StatusNotFound)
	m.CountAbortedFeed("linked")
	m.CountCacheWrite("written")
	m.CountAggregatedEvents(5)
	m.ObserveFetch("ok", 120*time.Millisecond)

	tests := []struct {
		name   string
		labels map[string]string
		want   float64
	}{
		{"calfeed_feed_requests_total", map[string]string{"feed": "all", "code": "200"}, 2},
		{"calfeed_feed_requests_total", map[string]string{"feed": "sport", "code": "404"}, 1},
		{"calfeed_feed_requests_total", map[string]string{"feed": "linked", "code": "aborted"}, 1},
		{"calfeed_cache_writes_total", map[string]string{"result": "written"}, 1},
		{"calfeed_aggregated_events_total", nil, 5},
		{"calfeed_fetch_duration_seconds", map[string]string{"outcome": "ok"}, 1},
	}
	for _, tt := range tests {
		if got := value(t, reg, tt.name, tt.labels); got != tt.want {
			t.Errorf("%s%v = %v, expected %v", tt.name, tt.labels, got, tt.want)
		}
	}
}

func TestWatchDatabase(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metric.New(reg)
	done := make(chan struct{})
	defer close(done)

	m.WatchDatabase(fakeDB{}, 5*time.Millisecond, done)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if value(t, reg, "calfeed_database_empty_read_microsec", nil) == 250 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("latency was never published")
}
