package metric

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// code label of feeds cut off mid-stream
const AbortedCode = "aborted"

// Collectors of the service, registered on one registry so tests can use a
// fresh one each.
type Metrics struct {
	FetchDuration     *prometheus.HistogramVec
	FeedRequests      *prometheus.CounterVec
	CacheWrites       *prometheus.CounterVec
	AggregatedEvents  prometheus.Counter
	DatabaseEmptyRead prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "calfeed_fetch_duration_seconds",
			Help:    "Duration of upstream fetches until the body starts streaming",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),
		FeedRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "calfeed_feed_requests_total",
			Help: "Feed requests by feed type and status code",
		}, []string{"feed", "code"}),
		CacheWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "calfeed_cache_writes_total",
			Help: "Feed cache writes by result (written or unchanged)",
		}, []string{"result"}),
		AggregatedEvents: factory.NewCounter(prometheus.CounterOpts{
			Name: "calfeed_aggregated_events_total",
			Help: "Events streamed into aggregated feeds",
		}),
		DatabaseEmptyRead: factory.NewGauge(prometheus.GaugeOpts{
			Name: "calfeed_database_empty_read_microsec",
			Help: "The latency of an empty database read in microseconds",
		}),
	}
}

// #region hooks

func (m *Metrics) ObserveFetch(outcome string, elapsed time.Duration) {
	m.FetchDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) CountFeedRequest(feed string, code int) {
	m.FeedRequests.WithLabelValues(feed, codeLabel(code)).Inc()
}

// Feed that failed after streaming started; the client got a 200 status line
// and a cut connection.
func (m *Metrics) CountAbortedFeed(feed string) {
	m.FeedRequests.WithLabelValues(feed, AbortedCode).Inc()
}

func (m *Metrics) CountCacheWrite(result string) {
	m.CacheWrites.WithLabelValues(result).Inc()
}

func (m *Metrics) CountAggregatedEvents(n int) {
	m.AggregatedEvents.Add(float64(n))
}

// #endregion

func codeLabel(code int) string {
	if code < 100 || code > 599 {
		return "unknown"
	}
	return strconv.Itoa(code)
}
