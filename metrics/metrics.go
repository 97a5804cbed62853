package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	Source = "source"
	Result = "result"
)

var allMetrics = newMetrics()

type metrics struct {
	IngestedRecordsTotal *prometheus.CounterVec
	QueryCountTotal      *prometheus.CounterVec
	QueryDurationSeconds prometheus.Histogram
	PurgedRecordsTotal   prometheus.Counter
}

func newMetrics() *metrics {
	ingested := promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logscope_ingested_records_total",
			Help: "Counts the log records queued for storage.",
		},
		[]string{Source},
	)
	queries := promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logscope_query_count_total",
			Help: "Counts the log searches.",
		},
		[]string{Result},
	)
	queryDuration := promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "logscope_query_duration_seconds",
			Help: "Tracks the log search latency.",
		},
	)
	purged := promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "logscope_purged_records_total",
			Help: "Counts the log records removed by retention.",
		},
	)
	return &metrics{
		IngestedRecordsTotal: ingested,
		QueryCountTotal:      queries,
		QueryDurationSeconds: queryDuration,
		PurgedRecordsTotal:   purged,
	}
}

func RecordIngested(source string, n int) {
	allMetrics.IngestedRecordsTotal.With(prometheus.Labels{Source: source}).Add(float64(n))
}

func RecordQuery(started time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	allMetrics.QueryCountTotal.With(prometheus.Labels{Result: result}).Inc()
	allMetrics.QueryDurationSeconds.Observe(time.Since(started).Seconds())
}

func RecordPurged(n int64) {
	allMetrics.PurgedRecordsTotal.Add(float64(n))
}

func Handler() http.Handler {
	return promhttp.Handler()
}
