package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fortdoc_parse_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"form"})

	FilesParsedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fortdoc_files_parsed_total",
		Help: "Total number of source files parsed, by outcome.",
	}, []string{"status"})

	Entities = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fortdoc_entities",
		Help: "Number of entities of each kind in the last build.",
	}, []string{"kind"})

	CorrelationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fortdoc_correlation_seconds",
		Help:    "Time spent in each correlation phase.",
		Buckets: prometheus.DefBuckets,
	}, []string{"phase"})

	WarningsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fortdoc_warnings_total",
		Help: "Total number of non-fatal problems reported, by error code.",
	}, []string{"code"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fortdoc_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	IOSessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fortdoc_io_sessions_total",
		Help: "Total number of file I/O sessions found in procedures, closed or left open.",
	}, []string{"state"})
)
