package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// System metrics
	GoroutinesCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "app_goroutines_count",
		Help: "The current number of goroutines",
	})

	MemoryAllocBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "app_memory_alloc_bytes",
		Help: "Current memory allocation in bytes",
	})

	HeapObjectsCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "app_heap_objects_count",
		Help: "Current number of allocated heap objects",
	})

	GCPauseNanosTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "app_gc_pause_nanos_total",
		Help: "Total time spent in GC pause in nanoseconds",
	})

	// Settlement metrics, labelled by side (buy/sell) and outcome
	// (settled or the rejection reason).
	SettlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "app_settlements_total",
		Help: "Total number of trade requests by side and outcome",
	}, []string{"side", "outcome"})

	SettlementErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "app_settlement_errors_total",
		Help: "Total number of trade requests that failed on persistence",
	}, []string{"side"})

	SettlementDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "app_settlement_duration_seconds",
		Help:    "Duration of trade requests, quote lookup included",
		Buckets: prometheus.DefBuckets,
	}, []string{"side"})

	AccountLockWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "app_account_lock_wait_seconds",
		Help:    "Time spent waiting for the per-account settlement lock",
		Buckets: prometheus.DefBuckets,
	})

	// Quote metrics
	QuoteLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "app_quote_lookups_total",
		Help: "Total number of quote lookups by provider",
	}, []string{"provider"})

	QuoteFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "app_quote_failures_total",
		Help: "Total number of failed quote lookups by provider",
	}, []string{"provider"})

	QuoteLookupDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "app_quote_lookup_duration_seconds",
		Help:    "Duration of quote lookups by provider",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})

	QuoteCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "app_quote_cache_hits_total",
		Help: "Total number of quotes served from the read-side cache",
	})

	// Event metrics
	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "app_events_published_total",
		Help: "Total number of settled trade events published by sink",
	}, []string{"sink"})

	EventsPublishErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "app_events_publish_errors_total",
		Help: "Total number of settled trade events that could not be published by sink",
	}, []string{"sink"})

	EventsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "app_events_dropped_total",
		Help: "Total number of settled trade events dropped because the channel was full",
	})

	EventsChanSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "app_events_channel_size",
		Help: "Current size of the settled trade events channel",
	})

	EventsChanCapacity = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "app_events_channel_capacity",
		Help: "Capacity of the settled trade events channel",
	})

	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "app_http_requests_total",
		Help: "Total number of HTTP requests by route and status",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "app_http_request_duration_seconds",
		Help:    "Duration of HTTP requests by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)
