package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "isomero"

var (
	once sync.Once

	snapshotReloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_reloads_total",
			Help:      "Count of schedule snapshot loads by source and result.",
		},
		[]string{"source", "result"},
	)

	snapshotLoadedAt = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_loaded_timestamp_seconds",
			Help:      "Unix time of the snapshot currently served.",
		},
	)

	snapshotSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_entries",
			Help:      "Number of entries in the served snapshot by kind.",
		},
		[]string{"kind"},
	)

	failovers = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_failovers_total",
			Help:      "Count of loads served by the fallback source.",
		},
	)

	locationOpen = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "location_open",
			Help:      "1 when the location is open according to the last live status computation.",
		},
		[]string{"location"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Count of API requests by handler.",
		},
		[]string{"handler"},
	)

	rateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_rate_limited_total",
			Help:      "Count of API requests rejected by the rate limiter.",
		},
	)

	calendarCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calendar_cache_total",
			Help:      "Calendar cache lookups by result, plus failed writes.",
		},
		[]string{"result"},
	)

	botCommands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bot_commands_total",
			Help:      "Count of Telegram commands handled.",
		},
		[]string{"command"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			snapshotReloads,
			snapshotLoadedAt,
			snapshotSize,
			failovers,
			locationOpen,
			httpRequests,
			rateLimited,
			calendarCache,
			botCommands,
		)
	})
}

func IncSnapshotReload(source, result string) {
	snapshotReloads.WithLabelValues(source, result).Inc()
}

// SetSnapshot records the served snapshot's load time and size.
func SetSnapshot(loadedAtUnix float64, schedules, exceptions int) {
	snapshotLoadedAt.Set(loadedAtUnix)
	snapshotSize.WithLabelValues("schedules").Set(float64(schedules))
	snapshotSize.WithLabelValues("exceptions").Set(float64(exceptions))
}

func IncFailover() {
	failovers.Inc()
}

func SetLocationOpen(location string, open bool) {
	v := 0.0
	if open {
		v = 1
	}
	locationOpen.WithLabelValues(location).Set(v)
}

func IncHTTP(handler string) {
	httpRequests.WithLabelValues(handler).Inc()
}

func IncRateLimited() {
	rateLimited.Inc()
}

func IncCalendarCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	calendarCache.WithLabelValues(result).Inc()
}

// IncCalendarCacheError counts cache writes that failed; the grid is still served.
func IncCalendarCacheError() {
	calendarCache.WithLabelValues("error").Inc()
}

func IncBotCommand(command string) {
	botCommands.WithLabelValues(command).Inc()
}
