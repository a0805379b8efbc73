package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Generations counts generation cycles by outcome: "generated" or "fallback"
	Generations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsbrief_generations_total",
		Help: "Total number of generation cycles by outcome",
	}, []string{"outcome"})

	// ParseStrategies counts which parser strategy recovered the records
	ParseStrategies = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsbrief_parse_strategy_total",
		Help: "Parser strategy that recovered records, or none",
	}, []string{"strategy"})

	// CacheLookups counts cache reads by tier ("memory", "durable") and result ("hit", "miss", "stale", "error")
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsbrief_cache_lookups_total",
		Help: "Cache lookups by tier and result",
	}, []string{"tier", "result"})

	// CacheEvictions counts capacity evictions from the in-memory tier
	CacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsbrief_cache_evictions_total",
		Help: "Entries evicted from the in-memory tier at capacity",
	})

	// GatewayLatency observes generation gateway call duration
	GatewayLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "newsbrief_gateway_duration_seconds",
		Help:    "Generation gateway latency in seconds",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120}, // long reports take a while
	}, []string{"provider", "status"})

	// RelatedLookupFailures counts anchors whose related-item lookup failed
	RelatedLookupFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsbrief_related_lookup_failures_total",
		Help: "Related-item lookups that returned no results because of an error",
	})
)

// Handler exposes the default registry for scraping
func Handler() http.Handler {
	return promhttp.Handler()
}
