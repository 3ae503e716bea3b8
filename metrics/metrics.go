package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/krisalay/sharecache/types"
)

const (
	namespace = "sharecache"

	cacheLabelName  = "cache"
	statusLabelName = "status"
)

var (
	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Number of lookups that returned a live entry",
		}, []string{cacheLabelName})

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Number of lookups that found nothing",
		}, []string{cacheLabelName})

	CacheEvictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Number of entries removed because the cache was over its cap",
		}, []string{cacheLabelName})

	CacheExpirations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "expirations_total",
			Help:      "Number of entries removed because they passed their expiry",
		}, []string{cacheLabelName})

	EventsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "dropped_total",
			Help:      "Number of mutation events dropped because a subscriber buffer was full",
		}, []string{cacheLabelName})

	Subscribers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "subscribers",
			Help:      "Number of attached mutation event subscribers",
		}, []string{cacheLabelName})

	JobResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "results_total",
			Help:      "Number of terminal job results by status",
		}, []string{statusLabelName})

	Sessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "sessions",
			Help:      "Number of open session result channels",
		})
)

var registerOnce sync.Once

// Register registers every sharecache collector once.
func Register(r prometheus.Registerer) {
	registerOnce.Do(func() {
		r.MustRegister(CacheHits)
		r.MustRegister(CacheMisses)
		r.MustRegister(CacheEvictions)
		r.MustRegister(CacheExpirations)
		r.MustRegister(EventsDropped)
		r.MustRegister(Subscribers)
		r.MustRegister(JobResults)
		r.MustRegister(Sessions)
	})
}

// CacheMetrics reports the lifecycle of one named cache to prometheus.
type CacheMetrics struct {
	hits, misses, evictions, expirations, dropped prometheus.Counter
}

var _ types.Metrics = (*CacheMetrics)(nil)

func NewCacheMetrics(cache string) *CacheMetrics {
	return &CacheMetrics{
		hits:        CacheHits.WithLabelValues(cache),
		misses:      CacheMisses.WithLabelValues(cache),
		evictions:   CacheEvictions.WithLabelValues(cache),
		expirations: CacheExpirations.WithLabelValues(cache),
		dropped:     EventsDropped.WithLabelValues(cache),
	}
}

func (m *CacheMetrics) Hit()      { m.hits.Inc() }
func (m *CacheMetrics) Miss()     { m.misses.Inc() }
func (m *CacheMetrics) Eviction() { m.evictions.Inc() }
func (m *CacheMetrics) Expire()   { m.expirations.Inc() }
func (m *CacheMetrics) Dropped()  { m.dropped.Inc() }
