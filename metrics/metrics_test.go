package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCacheMetrics(t *testing.T) {
	m := NewCacheMetrics("metrics-test")
	m.Hit()
	m.Hit()
	m.Miss()
	m.Eviction()
	m.Expire()
	m.Dropped()

	assert.Equal(t, 2.0, testutil.ToFloat64(CacheHits.WithLabelValues("metrics-test")))
	assert.Equal(t, 1.0, testutil.ToFloat64(CacheMisses.WithLabelValues("metrics-test")))
	assert.Equal(t, 1.0, testutil.ToFloat64(CacheEvictions.WithLabelValues("metrics-test")))
	assert.Equal(t, 1.0, testutil.ToFloat64(CacheExpirations.WithLabelValues("metrics-test")))
	assert.Equal(t, 1.0, testutil.ToFloat64(EventsDropped.WithLabelValues("metrics-test")))
}

func TestRegisterOnce(t *testing.T) {
	r := prometheus.NewRegistry()
	assert.NotPanics(t, func() {
		Register(r)
		Register(r)
	})
}
