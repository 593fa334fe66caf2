package prom

import (
	"testing"

	"github.com/IvanBrykalov/cachekit/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestAdapter_Counters(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	a := New(reg, "cachekit", "test", nil)

	a.Hit()
	a.Hit()
	a.Miss()
	a.Evict(metrics.EvictPolicy)
	a.Evict(metrics.EvictTTL)
	a.Evict(metrics.EvictTTL)
	a.Size(7)

	if got := testutil.ToFloat64(a.hits); got != 2 {
		t.Fatalf("hits: want 2, got %v", got)
	}
	if got := testutil.ToFloat64(a.misses); got != 1 {
		t.Fatalf("misses: want 1, got %v", got)
	}
	if got := testutil.ToFloat64(a.evicts.WithLabelValues("ttl")); got != 2 {
		t.Fatalf("ttl evictions: want 2, got %v", got)
	}
	if got := testutil.ToFloat64(a.evicts.WithLabelValues("policy")); got != 1 {
		t.Fatalf("policy evictions: want 1, got %v", got)
	}
	if got := testutil.ToFloat64(a.entries); got != 7 {
		t.Fatalf("entries: want 7, got %v", got)
	}
}
