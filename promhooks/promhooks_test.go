package promhooks

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountsEvents(t *testing.T) {
	h, err := New(Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	h.Hit("a")
	h.Hit("b")
	h.Miss("a")
	h.Bypass("get", "a", errors.New("down"))
	h.SelfHeal("a", "corrupt")
	h.DetachedFailed("set", "a", errors.New("down"))
	h.DetachedFailed("set", "b", errors.New("down"))
	h.DetachedDropped("del", "a")

	if got := testutil.ToFloat64(h.hits); got != 2 {
		t.Fatalf("hits = %v", got)
	}
	if got := testutil.ToFloat64(h.misses); got != 1 {
		t.Fatalf("misses = %v", got)
	}
	if got := testutil.ToFloat64(h.failed.WithLabelValues("set")); got != 2 {
		t.Fatalf("failed{set} = %v", got)
	}
	if got := testutil.ToFloat64(h.selfHeals.WithLabelValues("corrupt")); got != 1 {
		t.Fatalf("self_heal{corrupt} = %v", got)
	}

	expected := `
# HELP asidecache_detached_dropped_total Background writes not queued
# TYPE asidecache_detached_dropped_total counter
asidecache_detached_dropped_total{op="del"} 1
`
	if err := testutil.GatherAndCompare(h.Registry(), strings.NewReader(expected), "asidecache_detached_dropped_total"); err != nil {
		t.Fatalf("gather: %v", err)
	}
}

func TestExternalRegistererAndDuplicate(t *testing.T) {
	reg := prometheus.NewRegistry()
	h, err := New(Options{Namespace: "svc", Registerer: reg})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if h.Registry() != nil {
		t.Fatalf("private registry created despite Registerer")
	}
	h.Miss("k")
	if n := testutil.CollectAndCount(h.misses, "svc_misses_total"); n != 1 {
		t.Fatalf("collected %d series", n)
	}

	if _, err := New(Options{Namespace: "svc", Registerer: reg}); err == nil {
		t.Fatalf("duplicate registration should fail")
	}
}
