// Package promhooks counts cache events with Prometheus.
//
// Keys never become label values; only operation names and self-heal
// reasons do, so cardinality stays fixed.
package promhooks

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/asidecache"
)

type Options struct {
	Namespace string // metric namespace; "" => "asidecache"
	// Registerer receives the collectors. nil => a private registry,
	// available from Registry.
	Registerer prometheus.Registerer
}

type Hooks struct {
	registry *prometheus.Registry

	hits      prometheus.Counter
	misses    prometheus.Counter
	bypasses  *prometheus.CounterVec
	selfHeals *prometheus.CounterVec
	failed    *prometheus.CounterVec
	dropped   *prometheus.CounterVec
}

var _ asidecache.Hooks = (*Hooks)(nil)

func New(opts Options) (*Hooks, error) {
	ns := opts.Namespace
	if ns == "" {
		ns = "asidecache"
	}

	h := &Hooks{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "hits_total",
			Help:      "Get calls answered from the cache",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "misses_total",
			Help:      "Get calls that found no entry",
		}),
		bypasses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "bypass_total",
			Help:      "Calls run directly because a backend read failed",
		}, []string{"op"}),
		selfHeals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "self_heal_total",
			Help:      "Unreadable entries deleted on read",
		}, []string{"reason"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "detached_failures_total",
			Help:      "Background writes that failed",
		}, []string{"op"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "detached_dropped_total",
			Help:      "Background writes not queued",
		}, []string{"op"}),
	}

	reg := opts.Registerer
	if reg == nil {
		h.registry = prometheus.NewRegistry()
		reg = h.registry
	}
	for _, c := range []prometheus.Collector{h.hits, h.misses, h.bypasses, h.selfHeals, h.failed, h.dropped} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Registry returns the private registry, or nil when Options.Registerer was set.
func (h *Hooks) Registry() *prometheus.Registry { return h.registry }

func (h *Hooks) Hit(string)                           { h.hits.Inc() }
func (h *Hooks) Miss(string)                          { h.misses.Inc() }
func (h *Hooks) Bypass(op, _ string, _ error)         { h.bypasses.WithLabelValues(op).Inc() }
func (h *Hooks) SelfHeal(_, reason string)            { h.selfHeals.WithLabelValues(reason).Inc() }
func (h *Hooks) DetachedFailed(op, _ string, _ error) { h.failed.WithLabelValues(op).Inc() }
func (h *Hooks) DetachedDropped(op, _ string)         { h.dropped.WithLabelValues(op).Inc() }
