// Package metrics exposes Prometheus counters for the user state pipeline.
package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what behaviors and the error handler report to.
type Recorder interface {
	RecordSnapshot()
	RecordUpdate(path string)
	RecordSwallowedError(op string)
}

type Collector struct {
	snapshots prometheus.Counter
	updates   *prometheus.CounterVec
	swallowed *prometheus.CounterVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		snapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "questlog_user_snapshots_total",
			Help: "User snapshots delivered to the UI.",
		}),
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "questlog_user_updates_total",
			Help: "Field updates requested, by top-level path segment.",
		}, []string{"field"}),
		swallowed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "questlog_swallowed_errors_total",
			Help: "Errors absorbed without reaching the UI, by operation.",
		}, []string{"op"}),
	}

	reg.MustRegister(c.snapshots, c.updates, c.swallowed)

	return c
}

func (c *Collector) RecordSnapshot() {
	c.snapshots.Inc()
}

func (c *Collector) RecordUpdate(path string) {
	c.updates.WithLabelValues(topLevel(path)).Inc()
}

func (c *Collector) RecordSwallowedError(op string) {
	c.swallowed.WithLabelValues(op).Inc()
}

// Handler serves /metrics for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}

type nop struct{}

// Nop discards everything.
var Nop Recorder = nop{}

func (nop) RecordSnapshot()             {}
func (nop) RecordUpdate(string)         {}
func (nop) RecordSwallowedError(string) {}

// topLevel keeps label cardinality bounded: "stats.buffs.str" -> "stats".
func topLevel(path string) string {
	field, _, _ := strings.Cut(path, ".")
	return field
}
