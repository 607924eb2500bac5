// Package metrics defines the Prometheus instrumentation surfaced by the
// pipeline runtime and exposed over HTTP by the serve-metrics command.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collector groups every metric the Runtime emits.
type Collector struct {
	ItemsTotal     *prometheus.CounterVec
	StageDuration  *prometheus.HistogramVec
}

// New registers and returns a Collector against reg.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		ItemsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "discoursekg",
			Name:      "stage_items_total",
			Help:      "Count of per-item stage invocations by stage and result.",
		}, []string{"stage", "result"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "discoursekg",
			Name:      "stage_duration_seconds",
			Help:      "Duration of per-item stage invocations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
	}
	reg.MustRegister(c.ItemsTotal, c.StageDuration)
	return c
}
