// Package metrics collects prometheus measurements of analysis runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/operator-framework/deployfix/pkg/deployfix"
)

const namespace = "deployfix"

// Recorder holds the collectors of one process. It is registered on a
// private registry so that it never clashes with the global one.
type Recorder struct {
	registry *prometheus.Registry

	documents   *prometheus.CounterVec
	constraints *prometheus.CounterVec
	queries     *prometheus.CounterVec
	duration    prometheus.Histogram
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),

		documents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "documents_total",
				Help:      "Documents processed, by outcome",
			},
			[]string{"outcome"},
		),
		constraints: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "constraints_total",
				Help:      "Constraints extracted, by category",
			},
			[]string{"category"},
		),
		queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_total",
				Help:      "Entities queried, by verdict",
			},
			[]string{"verdict"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "query_duration_seconds",
				Help:      "Duration of a single entity query, minimization included",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
		),
	}
	r.registry.MustRegister(r.documents, r.constraints, r.queries, r.duration)
	return r
}

func (r *Recorder) DocumentProcessed(skipped bool) {
	outcome := "processed"
	if skipped {
		outcome = "skipped"
	}
	r.documents.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ConstraintExtracted(category deployfix.Category) {
	r.constraints.WithLabelValues(string(category)).Inc()
}

func (r *Recorder) EntityQueried(verdict deployfix.Verdict, elapsed time.Duration) {
	r.queries.WithLabelValues(string(verdict)).Inc()
	r.duration.Observe(elapsed.Seconds())
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteToTextfile dumps the current values in the text exposition
// format, for consumption by the node exporter's textfile collector.
func (r *Recorder) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
