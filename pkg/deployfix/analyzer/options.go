package analyzer

import (
	"time"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/operator-framework/deployfix/pkg/deployfix"
	"github.com/operator-framework/deployfix/pkg/deployfix/solver"
)

// Recorder receives measurements of an analysis run.
type Recorder interface {
	DocumentProcessed(skipped bool)
	ConstraintExtracted(category deployfix.Category)
	EntityQueried(verdict deployfix.Verdict, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) DocumentProcessed(bool)                         {}
func (nopRecorder) ConstraintExtracted(deployfix.Category)         {}
func (nopRecorder) EntityQueried(deployfix.Verdict, time.Duration) {}

type Option func(a *Analyzer)

func WithLogger(l logr.Logger) Option {
	return func(a *Analyzer) {
		a.log = l
	}
}

// WithLabelKey sets the pod template label that names workloads.
func WithLabelKey(key string) Option {
	return func(a *Analyzer) {
		a.labelKey = key
	}
}

// WithSessionFactory replaces the gini backed session every run
// creates.
func WithSessionFactory(f func() solver.Session) Option {
	return func(a *Analyzer) {
		a.newSession = f
	}
}

func WithQueryTimeout(d time.Duration) Option {
	return func(a *Analyzer) {
		a.queryTimeout = d
	}
}

func WithRecorder(r Recorder) Option {
	return func(a *Analyzer) {
		a.recorder = r
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(a *Analyzer) {
		a.tracer = tp.Tracer(instrumentationName)
	}
}

// WithSearchTracer installs a solver.Tracer on the conflict solver of
// every run.
func WithSearchTracer(t solver.Tracer) Option {
	return func(a *Analyzer) {
		a.searchTracer = t
	}
}

var defaults = []Option{
	func(a *Analyzer) {
		if a.log.GetSink() == nil {
			a.log = logr.Discard()
		}
	},
	func(a *Analyzer) {
		if a.newSession == nil {
			a.newSession = solver.NewGiniSession
		}
	},
	func(a *Analyzer) {
		if a.recorder == nil {
			a.recorder = nopRecorder{}
		}
	},
	func(a *Analyzer) {
		if a.tracer == nil {
			a.tracer = otel.Tracer(instrumentationName)
		}
	},
	func(a *Analyzer) {
		if a.searchTracer == nil {
			a.searchTracer = solver.DefaultTracer{}
		}
	},
}
