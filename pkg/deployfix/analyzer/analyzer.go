package analyzer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/operator-framework/deployfix/pkg/deployfix"
	"github.com/operator-framework/deployfix/pkg/deployfix/encoder"
	"github.com/operator-framework/deployfix/pkg/deployfix/extractor"
	"github.com/operator-framework/deployfix/pkg/deployfix/solver"
)

const instrumentationName = "github.com/operator-framework/deployfix/pkg/deployfix/analyzer"

// Analyzer decides, for every entity a batch of manifests mentions,
// whether it can be deployed alongside the rest, and explains why not.
// Each call to Analyze is an independent run with its own entity
// registry and solver session.
type Analyzer struct {
	labelKey     string
	newSession   func() solver.Session
	queryTimeout time.Duration
	recorder     Recorder
	tracer       trace.Tracer
	searchTracer solver.Tracer
	log          logr.Logger
}

func New(options ...Option) *Analyzer {
	a := &Analyzer{}
	for _, option := range append(options, defaults...) {
		option(a)
	}
	return a
}

// Constraints extracts the constraints of every document, in document
// order. Discarded documents are logged and contribute nothing.
func (a *Analyzer) Constraints(docs []extractor.Document) []deployfix.Constraint {
	constraints, _ := a.extract(docs)
	return constraints
}

// extract returns the constraints of docs and every entity they
// declare, including workloads declaring no constraint at all.
func (a *Analyzer) extract(docs []extractor.Document) ([]deployfix.Constraint, sets.Set[deployfix.Identifier]) {
	e := extractor.New(extractor.WithLabelKey(a.labelKey))
	declared := sets.New[deployfix.Identifier]()

	var constraints []deployfix.Constraint
	for _, doc := range docs {
		cs, err := e.Extract(doc)
		a.recorder.DocumentProcessed(err != nil)
		if err != nil {
			var skip *extractor.SkipError
			if errors.As(err, &skip) {
				a.log.V(1).Info("document skipped", "source", skip.Provenance.String(), "reason", skip.Reason)
			}
			continue
		}
		if id, ok := e.Workload(doc); ok {
			declared.Insert(id)
		}
		for _, c := range cs {
			a.recorder.ConstraintExtracted(c.Category)
		}
		constraints = append(constraints, cs...)
	}
	return constraints, declared
}

// Analyze runs one analysis over docs. The results hold one entry per
// distinct entity, sorted by identifier; targets that no document
// declares are included. An error is only returned when the extracted
// constraints cannot be encoded or the solver cannot be set up; solver
// failures on single entities are reported as indeterminate results.
func (a *Analyzer) Analyze(ctx context.Context, docs []extractor.Document) (results []deployfix.AnalysisResult, err error) {
	ctx, span := a.tracer.Start(ctx, "analyze", trace.WithAttributes(attribute.Int("deployfix.documents", len(docs))))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	constraints, declared := a.extract(docs)
	enc, err := encoder.Encode(constraints)
	if err != nil {
		return nil, fmt.Errorf("encoding constraints: %w", err)
	}
	span.SetAttributes(attribute.Int("deployfix.constraints", len(constraints)))

	cs, err := solver.New(a.newSession(), enc.Universe(),
		solver.WithQueryTimeout(a.queryTimeout),
		solver.WithTracer(a.searchTracer),
		solver.WithLogger(a.log.WithName("solver")),
	)
	if err != nil {
		return nil, err
	}
	if err := cs.Initialize(enc.Formulas()); err != nil {
		return nil, err
	}

	entities := sets.List(declared.Insert(enc.Universe().Identifiers()...))
	span.SetAttributes(attribute.Int("deployfix.entities", len(entities)))

	results = make([]deployfix.AnalysisResult, 0, len(entities))
	counts := map[deployfix.Verdict]int{}
	for _, id := range entities {
		result, err := a.query(ctx, cs, id)
		if err != nil {
			return nil, err
		}
		counts[result.Verdict]++
		results = append(results, result)
	}

	a.log.V(1).Info("analysis complete",
		"documents", len(docs),
		"constraints", len(constraints),
		"entities", len(entities),
		"unsatisfiable", counts[deployfix.Unsatisfiable],
		"indeterminate", counts[deployfix.Indeterminate],
	)
	return results, nil
}

func (a *Analyzer) query(ctx context.Context, cs *solver.ConflictSolver, id deployfix.Identifier) (deployfix.AnalysisResult, error) {
	ctx, span := a.tracer.Start(ctx, "query", trace.WithAttributes(attribute.String("deployfix.entity", id.String())))
	defer span.End()

	start := time.Now()
	result, err := cs.Query(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}
	a.recorder.EntityQueried(result.Verdict, time.Since(start))

	span.SetAttributes(
		attribute.String("deployfix.verdict", string(result.Verdict)),
		attribute.Int("deployfix.conflicts", len(result.Conflicts)),
	)
	if result.Verdict == deployfix.Indeterminate {
		span.SetStatus(codes.Error, result.Reason)
	}
	return result, nil
}
