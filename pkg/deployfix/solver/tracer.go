package solver

import (
	"fmt"
	"io"

	"github.com/operator-framework/deployfix/pkg/deployfix"
)

// SearchPosition is the state of a query at a refuted check: the
// hypothesis being tested and the constraints refuting it.
type SearchPosition interface {
	Hypothesis() deployfix.Identifier
	Conflicts() []deployfix.Constraint
}

type Tracer interface {
	Trace(p SearchPosition)
}

type DefaultTracer struct{}

func (DefaultTracer) Trace(_ SearchPosition) {
}

type LoggingTracer struct {
	Writer io.Writer
}

func (t LoggingTracer) Trace(p SearchPosition) {
	fmt.Fprintf(t.Writer, "---\nHypothesis:\n- %s\n", p.Hypothesis())
	fmt.Fprintf(t.Writer, "Conflicts:\n")
	for _, c := range p.Conflicts() {
		fmt.Fprintf(t.Writer, "- %s\n", c)
	}
}

type position struct {
	hypothesis deployfix.Identifier
	conflicts  []deployfix.Constraint
}

func (p position) Hypothesis() deployfix.Identifier {
	return p.hypothesis
}

func (p position) Conflicts() []deployfix.Constraint {
	return p.conflicts
}
