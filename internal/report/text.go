package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/operator-framework/deployfix/pkg/deployfix"
)

// Printer writes the text rendering of a report, one block per entity.
// Colors follow fatih/color's detection of the terminal unless
// overridden with SetColor.
type Printer struct {
	w        io.Writer
	verdicts map[deployfix.Verdict]*color.Color
	faint    *color.Color
}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{
		w: w,
		verdicts: map[deployfix.Verdict]*color.Color{
			deployfix.Satisfiable:   color.New(color.FgGreen),
			deployfix.Unsatisfiable: color.New(color.FgRed, color.Bold),
			deployfix.Indeterminate: color.New(color.FgYellow),
		},
		faint: color.New(color.Faint),
	}
}

// SetColor forces colored output on or off.
func (p *Printer) SetColor(enabled bool) *Printer {
	for _, c := range append(p.colors(), p.faint) {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p *Printer) colors() []*color.Color {
	return []*color.Color{
		p.verdicts[deployfix.Satisfiable],
		p.verdicts[deployfix.Unsatisfiable],
		p.verdicts[deployfix.Indeterminate],
	}
}

func (p *Printer) Print(r *Report) error {
	for _, result := range r.Results {
		if err := p.result(result); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(p.w, "\n%d entities: %d satisfiable, %d unsatisfiable, %d indeterminate %s\n",
		r.Summary.Entities, r.Summary.Satisfiable, r.Summary.Unsatisfiable, r.Summary.Indeterminate,
		p.faint.Sprintf("(run %s)", r.RunID))
	return err
}

func (p *Printer) result(result deployfix.AnalysisResult) error {
	verdict := string(result.Verdict)
	if c, ok := p.verdicts[result.Verdict]; ok {
		verdict = c.Sprint(verdict)
	}
	if _, err := fmt.Fprintf(p.w, "%s: %s\n", result.Entity, verdict); err != nil {
		return err
	}

	switch result.Verdict {
	case deployfix.Unsatisfiable:
		for _, c := range result.Conflicts {
			if _, err := fmt.Fprintf(p.w, "  - %s %s %s %s\n", c.Source, c.Relation, c.Target, p.faint.Sprintf("(%s, %s)", c.Category, c.Provenance)); err != nil {
				return err
			}
		}
	case deployfix.Indeterminate:
		if _, err := fmt.Fprintf(p.w, "  reason: %s\n", result.Reason); err != nil {
			return err
		}
	}
	return nil
}

// PrintConstraints lists constraints one per line, in order.
func PrintConstraints(w io.Writer, constraints []deployfix.Constraint) error {
	for _, c := range constraints {
		if _, err := fmt.Fprintln(w, c); err != nil {
			return err
		}
	}
	return nil
}
