package encoder

import (
	"fmt"

	"github.com/go-air/gini/z"

	"github.com/operator-framework/deployfix/pkg/deployfix"
)

// ModelingError reports a Constraint whose relation has no logical
// translation. Extractors never produce one, so it indicates a bug.
type ModelingError struct {
	Index      int
	Constraint deployfix.Constraint
}

func (e *ModelingError) Error() string {
	return fmt.Sprintf("constraint %d (%s): unknown relation %q", e.Index, e.Constraint, e.Constraint.Relation)
}

// TrackedFormula is the clause derived from one Constraint, guarded by
// a tracking atom unique to it.
type TrackedFormula struct {
	// ID is the position of Constraint in the encoded input.
	ID         int
	Track      z.Lit
	Clause     []z.Lit
	Constraint deployfix.Constraint
}

// Encoding is the propositional form of an ordered Constraint list.
type Encoding struct {
	universe *Registry
	formulas []TrackedFormula
	byTrack  map[z.Lit]int
}

// Encode translates constraints, in order, into tracked formulas:
//
//	requires(A, B)  is  ¬A ∨ B
//	excludes(A, B)  is  ¬A ∨ ¬B
//
// Each constraint allocates its source, its target and then its
// tracking atom, so variable numbering depends only on input order.
func Encode(constraints []deployfix.Constraint) (*Encoding, error) {
	e := &Encoding{
		universe: NewRegistry(),
		formulas: make([]TrackedFormula, 0, len(constraints)),
		byTrack:  make(map[z.Lit]int, len(constraints)),
	}

	for i, constraint := range constraints {
		a := e.universe.LitOf(constraint.Source)
		b := e.universe.LitOf(constraint.Target)

		var clause []z.Lit
		switch constraint.Relation {
		case deployfix.Requires:
			clause = []z.Lit{a.Not(), b}
		case deployfix.Excludes:
			clause = []z.Lit{a.Not(), b.Not()}
		default:
			return nil, &ModelingError{Index: i, Constraint: constraint}
		}

		track := e.universe.Fresh()
		e.byTrack[track] = len(e.formulas)
		e.formulas = append(e.formulas, TrackedFormula{
			ID:         i,
			Track:      track,
			Clause:     clause,
			Constraint: constraint,
		})
	}

	return e, nil
}

// Universe returns the entity variable registry.
func (e *Encoding) Universe() *Registry {
	return e.universe
}

// Formulas returns the tracked formulas in input order.
func (e *Encoding) Formulas() []TrackedFormula {
	return e.formulas
}

// FormulaOf returns the formula guarded by the tracking atom m.
func (e *Encoding) FormulaOf(m z.Lit) (TrackedFormula, bool) {
	i, ok := e.byTrack[m]
	if !ok {
		return TrackedFormula{}, false
	}
	return e.formulas[i], true
}

// ConstraintOf returns the constraint tracked by m.
func (e *Encoding) ConstraintOf(m z.Lit) (deployfix.Constraint, bool) {
	f, ok := e.FormulaOf(m)
	return f.Constraint, ok
}

// Tracks returns the tracking atoms in input order.
func (e *Encoding) Tracks() []z.Lit {
	tracks := make([]z.Lit, len(e.formulas))
	for i, f := range e.formulas {
		tracks[i] = f.Track
	}
	return tracks
}
