package solver

import (
	"context"
	"errors"

	"github.com/go-air/gini/z"
)

// Check results, shared with gini.
const (
	Satisfiable   = 1
	Unsatisfiable = -1
	Unknown       = 0
)

var ErrIncomplete = errors.New("cancelled before a solution could be found")

// Session is the incremental satisfiability capability a ConflictSolver
// drives. Implementations are not safe for concurrent use.
type Session interface {
	// Declare makes the variable of m known to the session.
	Declare(m z.Lit)
	// AssertTracked permanently adds the clause ¬track ∨ clause, so
	// the clause only takes part in checks that assume track.
	AssertTracked(track z.Lit, clause ...z.Lit)
	// Push opens a nested scope.
	Push()
	// Assume adds literals that hold until the enclosing scope is
	// popped. Assume panics if no scope is open.
	Assume(ms ...z.Lit)
	// Check decides the permanent clauses under the scoped literals
	// and the given assumptions. It returns Satisfiable,
	// Unsatisfiable, or Unknown together with the reason the check
	// could not be decided.
	Check(ctx context.Context, assumptions ...z.Lit) (int, error)
	// Core returns the assumptions of the last Unsatisfiable Check
	// that take part in the refutation.
	Core() []z.Lit
	// Pop discards the innermost scope and everything assumed in it.
	Pop()
}
