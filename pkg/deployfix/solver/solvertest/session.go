// Package solvertest provides an in-memory solver.Session that decides
// checks by enumerating every assignment. It is meant for small
// problems in tests.
package solvertest

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-air/gini/z"

	"github.com/operator-framework/deployfix/pkg/deployfix/solver"
)

// MaxVars bounds the number of free variables a Check enumerates.
const MaxVars = 20

type tracked struct {
	track  z.Lit
	clause []z.Lit
}

// Session records every call it receives. Its Core is the full set of
// tracking assumptions of a refuted check, never a smaller one, so any
// minimization observed by a caller is the caller's own.
type Session struct {
	// Fail, when set, is consulted before every Check with the
	// zero based number of the check. A non-nil error makes the check
	// Unknown.
	Fail func(check int) error

	// Calls lists the operations received, in order: "declare",
	// "assert", "push", "assume", "check", "pop".
	Calls []string
	// MaxDepth is the deepest scope nesting observed.
	MaxDepth int

	vars     map[z.Var]struct{}
	tracks   map[z.Var]struct{}
	formulas []tracked
	scopes   [][]z.Lit
	checks   int
	core     []z.Lit
}

var _ solver.Session = &Session{}

func NewSession() *Session {
	return &Session{
		vars:   make(map[z.Var]struct{}),
		tracks: make(map[z.Var]struct{}),
	}
}

func (s *Session) Declare(m z.Lit) {
	s.Calls = append(s.Calls, "declare")
	s.vars[m.Var()] = struct{}{}
}

func (s *Session) AssertTracked(track z.Lit, clause ...z.Lit) {
	s.Calls = append(s.Calls, "assert")
	s.tracks[track.Var()] = struct{}{}
	for _, m := range clause {
		s.vars[m.Var()] = struct{}{}
	}
	s.formulas = append(s.formulas, tracked{track: track, clause: append([]z.Lit(nil), clause...)})
}

func (s *Session) Push() {
	s.Calls = append(s.Calls, "push")
	s.scopes = append(s.scopes, nil)
	if len(s.scopes) > s.MaxDepth {
		s.MaxDepth = len(s.scopes)
	}
}

func (s *Session) Assume(ms ...z.Lit) {
	s.Calls = append(s.Calls, "assume")
	if len(s.scopes) == 0 {
		panic("assume called outside of a scope")
	}
	s.scopes[len(s.scopes)-1] = append(s.scopes[len(s.scopes)-1], ms...)
}

func (s *Session) Pop() {
	s.Calls = append(s.Calls, "pop")
	if len(s.scopes) == 0 {
		panic("pop called without a matching push")
	}
	s.scopes = s.scopes[:len(s.scopes)-1]
}

// Depth returns the number of open scopes.
func (s *Session) Depth() int {
	return len(s.scopes)
}

// Checks returns the number of checks performed.
func (s *Session) Checks() int {
	return s.checks
}

func (s *Session) Core() []z.Lit {
	return append([]z.Lit(nil), s.core...)
}

func (s *Session) Check(ctx context.Context, assumptions ...z.Lit) (int, error) {
	s.Calls = append(s.Calls, "check")
	n := s.checks
	s.checks++
	s.core = nil

	if err := ctx.Err(); err != nil {
		return solver.Unknown, err
	}
	if s.Fail != nil {
		if err := s.Fail(n); err != nil {
			return solver.Unknown, err
		}
	}

	// Tracking atoms that are not assumed disable their clause.
	enabled := make(map[z.Lit]bool)
	var fixed []z.Lit
	for _, scope := range s.scopes {
		fixed = append(fixed, scope...)
	}
	for _, m := range assumptions {
		if _, ok := s.tracks[m.Var()]; ok && m.IsPos() {
			enabled[m] = true
			continue
		}
		fixed = append(fixed, m)
	}

	var free []z.Var
	for v := range s.vars {
		if _, ok := s.tracks[v]; !ok {
			free = append(free, v)
		}
	}
	sort.Slice(free, func(i, j int) bool { return free[i] < free[j] })
	if len(free) > MaxVars {
		return solver.Unknown, fmt.Errorf("%d variables exceed the enumeration limit of %d", len(free), MaxVars)
	}

	value := make(map[z.Var]bool, len(free))
	holds := func(m z.Lit) bool {
		return value[m.Var()] == m.IsPos()
	}
	for bits := 0; bits < 1<<len(free); bits++ {
		for i, v := range free {
			value[v] = bits&(1<<i) != 0
		}
		if s.satisfies(fixed, enabled, holds) {
			return solver.Satisfiable, nil
		}
	}

	for _, m := range assumptions {
		if enabled[m] {
			s.core = append(s.core, m)
		}
	}
	return solver.Unsatisfiable, nil
}

func (s *Session) satisfies(fixed []z.Lit, enabled map[z.Lit]bool, holds func(z.Lit) bool) bool {
	for _, m := range fixed {
		if !holds(m) {
			return false
		}
	}
	for _, f := range s.formulas {
		if !enabled[f.track] {
			continue
		}
		satisfied := false
		for _, m := range f.clause {
			if holds(m) {
				satisfied = true
				break
			}
		}
		if !satisfied {
			return false
		}
	}
	return true
}
