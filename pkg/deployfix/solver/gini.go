package solver

import (
	"context"
	"time"

	"github.com/go-air/gini"
	"github.com/go-air/gini/z"
)

// giniSession implements Session on top of a single gini instance.
// Scoped assumptions are gini tests: each Assume is tested so later
// solves keep it, and Pop untests everything its scope tested.
type giniSession struct {
	g      *gini.Gini
	scopes []scope
	buffer []z.Lit
	core   []z.Lit
}

type scope struct {
	tests  int
	result int
}

var _ Session = &giniSession{}

func NewGiniSession() Session {
	return &giniSession{g: gini.New()}
}

// Declare is a no-op: gini grows its variable space as clauses
// mentioning a variable are added.
func (s *giniSession) Declare(_ z.Lit) {}

func (s *giniSession) AssertTracked(track z.Lit, clause ...z.Lit) {
	s.g.Add(track.Not())
	for _, m := range clause {
		s.g.Add(m)
	}
	s.g.Add(z.LitNull)
}

func (s *giniSession) Push() {
	result := Unknown
	if len(s.scopes) > 0 {
		result = s.scopes[len(s.scopes)-1].result
	}
	s.scopes = append(s.scopes, scope{result: result})
}

func (s *giniSession) Assume(ms ...z.Lit) {
	if len(s.scopes) == 0 {
		panic("assume called outside of a scope")
	}
	current := &s.scopes[len(s.scopes)-1]
	if current.result == Unsatisfiable {
		// gini must not be tested again once a test failed.
		return
	}
	s.g.Assume(ms...)
	current.result, s.buffer = s.g.Test(s.buffer)
	current.tests++
}

func (s *giniSession) Check(ctx context.Context, assumptions ...z.Lit) (int, error) {
	s.core = s.core[:0]
	if err := ctx.Err(); err != nil {
		return Unknown, err
	}
	if len(s.scopes) > 0 && s.scopes[len(s.scopes)-1].result == Unsatisfiable {
		s.core = s.g.Why(s.core)
		return Unsatisfiable, nil
	}

	s.g.Assume(assumptions...)
	solve := s.g.GoSolve()
	deadline, bounded := ctx.Deadline()
	var result int
	if bounded {
		result = solve.Try(time.Until(deadline))
	} else {
		result = solve.Wait()
	}

	switch result {
	case Satisfiable:
		return Satisfiable, nil
	case Unsatisfiable:
		s.core = s.g.Why(s.core)
		return Unsatisfiable, nil
	}
	if err := ctx.Err(); err != nil {
		return Unknown, err
	}
	// Try may give up before the context's own timer has fired.
	if bounded && !time.Now().Before(deadline) {
		return Unknown, context.DeadlineExceeded
	}
	return Unknown, ErrIncomplete
}

func (s *giniSession) Core() []z.Lit {
	core := make([]z.Lit, len(s.core))
	copy(core, s.core)
	return core
}

func (s *giniSession) Pop() {
	if len(s.scopes) == 0 {
		panic("pop called without a matching push")
	}
	current := s.scopes[len(s.scopes)-1]
	s.scopes = s.scopes[:len(s.scopes)-1]
	for i := 0; i < current.tests; i++ {
		s.g.Untest()
	}
}

// depth returns the number of open scopes.
func (s *giniSession) depth() int {
	return len(s.scopes)
}
