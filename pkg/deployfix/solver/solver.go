package solver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-air/gini/z"
	"github.com/go-logr/logr"

	"github.com/operator-framework/deployfix/pkg/deployfix"
	"github.com/operator-framework/deployfix/pkg/deployfix/encoder"
)

var (
	ErrNotInitialized     = errors.New("conflict solver queried before initialization")
	ErrAlreadyInitialized = errors.New("conflict solver already initialized")
)

// ConflictSolver answers, for one entity at a time, whether the entity
// can be deployed under every tracked formula, and if not which
// formulas are to blame. It owns exactly one Session.
type ConflictSolver struct {
	mu          sync.Mutex
	session     Session
	universe    *encoder.Registry
	formulas    []encoder.TrackedFormula
	index       map[z.Lit]int
	tracks      []z.Lit
	initialized bool

	timeout time.Duration
	tracer  Tracer
	log     logr.Logger
}

type Option func(s *ConflictSolver) error

// WithQueryTimeout bounds each Query. Queries running out of time are
// reported as indeterminate.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *ConflictSolver) error {
		if d < 0 {
			return fmt.Errorf("negative query timeout %s", d)
		}
		s.timeout = d
		return nil
	}
}

func WithTracer(t Tracer) Option {
	return func(s *ConflictSolver) error {
		s.tracer = t
		return nil
	}
}

func WithLogger(l logr.Logger) Option {
	return func(s *ConflictSolver) error {
		s.log = l
		return nil
	}
}

var defaults = []Option{
	func(s *ConflictSolver) error {
		if s.tracer == nil {
			s.tracer = DefaultTracer{}
		}
		return nil
	},
	func(s *ConflictSolver) error {
		if s.log.GetSink() == nil {
			s.log = logr.Discard()
		}
		return nil
	},
}

// New returns a ConflictSolver deciding queries about the entities of
// universe with session.
func New(session Session, universe *encoder.Registry, options ...Option) (*ConflictSolver, error) {
	if session == nil {
		return nil, errors.New("no session provided")
	}
	if universe == nil {
		return nil, errors.New("no entity registry provided")
	}
	s := ConflictSolver{
		session:  session,
		universe: universe,
	}
	for _, option := range append(options, defaults...) {
		if err := option(&s); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

// Initialize asserts every formula permanently, guarded by its
// tracking atom. It may only be called once.
func (s *ConflictSolver) Initialize(formulas []encoder.TrackedFormula) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return ErrAlreadyInitialized
	}

	index := make(map[z.Lit]int, len(formulas))
	tracks := make([]z.Lit, len(formulas))
	for i, f := range formulas {
		if _, ok := index[f.Track]; ok {
			return fmt.Errorf("tracking atom %s shared by more than one formula", f.Track)
		}
		index[f.Track] = i
		tracks[i] = f.Track
	}

	for _, m := range s.universe.Lits(nil) {
		s.session.Declare(m)
	}
	for _, f := range formulas {
		s.session.Declare(f.Track)
		s.session.AssertTracked(f.Track, f.Clause...)
	}

	s.formulas = formulas
	s.index = index
	s.tracks = tracks
	s.initialized = true
	return nil
}

// Query tests whether id can be deployed. The hypothesis that id is
// deployed lives in a scope of its own which is closed before Query
// returns, whatever the outcome. When the hypothesis is refuted, the
// result carries a minimal set of conflicting constraints: dropping
// any one of them makes the hypothesis satisfiable again.
//
// Solver failures do not produce an error: they are reported as an
// indeterminate result. The error is reserved for misuse.
func (s *ConflictSolver) Query(ctx context.Context, id deployfix.Identifier) (deployfix.AnalysisResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return deployfix.AnalysisResult{}, ErrNotInitialized
	}

	result := deployfix.AnalysisResult{Entity: id, Verdict: deployfix.Satisfiable}
	hypothesis, ok := s.universe.Lookup(id)
	if !ok {
		// No formula mentions id.
		return result, nil
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.session.Push()
	defer s.session.Pop()
	s.session.Assume(hypothesis)

	outcome, err := s.session.Check(ctx, s.tracks...)
	switch outcome {
	case Satisfiable:
		s.log.V(2).Info("hypothesis satisfiable", "entity", id)
		return result, nil
	case Unsatisfiable:
		core := s.coreOf(s.session.Core())
		if len(core) == 0 {
			core = s.all()
		}
		s.tracer.Trace(position{hypothesis: id, conflicts: s.constraintsOf(core)})

		core, err = s.minimize(ctx, id, core)
		if err != nil {
			return indeterminate(id, err), nil
		}
		result.Verdict = deployfix.Unsatisfiable
		result.Conflicts = s.constraintsOf(core)
		s.log.V(1).Info("hypothesis refuted", "entity", id, "conflicts", len(core))
		return result, nil
	}

	if err == nil {
		err = ErrIncomplete
	}
	return indeterminate(id, err), nil
}

// minimize drops formulas from core, in assertion order, for as long as
// the remainder still refutes the hypothesis. A formula that cannot be
// dropped from a set cannot be dropped from any of its refuting
// subsets, so one pass suffices and the backend's own core for each
// successful trial may replace the candidate set.
func (s *ConflictSolver) minimize(ctx context.Context, id deployfix.Identifier, core []int) ([]int, error) {
	for i := 0; i < len(core); {
		trial := make([]int, 0, len(core)-1)
		trial = append(trial, core[:i]...)
		trial = append(trial, core[i+1:]...)

		outcome, err := s.session.Check(ctx, s.tracksOf(trial)...)
		switch outcome {
		case Satisfiable:
			i++
		case Unsatisfiable:
			if next := s.coreOf(s.session.Core()); len(next) > 0 && len(next) <= len(trial) {
				core = next
			} else {
				core = trial
			}
			s.tracer.Trace(position{hypothesis: id, conflicts: s.constraintsOf(core)})
		default:
			if err == nil {
				err = ErrIncomplete
			}
			return nil, fmt.Errorf("minimizing conflicts: %w", err)
		}
	}
	return core, nil
}

// coreOf maps tracking atoms to formula positions, sorted and without
// duplicates. Literals that track nothing are ignored.
func (s *ConflictSolver) coreOf(lits []z.Lit) []int {
	seen := make(map[int]struct{}, len(lits))
	core := make([]int, 0, len(lits))
	for _, m := range lits {
		i, ok := s.index[m]
		if !ok {
			continue
		}
		if _, ok := seen[i]; ok {
			continue
		}
		seen[i] = struct{}{}
		core = append(core, i)
	}
	sort.Ints(core)
	return core
}

func (s *ConflictSolver) all() []int {
	core := make([]int, len(s.formulas))
	for i := range core {
		core[i] = i
	}
	return core
}

func (s *ConflictSolver) tracksOf(core []int) []z.Lit {
	tracks := make([]z.Lit, len(core))
	for i, f := range core {
		tracks[i] = s.formulas[f].Track
	}
	return tracks
}

func (s *ConflictSolver) constraintsOf(core []int) []deployfix.Constraint {
	constraints := make([]deployfix.Constraint, len(core))
	for i, f := range core {
		constraints[i] = s.formulas[f].Constraint
	}
	return constraints
}

func indeterminate(id deployfix.Identifier, err error) deployfix.AnalysisResult {
	return deployfix.AnalysisResult{
		Entity:  id,
		Verdict: deployfix.Indeterminate,
		Reason:  err.Error(),
	}
}
