package deployfix

import (
	"fmt"
	"strings"
)

// Identifier values uniquely identify particular entities within a
// single analysis run. Workload identifiers are label values, node label
// identifiers take the synthetic form key=value.
type Identifier string

func (id Identifier) String() string {
	return string(id)
}

// IdentifierFromString returns an Identifier based on a provided
// string.
func IdentifierFromString(s string) Identifier {
	return Identifier(s)
}

// NodeLabelIdentifier returns the synthetic Identifier of a node label
// entity.
func NodeLabelIdentifier(key, value string) Identifier {
	return Identifier(key + "=" + value)
}

// Relation is the logical meaning of a Constraint.
type Relation string

const (
	// Requires means the source can only be deployed if the target is.
	Requires Relation = "requires"
	// Excludes means the source and the target cannot both be deployed.
	Excludes Relation = "excludes"
)

// Category records which kind of affinity rule produced a Constraint.
// It is diagnostic metadata and has no logical meaning.
type Category string

const (
	PodAffinity      Category = "pod_affinity"
	PodAntiAffinity  Category = "pod_anti_affinity"
	NodeAffinity     Category = "node_affinity"
	NodeAntiAffinity Category = "node_anti_affinity"
)

// Provenance locates the document a Constraint was extracted from.
type Provenance struct {
	// Source is the file path (or other locator) of the document stream.
	Source string `json:"source"`
	// Index is the zero based position of the document within Source.
	Index int `json:"index"`
}

func (p Provenance) String() string {
	if p.Index > 0 {
		return fmt.Sprintf("%s#%d", p.Source, p.Index)
	}
	return p.Source
}

// Constraint is a directed binary relation between two entities.
type Constraint struct {
	Source     Identifier `json:"source"`
	Target     Identifier `json:"target"`
	Relation   Relation   `json:"relation"`
	Category   Category   `json:"category"`
	Provenance Provenance `json:"provenance"`
}

// String implements fmt.Stringer and returns a human-readable message
// representing the receiver.
func (c Constraint) String() string {
	return fmt.Sprintf("[%s] %s %s %s (%s)", c.Provenance, c.Source, c.Relation, c.Target, c.Category)
}

// Verdict is the outcome of testing whether one entity is deployable.
type Verdict string

const (
	Satisfiable   Verdict = "SATISFIABLE"
	Unsatisfiable Verdict = "UNSATISFIABLE"
	Indeterminate Verdict = "INDETERMINATE"
)

// AnalysisResult is the outcome of a single deployability query.
type AnalysisResult struct {
	Entity  Identifier `json:"entity"`
	Verdict Verdict    `json:"verdict"`
	// Conflicts is the minimal set of constraints that, together with
	// deploying Entity, cannot be satisfied. Only set when Verdict is
	// Unsatisfiable, ordered by input position.
	Conflicts []Constraint `json:"conflicts,omitempty"`
	// Reason explains an Indeterminate verdict.
	Reason string `json:"reason,omitempty"`
}

// Err returns the result as an error: NotSatisfiable for unsatisfiable
// results, a generic error for indeterminate ones and nil otherwise.
func (r AnalysisResult) Err() error {
	switch r.Verdict {
	case Unsatisfiable:
		return NotSatisfiable(r.Conflicts)
	case Indeterminate:
		return fmt.Errorf("deployment of %s could not be decided: %s", r.Entity, r.Reason)
	}
	return nil
}

// NotSatisfiable is an error composed of a minimal set of
// constraints that is sufficient to make a deployment impossible.
type NotSatisfiable []Constraint

func (e NotSatisfiable) Error() string {
	const msg = "constraints not satisfiable"
	if len(e) == 0 {
		return msg
	}
	s := make([]string, len(e))
	for i, c := range e {
		s[i] = c.String()
	}
	return fmt.Sprintf("%s:\n%s", msg, strings.Join(s, "\n"))
}
