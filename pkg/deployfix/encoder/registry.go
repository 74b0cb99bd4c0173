package encoder

import (
	"sort"

	"github.com/go-air/gini/z"

	"github.com/operator-framework/deployfix/pkg/deployfix"
)

// Registry performs translation between entity Identifiers and the
// variables that appear in the SAT formula. Variables are numbered from
// 1 in the order they are first referenced. One Registry belongs to one
// analysis run.
type Registry struct {
	lits    map[deployfix.Identifier]z.Lit
	ids     map[z.Var]deployfix.Identifier
	inorder []deployfix.Identifier
	max     z.Var
}

func NewRegistry() *Registry {
	return &Registry{
		lits: make(map[deployfix.Identifier]z.Lit),
		ids:  make(map[z.Var]deployfix.Identifier),
	}
}

// LitOf returns the positive literal of the variable for id, creating
// it on first reference.
func (r *Registry) LitOf(id deployfix.Identifier) z.Lit {
	if m, ok := r.lits[id]; ok {
		return m
	}
	m := r.Fresh()
	r.lits[id] = m
	r.ids[m.Var()] = id
	r.inorder = append(r.inorder, id)
	return m
}

// Lookup returns the literal for id without creating one.
func (r *Registry) Lookup(id deployfix.Identifier) (z.Lit, bool) {
	m, ok := r.lits[id]
	return m, ok
}

// IdentifierOf returns the entity a literal stands for, if any.
// Tracking atoms have no entity.
func (r *Registry) IdentifierOf(m z.Lit) (deployfix.Identifier, bool) {
	id, ok := r.ids[m.Var()]
	return id, ok
}

// Fresh allocates a variable that no Identifier maps to.
func (r *Registry) Fresh() z.Lit {
	r.max++
	return r.max.Pos()
}

// MaxVar returns the highest variable allocated so far.
func (r *Registry) MaxVar() z.Var {
	return r.max
}

// Len returns the number of entities.
func (r *Registry) Len() int {
	return len(r.inorder)
}

// Identifiers returns every entity Identifier in sorted order.
func (r *Registry) Identifiers() []deployfix.Identifier {
	ids := make([]deployfix.Identifier, len(r.inorder))
	copy(ids, r.inorder)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Lits returns the entity literals in the order they were created,
// storing them in dst if possible.
func (r *Registry) Lits(dst []z.Lit) []z.Lit {
	if cap(dst) < len(r.inorder) {
		dst = make([]z.Lit, 0, len(r.inorder))
	}
	dst = dst[:0]
	for _, id := range r.inorder {
		dst = append(dst, r.lits[id])
	}
	return dst
}
