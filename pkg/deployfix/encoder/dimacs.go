package encoder

import (
	"bufio"
	"fmt"
	"io"

	"github.com/go-air/gini"
	"github.com/go-air/gini/z"
)

// WriteDIMACS writes the encoding as a DIMACS CNF problem, see
// https://logic.pdmi.ras.ru/~basolver/dimacs.html. Every tracked formula
// becomes the clause ¬track ∨ clause, so external solvers reproduce a
// conflict by assuming the tracking atoms. Comment lines name each
// entity variable and the constraint behind each tracking atom.
//
// The problem line and clauses are written by gini from the clause
// database it would solve; tautologies and duplicate literals are
// dropped there.
func WriteDIMACS(w io.Writer, e *Encoding) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "c deployfix encoding: %d entities, %d constraints\n", e.universe.Len(), len(e.formulas))
	for _, m := range e.universe.Lits(nil) {
		id, _ := e.universe.IdentifierOf(m)
		fmt.Fprintf(bw, "c entity %d %s\n", m.Dimacs(), id)
	}
	for _, f := range e.formulas {
		fmt.Fprintf(bw, "c track %d %s\n", f.Track.Dimacs(), f.Constraint)
	}

	g := gini.New()
	for _, f := range e.formulas {
		g.Add(f.Track.Not())
		for _, m := range f.Clause {
			g.Add(m)
		}
		g.Add(z.LitNull)
	}
	if err := g.Write(bw); err != nil {
		return err
	}

	return bw.Flush()
}
