// Package report renders analysis results for people and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"sigs.k8s.io/yaml"

	"github.com/operator-framework/deployfix/pkg/deployfix"
)

const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

type Summary struct {
	Entities      int `json:"entities"`
	Satisfiable   int `json:"satisfiable"`
	Unsatisfiable int `json:"unsatisfiable"`
	Indeterminate int `json:"indeterminate"`
}

// Report is the outcome of one analysis run.
type Report struct {
	RunID       string                     `json:"runID"`
	GeneratedAt time.Time                  `json:"generatedAt"`
	Summary     Summary                    `json:"summary"`
	Results     []deployfix.AnalysisResult `json:"results"`
}

// New builds the report of a run identified by a fresh random ID.
func New(results []deployfix.AnalysisResult) *Report {
	return NewWithID(uuid.NewString(), results)
}

func NewWithID(runID string, results []deployfix.AnalysisResult) *Report {
	r := &Report{
		RunID:       runID,
		GeneratedAt: time.Now().UTC(),
		Results:     results,
	}
	if r.Results == nil {
		r.Results = []deployfix.AnalysisResult{}
	}
	r.Summary.Entities = len(results)
	for _, result := range results {
		switch result.Verdict {
		case deployfix.Satisfiable:
			r.Summary.Satisfiable++
		case deployfix.Unsatisfiable:
			r.Summary.Unsatisfiable++
		case deployfix.Indeterminate:
			r.Summary.Indeterminate++
		}
	}
	return r
}

// Failed reports whether some entity is not known to be deployable.
func (r *Report) Failed() bool {
	return r.Summary.Unsatisfiable > 0 || r.Summary.Indeterminate > 0
}

// Err returns every undeployable entity as an error, or nil.
func (r *Report) Err() error {
	if !r.Failed() {
		return nil
	}
	return fmt.Errorf("%d of %d entities cannot be deployed (%d unsatisfiable, %d indeterminate)",
		r.Summary.Unsatisfiable+r.Summary.Indeterminate, r.Summary.Entities, r.Summary.Unsatisfiable, r.Summary.Indeterminate)
}

// Write renders r to w in the given format.
func Write(w io.Writer, r *Report, format string) error {
	switch format {
	case FormatText, "":
		return NewPrinter(w).Print(r)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		data, err := yaml.Marshal(r)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	return fmt.Errorf("unknown output format %q", format)
}
