package deployfix_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/operator-framework/deployfix/pkg/deployfix"
)

func constraint(source, target deployfix.Identifier, relation deployfix.Relation, category deployfix.Category) deployfix.Constraint {
	return deployfix.Constraint{
		Source:     source,
		Target:     target,
		Relation:   relation,
		Category:   category,
		Provenance: deployfix.Provenance{Source: "app.yaml"},
	}
}

func TestNotSatisfiableError(t *testing.T) {
	type tc struct {
		Name   string
		Error  deployfix.NotSatisfiable
		String string
	}

	for _, tt := range []tc{
		{
			Name:   "nil",
			String: "constraints not satisfiable",
		},
		{
			Name:   "empty",
			String: "constraints not satisfiable",
			Error:  deployfix.NotSatisfiable{},
		},
		{
			Name: "single failure",
			Error: deployfix.NotSatisfiable{
				constraint("web", "cache", deployfix.Requires, deployfix.PodAffinity),
			},
			String: "constraints not satisfiable:\n[app.yaml] web requires cache (pod_affinity)",
		},
		{
			Name: "multiple failures",
			Error: deployfix.NotSatisfiable{
				constraint("web", "cache", deployfix.Requires, deployfix.PodAffinity),
				constraint("web", "cache", deployfix.Excludes, deployfix.PodAntiAffinity),
			},
			String: "constraints not satisfiable:\n" +
				"[app.yaml] web requires cache (pod_affinity)\n" +
				"[app.yaml] web excludes cache (pod_anti_affinity)",
		},
	} {
		t.Run(tt.Name, func(t *testing.T) {
			assert.Equal(t, tt.String, tt.Error.Error())
		})
	}
}

func TestProvenanceString(t *testing.T) {
	assert.Equal(t, "app.yaml", deployfix.Provenance{Source: "app.yaml"}.String())
	assert.Equal(t, "app.yaml#2", deployfix.Provenance{Source: "app.yaml", Index: 2}.String())
}

func TestNodeLabelIdentifier(t *testing.T) {
	assert.Equal(t, deployfix.Identifier("disktype=ssd"), deployfix.NodeLabelIdentifier("disktype", "ssd"))
}

func TestAnalysisResultErr(t *testing.T) {
	conflicts := []deployfix.Constraint{constraint("web", "cache", deployfix.Requires, deployfix.PodAffinity)}

	assert.NoError(t, deployfix.AnalysisResult{Entity: "web", Verdict: deployfix.Satisfiable}.Err())

	err := deployfix.AnalysisResult{Entity: "web", Verdict: deployfix.Unsatisfiable, Conflicts: conflicts}.Err()
	var unsat deployfix.NotSatisfiable
	assert.True(t, errors.As(err, &unsat))
	assert.Equal(t, deployfix.NotSatisfiable(conflicts), unsat)

	err = deployfix.AnalysisResult{Entity: "web", Verdict: deployfix.Indeterminate, Reason: "timed out"}.Err()
	assert.EqualError(t, err, "deployment of web could not be decided: timed out")
}
