package metrics_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/operator-framework/deployfix/internal/metrics"
	"github.com/operator-framework/deployfix/pkg/deployfix"
	"github.com/operator-framework/deployfix/pkg/deployfix/analyzer"
)

var _ analyzer.Recorder = &metrics.Recorder{}

func TestRecorder(t *testing.T) {
	r := metrics.NewRecorder()
	r.DocumentProcessed(false)
	r.DocumentProcessed(false)
	r.DocumentProcessed(true)
	r.ConstraintExtracted(deployfix.PodAffinity)
	r.ConstraintExtracted(deployfix.NodeAntiAffinity)
	r.EntityQueried(deployfix.Unsatisfiable, 3*time.Millisecond)

	expected := `
# HELP deployfix_documents_total Documents processed, by outcome
# TYPE deployfix_documents_total counter
deployfix_documents_total{outcome="processed"} 2
deployfix_documents_total{outcome="skipped"} 1
# HELP deployfix_queries_total Entities queried, by verdict
# TYPE deployfix_queries_total counter
deployfix_queries_total{verdict="UNSATISFIABLE"} 1
`
	require.NoError(t, testutil.GatherAndCompare(r.Registry(), strings.NewReader(expected),
		"deployfix_documents_total", "deployfix_queries_total"))

	n, err := testutil.GatherAndCount(r.Registry(), "deployfix_constraints_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestWriteToTextfile(t *testing.T) {
	r := metrics.NewRecorder()
	r.EntityQueried(deployfix.Satisfiable, time.Millisecond)

	path := filepath.Join(t.TempDir(), "deployfix.prom")
	require.NoError(t, r.WriteToTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `deployfix_queries_total{verdict="SATISFIABLE"} 1`)
	assert.Contains(t, string(data), "deployfix_query_duration_seconds_count 1")
}
