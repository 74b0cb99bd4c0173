package e2e

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr/funcr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/operator-framework/deployfix/cmd/root"
	"github.com/operator-framework/deployfix/internal/loader"
	"github.com/operator-framework/deployfix/internal/metrics"
	"github.com/operator-framework/deployfix/pkg/deployfix"
	"github.com/operator-framework/deployfix/pkg/deployfix/analyzer"
	"github.com/operator-framework/deployfix/pkg/deployfix/extractor"
)

func manifest(name string) string {
	return filepath.Join(clusterDir, name)
}

var _ = Describe("Analyzing a cluster", func() {
	var (
		ctx  context.Context
		docs []extractor.Document
	)

	BeforeEach(func() {
		ctx = context.Background()

		By("loading every manifest of the cluster directory")
		var err error
		docs, err = loader.New().Load(ctx, []string{clusterDir})
		Expect(err).ToNot(HaveOccurred())
		Expect(docs).To(HaveLen(6))
	})

	When("the manifests are analyzed", func() {
		var (
			results  []deployfix.AnalysisResult
			recorder *metrics.Recorder
			logs     []string
		)

		BeforeEach(func() {
			recorder = metrics.NewRecorder()
			logs = nil
			log := funcr.New(func(_, args string) {
				logs = append(logs, args)
			}, funcr.Options{Verbosity: 1})

			var err error
			results, err = analyzer.New(analyzer.WithLogger(log), analyzer.WithRecorder(recorder)).Analyze(ctx, docs)
			Expect(err).ToNot(HaveOccurred())
			for _, r := range results {
				Logf("%s: %s", r.Entity, r.Verdict)
			}
		})

		It("should report every entity once, in order", func() {
			var entities []deployfix.Identifier
			for _, r := range results {
				entities = append(entities, r.Entity)
			}
			Expect(entities).To(Equal([]deployfix.Identifier{"api", "cache", "db", "disktype=ssd", "frontend", "zone=eu"}))
		})

		It("should refute the frontend with the minimal conflict", func() {
			Expect(results[4]).To(Equal(deployfix.AnalysisResult{
				Entity:  "frontend",
				Verdict: deployfix.Unsatisfiable,
				Conflicts: []deployfix.Constraint{
					{Source: "api", Target: "frontend", Relation: deployfix.Excludes, Category: deployfix.PodAntiAffinity, Provenance: deployfix.Provenance{Source: manifest("api.yaml")}},
					{Source: "frontend", Target: "api", Relation: deployfix.Requires, Category: deployfix.PodAffinity, Provenance: deployfix.Provenance{Source: manifest("frontend.yaml")}},
				},
			}))
			Expect(results[4].Err()).To(MatchError(ContainSubstring("constraints not satisfiable")))
		})

		It("should refute the self excluding cache", func() {
			Expect(results[1].Verdict).To(Equal(deployfix.Unsatisfiable))
			Expect(results[1].Conflicts).To(ConsistOf(deployfix.Constraint{
				Source: "cache", Target: "cache", Relation: deployfix.Excludes, Category: deployfix.PodAntiAffinity,
				Provenance: deployfix.Provenance{Source: manifest("cache.json")},
			}))
		})

		It("should accept everything else", func() {
			for _, i := range []int{0, 2, 3, 5} {
				Expect(results[i].Verdict).To(Equal(deployfix.Satisfiable), "entity %s", results[i].Entity)
				Expect(results[i].Conflicts).To(BeEmpty())
			}
		})

		It("should skip the unlabelled batch deployment and say so", func() {
			Expect(strings.Join(logs, "\n")).To(ContainSubstring(`"source"="` + manifest("batch.yaml") + `#1"`))

			expected := `
# HELP deployfix_documents_total Documents processed, by outcome
# TYPE deployfix_documents_total counter
deployfix_documents_total{outcome="processed"} 5
deployfix_documents_total{outcome="skipped"} 1
`
			Expect(testutil.GatherAndCompare(recorder.Registry(), strings.NewReader(expected), "deployfix_documents_total")).To(Succeed())
		})
	})

	When("the command line analyzes the cluster", func() {
		It("should exit with an error naming the undeployable entities", func() {
			var stdout, stderr bytes.Buffer
			cmd := root.NewRootCmd()
			cmd.SetArgs([]string{"analyze", clusterDir})
			cmd.SetOut(&stdout)
			cmd.SetErr(&stderr)

			err := cmd.ExecuteContext(ctx)
			Logf("%s", stdout.String())
			Expect(err).To(MatchError("2 of 6 entities cannot be deployed (2 unsatisfiable, 0 indeterminate)"))
			Expect(stdout.String()).To(ContainSubstring("frontend: UNSATISFIABLE\n"))
			Expect(stdout.String()).To(ContainSubstring("cache: UNSATISFIABLE\n"))
		})
	})
})
