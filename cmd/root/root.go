package root

import (
	"github.com/spf13/cobra"

	"github.com/operator-framework/deployfix/cmd/analyze"
	"github.com/operator-framework/deployfix/cmd/constraints"
	"github.com/operator-framework/deployfix/cmd/dimacs"
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "deployfix",
		Short: "Deployfix finds Deployments whose affinity rules cannot all be met",
		Long: `Deployfix reads Kubernetes Deployment manifests, turns their hard
affinity and anti-affinity rules into boolean constraints and reports every
workload that cannot be deployed, together with a minimal set of rules
that conflict.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// add sub-commands
	rootCmd.AddCommand(analyze.NewAnalyzeCommand())
	rootCmd.AddCommand(constraints.NewConstraintsCommand())
	rootCmd.AddCommand(dimacs.NewDimacsCommand())

	return rootCmd
}
