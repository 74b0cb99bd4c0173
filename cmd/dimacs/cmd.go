package dimacs

import (
	"github.com/spf13/cobra"

	"github.com/operator-framework/deployfix/internal/loader"
	"github.com/operator-framework/deployfix/internal/logging"
	"github.com/operator-framework/deployfix/pkg/deployfix/analyzer"
	"github.com/operator-framework/deployfix/pkg/deployfix/encoder"
	"github.com/operator-framework/deployfix/pkg/deployfix/extractor"
)

func NewDimacsCommand() *cobra.Command {
	var (
		labelKey  string
		verbosity int
	)
	cmd := &cobra.Command{
		Use:   "dimacs <path>...",
		Short: "Writes the constraints of manifests as a DIMACS CNF problem",
		Long: `Writes the encoding of the given Deployments in DIMACS format. Every
constraint becomes one clause guarded by its own tracking variable:
c
c entity <variable> <name>
c track <variable> <constraint>
p cnf <number of variables> <number of clauses>
-<track> <literals> 0
Comment lines name the entity behind every variable and the constraint
behind every tracking variable.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New(cmd.ErrOrStderr(), verbosity)
			docs, err := loader.New(loader.WithStdin(cmd.InOrStdin()), loader.WithLogger(log)).Load(cmd.Context(), args)
			if err != nil {
				return err
			}
			constraints := analyzer.New(analyzer.WithLogger(log), analyzer.WithLabelKey(labelKey)).Constraints(docs)
			enc, err := encoder.Encode(constraints)
			if err != nil {
				return err
			}
			return encoder.WriteDIMACS(cmd.OutOrStdout(), enc)
		},
	}
	cmd.Flags().StringVar(&labelKey, "label-key", extractor.DefaultLabelKey, "pod template label naming a workload")
	cmd.Flags().IntVarP(&verbosity, "verbosity", "v", 0, "log verbosity")
	return cmd
}
