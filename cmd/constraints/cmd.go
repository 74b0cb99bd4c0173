package constraints

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/operator-framework/deployfix/internal/config"
	"github.com/operator-framework/deployfix/internal/loader"
	"github.com/operator-framework/deployfix/internal/logging"
	"github.com/operator-framework/deployfix/internal/report"
	"github.com/operator-framework/deployfix/pkg/deployfix"
	"github.com/operator-framework/deployfix/pkg/deployfix/analyzer"
	"github.com/operator-framework/deployfix/pkg/deployfix/extractor"
)

func NewConstraintsCommand() *cobra.Command {
	var (
		output    string
		labelKey  string
		verbosity int
	)
	cmd := &cobra.Command{
		Use:   "constraints <path>...",
		Short: "Lists the constraints extracted from manifests",
		Long: `Lists, in input order, the requires and excludes relations derived
from the hard affinity rules of the given Deployments. Documents that
cannot be interpreted contribute nothing; run with -v 1 to see why.`,
		Args: cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			switch output {
			case config.OutputText, config.OutputJSON, config.OutputYAML:
				return nil
			}
			return fmt.Errorf("unknown output format %q", output)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New(cmd.ErrOrStderr(), verbosity)
			docs, err := loader.New(loader.WithStdin(cmd.InOrStdin()), loader.WithLogger(log)).Load(cmd.Context(), args)
			if err != nil {
				return err
			}
			constraints := analyzer.New(analyzer.WithLogger(log), analyzer.WithLabelKey(labelKey)).Constraints(docs)
			return write(cmd.OutOrStdout(), constraints, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", config.OutputText, "output format, one of text, json or yaml")
	cmd.Flags().StringVar(&labelKey, "label-key", extractor.DefaultLabelKey, "pod template label naming a workload")
	cmd.Flags().IntVarP(&verbosity, "verbosity", "v", 0, "log verbosity")
	return cmd
}

func write(w io.Writer, constraints []deployfix.Constraint, output string) error {
	if constraints == nil {
		constraints = []deployfix.Constraint{}
	}
	switch output {
	case config.OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(constraints)
	case config.OutputYAML:
		data, err := yaml.Marshal(constraints)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	return report.PrintConstraints(w, constraints)
}
