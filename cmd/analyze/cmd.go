package analyze

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/operator-framework/deployfix/internal/config"
	"github.com/operator-framework/deployfix/internal/loader"
	"github.com/operator-framework/deployfix/internal/logging"
	"github.com/operator-framework/deployfix/internal/metrics"
	"github.com/operator-framework/deployfix/internal/report"
	"github.com/operator-framework/deployfix/internal/tracing"
	"github.com/operator-framework/deployfix/internal/watch"
	"github.com/operator-framework/deployfix/pkg/deployfix/analyzer"
	"github.com/operator-framework/deployfix/pkg/deployfix/solver"
)

func NewAnalyzeCommand() *cobra.Command {
	cfg := config.Default()
	cmd := &cobra.Command{
		Use:   "analyze <path>...",
		Short: "Reports the workloads that cannot be deployed",
		Long: `Analyzes the Deployments found in the given files and directories
("-" reads standard input). For every workload and every node label the
rules mention, the command reports whether it can be deployed; when it
cannot, it lists a minimal set of conflicting rules.`,
		Args: cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return cfg.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return newRunner(cmd, cfg).run(cmd.Context(), args)
		},
	}
	cfg.BindFlags(cmd.Flags())
	return cmd
}

type runner struct {
	cfg    *config.Config
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	log    logr.Logger
}

func newRunner(cmd *cobra.Command, cfg *config.Config) *runner {
	return &runner{
		cfg:    cfg,
		stdin:  cmd.InOrStdin(),
		stdout: cmd.OutOrStdout(),
		stderr: cmd.ErrOrStderr(),
		log:    logging.New(cmd.ErrOrStderr(), cfg.Verbosity),
	}
}

func (r *runner) run(ctx context.Context, paths []string) error {
	tp := tracing.Disabled()
	if r.cfg.Trace {
		var err error
		if tp, err = tracing.New(r.stderr, uuid.NewString()); err != nil {
			return err
		}
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			r.log.Error(err, "flushing traces")
		}
	}()

	recorder := metrics.NewRecorder()
	options := []analyzer.Option{
		analyzer.WithLogger(r.log),
		analyzer.WithLabelKey(r.cfg.LabelKey),
		analyzer.WithQueryTimeout(r.cfg.QueryTimeout),
		analyzer.WithRecorder(recorder),
		analyzer.WithTracerProvider(tp),
	}
	if r.cfg.Explain {
		options = append(options, analyzer.WithSearchTracer(solver.LoggingTracer{Writer: r.stderr}))
	}
	a := analyzer.New(options...)
	l := loader.New(loader.WithStdin(r.stdin), loader.WithLogger(r.log.WithName("loader")))

	once := func(ctx context.Context) (*report.Report, error) {
		docs, err := l.Load(ctx, paths)
		if err != nil {
			return nil, err
		}
		results, err := a.Analyze(ctx, docs)
		if err != nil {
			return nil, err
		}
		rep := report.New(results)
		if err := r.write(rep); err != nil {
			return nil, err
		}
		if r.cfg.MetricsFile != "" {
			if err := recorder.WriteToTextfile(r.cfg.MetricsFile); err != nil {
				return nil, fmt.Errorf("writing metrics: %w", err)
			}
		}
		return rep, nil
	}

	if r.cfg.Watch {
		w := watch.New(watch.WithLogger(r.log.WithName("watch")))
		return w.Run(ctx, paths, func(ctx context.Context) error {
			_, err := once(ctx)
			return err
		})
	}

	rep, err := once(ctx)
	if err != nil {
		return err
	}
	if r.cfg.FailOnConflict {
		return rep.Err()
	}
	return nil
}

func (r *runner) write(rep *report.Report) error {
	if r.cfg.Output != config.OutputText {
		return report.Write(r.stdout, rep, r.cfg.Output)
	}
	// color.NoColor only reflects os.Stdout.
	colored := !color.NoColor && r.stdout == io.Writer(os.Stdout)
	return report.NewPrinter(r.stdout).SetColor(colored).Print(rep)
}
