package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/yrfi-cli/internal/metrics"
	"github.com/sells-group/yrfi-cli/internal/model"
	"github.com/sells-group/yrfi-cli/internal/pipeline"
	"github.com/sells-group/yrfi-cli/internal/store"
)

// pipelineEnv holds the store and the pipeline used by the stage commands.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline validates the config for mode, opens the run store and
// builds the Pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string, opts ...pipeline.Option) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	opts = append([]pipeline.Option{pipeline.WithMetrics(metrics.Default())}, opts...)
	return &pipelineEnv{
		Store:    st,
		Pipeline: pipeline.New(cfg, st, opts...),
	}, nil
}

// runStages executes stages as one recorded run named after the command
// and prints the per-stage outcome.
func runStages(cmd *cobra.Command, mode string, stages func(*pipeline.Pipeline) []pipeline.Stage, opts ...pipeline.Option) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env, err := initPipeline(ctx, mode, opts...)
	if err != nil {
		return err
	}
	defer env.Close()

	result, err := env.Pipeline.Run(ctx, cmd.CommandPath(), strings.Join(os.Args[1:], " "), stages(env.Pipeline)...)
	if result != nil {
		formatRunResult(cmd.OutOrStdout(), result)
	}
	return err
}

// formatRunResult writes one line per stage to out.
func formatRunResult(out io.Writer, r *model.RunResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "STAGE\tSTATUS\tROWS\tDROPPED\tDURATION")
	for _, p := range r.Phases {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
			p.Name,
			p.Status,
			p.Rows,
			p.Dropped,
			(time.Duration(p.Duration) * time.Millisecond).String(),
		)
	}
	_ = w.Flush()
	if r.Error != "" {
		_, _ = fmt.Fprintf(out, "error: %s\n", r.Error)
	}
}
