package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/yrfi-cli/internal/model"
	"github.com/sells-group/yrfi-cli/internal/pipeline"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Score the historical feature table and summarize accuracy",
	RunE: func(cmd *cobra.Command, _ []string) error {
		w, err := windowFlags(cmd)
		if err != nil {
			return err
		}
		report := func(s model.BacktestSummary) {
			formatBacktest(cmd.OutOrStdout(), s)
		}
		return runStages(cmd, "pipeline", func(p *pipeline.Pipeline) []pipeline.Stage {
			return []pipeline.Stage{p.Backtest(w, report)}
		})
	},
}

func init() {
	addRangeFlags(backtestCmd, "first game date to include", "last game date to include")
	rootCmd.AddCommand(backtestCmd)
}

// formatBacktest writes the backtest summary to out.
func formatBacktest(out io.Writer, s model.BacktestSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total games:\t%d\n", s.TotalGames)
	_, _ = fmt.Fprintf(w, "Actual YRFI rate:\t%.3f\n", s.YRFIRate)
	_, _ = fmt.Fprintf(w, "Model accuracy:\t%.3f\n", s.Accuracy)
	_, _ = fmt.Fprintf(w, "YRFI precision:\t%.3f\n", s.Precision)
	_, _ = fmt.Fprintf(w, "YRFI recall:\t%.3f\n", s.Recall)
	_, _ = fmt.Fprintf(w, "ROC AUC:\t%.3f\n", s.ROCAUC)
	_ = w.Flush()
}
