package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/yrfi-cli/internal/pipeline"
	"github.com/sells-group/yrfi-cli/internal/predict"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Fit the encoder and logistic model on the feature table",
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts := predict.DefaultTrainOptions()
		opts.Iterations, _ = cmd.Flags().GetInt("iterations")
		opts.LearningRate, _ = cmd.Flags().GetFloat64("learning-rate")
		opts.C, _ = cmd.Flags().GetFloat64("c")
		opts.TestSize, _ = cmd.Flags().GetFloat64("test-size")
		opts.Seed, _ = cmd.Flags().GetInt64("seed")

		report := func(res *predict.TrainResult) {
			formatEvaluation(cmd.OutOrStdout(), res)
		}
		return runStages(cmd, "pipeline", func(p *pipeline.Pipeline) []pipeline.Stage {
			return []pipeline.Stage{p.Train(opts, report)}
		})
	},
}

func init() {
	def := predict.DefaultTrainOptions()
	trainCmd.Flags().Int("iterations", def.Iterations, "gradient descent iterations")
	trainCmd.Flags().Float64("learning-rate", def.LearningRate, "gradient descent step size")
	trainCmd.Flags().Float64("c", def.C, "inverse L2 regularization strength")
	trainCmd.Flags().Float64("test-size", def.TestSize, "held-out fraction for evaluation")
	trainCmd.Flags().Int64("seed", def.Seed, "split seed")
	rootCmd.AddCommand(trainCmd)
}

// formatEvaluation writes a classification report for the held-out split.
func formatEvaluation(out io.Writer, res *predict.TrainResult) {
	_, _ = fmt.Fprintf(out, "Trained on %d rows, evaluated on %d.\n\n", res.Train, res.Test)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	_, _ = fmt.Fprintln(w, "\tprecision\trecall\tf1-score\tsupport\t")
	for label, c := range res.Eval.Classes {
		_, _ = fmt.Fprintf(w, "%d\t%.2f\t%.2f\t%.2f\t%d\t\n", label, c.Precision, c.Recall, c.F1, c.Support)
	}
	_ = w.Flush()
	_, _ = fmt.Fprintf(out, "\nAccuracy: %.3f\nROC AUC:  %.3f\n\n", res.Eval.Accuracy, res.Eval.ROCAUC)
}
