package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/yrfi-cli/internal/pipeline"
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Score feature rows with the persisted model",
	Long: "Loads the encoder and model artifacts and writes probability, prediction and " +
		"confidence tier for every complete row. By default the live table is scored; " +
		"--historical scores the feature table instead.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		w, err := windowFlags(cmd)
		if err != nil {
			return err
		}
		input, _ := cmd.Flags().GetString("input")
		output, _ := cmd.Flags().GetString("output")
		xlsxPath, _ := cmd.Flags().GetString("xlsx")
		historical, _ := cmd.Flags().GetBool("historical")
		if input == "" && historical {
			input = cfg.Data.Path(cfg.Data.Features)
		}

		return runStages(cmd, "pipeline", func(p *pipeline.Pipeline) []pipeline.Stage {
			return []pipeline.Stage{p.Predict(pipeline.PredictOptions{
				Input:  input,
				Output: output,
				XLSX:   xlsxPath,
				Window: w,
			})}
		})
	},
}

func init() {
	addRangeFlags(predictCmd, "only score games on or after this date", "only score games on or before this date")
	predictCmd.Flags().String("input", "", "feature table to score (default data.live)")
	predictCmd.Flags().String("output", "", "prediction table (default data.predictions)")
	predictCmd.Flags().String("xlsx", "", "also write the predictions as an XLSX workbook")
	predictCmd.Flags().Bool("historical", false, "score the historical feature table")
	rootCmd.AddCommand(predictCmd)
}
