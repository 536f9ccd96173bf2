package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/yrfi-cli/internal/pipeline"
)

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Rebuild the modeling table",
	Long:  "Joins the score history with starters, ERA and team first-inning rates and writes the feature table.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runStages(cmd, "pipeline", func(p *pipeline.Pipeline) []pipeline.Stage {
			return []pipeline.Stage{p.Features()}
		})
	},
}

func init() {
	rootCmd.AddCommand(featuresCmd)
}
