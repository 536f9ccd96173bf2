package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/yrfi-cli/internal/pipeline"
)

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Run the full daily chain",
	Long: "Runs matchups, scores, features, live, predict, market and notify as one recorded run. " +
		"The first failing stage stops the chain.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		n, err := pipeline.NewNotifier(cfg)
		if err != nil {
			return err
		}
		return runStages(cmd, "pipeline", func(p *pipeline.Pipeline) []pipeline.Stage {
			return p.Daily()
		}, pipeline.WithNotifier(n))
	},
}

func init() {
	rootCmd.AddCommand(dailyCmd)
}
