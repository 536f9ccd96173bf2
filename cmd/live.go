package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/yrfi-cli/internal/pipeline"
)

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Build feature rows for upcoming games",
	Long: "Builds live feature rows for the games in the window from the latest history of each " +
		"pairing. With --append the live rows missing from the feature table are appended to it.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		from, to, err := dateRange(cmd, today(), today().AddDate(0, 0, max(cfg.Data.LiveWindowDay, 0)))
		if err != nil {
			return err
		}
		appendRows, _ := cmd.Flags().GetBool("append")
		return runStages(cmd, "pipeline", func(p *pipeline.Pipeline) []pipeline.Stage {
			stages := []pipeline.Stage{p.Live(from, to)}
			if appendRows {
				stages = append(stages, p.AppendLive())
			}
			return stages
		})
	},
}

func init() {
	addRangeFlags(liveCmd, "first day (YYYY-MM-DD, default today)", "last day (YYYY-MM-DD, default today plus data.live_window_days)")
	liveCmd.Flags().Bool("append", false, "append new live rows to the feature table")
	rootCmd.AddCommand(liveCmd)
}
