package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/yrfi-cli/internal/pipeline"
)

var matchupsCmd = &cobra.Command{
	Use:   "matchups",
	Short: "Extract scheduled games from the projected-starters table",
	Long:  "Reads the projected-starters table and writes the games scheduled in the window (default today and tomorrow).",
	RunE: func(cmd *cobra.Command, _ []string) error {
		from, to, err := dateRange(cmd, today(), today().AddDate(0, 0, 1))
		if err != nil {
			return err
		}
		var days []time.Time
		for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
			days = append(days, d)
		}
		return runStages(cmd, "pipeline", func(p *pipeline.Pipeline) []pipeline.Stage {
			return []pipeline.Stage{p.Matchups(days...)}
		})
	},
}

func init() {
	addRangeFlags(matchupsCmd, "first day (YYYY-MM-DD, default today)", "last day (YYYY-MM-DD, default tomorrow)")
	rootCmd.AddCommand(matchupsCmd)
}
