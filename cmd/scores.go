package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/yrfi-cli/internal/pipeline"
)

var scoresCmd = &cobra.Command{
	Use:   "scores",
	Short: "Scrape boxscores into the score history",
	Long: "Fetches game ids from the scoreboard API for every day in the window, scrapes each " +
		"boxscore page for first-inning runs and merges the games into the score history.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		from, to, err := dateRange(cmd, today().AddDate(0, 0, -1), today().AddDate(0, 0, 1))
		if err != nil {
			return err
		}
		return runStages(cmd, "pipeline", func(p *pipeline.Pipeline) []pipeline.Stage {
			return []pipeline.Stage{p.Scores(from, to)}
		})
	},
}

func init() {
	addRangeFlags(scoresCmd, "first day (YYYY-MM-DD, default yesterday)", "last day (YYYY-MM-DD, default tomorrow)")
	rootCmd.AddCommand(scoresCmd)
}
