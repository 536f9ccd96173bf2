package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/yrfi-cli/internal/model"
	"github.com/sells-group/yrfi-cli/internal/pipeline"
)

var oddsCmd = &cobra.Command{
	Use:   "odds",
	Short: "Fetch bookmaker odds and merge them with scores",
}

var oddsFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch odds for a date window into the odds table",
	Long: "Fetches h2h, spread and total prices for every day in the window. Past days use the " +
		"historical snapshot endpoint. Days already in the odds table are skipped unless --update-existing.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		def := today()
		if t, ok := model.ParseDate(cfg.Odds.StartDate); ok {
			def = t
		}
		from, to, err := dateRange(cmd, def, today())
		if err != nil {
			return err
		}
		update, _ := cmd.Flags().GetBool("update-existing")
		update = update || cfg.Odds.UpdateExisting

		return runStages(cmd, "odds", func(p *pipeline.Pipeline) []pipeline.Stage {
			return []pipeline.Stage{p.FetchOdds(from, to, update)}
		})
	},
}

var oddsMergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Left-join the odds table with the score history",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runStages(cmd, "pipeline", func(p *pipeline.Pipeline) []pipeline.Stage {
			return []pipeline.Stage{p.MergeOdds()}
		})
	},
}

func init() {
	addRangeFlags(oddsFetchCmd, "first day (YYYY-MM-DD, default odds.start_date or today)", "last day (YYYY-MM-DD, default today)")
	oddsFetchCmd.Flags().Bool("update-existing", false, "refetch days already present in the odds table")

	oddsCmd.AddCommand(oddsFetchCmd)
	oddsCmd.AddCommand(oddsMergeCmd)
	rootCmd.AddCommand(oddsCmd)
}
