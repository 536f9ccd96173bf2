package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/yrfi-cli/internal/pipeline"
)

var marketCmd = &cobra.Command{
	Use:   "market",
	Short: "Compare predictions with market or tier-inferred odds",
	Long: "Prices every prediction and writes implied probability and edge. Source \"tier\" uses " +
		"the tier proxy odds; source \"market\" requires a yrfi_odds column in the input.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		source, _ := cmd.Flags().GetString("source")
		if source == "" {
			source = cfg.Market.Source
		}
		input, _ := cmd.Flags().GetString("input")
		notifyToo, _ := cmd.Flags().GetBool("notify")

		var opts []pipeline.Option
		if notifyToo {
			n, err := pipeline.NewNotifier(cfg)
			if err != nil {
				return err
			}
			opts = append(opts, pipeline.WithNotifier(n))
		}
		return runStages(cmd, "pipeline", func(p *pipeline.Pipeline) []pipeline.Stage {
			stages := []pipeline.Stage{p.Market(source, input)}
			if notifyToo {
				stages = append(stages, p.Notify())
			}
			return stages
		}, opts...)
	},
}

func init() {
	marketCmd.Flags().String("source", "", "odds source: tier or market (default market.source)")
	marketCmd.Flags().String("input", "", "prediction table to price (default data.predictions)")
	marketCmd.Flags().Bool("notify", false, "send the top edges to Telegram")
	rootCmd.AddCommand(marketCmd)
}
