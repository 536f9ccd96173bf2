package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/yrfi-cli/internal/model"
	"github.com/sells-group/yrfi-cli/internal/monitoring"
	"github.com/sells-group/yrfi-cli/internal/pipeline"
	"github.com/sells-group/yrfi-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect pipeline run history",
	Long:  "Commands for listing, viewing, and summarizing recorded pipeline runs.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pipeline runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		command, _ := cmd.Flags().GetString("command")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := store.RunFilter{
			Status:  model.RunStatus(status),
			Command: command,
			Limit:   limit,
		}

		runs, err := st.ListRuns(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(cmd.OutOrStdout(), runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run and its stages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}
		phases, err := st.ListPhases(ctx, run.ID)
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			*model.Run
			Phases []model.RunPhase `json:"phases"`
		}{run, phases})
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		since, _ := cmd.Flags().GetDuration("since")
		filter := store.RunFilter{Limit: 10000}
		if since > 0 {
			filter.CreatedAfter = time.Now().Add(-since)
		}

		runs, err := st.ListRuns(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		formatRunStats(cmd.OutOrStdout(), monitoring.TallyRuns(runs))
		return nil
	},
}

// -- runs check --

var runsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate run health and send alerts",
	Long: "Collects failure rate, repeated stage failures and the age of the last complete daily " +
		"run over the lookback window, prints any alerts and delivers them to the configured channels.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		checker, err := newChecker(st)
		if err != nil {
			return err
		}
		alerts, err := checker.Check(ctx)
		if err != nil {
			return eris.Wrap(err, "runs check")
		}

		if len(alerts) == 0 {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No alerts.")
			return nil
		}
		for _, a := range alerts {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s: %s\n", a.Severity, a.Type, a.Message)
		}
		return nil
	},
}

// newChecker builds the run-health checker over st. Alerts go to the
// webhook and, when configured, Telegram.
func newChecker(st store.Store) (*monitoring.Checker, error) {
	sender, err := pipeline.NewNotifier(cfg)
	if err != nil {
		return nil, err
	}
	return monitoring.NewChecker(
		monitoring.NewCollector(st, rootCmd.Name()+" "+dailyCmd.Name()),
		monitoring.NewAlerter(cfg.Monitoring, sender),
		cfg.Monitoring,
	), nil
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by run status (running, complete, failed)")
	runsListCmd.Flags().String("command", "", "filter by command path (e.g. \"yrfi daily\")")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsStatsCmd.Flags().Duration("since", 7*24*time.Hour, "time window for stats (e.g. 24h, 168h)")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsStatsCmd)
	runsCmd.AddCommand(runsCheckCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCOMMAND\tSTATUS\tROWS\tFAILED_STAGE\tCREATED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t-------\t------\t----\t------------\t-------\t--------")

	for _, r := range runs {
		dur := r.Duration().Round(time.Second).String()

		rows := 0
		if r.Result != nil {
			rows = r.Result.RowsWritten
		}
		failed := ""
		if r.Status == model.RunStatusFailed {
			failed = r.FailedStage()
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.Command,
			r.Status,
			rows,
			failed,
			r.CreatedAt.Format("2006-01-02 15:04"),
			dur,
		)
	}
	_ = w.Flush()
}

// formatRunStats writes a run tally to w.
func formatRunStats(out io.Writer, t monitoring.Tally) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", t.Total)
	_, _ = fmt.Fprintf(w, "Complete:\t%d\n", t.Complete)
	_, _ = fmt.Fprintf(w, "Failed:\t%d (%.0f%% of finished)\n", t.Failed, t.FailRate*100)
	for _, name := range slices.Sorted(maps.Keys(t.FailedStages)) {
		_, _ = fmt.Fprintf(w, "  %s:\t%d\n", name, t.FailedStages[name])
	}
	_, _ = fmt.Fprintf(w, "Running:\t%d\n", t.Running)
	_, _ = fmt.Fprintf(w, "Rows written:\t%d\n", t.RowsWritten)
	_, _ = fmt.Fprintf(w, "Rows dropped:\t%d\n", t.RowsDropped)
	if t.AvgDuration > 0 {
		_, _ = fmt.Fprintf(w, "Avg duration:\t%.1fs\n", t.AvgDuration.Seconds())
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
