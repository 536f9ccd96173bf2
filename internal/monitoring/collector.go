// Package monitoring watches the run history for failing stages and stale
// data and raises alerts.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/yrfi-cli/internal/model"
	"github.com/sells-group/yrfi-cli/internal/store"
)

// Tally aggregates a set of runs.
type Tally struct {
	Total    int     `json:"total"`
	Complete int     `json:"complete"`
	Failed   int     `json:"failed"`
	Running  int     `json:"running"`
	FailRate float64 `json:"fail_rate"`

	// FailedStages counts the first failed stage of each failed run.
	FailedStages map[string]int `json:"failed_stages,omitempty"`

	RowsWritten int `json:"rows_written"`
	RowsDropped int `json:"rows_dropped"`
	// AvgDuration is the mean wall time of complete runs.
	AvgDuration time.Duration `json:"avg_duration_ns"`
}

// TallyRuns counts runs by status. FailRate is failed over finished runs;
// running ones are excluded.
func TallyRuns(runs []model.Run) Tally {
	t := Tally{Total: len(runs), FailedStages: map[string]int{}}
	var busy time.Duration
	for _, r := range runs {
		if r.Result != nil {
			t.RowsWritten += r.Result.RowsWritten
			t.RowsDropped += r.Result.RowsDropped
		}
		switch r.Status {
		case model.RunStatusComplete:
			t.Complete++
			busy += r.Duration()
		case model.RunStatusFailed:
			t.Failed++
			t.FailedStages[r.FailedStage()]++
		default:
			t.Running++
		}
	}
	if finished := t.Complete + t.Failed; finished > 0 {
		t.FailRate = float64(t.Failed) / float64(finished)
	}
	if t.Complete > 0 {
		t.AvgDuration = busy / time.Duration(t.Complete)
	}
	return t
}

// Snapshot is a tally of the lookback window plus the freshness of the
// daily chain.
type Snapshot struct {
	Tally

	// LastDaily is when the most recent complete daily run finished. Zero
	// when there is none.
	LastDaily time.Time `json:"last_daily,omitzero"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// RunLister is the slice of the store the collector needs.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
}

// Collector gathers snapshots from the run store.
type Collector struct {
	runs  RunLister
	daily string
	now   func() time.Time
}

// NewCollector creates a collector. dailyCommand is the command path
// recorded for the end-to-end chain (e.g. "yrfi daily").
func NewCollector(runs RunLister, dailyCommand string) *Collector {
	return &Collector{runs: runs, daily: dailyCommand, now: time.Now}
}

// Collect gathers a snapshot over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*Snapshot, error) {
	now := c.now().UTC()
	runs, err := c.runs.ListRuns(ctx, store.RunFilter{
		CreatedAfter: now.Add(-time.Duration(lookbackHours) * time.Hour),
		Limit:        10000,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}
	snap := &Snapshot{
		Tally:         TallyRuns(runs),
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	if c.daily != "" {
		last, err := c.runs.ListRuns(ctx, store.RunFilter{
			Command: c.daily,
			Status:  model.RunStatusComplete,
			Limit:   1,
		})
		if err != nil {
			return nil, eris.Wrap(err, "monitoring: list daily runs")
		}
		if len(last) > 0 {
			snap.LastDaily = last[0].UpdatedAt
		}
	}

	return snap, nil
}
