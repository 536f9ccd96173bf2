// Package store persists run history, per-stage phases, cached HTTP
// responses and scored predictions.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/yrfi-cli/internal/model"
)

// ErrNotFound is returned when a run or phase does not exist.
var ErrNotFound = eris.New("store: not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status  model.RunStatus `json:"status,omitempty"`
	Command string          `json:"command,omitempty"`
	// CreatedAfter keeps runs created at or after this time when non-zero.
	CreatedAfter time.Time `json:"created_after,omitempty"`
	Limit        int       `json:"limit,omitempty"`
	Offset       int       `json:"offset,omitempty"`
}

// Store defines the persistence interface for pipeline runs.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, command, args string) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Phases
	CreatePhase(ctx context.Context, runID string, name string) (*model.RunPhase, error)
	CompletePhase(ctx context.Context, phaseID string, result *model.PhaseResult) error
	ListPhases(ctx context.Context, runID string) ([]model.RunPhase, error)

	// Response cache
	GetCachedResponse(ctx context.Context, key string) ([]byte, error)
	SetCachedResponse(ctx context.Context, key string, data []byte, ttl time.Duration) error
	DeleteExpiredResponses(ctx context.Context) (int, error)

	// Predictions
	SavePredictions(ctx context.Context, runID string, preds []model.Prediction) (int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the configured backend ("sqlite" or "postgres") and
// applies migrations.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	var (
		s   Store
		err error
	)
	switch driver {
	case "", "sqlite":
		s, err = NewSQLite(dsn)
	case "postgres":
		s, err = NewPostgres(ctx, dsn, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

const (
	runColumns      = "id, command, args, status, result, created_at, updated_at"
	defaultRunLimit = 100
)

// listRunsQuery renders filter as a runs query, newest first. bind formats
// the n-th (1-based) placeholder for the backend's dialect.
func listRunsQuery(filter RunFilter, bind func(n int) string) (string, []any) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return bind(len(args))
	}

	if filter.Status != "" {
		conds = append(conds, "status = "+arg(string(filter.Status)))
	}
	if filter.Command != "" {
		conds = append(conds, "command = "+arg(filter.Command))
	}
	if !filter.CreatedAfter.IsZero() {
		conds = append(conds, "created_at >= "+arg(filter.CreatedAfter.UTC()))
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + runColumns + " FROM runs")
	if len(conds) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultRunLimit
	}
	sb.WriteString(" ORDER BY created_at DESC LIMIT " + arg(limit))
	if filter.Offset > 0 {
		sb.WriteString(" OFFSET " + arg(filter.Offset))
	}
	return sb.String(), args
}

// runStatusFor derives the final run status from its result.
func runStatusFor(result *model.RunResult) model.RunStatus {
	if result != nil && result.Error != "" {
		return model.RunStatusFailed
	}
	return model.RunStatusComplete
}

// predictionRow flattens a prediction for the predictions table.
func predictionRow(runID string, p model.Prediction) []any {
	return []any{
		runID, p.Date, p.HomeTeam, p.AwayTeam, p.HomeStarter, p.AwayStarter,
		p.Probability, p.Predicted, p.YRFITier, p.NRFITier, p.YRFI,
	}
}

var predictionColumns = []string{
	"run_id", "game_date", "home_team", "away_team", "home_starter", "away_starter",
	"probability", "predicted", "yrfi_tier", "nrfi_tier", "yrfi",
}
