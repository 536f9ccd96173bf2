// Package pipeline runs the batch stages as recorded runs. Every stage is a
// phase of its run; stages execute in order and the first failure stops
// the chain.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/yrfi-cli/internal/boxscore"
	"github.com/sells-group/yrfi-cli/internal/config"
	"github.com/sells-group/yrfi-cli/internal/metrics"
	"github.com/sells-group/yrfi-cli/internal/model"
	"github.com/sells-group/yrfi-cli/internal/notify"
	"github.com/sells-group/yrfi-cli/internal/odds"
	"github.com/sells-group/yrfi-cli/internal/store"
)

// Stage is one named step. runID identifies the run it executes under.
type Stage struct {
	Name string
	Run  func(ctx context.Context, runID string) (*model.PhaseResult, error)
}

// Pipeline orchestrates the stages against the configured data directory.
type Pipeline struct {
	cfg      *config.Config
	store    store.Store
	metrics  *metrics.Metrics
	scraper  *boxscore.Scraper
	odds     *odds.Client
	notifier notify.Sender
	now      func() time.Time
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithScraper replaces the boxscore scraper built from config.
func WithScraper(s *boxscore.Scraper) Option { return func(p *Pipeline) { p.scraper = s } }

// WithOddsClient replaces the odds client built from config.
func WithOddsClient(c *odds.Client) Option { return func(p *Pipeline) { p.odds = c } }

// WithNotifier sets the sender used by the notify stage.
func WithNotifier(n notify.Sender) Option { return func(p *Pipeline) { p.notifier = n } }

// WithMetrics replaces the default metrics registry.
func WithMetrics(m *metrics.Metrics) Option { return func(p *Pipeline) { p.metrics = m } }

// WithClock overrides the clock used for "today".
func WithClock(now func() time.Time) Option { return func(p *Pipeline) { p.now = now } }

// New creates a Pipeline. st may be nil, in which case runs are not
// recorded and nothing is cached.
func New(cfg *config.Config, st store.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:     cfg,
		store:   st,
		metrics: metrics.Default(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Today returns the current date at midnight UTC.
func (p *Pipeline) Today() time.Time {
	y, m, d := p.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Run records a run for command and executes stages in order. A failed
// stage fails the run; later stages are reported as skipped.
func (p *Pipeline) Run(ctx context.Context, command, args string, stages ...Stage) (*model.RunResult, error) {
	log := zap.L().With(zap.String("command", command))
	log.Info("pipeline: starting run", zap.Int("stages", len(stages)))

	result := &model.RunResult{}

	runID := ""
	if p.store != nil {
		run, err := p.store.CreateRun(ctx, command, args)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: create run")
		}
		runID = run.ID
		log = log.With(zap.String("run_id", runID))
	}

	// Run bookkeeping outlives cancellation so an interrupted run is still
	// closed out as failed.
	storeCtx := context.WithoutCancel(ctx)

	trackPhase := func(st Stage) (*model.PhaseResult, error) {
		var phase *model.RunPhase
		if p.store != nil {
			ph, phaseErr := p.store.CreatePhase(storeCtx, runID, st.Name)
			if phaseErr != nil {
				log.Warn("pipeline: failed to create phase", zap.String("phase", st.Name), zap.Error(phaseErr))
			}
			phase = ph
		}

		start := time.Now()
		phaseResult, fnErr := st.Run(ctx, runID)
		elapsed := time.Since(start)
		duration := elapsed.Milliseconds()

		if phaseResult == nil {
			phaseResult = &model.PhaseResult{}
		}
		phaseResult.Name = st.Name
		phaseResult.Duration = duration

		switch {
		case fnErr != nil:
			phaseResult.Status = model.PhaseStatusFailed
			phaseResult.Error = fnErr.Error()
			log.Error("pipeline: phase failed",
				zap.String("phase", st.Name),
				zap.Int64("duration_ms", duration),
				zap.Error(fnErr),
			)
		case phaseResult.Status == model.PhaseStatusSkipped:
			log.Info("pipeline: phase skipped", zap.String("phase", st.Name))
		default:
			phaseResult.Status = model.PhaseStatusComplete
			log.Info("pipeline: phase complete",
				zap.String("phase", st.Name),
				zap.Int64("duration_ms", duration),
				zap.Int("rows", phaseResult.Rows),
				zap.Int("dropped", phaseResult.Dropped),
			)
		}

		p.metrics.StageDone(st.Name, fnErr == nil, elapsed)
		p.metrics.RowsWritten(st.Name, phaseResult.Rows)
		p.metrics.RowsDropped(st.Name, "incomplete", phaseResult.Dropped)

		if phase != nil {
			if err := p.store.CompletePhase(storeCtx, phase.ID, phaseResult); err != nil {
				log.Warn("pipeline: failed to complete phase", zap.String("phase", st.Name), zap.Error(err))
			}
		}
		result.Phases = append(result.Phases, *phaseResult)
		return phaseResult, fnErr
	}

	var runErr error
	for i, st := range stages {
		if err := ctx.Err(); err != nil {
			runErr = eris.Wrap(err, "pipeline: cancelled")
		}
		if runErr != nil {
			for _, rest := range stages[i:] {
				result.Phases = append(result.Phases, model.PhaseResult{Name: rest.Name, Status: model.PhaseStatusSkipped})
			}
			break
		}
		pr, err := trackPhase(st)
		result.RowsWritten += pr.Rows
		result.RowsDropped += pr.Dropped
		if err != nil {
			runErr = eris.Wrapf(err, "pipeline: stage %s", st.Name)
		}
	}
	if runErr != nil {
		result.Error = runErr.Error()
	}

	if p.store != nil {
		if err := p.store.UpdateRunResult(storeCtx, runID, result); err != nil {
			log.Warn("pipeline: failed to save run result", zap.Error(err))
		}
	}

	log.Info("pipeline: run finished",
		zap.Int("rows_written", result.RowsWritten),
		zap.Int("rows_dropped", result.RowsDropped),
		zap.Bool("failed", runErr != nil),
	)
	return result, runErr
}
