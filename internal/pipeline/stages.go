package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/yrfi-cli/internal/boxscore"
	"github.com/sells-group/yrfi-cli/internal/features"
	"github.com/sells-group/yrfi-cli/internal/fetcher"
	"github.com/sells-group/yrfi-cli/internal/market"
	"github.com/sells-group/yrfi-cli/internal/model"
	"github.com/sells-group/yrfi-cli/internal/notify"
	"github.com/sells-group/yrfi-cli/internal/odds"
	"github.com/sells-group/yrfi-cli/internal/predict"
	"github.com/sells-group/yrfi-cli/internal/starters"
	"github.com/sells-group/yrfi-cli/internal/table"
)

func (p *Pipeline) path(name string) string { return p.cfg.Data.Path(name) }

// cache returns the store as a response cache, or nil without a store.
func (p *Pipeline) cache() fetcher.Cache {
	if p.store == nil {
		return nil
	}
	return p.store
}

func (p *Pipeline) readGrid() (*starters.Grid, error) {
	rows, err := fetcher.ReadGrid(p.path(p.cfg.Data.Starters))
	if err != nil {
		return nil, err
	}
	return starters.Parse(rows, p.cfg.Season), nil
}

// Matchups writes the games scheduled on days from the projected-starters
// table.
func (p *Pipeline) Matchups(days ...time.Time) Stage {
	return Stage{Name: "matchups", Run: func(ctx context.Context, _ string) (*model.PhaseResult, error) {
		grid, err := p.readGrid()
		if err != nil {
			return nil, err
		}
		rows := grid.Matchups(days...)
		if err := table.Write(p.path(p.cfg.Data.Matchups), rows); err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			zap.L().Warn("pipeline: no matchups found for the requested days")
		}
		return &model.PhaseResult{Rows: len(rows)}, nil
	}}
}

// Scores scrapes boxscores for [from, to] and merges them into the score
// history. Without new games the history file is left untouched.
func (p *Pipeline) Scores(from, to time.Time) Stage {
	return Stage{Name: "scores", Run: func(ctx context.Context, _ string) (*model.PhaseResult, error) {
		if p.scraper == nil {
			s, err := NewScraper(p.cfg, p.cache())
			if err != nil {
				return nil, err
			}
			p.scraper = s
		}

		path := p.path(p.cfg.Data.Boxscores)
		existing, found, err := table.ReadIfExists[model.Boxscore](path)
		if err != nil {
			return nil, err
		}
		if found {
			zap.L().Info("pipeline: loaded score history", zap.Int("rows", len(existing)))
		}

		fresh, err := p.scraper.ScrapeRange(ctx, from, to)
		if err != nil {
			return nil, err
		}
		if len(fresh) == 0 {
			zap.L().Info("pipeline: no new games found")
			return &model.PhaseResult{Metadata: map[string]any{"history": len(existing)}}, nil
		}

		combined := boxscore.MergeHistory(existing, fresh)
		if err := table.Write(path, combined); err != nil {
			return nil, err
		}
		return &model.PhaseResult{
			Rows:     len(fresh),
			Metadata: map[string]any{"history": len(combined)},
		}, nil
	}}
}

// Features rebuilds the modeling table from the full score history and the
// projected-starters table, writing every intermediate table on the way.
func (p *Pipeline) Features() Stage {
	return Stage{Name: "features", Run: func(ctx context.Context, _ string) (*model.PhaseResult, error) {
		d := p.cfg.Data
		box, err := table.Read[model.Boxscore](p.path(d.Boxscores))
		if err != nil {
			return nil, err
		}
		grid, err := p.readGrid()
		if err != nil {
			return nil, err
		}

		joined := features.JoinStarters(box, grid.Starters())
		if err := table.Write(p.path(d.WithStarters), joined); err != nil {
			return nil, err
		}

		rows, stats := features.Prep(joined)
		if err := table.Write(p.path(d.ModelInput), rows); err != nil {
			return nil, err
		}

		withERA, nulls := features.AddERA(rows, grid.ERA())
		if err := table.Write(p.path(d.WithERA), withERA); err != nil {
			return nil, err
		}

		final := features.TeamRates(box).Apply(withERA)
		for i := range final {
			features.Derive(&final[i])
		}
		if err := table.Write(p.path(d.Features), final); err != nil {
			return nil, err
		}

		p.metrics.RowsDropped("features", "missing_starter", stats.MissingStarter)
		p.metrics.RowsDropped("features", "placeholder", stats.Placeholder)
		p.metrics.RowsDropped("features", "missing_hand", stats.MissingHand)
		p.metrics.RowsDropped("features", "duplicate", stats.Duplicate)

		return &model.PhaseResult{
			Rows: len(final),
			Metadata: map[string]any{
				"boxscores":      len(box),
				"prep_dropped":   stats.Dropped(),
				"home_era_nulls": nulls.Home,
				"away_era_nulls": nulls.Away,
			},
		}, nil
	}}
}

// Live builds feature rows for the games dated in [from, to] from the
// latest history of each pairing.
func (p *Pipeline) Live(from, to time.Time) Stage {
	return Stage{Name: "live", Run: func(_ context.Context, _ string) (*model.PhaseResult, error) {
		d := p.cfg.Data
		box, err := table.Read[model.Boxscore](p.path(d.Boxscores))
		if err != nil {
			return nil, err
		}
		history, err := table.Read[model.FeatureRow](p.path(d.Features))
		if err != nil {
			return nil, err
		}

		rows, dropped := features.BuildLive(box, history, features.TeamRates(box), model.FormatDate(from), model.FormatDate(to))
		if err := table.Write(p.path(d.Live), rows); err != nil {
			return nil, err
		}
		return &model.PhaseResult{Rows: len(rows), Dropped: dropped}, nil
	}}
}

// AppendLive appends live rows absent from the feature table.
func (p *Pipeline) AppendLive() Stage {
	return Stage{Name: "append", Run: func(_ context.Context, _ string) (*model.PhaseResult, error) {
		d := p.cfg.Data
		history, err := table.Read[model.FeatureRow](p.path(d.Features))
		if err != nil {
			return nil, err
		}
		live, err := table.Read[model.FeatureRow](p.path(d.Live))
		if err != nil {
			return nil, err
		}

		out, res := features.AppendLive(history, live)
		if res.Appended > 0 {
			if err := table.Write(p.path(d.Features), out); err != nil {
				return nil, err
			}
		}
		return &model.PhaseResult{
			Rows:     res.Appended,
			Metadata: map[string]any{"matched": res.Matched},
		}, nil
	}}
}

// PredictOptions selects the rows to score and where the output goes.
// Empty paths take the configured defaults.
type PredictOptions struct {
	Input  string
	Output string
	XLSX   string
	Window predict.Window
}

func (p *Pipeline) loadPredictor() (*predict.Predictor, error) {
	m := p.cfg.Model
	return predict.Load(m.EncoderPath(), m.ModelPath(), m.BaseScore, m.Threshold)
}

// Predict scores feature rows and writes the prediction table. Scored rows
// are also saved to the store.
func (p *Pipeline) Predict(opts PredictOptions) Stage {
	return Stage{Name: "predict", Run: func(ctx context.Context, runID string) (*model.PhaseResult, error) {
		input := opts.Input
		if input == "" {
			input = p.path(p.cfg.Data.Live)
		}
		output := opts.Output
		if output == "" {
			output = p.path(p.cfg.Data.Predictions)
		}

		pr, err := p.loadPredictor()
		if err != nil {
			return nil, err
		}
		rows, err := table.Read[model.FeatureRow](input)
		if err != nil {
			return nil, err
		}

		preds, dropped := pr.Score(rows, opts.Window)
		if err := table.Write(output, preds); err != nil {
			return nil, err
		}
		if opts.XLSX != "" {
			if err := predict.ExportXLSX(opts.XLSX, preds); err != nil {
				return nil, err
			}
		}

		meta := map[string]any{"input": input, "output": output}
		if p.store != nil && len(preds) > 0 {
			n, err := p.store.SavePredictions(ctx, runID, preds)
			if err != nil {
				zap.L().Warn("pipeline: failed to save predictions", zap.Error(err))
			}
			meta["saved"] = n
		}
		return &model.PhaseResult{Rows: len(preds), Dropped: dropped, Metadata: meta}, nil
	}}
}

// Train fits the encoder and a logistic model on the feature table and
// saves both artifacts. The fitted result is passed to report.
func (p *Pipeline) Train(opts predict.TrainOptions, report func(*predict.TrainResult)) Stage {
	return Stage{Name: "train", Run: func(_ context.Context, _ string) (*model.PhaseResult, error) {
		rows, err := table.Read[model.FeatureRow](p.path(p.cfg.Data.Features))
		if err != nil {
			return nil, err
		}
		for i := range rows {
			features.Derive(&rows[i])
		}

		res, err := predict.Train(rows, opts)
		if err != nil {
			return nil, err
		}
		if err := res.Encoder.Save(p.cfg.Model.EncoderPath()); err != nil {
			return nil, err
		}
		if err := res.Model.Save(p.cfg.Model.ModelPath()); err != nil {
			return nil, err
		}
		if report != nil {
			report(res)
		}
		return &model.PhaseResult{
			Rows:    res.Train + res.Test,
			Dropped: len(rows) - res.Train - res.Test,
			Metadata: map[string]any{
				"accuracy": res.Eval.Accuracy,
				"roc_auc":  res.Eval.ROCAUC,
				"train":    res.Train,
				"test":     res.Test,
			},
		}, nil
	}}
}

// Backtest scores the historical feature table inside w, writes the scored
// rows and a one-row summary. The summary is passed to report.
func (p *Pipeline) Backtest(w predict.Window, report func(model.BacktestSummary)) Stage {
	return Stage{Name: "backtest", Run: func(ctx context.Context, _ string) (*model.PhaseResult, error) {
		d := p.cfg.Data
		pr, err := p.loadPredictor()
		if err != nil {
			return nil, err
		}
		rows, err := table.Read[model.FeatureRow](p.path(d.Features))
		if err != nil {
			return nil, err
		}

		preds, dropped := pr.Score(rows, w)
		if err := table.Write(p.path(d.Backtest), preds); err != nil {
			return nil, err
		}
		summary := predict.Summarize(preds)
		if err := table.Write(p.path(d.Summary), []model.BacktestSummary{summary}); err != nil {
			return nil, err
		}
		if report != nil {
			report(summary)
		}
		return &model.PhaseResult{
			Rows:    len(preds),
			Dropped: dropped,
			Metadata: map[string]any{
				"accuracy": summary.Accuracy,
				"roc_auc":  summary.ROCAUC,
			},
		}, nil
	}}
}

// FetchOdds scrapes odds for [from, to] into the odds table.
func (p *Pipeline) FetchOdds(from, to time.Time, updateExisting bool) Stage {
	return Stage{Name: "odds_fetch", Run: func(ctx context.Context, _ string) (*model.PhaseResult, error) {
		if p.odds == nil {
			p.odds = NewOddsClient(p.cfg, p.cache())
		}
		path := p.path(p.cfg.Data.Odds)
		existing, _, err := table.ReadIfExists[model.Odds](path)
		if err != nil {
			return nil, err
		}

		rows, res, err := odds.ScrapeRange(ctx, p.odds, existing, from, to, updateExisting)
		if err != nil {
			return nil, err
		}
		if res.NewRows > 0 {
			if err := table.Write(path, rows); err != nil {
				return nil, err
			}
		}
		for i := 0; i < res.Failed; i++ {
			p.metrics.ScrapeError("odds")
		}
		return &model.PhaseResult{
			Rows: res.NewRows,
			Metadata: map[string]any{
				"days":    res.Days,
				"skipped": res.Skipped,
				"failed":  res.Failed,
				"total":   len(rows),
			},
		}, nil
	}}
}

// MergeOdds left-joins the odds table with the score history. A missing
// odds table is an error.
func (p *Pipeline) MergeOdds() Stage {
	return Stage{Name: "odds_merge", Run: func(_ context.Context, _ string) (*model.PhaseResult, error) {
		d := p.cfg.Data
		rows, err := table.Read[model.Odds](p.path(d.Odds))
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: odds table is required for the merge")
		}
		box, err := table.Read[model.Boxscore](p.path(d.Boxscores))
		if err != nil {
			return nil, err
		}

		merged := odds.MergeScores(rows, box)
		if err := table.Write(p.path(d.OddsMerged), merged); err != nil {
			return nil, err
		}
		unmatched := 0
		for _, m := range merged {
			if m.YRFI == nil {
				unmatched++
			}
		}
		return &model.PhaseResult{Rows: len(merged), Metadata: map[string]any{"without_score": unmatched}}, nil
	}}
}

// Market prices predictions by tier proxy odds (source "tier") or by the
// quoted yrfi_odds column of input (source "market").
func (p *Pipeline) Market(source, input string) Stage {
	return Stage{Name: "market", Run: func(_ context.Context, _ string) (*model.PhaseResult, error) {
		if input == "" {
			input = p.path(p.cfg.Data.Predictions)
		}

		var edges []model.Edge
		switch source {
		case model.OddsSourceTier, "":
			tiers, err := odds.NewTierOdds(p.cfg.Market.TierOdds)
			if err != nil {
				return nil, err
			}
			preds, err := table.Read[model.Prediction](input)
			if err != nil {
				return nil, err
			}
			edges = market.FromTiers(preds, tiers)
		case model.OddsSourceMarket:
			quotes, err := market.ReadQuotes(input)
			if err != nil {
				return nil, err
			}
			edges = market.FromQuotes(quotes)
		default:
			return nil, eris.Errorf("pipeline: unknown market source %q", source)
		}

		if err := table.Write(p.path(p.cfg.Data.Market), edges); err != nil {
			return nil, err
		}
		priced := 0
		for _, e := range edges {
			if e.PredictedEdge != nil {
				priced++
			}
		}
		return &model.PhaseResult{
			Rows:     len(edges),
			Dropped:  len(edges) - priced,
			Metadata: map[string]any{"source": source},
		}, nil
	}}
}

// Notify sends the top edges of the market table. Without a notifier the
// stage is skipped.
func (p *Pipeline) Notify() Stage {
	return Stage{Name: "notify", Run: func(ctx context.Context, _ string) (*model.PhaseResult, error) {
		if p.notifier == nil {
			return &model.PhaseResult{Status: model.PhaseStatusSkipped}, nil
		}
		edges, err := table.Read[model.Edge](p.path(p.cfg.Data.Market))
		if err != nil {
			return nil, err
		}

		top := market.Top(edges, p.cfg.Notify.MinEdge, p.cfg.Notify.TopN)
		if err := p.notifier.Send(ctx, notify.Format(model.FormatDate(p.Today()), top)); err != nil {
			return nil, err
		}
		return &model.PhaseResult{Rows: len(top)}, nil
	}}
}

// Daily is the end-to-end chain: matchups for today and tomorrow, scores
// from yesterday through tomorrow, features, live rows for the live
// window, prediction of the live rows, tier-priced market comparison and
// notification.
func (p *Pipeline) Daily() []Stage {
	today := p.Today()
	yesterday := today.AddDate(0, 0, -1)
	tomorrow := today.AddDate(0, 0, 1)
	liveTo := today.AddDate(0, 0, max(p.cfg.Data.LiveWindowDay, 0))

	return []Stage{
		p.Matchups(today, tomorrow),
		p.Scores(yesterday, tomorrow),
		p.Features(),
		p.Live(today, liveTo),
		p.AppendLive(),
		p.Predict(PredictOptions{}),
		p.Market(model.OddsSourceTier, ""),
		p.Notify(),
	}
}
