package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/yrfi-cli/internal/config"
	"github.com/sells-group/yrfi-cli/internal/metrics"
	"github.com/sells-group/yrfi-cli/internal/model"
	"github.com/sells-group/yrfi-cli/internal/predict"
	"github.com/sells-group/yrfi-cli/internal/store"
	"github.com/sells-group/yrfi-cli/internal/table"
)

const startersCSV = `,Mon 4/21,Tue 4/22,Wed 4/23
NYY,Cole (R),Rodon (L),Schmidt (R)
game,vs BOS,vs BOS,vs BOS
stats,2-1 2.10 ERA,1-0 3.00 ERA,0-0 3.50 ERA
BOS,Bello (R),Crawford (R),Houck (R)
game,@ NYY,@ NYY,@ NYY
stats,1-2 4.50 ERA,0-1 5.25 ERA,2-2 4.00 ERA
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Season: 2025,
		Data: config.DataConfig{
			Dir:          dir,
			Starters:     "starters.csv",
			Matchups:     "matchups.csv",
			Boxscores:    "boxscores.csv",
			WithStarters: "with_starters.csv",
			ModelInput:   "model_input.csv",
			WithERA:      "with_era.csv",
			Features:     "features.csv",
			Live:         "live.csv",
			Predictions:  "predictions.csv",
			Backtest:     "backtest.csv",
			Summary:      "summary.csv",
			Odds:         "odds.csv",
			OddsMerged:   "odds_merged.csv",
			Market:       "market.csv",
		},
		Model: config.ModelConfig{
			Dir:         filepath.Join(dir, "model"),
			ModelFile:   "model.json",
			EncoderFile: "encoder.yaml",
			Threshold:   0.5,
			BaseScore:   0.5,
		},
		Market: config.MarketConfig{TierOdds: []int{120, 105, -110, -125, -140}},
		Notify: config.NotifyConfig{MinEdge: -1, TopN: 5},
	}
}

func newTestPipeline(t *testing.T, cfg *config.Config, st store.Store, opts ...Option) *Pipeline {
	t.Helper()
	clock := func() time.Time { return time.Date(2025, 4, 23, 15, 0, 0, 0, time.UTC) }
	opts = append([]Option{WithMetrics(metrics.New()), WithClock(clock)}, opts...)
	return New(cfg, st, opts...)
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	return st
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func ip(v int) *int { return &v }

func seedData(t *testing.T, cfg *config.Config) {
	t.Helper()
	writeFile(t, cfg.Data.Path(cfg.Data.Starters), startersCSV)
	require.NoError(t, table.Write(cfg.Data.Path(cfg.Data.Boxscores), []model.Boxscore{
		{Date: "2025-04-21", AwayTeam: "Boston Red Sox", HomeTeam: "New York Yankees", AwayScore: ip(3), HomeScore: ip(5), Away1st: 1, YRFI: 1},
		{Date: "2025-04-22", AwayTeam: "Boston Red Sox", HomeTeam: "New York Yankees", AwayScore: ip(2), HomeScore: ip(1)},
		{Date: "2025-04-23", AwayTeam: "Boston Red Sox", HomeTeam: "New York Yankees"},
	}))
}

func run(t *testing.T, p *Pipeline, stages ...Stage) *model.RunResult {
	t.Helper()
	res, err := p.Run(context.Background(), "test", "", stages...)
	require.NoError(t, err)
	return res
}

func TestRunStopsOnFailure(t *testing.T) {
	st := newTestStore(t)
	p := newTestPipeline(t, testConfig(t), st)

	thirdRan := false
	res, err := p.Run(context.Background(), "daily", "--dry", []Stage{
		{Name: "one", Run: func(context.Context, string) (*model.PhaseResult, error) {
			return &model.PhaseResult{Rows: 3, Dropped: 1}, nil
		}},
		{Name: "two", Run: func(context.Context, string) (*model.PhaseResult, error) {
			return nil, eris.New("boom")
		}},
		{Name: "three", Run: func(context.Context, string) (*model.PhaseResult, error) {
			thirdRan = true
			return nil, nil
		}},
	}...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage two")
	assert.False(t, thirdRan)

	require.Len(t, res.Phases, 3)
	assert.Equal(t, model.PhaseStatusComplete, res.Phases[0].Status)
	assert.Equal(t, model.PhaseStatusFailed, res.Phases[1].Status)
	assert.Equal(t, "boom", res.Phases[1].Error)
	assert.Equal(t, model.PhaseStatusSkipped, res.Phases[2].Status)
	assert.Equal(t, 3, res.RowsWritten)
	assert.Equal(t, 1, res.RowsDropped)

	runs, err := st.ListRuns(context.Background(), store.RunFilter{Command: "daily"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusFailed, runs[0].Status)
	assert.Equal(t, "--dry", runs[0].Args)

	phases, err := st.ListPhases(context.Background(), runs[0].ID)
	require.NoError(t, err)
	assert.Len(t, phases, 2, "skipped stages never start a phase")
}

func TestRunCancelledMidStageIsFailed(t *testing.T) {
	st := newTestStore(t)
	p := newTestPipeline(t, testConfig(t), st)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	res, err := p.Run(ctx, "daily", "", []Stage{
		{Name: "scores", Run: func(ctx context.Context, _ string) (*model.PhaseResult, error) {
			cancel()
			return nil, ctx.Err()
		}},
		{Name: "features", Run: func(context.Context, string) (*model.PhaseResult, error) {
			return &model.PhaseResult{}, nil
		}},
	}...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context canceled")
	require.Len(t, res.Phases, 2)
	assert.Equal(t, model.PhaseStatusSkipped, res.Phases[1].Status)

	runs, err := st.ListRuns(context.Background(), store.RunFilter{Command: "daily"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusFailed, runs[0].Status)

	phases, err := st.ListPhases(context.Background(), runs[0].ID)
	require.NoError(t, err)
	require.Len(t, phases, 1)
	assert.Equal(t, model.PhaseStatusFailed, phases[0].Status)
}

func TestRunWithoutStore(t *testing.T) {
	p := newTestPipeline(t, testConfig(t), nil)
	res := run(t, p, Stage{Name: "only", Run: func(_ context.Context, runID string) (*model.PhaseResult, error) {
		assert.Empty(t, runID)
		return &model.PhaseResult{Rows: 1}, nil
	}})
	assert.Equal(t, 1, res.RowsWritten)
}

func TestNotifySkippedWithoutNotifier(t *testing.T) {
	p := newTestPipeline(t, testConfig(t), nil)
	res := run(t, p, p.Notify())
	assert.Equal(t, model.PhaseStatusSkipped, res.Phases[0].Status)
}

func TestMatchups(t *testing.T) {
	cfg := testConfig(t)
	seedData(t, cfg)
	p := newTestPipeline(t, cfg, nil)

	run(t, p, p.Matchups(time.Date(2025, 4, 21, 0, 0, 0, 0, time.UTC)))

	rows, err := table.Read[model.Matchup](cfg.Data.Path(cfg.Data.Matchups))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2025-04-21", rows[0].Date)
}

func TestFeatures(t *testing.T) {
	cfg := testConfig(t)
	seedData(t, cfg)
	p := newTestPipeline(t, cfg, nil)

	res := run(t, p, p.Features())
	assert.Equal(t, 3, res.Phases[0].Rows)

	rows, err := table.Read[model.FeatureRow](cfg.Data.Path(cfg.Data.Features))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	first := rows[0]
	assert.Equal(t, "2025-04-21", first.Date)
	assert.Equal(t, "Cole", first.HomeStarterClean)
	require.NotNil(t, first.HomeERA)
	assert.InDelta(t, 2.10, *first.HomeERA, 1e-9)
	require.NotNil(t, first.AwayERA)
	assert.InDelta(t, 4.50, *first.AwayERA, 1e-9)
	require.NotNil(t, first.AwayTeamAvg1st)
	assert.InDelta(t, 1.0/3.0, *first.AwayTeamAvg1st, 1e-9)
	require.NotNil(t, first.HomeGames)
	assert.Equal(t, 3, *first.HomeGames)
	require.NotNil(t, first.DayOfWeek)
	assert.Equal(t, 0, *first.DayOfWeek)
	assert.Equal(t, "L", rows[1].HomeHand)
	require.NotNil(t, rows[1].SameHand)
	assert.Equal(t, 0, *rows[1].SameHand)

	for _, name := range []string{cfg.Data.WithStarters, cfg.Data.ModelInput, cfg.Data.WithERA} {
		_, err := os.Stat(cfg.Data.Path(name))
		assert.NoError(t, err, name)
	}
}

func TestFeaturesMissingInput(t *testing.T) {
	p := newTestPipeline(t, testConfig(t), nil)
	_, err := p.Run(context.Background(), "features", "", p.Features())
	assert.Error(t, err)
}

func TestLiveAndAppendIdempotent(t *testing.T) {
	cfg := testConfig(t)
	seedData(t, cfg)
	p := newTestPipeline(t, cfg, nil)
	run(t, p, p.Features())

	// Drop the newest game from history so the live row is new.
	path := cfg.Data.Path(cfg.Data.Features)
	rows, err := table.Read[model.FeatureRow](path)
	require.NoError(t, err)
	require.NoError(t, table.Write(path, rows[:2]))

	day := time.Date(2025, 4, 23, 0, 0, 0, 0, time.UTC)
	res := run(t, p, p.Live(day, day), p.AppendLive(), p.AppendLive())
	assert.Equal(t, 1, res.Phases[0].Rows)
	assert.Equal(t, 1, res.Phases[1].Rows)
	assert.Equal(t, 0, res.Phases[2].Rows)
	assert.Equal(t, 1, res.Phases[2].Metadata["matched"])

	live, err := table.Read[model.FeatureRow](cfg.Data.Path(cfg.Data.Live))
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, "2025-04-23", live[0].Date)
	require.NotNil(t, live[0].HomeERA)
	assert.InDelta(t, 3.00, *live[0].HomeERA, 1e-9, "copied from the latest history row")

	all, err := table.Read[model.FeatureRow](path)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

type fakeSender struct{ texts []string }

func (f *fakeSender) Send(_ context.Context, text string) error {
	f.texts = append(f.texts, text)
	return nil
}

func saveArtifacts(t *testing.T, cfg *config.Config, rows []model.FeatureRow) {
	t.Helper()
	enc := predict.FitEncoder(rows)
	require.NoError(t, enc.Save(cfg.Model.EncoderPath()))
	m := &predict.Logistic{Coef: make([]float64, len(enc.FeatureNames()))}
	require.NoError(t, m.Save(cfg.Model.ModelPath()))
}

func TestPredictMarketNotify(t *testing.T) {
	cfg := testConfig(t)
	seedData(t, cfg)
	st := newTestStore(t)
	sender := &fakeSender{}
	p := newTestPipeline(t, cfg, st, WithNotifier(sender))

	run(t, p, p.Features())
	history, err := table.Read[model.FeatureRow](cfg.Data.Path(cfg.Data.Features))
	require.NoError(t, err)
	saveArtifacts(t, cfg, history)

	xlsxPath := filepath.Join(cfg.Data.Dir, "predictions.xlsx")
	res := run(t, p,
		p.Predict(PredictOptions{Input: cfg.Data.Path(cfg.Data.Features), XLSX: xlsxPath}),
		p.Market(model.OddsSourceTier, ""),
		p.Notify(),
	)
	assert.Equal(t, 3, res.Phases[0].Rows)
	assert.Equal(t, int64(3), res.Phases[0].Metadata["saved"])

	preds, err := table.Read[model.Prediction](cfg.Data.Path(cfg.Data.Predictions))
	require.NoError(t, err)
	require.Len(t, preds, 3)
	assert.InDelta(t, 0.5, preds[0].Probability, 1e-9)
	assert.Equal(t, 1, preds[0].Predicted)
	assert.Equal(t, 3, preds[0].YRFITier)
	_, err = os.Stat(xlsxPath)
	assert.NoError(t, err)

	edges, err := table.Read[model.Edge](cfg.Data.Path(cfg.Data.Market))
	require.NoError(t, err)
	require.Len(t, edges, 3)
	assert.Equal(t, model.OddsSourceTier, edges[0].OddsSource)
	require.NotNil(t, edges[0].PredictedEdge)
	assert.InDelta(t, -0.024, *edges[0].PredictedEdge, 1e-9)

	require.Len(t, sender.texts, 1)
	assert.Contains(t, sender.texts[0], "YRFI edges 2025-04-23")
	assert.Contains(t, sender.texts[0], "Boston Red Sox @ New York Yankees")
}

func TestPredictMissingModel(t *testing.T) {
	cfg := testConfig(t)
	seedData(t, cfg)
	p := newTestPipeline(t, cfg, nil)
	_, err := p.Run(context.Background(), "predict", "", p.Features(), p.Predict(PredictOptions{}))
	assert.Error(t, err)
}

func TestMarketSourceRequiresOddsColumn(t *testing.T) {
	cfg := testConfig(t)
	p := newTestPipeline(t, cfg, nil)
	input := filepath.Join(cfg.Data.Dir, "quotes.csv")
	writeFile(t, input, "date,away_team,home_team,yrfi_probability\n2025-04-21,Boston Red Sox,New York Yankees,0.6\n")

	_, err := p.Run(context.Background(), "market", "", p.Market(model.OddsSourceMarket, input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "yrfi_odds")
}

func TestMarketSourceQuoted(t *testing.T) {
	cfg := testConfig(t)
	p := newTestPipeline(t, cfg, nil)
	input := filepath.Join(cfg.Data.Dir, "quotes.csv")
	writeFile(t, input, "date,away_team,home_team,yrfi_probability,yrfi_odds\n"+
		"2025-04-21,bos,nyy,0.6,-150\n"+
		"2025-04-22,bos,nyy,0.6,n/a\n")

	res := run(t, p, p.Market(model.OddsSourceMarket, input))
	assert.Equal(t, 2, res.Phases[0].Rows)
	assert.Equal(t, 1, res.Phases[0].Dropped)

	edges, err := table.Read[model.Edge](cfg.Data.Path(cfg.Data.Market))
	require.NoError(t, err)
	require.Len(t, edges, 2)
	require.NotNil(t, edges[0].PredictedEdge)
	assert.InDelta(t, 0.0, *edges[0].PredictedEdge, 1e-9)
	assert.Nil(t, edges[1].ImpliedProb)
}

func TestMergeOddsRequiresOddsFile(t *testing.T) {
	cfg := testConfig(t)
	seedData(t, cfg)
	p := newTestPipeline(t, cfg, nil)

	_, err := p.Run(context.Background(), "odds merge", "", p.MergeOdds())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "odds table is required")
}

func TestMergeOdds(t *testing.T) {
	cfg := testConfig(t)
	seedData(t, cfg)
	p := newTestPipeline(t, cfg, nil)
	require.NoError(t, table.Write(cfg.Data.Path(cfg.Data.Odds), []model.Odds{
		{Date: "2025-04-21", HomeTeam: "New York Yankees", AwayTeam: "Boston Red Sox", Bookmaker: "fanduel"},
		{Date: "2025-05-01", HomeTeam: "New York Yankees", AwayTeam: "Boston Red Sox", Bookmaker: "fanduel"},
	}))

	res := run(t, p, p.MergeOdds())
	assert.Equal(t, 2, res.Phases[0].Rows)
	assert.Equal(t, 1, res.Phases[0].Metadata["without_score"])
}

const boxPage = `<html><body>
<h2 class="ScoreCell__TeamName">Red Sox</h2><div class="Gamestrip__Record">12-8, 5-4 Away</div><div class="Gamestrip__Score">3</div>
<h2 class="ScoreCell__TeamName">Yankees</h2><div class="Gamestrip__Record">10-10, 6-3 Home</div><div class="Gamestrip__Score">5</div>
<table class="Table Table--align-center">
 <thead><tr><th></th><th>1</th><th>2</th></tr></thead>
 <tbody><tr><td>BOS</td><td>%d</td><td>0</td></tr><tr><td>NYY</td><td>0</td><td>1</td></tr></tbody>
</table>
</body></html>`

func TestScores(t *testing.T) {
	var away1 atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/scoreboard" && r.URL.Query().Get("dates") == "20250421":
			_, _ = w.Write([]byte(`{"events":[{"id":"401"}]}`))
		case r.URL.Path == "/scoreboard":
			_, _ = w.Write([]byte(`{"events":[]}`))
		case strings.HasPrefix(r.URL.Path, "/box/401"):
			_, _ = fmt.Fprintf(w, boxPage, away1.Load())
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.Scrape = config.ScrapeConfig{
		ScoreboardURL: srv.URL + "/scoreboard",
		BoxscoreURL:   srv.URL + "/box/%s",
		Renderer:      "http",
	}
	p := newTestPipeline(t, cfg, nil)

	day := time.Date(2025, 4, 21, 0, 0, 0, 0, time.UTC)
	res := run(t, p, p.Scores(day, day.AddDate(0, 0, 1)))
	assert.Equal(t, 1, res.Phases[0].Rows)

	// A rescrape replaces the game rather than duplicating it.
	away1.Store(2)
	run(t, p, p.Scores(day, day))

	rows, err := table.Read[model.Boxscore](cfg.Data.Path(cfg.Data.Boxscores))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Boston Red Sox", rows[0].AwayTeam)
	assert.Equal(t, 2, rows[0].Away1st)
	assert.Equal(t, 1, rows[0].YRFI)
}

func TestNewScraperUnknownRenderer(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scrape.Renderer = "lynx"
	_, err := NewScraper(cfg, nil)
	assert.Error(t, err)
}

func TestDailyStageOrder(t *testing.T) {
	p := newTestPipeline(t, testConfig(t), nil)
	var names []string
	for _, st := range p.Daily() {
		names = append(names, st.Name)
	}
	assert.Equal(t, []string{"matchups", "scores", "features", "live", "append", "predict", "market", "notify"}, names)
}
