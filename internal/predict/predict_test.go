package predict

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/yrfi-cli/internal/model"
)

func fp(v float64) *float64 { return &v }
func ip(v int) *int         { return &v }

func row(date, away, home, ah, hh string, homeERA float64, yrfi int) model.FeatureRow {
	return model.FeatureRow{
		Date: date, AwayTeam: away, HomeTeam: home, AwayHand: ah, HomeHand: hh,
		HomeERA: fp(homeERA), AwayERA: fp(3.0),
		HomeTeamAvg1st: fp(0.5), AwayTeamAvg1st: fp(0.6),
		YRFI: yrfi, Away1st: yrfi,
	}
}

func TestTier(t *testing.T) {
	cases := map[float64]int{-0.1: 1, 0: 1, 0.19: 1, 0.2: 2, 0.39: 2, 0.4: 3, 0.6: 4, 0.79: 4, 0.8: 5, 1: 5, 1.2: 5}
	for p, want := range cases {
		assert.Equal(t, want, Tier(p), "p=%v", p)
	}

	prev := Tier(0)
	for p := 0.0; p <= 1.0; p += 0.01 {
		cur := Tier(p)
		assert.GreaterOrEqual(t, cur, prev)
		assert.True(t, cur >= 1 && cur <= 5)
		prev = cur
	}
	assert.Equal(t, "🔥🔥🔥", Fire(3))
	assert.Equal(t, "", Fire(0))
}

func TestEncoder(t *testing.T) {
	rows := []model.FeatureRow{
		row("2025-04-21", "B", "A", "R", "L", 2, 1),
		row("2025-04-21", "A", "C", "L", "R", 2, 0),
	}
	enc := FitEncoder(rows)
	require.Len(t, enc.Columns, 4)
	assert.Equal(t, []string{"A", "B"}, enc.Columns[0].Categories)
	assert.Equal(t, []string{"A", "C"}, enc.Columns[1].Categories)
	assert.Equal(t, 8, enc.Width())
	assert.Len(t, enc.FeatureNames(), 14)

	x := enc.Transform(model.FeatureRow{AwayTeam: "B", HomeTeam: "Unknown", AwayHand: "R", HomeHand: "L"})
	assert.Equal(t, []float64{0, 1, 0, 0, 0, 1, 1, 0}, x, "unknown category encodes as zeros")

	path := filepath.Join(t.TempDir(), "enc.yaml")
	require.NoError(t, enc.Save(path))
	loaded, err := LoadEncoder(path)
	require.NoError(t, err)
	assert.Equal(t, x, loaded.Transform(model.FeatureRow{AwayTeam: "B", HomeTeam: "Unknown", AwayHand: "R", HomeHand: "L"}))
}

func TestVectorRequiresNumerics(t *testing.T) {
	enc := FitEncoder(nil)
	_, ok := enc.Vector(model.FeatureRow{})
	assert.False(t, ok)

	r := row("2025-04-21", "A", "B", "L", "R", 2, 0)
	r.DayOfWeek, r.SameHand = ip(0), ip(0)
	v, ok := enc.Vector(r)
	require.True(t, ok)
	assert.Equal(t, []float64{2, 3, 0.5, 0.6, 0, 0}, v)
}

func TestLoadClassifierTrees(t *testing.T) {
	dump := `[
	  {"nodeid":0,"split":"f0","split_condition":2.5,"yes":1,"no":2,"missing":1,
	   "children":[{"nodeid":1,"leaf":-1.0},{"nodeid":2,"leaf":1.0}]},
	  {"nodeid":0,"split":"home_era","split_condition":4,"yes":1,"no":2,"missing":2,
	   "children":[{"nodeid":1,"leaf":0.5},{"nodeid":2,"leaf":-0.5}]}
	]`
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(dump), 0o644))

	clf, err := LoadClassifier(path, 0.5, []string{"home_era"})
	require.NoError(t, err)

	assert.InDelta(t, sigmoid(-0.5), clf.Predict([]float64{1}), 1e-9)
	assert.InDelta(t, sigmoid(1.5), clf.Predict([]float64{3}), 1e-9)
	assert.InDelta(t, sigmoid(0.5), clf.Predict([]float64{5}), 1e-9)
	assert.InDelta(t, sigmoid(-1.5), clf.Predict([]float64{math.NaN()}), 1e-9, "missing follows the missing branch")
}

func TestLoadClassifierLogistic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	m := &Logistic{Intercept: 0.1, Coef: []float64{1, -1}}
	require.NoError(t, m.Save(path))

	clf, err := LoadClassifier(path, 0.5, []string{"a", "b"})
	require.NoError(t, err)
	assert.InDelta(t, sigmoid(0.1+2-1), clf.Predict([]float64{2, 1}), 1e-9)

	_, err = LoadClassifier(path, 0.5, []string{"a"})
	assert.Error(t, err, "coefficient count must match the encoder")
}

func TestLoadClassifierErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadClassifier(filepath.Join(dir, "missing.json"), 0.5, nil)
	assert.Error(t, err)

	path := filepath.Join(dir, "other.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"kind":"forest"}`), 0o644))
	_, err = LoadClassifier(path, 0.5, nil)
	assert.Error(t, err)
}

func TestLoadMissingArtifacts(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "enc.yaml"), filepath.Join(dir, "m.json"), 0.5, 0.5)
	assert.Error(t, err)
}

type constClassifier float64

func (c constClassifier) Predict([]float64) float64 { return float64(c) }

func TestScore(t *testing.T) {
	rows := []model.FeatureRow{
		row("2025-04-20", "A", "B", "L", "R", 2, 1),
		row("2025-04-21", "A", "B", "L", "L", 2, 0),
		{Date: "2025-04-21", AwayTeam: "C", HomeTeam: "D"},
		row("2025-04-25", "A", "B", "L", "R", 2, 0),
	}
	p := &Predictor{Encoder: FitEncoder(rows), Classifier: constClassifier(0.72), Threshold: 0.5}

	preds, dropped := p.Score(rows, Window{From: "2025-04-21", To: "2025-04-22"})
	require.Len(t, preds, 1)
	assert.Equal(t, 1, dropped)

	got := preds[0]
	assert.Equal(t, "2025-04-21", got.Date)
	assert.InDelta(t, 0.72, got.Probability, 1e-9)
	assert.Equal(t, 1, got.Predicted)
	assert.Equal(t, 4, got.YRFITier)
	assert.Equal(t, 2, got.NRFITier)
	assert.Equal(t, "🔥🔥🔥🔥", got.YRFIFire)
	assert.Equal(t, 1, *got.SameHand)
	assert.Equal(t, 0, *got.DayOfWeek)

	all, _ := p.Score(rows, Window{})
	assert.Len(t, all, 3)
}

func TestStratifiedSplit(t *testing.T) {
	y := make([]int, 100)
	for i := range 30 {
		y[i] = 1
	}
	train, test := StratifiedSplit(y, 0.2, 42)
	assert.Len(t, test, 20)
	assert.Len(t, train, 80)

	pos := 0
	for _, i := range test {
		pos += y[i]
	}
	assert.Equal(t, 6, pos, "class balance preserved")

	train2, test2 := StratifiedSplit(y, 0.2, 42)
	assert.Equal(t, train, train2)
	assert.Equal(t, test, test2)
}

func TestROCAUC(t *testing.T) {
	assert.InDelta(t, 1.0, ROCAUC([]int{0, 0, 1, 1}, []float64{0.1, 0.2, 0.8, 0.9}), 1e-9)
	assert.InDelta(t, 0.0, ROCAUC([]int{1, 1, 0, 0}, []float64{0.1, 0.2, 0.8, 0.9}), 1e-9)
	assert.InDelta(t, 0.5, ROCAUC([]int{0, 1}, []float64{0.5, 0.5}), 1e-9)
	assert.InDelta(t, 0.75, ROCAUC([]int{0, 0, 1, 1}, []float64{0.1, 0.4, 0.35, 0.8}), 1e-9)
	assert.True(t, math.IsNaN(ROCAUC([]int{1, 1}, []float64{0.1, 0.2})))
}

func TestSummarize(t *testing.T) {
	mk := func(yrfi, pred int, p float64) model.Prediction {
		return model.Prediction{FeatureRow: model.FeatureRow{YRFI: yrfi}, Predicted: pred, Probability: p}
	}
	s := Summarize([]model.Prediction{
		mk(1, 1, 0.8),
		mk(1, 0, 0.4),
		mk(0, 1, 0.6),
		mk(0, 0, 0.2),
	})
	assert.Equal(t, 4, s.TotalGames)
	assert.InDelta(t, 0.5, s.YRFIRate, 1e-9)
	assert.InDelta(t, 0.5, s.Accuracy, 1e-9)
	assert.InDelta(t, 0.5, s.Precision, 1e-9)
	assert.InDelta(t, 0.5, s.Recall, 1e-9)
	assert.InDelta(t, 0.75, s.ROCAUC, 1e-9)
}

func TestTrain(t *testing.T) {
	var rows []model.FeatureRow
	for i := range 60 {
		yrfi := 0
		era := 1.5
		if i%2 == 0 {
			yrfi, era = 1, 6.0
		}
		r := row("2025-04-21", "A", "B", "L", "R", era, yrfi)
		rows = append(rows, r)
	}
	for i := range rows {
		rows[i].DayOfWeek, rows[i].SameHand = ip(0), ip(0)
	}

	res, err := Train(rows, DefaultTrainOptions())
	require.NoError(t, err)
	assert.Equal(t, 48, res.Train)
	assert.Equal(t, 12, res.Test)
	assert.Len(t, res.Model.Coef, len(res.Encoder.FeatureNames()))
	assert.Greater(t, res.Eval.ROCAUC, 0.9, "home ERA separates the classes")

	_, err = Train(rows[:5], DefaultTrainOptions())
	assert.Error(t, err)
}

func TestExportXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preds.xlsx")
	preds := []model.Prediction{{FeatureRow: model.FeatureRow{Date: "2025-04-21", HomeTeam: "A"}, Probability: 0.5}}
	require.NoError(t, ExportXLSX(path, preds))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}
