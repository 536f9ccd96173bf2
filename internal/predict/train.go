package predict

import (
	"math"
	"math/rand"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/yrfi-cli/internal/model"
)

// TrainOptions configures TrainLogistic.
type TrainOptions struct {
	Iterations   int
	LearningRate float64
	// C is the inverse L2 regularization strength.
	C        float64
	TestSize float64
	Seed     int64
}

// DefaultTrainOptions matches a stock logistic regression on an 80/20
// stratified split with seed 42.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{Iterations: 1000, LearningRate: 0.1, C: 1.0, TestSize: 0.2, Seed: 42}
}

// TrainResult is the fitted artifacts and the held-out evaluation.
type TrainResult struct {
	Encoder *Encoder
	Model   *Logistic
	Train   int
	Test    int
	Eval    Evaluation
}

// Train fits the encoder and a logistic model on complete rows, holding out
// a stratified test split for evaluation.
func Train(rows []model.FeatureRow, opts TrainOptions) (*TrainResult, error) {
	enc := FitEncoder(rows)

	var x [][]float64
	var y []int
	for _, r := range rows {
		v, ok := enc.Vector(r)
		if !ok {
			continue
		}
		x = append(x, v)
		y = append(y, r.YRFI)
	}
	if len(x) < 10 {
		return nil, eris.Errorf("predict: %d complete rows, need at least 10 to train", len(x))
	}

	trainIdx, testIdx := StratifiedSplit(y, opts.TestSize, opts.Seed)
	pick := func(idx []int) ([][]float64, []int) {
		px := make([][]float64, len(idx))
		py := make([]int, len(idx))
		for i, j := range idx {
			px[i], py[i] = x[j], y[j]
		}
		return px, py
	}
	trX, trY := pick(trainIdx)
	teX, teY := pick(testIdx)

	m := FitLogistic(trX, trY, opts)
	m.Features = enc.FeatureNames()

	probs := make([]float64, len(teX))
	for i, v := range teX {
		probs[i] = m.Predict(v)
	}

	zap.L().Info("predict: trained logistic model",
		zap.Int("rows", len(x)),
		zap.Int("train", len(trX)),
		zap.Int("test", len(teX)),
		zap.Int("features", len(m.Coef)),
	)
	return &TrainResult{
		Encoder: enc,
		Model:   m,
		Train:   len(trX),
		Test:    len(teX),
		Eval:    Evaluate(teY, probs, 0.5),
	}, nil
}

// FitLogistic minimizes L2-regularized log loss by full-batch gradient
// descent.
func FitLogistic(x [][]float64, y []int, opts TrainOptions) *Logistic {
	if opts.Iterations <= 0 {
		opts.Iterations = 1000
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = 0.1
	}
	m := &Logistic{Kind: KindLogistic}
	if len(x) == 0 {
		return m
	}
	width := len(x[0])
	m.Coef = make([]float64, width)
	n := float64(len(x))

	reg := 0.0
	if opts.C > 0 {
		reg = 1 / opts.C
	}

	grad := make([]float64, width)
	for it := 0; it < opts.Iterations; it++ {
		for j := range grad {
			grad[j] = 0
		}
		var gb float64
		for i, v := range x {
			diff := m.Predict(v) - float64(y[i])
			gb += diff
			for j, xv := range v {
				grad[j] += diff * xv
			}
		}
		for j := range m.Coef {
			m.Coef[j] -= opts.LearningRate * (grad[j] + reg*m.Coef[j]) / n
		}
		m.Intercept -= opts.LearningRate * gb / n
	}
	return m
}

// StratifiedSplit shuffles each class with a seeded source and holds out
// testSize of it. Every class with at least two rows keeps one row on each
// side.
func StratifiedSplit(y []int, testSize float64, seed int64) (train, test []int) {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec
	byClass := map[int][]int{}
	for i, v := range y {
		byClass[v] = append(byClass[v], i)
	}
	for _, class := range []int{0, 1} {
		idx := byClass[class]
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		k := int(math.Round(float64(len(idx)) * testSize))
		if len(idx) > 1 {
			k = min(max(k, 1), len(idx)-1)
		}
		test = append(test, idx[:k]...)
		train = append(train, idx[k:]...)
	}
	return train, test
}
