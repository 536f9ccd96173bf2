package predict

import (
	"go.uber.org/zap"

	"github.com/sells-group/yrfi-cli/internal/features"
	"github.com/sells-group/yrfi-cli/internal/model"
)

// Predictor scores feature rows with an encoder and a classifier.
type Predictor struct {
	Encoder    *Encoder
	Classifier Classifier
	Threshold  float64
}

// Load reads both artifacts. Either one missing is an error.
func Load(encoderPath, modelPath string, baseScore, threshold float64) (*Predictor, error) {
	enc, err := LoadEncoder(encoderPath)
	if err != nil {
		return nil, err
	}
	clf, err := LoadClassifier(modelPath, baseScore, enc.FeatureNames())
	if err != nil {
		return nil, err
	}
	return &Predictor{Encoder: enc, Classifier: clf, Threshold: threshold}, nil
}

// Window limits scoring to rows dated in [From, To]. Empty bounds are open.
type Window struct {
	From string
	To   string
}

// Contains reports whether date falls in the window.
func (w Window) Contains(date string) bool {
	if d, ok := model.ParseDate(date); ok {
		date = model.FormatDate(d)
	}
	if w.From != "" && date < w.From {
		return false
	}
	if w.To != "" && date > w.To {
		return false
	}
	return true
}

// Score predicts every row inside w. Rows missing a model input are dropped
// and counted.
func (p *Predictor) Score(rows []model.FeatureRow, w Window) ([]model.Prediction, int) {
	var out []model.Prediction
	dropped := 0
	for _, r := range rows {
		if !w.Contains(r.Date) {
			continue
		}
		features.Derive(&r)
		if !r.Complete() {
			dropped++
			continue
		}
		x, ok := p.Encoder.Vector(r)
		if !ok {
			dropped++
			continue
		}
		out = append(out, p.predict(r, x))
	}

	zap.L().Info("predict: scored rows",
		zap.String("from", w.From),
		zap.String("to", w.To),
		zap.Int("rows", len(out)),
		zap.Int("dropped", dropped),
	)
	return out, dropped
}

func (p *Predictor) predict(r model.FeatureRow, x []float64) model.Prediction {
	prob := p.Classifier.Predict(x)
	pred := model.Prediction{FeatureRow: r, Probability: prob}
	if prob >= p.Threshold {
		pred.Predicted = 1
	}
	pred.YRFITier = Tier(prob)
	pred.NRFITier = Tier(1 - prob)
	pred.YRFIFire = Fire(pred.YRFITier)
	pred.NRFIFire = Fire(pred.NRFITier)
	return pred
}
