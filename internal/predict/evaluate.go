package predict

import (
	"math"
	"sort"

	"github.com/sells-group/yrfi-cli/internal/model"
)

// ClassReport is precision, recall and support for one label.
type ClassReport struct {
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Evaluation is a classification report plus ROC AUC.
type Evaluation struct {
	Classes  [2]ClassReport
	Accuracy float64
	ROCAUC   float64
	Total    int
}

// Evaluate compares labels with probabilities thresholded at threshold.
func Evaluate(y []int, prob []float64, threshold float64) Evaluation {
	var tp, fp, tn, fn int
	for i, label := range y {
		pred := prob[i] >= threshold
		switch {
		case pred && label == 1:
			tp++
		case pred && label == 0:
			fp++
		case !pred && label == 0:
			tn++
		default:
			fn++
		}
	}
	ev := Evaluation{Total: len(y), ROCAUC: ROCAUC(y, prob)}
	if len(y) > 0 {
		ev.Accuracy = float64(tp+tn) / float64(len(y))
	}
	ev.Classes[1] = report(tp, fp, fn)
	ev.Classes[0] = report(tn, fn, fp)
	return ev
}

func report(tp, fp, fn int) ClassReport {
	r := ClassReport{Precision: ratio(tp, tp+fp), Recall: ratio(tp, tp+fn), Support: tp + fn}
	if r.Precision+r.Recall > 0 {
		r.F1 = 2 * r.Precision * r.Recall / (r.Precision + r.Recall)
	}
	return r
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

// ROCAUC is the probability that a random positive outranks a random
// negative, counting ties as half. It is NaN without both classes.
func ROCAUC(y []int, prob []float64) float64 {
	type pair struct {
		p     float64
		label int
	}
	pairs := make([]pair, len(y))
	var pos, neg int
	for i, label := range y {
		pairs[i] = pair{prob[i], label}
		if label == 1 {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return math.NaN()
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].p < pairs[j].p })

	// Average ranks over ties, then Mann-Whitney U.
	var rankSum float64
	for i := 0; i < len(pairs); {
		j := i
		for j < len(pairs) && pairs[j].p == pairs[i].p {
			j++
		}
		avg := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			if pairs[k].label == 1 {
				rankSum += avg
			}
		}
		i = j
	}
	u := rankSum - float64(pos*(pos+1))/2
	return u / float64(pos*neg)
}

// Summarize computes the backtest summary of scored games with known
// outcomes, rounded to three decimals.
func Summarize(preds []model.Prediction) model.BacktestSummary {
	y := make([]int, len(preds))
	prob := make([]float64, len(preds))
	pred := make([]float64, len(preds))
	var yrfi int
	for i, p := range preds {
		y[i] = p.YRFI
		prob[i] = round3(p.Probability)
		pred[i] = float64(p.Predicted)
		yrfi += p.YRFI
	}
	// Predicted labels are already thresholded; 0.5 splits 0 from 1.
	ev := Evaluate(y, pred, 0.5)

	s := model.BacktestSummary{
		TotalGames: len(preds),
		Accuracy:   round3(ev.Accuracy),
		Precision:  round3(ev.Classes[1].Precision),
		Recall:     round3(ev.Classes[1].Recall),
		ROCAUC:     round3(ROCAUC(y, prob)),
	}
	if len(preds) > 0 {
		s.YRFIRate = round3(float64(yrfi) / float64(len(preds)))
	}
	return s
}

func round3(v float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	return math.Round(v*1000) / 1000
}
