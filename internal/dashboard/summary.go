package dashboard

import (
	"math"
	"sort"
	"time"

	"github.com/sells-group/yrfi-cli/internal/model"
	"github.com/sells-group/yrfi-cli/internal/predict"
)

// DayAccuracy is the share of correct calls on one date.
type DayAccuracy struct {
	Date     string  `json:"date"`
	Games    int     `json:"games"`
	Correct  int     `json:"correct"`
	Accuracy float64 `json:"accuracy"`
}

// TierPerformance compares the predicted and actual YRFI rate of one tier.
type TierPerformance struct {
	Tier          int     `json:"tier"`
	Fire          string  `json:"fire"`
	Games         int     `json:"games"`
	PredictedRate float64 `json:"predicted_yrfi_rate"`
	ActualRate    float64 `json:"actual_yrfi_rate"`
	MeanProb      float64 `json:"mean_probability"`
}

// Summary is rolling accuracy over a window of days plus per-tier
// performance over every finished game.
type Summary struct {
	WindowDays int               `json:"window_days"`
	From       string            `json:"from"`
	To         string            `json:"to"`
	Games      int               `json:"games"`
	Accuracy   *float64          `json:"accuracy"`
	Daily      []DayAccuracy     `json:"daily"`
	Tiers      []TierPerformance `json:"tiers"`
}

// Summarize only counts games dated before today; later games have no
// outcome yet. The window covers the days days ending yesterday.
func Summarize(rows []model.Edge, days int, today time.Time) Summary {
	if days <= 0 {
		days = 7
	}
	to := today.AddDate(0, 0, -1)
	from := today.AddDate(0, 0, -days)
	todayStr, fromStr := model.FormatDate(today), model.FormatDate(from)

	s := Summary{WindowDays: days, From: fromStr, To: model.FormatDate(to)}

	byDay := make(map[string]*DayAccuracy)
	type tierAcc struct {
		games, predicted, actual int
		prob                     float64
	}
	tiers := make(map[int]*tierAcc)
	correct := 0

	for _, r := range rows {
		d, ok := model.ParseDate(r.Date)
		if !ok {
			continue
		}
		date := model.FormatDate(d)
		if date >= todayStr {
			continue
		}

		ta := tiers[r.YRFITier]
		if ta == nil {
			ta = &tierAcc{}
			tiers[r.YRFITier] = ta
		}
		ta.games++
		ta.predicted += r.Predicted
		ta.actual += r.YRFI
		ta.prob += r.Probability

		if date < fromStr {
			continue
		}
		day := byDay[date]
		if day == nil {
			day = &DayAccuracy{Date: date}
			byDay[date] = day
		}
		day.Games++
		s.Games++
		if r.Predicted == r.YRFI {
			day.Correct++
			correct++
		}
	}

	if s.Games > 0 {
		acc := round3(float64(correct) / float64(s.Games))
		s.Accuracy = &acc
	}
	for _, day := range byDay {
		day.Accuracy = round3(float64(day.Correct) / float64(day.Games))
		s.Daily = append(s.Daily, *day)
	}
	sort.Slice(s.Daily, func(i, j int) bool { return s.Daily[i].Date < s.Daily[j].Date })

	for tier, ta := range tiers {
		s.Tiers = append(s.Tiers, TierPerformance{
			Tier:          tier,
			Fire:          predict.Fire(tier),
			Games:         ta.games,
			PredictedRate: round3(float64(ta.predicted) / float64(ta.games)),
			ActualRate:    round3(float64(ta.actual) / float64(ta.games)),
			MeanProb:      round3(ta.prob / float64(ta.games)),
		})
	}
	sort.Slice(s.Tiers, func(i, j int) bool { return s.Tiers[i].Tier < s.Tiers[j].Tier })
	return s
}

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
