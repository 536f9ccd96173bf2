// Package predict scores feature rows with a persisted classifier, trains
// the native logistic model and summarizes backtests.
package predict

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/yrfi-cli/internal/model"
)

// CategoricalColumns are one-hot encoded, in this order.
var CategoricalColumns = []string{"away_team", "home_team", "away_hand", "home_hand"}

// NumericColumns follow the one-hot block, in this order.
var NumericColumns = []string{
	"home_era", "away_era", "home_team_avg_1st", "away_team_avg_1st",
	"day_of_week", "same_hand",
}

// EncoderColumn is one categorical column and its known categories.
type EncoderColumn struct {
	Name       string   `yaml:"name"`
	Categories []string `yaml:"categories"`
}

// Encoder is a fitted one-hot encoder. Unknown categories encode as all
// zeros.
type Encoder struct {
	Columns []EncoderColumn `yaml:"columns"`

	index []map[string]int
}

// FitEncoder collects the sorted distinct values of every categorical
// column.
func FitEncoder(rows []model.FeatureRow) *Encoder {
	e := &Encoder{}
	for _, name := range CategoricalColumns {
		seen := make(map[string]bool)
		var cats []string
		for _, r := range rows {
			v := categorical(r, name)
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			cats = append(cats, v)
		}
		sort.Strings(cats)
		e.Columns = append(e.Columns, EncoderColumn{Name: name, Categories: cats})
	}
	e.build()
	return e
}

func (e *Encoder) build() {
	e.index = make([]map[string]int, len(e.Columns))
	for i, c := range e.Columns {
		m := make(map[string]int, len(c.Categories))
		for j, v := range c.Categories {
			m[v] = j
		}
		e.index[i] = m
	}
}

// Width is the length of the one-hot block.
func (e *Encoder) Width() int {
	n := 0
	for _, c := range e.Columns {
		n += len(c.Categories)
	}
	return n
}

// FeatureNames lists the encoded vector's columns ("home_team=Athletics").
func (e *Encoder) FeatureNames() []string {
	names := make([]string, 0, e.Width()+len(NumericColumns))
	for _, c := range e.Columns {
		for _, v := range c.Categories {
			names = append(names, c.Name+"="+v)
		}
	}
	return append(names, NumericColumns...)
}

// Transform writes the one-hot block of r.
func (e *Encoder) Transform(r model.FeatureRow) []float64 {
	if e.index == nil {
		e.build()
	}
	out := make([]float64, e.Width())
	offset := 0
	for i, c := range e.Columns {
		if j, ok := e.index[i][categorical(r, c.Name)]; ok {
			out[offset+j] = 1
		}
		offset += len(c.Categories)
	}
	return out
}

// Vector returns the full model input of r. ok is false when a numeric input
// is missing.
func (e *Encoder) Vector(r model.FeatureRow) ([]float64, bool) {
	nums, ok := numeric(r)
	if !ok {
		return nil, false
	}
	return append(e.Transform(r), nums...), true
}

// Save writes the encoder as YAML.
func (e *Encoder) Save(path string) error {
	data, err := yaml.Marshal(e)
	if err != nil {
		return eris.Wrap(err, "predict: marshal encoder")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "predict: create model dir")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "predict: write encoder %s", path)
	}
	return nil
}

// LoadEncoder reads an encoder written by Save.
func LoadEncoder(path string) (*Encoder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "predict: read encoder %s", path)
	}
	var e Encoder
	if err := yaml.Unmarshal(data, &e); err != nil {
		return nil, eris.Wrapf(err, "predict: parse encoder %s", path)
	}
	if len(e.Columns) == 0 {
		return nil, eris.Errorf("predict: encoder %s has no columns", path)
	}
	e.build()
	return &e, nil
}

func categorical(r model.FeatureRow, name string) string {
	switch name {
	case "away_team":
		return r.AwayTeam
	case "home_team":
		return r.HomeTeam
	case "away_hand":
		return r.AwayHand
	case "home_hand":
		return r.HomeHand
	}
	return ""
}

func numeric(r model.FeatureRow) ([]float64, bool) {
	if r.HomeERA == nil || r.AwayERA == nil ||
		r.HomeTeamAvg1st == nil || r.AwayTeamAvg1st == nil ||
		r.DayOfWeek == nil || r.SameHand == nil {
		return nil, false
	}
	return []float64{
		*r.HomeERA, *r.AwayERA, *r.HomeTeamAvg1st, *r.AwayTeamAvg1st,
		float64(*r.DayOfWeek), float64(*r.SameHand),
	}, true
}
