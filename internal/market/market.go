// Package market compares model probabilities with the probability implied
// by a YRFI price, either quoted by a book or inferred from the model tier.
package market

import (
	"math"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/yrfi-cli/internal/model"
	"github.com/sells-group/yrfi-cli/internal/odds"
	"github.com/sells-group/yrfi-cli/internal/table"
	"github.com/sells-group/yrfi-cli/internal/team"
)

// ErrMissingOdds is returned in market mode when the input has no yrfi_odds
// column.
var ErrMissingOdds = eris.New("market: input has no yrfi_odds column")

// Quoted is a prediction row carrying a raw quoted price. The price is kept
// as text so a malformed cell becomes a null edge instead of a read error.
type Quoted struct {
	model.Prediction
	YRFIOdds string `csv:"yrfi_odds"`
}

// FromTiers prices every prediction at the proxy odds of its YRFI tier.
func FromTiers(preds []model.Prediction, tiers odds.TierOdds) []model.Edge {
	out := make([]model.Edge, 0, len(preds))
	for _, p := range preds {
		e := model.Edge{Prediction: p, OddsSource: model.OddsSourceTier}
		if o, ok := tiers.For(p.YRFITier); ok {
			e.YRFIOdds = &o
		}
		out = append(out, finish(e, oddsText(e.YRFIOdds)))
	}
	log(model.OddsSourceTier, out)
	return out
}

// FromQuotes prices every row at its quoted yrfi_odds.
func FromQuotes(rows []Quoted) []model.Edge {
	out := make([]model.Edge, 0, len(rows))
	for _, q := range rows {
		e := model.Edge{Prediction: q.Prediction, OddsSource: model.OddsSourceMarket}
		if o, ok := odds.ParseAmerican(q.YRFIOdds); ok {
			e.YRFIOdds = &o
		}
		out = append(out, finish(e, q.YRFIOdds))
	}
	log(model.OddsSourceMarket, out)
	return out
}

// ReadQuotes loads a market-priced prediction table. The yrfi_odds column
// must be present.
func ReadQuotes(path string) ([]Quoted, error) {
	if err := table.RequireColumns(path, "yrfi_odds"); err != nil {
		if eris.Is(err, table.ErrMissingColumn) {
			return nil, eris.Wrapf(ErrMissingOdds, "market: %s", path)
		}
		return nil, err
	}
	return table.Read[Quoted](path)
}

func finish(e model.Edge, price string) model.Edge {
	e.AwayTeam = team.Normalize(e.AwayTeam)
	e.HomeTeam = team.Normalize(e.HomeTeam)
	e.ImpliedProb = odds.ImpliedProb(price)
	if e.ImpliedProb != nil {
		edge := math.Round((e.Probability-*e.ImpliedProb)*1000) / 1000
		e.PredictedEdge = &edge
	}
	return e
}

func oddsText(o *float64) string {
	if o == nil {
		return ""
	}
	return strconv.FormatFloat(*o, 'f', -1, 64)
}

func log(source string, rows []model.Edge) {
	priced := 0
	for _, r := range rows {
		if r.PredictedEdge != nil {
			priced++
		}
	}
	zap.L().Info("market: computed edges",
		zap.String("source", source),
		zap.Int("rows", len(rows)),
		zap.Int("priced", priced),
	)
}

// Top returns up to n rows with an edge of at least minEdge, largest edge
// first.
func Top(rows []model.Edge, minEdge float64, n int) []model.Edge {
	var out []model.Edge
	for _, r := range rows {
		if r.PredictedEdge != nil && *r.PredictedEdge >= minEdge {
			out = append(out, r)
		}
	}
	SortByEdge(out)
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// SortByEdge orders rows by edge descending; rows without an edge sort last.
func SortByEdge(rows []model.Edge) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].PredictedEdge, rows[j].PredictedEdge
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return *a > *b
	})
}
