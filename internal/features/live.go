package features

import (
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/yrfi-cli/internal/model"
)

type pairKey struct {
	away string
	home string
}

// BuildLive creates feature rows for the boxscores dated in [from, to]. Each
// game copies the starters, hands and ERA of the latest historical row for
// the same (away, home) pair, takes the game's own date, and gets current
// team rates. Rows still missing a model input are dropped.
func BuildLive(box []model.Boxscore, history []model.FeatureRow, rates Rates, from, to string) ([]model.FeatureRow, int) {
	ordered := make([]model.FeatureRow, len(history))
	copy(ordered, history)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Date < ordered[j].Date })

	latest := make(map[pairKey]model.FeatureRow, len(ordered))
	for _, r := range ordered {
		latest[pairKey{away: r.AwayTeam, home: r.HomeTeam}] = r
	}

	var rows []model.FeatureRow
	unmatched := 0
	for _, b := range box {
		date := normDate(b.Date)
		if date < from || date > to {
			continue
		}
		ref, ok := latest[pairKey{away: b.AwayTeam, home: b.HomeTeam}]
		if !ok {
			unmatched++
			continue
		}
		r := ref
		r.Date = date
		r.Away1st, r.Home1st = b.Away1st, b.Home1st
		r.YRFI = model.Label(b.Away1st, b.Home1st)
		rows = append(rows, r)
	}

	rows = rates.Apply(rows)
	for i := range rows {
		Derive(&rows[i])
	}
	kept, incomplete := DropIncomplete(rows)

	zap.L().Info("features: built live rows",
		zap.String("from", from),
		zap.String("to", to),
		zap.Int("rows", len(kept)),
		zap.Int("no_history", unmatched),
		zap.Int("incomplete", incomplete),
	)
	return kept, unmatched + incomplete
}

// AppendResult reports what AppendLive did.
type AppendResult struct {
	Appended int
	// Matched counts live rows whose key already existed. Those historical
	// rows are left as they were.
	Matched int
}

// AppendLive appends the live rows whose (date, away, home) key is absent
// from history. Running it twice with the same live rows appends nothing
// the second time.
func AppendLive(history, live []model.FeatureRow) ([]model.FeatureRow, AppendResult) {
	have := make(map[model.GameKey]bool, len(history)+len(live))
	for _, r := range history {
		have[keyOf(r)] = true
	}

	out := make([]model.FeatureRow, len(history), len(history)+len(live))
	copy(out, history)

	var res AppendResult
	for _, r := range live {
		k := keyOf(r)
		if have[k] {
			res.Matched++
			continue
		}
		have[k] = true
		out = append(out, r)
		res.Appended++
	}

	if res.Matched > 0 {
		zap.L().Warn("features: live rows match existing history and were not refreshed",
			zap.Int("matched", res.Matched),
		)
	}
	zap.L().Info("features: appended live rows", zap.Int("appended", res.Appended))
	return out, res
}

func keyOf(r model.FeatureRow) model.GameKey {
	return model.GameKey{Date: normDate(r.Date), Home: r.HomeTeam, Away: r.AwayTeam}
}
