package features

import (
	"github.com/sells-group/yrfi-cli/internal/model"
)

// Rate is a team's mean first-inning runs and sample size in one role.
type Rate struct {
	Avg   float64
	Games int
}

// Rates holds every team's home and away first-inning scoring rates.
type Rates struct {
	Home map[string]Rate
	Away map[string]Rate
}

// TeamRates recomputes the rates from the full boxscore history: runs scored
// in the first inning as the home side and as the away side.
func TeamRates(box []model.Boxscore) Rates {
	type acc struct {
		sum int
		n   int
	}
	home := make(map[string]*acc)
	away := make(map[string]*acc)
	add := func(m map[string]*acc, team string, runs int) {
		a, ok := m[team]
		if !ok {
			a = &acc{}
			m[team] = a
		}
		a.sum += runs
		a.n++
	}
	for _, b := range box {
		add(home, b.HomeTeam, b.Home1st)
		add(away, b.AwayTeam, b.Away1st)
	}

	out := Rates{Home: make(map[string]Rate, len(home)), Away: make(map[string]Rate, len(away))}
	for t, a := range home {
		out.Home[t] = Rate{Avg: float64(a.sum) / float64(a.n), Games: a.n}
	}
	for t, a := range away {
		out.Away[t] = Rate{Avg: float64(a.sum) / float64(a.n), Games: a.n}
	}
	return out
}

// Apply left-joins the rates onto rows by team name. Teams without history
// keep nil rates.
func (r Rates) Apply(rows []model.FeatureRow) []model.FeatureRow {
	out := make([]model.FeatureRow, len(rows))
	for i, row := range rows {
		row.HomeTeamAvg1st, row.HomeGames = nil, nil
		row.AwayTeamAvg1st, row.AwayGames = nil, nil
		if h, ok := r.Home[row.HomeTeam]; ok {
			avg, n := h.Avg, h.Games
			row.HomeTeamAvg1st, row.HomeGames = &avg, &n
		}
		if a, ok := r.Away[row.AwayTeam]; ok {
			avg, n := a.Avg, a.Games
			row.AwayTeamAvg1st, row.AwayGames = &avg, &n
		}
		out[i] = row
	}
	return out
}
