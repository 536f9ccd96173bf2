// Package features builds the modeling table: boxscores joined with their
// starters, starter ERA and team first-inning scoring rates.
package features

import (
	"go.uber.org/zap"

	"github.com/sells-group/yrfi-cli/internal/model"
	"github.com/sells-group/yrfi-cli/internal/starters"
)

type sideKey struct {
	date string
	team string
}

// JoinStarters left-joins each boxscore with the raw starter cell of its home
// and away team on the same date. Games without a listed starter keep an
// empty cell. When a team has several cells for one date the first wins.
func JoinStarters(box []model.Boxscore, st []model.Starter) []model.GameWithStarters {
	byTeam := make(map[sideKey]string, len(st))
	for _, s := range st {
		k := sideKey{date: s.Date, team: s.Team}
		if _, ok := byTeam[k]; !ok {
			byTeam[k] = s.Starter
		}
	}

	out := make([]model.GameWithStarters, 0, len(box))
	missing := 0
	for _, b := range box {
		date := normDate(b.Date)
		row := model.GameWithStarters{
			Boxscore:    b,
			HomeStarter: byTeam[sideKey{date: date, team: b.HomeTeam}],
			AwayStarter: byTeam[sideKey{date: date, team: b.AwayTeam}],
		}
		row.Date = date
		if row.HomeStarter == "" || row.AwayStarter == "" {
			missing++
		}
		out = append(out, row)
	}
	zap.L().Info("features: joined starters",
		zap.Int("rows", len(out)),
		zap.Int("missing_starter", missing),
	)
	return out
}

// PrepStats counts the rows Prep dropped, by reason.
type PrepStats struct {
	MissingStarter int
	Placeholder    int
	MissingHand    int
	Duplicate      int
}

// Dropped is the total number of dropped rows.
func (s PrepStats) Dropped() int {
	return s.MissingStarter + s.Placeholder + s.MissingHand + s.Duplicate
}

// Prep turns joined games into feature rows. Rows with a missing or
// placeholder starter, or a starter without a handedness marker, are dropped;
// duplicates of (date, home, away) keep the first occurrence.
func Prep(rows []model.GameWithStarters) ([]model.FeatureRow, PrepStats) {
	var stats PrepStats
	seen := make(map[model.GameKey]bool, len(rows))
	out := make([]model.FeatureRow, 0, len(rows))

	for _, r := range rows {
		switch {
		case r.HomeStarter == "" || r.AwayStarter == "":
			stats.MissingStarter++
			continue
		case starters.IsPlaceholder(r.HomeStarter) || starters.IsPlaceholder(r.AwayStarter):
			stats.Placeholder++
			continue
		}

		awayHand, homeHand := starters.Hand(r.AwayStarter), starters.Hand(r.HomeStarter)
		if awayHand == "" || homeHand == "" {
			stats.MissingHand++
			continue
		}

		f := model.FeatureRow{
			Date:        normDate(r.Date),
			AwayTeam:    r.AwayTeam,
			HomeTeam:    r.HomeTeam,
			AwayStarter: r.AwayStarter,
			AwayHand:    awayHand,
			HomeStarter: r.HomeStarter,
			HomeHand:    homeHand,
			Away1st:     r.Away1st,
			Home1st:     r.Home1st,
			YRFI:        model.Label(r.Away1st, r.Home1st),
		}
		if seen[f.Key()] {
			stats.Duplicate++
			continue
		}
		seen[f.Key()] = true
		out = append(out, f)
	}

	zap.L().Info("features: prepared model input",
		zap.Int("rows", len(out)),
		zap.Int("missing_starter", stats.MissingStarter),
		zap.Int("placeholder", stats.Placeholder),
		zap.Int("missing_hand", stats.MissingHand),
		zap.Int("duplicate", stats.Duplicate),
	)
	return out, stats
}

type eraKey struct {
	date    string
	team    string
	starter string
}

// NullCounts reports rows left without an ERA after AddERA.
type NullCounts struct {
	Home int
	Away int
}

// AddERA cleans both starter names and left-joins the ERA records on
// (date, team, cleaned name). Unmatched rows keep a nil ERA.
func AddERA(rows []model.FeatureRow, era []model.StarterERA) ([]model.FeatureRow, NullCounts) {
	byKey := make(map[eraKey]*float64, len(era))
	for _, e := range era {
		k := eraKey{date: normDate(e.Date), team: e.Team, starter: e.StarterClean}
		if _, ok := byKey[k]; !ok {
			byKey[k] = e.ERA
		}
	}

	var nulls NullCounts
	out := make([]model.FeatureRow, len(rows))
	for i, r := range rows {
		r.HomeStarterClean = starters.CleanName(r.HomeStarter)
		r.AwayStarterClean = starters.CleanName(r.AwayStarter)
		r.HomeERA = copyFloat(byKey[eraKey{date: r.Date, team: r.HomeTeam, starter: r.HomeStarterClean}])
		r.AwayERA = copyFloat(byKey[eraKey{date: r.Date, team: r.AwayTeam, starter: r.AwayStarterClean}])
		if r.HomeERA == nil {
			nulls.Home++
		}
		if r.AwayERA == nil {
			nulls.Away++
		}
		out[i] = r
	}

	zap.L().Info("features: merged starter ERA",
		zap.Int("rows", len(out)),
		zap.Int("home_era_nulls", nulls.Home),
		zap.Int("away_era_nulls", nulls.Away),
	)
	return out, nulls
}

// Derive sets day_of_week (Monday = 0) and same_hand.
func Derive(r *model.FeatureRow) {
	if d, ok := DayOfWeek(r.Date); ok {
		r.DayOfWeek = &d
	}
	if r.AwayHand != "" && r.HomeHand != "" {
		same := 0
		if r.AwayHand == r.HomeHand {
			same = 1
		}
		r.SameHand = &same
	}
}

// DayOfWeek returns the weekday of a date column value with Monday as 0.
func DayOfWeek(date string) (int, bool) {
	t, ok := model.ParseDate(date)
	if !ok {
		return 0, false
	}
	return (int(t.Weekday()) + 6) % 7, true
}

// DropIncomplete keeps the rows with every model input present.
func DropIncomplete(rows []model.FeatureRow) (kept []model.FeatureRow, dropped int) {
	kept = make([]model.FeatureRow, 0, len(rows))
	for _, r := range rows {
		if r.Complete() {
			kept = append(kept, r)
			continue
		}
		dropped++
	}
	return kept, dropped
}

func normDate(s string) string {
	if t, ok := model.ParseDate(s); ok {
		return model.FormatDate(t)
	}
	return s
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
