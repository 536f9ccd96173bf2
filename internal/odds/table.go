package odds

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/yrfi-cli/internal/model"
	"github.com/sells-group/yrfi-cli/internal/team"
)

// ScrapeResult summarizes a ScrapeRange call.
type ScrapeResult struct {
	Days    int
	Skipped int
	Failed  int
	NewRows int
}

// ScrapeRange fetches every day in [from, to] not already in existing
// (unless updateExisting) and returns the combined table deduplicated on
// (date, home, away) keeping the newest row. Per-day failures are logged.
func ScrapeRange(ctx context.Context, c *Client, existing []model.Odds, from, to time.Time, updateExisting bool) ([]model.Odds, ScrapeResult, error) {
	log := zap.L().With(zap.String("component", "odds"))

	have := make(map[string]bool)
	for _, r := range existing {
		have[r.Date] = true
	}

	var res ScrapeResult
	var fresh []model.Odds
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return nil, res, eris.Wrap(err, "odds: scrape cancelled")
		}
		res.Days++
		ds := model.FormatDate(day)
		if !updateExisting && have[ds] {
			res.Skipped++
			log.Debug("odds: skipping day already present", zap.String("date", ds))
			continue
		}

		rows, err := c.FetchDay(ctx, day)
		if err != nil {
			res.Failed++
			log.Warn("odds: fetch failed", zap.String("date", ds), zap.Error(err))
			continue
		}
		if len(rows) == 0 {
			log.Info("odds: no odds found", zap.String("date", ds))
		}
		fresh = append(fresh, rows...)
	}

	res.NewRows = len(fresh)
	if len(fresh) == 0 {
		return existing, res, nil
	}
	return DedupKeepLast(append(append([]model.Odds{}, existing...), fresh...)), res, nil
}

// DedupKeepLast drops earlier rows sharing a (date, home, away) key with a
// later one. Order of first appearance is preserved.
func DedupKeepLast(rows []model.Odds) []model.Odds {
	last := make(map[model.GameKey]int, len(rows))
	for i, r := range rows {
		last[r.Key()] = i
	}
	out := make([]model.Odds, 0, len(last))
	for i, r := range rows {
		if last[r.Key()] == i {
			out = append(out, r)
		}
	}
	return out
}

func normalizedKey(date, home, away string) model.GameKey {
	if d, ok := model.ParseDate(date); ok {
		date = model.FormatDate(d)
	}
	return model.GameKey{Date: date, Home: team.Title(home), Away: team.Title(away)}
}

// MergeScores left-joins odds with boxscores on normalized
// (date, home, away). The last boxscore per key wins.
func MergeScores(odds []model.Odds, scores []model.Boxscore) []model.OddsWithScore {
	byKey := make(map[model.GameKey]model.Boxscore, len(scores))
	for _, s := range scores {
		byKey[normalizedKey(s.Date, s.HomeTeam, s.AwayTeam)] = s
	}

	out := make([]model.OddsWithScore, 0, len(odds))
	for _, o := range odds {
		k := normalizedKey(o.Date, o.HomeTeam, o.AwayTeam)
		o.Date, o.HomeTeam, o.AwayTeam = k.Date, k.Home, k.Away

		row := model.OddsWithScore{Odds: o}
		if s, ok := byKey[k]; ok {
			away, home, yrfi := s.Away1st, s.Home1st, model.Label(s.Away1st, s.Home1st)
			row.AwayRecord, row.HomeRecord = s.AwayRecord, s.HomeRecord
			row.AwayScore, row.HomeScore = s.AwayScore, s.HomeScore
			row.Away1st, row.Home1st, row.YRFI = &away, &home, &yrfi
		}
		out = append(out, row)
	}
	return out
}
