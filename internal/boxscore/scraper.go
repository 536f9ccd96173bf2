package boxscore

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/yrfi-cli/internal/fetcher"
	"github.com/sells-group/yrfi-cli/internal/metrics"
	"github.com/sells-group/yrfi-cli/internal/model"
)

// Options configures a Scraper.
type Options struct {
	ScoreboardURL string
	// BoxscoreURL is a format string taking the game id.
	BoxscoreURL string
}

type scoreboard struct {
	Events []struct {
		ID string `json:"id"`
	} `json:"events"`
}

// Scraper walks a date range: game ids from the scoreboard, then one page
// per game.
type Scraper struct {
	api      fetcher.Fetcher
	renderer Renderer
	archive  Renderer
	opts     Options
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewScraper creates a Scraper. api serves the scoreboard JSON; renderer
// serves boxscore pages.
func NewScraper(api fetcher.Fetcher, renderer Renderer, opts Options) *Scraper {
	return &Scraper{api: api, renderer: renderer, opts: opts, metrics: metrics.Default(), now: time.Now}
}

// WithArchive serves pages of games dated before today from r. Those games
// are final, so r may cache.
func (s *Scraper) WithArchive(r Renderer) *Scraper {
	s.archive = r
	return s
}

func (s *Scraper) rendererFor(date string) Renderer {
	if s.archive != nil && date < model.FormatDate(s.now()) {
		return s.archive
	}
	return s.renderer
}

// GameIDs lists the scoreboard's event ids for day.
func (s *Scraper) GameIDs(ctx context.Context, day time.Time) ([]string, error) {
	u, err := url.Parse(s.opts.ScoreboardURL)
	if err != nil {
		return nil, eris.Wrap(err, "boxscore: scoreboard url")
	}
	q := u.Query()
	q.Set("dates", day.Format("20060102"))
	u.RawQuery = q.Encode()

	var sb scoreboard
	if err := s.api.GetJSON(ctx, u.String(), &sb); err != nil {
		return nil, eris.Wrapf(err, "boxscore: scoreboard %s", model.FormatDate(day))
	}

	ids := make([]string, 0, len(sb.Events))
	for _, ev := range sb.Events {
		if ev.ID != "" {
			ids = append(ids, ev.ID)
		}
	}
	return ids, nil
}

// Game fetches and parses one boxscore page.
func (s *Scraper) Game(ctx context.Context, id, date string) (model.Boxscore, bool, error) {
	body, err := s.rendererFor(date).Render(ctx, fmt.Sprintf(s.opts.BoxscoreURL, id))
	if err != nil {
		return model.Boxscore{}, false, err
	}
	defer body.Close() //nolint:errcheck
	return Parse(body, date)
}

// ScrapeRange returns a row for every game in [from, to]. Failures of a
// single day or game are logged and skipped; only cancellation aborts.
func (s *Scraper) ScrapeRange(ctx context.Context, from, to time.Time) ([]model.Boxscore, error) {
	log := zap.L().With(zap.String("component", "boxscore"))

	var rows []model.Boxscore
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return rows, eris.Wrap(err, "boxscore: scrape cancelled")
		}
		date := model.FormatDate(day)

		ids, err := s.GameIDs(ctx, day)
		if err != nil {
			s.metrics.ScrapeError("scoreboard")
			log.Warn("scoreboard fetch failed", zap.String("date", date), zap.Error(err))
			continue
		}
		log.Info("scraping boxscores", zap.String("date", date), zap.Int("games", len(ids)))

		for _, id := range ids {
			row, ok, err := s.Game(ctx, id, date)
			if err != nil {
				if ctx.Err() != nil {
					return rows, eris.Wrap(ctx.Err(), "boxscore: scrape cancelled")
				}
				s.metrics.ScrapeError("boxscore")
				log.Warn("boxscore failed", zap.String("game_id", id), zap.Error(err))
				continue
			}
			if !ok {
				s.metrics.ScrapeError("boxscore")
				log.Warn("boxscore team names not found", zap.String("game_id", id))
				continue
			}
			log.Debug("parsed boxscore",
				zap.String("game_id", id),
				zap.String("away", row.AwayTeam),
				zap.Int("away_1st", row.Away1st),
				zap.String("home", row.HomeTeam),
				zap.Int("home_1st", row.Home1st),
			)
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// MergeHistory replaces existing rows whose (date, away, home) key appears
// in fresh, appends fresh, sorts by (date, home team) and recomputes the
// YRFI label on every row.
func MergeHistory(existing, fresh []model.Boxscore) []model.Boxscore {
	replaced := make(map[model.GameKey]bool, len(fresh))
	for _, r := range fresh {
		replaced[r.Key()] = true
	}

	out := make([]model.Boxscore, 0, len(existing)+len(fresh))
	for _, r := range existing {
		if !replaced[r.Key()] {
			out = append(out, r)
		}
	}
	out = append(out, fresh...)

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].HomeTeam < out[j].HomeTeam
	})
	for i := range out {
		out[i].YRFI = model.Label(out[i].Away1st, out[i].Home1st)
	}
	return out
}
