package odds

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/yrfi-cli/internal/fetcher"
	"github.com/sells-group/yrfi-cli/internal/model"
)

// Options configures the odds API client.
type Options struct {
	BaseURL      string
	APIKey       string
	Sport        string
	Markets      string
	Regions      string
	Bookmakers   []string
	SnapshotHour int
}

// Event is one game in an odds API response.
type Event struct {
	ID           string      `json:"id"`
	CommenceTime string      `json:"commence_time"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	Bookmakers   []Bookmaker `json:"bookmakers"`
}

// Bookmaker carries one book's markets for an event.
type Bookmaker struct {
	Key     string   `json:"key"`
	Title   string   `json:"title"`
	Markets []Market `json:"markets"`
}

// Market is a priced market (h2h, spreads, totals).
type Market struct {
	Key      string    `json:"key"`
	Outcomes []Outcome `json:"outcomes"`
}

// Outcome is one side of a market.
type Outcome struct {
	Name  string   `json:"name"`
	Price float64  `json:"price"`
	Point *float64 `json:"point,omitempty"`
}

type historicalSnapshot struct {
	Timestamp string  `json:"timestamp"`
	Data      []Event `json:"data"`
}

// Client fetches odds for one day at a time. Upcoming days hit the live
// endpoint; past days hit the historical snapshot endpoint through archive,
// which may serve from cache.
type Client struct {
	live    fetcher.Fetcher
	archive fetcher.Fetcher
	opts    Options
	now     func() time.Time
}

// NewClient creates a client. archive may be nil to use live for history.
func NewClient(live, archive fetcher.Fetcher, opts Options) *Client {
	if archive == nil {
		archive = live
	}
	if opts.SnapshotHour == 0 {
		opts.SnapshotHour = 16
	}
	return &Client{live: live, archive: archive, opts: opts, now: time.Now}
}

// URL returns the request URL for day.
func (c *Client) URL(day time.Time) (string, bool) {
	q := url.Values{}
	q.Set("apiKey", c.opts.APIKey)
	q.Set("markets", c.opts.Markets)
	q.Set("regions", c.opts.Regions)
	q.Set("oddsFormat", "decimal")

	base := strings.TrimRight(c.opts.BaseURL, "/")
	if c.isUpcoming(day) {
		return base + "/sports/" + c.opts.Sport + "/odds?" + q.Encode(), false
	}

	snap := time.Date(day.Year(), day.Month(), day.Day(), c.opts.SnapshotHour, 0, 0, 0, time.UTC)
	q.Set("date", snap.Format("2006-01-02T15:04:05Z"))
	return base + "/historical/sports/" + c.opts.Sport + "/odds?" + q.Encode(), true
}

func (c *Client) isUpcoming(day time.Time) bool {
	now := c.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	d := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return d.After(today)
}

// FetchDay returns one row per game for day, priced by the first bookmaker
// in priority order that quotes it.
func (c *Client) FetchDay(ctx context.Context, day time.Time) ([]model.Odds, error) {
	u, historical := c.URL(day)

	var events []Event
	if historical {
		var snap historicalSnapshot
		if err := c.archive.GetJSON(ctx, u, &snap); err != nil {
			return nil, eris.Wrapf(err, "odds: historical %s", model.FormatDate(day))
		}
		events = snap.Data
	} else {
		if err := c.live.GetJSON(ctx, u, &events); err != nil {
			return nil, eris.Wrapf(err, "odds: upcoming %s", model.FormatDate(day))
		}
	}

	rows := make([]model.Odds, 0, len(events))
	for _, ev := range events {
		row, ok := Flatten(ev, c.opts.Bookmakers)
		if !ok {
			zap.L().Debug("odds: no priority bookmaker quotes game",
				zap.String("home", ev.HomeTeam),
				zap.String("away", ev.AwayTeam),
			)
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Flatten picks the first bookmaker of priority present on ev and spreads
// its h2h, spreads and totals markets over one row.
func Flatten(ev Event, priority []string) (model.Odds, bool) {
	var book *Bookmaker
	for _, key := range priority {
		for i := range ev.Bookmakers {
			if ev.Bookmakers[i].Key == key {
				book = &ev.Bookmakers[i]
				break
			}
		}
		if book != nil {
			break
		}
	}
	if book == nil {
		return model.Odds{}, false
	}

	date := ev.CommenceTime
	if len(date) >= 10 {
		date = date[:10]
	}
	row := model.Odds{
		Date:      date,
		HomeTeam:  ev.HomeTeam,
		AwayTeam:  ev.AwayTeam,
		Bookmaker: book.Title,
	}

	for _, m := range book.Markets {
		for _, o := range m.Outcomes {
			price := o.Price
			switch m.Key {
			case "h2h":
				switch o.Name {
				case ev.HomeTeam:
					row.MLHome = &price
				case ev.AwayTeam:
					row.MLAway = &price
				}
			case "spreads":
				switch o.Name {
				case ev.HomeTeam:
					row.SpreadHome, row.SpreadHomeOdds = o.Point, &price
				case ev.AwayTeam:
					row.SpreadAway, row.SpreadAwayOdds = o.Point, &price
				}
			case "totals":
				switch {
				case strings.Contains(o.Name, "Over"):
					row.Total, row.OverOdds = o.Point, &price
				case strings.Contains(o.Name, "Under"):
					row.UnderOdds = &price
				}
			}
		}
	}
	return row, true
}
