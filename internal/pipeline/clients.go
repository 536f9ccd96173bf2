package pipeline

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/yrfi-cli/internal/boxscore"
	"github.com/sells-group/yrfi-cli/internal/config"
	"github.com/sells-group/yrfi-cli/internal/fetcher"
	"github.com/sells-group/yrfi-cli/internal/notify"
	"github.com/sells-group/yrfi-cli/internal/odds"
)

// NewScraper builds the boxscore scraper from config. Pages of finished
// games are cached in cache when it is non-nil.
func NewScraper(cfg *config.Config, cache fetcher.Cache) (*boxscore.Scraper, error) {
	sc := cfg.Scrape
	timeout := time.Duration(sc.TimeoutSecs) * time.Second
	live := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:  sc.UserAgent,
		Timeout:    timeout,
		Delay:      sc.Delay(),
		MaxRetries: sc.MaxRetries,
	})

	opts := boxscore.Options{ScoreboardURL: sc.ScoreboardURL, BoxscoreURL: sc.BoxscoreURL}
	switch sc.Renderer {
	case "", "http":
		s := boxscore.NewScraper(live, boxscore.HTTPRenderer{Fetcher: live}, opts)
		if cache != nil {
			ttl := time.Duration(sc.CacheTTLHours) * time.Hour
			s.WithArchive(boxscore.HTTPRenderer{Fetcher: fetcher.NewCached(live, cache, ttl)})
		}
		return s, nil
	case "chrome":
		chrome := boxscore.ChromeRenderer{UserAgent: sc.UserAgent, Timeout: timeout, Pacer: live.Pacer()}
		return boxscore.NewScraper(live, chrome, opts), nil
	default:
		return nil, eris.Errorf("pipeline: unknown scrape.renderer %q", sc.Renderer)
	}
}

// NewOddsClient builds the odds API client from config. Historical
// snapshots are cached in cache when it is non-nil.
func NewOddsClient(cfg *config.Config, cache fetcher.Cache) *odds.Client {
	oc := cfg.Odds
	live := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:  cfg.Scrape.UserAgent,
		Timeout:    time.Duration(cfg.Scrape.TimeoutSecs) * time.Second,
		Delay:      time.Duration(oc.DelayMillis) * time.Millisecond,
		MaxRetries: cfg.Scrape.MaxRetries,
	})
	archive := fetcher.NewCached(live, cache, time.Duration(cfg.Scrape.CacheTTLHours)*time.Hour)
	return odds.NewClient(live, archive, odds.Options{
		BaseURL:      oc.BaseURL,
		APIKey:       oc.APIKey,
		Sport:        oc.Sport,
		Markets:      oc.Markets,
		Regions:      oc.Regions,
		Bookmakers:   oc.Bookmakers,
		SnapshotHour: oc.SnapshotHour,
	})
}

// NewNotifier returns a Telegram sender, or nil when no token is
// configured.
func NewNotifier(cfg *config.Config) (notify.Sender, error) {
	if cfg.Notify.TelegramToken == "" {
		return nil, nil
	}
	tg, err := notify.NewTelegram(notify.TelegramOptions{
		Token:  cfg.Notify.TelegramToken,
		ChatID: cfg.Notify.ChatID,
	})
	if err != nil {
		return nil, err
	}
	return tg, nil
}
