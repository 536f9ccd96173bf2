package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Data       DataConfig       `yaml:"data" mapstructure:"data"`
	Season     int              `yaml:"season" mapstructure:"season"`
	Scrape     ScrapeConfig     `yaml:"scrape" mapstructure:"scrape"`
	Odds       OddsConfig       `yaml:"odds" mapstructure:"odds"`
	Model      ModelConfig      `yaml:"model" mapstructure:"model"`
	Market     MarketConfig     `yaml:"market" mapstructure:"market"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Notify     NotifyConfig     `yaml:"notify" mapstructure:"notify"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// DataConfig names the CSV artifacts exchanged between pipeline stages.
// File names are relative to Dir unless absolute.
type DataConfig struct {
	Dir           string `yaml:"dir" mapstructure:"dir"`
	Starters      string `yaml:"starters" mapstructure:"starters"`
	Matchups      string `yaml:"matchups" mapstructure:"matchups"`
	Boxscores     string `yaml:"boxscores" mapstructure:"boxscores"`
	WithStarters  string `yaml:"with_starters" mapstructure:"with_starters"`
	ModelInput    string `yaml:"model_input" mapstructure:"model_input"`
	WithERA       string `yaml:"with_era" mapstructure:"with_era"`
	Features      string `yaml:"features" mapstructure:"features"`
	Live          string `yaml:"live" mapstructure:"live"`
	Predictions   string `yaml:"predictions" mapstructure:"predictions"`
	Backtest      string `yaml:"backtest" mapstructure:"backtest"`
	Summary       string `yaml:"summary" mapstructure:"summary"`
	Odds          string `yaml:"odds" mapstructure:"odds"`
	OddsMerged    string `yaml:"odds_merged" mapstructure:"odds_merged"`
	Market        string `yaml:"market" mapstructure:"market"`
	LiveWindowDay int    `yaml:"live_window_days" mapstructure:"live_window_days"`
}

// Path resolves a data file name against Dir.
func (d DataConfig) Path(name string) string {
	if name == "" || filepath.IsAbs(name) || d.Dir == "" {
		return name
	}
	return filepath.Join(d.Dir, name)
}

// ScrapeConfig configures the scoreboard API and boxscore page scraping.
type ScrapeConfig struct {
	ScoreboardURL string `yaml:"scoreboard_url" mapstructure:"scoreboard_url"`
	BoxscoreURL   string `yaml:"boxscore_url" mapstructure:"boxscore_url"`
	UserAgent     string `yaml:"user_agent" mapstructure:"user_agent"`
	DelayMillis   int    `yaml:"delay_ms" mapstructure:"delay_ms"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries    int    `yaml:"max_retries" mapstructure:"max_retries"`
	Renderer      string `yaml:"renderer" mapstructure:"renderer"`
	CacheTTLHours int    `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// Delay returns the fixed inter-request delay.
func (s ScrapeConfig) Delay() time.Duration {
	return time.Duration(s.DelayMillis) * time.Millisecond
}

// OddsConfig holds odds API settings.
type OddsConfig struct {
	APIKey         string   `yaml:"api_key" mapstructure:"api_key"`
	BaseURL        string   `yaml:"base_url" mapstructure:"base_url"`
	Sport          string   `yaml:"sport" mapstructure:"sport"`
	Markets        string   `yaml:"markets" mapstructure:"markets"`
	Regions        string   `yaml:"regions" mapstructure:"regions"`
	Bookmakers     []string `yaml:"bookmakers" mapstructure:"bookmakers"`
	DelayMillis    int      `yaml:"delay_ms" mapstructure:"delay_ms"`
	SnapshotHour   int      `yaml:"snapshot_hour" mapstructure:"snapshot_hour"`
	StartDate      string   `yaml:"start_date" mapstructure:"start_date"`
	UpdateExisting bool     `yaml:"update_existing" mapstructure:"update_existing"`
}

// ModelConfig locates the persisted classifier and encoder.
type ModelConfig struct {
	Dir         string  `yaml:"dir" mapstructure:"dir"`
	ModelFile   string  `yaml:"model_file" mapstructure:"model_file"`
	EncoderFile string  `yaml:"encoder_file" mapstructure:"encoder_file"`
	Threshold   float64 `yaml:"threshold" mapstructure:"threshold"`
	BaseScore   float64 `yaml:"base_score" mapstructure:"base_score"`
}

// ModelPath returns the classifier artifact path.
func (m ModelConfig) ModelPath() string { return filepath.Join(m.Dir, m.ModelFile) }

// EncoderPath returns the encoder artifact path.
func (m ModelConfig) EncoderPath() string { return filepath.Join(m.Dir, m.EncoderFile) }

// MarketConfig configures market comparison.
type MarketConfig struct {
	// TierOdds holds the American odds used as a proxy for tiers 1..5.
	TierOdds []int  `yaml:"tier_odds" mapstructure:"tier_odds"`
	Source   string `yaml:"source" mapstructure:"source"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the dashboard server.
type ServerConfig struct {
	Port          int      `yaml:"port" mapstructure:"port"`
	RollingDays   int      `yaml:"rolling_days" mapstructure:"rolling_days"`
	AllowedOrigin []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// NotifyConfig holds Telegram notification settings.
type NotifyConfig struct {
	TelegramToken string  `yaml:"telegram_token" mapstructure:"telegram_token"`
	ChatID        int64   `yaml:"chat_id" mapstructure:"chat_id"`
	MinEdge       float64 `yaml:"min_edge" mapstructure:"min_edge"`
	TopN          int     `yaml:"top_n" mapstructure:"top_n"`
}

// MonitoringConfig configures run-health alerting.
type MonitoringConfig struct {
	Enabled              bool    `yaml:"enabled" mapstructure:"enabled"`
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	// MaxRunAgeHours alerts when no daily run has completed for this long.
	MaxRunAgeHours      int `yaml:"max_run_age_hours" mapstructure:"max_run_age_hours"`
	LookbackWindowHours int `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	CheckIntervalSecs   int `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("YRFI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.dir", "data")
	v.SetDefault("data.starters", "rotowire-projstarters.csv")
	v.SetDefault("data.matchups", "today_matchups.csv")
	v.SetDefault("data.boxscores", "mlb_boxscores_cleaned.csv")
	v.SetDefault("data.with_starters", "boxscores_with_starters.csv")
	v.SetDefault("data.model_input", "yrfi_model_input.csv")
	v.SetDefault("data.with_era", "yrfi_model_input_with_era.csv")
	v.SetDefault("data.features", "yrfi_model_input_with_era_and_team_rates.csv")
	v.SetDefault("data.live", "yrfi_model_input_live_with_era.csv")
	v.SetDefault("data.predictions", "today_yrfi_predictions.csv")
	v.SetDefault("data.backtest", "yrfi_backtest_results.csv")
	v.SetDefault("data.summary", "yrfi_backtest_summary.csv")
	v.SetDefault("data.odds", "mlb_odds.csv")
	v.SetDefault("data.odds_merged", "mlb_model_and_odds.csv")
	v.SetDefault("data.market", "model_vs_inferred_yrfi_market.csv")
	v.SetDefault("data.live_window_days", 1)
	v.SetDefault("season", time.Now().Year())
	v.SetDefault("scrape.scoreboard_url", "https://site.api.espn.com/apis/site/v2/sports/baseball/mlb/scoreboard")
	v.SetDefault("scrape.boxscore_url", "https://www.espn.com/mlb/boxscore/_/gameId/%s")
	v.SetDefault("scrape.user_agent", "Mozilla/5.0")
	v.SetDefault("scrape.delay_ms", 750)
	v.SetDefault("scrape.timeout_secs", 30)
	v.SetDefault("scrape.max_retries", 1)
	v.SetDefault("scrape.renderer", "http")
	v.SetDefault("scrape.cache_ttl_hours", 24*30)
	v.SetDefault("odds.base_url", "https://api.the-odds-api.com/v4")
	v.SetDefault("odds.sport", "baseball_mlb")
	v.SetDefault("odds.markets", "h2h,spreads,totals")
	v.SetDefault("odds.regions", "us")
	v.SetDefault("odds.bookmakers", []string{"mybookieag", "fanduel", "draftkings", "betmgm"})
	v.SetDefault("odds.delay_ms", 1250)
	v.SetDefault("odds.snapshot_hour", 16)
	v.SetDefault("odds.api_key", "")
	v.SetDefault("odds.start_date", "")
	v.SetDefault("odds.update_existing", false)
	v.SetDefault("model.dir", "model")
	v.SetDefault("model.model_file", "yrfi_model.json")
	v.SetDefault("model.encoder_file", "yrfi_encoder.yaml")
	v.SetDefault("model.threshold", 0.5)
	v.SetDefault("model.base_score", 0.5)
	v.SetDefault("market.tier_odds", []int{120, 105, -110, -125, -140})
	v.SetDefault("market.source", "tier")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "yrfi.db")
	v.SetDefault("server.port", 8501)
	v.SetDefault("server.rolling_days", 7)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("notify.telegram_token", "")
	v.SetDefault("notify.chat_id", 0)
	v.SetDefault("notify.min_edge", 0.05)
	v.SetDefault("notify.top_n", 5)
	v.SetDefault("monitoring.enabled", false)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.max_run_age_hours", 36)
	v.SetDefault("monitoring.lookback_window_hours", 24*7)
	v.SetDefault("monitoring.check_interval_secs", 900)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if len(cfg.Market.TierOdds) != 5 {
		return nil, eris.Errorf("config: market.tier_odds must list 5 values, got %d", len(cfg.Market.TierOdds))
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

// Validate checks that the fields required by the given mode are present.
// Modes: "pipeline", "odds", "serve", "notify".
func (c *Config) Validate(mode string) error {
	var errs []string

	if c.Model.Threshold < 0 || c.Model.Threshold > 1 {
		errs = append(errs, "model.threshold must be between 0 and 1")
	}

	switch mode {
	case "pipeline":
		if c.Season < 1900 {
			errs = append(errs, "season must be a four-digit year")
		}
	case "odds":
		if c.Odds.APIKey == "" {
			errs = append(errs, "odds.api_key is required")
		}
		if len(c.Odds.Bookmakers) == 0 {
			errs = append(errs, "odds.bookmakers must not be empty")
		}
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "notify":
		if c.Notify.TelegramToken == "" {
			errs = append(errs, "notify.telegram_token is required")
		}
		if c.Notify.ChatID == 0 {
			errs = append(errs, "notify.chat_id is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
