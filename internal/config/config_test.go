package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "yrfi.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8501, cfg.Server.Port)
	assert.Equal(t, 750, cfg.Scrape.DelayMillis)
	assert.Equal(t, 1250, cfg.Odds.DelayMillis)
	assert.Equal(t, []string{"mybookieag", "fanduel", "draftkings", "betmgm"}, cfg.Odds.Bookmakers)
	assert.Equal(t, "baseball_mlb", cfg.Odds.Sport)
	assert.Equal(t, []int{120, 105, -110, -125, -140}, cfg.Market.TierOdds)
	assert.InDelta(t, 0.5, cfg.Model.Threshold, 0.001)
	assert.Equal(t, "data", cfg.Data.Dir)
	assert.Equal(t, "mlb_boxscores_cleaned.csv", cfg.Data.Boxscores)
	assert.Equal(t, "http", cfg.Scrape.Renderer)
	assert.False(t, cfg.Monitoring.Enabled)
	assert.InDelta(t, 0.25, cfg.Monitoring.FailureRateThreshold, 0.001)
	assert.Equal(t, 36, cfg.Monitoring.MaxRunAgeHours)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
log:
  level: debug
  format: console
server:
  port: 9090
season: 2024
scrape:
  delay_ms: 100
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 2024, cfg.Season)
	assert.Equal(t, 100, cfg.Scrape.DelayMillis)
	// Defaults still apply for unset values
	assert.Equal(t, 1250, cfg.Odds.DelayMillis)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("YRFI_STORE_DRIVER", "sqlite")
	t.Setenv("YRFI_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("YRFI_SERVER_PORT", "3000")
	t.Setenv("YRFI_ODDS_API_KEY", "abc")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "abc", cfg.Odds.APIKey)
}

func TestLoadEnvSetsSecretsWithoutFile(t *testing.T) {
	chdirTemp(t)

	t.Setenv("YRFI_ODDS_API_KEY", "k")
	t.Setenv("YRFI_ODDS_START_DATE", "2025-04-01")
	t.Setenv("YRFI_ODDS_UPDATE_EXISTING", "true")
	t.Setenv("YRFI_NOTIFY_TELEGRAM_TOKEN", "tok")
	t.Setenv("YRFI_NOTIFY_CHAT_ID", "42")
	t.Setenv("YRFI_MONITORING_ENABLED", "true")
	t.Setenv("YRFI_MONITORING_WEBHOOK_URL", "http://hook")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "k", cfg.Odds.APIKey)
	assert.Equal(t, "2025-04-01", cfg.Odds.StartDate)
	assert.True(t, cfg.Odds.UpdateExisting)
	assert.Equal(t, "tok", cfg.Notify.TelegramToken)
	assert.Equal(t, int64(42), cfg.Notify.ChatID)
	assert.True(t, cfg.Monitoring.Enabled)
	assert.Equal(t, "http://hook", cfg.Monitoring.WebhookURL)

	assert.NoError(t, cfg.Validate("odds"))
	assert.NoError(t, cfg.Validate("notify"))
}

func TestLoadRejectsShortTierOdds(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
market:
  tier_odds: [100, 110]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tier_odds")
}

func TestDataPath(t *testing.T) {
	d := DataConfig{Dir: "data"}
	assert.Equal(t, filepath.Join("data", "x.csv"), d.Path("x.csv"))
	assert.Equal(t, "/tmp/x.csv", d.Path("/tmp/x.csv"))
	assert.Equal(t, "", d.Path(""))

	assert.Equal(t, "x.csv", DataConfig{}.Path("x.csv"))
}

func TestModelPaths(t *testing.T) {
	m := ModelConfig{Dir: "model", ModelFile: "m.json", EncoderFile: "e.yaml"}
	assert.Equal(t, filepath.Join("model", "m.json"), m.ModelPath())
	assert.Equal(t, filepath.Join("model", "e.yaml"), m.EncoderPath())
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

func validDefaults() *Config {
	cfg := &Config{Season: 2025}
	cfg.Model.Threshold = 0.5
	cfg.Server.Port = 8501
	cfg.Odds.Bookmakers = []string{"fanduel"}
	return cfg
}

func TestValidatePipeline(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("pipeline"))

	cfg.Season = 25
	err := cfg.Validate("pipeline")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "season")
}

func TestValidateOdds_MissingKey(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate("odds")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "odds.api_key is required")

	cfg.Odds.APIKey = "key"
	assert.NoError(t, cfg.Validate("odds"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateNotify(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate("notify")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "notify.telegram_token is required")
	assert.Contains(t, err.Error(), "notify.chat_id is required")

	cfg.Notify.TelegramToken = "t"
	cfg.Notify.ChatID = 42
	assert.NoError(t, cfg.Validate("notify"))
}

func TestValidateThreshold(t *testing.T) {
	cfg := validDefaults()
	cfg.Model.Threshold = 1.5

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "model.threshold")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
