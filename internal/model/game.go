package model

import (
	"strings"
	"time"
)

// DateLayout is the on-disk format of every date column.
const DateLayout = "2006-01-02"

// ParseDate parses a date column value. Timestamps written with a time part
// ("2025-04-21 00:00:00") are accepted and truncated to the day.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatDate renders t in DateLayout.
func FormatDate(t time.Time) string { return t.Format(DateLayout) }

// Label returns the YRFI outcome: 1 iff any run scored in the first inning.
func Label(away1st, home1st int) int {
	if away1st+home1st > 0 {
		return 1
	}
	return 0
}

// Boxscore is one row of the historical score table.
type Boxscore struct {
	Date       string `csv:"Game Date"`
	AwayTeam   string `csv:"Away Team"`
	AwayRecord string `csv:"Away Record"`
	AwayScore  *int   `csv:"Away Score"`
	HomeTeam   string `csv:"Home Team"`
	HomeRecord string `csv:"Home Record"`
	HomeScore  *int   `csv:"Home Score"`
	Away1st    int    `csv:"Away 1st"`
	Home1st    int    `csv:"Home 1st"`
	YRFI       int    `csv:"YRFI"`
}

// Key returns the (date, home, away) identity of the game.
func (b Boxscore) Key() GameKey {
	return GameKey{Date: b.Date, Home: b.HomeTeam, Away: b.AwayTeam}
}

// GameKey identifies a game.
type GameKey struct {
	Date string
	Home string
	Away string
}

// Matchup is a scheduled game from the projected-starters table.
type Matchup struct {
	Date     string `csv:"Game Date"`
	AwayTeam string `csv:"Away Team"`
	HomeTeam string `csv:"Home Team"`
}

// StarterERA is one starter appearance with the ERA shown for it.
type StarterERA struct {
	Date         string   `csv:"date"`
	Team         string   `csv:"team"`
	StarterClean string   `csv:"starter_clean"`
	ERA          *float64 `csv:"era"`
}

// Starter is one raw starter cell in long form ("Cole (R)").
type Starter struct {
	Date    string `csv:"date"`
	Team    string `csv:"team"`
	Starter string `csv:"starter_name"`
}

// GameWithStarters is a boxscore left-joined with its raw starter strings.
type GameWithStarters struct {
	Boxscore
	HomeStarter string `csv:"home_starter"`
	AwayStarter string `csv:"away_starter"`
}

// FeatureRow is the modeling row: game, starters, ERA and team rates.
type FeatureRow struct {
	Date             string   `csv:"date"`
	AwayTeam         string   `csv:"away_team"`
	HomeTeam         string   `csv:"home_team"`
	AwayStarter      string   `csv:"away_starter"`
	AwayHand         string   `csv:"away_hand"`
	HomeStarter      string   `csv:"home_starter"`
	HomeHand         string   `csv:"home_hand"`
	Away1st          int      `csv:"Away 1st"`
	Home1st          int      `csv:"Home 1st"`
	YRFI             int      `csv:"yrfi"`
	HomeStarterClean string   `csv:"home_starter_clean"`
	HomeERA          *float64 `csv:"home_era"`
	AwayStarterClean string   `csv:"away_starter_clean"`
	AwayERA          *float64 `csv:"away_era"`
	HomeTeamAvg1st   *float64 `csv:"home_team_avg_1st"`
	HomeGames        *int     `csv:"home_games"`
	AwayTeamAvg1st   *float64 `csv:"away_team_avg_1st"`
	AwayGames        *int     `csv:"away_games"`
	DayOfWeek        *int     `csv:"day_of_week"`
	SameHand         *int     `csv:"same_hand"`
}

// Key returns the (date, home, away) identity of the row.
func (f FeatureRow) Key() GameKey {
	return GameKey{Date: f.Date, Home: f.HomeTeam, Away: f.AwayTeam}
}

// Complete reports whether every field the model consumes is present.
func (f FeatureRow) Complete() bool {
	return f.AwayTeam != "" && f.HomeTeam != "" &&
		f.AwayHand != "" && f.HomeHand != "" &&
		f.HomeERA != nil && f.AwayERA != nil &&
		f.HomeTeamAvg1st != nil && f.AwayTeamAvg1st != nil
}

// Prediction is a feature row scored by the classifier.
type Prediction struct {
	FeatureRow
	Probability float64 `csv:"yrfi_probability"`
	Predicted   int     `csv:"yrfi_predicted"`
	YRFITier    int     `csv:"yrfi_tier"`
	NRFITier    int     `csv:"nrfi_tier"`
	YRFIFire    string  `csv:"yrfi_fire"`
	NRFIFire    string  `csv:"nrfi_fire"`
}

// Odds sources for an edge row.
const (
	OddsSourceMarket = "market"
	OddsSourceTier   = "tier"
)

// Edge is a prediction compared with a market or tier-inferred price.
type Edge struct {
	Prediction
	YRFIOdds      *float64 `csv:"yrfi_odds"`
	OddsSource    string   `csv:"odds_source"`
	ImpliedProb   *float64 `csv:"implied_prob"`
	PredictedEdge *float64 `csv:"predicted_edge"`
}

// Odds is one game's prices from the first available bookmaker.
type Odds struct {
	Date           string   `csv:"Game Date"`
	HomeTeam       string   `csv:"Home Team"`
	AwayTeam       string   `csv:"Away Team"`
	Bookmaker      string   `csv:"Bookmaker Used"`
	MLHome         *float64 `csv:"ML Home"`
	MLAway         *float64 `csv:"ML Away"`
	SpreadHome     *float64 `csv:"Spread Home"`
	SpreadHomeOdds *float64 `csv:"Spread Home Odds"`
	SpreadAway     *float64 `csv:"Spread Away"`
	SpreadAwayOdds *float64 `csv:"Spread Away Odds"`
	Total          *float64 `csv:"Total"`
	OverOdds       *float64 `csv:"Over Odds"`
	UnderOdds      *float64 `csv:"Under Odds"`
}

// Key returns the (date, home, away) identity of the row.
func (o Odds) Key() GameKey {
	return GameKey{Date: o.Date, Home: o.HomeTeam, Away: o.AwayTeam}
}

// OddsWithScore is an odds row left-joined with its boxscore.
type OddsWithScore struct {
	Odds
	AwayRecord string `csv:"Away Record"`
	AwayScore  *int   `csv:"Away Score"`
	HomeRecord string `csv:"Home Record"`
	HomeScore  *int   `csv:"Home Score"`
	Away1st    *int   `csv:"Away 1st"`
	Home1st    *int   `csv:"Home 1st"`
	YRFI       *int   `csv:"YRFI"`
}

// BacktestSummary aggregates classifier performance over scored games.
type BacktestSummary struct {
	TotalGames int     `csv:"Total Games" json:"total_games"`
	YRFIRate   float64 `csv:"Actual YRFI Rate" json:"actual_yrfi_rate"`
	Accuracy   float64 `csv:"Model Accuracy" json:"accuracy"`
	Precision  float64 `csv:"YRFI Precision" json:"precision"`
	Recall     float64 `csv:"YRFI Recall" json:"recall"`
	ROCAUC     float64 `csv:"ROC AUC" json:"roc_auc"`
}
