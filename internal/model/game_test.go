package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLabel(t *testing.T) {
	t.Parallel()

	for away := 0; away <= 4; away++ {
		for home := 0; home <= 4; home++ {
			want := 0
			if away+home > 0 {
				want = 1
			}
			assert.Equal(t, want, Label(away, home), "away=%d home=%d", away, home)
		}
	}
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	d, ok := ParseDate("2025-04-21")
	assert.True(t, ok)
	assert.Equal(t, time.Date(2025, 4, 21, 0, 0, 0, 0, time.UTC), d)

	d, ok = ParseDate("2025-04-21 00:00:00")
	assert.True(t, ok)
	assert.Equal(t, "2025-04-21", FormatDate(d))

	_, ok = ParseDate("Mon 4/21")
	assert.False(t, ok)

	_, ok = ParseDate("")
	assert.False(t, ok)
}

func TestFeatureRowComplete(t *testing.T) {
	t.Parallel()

	era := 3.1
	avg := 0.5
	row := FeatureRow{
		AwayTeam: "New York Yankees", HomeTeam: "Boston Red Sox",
		AwayHand: "R", HomeHand: "L",
		AwayERA: &era, HomeERA: &era,
		AwayTeamAvg1st: &avg, HomeTeamAvg1st: &avg,
	}
	assert.True(t, row.Complete())

	row.HomeERA = nil
	assert.False(t, row.Complete())

	row.HomeERA = &era
	row.AwayHand = ""
	assert.False(t, row.Complete())
}

func TestKeys(t *testing.T) {
	t.Parallel()

	b := Boxscore{Date: "2025-04-21", HomeTeam: "H", AwayTeam: "A"}
	f := FeatureRow{Date: "2025-04-21", HomeTeam: "H", AwayTeam: "A"}
	o := Odds{Date: "2025-04-21", HomeTeam: "H", AwayTeam: "A"}

	assert.Equal(t, b.Key(), f.Key())
	assert.Equal(t, b.Key(), o.Key())
	assert.Equal(t, GameKey{Date: "2025-04-21", Home: "H", Away: "A"}, b.Key())
}
