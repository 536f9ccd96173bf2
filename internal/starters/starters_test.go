package starters

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/yrfi-cli/internal/model"
)

func sampleGrid() [][]string {
	return [][]string{
		{"", "Mon 4/21", "Tue 4/22", "bogus"},
		{"NYY", "Cole (R)", "Rodon (L)", "x"},
		{"game", "vs BOS", "vs BOS", ""},
		{"stats", "2-1 2.10 ERA", "", ""},
		{"BOS", "Bello (R)", "---", ""},
		{"game", "@ NYY", "@ NYY POSTPONED", ""},
		{"stats", "1-2 4.50 ERA 20 K", "no era here", ""},
		{"XYZ", "Nobody (R)", "", ""},
		{"game", "vs ABC", "", ""},
		{"stats", "9.99 ERA", "", ""},
		{"TB", "Rasmussen (R)", "OFF", ""},
		{"game", "OFF", "OFF", ""},
		{"stats", "3.00 ERA", "", ""},
	}
}

func TestParseDateLabel(t *testing.T) {
	t.Parallel()

	d, ok := ParseDateLabel("Mon 4/21", 2025)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 4, 21, 0, 0, 0, 0, time.UTC), d)

	d, ok = ParseDateLabel(" Tue  10/1 ", 2025)
	require.True(t, ok)
	assert.Equal(t, "2025-10-01", model.FormatDate(d))

	for _, bad := range []string{"", "bogus", "4/21", "Mon 13/40"} {
		_, ok := ParseDateLabel(bad, 2025)
		assert.False(t, ok, bad)
	}
}

func TestExtractERA(t *testing.T) {
	t.Parallel()

	v := ExtractERA("3.45 ERA")
	require.NotNil(t, v)
	assert.InDelta(t, 3.45, *v, 1e-9)

	v = ExtractERA("2-1, 0.00ERA, 12 K")
	require.NotNil(t, v)
	assert.InDelta(t, 0.0, *v, 1e-9)

	assert.Nil(t, ExtractERA("no era here"))
	assert.Nil(t, ExtractERA("3 ERA"))
	assert.Nil(t, ExtractERA(""))
}

func TestCleanNameAndHand(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Cole", CleanName("Cole (R)"))
	assert.Equal(t, "Gerrit Cole", CleanName(" Gerrit Cole  (R)"))
	assert.Equal(t, "Cole", CleanName("Cole"))

	assert.Equal(t, "R", Hand("Cole (R)"))
	assert.Equal(t, "L", Hand("Rodon (L)"))
	assert.Equal(t, "", Hand("Cole"))
	assert.Equal(t, "", Hand("Cole (S)"))

	assert.True(t, IsPlaceholder("POSTPONED"))
	assert.True(t, IsPlaceholder("---"))
	assert.False(t, IsPlaceholder("Cole (R)"))
}

func TestGridERA(t *testing.T) {
	t.Parallel()

	g := Parse(sampleGrid(), 2025)
	require.Len(t, g.Columns, 2)
	require.Len(t, g.Teams, 3, "unknown abbreviations are skipped")

	recs := g.ERA()
	require.Len(t, recs, 4)

	first := recs[0]
	assert.Equal(t, "2025-04-21", first.Date)
	assert.Equal(t, "New York Yankees", first.Team)
	assert.Equal(t, "Cole", first.StarterClean)
	require.NotNil(t, first.ERA)
	assert.InDelta(t, 2.10, *first.ERA, 1e-9)

	// Bello has ERA; the 4/22 placeholder has a stats cell without one
	assert.Equal(t, "Bello", recs[1].StarterClean)
	assert.InDelta(t, 4.50, *recs[1].ERA, 1e-9)
	assert.Equal(t, "---", recs[2].StarterClean)
	assert.Nil(t, recs[2].ERA)

	assert.Equal(t, "Tampa Bay Rays", recs[3].Team)
}

func TestGridMatchups(t *testing.T) {
	t.Parallel()

	g := Parse(sampleGrid(), 2025)
	mon := time.Date(2025, 4, 21, 0, 0, 0, 0, time.UTC)
	tue := mon.AddDate(0, 0, 1)

	got := g.Matchups(mon, tue)
	assert.Equal(t, []model.Matchup{
		{Date: "2025-04-21", AwayTeam: "BOS", HomeTeam: "NYY"},
		{Date: "2025-04-22", AwayTeam: "BOS", HomeTeam: "NYY"},
	}, got)

	assert.Empty(t, g.Matchups(mon.AddDate(0, 0, 7)))
}

func TestGridStarters(t *testing.T) {
	t.Parallel()

	g := Parse(sampleGrid(), 2025)
	s := g.Starters()
	require.NotEmpty(t, s)
	assert.Equal(t, model.Starter{Date: "2025-04-21", Team: "New York Yankees", Starter: "Cole (R)"}, s[0])
}

func TestParseEmpty(t *testing.T) {
	t.Parallel()

	g := Parse(nil, 2025)
	assert.Empty(t, g.ERA())
	assert.Empty(t, g.Matchups(time.Now()))
}
