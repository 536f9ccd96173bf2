// Package starters reads the projected-starters grid: one block of rows per
// team (starter row, game row, stats row) and one column per date.
package starters

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/yrfi-cli/internal/model"
	"github.com/sells-group/yrfi-cli/internal/team"
)

var (
	eraRe   = regexp.MustCompile(`(\d+\.\d+)\s*ERA`)
	handRe  = regexp.MustCompile(`\((L|R)\)`)
	gameRe  = regexp.MustCompile(`(?:^|\s)(vs\.?|@)\s+([A-Za-z]+)`)
	placeRe = regexp.MustCompile(`POSTPONED|---`)
)

// Column is a date column of the grid.
type Column struct {
	Index int
	Label string
	Date  time.Time
}

// TeamBlock is one team's rows.
type TeamBlock struct {
	Abbr  string
	Name  string
	Row   int
	cells []string
	game  []string
	stats []string
}

// Grid is a parsed projected-starters table.
type Grid struct {
	Columns []Column
	Teams   []TeamBlock
}

// ParseDateLabel parses a column label such as "Mon 4/21" in season.
func ParseDateLabel(label string, season int) (time.Time, bool) {
	label = strings.Join(strings.Fields(label), " ")
	if label == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("Mon 1/2 2006", label+" "+strconv.Itoa(season))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Parse reads the raw grid. The first row is the header of date labels and
// the first column holds the row labels. Rows whose label is not a known
// team abbreviation are skipped, as are unparsable date labels.
func Parse(rows [][]string, season int) *Grid {
	g := &Grid{}
	if len(rows) == 0 {
		return g
	}

	for i, label := range rows[0] {
		if i == 0 {
			continue
		}
		d, ok := ParseDateLabel(label, season)
		if !ok {
			if strings.TrimSpace(label) != "" {
				zap.L().Debug("starters: skipping unparsable date label", zap.String("label", label))
			}
			continue
		}
		g.Columns = append(g.Columns, Column{Index: i, Label: strings.TrimSpace(label), Date: d})
	}

	body := rows[1:]
	for i, r := range body {
		if len(r) == 0 {
			continue
		}
		name, ok := team.FromAbbr(r[0])
		if !ok {
			continue
		}
		b := TeamBlock{Abbr: strings.ToUpper(strings.TrimSpace(r[0])), Name: name, Row: i + 1, cells: r}
		if i+1 < len(body) {
			b.game = body[i+1]
		}
		if i+2 < len(body) {
			b.stats = body[i+2]
		}
		g.Teams = append(g.Teams, b)
	}
	return g
}

func cell(r []string, i int) string {
	if i < len(r) {
		return strings.TrimSpace(r[i])
	}
	return ""
}

// CleanName returns the starter name without its handedness parenthetical.
func CleanName(s string) string {
	if i := strings.Index(s, "("); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// ExtractERA returns the decimal number right before "ERA", or nil.
func ExtractERA(s string) *float64 {
	m := eraRe.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return &v
}

// Hand returns "L" or "R" from a starter cell such as "Cole (R)".
func Hand(s string) string {
	if m := handRe.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}

// IsPlaceholder reports whether a starter cell is a postponement or an
// unannounced slot.
func IsPlaceholder(s string) bool {
	return placeRe.MatchString(s)
}

// ERA returns one record per team and date where both the starter cell and
// the stats cell are non-empty.
func (g *Grid) ERA() []model.StarterERA {
	var out []model.StarterERA
	for _, b := range g.Teams {
		for _, c := range g.Columns {
			starter, stats := cell(b.cells, c.Index), cell(b.stats, c.Index)
			if starter == "" || stats == "" {
				continue
			}
			out = append(out, model.StarterERA{
				Date:         model.FormatDate(c.Date),
				Team:         b.Name,
				StarterClean: CleanName(starter),
				ERA:          ExtractERA(stats),
			})
		}
	}
	return out
}

// Starters returns the raw starter cell of every team and date.
func (g *Grid) Starters() []model.Starter {
	var out []model.Starter
	for _, b := range g.Teams {
		for _, c := range g.Columns {
			s := cell(b.cells, c.Index)
			if s == "" {
				continue
			}
			out = append(out, model.Starter{Date: model.FormatDate(c.Date), Team: b.Name, Starter: s})
		}
	}
	return out
}

// Matchups returns the games scheduled on the given days, read from each
// team's game row: "vs X" makes the team the home side, "@ X" the away side.
// Off days and postponements are skipped; each game appears once.
func (g *Grid) Matchups(days ...time.Time) []model.Matchup {
	want := make(map[string]bool, len(days))
	for _, d := range days {
		want[model.FormatDate(d)] = true
	}

	seen := make(map[model.GameKey]bool)
	var out []model.Matchup
	for _, c := range g.Columns {
		date := model.FormatDate(c.Date)
		if !want[date] {
			continue
		}
		for _, b := range g.Teams {
			game := cell(b.game, c.Index)
			if strings.Contains(strings.ToUpper(game), "POSTPONED") {
				continue
			}
			m := gameRe.FindStringSubmatch(game)
			if m == nil {
				continue
			}
			opp := strings.ToUpper(m[2])
			mu := model.Matchup{Date: date, HomeTeam: b.Abbr, AwayTeam: opp}
			if m[1] == "@" {
				mu.HomeTeam, mu.AwayTeam = opp, b.Abbr
			}
			k := model.GameKey{Date: mu.Date, Home: mu.HomeTeam, Away: mu.AwayTeam}
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, mu)
		}
	}
	return out
}
