// Package team maps the abbreviations, full names and nicknames used by the
// different data sources onto canonical MLB franchise names.
package team

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Team is one franchise.
type Team struct {
	Abbr     string
	Name     string
	Nickname string
}

var teams = []Team{
	{"ARI", "Arizona Diamondbacks", "Diamondbacks"},
	{"ATL", "Atlanta Braves", "Braves"},
	{"BAL", "Baltimore Orioles", "Orioles"},
	{"BOS", "Boston Red Sox", "Red Sox"},
	{"CHC", "Chicago Cubs", "Cubs"},
	{"CWS", "Chicago White Sox", "White Sox"},
	{"CIN", "Cincinnati Reds", "Reds"},
	{"CLE", "Cleveland Guardians", "Guardians"},
	{"COL", "Colorado Rockies", "Rockies"},
	{"DET", "Detroit Tigers", "Tigers"},
	{"HOU", "Houston Astros", "Astros"},
	{"KC", "Kansas City Royals", "Royals"},
	{"LAA", "Los Angeles Angels", "Angels"},
	{"LAD", "Los Angeles Dodgers", "Dodgers"},
	{"MIA", "Miami Marlins", "Marlins"},
	{"MIL", "Milwaukee Brewers", "Brewers"},
	{"MIN", "Minnesota Twins", "Twins"},
	{"NYM", "New York Mets", "Mets"},
	{"NYY", "New York Yankees", "Yankees"},
	{"OAK", "Athletics", "Athletics"},
	{"PHI", "Philadelphia Phillies", "Phillies"},
	{"PIT", "Pittsburgh Pirates", "Pirates"},
	{"SD", "San Diego Padres", "Padres"},
	{"SEA", "Seattle Mariners", "Mariners"},
	{"SF", "San Francisco Giants", "Giants"},
	{"STL", "St. Louis Cardinals", "Cardinals"},
	{"TB", "Tampa Bay Rays", "Rays"},
	{"TEX", "Texas Rangers", "Rangers"},
	{"TOR", "Toronto Blue Jays", "Blue Jays"},
	{"WSH", "Washington Nationals", "Nationals"},
}

// alternate spellings seen in scoreboard and odds feeds
var aliases = map[string]string{
	"AZ":                 "ARI",
	"CHW":                "CWS",
	"KCR":                "KC",
	"SDP":                "SD",
	"SFG":                "SF",
	"TBR":                "TB",
	"WSN":                "WSH",
	"WAS":                "WSH",
	"ATH":                "OAK",
	"OAKLAND ATHLETICS":  "OAK",
	"ST LOUIS CARDINALS": "STL",
}

var (
	byAbbr = map[string]Team{}
	byKey  = map[string]Team{}
)

func init() {
	for _, t := range teams {
		byAbbr[t.Abbr] = t
		byKey[key(t.Abbr)] = t
		byKey[key(t.Name)] = t
		byKey[key(t.Nickname)] = t
	}
	for alias, abbr := range aliases {
		byKey[key(alias)] = byAbbr[abbr]
	}
}

func key(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// FromAbbr returns the full name for an abbreviation as used in the
// projected-starters table. ok is false for labels that are not teams
// ("game", "stats", blanks).
func FromAbbr(abbr string) (string, bool) {
	t, ok := byAbbr[strings.ToUpper(strings.TrimSpace(abbr))]
	return t.Name, ok
}

// Lookup resolves an abbreviation, full name or nickname.
func Lookup(s string) (Team, bool) {
	t, ok := byKey[key(s)]
	return t, ok
}

// Normalize returns the canonical full name for s. Unknown names are
// trimmed and title-cased so joins across sources still line up.
func Normalize(s string) string {
	if t, ok := Lookup(s); ok {
		return t.Name
	}
	return Title(s)
}

// Title trims and title-cases a name, collapsing inner whitespace.
func Title(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	// a Caser is not safe for concurrent use
	return cases.Title(language.English).String(s)
}

// All returns every team sorted by full name.
func All() []Team {
	out := make([]Team, len(teams))
	copy(out, teams)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
