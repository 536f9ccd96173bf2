package dashboard

import (
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/yrfi-cli/internal/market"
	"github.com/sells-group/yrfi-cli/internal/model"
	"github.com/sells-group/yrfi-cli/internal/team"
)

// Filter selects games. Nil bounds are open; an empty team list matches
// every game.
type Filter struct {
	MinEdge *float64
	MaxEdge *float64
	MinProb *float64
	Teams   []string
}

// ParseFilter reads min_edge, max_edge, min_prob and repeated team
// parameters.
func ParseFilter(q url.Values) (Filter, error) {
	var f Filter
	for _, p := range []struct {
		name string
		dst  **float64
	}{
		{"min_edge", &f.MinEdge},
		{"max_edge", &f.MaxEdge},
		{"min_prob", &f.MinProb},
	} {
		raw := strings.TrimSpace(q.Get(p.name))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) {
			return Filter{}, eris.Errorf("dashboard: %s must be a number, got %q", p.name, raw)
		}
		*p.dst = &v
	}
	for _, t := range q["team"] {
		for _, part := range strings.Split(t, ",") {
			if part = strings.TrimSpace(part); part != "" {
				f.Teams = append(f.Teams, team.Normalize(part))
			}
		}
	}
	return f, nil
}

// Apply returns the matching rows sorted by edge, highest first. Rows
// without an edge never satisfy an edge bound.
func (f Filter) Apply(rows []model.Edge) []model.Edge {
	teams := make(map[string]bool, len(f.Teams))
	for _, t := range f.Teams {
		teams[t] = true
	}

	out := make([]model.Edge, 0, len(rows))
	for _, r := range rows {
		if f.MinEdge != nil && (r.PredictedEdge == nil || *r.PredictedEdge < *f.MinEdge) {
			continue
		}
		if f.MaxEdge != nil && (r.PredictedEdge == nil || *r.PredictedEdge > *f.MaxEdge) {
			continue
		}
		if f.MinProb != nil && r.Probability < *f.MinProb {
			continue
		}
		if len(teams) > 0 && !teams[team.Normalize(r.HomeTeam)] && !teams[team.Normalize(r.AwayTeam)] {
			continue
		}
		out = append(out, r)
	}
	market.SortByEdge(out)
	return out
}

// Teams lists every team appearing in rows, sorted.
func Teams(rows []model.Edge) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range rows {
		for _, t := range []string{r.HomeTeam, r.AwayTeam} {
			if t != "" && !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	sort.Strings(out)
	return out
}
