package dashboard

import "strconv"

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) }

const indexHTML = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>YRFI Prediction Dashboard</title>
<style>
 body { font-family: system-ui, sans-serif; margin: 2rem; }
 table { border-collapse: collapse; }
 th, td { padding: .3rem .6rem; border-bottom: 1px solid #ddd; text-align: left; }
 form label { margin-right: 1rem; }
 .error { color: #b00; }
</style>
</head>
<body>
<h1>🔥 YRFI Prediction Dashboard</h1>
<p>Model vs. inferred market odds</p>

<form method="get" action="/">
 <label>Min edge <input name="min_edge" size="6" value="{{with .Filter.MinEdge}}{{pct .}}{{end}}"></label>
 <label>Max edge <input name="max_edge" size="6" value="{{with .Filter.MaxEdge}}{{pct .}}{{end}}"></label>
 <label>Min YRFI probability <input name="min_prob" size="6" value="{{with .Filter.MinProb}}{{pct .}}{{end}}"></label>
 <label>Team <select name="team" multiple size="4">{{range .Teams}}<option>{{.}}</option>{{end}}</select></label>
 <button type="submit">Filter</button>
</form>

{{if .Error}}<p class="error">{{.Error}}</p>{{else}}
<p><strong>{{len .Games}} games shown</strong> | sorted by predicted edge | <a href="/api/games.csv?{{.Query}}">Download CSV</a></p>
<table>
 <thead><tr><th>Date</th><th>Away</th><th>Home</th><th>YRFI prob</th><th>Tier</th><th>YRFI odds</th><th>Implied</th><th>Edge</th></tr></thead>
 <tbody>
 {{range .Games}}<tr><td>{{.Date}}</td><td>{{.AwayTeam}}</td><td>{{.HomeTeam}}</td><td>{{num .Probability}}</td><td>{{.Fire}}</td><td>{{pct .YRFIOdds}}</td><td>{{pct .ImpliedProb}}</td><td>{{pct .PredictedEdge}}</td></tr>
 {{end}}
 </tbody>
</table>

<h2>Last {{.Summary.WindowDays}} days</h2>
<p>{{.Summary.Games}} games, accuracy {{pct .Summary.Accuracy}}</p>
<table>
 <thead><tr><th>Tier</th><th>Games</th><th>Predicted YRFI rate</th><th>Actual YRFI rate</th></tr></thead>
 <tbody>
 {{range .Summary.Tiers}}<tr><td>{{.Fire}}</td><td>{{.Games}}</td><td>{{num .PredictedRate}}</td><td>{{num .ActualRate}}</td></tr>
 {{end}}
 </tbody>
</table>
{{end}}

<details><summary>About</summary>
<ul>
 <li><b>YRFI prob</b>: model probability of a run in the first inning</li>
 <li><b>YRFI odds</b>: market or tier-inferred American odds</li>
 <li><b>Implied</b>: probability implied by the odds</li>
 <li><b>Edge</b>: model probability minus implied probability</li>
</ul>
</details>
</body>
</html>
`
