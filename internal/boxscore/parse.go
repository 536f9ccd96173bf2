// Package boxscore collects final scores and first-inning runs from the
// scoreboard API and the boxscore pages it links to.
package boxscore

import (
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/yrfi-cli/internal/model"
	"github.com/sells-group/yrfi-cli/internal/team"
)

var nonDigit = regexp.MustCompile(`\D`)

// Parse extracts one game row from a boxscore page. ok is false when the
// page does not name both teams. A page without a linescore yields a row
// with empty scores and zero first-inning runs.
func Parse(r io.Reader, date string) (row model.Boxscore, ok bool, err error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return model.Boxscore{}, false, eris.Wrap(err, "boxscore: parse html")
	}

	names := doc.Find("h2.ScoreCell__TeamName")
	if names.Length() < 2 {
		return model.Boxscore{}, false, nil
	}

	row = model.Boxscore{
		Date:     date,
		AwayTeam: team.Normalize(names.Eq(0).Text()),
		HomeTeam: team.Normalize(names.Eq(1).Text()),
	}

	records := doc.Find("div.Gamestrip__Record")
	row.AwayRecord = record(records, 0)
	row.HomeRecord = record(records, 1)

	table := doc.Find("table.Table.Table--align-center").First()
	if table.Length() == 0 {
		zap.L().Debug("boxscore: linescore not found",
			zap.String("date", date),
			zap.String("away", row.AwayTeam),
			zap.String("home", row.HomeTeam),
		)
		row.YRFI = model.Label(0, 0)
		return row, true, nil
	}

	scores := doc.Find("div.Gamestrip__Score")
	row.AwayScore = score(scores, 0)
	row.HomeScore = score(scores, 1)

	row.Away1st, row.Home1st = firstInning(table)
	row.YRFI = model.Label(row.Away1st, row.Home1st)
	return row, true, nil
}

func record(sel *goquery.Selection, i int) string {
	if i >= sel.Length() {
		return ""
	}
	text := strings.TrimSpace(sel.Eq(i).Text())
	before, _, _ := strings.Cut(text, ",")
	return strings.TrimSpace(before)
}

func score(sel *goquery.Selection, i int) *int {
	if i >= sel.Length() {
		return nil
	}
	digits := nonDigit.ReplaceAllString(sel.Eq(i).Text(), "")
	n, err := strconv.Atoi(digits)
	if err != nil {
		return nil
	}
	return &n
}

// firstInning reads the column headed "1" of the first two body rows.
// Cells that are not plain digits count as zero.
func firstInning(table *goquery.Selection) (away, home int) {
	col := -1
	table.Find("thead tr").First().Find("th").EachWithBreak(func(i int, th *goquery.Selection) bool {
		if strings.TrimSpace(th.Text()) == "1" {
			col = i
			return false
		}
		return true
	})
	if col < 0 {
		return 0, 0
	}

	rows := table.Find("tbody tr")
	if rows.Length() < 2 {
		return 0, 0
	}
	return inningCell(rows.Eq(0), col), inningCell(rows.Eq(1), col)
}

func inningCell(tr *goquery.Selection, col int) int {
	cells := tr.Find("td")
	if col >= cells.Length() {
		return 0
	}
	text := strings.TrimSpace(cells.Eq(col).Text())
	if text == "" || nonDigit.MatchString(text) {
		return 0
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0
	}
	return n
}
