package store

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/yrfi-cli/internal/model"
)

func dollar(n int) string { return "$" + strconv.Itoa(n) }

func TestListRunsQuery_Defaults(t *testing.T) {
	q, args := listRunsQuery(RunFilter{}, dollar)
	assert.Equal(t, "SELECT "+runColumns+" FROM runs ORDER BY created_at DESC LIMIT $1", q)
	assert.Equal(t, []any{defaultRunLimit}, args)
}

func TestListRunsQuery_AllFilters(t *testing.T) {
	since := time.Date(2025, 4, 21, 8, 0, 0, 0, time.FixedZone("EDT", -4*3600))
	q, args := listRunsQuery(RunFilter{
		Status:       model.RunStatusFailed,
		Command:      "yrfi daily",
		CreatedAfter: since,
		Limit:        10,
		Offset:       20,
	}, dollar)

	assert.Equal(t, "SELECT "+runColumns+" FROM runs WHERE status = $1 AND command = $2 AND created_at >= $3 "+
		"ORDER BY created_at DESC LIMIT $4 OFFSET $5", q)
	assert.Equal(t, []any{"failed", "yrfi daily", since.UTC(), 10, 20}, args)
}

func TestListRunsQuery_QuestionMarks(t *testing.T) {
	q, args := listRunsQuery(RunFilter{Command: "yrfi scores"}, func(int) string { return "?" })
	assert.Equal(t, "SELECT "+runColumns+" FROM runs WHERE command = ? ORDER BY created_at DESC LIMIT ?", q)
	assert.Len(t, args, 2)
}

func TestRunStatusFor(t *testing.T) {
	assert.Equal(t, model.RunStatusComplete, runStatusFor(nil))
	assert.Equal(t, model.RunStatusComplete, runStatusFor(&model.RunResult{}))
	assert.Equal(t, model.RunStatusFailed, runStatusFor(&model.RunResult{Error: "scores: boom"}))
}
