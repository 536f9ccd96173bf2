package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.RowsWritten("scores", 3)
	m.RowsWritten("scores", 2)
	m.RowsWritten("scores", 0)
	m.RowsDropped("features", "missing_starter", 4)
	m.ScrapeError("boxscore")
	m.ScrapeError("boxscore")

	assert.InDelta(t, 5, testutil.ToFloat64(m.rowsWritten.WithLabelValues("scores")), 1e-9)
	assert.InDelta(t, 4, testutil.ToFloat64(m.rowsDropped.WithLabelValues("features", "missing_starter")), 1e-9)
	assert.InDelta(t, 2, testutil.ToFloat64(m.scrapeErrors.WithLabelValues("boxscore")), 1e-9)
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.Request("/api/games", http.MethodGet, 200, 10*time.Millisecond)
	m.StageDone("predict", true, time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `yrfi_dashboard_http_requests_total{method="GET",route="/api/games",status_code="200"} 1`)
	assert.Contains(t, string(body), "yrfi_stage_duration_seconds")
}

func TestDefaultIsShared(t *testing.T) {
	assert.Same(t, Default(), Default())
	assert.NotNil(t, Default().Registry())
}
