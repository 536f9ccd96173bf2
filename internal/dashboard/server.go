// Package dashboard serves the market comparison table as a read-only web
// page and JSON/CSV API. The table is reloaded from disk on every request.
package dashboard

import (
	"encoding/json"
	"html/template"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/yrfi-cli/internal/metrics"
	"github.com/sells-group/yrfi-cli/internal/model"
	"github.com/sells-group/yrfi-cli/internal/table"
)

// Options configures a Server.
type Options struct {
	// MarketPath is the market comparison CSV.
	MarketPath string
	// HistoryPath is a scored-predictions CSV (the backtest output) whose
	// settled games feed the summary alongside the market table.
	HistoryPath    string
	RollingDays    int
	AllowedOrigins []string
	Metrics        *metrics.Metrics
}

// Server holds the dashboard handlers.
type Server struct {
	opts Options
	now  func() time.Time
}

// New creates a Server.
func New(opts Options) *Server {
	if opts.Metrics == nil {
		opts.Metrics = metrics.Default()
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Server{opts: opts, now: time.Now}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(s.instrument)

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Get("/api/games", s.handleGames)
	r.Get("/api/games.csv", s.handleGamesCSV)
	r.Get("/api/summary", s.handleSummary)
	r.Method(http.MethodGet, "/metrics", s.opts.Metrics.Handler())
	return r
}

// instrument records request counts and latency by route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.opts.Metrics.Request(route, r.Method, status, time.Since(start))
		zap.L().Debug("dashboard: request",
			zap.String("route", route),
			zap.String("method", r.Method),
			zap.Int("status", status),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// GameView is the API shape of one market row.
type GameView struct {
	Date          string   `json:"date"`
	AwayTeam      string   `json:"away_team"`
	HomeTeam      string   `json:"home_team"`
	AwayStarter   string   `json:"away_starter,omitempty"`
	HomeStarter   string   `json:"home_starter,omitempty"`
	Probability   float64  `json:"yrfi_probability"`
	Predicted     int      `json:"yrfi_predicted"`
	Tier          int      `json:"yrfi_tier"`
	Fire          string   `json:"yrfi_fire"`
	YRFIOdds      *float64 `json:"yrfi_odds"`
	OddsSource    string   `json:"odds_source"`
	ImpliedProb   *float64 `json:"implied_prob"`
	PredictedEdge *float64 `json:"predicted_edge"`
}

func view(e model.Edge) GameView {
	date := e.Date
	if d, ok := model.ParseDate(date); ok {
		date = model.FormatDate(d)
	}
	return GameView{
		Date:          date,
		AwayTeam:      e.AwayTeam,
		HomeTeam:      e.HomeTeam,
		AwayStarter:   e.AwayStarterClean,
		HomeStarter:   e.HomeStarterClean,
		Probability:   round3(e.Probability),
		Predicted:     e.Predicted,
		Tier:          e.YRFITier,
		Fire:          e.YRFIFire,
		YRFIOdds:      e.YRFIOdds,
		OddsSource:    e.OddsSource,
		ImpliedProb:   roundPtr(e.ImpliedProb),
		PredictedEdge: roundPtr(e.PredictedEdge),
	}
}

func roundPtr(p *float64) *float64 {
	if p == nil || math.IsNaN(*p) {
		return nil
	}
	v := round3(*p)
	return &v
}

var errNoMarket = eris.New("dashboard: market table not found")

// withHistory appends the scored history to the market rows, skipping games
// the market table already covers. A missing or unreadable history file
// leaves the market rows as they are.
func (s *Server) withHistory(market []model.Edge) []model.Edge {
	if s.opts.HistoryPath == "" {
		return market
	}
	hist, ok, err := table.ReadIfExists[model.Prediction](s.opts.HistoryPath)
	if err != nil {
		zap.L().Warn("dashboard: load history", zap.String("path", s.opts.HistoryPath), zap.Error(err))
		return market
	}
	if !ok {
		return market
	}

	seen := make(map[model.GameKey]bool, len(market))
	for _, e := range market {
		seen[e.Key()] = true
	}
	rows := make([]model.Edge, len(market), len(market)+len(hist))
	copy(rows, market)
	for _, p := range hist {
		if !seen[p.Key()] {
			rows = append(rows, model.Edge{Prediction: p})
		}
	}
	return rows
}

func (s *Server) load() ([]model.Edge, error) {
	rows, ok, err := table.ReadIfExists[model.Edge](s.opts.MarketPath)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errNoMarket
	}
	return rows, nil
}

// loadFiltered loads the table and applies the request's filter. On
// failure the error response has been written.
func (s *Server) loadFiltered(w http.ResponseWriter, r *http.Request) ([]model.Edge, []model.Edge, Filter, bool) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, nil, f, false
	}
	rows, err := s.load()
	if err != nil {
		s.loadFailed(w, err)
		return nil, nil, f, false
	}
	return rows, f.Apply(rows), f, true
}

func (s *Server) loadFailed(w http.ResponseWriter, err error) {
	zap.L().Warn("dashboard: load market table", zap.String("path", s.opts.MarketPath), zap.Error(err))
	if eris.Is(err, errNoMarket) {
		writeError(w, http.StatusServiceUnavailable, "market table not found; run the market stage first")
		return
	}
	writeError(w, http.StatusInternalServerError, "market table could not be read")
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	_, rows, _, ok := s.loadFiltered(w, r)
	if !ok {
		return
	}
	games := make([]GameView, len(rows))
	for i, e := range rows {
		games[i] = view(e)
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(games), "games": games})
}

func (s *Server) handleGamesCSV(w http.ResponseWriter, r *http.Request) {
	_, rows, _, ok := s.loadFiltered(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="filtered_yrfi_predictions.csv"`)
	if err := table.Encode(w, rows); err != nil {
		zap.L().Error("dashboard: encode csv", zap.Error(err))
	}
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	rows, err := s.load()
	if err != nil {
		s.loadFailed(w, err)
		return
	}
	days := s.opts.RollingDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		if n, ok := parsePositive(raw); ok {
			days = n
		} else {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
	}
	y, m, d := s.now().Date()
	writeJSON(w, http.StatusOK, Summarize(s.withHistory(rows), days, time.Date(y, m, d, 0, 0, 0, 0, time.UTC)))
}

type indexData struct {
	Games   []GameView
	Teams   []string
	Filter  Filter
	Query   template.URL
	Summary Summary
	Error   string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := indexData{Query: template.URL(r.URL.RawQuery)} //nolint:gosec
	all, rows, f, ok := s.loadFilteredForPage(r, &data)
	if ok {
		data.Filter = f
		data.Teams = Teams(all)
		for _, e := range rows {
			data.Games = append(data.Games, view(e))
		}
		y, m, d := s.now().Date()
		data.Summary = Summarize(s.withHistory(all), s.opts.RollingDays, time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, data); err != nil {
		zap.L().Error("dashboard: render index", zap.Error(err))
	}
}

// loadFilteredForPage is loadFiltered that reports failures inside the
// page instead of as an error response.
func (s *Server) loadFilteredForPage(r *http.Request, data *indexData) ([]model.Edge, []model.Edge, Filter, bool) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		data.Error = err.Error()
		return nil, nil, f, false
	}
	rows, err := s.load()
	if err != nil {
		data.Error = "Market table not available. Run the market stage first."
		zap.L().Warn("dashboard: load market table", zap.String("path", s.opts.MarketPath), zap.Error(err))
		return nil, nil, f, false
	}
	return rows, f.Apply(rows), f, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("dashboard: encode json", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parsePositive(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || n > 3650 {
		return 0, false
	}
	return n, true
}

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"pct": func(p *float64) string {
		if p == nil {
			return "–"
		}
		return formatFloat(*p)
	},
	"num": formatFloat,
}).Parse(indexHTML))
