package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Dosada05/livescore/handlers"
	"github.com/Dosada05/livescore/live"
	"github.com/Dosada05/livescore/middleware"
	"github.com/Dosada05/livescore/models"
	"github.com/Dosada05/livescore/repositories"
	"github.com/Dosada05/livescore/services"
	"github.com/Dosada05/livescore/standings"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

var seasonStart = time.Date(2025, 8, 11, 0, 0, 0, 0, time.UTC)

type discardQueue struct{}

func (discardQueue) Enqueue(live.Delta) {}

func newRouter(t *testing.T, limiter *middleware.IPRateLimiter) (*chi.Mux, *repositories.MemoryStore) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mem := repositories.NewMemoryStore()
	repositories.SeedDemo(mem, seasonStart)
	store := repositories.NewMemoryBackedStore(mem)

	registry := prometheus.NewRegistry()
	metrics := live.NewMetrics(registry)
	machine := live.NewMachine(store, discardQueue{}, logger, metrics)
	hub := live.NewHub(machine, logger, metrics)
	engine := standings.NewEngine(store, logger)

	matchHandler := handlers.NewMatchHandler(services.NewMatchService(machine, store, engine, nil, nil, logger))
	leagueHandler := handlers.NewLeagueHandler(services.NewLeagueService(store, engine))
	wsHandler := handlers.NewWebSocketHandler(ctx, hub, metrics, handlers.WebSocketOptions{}, logger)

	router := chi.NewRouter()
	SetupRoutes(router, Options{
		AllowedOrigins: []string{"*"},
		WriteLimiter:   limiter,
		Gatherer:       registry,
		Logger:         logger,
	}, matchHandler, leagueHandler, wsHandler)
	return router, mem
}

func do(t *testing.T, router http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(data)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func createMatch(t *testing.T, router http.Handler, id string, at time.Time) {
	t.Helper()
	rec, body := do(t, router, http.MethodPost, "/api/matches", map[string]any{
		"id":           id,
		"league_id":    "demo-league",
		"season_id":    "demo-2025",
		"home_team_id": "team-1",
		"away_team_id": "team-2",
		"scheduled_at": at,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "/api/matches/"+id, rec.Header().Get("Location"))
	match := body["match"].(map[string]any)
	assert.Equal(t, "scheduled", match["status"])
	assert.EqualValues(t, 0, match["version"])
}

func TestMatchLifecycle(t *testing.T) {
	router, _ := newRouter(t, nil)
	createMatch(t, router, "m1", seasonStart.Add(15*time.Hour))

	rec, body := do(t, router, http.MethodPost, "/api/matches/m1/status", map[string]any{"status": "live", "minute": 0})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1, body["version"])

	rec, body = do(t, router, http.MethodPost, "/api/matches/m1/events",
		`{"minute":23,"side":"home","kind":"goal","detail":{"scorer":{"name":"Ade"}}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	match := body["match"].(map[string]any)
	assert.EqualValues(t, 1, match["home_score"])
	assert.EqualValues(t, 2, body["version"])

	rec, body = do(t, router, http.MethodPost, "/api/matches/m1/score", map[string]any{"home_score": 0, "away_score": 0})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "invalid_value", body["code"])

	rec, body = do(t, router, http.MethodPost, "/api/matches/m1/events",
		`{"minute":10,"side":"away","kind":"yellow_card","detail":{"player":{"name":"Bo"}}}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "out_of_order_event", body["code"])

	rec, _ = do(t, router, http.MethodPost, "/api/matches/m1/clock", map[string]any{"minute": 40})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body = do(t, router, http.MethodPost, "/api/matches/m1/status", map[string]any{"status": "finished"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 4, body["version"])

	rec, body = do(t, router, http.MethodPost, "/api/matches/m1/status", map[string]any{"status": "live"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", body["code"])

	rec, body = do(t, router, http.MethodGet, "/api/leagues/demo-league/seasons/demo-2025/standings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	table := body["standings"].([]any)
	require.Len(t, table, 2)
	first := table[0].(map[string]any)
	assert.Equal(t, "team-1", first["team_id"])
	assert.EqualValues(t, 3, first["points"])

	rec, body = do(t, router, http.MethodGet, "/api/matches/m1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	match = body["match"].(map[string]any)
	assert.Equal(t, "finished", match["status"])
	assert.Nil(t, match["minute"])
	events := match["events"].([]any)
	require.Len(t, events, 1)
	assert.Equal(t, "goal", events[0].(map[string]any)["kind"])
}

func TestMatchRequestErrors(t *testing.T) {
	router, _ := newRouter(t, nil)
	createMatch(t, router, "m1", seasonStart.Add(15*time.Hour))
	do(t, router, http.MethodPost, "/api/matches/m1/status", map[string]any{"status": "live"})

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"unknown match", http.MethodGet, "/api/matches/nope", nil, http.StatusNotFound, "not_found"},
		{"mutate unknown match", http.MethodPost, "/api/matches/nope/clock", map[string]any{"minute": 3}, http.StatusNotFound, "not_found"},
		{"malformed body", http.MethodPost, "/api/matches/m1/score", `{"home_score":`, http.StatusBadRequest, "bad_request"},
		{"unknown field", http.MethodPost, "/api/matches/m1/clock", `{"minute":3,"second":2}`, http.StatusBadRequest, "bad_request"},
		{"missing score", http.MethodPost, "/api/matches/m1/score", map[string]any{"home_score": 1}, http.StatusUnprocessableEntity, "validation_failed"},
		{"missing minute", http.MethodPost, "/api/matches/m1/clock", map[string]any{}, http.StatusUnprocessableEntity, "validation_failed"},
		{"unknown event kind", http.MethodPost, "/api/matches/m1/events", `{"minute":3,"side":"home","kind":"corner","detail":{}}`, http.StatusUnprocessableEntity, "validation_failed"},
		{"flat event detail", http.MethodPost, "/api/matches/m1/events", `{"minute":3,"side":"home","kind":"goal","scorer":{"name":"Ade"}}`, http.StatusBadRequest, "bad_request"},
		{"unknown event detail field", http.MethodPost, "/api/matches/m1/events", `{"minute":3,"side":"home","kind":"goal","detail":{"scorer":{"name":"Ade"},"xg":0.4}}`, http.StatusBadRequest, "bad_request"},
		{"event without scorer", http.MethodPost, "/api/matches/m1/events", `{"minute":3,"side":"home","kind":"goal"}`, http.StatusUnprocessableEntity, "invalid_value"},
		{"unknown status", http.MethodPost, "/api/matches/m1/status", map[string]any{"status": "abandoned"}, http.StatusUnprocessableEntity, "invalid_value"},
		{"bad status filter", http.MethodGet, "/api/matches?status=live,halftime", nil, http.StatusBadRequest, "bad_request"},
		{"bad date filter", http.MethodGet, "/api/matches?date=11-08-2025", nil, http.StatusBadRequest, "bad_request"},
		{"duplicate match", http.MethodPost, "/api/matches", map[string]any{
			"id": "m1", "league_id": "demo-league", "season_id": "demo-2025",
			"home_team_id": "team-1", "away_team_id": "team-2", "scheduled_at": seasonStart,
		}, http.StatusConflict, "duplicate_match"},
		{"unknown team", http.MethodPost, "/api/matches", map[string]any{
			"league_id": "demo-league", "season_id": "demo-2025",
			"home_team_id": "team-1", "away_team_id": "team-9", "scheduled_at": seasonStart,
		}, http.StatusUnprocessableEntity, "unknown_reference"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := do(t, router, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantCode, body["code"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestListMatchesFilters(t *testing.T) {
	router, _ := newRouter(t, nil)
	createMatch(t, router, "a", seasonStart.Add(15*time.Hour))
	createMatch(t, router, "b", seasonStart.Add(48*time.Hour))
	do(t, router, http.MethodPost, "/api/matches/b/status", map[string]any{"status": "live"})

	ids := func(body map[string]any) []string {
		var out []string
		for _, m := range body["matches"].([]any) {
			out = append(out, m.(map[string]any)["id"].(string))
		}
		return out
	}

	_, body := do(t, router, http.MethodGet, "/api/matches", nil)
	assert.Equal(t, []string{"a", "b"}, ids(body))

	_, body = do(t, router, http.MethodGet, "/api/matches?status=live", nil)
	assert.Equal(t, []string{"b"}, ids(body))

	_, body = do(t, router, http.MethodGet, "/api/matches?date=2025-08-11&team_id=team-2", nil)
	assert.Equal(t, []string{"a"}, ids(body))

	_, body = do(t, router, http.MethodGet, "/api/matches?league_id=other", nil)
	assert.Empty(t, body["matches"])
}

func TestLeagueRoutes(t *testing.T) {
	router, mem := newRouter(t, nil)

	rec, body := do(t, router, http.MethodGet, "/api/leagues", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["leagues"], 1)

	rec, body = do(t, router, http.MethodGet, "/api/leagues/demo-league/seasons", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["seasons"], 1)

	createMatch(t, router, "r1", seasonStart.Add(24*time.Hour))
	createMatch(t, router, "r2", seasonStart.AddDate(0, 0, 8))

	rec, body = do(t, router, http.MethodGet, "/api/leagues/demo-league/seasons/demo-2025/rounds", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rounds := body["rounds"].([]any)
	require.Len(t, rounds, 6)
	assert.Len(t, rounds[0].(map[string]any)["matches"], 1)
	assert.Len(t, rounds[1].(map[string]any)["matches"], 1)

	// A match before the first round cannot be placed.
	mem.PutMatch(&models.Match{
		ID: "early", LeagueID: "demo-league", SeasonID: "demo-2025",
		HomeTeam: models.TeamRef{ID: "team-3"}, AwayTeam: models.TeamRef{ID: "team-4"},
		Status: models.StatusScheduled, Events: []models.MatchEvent{},
		ScheduledAt: seasonStart.Add(-time.Hour),
	})
	rec, body = do(t, router, http.MethodGet, "/api/leagues/demo-league/seasons/demo-2025/rounds", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ambiguous_round_assignment", body["code"])
	assert.Len(t, body["rounds"], 6)
	unassigned := body["unassigned"].([]any)
	require.Len(t, unassigned, 1)
	assert.Equal(t, "early", unassigned[0].(map[string]any)["match_id"])
}

func TestTeamRoutes(t *testing.T) {
	router, _ := newRouter(t, nil)

	rec, body := do(t, router, http.MethodGet, "/api/teams", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	teams := body["teams"].([]any)
	require.Len(t, teams, 4)
	assert.Equal(t, "Harbour City", teams[0].(map[string]any)["name"])

	rec, body = do(t, router, http.MethodGet, "/api/teams?league_id=demo-league", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["teams"], 4)

	rec, body = do(t, router, http.MethodGet, "/api/teams?league_id=other", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body["teams"])

	rec, body = do(t, router, http.MethodGet, "/api/teams/team-2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	team := body["team"].(map[string]any)
	assert.Equal(t, "North End", team["name"])
	assert.Equal(t, "Nor", team["short_name"])
	assert.Equal(t, "demo-league", team["league_id"])

	rec, body = do(t, router, http.MethodGet, "/api/teams/team-9", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", body["code"])
}

func TestRefreshStandings(t *testing.T) {
	router, _ := newRouter(t, nil)
	const refresh = "/api/leagues/demo-league/seasons/demo-2025/standings/refresh"

	rec, body := do(t, router, http.MethodPost, refresh, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, false, body["updated"])
	assert.Empty(t, body["standings"])

	createMatch(t, router, "m1", seasonStart.Add(15*time.Hour))
	do(t, router, http.MethodPost, "/api/matches/m1/status", map[string]any{"status": "live"})
	do(t, router, http.MethodPost, "/api/matches/m1/score", map[string]any{"home_score": 0, "away_score": 2})
	rec, _ = do(t, router, http.MethodPost, "/api/matches/m1/status", map[string]any{"status": "finished"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = do(t, router, http.MethodPost, refresh, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["updated"])
	table := body["standings"].([]any)
	require.Len(t, table, 2)
	first := table[0].(map[string]any)
	assert.Equal(t, "team-2", first["team_id"])
	assert.EqualValues(t, 3, first["points"])

	rec, body = do(t, router, http.MethodPost, refresh, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["updated"])

	rec, body = do(t, router, http.MethodPost, "/api/leagues/demo-league/seasons/1999/standings/refresh", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", body["code"])

	rec, _ = do(t, router, http.MethodGet, refresh, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRefreshStandingsRateLimit(t *testing.T) {
	router, _ := newRouter(t, middleware.NewIPRateLimiter(rate.Limit(0.001), 1))
	const refresh = "/api/leagues/demo-league/seasons/demo-2025/standings/refresh"

	rec, _ := do(t, router, http.MethodPost, refresh, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = do(t, router, http.MethodPost, refresh, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Reads stay open.
	rec, _ = do(t, router, http.MethodGet, "/api/teams", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWriteRateLimit(t *testing.T) {
	router, _ := newRouter(t, middleware.NewIPRateLimiter(rate.Limit(0.001), 1))
	createMatch(t, router, "m1", seasonStart.Add(15*time.Hour))

	rec, _ := do(t, router, http.MethodPost, "/api/matches/m1/status", map[string]any{"status": "live"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// Reads are not limited.
	rec, _ = do(t, router, http.MethodGet, "/api/matches/m1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	router, _ := newRouter(t, nil)

	rec, _ := do(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	createMatch(t, router, "m1", seasonStart.Add(15*time.Hour))
	do(t, router, http.MethodPost, "/api/matches/m1/status", map[string]any{"status": "live"})

	rec, _ = do(t, router, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `livescore_match_commits_total{command="status_change"} 1`)
}
