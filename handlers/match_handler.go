package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Dosada05/livescore/live"
	"github.com/Dosada05/livescore/models"
	"github.com/Dosada05/livescore/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(ms services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: ms}
}

type scoreInput struct {
	HomeScore *int `json:"home_score"`
	AwayScore *int `json:"away_score"`
}

type statusInput struct {
	Status models.MatchStatus `json:"status"`
	Minute *int               `json:"minute"`
}

type clockInput struct {
	Minute *int `json:"minute"`
}

func (h *MatchHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	filter, err := parseMatchFilter(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.matchService.ListMatches(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := getParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.GetMatch(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) CreateMatch(w http.ResponseWriter, r *http.Request) {
	var input services.CreateMatchInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.CreateMatch(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	headers := make(http.Header)
	headers.Set("Location", fmt.Sprintf("/api/matches/%s", match.ID))
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"match": match}, headers); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) UpdateScore(w http.ResponseWriter, r *http.Request) {
	var input scoreInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.HomeScore == nil || input.AwayScore == nil {
		unprocessableResponse(w, r, "validation_failed", "home_score and away_score are required")
		return
	}
	h.mutate(w, r, live.ScoreUpdate{Home: *input.HomeScore, Away: *input.AwayScore})
}

func (h *MatchHandler) AppendEvent(w http.ResponseWriter, r *http.Request) {
	var event models.MatchEvent
	if err := readJSON(w, r, &event); err != nil {
		if errors.Is(err, models.ErrUnknownEventKind) {
			unprocessableResponse(w, r, "validation_failed", err.Error())
			return
		}
		badRequestResponse(w, r, err)
		return
	}
	h.mutate(w, r, live.AppendEvent{Event: event})
}

func (h *MatchHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	var input statusInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	h.mutate(w, r, live.StatusChange{Status: input.Status, Minute: input.Minute})
}

func (h *MatchHandler) UpdateClock(w http.ResponseWriter, r *http.Request) {
	var input clockInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Minute == nil {
		unprocessableResponse(w, r, "validation_failed", "minute is required")
		return
	}
	h.mutate(w, r, live.ClockUpdate{Minute: *input.Minute})
}

func (h *MatchHandler) mutate(w http.ResponseWriter, r *http.Request, cmd live.Command) {
	matchID, err := getParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.Mutate(r.Context(), matchID, cmd)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match, "version": match.Version}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func parseMatchFilter(r *http.Request) (models.MatchFilter, error) {
	q := r.URL.Query()
	var filter models.MatchFilter

	optional := func(key string) *string {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			return &v
		}
		return nil
	}
	filter.LeagueID = optional("league_id")
	filter.SeasonID = optional("season_id")
	filter.TeamID = optional("team_id")

	if v := q.Get("status"); v != "" {
		for _, s := range strings.Split(v, ",") {
			status := models.MatchStatus(strings.ToLower(strings.TrimSpace(s)))
			if !status.Valid() {
				return filter, fmt.Errorf("invalid status %q", s)
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}

	if v := q.Get("date"); v != "" {
		day, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return filter, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", v)
		}
		filter.Date = &day
	}
	return filter, nil
}
