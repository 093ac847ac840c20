package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Dosada05/livescore/services"
	"github.com/Dosada05/livescore/standings"
)

type LeagueHandler struct {
	leagueService services.LeagueService
}

func NewLeagueHandler(ls services.LeagueService) *LeagueHandler {
	return &LeagueHandler{leagueService: ls}
}

func (h *LeagueHandler) ListLeagues(w http.ResponseWriter, r *http.Request) {
	leagues, err := h.leagueService.ListLeagues(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"leagues": leagues}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LeagueHandler) ListSeasons(w http.ResponseWriter, r *http.Request) {
	leagueID, err := getParam(r, "leagueID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	seasons, err := h.leagueService.ListSeasons(r.Context(), leagueID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"seasons": seasons}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LeagueHandler) GetStandings(w http.ResponseWriter, r *http.Request) {
	leagueID, seasonID, ok := seasonParams(w, r)
	if !ok {
		return
	}
	table, err := h.leagueService.GetStandings(r.Context(), leagueID, seasonID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": table}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetRounds answers 409 when some matches fit no round or several; the body
// still carries the rounds that resolved.
func (h *LeagueHandler) GetRounds(w http.ResponseWriter, r *http.Request) {
	leagueID, seasonID, ok := seasonParams(w, r)
	if !ok {
		return
	}
	rounds, err := h.leagueService.GetRounds(r.Context(), leagueID, seasonID)

	var ambiguous *standings.AmbiguousRoundAssignmentError
	switch {
	case errors.As(err, &ambiguous):
		body := jsonResponse{
			"error":      ambiguous.Error(),
			"code":       "ambiguous_round_assignment",
			"rounds":     rounds,
			"unassigned": ambiguous.Matches,
		}
		if err := writeJSON(w, http.StatusConflict, body, nil); err != nil {
			serverErrorResponse(w, r, err)
		}
		return
	case err != nil:
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"rounds": rounds}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RefreshStandings recomputes the table on demand and persists it when it
// changed.
func (h *LeagueHandler) RefreshStandings(w http.ResponseWriter, r *http.Request) {
	leagueID, seasonID, ok := seasonParams(w, r)
	if !ok {
		return
	}
	table, updated, err := h.leagueService.RefreshStandings(r.Context(), leagueID, seasonID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"updated": updated, "standings": table}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LeagueHandler) ListTeams(w http.ResponseWriter, r *http.Request) {
	leagueID := strings.TrimSpace(r.URL.Query().Get("league_id"))
	teams, err := h.leagueService.ListTeams(r.Context(), leagueID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"teams": teams}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LeagueHandler) GetTeam(w http.ResponseWriter, r *http.Request) {
	teamID, err := getParam(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	team, err := h.leagueService.GetTeam(r.Context(), teamID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func seasonParams(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	leagueID, err := getParam(r, "leagueID")
	if err != nil {
		badRequestResponse(w, r, err)
		return "", "", false
	}
	seasonID, err := getParam(r, "seasonID")
	if err != nil {
		badRequestResponse(w, r, err)
		return "", "", false
	}
	return leagueID, seasonID, true
}
