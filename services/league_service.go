package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/livescore/models"
	"github.com/Dosada05/livescore/repositories"
	"github.com/Dosada05/livescore/standings"
)

type LeagueService interface {
	ListLeagues(ctx context.Context) ([]models.League, error)
	ListSeasons(ctx context.Context, leagueID string) ([]models.Season, error)
	GetStandings(ctx context.Context, leagueID, seasonID string) ([]models.StandingRow, error)
	GetRounds(ctx context.Context, leagueID, seasonID string) ([]models.RoundGroup, error)
	RefreshStandings(ctx context.Context, leagueID, seasonID string) ([]models.StandingRow, bool, error)
	ListTeams(ctx context.Context, leagueID string) ([]models.Team, error)
	GetTeam(ctx context.Context, teamID string) (*models.Team, error)
}

type leagueService struct {
	leagueRepo repositories.LeagueRepository
	engine     *standings.Engine
}

func NewLeagueService(leagueRepo repositories.LeagueRepository, engine *standings.Engine) LeagueService {
	return &leagueService{leagueRepo: leagueRepo, engine: engine}
}

func (s *leagueService) ListLeagues(ctx context.Context) ([]models.League, error) {
	leagues, err := s.leagueRepo.ListLeagues(ctx)
	if err != nil {
		return nil, fmt.Errorf("list leagues: %w", err)
	}
	return leagues, nil
}

func (s *leagueService) ListSeasons(ctx context.Context, leagueID string) ([]models.Season, error) {
	if strings.TrimSpace(leagueID) == "" {
		return nil, fmt.Errorf("%w: league id is required", ErrValidationFailed)
	}
	seasons, err := s.leagueRepo.ListSeasons(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("list seasons: %w", err)
	}
	return seasons, nil
}

// GetStandings returns the current table. A season without finished matches
// has an empty table.
func (s *leagueService) GetStandings(ctx context.Context, leagueID, seasonID string) ([]models.StandingRow, error) {
	if err := requireSeason(leagueID, seasonID); err != nil {
		return nil, err
	}
	return s.engine.Standings(ctx, leagueID, seasonID)
}

// GetRounds returns the matches grouped by round. When some matches cannot be
// placed the resolved groups come back together with an error wrapping
// ErrAmbiguousRoundAssignment.
func (s *leagueService) GetRounds(ctx context.Context, leagueID, seasonID string) ([]models.RoundGroup, error) {
	if err := requireSeason(leagueID, seasonID); err != nil {
		return nil, err
	}
	return s.engine.Rounds(ctx, leagueID, seasonID)
}

// RefreshStandings rebuilds and persists the table of a known season. The
// flag reports whether the stored table changed.
func (s *leagueService) RefreshStandings(ctx context.Context, leagueID, seasonID string) ([]models.StandingRow, bool, error) {
	if err := requireSeason(leagueID, seasonID); err != nil {
		return nil, false, err
	}
	seasons, err := s.leagueRepo.ListSeasons(ctx, leagueID)
	if err != nil {
		return nil, false, fmt.Errorf("list seasons: %w", err)
	}
	known := false
	for _, se := range seasons {
		if se.ID == seasonID {
			known = true
			break
		}
	}
	if !known {
		return nil, false, fmt.Errorf("%w: season %q of league %q", ErrNotFound, seasonID, leagueID)
	}

	updated, err := s.engine.Recompute(ctx, leagueID, seasonID)
	if err != nil {
		return nil, false, fmt.Errorf("recompute standings: %w", err)
	}
	table, err := s.engine.Standings(ctx, leagueID, seasonID)
	if err != nil {
		return nil, false, err
	}
	return table, updated, nil
}

// ListTeams returns every team, or only those of leagueID when it is set.
func (s *leagueService) ListTeams(ctx context.Context, leagueID string) ([]models.Team, error) {
	teams, err := s.leagueRepo.ListTeams(ctx, strings.TrimSpace(leagueID))
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	return teams, nil
}

func (s *leagueService) GetTeam(ctx context.Context, teamID string) (*models.Team, error) {
	if strings.TrimSpace(teamID) == "" {
		return nil, fmt.Errorf("%w: team id is required", ErrValidationFailed)
	}
	team, err := s.leagueRepo.GetTeam(ctx, teamID)
	if err != nil {
		if errors.Is(err, ErrTeamNotFound) {
			return nil, fmt.Errorf("%w: team %q", ErrNotFound, teamID)
		}
		return nil, fmt.Errorf("get team: %w", err)
	}
	return team, nil
}

func requireSeason(leagueID, seasonID string) error {
	if strings.TrimSpace(leagueID) == "" || strings.TrimSpace(seasonID) == "" {
		return fmt.Errorf("%w: league and season are required", ErrValidationFailed)
	}
	return nil
}
