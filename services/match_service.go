package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/livescore/live"
	"github.com/Dosada05/livescore/models"
	"github.com/Dosada05/livescore/repositories"
	"github.com/google/uuid"
)

// StandingsNotifier is told about every match that enters Finished.
type StandingsNotifier interface {
	Invalidate(leagueID, seasonID string)
}

// StandingsTrigger schedules a persisted table refresh.
type StandingsTrigger interface {
	Trigger(leagueID, seasonID string)
}

// MatchArchiver receives matches that reached a terminal status.
type MatchArchiver interface {
	Enqueue(m *models.Match) bool
}

type CreateMatchInput struct {
	ID          string    `json:"id"`
	LeagueID    string    `json:"league_id"`
	SeasonID    string    `json:"season_id"`
	HomeTeamID  string    `json:"home_team_id"`
	AwayTeamID  string    `json:"away_team_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Venue       string    `json:"venue"`
}

type MatchService interface {
	Mutate(ctx context.Context, matchID string, cmd live.Command) (*models.Match, error)
	GetMatch(ctx context.Context, matchID string) (*models.Match, error)
	ListMatches(ctx context.Context, filter models.MatchFilter) ([]*models.Match, error)
	CreateMatch(ctx context.Context, input CreateMatchInput) (*models.Match, error)
}

type matchService struct {
	machine   *live.Machine
	matchRepo repositories.MatchRepository
	standings StandingsNotifier
	refresher StandingsTrigger
	archiver  MatchArchiver
	logger    *slog.Logger
}

// NewMatchService wires the write path. refresher and archiver may be nil.
func NewMatchService(
	machine *live.Machine,
	matchRepo repositories.MatchRepository,
	standings StandingsNotifier,
	refresher StandingsTrigger,
	archiver MatchArchiver,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		machine:   machine,
		matchRepo: matchRepo,
		standings: standings,
		refresher: refresher,
		archiver:  archiver,
		logger:    logger,
	}
}

// Mutate applies cmd to the match and returns the committed state.
func (s *matchService) Mutate(ctx context.Context, matchID string, cmd live.Command) (*models.Match, error) {
	if strings.TrimSpace(matchID) == "" {
		return nil, fmt.Errorf("%w: match id is required", ErrValidationFailed)
	}
	if cmd == nil {
		return nil, fmt.Errorf("%w: command is required", ErrValidationFailed)
	}

	m, err := s.machine.Apply(ctx, matchID, cmd)
	if err != nil {
		return nil, err
	}

	if _, ok := cmd.(live.StatusChange); ok && m.Status.IsTerminal() {
		s.afterTerminal(m)
	}
	return m, nil
}

func (s *matchService) afterTerminal(m *models.Match) {
	if m.Status == models.StatusFinished {
		s.standings.Invalidate(m.LeagueID, m.SeasonID)
		if s.refresher != nil {
			s.refresher.Trigger(m.LeagueID, m.SeasonID)
		}
	}
	if s.archiver != nil {
		s.archiver.Enqueue(m)
	}
	s.logger.Info("match closed",
		slog.String("match_id", m.ID),
		slog.String("status", string(m.Status)),
		slog.Int("home_score", m.HomeScore),
		slog.Int("away_score", m.AwayScore),
	)
}

func (s *matchService) GetMatch(ctx context.Context, matchID string) (*models.Match, error) {
	return s.machine.Snapshot(ctx, matchID)
}

func (s *matchService) ListMatches(ctx context.Context, filter models.MatchFilter) ([]*models.Match, error) {
	for _, st := range filter.Statuses {
		if !st.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrValidationFailed, st)
		}
	}
	matches, err := s.matchRepo.ListMatches(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	return matches, nil
}

func (s *matchService) CreateMatch(ctx context.Context, input CreateMatchInput) (*models.Match, error) {
	if err := validateCreateMatch(input); err != nil {
		return nil, err
	}
	id := strings.TrimSpace(input.ID)
	if id == "" {
		id = uuid.NewString()
	}

	m := &models.Match{
		ID:          id,
		LeagueID:    input.LeagueID,
		SeasonID:    input.SeasonID,
		HomeTeam:    models.TeamRef{ID: input.HomeTeamID},
		AwayTeam:    models.TeamRef{ID: input.AwayTeamID},
		Status:      models.StatusScheduled,
		Events:      []models.MatchEvent{},
		ScheduledAt: input.ScheduledAt.UTC(),
		Venue:       strings.TrimSpace(input.Venue),
		UpdatedAt:   time.Now().UTC(),
	}
	if err := s.matchRepo.CreateMatch(ctx, m); err != nil {
		return nil, err
	}
	s.logger.Info("match created", slog.String("match_id", m.ID), slog.String("league_id", m.LeagueID))
	return s.matchRepo.LoadMatch(ctx, m.ID)
}

func validateCreateMatch(input CreateMatchInput) error {
	switch {
	case strings.TrimSpace(input.LeagueID) == "":
		return fmt.Errorf("%w: league_id is required", ErrValidationFailed)
	case strings.TrimSpace(input.SeasonID) == "":
		return fmt.Errorf("%w: season_id is required", ErrValidationFailed)
	case input.HomeTeamID == "" || input.AwayTeamID == "":
		return fmt.Errorf("%w: both teams are required", ErrValidationFailed)
	case input.HomeTeamID == input.AwayTeamID:
		return fmt.Errorf("%w: a team cannot play itself", ErrValidationFailed)
	case input.ScheduledAt.IsZero():
		return fmt.Errorf("%w: scheduled_at is required", ErrValidationFailed)
	}
	return nil
}
