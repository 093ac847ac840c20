package repositories

import (
	"context"
	"sort"
	"sync"

	"github.com/Dosada05/livescore/models"
)

// MemoryStore keeps everything in process memory. It backs local runs without
// DATABASE_URL and the tests.
type MemoryStore struct {
	mu        sync.RWMutex
	leagues   map[string]models.League
	seasons   map[string]models.Season
	teams     map[string]models.Team
	rounds    map[string]models.Round
	matches   map[string]*models.Match
	standings map[[2]string][]models.StandingRow

	saveErr     error
	saves       int
	tableWrites int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		leagues:   make(map[string]models.League),
		seasons:   make(map[string]models.Season),
		teams:     make(map[string]models.Team),
		rounds:    make(map[string]models.Round),
		matches:   make(map[string]*models.Match),
		standings: make(map[[2]string][]models.StandingRow),
	}
}

// FailSaves makes every following SaveMatch return err. A nil err restores
// normal saves.
func (s *MemoryStore) FailSaves(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}

// Saves returns the number of SaveMatch calls.
func (s *MemoryStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

// TableWrites returns the number of ReplaceStandings calls.
func (s *MemoryStore) TableWrites() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tableWrites
}

func (s *MemoryStore) AddLeague(l models.League) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leagues[l.ID] = l
}

func (s *MemoryStore) AddSeason(se models.Season) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seasons[se.ID] = se
}

func (s *MemoryStore) AddTeam(t models.Team) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teams[t.ID] = t
}

func (s *MemoryStore) AddRound(r models.Round) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rounds[r.ID] = r
}

// PutMatch stores m as is, replacing any match with the same ID.
func (s *MemoryStore) PutMatch(m *models.Match) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches[m.ID] = m.Clone()
}

func (s *MemoryStore) CreateMatch(_ context.Context, m *models.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[m.ID]; ok {
		return ErrDuplicateMatch
	}
	for _, ref := range []*models.TeamRef{&m.HomeTeam, &m.AwayTeam} {
		t, ok := s.teams[ref.ID]
		if !ok {
			return ErrTeamNotFound
		}
		ref.Name = t.Name
	}
	if _, ok := s.leagues[m.LeagueID]; !ok {
		return ErrLeagueNotFound
	}
	s.matches[m.ID] = m.Clone()
	return nil
}

func (s *MemoryStore) LoadMatch(_ context.Context, id string) (*models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[id]
	if !ok {
		return nil, models.ErrMatchNotFound
	}
	return m.Clone(), nil
}

func (s *MemoryStore) SaveMatch(_ context.Context, m *models.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	cur, ok := s.matches[m.ID]
	if !ok {
		return models.ErrMatchNotFound
	}
	if cur.Version != m.Version-1 {
		return ErrVersionConflict
	}
	s.matches[m.ID] = m.Clone()
	return nil
}

func (s *MemoryStore) ListMatches(_ context.Context, filter models.MatchFilter) ([]*models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Match, 0)
	for _, m := range s.matches {
		if filter.Matches(m) {
			out = append(out, m.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ScheduledAt.Before(out[j].ScheduledAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) ListLeagues(_ context.Context) ([]models.League, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.League, 0, len(s.leagues))
	for _, l := range s.leagues {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) ListSeasons(_ context.Context, leagueID string) ([]models.Season, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Season, 0)
	for _, se := range s.seasons {
		if se.LeagueID == leagueID {
			out = append(out, se)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) ListRounds(_ context.Context, leagueID, seasonID string) ([]models.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Round, 0)
	for _, r := range s.rounds {
		if r.LeagueID == leagueID && r.SeasonID == seasonID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Number != out[j].Number {
			return out[i].Number < out[j].Number
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) ListTeams(_ context.Context, leagueID string) ([]models.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Team, 0)
	for _, t := range s.teams {
		if leagueID == "" || t.LeagueID == leagueID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) GetTeam(_ context.Context, id string) (*models.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.teams[id]
	if !ok {
		return nil, ErrTeamNotFound
	}
	return &t, nil
}

func (s *MemoryStore) ListStandings(_ context.Context, leagueID, seasonID string) ([]models.StandingRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.standings[[2]string{leagueID, seasonID}]
	out := make([]models.StandingRow, len(rows))
	copy(out, rows)
	return out, nil
}

func (s *MemoryStore) ReplaceStandings(_ context.Context, leagueID, seasonID string, rows []models.StandingRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tableWrites++
	table := make([]models.StandingRow, len(rows))
	copy(table, rows)
	s.standings[[2]string{leagueID, seasonID}] = table
	return nil
}
