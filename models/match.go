package models

import (
	"errors"
	"slices"
	"time"
)

// ErrMatchNotFound is returned by match stores for unknown identifiers.
var ErrMatchNotFound = errors.New("match not found")

type MatchStatus string

const (
	StatusScheduled MatchStatus = "scheduled"
	StatusLive      MatchStatus = "live"
	StatusPaused    MatchStatus = "paused"
	StatusFinished  MatchStatus = "finished"
	StatusPostponed MatchStatus = "postponed"
	StatusCancelled MatchStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s MatchStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusLive, StatusPaused, StatusFinished, StatusPostponed, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further mutation is accepted in s.
func (s MatchStatus) IsTerminal() bool {
	return s == StatusFinished || s == StatusCancelled
}

// InPlay reports whether score and event mutations are accepted in s.
func (s MatchStatus) InPlay() bool {
	return s == StatusLive || s == StatusPaused
}

type TeamRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Match struct {
	ID          string       `json:"id"`
	LeagueID    string       `json:"league_id"`
	SeasonID    string       `json:"season_id"`
	HomeTeam    TeamRef      `json:"home_team"`
	AwayTeam    TeamRef      `json:"away_team"`
	HomeScore   int          `json:"home_score"`
	AwayScore   int          `json:"away_score"`
	Status      MatchStatus  `json:"status"`
	Minute      *int         `json:"minute"` // nil unless Live
	Events      []MatchEvent `json:"events"`
	Version     int64        `json:"version"`
	ScheduledAt time.Time    `json:"scheduled_at"`
	Venue       string       `json:"venue,omitempty"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Clone returns a deep copy. Event details are immutable values and are shared.
func (m *Match) Clone() *Match {
	if m == nil {
		return nil
	}
	c := *m
	if m.Minute != nil {
		minute := *m.Minute
		c.Minute = &minute
	}
	c.Events = make([]MatchEvent, len(m.Events))
	copy(c.Events, m.Events)
	return &c
}

// Score returns the goals of the given side.
func (m *Match) Score(side Side) int {
	if side == SideAway {
		return m.AwayScore
	}
	return m.HomeScore
}

// LastEvent returns the tail of the event log.
func (m *Match) LastEvent() (MatchEvent, bool) {
	if len(m.Events) == 0 {
		return MatchEvent{}, false
	}
	return m.Events[len(m.Events)-1], true
}

type MatchFilter struct {
	LeagueID *string
	SeasonID *string
	Statuses []MatchStatus // any of
	TeamID   *string
	Date     *time.Time // matches scheduled within this calendar day (UTC)
}

// Matches reports whether m satisfies every set field of f.
func (f MatchFilter) Matches(m *Match) bool {
	if f.LeagueID != nil && m.LeagueID != *f.LeagueID {
		return false
	}
	if f.SeasonID != nil && m.SeasonID != *f.SeasonID {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, m.Status) {
		return false
	}
	if f.TeamID != nil && m.HomeTeam.ID != *f.TeamID && m.AwayTeam.ID != *f.TeamID {
		return false
	}
	if f.Date != nil {
		start := f.Date.UTC().Truncate(24 * time.Hour)
		at := m.ScheduledAt.UTC()
		if at.Before(start) || !at.Before(start.Add(24*time.Hour)) {
			return false
		}
	}
	return true
}
