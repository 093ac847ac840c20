package models

import "time"

type League struct {
	ID      string `json:"id" db:"id"`
	Name    string `json:"name" db:"name"`
	Country string `json:"country" db:"country"`
}

type Season struct {
	ID       string `json:"id" db:"id"`
	LeagueID string `json:"league_id" db:"league_id"`
	Name     string `json:"name" db:"name"`
	Year     string `json:"year" db:"year"`
}

// Round bounds are inclusive on both ends.
type Round struct {
	ID        string    `json:"id" db:"id"`
	LeagueID  string    `json:"league_id" db:"league_id"`
	SeasonID  string    `json:"season_id" db:"season_id"`
	Number    int       `json:"number" db:"round_number"`
	Name      string    `json:"name" db:"name"`
	StartDate time.Time `json:"start_date" db:"start_date"`
	EndDate   time.Time `json:"end_date" db:"end_date"`
}

// Contains reports whether at falls inside the round's date bounds.
func (r Round) Contains(at time.Time) bool {
	return !at.Before(r.StartDate) && !at.After(r.EndDate)
}

type RoundGroup struct {
	Round   Round    `json:"round"`
	Matches []*Match `json:"matches"`
}
