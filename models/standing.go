package models

import "time"

// StandingRow is one line of a league table. Rows are derived from finished
// matches and replaced wholesale on every recomputation.
type StandingRow struct {
	LeagueID       string    `json:"league_id" db:"league_id"`
	SeasonID       string    `json:"season_id" db:"season_id"`
	Position       int       `json:"position" db:"position"`
	TeamID         string    `json:"team_id" db:"team_id"`
	TeamName       string    `json:"team_name" db:"team_name"`
	Played         int       `json:"played" db:"played"`
	Won            int       `json:"won" db:"won"`
	Drawn          int       `json:"drawn" db:"drawn"`
	Lost           int       `json:"lost" db:"lost"`
	GoalsFor       int       `json:"goals_for" db:"goals_for"`
	GoalsAgainst   int       `json:"goals_against" db:"goals_against"`
	GoalDifference int       `json:"goal_difference" db:"goal_difference"`
	Points         int       `json:"points" db:"points"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}
