package models

type Team struct {
	ID        string `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	ShortName string `json:"short_name,omitempty" db:"short_name"`
	LeagueID  string `json:"league_id" db:"league_id"`
}

// Ref returns the reference embedded in matches.
func (t Team) Ref() TeamRef {
	return TeamRef{ID: t.ID, Name: t.Name}
}
