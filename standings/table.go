package standings

import (
	"sort"
	"time"

	"github.com/Dosada05/livescore/models"
)

const (
	PointsWin  = 3
	PointsDraw = 1
)

// ComputeTable folds the finished matches among ms into a league table.
// Rows are ordered by points, goal difference and goals scored (all
// descending), then team name and team ID, so equal inputs always give the
// same table.
func ComputeTable(ms []*models.Match) []models.StandingRow {
	rows := make(map[string]*models.StandingRow)
	row := func(t models.TeamRef) *models.StandingRow {
		r, ok := rows[t.ID]
		if !ok {
			r = &models.StandingRow{TeamID: t.ID, TeamName: t.Name}
			rows[t.ID] = r
		}
		if r.TeamName == "" {
			r.TeamName = t.Name
		}
		return r
	}

	for _, m := range ms {
		if m == nil || m.Status != models.StatusFinished {
			continue
		}
		home, away := row(m.HomeTeam), row(m.AwayTeam)
		home.LeagueID, home.SeasonID = m.LeagueID, m.SeasonID
		away.LeagueID, away.SeasonID = m.LeagueID, m.SeasonID
		record(home, m.HomeScore, m.AwayScore)
		record(away, m.AwayScore, m.HomeScore)
	}

	table := make([]models.StandingRow, 0, len(rows))
	for _, r := range rows {
		r.GoalDifference = r.GoalsFor - r.GoalsAgainst
		table = append(table, *r)
	}
	sort.Slice(table, func(i, j int) bool { return ranksBefore(table[i], table[j]) })
	for i := range table {
		table[i].Position = i + 1
	}
	return table
}

func record(r *models.StandingRow, scored, conceded int) {
	r.Played++
	r.GoalsFor += scored
	r.GoalsAgainst += conceded
	switch {
	case scored > conceded:
		r.Won++
		r.Points += PointsWin
	case scored == conceded:
		r.Drawn++
		r.Points += PointsDraw
	default:
		r.Lost++
	}
}

func ranksBefore(a, b models.StandingRow) bool {
	if a.Points != b.Points {
		return a.Points > b.Points
	}
	if a.GoalDifference != b.GoalDifference {
		return a.GoalDifference > b.GoalDifference
	}
	if a.GoalsFor != b.GoalsFor {
		return a.GoalsFor > b.GoalsFor
	}
	if a.TeamName != b.TeamName {
		return a.TeamName < b.TeamName
	}
	return a.TeamID < b.TeamID
}

// Equal reports whether two tables rank the same teams with the same figures.
// UpdatedAt is ignored.
func Equal(a, b []models.StandingRow) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		x.UpdatedAt, y.UpdatedAt = time.Time{}, time.Time{}
		if x != y {
			return false
		}
	}
	return true
}
