package repositories

import (
	"fmt"
	"time"

	"github.com/Dosada05/livescore/models"
)

// SeedDemo fills s with one league season, its teams and weekly rounds so an
// in-memory server has something to create matches against.
func SeedDemo(s *MemoryStore, seasonStart time.Time) {
	league := models.League{ID: "demo-league", Name: "Demo League", Country: "Nowhere"}
	season := models.Season{ID: "demo-2025", LeagueID: league.ID, Name: "2025/26", Year: "2025"}
	s.AddLeague(league)
	s.AddSeason(season)

	for i, name := range []string{"Harbour City", "North End", "Riverside", "Old Town"} {
		s.AddTeam(models.Team{
			ID:        fmt.Sprintf("team-%d", i+1),
			Name:      name,
			ShortName: name[:3],
			LeagueID:  league.ID,
		})
	}

	start := seasonStart.UTC().Truncate(24 * time.Hour)
	for n := 1; n <= 6; n++ {
		from := start.AddDate(0, 0, 7*(n-1))
		s.AddRound(models.Round{
			ID:        fmt.Sprintf("%s-r%d", season.ID, n),
			LeagueID:  league.ID,
			SeasonID:  season.ID,
			Number:    n,
			Name:      fmt.Sprintf("Round %d", n),
			StartDate: from,
			EndDate:   from.AddDate(0, 0, 7).Add(-time.Nanosecond),
		})
	}
}
