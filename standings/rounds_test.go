package standings

import (
	"errors"
	"testing"
	"time"

	"github.com/Dosada05/livescore/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weeklyRound(number int) models.Round {
	start := seasonStart.AddDate(0, 0, 7*(number-1))
	return models.Round{
		ID:        "r" + string(rune('0'+number)),
		LeagueID:  "epl",
		SeasonID:  "2025",
		Number:    number,
		StartDate: start,
		EndDate:   start.AddDate(0, 0, 6),
	}
}

func scheduled(id string, at time.Time) *models.Match {
	m := finished(id, "ars", "che", 0, 0)
	m.Status = models.StatusScheduled
	m.ScheduledAt = at
	return m
}

func TestGroupIntoRounds(t *testing.T) {
	r1, r2 := weeklyRound(1), weeklyRound(2)
	groups, err := GroupIntoRounds([]*models.Match{
		scheduled("late", r1.StartDate.Add(48*time.Hour)),
		scheduled("early", r1.StartDate),
		scheduled("end", r1.EndDate),
		scheduled("next", r2.StartDate.Add(time.Hour)),
	}, []models.Round{r2, r1})
	require.NoError(t, err)

	require.Len(t, groups, 2)
	assert.Equal(t, 1, groups[0].Round.Number)
	assert.Equal(t, 2, groups[1].Round.Number)

	ids := func(g models.RoundGroup) []string {
		out := make([]string, len(g.Matches))
		for i, m := range g.Matches {
			out[i] = m.ID
		}
		return out
	}
	assert.Equal(t, []string{"early", "late", "end"}, ids(groups[0]))
	assert.Equal(t, []string{"next"}, ids(groups[1]))
}

func TestGroupIntoRounds_EmptyRoundsKeepEmptyGroups(t *testing.T) {
	groups, err := GroupIntoRounds(nil, []models.Round{weeklyRound(1)})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.NotNil(t, groups[0].Matches)
	assert.Empty(t, groups[0].Matches)
}

func TestGroupIntoRounds_Ambiguous(t *testing.T) {
	r1, r2 := weeklyRound(1), weeklyRound(2)
	// Overlaps r1 and r2 on one day.
	overlap := models.Round{
		ID: "cup", LeagueID: "epl", SeasonID: "2025", Number: 3,
		StartDate: r1.EndDate, EndDate: r2.StartDate,
	}
	otherSeason := scheduled("other", r1.StartDate)
	otherSeason.SeasonID = "2024"

	groups, err := GroupIntoRounds([]*models.Match{
		scheduled("ok", r1.StartDate),
		scheduled("both", r1.EndDate),
		scheduled("none", r1.StartDate.Add(-time.Hour)),
		otherSeason,
	}, []models.Round{r1, r2, overlap})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAmbiguousRoundAssignment)

	var ambiguous *AmbiguousRoundAssignmentError
	require.True(t, errors.As(err, &ambiguous))
	assert.Equal(t, []UnassignedMatch{
		{MatchID: "both", Candidates: []string{"r1", "cup"}},
		{MatchID: "none"},
		{MatchID: "other"},
	}, ambiguous.Matches)
	assert.Contains(t, err.Error(), "none (no round)")

	require.Len(t, groups, 3)
	require.Len(t, groups[0].Matches, 1)
	assert.Equal(t, "ok", groups[0].Matches[0].ID)
	assert.Empty(t, groups[1].Matches)
	assert.Empty(t, groups[2].Matches)
}
