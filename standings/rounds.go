package standings

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Dosada05/livescore/models"
)

var ErrAmbiguousRoundAssignment = errors.New("ambiguous round assignment")

// UnassignedMatch is a match that fits no round or more than one.
type UnassignedMatch struct {
	MatchID    string   `json:"match_id"`
	Candidates []string `json:"candidate_rounds"`
}

type AmbiguousRoundAssignmentError struct {
	Matches []UnassignedMatch
}

func (e *AmbiguousRoundAssignmentError) Error() string {
	parts := make([]string, 0, len(e.Matches))
	for _, m := range e.Matches {
		if len(m.Candidates) == 0 {
			parts = append(parts, fmt.Sprintf("%s (no round)", m.MatchID))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s (rounds %s)", m.MatchID, strings.Join(m.Candidates, ", ")))
	}
	return fmt.Sprintf("%s: %s", ErrAmbiguousRoundAssignment, strings.Join(parts, "; "))
}

func (e *AmbiguousRoundAssignmentError) Unwrap() error {
	return ErrAmbiguousRoundAssignment
}

// GroupIntoRounds puts every match into the single round of its league and
// season whose date bounds contain the match's scheduled time. Matches with
// zero or several candidate rounds are left out of the groups and reported in
// an *AmbiguousRoundAssignmentError; the groups are returned either way.
func GroupIntoRounds(ms []*models.Match, rounds []models.Round) ([]models.RoundGroup, error) {
	ordered := make([]models.Round, len(rounds))
	copy(ordered, rounds)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Number != ordered[j].Number {
			return ordered[i].Number < ordered[j].Number
		}
		return ordered[i].ID < ordered[j].ID
	})

	groups := make([]models.RoundGroup, len(ordered))
	index := make(map[string]int, len(ordered))
	for i, r := range ordered {
		groups[i] = models.RoundGroup{Round: r, Matches: []*models.Match{}}
		index[r.ID] = i
	}

	var unassigned []UnassignedMatch
	for _, m := range ms {
		var candidates []string
		for _, r := range ordered {
			if r.LeagueID == m.LeagueID && r.SeasonID == m.SeasonID && r.Contains(m.ScheduledAt) {
				candidates = append(candidates, r.ID)
			}
		}
		if len(candidates) != 1 {
			unassigned = append(unassigned, UnassignedMatch{MatchID: m.ID, Candidates: candidates})
			continue
		}
		g := &groups[index[candidates[0]]]
		g.Matches = append(g.Matches, m)
	}

	for i := range groups {
		ms := groups[i].Matches
		sort.SliceStable(ms, func(a, b int) bool {
			if !ms[a].ScheduledAt.Equal(ms[b].ScheduledAt) {
				return ms[a].ScheduledAt.Before(ms[b].ScheduledAt)
			}
			return ms[a].ID < ms[b].ID
		})
	}

	if len(unassigned) > 0 {
		sort.Slice(unassigned, func(i, j int) bool { return unassigned[i].MatchID < unassigned[j].MatchID })
		return groups, &AmbiguousRoundAssignmentError{Matches: unassigned}
	}
	return groups, nil
}
