package live

import (
	"fmt"
	"strings"

	"github.com/Dosada05/livescore/models"
)

// Changed field names carried in deltas.
const (
	FieldStatus    = "status"
	FieldMinute    = "minute"
	FieldHomeScore = "home_score"
	FieldAwayScore = "away_score"
	FieldEvent     = "event"
)

// Changes maps a changed field name to its new value. A nil value means the
// field was cleared.
type Changes map[string]any

// Command is a single mutation of a match. The set of commands is closed.
type Command interface {
	Name() string
	isCommand()
}

type ScoreUpdate struct {
	Home int `json:"home_score"`
	Away int `json:"away_score"`
}

type AppendEvent struct {
	Event models.MatchEvent `json:"event"`
}

type StatusChange struct {
	Status models.MatchStatus `json:"status"`
	Minute *int               `json:"minute,omitempty"`
}

type ClockUpdate struct {
	Minute int `json:"minute"`
}

func (ScoreUpdate) Name() string  { return "score_update" }
func (AppendEvent) Name() string  { return "append_event" }
func (StatusChange) Name() string { return "status_change" }
func (ClockUpdate) Name() string  { return "clock_update" }

func (ScoreUpdate) isCommand()  {}
func (AppendEvent) isCommand()  {}
func (StatusChange) isCommand() {}
func (ClockUpdate) isCommand()  {}

var transitions = map[models.MatchStatus][]models.MatchStatus{
	models.StatusScheduled: {models.StatusLive, models.StatusPostponed, models.StatusCancelled},
	models.StatusLive:      {models.StatusPaused, models.StatusFinished, models.StatusCancelled},
	models.StatusPaused:    {models.StatusLive},
}

// CanTransition reports whether from -> to is a legal status edge.
func CanTransition(from, to models.MatchStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// apply validates cmd against m and, only if valid, mutates m in place.
func apply(m *models.Match, cmd Command) (Changes, error) {
	switch c := cmd.(type) {
	case ScoreUpdate:
		return applyScoreUpdate(m, c)
	case AppendEvent:
		return applyEvent(m, c.Event)
	case StatusChange:
		return applyStatusChange(m, c)
	case ClockUpdate:
		return applyClockUpdate(m, c)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}
}

func applyScoreUpdate(m *models.Match, c ScoreUpdate) (Changes, error) {
	if !m.Status.InPlay() {
		return nil, fmt.Errorf("%w: score update not allowed while %s", ErrInvalidTransition, m.Status)
	}
	if c.Home < 0 || c.Away < 0 {
		return nil, fmt.Errorf("%w: negative score %d-%d", ErrInvalidValue, c.Home, c.Away)
	}
	if c.Home < m.HomeScore || c.Away < m.AwayScore {
		return nil, fmt.Errorf("%w: score cannot decrease from %d-%d to %d-%d",
			ErrInvalidValue, m.HomeScore, m.AwayScore, c.Home, c.Away)
	}
	m.HomeScore, m.AwayScore = c.Home, c.Away
	return Changes{FieldHomeScore: c.Home, FieldAwayScore: c.Away}, nil
}

func applyEvent(m *models.Match, ev models.MatchEvent) (Changes, error) {
	if !m.Status.InPlay() {
		return nil, fmt.Errorf("%w: events not accepted while %s", ErrInvalidTransition, m.Status)
	}
	if err := validateEvent(ev); err != nil {
		return nil, err
	}
	if last, ok := m.LastEvent(); ok && ev.Minute < last.Minute {
		return nil, fmt.Errorf("%w: minute %d before %d", ErrOutOfOrderEvent, ev.Minute, last.Minute)
	}

	ev.Seq = len(m.Events) + 1
	m.Events = append(m.Events, ev)
	changes := Changes{FieldEvent: ev}

	// A score pushed ahead of its goal events already counts this goal.
	if ev.ScoresGoal() {
		goals := scoringEvents(m.Events, ev.Side)
		switch ev.Side {
		case models.SideHome:
			if goals > m.HomeScore {
				m.HomeScore = goals
				changes[FieldHomeScore] = m.HomeScore
			}
		case models.SideAway:
			if goals > m.AwayScore {
				m.AwayScore = goals
				changes[FieldAwayScore] = m.AwayScore
			}
		}
	}
	return changes, nil
}

func scoringEvents(events []models.MatchEvent, side models.Side) int {
	n := 0
	for _, ev := range events {
		if ev.Side == side && ev.ScoresGoal() {
			n++
		}
	}
	return n
}

func validateEvent(ev models.MatchEvent) error {
	if !ev.Side.Valid() {
		return fmt.Errorf("%w: event side %q", ErrInvalidValue, ev.Side)
	}
	if ev.Minute < 0 || ev.Minute > models.MaxEventMinute {
		return fmt.Errorf("%w: event minute %d outside 0..%d", ErrInvalidValue, ev.Minute, models.MaxEventMinute)
	}

	switch d := ev.Detail.(type) {
	case models.Goal:
		if err := requirePlayer(d.Scorer, "scorer"); err != nil {
			return err
		}
		if d.Assist != nil {
			return requirePlayer(*d.Assist, "assist")
		}
		return nil
	case models.OwnGoal:
		return requirePlayer(d.Player, "player")
	case models.Penalty:
		return requirePlayer(d.Taker, "taker")
	case models.YellowCard:
		return requirePlayer(d.Player, "player")
	case models.RedCard:
		return requirePlayer(d.Player, "player")
	case models.Substitution:
		if err := requirePlayer(d.In, "player in"); err != nil {
			return err
		}
		if err := requirePlayer(d.Out, "player out"); err != nil {
			return err
		}
		if d.In == d.Out {
			return fmt.Errorf("%w: substitution replaces %s with themselves", ErrInvalidValue, d.In.Name)
		}
		return nil
	case nil:
		return fmt.Errorf("%w: event detail is required", ErrInvalidValue)
	default:
		return fmt.Errorf("%w: event kind %q", ErrInvalidValue, d.Kind())
	}
}

func requirePlayer(p models.Player, role string) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: %s name is required", ErrInvalidValue, role)
	}
	return nil
}

func applyStatusChange(m *models.Match, c StatusChange) (Changes, error) {
	if !c.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidValue, c.Status)
	}
	if !CanTransition(m.Status, c.Status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.Status, c.Status)
	}
	if c.Minute != nil && c.Status != models.StatusLive {
		return nil, fmt.Errorf("%w: minute only applies when entering %s", ErrInvalidValue, models.StatusLive)
	}

	changes := Changes{FieldStatus: c.Status}
	if c.Status == models.StatusLive {
		minute := 0
		if last, ok := m.LastEvent(); ok {
			minute = last.Minute
		}
		floor := minute
		if c.Minute != nil {
			minute = *c.Minute
		}
		if minute < floor || minute > models.MaxEventMinute {
			return nil, fmt.Errorf("%w: kickoff minute %d outside %d..%d", ErrInvalidValue, minute, floor, models.MaxEventMinute)
		}
		m.Minute = &minute
		changes[FieldMinute] = minute
	} else if m.Minute != nil {
		m.Minute = nil
		changes[FieldMinute] = nil
	}
	m.Status = c.Status
	return changes, nil
}

func applyClockUpdate(m *models.Match, c ClockUpdate) (Changes, error) {
	if m.Status != models.StatusLive {
		return nil, fmt.Errorf("%w: clock only runs while %s, match is %s", ErrInvalidTransition, models.StatusLive, m.Status)
	}
	if c.Minute < 0 || c.Minute > models.MaxEventMinute {
		return nil, fmt.Errorf("%w: minute %d outside 0..%d", ErrInvalidValue, c.Minute, models.MaxEventMinute)
	}
	if m.Minute != nil && c.Minute < *m.Minute {
		return nil, fmt.Errorf("%w: clock cannot run back from %d to %d", ErrInvalidValue, *m.Minute, c.Minute)
	}
	minute := c.Minute
	m.Minute = &minute
	return Changes{FieldMinute: minute}, nil
}
