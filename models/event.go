package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

type Side string

const (
	SideHome Side = "home"
	SideAway Side = "away"
)

func (s Side) Valid() bool {
	return s == SideHome || s == SideAway
}

type EventKind string

const (
	EventGoal         EventKind = "goal"
	EventOwnGoal      EventKind = "own_goal"
	EventPenalty      EventKind = "penalty"
	EventYellowCard   EventKind = "yellow_card"
	EventRedCard      EventKind = "red_card"
	EventSubstitution EventKind = "substitution"
)

// MaxEventMinute is regulation plus extra time plus a stoppage allowance.
const MaxEventMinute = 130

var ErrUnknownEventKind = errors.New("unknown event kind")

type Player struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// EventDetail is the closed set of event payloads. Only types in this package
// implement it.
type EventDetail interface {
	Kind() EventKind
	isEventDetail()
}

type Goal struct {
	Scorer Player  `json:"scorer"`
	Assist *Player `json:"assist,omitempty"`
}

// OwnGoal is credited to the event's side; Player belongs to the other side.
type OwnGoal struct {
	Player Player `json:"player"`
}

type Penalty struct {
	Taker Player `json:"taker"`
}

type YellowCard struct {
	Player Player `json:"player"`
}

type RedCard struct {
	Player Player `json:"player"`
}

type Substitution struct {
	In  Player `json:"in"`
	Out Player `json:"out"`
}

func (Goal) Kind() EventKind         { return EventGoal }
func (OwnGoal) Kind() EventKind      { return EventOwnGoal }
func (Penalty) Kind() EventKind      { return EventPenalty }
func (YellowCard) Kind() EventKind   { return EventYellowCard }
func (RedCard) Kind() EventKind      { return EventRedCard }
func (Substitution) Kind() EventKind { return EventSubstitution }

func (Goal) isEventDetail()         {}
func (OwnGoal) isEventDetail()      {}
func (Penalty) isEventDetail()      {}
func (YellowCard) isEventDetail()   {}
func (RedCard) isEventDetail()      {}
func (Substitution) isEventDetail() {}

// MatchEvent is immutable once appended to a match.
type MatchEvent struct {
	Seq         int         `json:"seq"`
	Minute      int         `json:"minute"`
	Side        Side        `json:"side"`
	Description string      `json:"description,omitempty"`
	Detail      EventDetail `json:"-"`
}

func (e MatchEvent) Kind() EventKind {
	if e.Detail == nil {
		return ""
	}
	return e.Detail.Kind()
}

// ScoresGoal reports whether the event adds a goal to its side.
func (e MatchEvent) ScoresGoal() bool {
	switch e.Detail.(type) {
	case Goal, OwnGoal, Penalty:
		return true
	}
	return false
}

type eventEnvelope struct {
	Seq         int             `json:"seq"`
	Minute      int             `json:"minute"`
	Side        Side            `json:"side"`
	Description string          `json:"description,omitempty"`
	Kind        EventKind       `json:"kind"`
	Detail      json.RawMessage `json:"detail"`
}

func (e MatchEvent) MarshalJSON() ([]byte, error) {
	if e.Detail == nil {
		return nil, fmt.Errorf("%w: event has no detail", ErrUnknownEventKind)
	}
	detail, err := json.Marshal(e.Detail)
	if err != nil {
		return nil, err
	}
	return json.Marshal(eventEnvelope{
		Seq:         e.Seq,
		Minute:      e.Minute,
		Side:        e.Side,
		Description: e.Description,
		Kind:        e.Detail.Kind(),
		Detail:      detail,
	})
}

func (e *MatchEvent) UnmarshalJSON(data []byte) error {
	var env eventEnvelope
	if err := decodeStrict(data, &env); err != nil {
		return err
	}
	detail, err := decodeDetail(env.Kind, env.Detail)
	if err != nil {
		return err
	}
	*e = MatchEvent{
		Seq:         env.Seq,
		Minute:      env.Minute,
		Side:        env.Side,
		Description: env.Description,
		Detail:      detail,
	}
	return nil
}

func decodeDetail(kind EventKind, raw json.RawMessage) (EventDetail, error) {
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage("{}")
	}
	var (
		detail EventDetail
		err    error
	)
	switch kind {
	case EventGoal:
		var d Goal
		err = decodeStrict(raw, &d)
		detail = d
	case EventOwnGoal:
		var d OwnGoal
		err = decodeStrict(raw, &d)
		detail = d
	case EventPenalty:
		var d Penalty
		err = decodeStrict(raw, &d)
		detail = d
	case EventYellowCard:
		var d YellowCard
		err = decodeStrict(raw, &d)
		detail = d
	case EventRedCard:
		var d RedCard
		err = decodeStrict(raw, &d)
		detail = d
	case EventSubstitution:
		var d Substitution
		err = decodeStrict(raw, &d)
		detail = d
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventKind, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s detail: %w", kind, err)
	}
	return detail, nil
}

// decodeStrict rejects fields the target does not declare.
func decodeStrict(data []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
