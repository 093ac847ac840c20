package live

import (
	"time"

	"github.com/Dosada05/livescore/models"
)

// Delta is one committed change to a match.
type Delta struct {
	MatchID     string
	Version     int64
	Command     string
	Changes     Changes
	Snapshot    *models.Match // state after the commit, shared read-only
	CommittedAt time.Time
}

type FrameType string

const (
	FrameSnapshot     FrameType = "snapshot"
	FrameDelta        FrameType = "delta"
	FrameUnsubscribed FrameType = "unsubscribed"
	FrameError        FrameType = "error"
)

// Frame is the message written to a subscriber.
type Frame struct {
	Type          FrameType     `json:"type"`
	MatchID       string        `json:"match_id,omitempty"`
	Version       int64         `json:"version"`
	ChangedFields Changes       `json:"changed_fields,omitempty"`
	Snapshot      *models.Match `json:"snapshot,omitempty"`
	Code          string        `json:"code,omitempty"`
	Error         string        `json:"error,omitempty"`
}

func deltaFrame(d Delta) Frame {
	return Frame{
		Type:          FrameDelta,
		MatchID:       d.MatchID,
		Version:       d.Version,
		ChangedFields: d.Changes,
	}
}

func snapshotFrame(m *models.Match) Frame {
	return Frame{
		Type:     FrameSnapshot,
		MatchID:  m.ID,
		Version:  m.Version,
		Snapshot: m,
	}
}

func errorFrame(matchID, code string, err error) Frame {
	return Frame{
		Type:    FrameError,
		MatchID: matchID,
		Code:    code,
		Error:   err.Error(),
	}
}
