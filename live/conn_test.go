package live

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Dosada05/livescore/models"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type connHarness struct {
	machine *Machine
	hub     *Hub
	server  *httptest.Server
}

func newConnHarness(t *testing.T, opts ConnOptions, matches ...*models.Match) *connHarness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var machine *Machine
	hub := NewHub(SnapshotFunc(func(ctx context.Context, id string) (*models.Match, error) {
		return machine.Snapshot(ctx, id)
	}), discardLogger(), nil)
	dispatcher := NewDispatcher(hub, 2, 16, discardLogger())
	machine, _, _ = newTestMachine(t, matches...)
	machine.queue = dispatcher
	go func() { _ = dispatcher.Run(ctx) }()

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		NewConn(hub, NewSession(16, nil), ws, opts, discardLogger()).Run(ctx)
	}))
	t.Cleanup(server.Close)

	return &connHarness{machine: machine, hub: hub, server: server}
}

func (h *connHarness) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readFrame(t *testing.T, ws *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f Frame
	require.NoError(t, ws.ReadJSON(&f))
	return f
}

func TestConn_SubscribeReceivesSnapshotAndDeltas(t *testing.T) {
	h := newConnHarness(t, ConnOptions{}, newMatch("m", models.StatusLive))
	ws := h.dial(t)

	require.NoError(t, ws.WriteJSON(ClientMessage{Type: MessageSubscribe, MatchID: "m"}))
	f := readFrame(t, ws)
	assert.Equal(t, FrameSnapshot, f.Type)
	require.NotNil(t, f.Snapshot)
	assert.Equal(t, "Arsenal", f.Snapshot.HomeTeam.Name)

	_, err := h.machine.AppendEvent(context.Background(), "m", goal(9, models.SideAway, "Palmer"))
	require.NoError(t, err)

	f = readFrame(t, ws)
	assert.Equal(t, FrameDelta, f.Type)
	assert.Equal(t, int64(1), f.Version)
	assert.EqualValues(t, 1, f.ChangedFields[FieldAwayScore])
	require.Contains(t, f.ChangedFields, FieldEvent)

	require.NoError(t, ws.WriteJSON(ClientMessage{Type: MessageUnsubscribe, MatchID: "m"}))
	f = readFrame(t, ws)
	assert.Equal(t, FrameUnsubscribed, f.Type)
	assert.Equal(t, "m", f.MatchID)
}

func TestConn_ErrorFrames(t *testing.T) {
	h := newConnHarness(t, ConnOptions{})
	ws := h.dial(t)

	tests := []struct {
		name     string
		message  string
		wantCode string
	}{
		{name: "malformed json", message: `{"type":`, wantCode: "bad_message"},
		{name: "unknown type", message: `{"type":"shout"}`, wantCode: "bad_message"},
		{name: "missing match", message: `{"type":"subscribe"}`, wantCode: "bad_message"},
		{name: "unknown match", message: `{"type":"subscribe","match_id":"nope"}`, wantCode: "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(tt.message)))
			f := readFrame(t, ws)
			assert.Equal(t, FrameError, f.Type)
			assert.Equal(t, tt.wantCode, f.Code)
			assert.NotEmpty(t, f.Error)
		})
	}
}

func TestConn_RateLimited(t *testing.T) {
	h := newConnHarness(t, ConnOptions{MessageRate: 0.001, MessageBurst: 1})
	ws := h.dial(t)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"shout"}`)))
	assert.Equal(t, "bad_message", readFrame(t, ws).Code)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"shout"}`)))
	assert.Equal(t, "rate_limited", readFrame(t, ws).Code)
}

func TestConn_DisconnectReleasesTopics(t *testing.T) {
	h := newConnHarness(t, ConnOptions{}, newMatch("m", models.StatusLive))
	ws := h.dial(t)

	require.NoError(t, ws.WriteJSON(ClientMessage{Type: MessageSubscribe, MatchID: "m"}))
	readFrame(t, ws)
	assert.Equal(t, 1, h.hub.Subscribers("m"))

	require.NoError(t, ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))

	assert.Eventually(t, func() bool {
		return h.hub.TopicCount() == 0 && h.hub.SessionCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConn_ResumeAfterSeveredConnection(t *testing.T) {
	ctx := context.Background()
	h := newConnHarness(t, ConnOptions{}, newMatch("m", models.StatusLive))
	for i := 1; i <= 5; i++ {
		_, err := h.machine.UpdateClock(ctx, "m", i)
		require.NoError(t, err)
	}

	first := h.dial(t)
	require.NoError(t, first.WriteJSON(ClientMessage{Type: MessageSubscribe, MatchID: "m"}))
	f := readFrame(t, first)
	require.Equal(t, FrameSnapshot, f.Type)
	require.Equal(t, int64(5), f.Version)

	require.NoError(t, first.Close())
	require.Eventually(t, func() bool { return h.hub.SessionCount() == 0 }, 2*time.Second, 10*time.Millisecond)

	_, err := h.machine.UpdateClock(ctx, "m", 6)
	require.NoError(t, err)

	second := h.dial(t)
	require.NoError(t, second.WriteJSON(ClientMessage{Type: MessageResume, Versions: map[string]int64{"m": 5}}))
	f = readFrame(t, second)
	assert.Equal(t, FrameSnapshot, f.Type)
	assert.Equal(t, int64(6), f.Version)
	require.NotNil(t, f.Snapshot)
	require.NotNil(t, f.Snapshot.Minute)
	assert.Equal(t, 6, *f.Snapshot.Minute)

	// The next frame is version 7: nothing for version 6 follows the snapshot.
	_, err = h.machine.UpdateClock(ctx, "m", 7)
	require.NoError(t, err)
	f = readFrame(t, second)
	assert.Equal(t, FrameDelta, f.Type)
	assert.Equal(t, int64(7), f.Version)

	third := h.dial(t)
	require.NoError(t, third.WriteJSON(ClientMessage{Type: MessageResume, Versions: map[string]int64{"m": 7}}))
	// Messages are handled in order, so this error marks the resume as done
	// and proves it queued no frame of its own.
	require.NoError(t, third.WriteJSON(ClientMessage{Type: MessageSubscribe, MatchID: "nope"}))
	assert.Equal(t, "not_found", readFrame(t, third).Code)
	_, err = h.machine.UpdateClock(ctx, "m", 8)
	require.NoError(t, err)
	f = readFrame(t, third)
	assert.Equal(t, FrameDelta, f.Type)
	assert.Equal(t, int64(8), f.Version)
}
