package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client message types.
const (
	MessageSubscribe   = "subscribe"
	MessageUnsubscribe = "unsubscribe"
	MessageResume      = "resume"
)

// ClientMessage is what a viewer sends over the socket.
type ClientMessage struct {
	Type     string           `json:"type"`
	MatchID  string           `json:"match_id,omitempty"`
	Versions map[string]int64 `json:"versions,omitempty"`
}

type ConnOptions struct {
	// Inbound message rate per connection. Zero disables limiting.
	MessageRate  rate.Limit
	MessageBurst int
}

// Conn binds a Session to a websocket connection.
type Conn struct {
	hub     *Hub
	session *Session
	ws      *websocket.Conn
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewConn(hub *Hub, session *Session, ws *websocket.Conn, opts ConnOptions, logger *slog.Logger) *Conn {
	c := &Conn{
		hub:     hub,
		session: session,
		ws:      ws,
		logger:  logger.With(slog.String("session_id", session.ID)),
	}
	if opts.MessageRate > 0 {
		burst := opts.MessageBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(opts.MessageRate, burst)
	}
	return c
}

// Run registers the session and pumps frames until the connection or ctx
// ends. The session is removed from every topic before Run returns.
func (c *Conn) Run(ctx context.Context) {
	c.hub.Register(c.session)
	ctx, cancel := context.WithCancel(ctx)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writePump(ctx)
	}()

	c.readPump(ctx)
	c.hub.Drop(c.session, nil)
	cancel()
	<-writerDone
	c.logger.Debug("connection closed")
}

// readPump never closes the socket itself; the write pump owns the close
// handshake.
func (c *Conn) readPump(ctx context.Context) {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn("unexpected websocket close", slog.Any("error", err))
			}
			return
		}
		if c.limiter != nil && !c.limiter.Allow() {
			c.reply(errorFrame("", "rate_limited", errors.New("too many messages")))
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.reply(errorFrame("", "bad_message", fmt.Errorf("malformed message: %w", err)))
			continue
		}
		c.handle(ctx, msg)

		select {
		case <-c.session.Done():
			return
		default:
		}
	}
}

func (c *Conn) handle(ctx context.Context, msg ClientMessage) {
	switch msg.Type {
	case MessageSubscribe:
		if msg.MatchID == "" {
			c.reply(errorFrame("", "bad_message", errors.New("match_id is required")))
			return
		}
		if err := c.hub.Subscribe(ctx, c.session, msg.MatchID); err != nil {
			c.replyErr(msg.MatchID, err)
		}
	case MessageUnsubscribe:
		c.hub.Unsubscribe(c.session, msg.MatchID)
		c.reply(Frame{Type: FrameUnsubscribed, MatchID: msg.MatchID})
	case MessageResume:
		if err := c.hub.Resume(ctx, c.session, msg.Versions); err != nil {
			c.replyErr("", err)
		}
	default:
		c.reply(errorFrame("", "bad_message", fmt.Errorf("unknown message type %q", msg.Type)))
	}
}

func (c *Conn) replyErr(matchID string, err error) {
	if errors.Is(err, ErrSessionOverflow) || errors.Is(err, ErrSessionClosed) {
		return
	}
	c.reply(errorFrame(matchID, Reason(err), err))
}

func (c *Conn) reply(f Frame) {
	if err := c.session.Notify(f); errors.Is(err, ErrSessionOverflow) {
		c.hub.Drop(c.session, err)
	}
}

func (c *Conn) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case f := <-c.session.Outbox():
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(f); err != nil {
				c.logger.Debug("write failed", slog.Any("error", err))
				c.hub.Drop(c.session, nil)
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.Drop(c.session, nil)
				return
			}
		case <-c.session.Done():
			c.writeClose()
			return
		case <-ctx.Done():
			c.writeClose()
			return
		}
	}
}

func (c *Conn) writeClose() {
	code, text := websocket.CloseNormalClosure, ""
	if err := c.session.Err(); errors.Is(err, ErrSessionOverflow) {
		// The client must resubscribe to get a fresh snapshot.
		code, text = websocket.CloseTryAgainLater, "session overflow: resubscribe"
	}
	_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(writeWait))
}
