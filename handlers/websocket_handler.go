package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"slices"

	"github.com/Dosada05/livescore/live"
	"github.com/gorilla/websocket"
)

type WebSocketOptions struct {
	SessionBuffer  int
	AllowedOrigins []string // "*" allows any origin
	Conn           live.ConnOptions
}

type WebSocketHandler struct {
	ctx      context.Context
	hub      *live.Hub
	metrics  *live.Metrics
	opts     WebSocketOptions
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWebSocketHandler serves viewer connections. Connections live until the
// client leaves or ctx is cancelled.
func NewWebSocketHandler(ctx context.Context, hub *live.Hub, metrics *live.Metrics, opts WebSocketOptions, logger *slog.Logger) *WebSocketHandler {
	h := &WebSocketHandler{
		ctx:     ctx,
		hub:     hub,
		metrics: metrics,
		opts:    opts,
		logger:  logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.opts.AllowedOrigins) == 0 {
		return true
	}
	return slices.Contains(h.opts.AllowedOrigins, "*") || slices.Contains(h.opts.AllowedOrigins, origin)
}

// ServeWs upgrades the request and runs the session until it ends.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		h.logger.Warn("websocket upgrade failed", slog.String("remote_addr", r.RemoteAddr), slog.Any("error", err))
		return
	}

	session := live.NewSession(h.opts.SessionBuffer, h.metrics)
	h.logger.Debug("websocket connected", slog.String("session_id", session.ID), slog.String("remote_addr", r.RemoteAddr))
	live.NewConn(h.hub, session, ws, h.opts.Conn, h.logger).Run(h.ctx)
}
