package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-interview/internal/apperr"
	"github.com/stemsi/exstem-interview/internal/logger"
	"github.com/stemsi/exstem-interview/internal/model"
	"github.com/stemsi/exstem-interview/internal/response"
	ws "github.com/stemsi/exstem-interview/internal/websocket"
)

// MonitorFeed streams a session's live monitor messages until ctx is done.
type MonitorFeed interface {
	SubscribeMonitor(ctx context.Context, sessionID uuid.UUID) (<-chan model.MonitorMessage, error)
}

// maxSignalBytes bounds one client message. Camera frames are the largest.
const maxSignalBytes = 1 << 20

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 64 * 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams proctoring signals from the candidate's client.
type WSHandler struct {
	interviews Interviews
	feed       MonitorFeed
	log        zerolog.Logger
	upgrader   websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(interviews Interviews, feed MonitorFeed, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		interviews: interviews,
		feed:       feed,
		log:        logger.Component(log, "ws_handler"),
		upgrader:   buildUpgrader(allowedOrigins),
	}
}

// SignalStream godoc
// WS /ws/v1/interviews/:id/signals
// Receives visibility, clipboard and camera signals and pushes the
// candidate's own violation warnings back.
func (h *WSHandler) SignalStream(c *gin.Context) {
	caller, id, ok := sessionTarget(c)
	if !ok {
		return
	}

	view, err := h.interviews.Get(c.Request.Context(), id, caller)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	if view.Status == model.SessionStatusCompleted {
		response.FailWithError(c, apperr.InvalidState("handler.SignalStream", "session is %s", view.Status))
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.NewConn(raw, maxSignalBytes)
	defer conn.Close()

	wsLog := h.log.With().Str("session_id", id.String()).Str("candidate_ref", view.CandidateRef).Logger()
	wsLog.Info().Msg("Signal stream connected")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if h.feed != nil {
		if feed, err := h.feed.SubscribeMonitor(ctx, id); err != nil {
			wsLog.Warn().Err(err).Msg("Monitor feed unavailable, warnings will not be pushed")
		} else {
			go h.forward(conn, feed)
		}
	}

	for {
		var msg ws.SignalRequest
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		if msg.Action == ws.ActionPing {
			_ = conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
			continue
		}

		obs, valid := observationFrom(msg)
		if !valid {
			_ = conn.WriteError("unknown or incomplete action: " + string(msg.Action))
			continue
		}

		accepted, err := h.interviews.Observe(id, caller, obs)
		if err != nil {
			// The session ended or moved away from this process.
			if errors.Is(err, apperr.ErrNotFound) {
				_ = conn.WriteError("session is no longer active")
				return
			}
			_ = conn.WriteError(err.Error())
			continue
		}
		_ = conn.WriteTyped(ws.AckResponse{Event: ws.EventAck, Action: msg.Action, Accepted: accepted})
	}
}

func (h *WSHandler) forward(conn *ws.Conn, feed <-chan model.MonitorMessage) {
	for msg := range feed {
		if err := conn.WriteTyped(ws.MonitorResponse{Event: ws.EventMonitor, Message: msg}); err != nil {
			return
		}
	}
}
