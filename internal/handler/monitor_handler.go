package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-interview/internal/logger"
	"github.com/stemsi/exstem-interview/internal/model"
	"github.com/stemsi/exstem-interview/internal/response"
)

const keepAliveInterval = 30 * time.Second

// MonitorHandler streams a session's live proctoring state to proctors.
type MonitorHandler struct {
	interviews Interviews
	feed       MonitorFeed
	log        zerolog.Logger
}

func NewMonitorHandler(interviews Interviews, feed MonitorFeed, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		interviews: interviews,
		feed:       feed,
		log:        logger.Component(log, "monitor_handler"),
	}
}

// MonitorSessionSSE godoc
// GET /api/v1/interviews/:id/monitor
// Sends a snapshot, then every violation, detector notice and status change
// until the interview completes or the client disconnects.
func (h *MonitorHandler) MonitorSessionSSE(c *gin.Context) {
	caller, id, ok := sessionTarget(c)
	if !ok {
		return
	}
	reqCtx := c.Request.Context()

	// Subscribe before the snapshot so nothing between the two is lost.
	feedCtx, cancel := context.WithCancel(reqCtx)
	defer cancel()
	feed, err := h.feed.SubscribeMonitor(feedCtx, id)
	if err != nil {
		h.log.Error().Err(err).Str("session_id", id.String()).Msg("Monitor subscribe failed")
		response.Fail(c, http.StatusServiceUnavailable, response.ErrCollaboratorUnavailable)
		return
	}

	snapshot, err := h.interviews.MonitorSnapshot(reqCtx, id, caller)
	if err != nil {
		response.FailWithError(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.SSEvent("message", snapshot)
	c.Writer.Flush()
	if snapshot.Status == model.SessionStatusCompleted {
		return
	}

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	h.log.Info().Str("session_id", id.String()).Msg("Proctor attached to live monitor SSE")
	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Str("session_id", id.String()).Msg("Proctor detached from live monitor SSE")
			return

		case msg, ok := <-feed:
			if !ok {
				return
			}
			c.SSEvent("message", msg)
			c.Writer.Flush()
			if msg.Type == model.MonitorStatus && msg.Status == model.SessionStatusCompleted {
				return
			}

		case <-keepAlive.C:
			c.SSEvent("ping", gin.H{"type": "ping"})
			c.Writer.Flush()
		}
	}
}
