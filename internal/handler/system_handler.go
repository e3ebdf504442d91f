package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-interview/internal/logger"
	"github.com/stemsi/exstem-interview/internal/response"
)

// HealthFunc pings the backing stores.
type HealthFunc func(ctx context.Context) (map[string]string, bool)

// QueueFunc reports persistence queue backlogs.
type QueueFunc func(ctx context.Context) (map[string]int64, error)

// SystemHandler serves liveness and operational status.
type SystemHandler struct {
	health       HealthFunc
	queues       QueueFunc
	liveSessions func() int
	startTime    time.Time
	log          zerolog.Logger
}

func NewSystemHandler(health HealthFunc, queues QueueFunc, liveSessions func() int, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		health:       health,
		queues:       queues,
		liveSessions: liveSessions,
		startTime:    time.Now(),
		log:          logger.Component(log, "system_handler"),
	}
}

type systemStatus struct {
	Uptime       string           `json:"uptime"`
	LiveSessions int              `json:"live_sessions"`
	Queues       map[string]int64 `json:"queues"`

	Goroutines int    `json:"goroutines"`
	HeapAlloc  uint64 `json:"heap_alloc"`
	NumGC      uint32 `json:"num_gc"`
	GoVersion  string `json:"go_version"`
}

// Health godoc
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	components, healthy := h.health(c.Request.Context())
	status := http.StatusOK
	state := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}
	response.Success(c, status, gin.H{"status": state, "components": components})
}

// Status godoc
// GET /api/v1/system/status
// Operational snapshot for proctors: backlog, live sessions and runtime.
func (h *SystemHandler) Status(c *gin.Context) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	st := systemStatus{
		Uptime:       time.Since(h.startTime).Truncate(time.Second).String(),
		LiveSessions: h.liveSessions(),
		Goroutines:   runtime.NumGoroutine(),
		HeapAlloc:    mem.HeapAlloc,
		NumGC:        mem.NumGC,
		GoVersion:    runtime.Version(),
	}

	queues, err := h.queues(c.Request.Context())
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to read queue depths")
	}
	st.Queues = queues

	response.Success(c, http.StatusOK, st)
}
