package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stemsi/exstem-interview/internal/middleware"
	"github.com/stemsi/exstem-interview/internal/model"
	"github.com/stemsi/exstem-interview/internal/proctor"
	"github.com/stemsi/exstem-interview/internal/response"
	"github.com/stemsi/exstem-interview/internal/service"
	"github.com/stemsi/exstem-interview/internal/validator"
	ws "github.com/stemsi/exstem-interview/internal/websocket"
)

// Interviews is the interview session API used by the handlers.
type Interviews interface {
	Create(ctx context.Context, candidateRef string) (*model.SessionView, error)
	Start(ctx context.Context, id uuid.UUID, caller service.Caller, req model.StartInterviewRequest) (*model.SessionView, error)
	SubmitAnswer(ctx context.Context, id uuid.UUID, caller service.Caller, req model.SubmitAnswerRequest) (*service.SubmitResult, error)
	SubmitAudioAnswer(ctx context.Context, id uuid.UUID, caller service.Caller, questionIndex *int, audio []byte, mimeType string) (*service.AudioAnswerResult, error)
	End(ctx context.Context, id uuid.UUID, caller service.Caller, early bool) (*model.SessionView, error)
	Get(ctx context.Context, id uuid.UUID, caller service.Caller) (*model.SessionView, error)
	List(ctx context.Context, caller service.Caller, limit int) ([]model.SessionView, error)
	Violations(ctx context.Context, id uuid.UUID, caller service.Caller) ([]model.ViolationEvent, error)
	Observe(id uuid.UUID, caller service.Caller, obs proctor.Observation) (bool, error)
	MonitorSnapshot(ctx context.Context, id uuid.UUID, caller service.Caller) (*model.MonitorMessage, error)
}

const multipartOverhead = 64 << 10

// InterviewHandler handles interview session endpoints.
type InterviewHandler struct {
	interviews    Interviews
	maxAudioBytes int64
}

// NewInterviewHandler creates a new InterviewHandler. maxAudioBytes caps a
// spoken answer upload.
func NewInterviewHandler(interviews Interviews, maxAudioBytes int64) *InterviewHandler {
	return &InterviewHandler{interviews: interviews, maxAudioBytes: maxAudioBytes}
}

// CreateInterview godoc
// POST /api/v1/interviews
// Creates a NotStarted session for the calling candidate.
func (h *InterviewHandler) CreateInterview(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	view, err := h.interviews.Create(c.Request.Context(), claims.Subject)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, view)
}

// StartInterview godoc
// POST /api/v1/interviews/:id/start
// Fetches questions and starts the interview. An empty body uses the
// default question set.
func (h *InterviewHandler) StartInterview(c *gin.Context) {
	caller, id, ok := sessionTarget(c)
	if !ok {
		return
	}

	var req model.StartInterviewRequest
	if c.Request.ContentLength > 0 {
		if fields := validator.Bind(c, &req); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
			return
		}
	}

	view, err := h.interviews.Start(c.Request.Context(), id, caller, req)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// SubmitAnswer godoc
// POST /api/v1/interviews/:id/answers
func (h *InterviewHandler) SubmitAnswer(c *gin.Context) {
	caller, id, ok := sessionTarget(c)
	if !ok {
		return
	}

	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.interviews.SubmitAnswer(c.Request.Context(), id, caller, req)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// SubmitAudioAnswer godoc
// POST /api/v1/interviews/:id/answers/audio
// Multipart form: question_index and the "audio" recording. The transcript
// is recorded as the answer.
func (h *InterviewHandler) SubmitAudioAnswer(c *gin.Context) {
	caller, id, ok := sessionTarget(c)
	if !ok {
		return
	}

	// Leave room for the multipart envelope around the recording.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxAudioBytes+multipartOverhead)
	if err := c.Request.ParseMultipartForm(h.maxAudioBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrPayloadTooBig)
			return
		}
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	var req model.AudioAnswerRequest
	if fields := validator.BindForm(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	fh, err := c.FormFile("audio")
	if err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{"audio": "audio is a required file"})
		return
	}
	if fh.Size > h.maxAudioBytes {
		response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrPayloadTooBig)
		return
	}

	f, err := fh.Open()
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}
	defer f.Close()
	audio, err := io.ReadAll(io.LimitReader(f, h.maxAudioBytes))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	res, err := h.interviews.SubmitAudioAnswer(c.Request.Context(), id, caller, req.QuestionIndex, audio, fh.Header.Get("Content-Type"))
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// EndInterview godoc
// POST /api/v1/interviews/:id/end
// Ends the interview. {"early": true} allows unanswered questions.
func (h *InterviewHandler) EndInterview(c *gin.Context) {
	caller, id, ok := sessionTarget(c)
	if !ok {
		return
	}

	var req model.EndInterviewRequest
	if c.Request.ContentLength > 0 {
		if fields := validator.Bind(c, &req); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
			return
		}
	}

	view, err := h.interviews.End(c.Request.Context(), id, caller, req.Early)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// GetInterview godoc
// GET /api/v1/interviews/:id
func (h *InterviewHandler) GetInterview(c *gin.Context) {
	caller, id, ok := sessionTarget(c)
	if !ok {
		return
	}

	view, err := h.interviews.Get(c.Request.Context(), id, caller)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// ListInterviews godoc
// GET /api/v1/interviews?limit=20
// Lists the calling candidate's own sessions, newest first.
func (h *InterviewHandler) ListInterviews(c *gin.Context) {
	caller, ok := middleware.GetCaller(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var q model.ListSessionsQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	views, err := h.interviews.List(c.Request.Context(), caller, q.Limit)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"sessions": views})
}

// ListViolations godoc
// GET /api/v1/interviews/:id/violations
// Returns the persisted violation log (proctor only).
func (h *InterviewHandler) ListViolations(c *gin.Context) {
	caller, id, ok := sessionTarget(c)
	if !ok {
		return
	}

	events, err := h.interviews.Violations(c.Request.Context(), id, caller)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"violations": events})
}

// PostSignal godoc
// POST /api/v1/interviews/:id/signals
// Single-signal fallback for clients that cannot hold a WebSocket open.
func (h *InterviewHandler) PostSignal(c *gin.Context) {
	caller, id, ok := sessionTarget(c)
	if !ok {
		return
	}

	var req ws.SignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}
	obs, valid := observationFrom(req)
	if !valid {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{"action": "unknown action"})
		return
	}

	accepted, err := h.interviews.Observe(id, caller, obs)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, http.StatusAccepted, gin.H{"accepted": accepted})
}

// sessionTarget resolves the caller and the :id path parameter, writing the
// failure response itself.
func sessionTarget(c *gin.Context) (service.Caller, uuid.UUID, bool) {
	caller, ok := middleware.GetCaller(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return service.Caller{}, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return service.Caller{}, uuid.Nil, false
	}
	return caller, id, true
}

// observationFrom converts a client signal into a detector observation.
func observationFrom(req ws.SignalRequest) (proctor.Observation, bool) {
	var obs proctor.Observation
	switch req.Action {
	case ws.ActionVisibility:
		obs.Kind = proctor.SignalVisibility
		obs.Hidden = req.Hidden
	case ws.ActionClipboard:
		obs.Kind = proctor.SignalClipboard
		obs.Action = proctor.ClipboardAction(req.Clip)
	case ws.ActionFrame:
		if len(req.Frame) == 0 {
			return obs, false
		}
		obs.Kind = proctor.SignalFrame
		obs.Frame = req.Frame
	case ws.ActionCameraError:
		obs.Kind = proctor.SignalCameraError
		obs.Reason = req.Reason
	default:
		return obs, false
	}
	return obs, true
}
