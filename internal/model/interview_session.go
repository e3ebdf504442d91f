package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates interview session lifecycle states.
type SessionStatus string

const (
	SessionStatusNotStarted SessionStatus = "NOT_STARTED"
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusCompleted  SessionStatus = "COMPLETED"
)

// Answer is a candidate's response to the question at QuestionIndex.
type Answer struct {
	QuestionIndex int       `json:"question_index"`
	Text          string    `json:"text"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// SessionRecord is the persisted form of an interview session.
type SessionRecord struct {
	ID           uuid.UUID         `json:"id"`
	CandidateRef string            `json:"candidate_ref"`
	Status       SessionStatus     `json:"status"`
	Questions    []Question        `json:"questions"`
	Answers      []Answer          `json:"answers"`
	StartedAt    *time.Time        `json:"started_at,omitempty"`
	EndedAt      *time.Time        `json:"ended_at,omitempty"`
	Proctoring   ViolationCounters `json:"proctoring"`
	ReportID     *uuid.UUID        `json:"report_id,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// SessionView is the externally visible state of a session.
type SessionView struct {
	ID              uuid.UUID         `json:"id"`
	CandidateRef    string            `json:"candidate_ref"`
	Status          SessionStatus     `json:"status"`
	CurrentIndex    int               `json:"current_index"`
	TotalQuestions  int               `json:"total_questions"`
	Progress        float64           `json:"progress"`
	CurrentQuestion *Question         `json:"current_question,omitempty"`
	StartedAt       *time.Time        `json:"started_at,omitempty"`
	EndedAt         *time.Time        `json:"ended_at,omitempty"`
	Proctoring      ViolationCounters `json:"proctoring"`
	Risk            RiskStatus        `json:"risk"`
	ReportID        *uuid.UUID        `json:"report_id,omitempty"`
}

// Transcript is the finalized, read-only record of a completed session.
type Transcript struct {
	SessionID    uuid.UUID
	CandidateRef string
	StartedAt    time.Time
	EndedAt      time.Time
	Questions    []Question
	Answers      []Answer
	Proctoring   ViolationCounters
}

// Duration is the wall time between start and end.
func (t *Transcript) Duration() time.Duration {
	return t.EndedAt.Sub(t.StartedAt)
}

// StartInterviewRequest optionally asks for a personalized question set.
type StartInterviewRequest struct {
	Interests  []string `json:"interests" binding:"omitempty,max=10,dive,min=1,max=64"`
	SkillLevel string   `json:"skill_level" binding:"omitempty,oneof=beginner intermediate advanced"`
	Count      int      `json:"count" binding:"omitempty,min=1,max=20"`
}

// SubmitAnswerRequest is the payload for answering the current question.
type SubmitAnswerRequest struct {
	QuestionIndex *int   `json:"question_index" binding:"required,min=0"`
	Text          string `json:"text" binding:"required,notblank,max=20000"`
}

// EndInterviewRequest ends a session; Early allows ending with unanswered questions.
type EndInterviewRequest struct {
	Early bool `json:"early"`
}

// AudioAnswerRequest holds the form fields of a spoken answer. The recording
// itself is the "audio" file part.
type AudioAnswerRequest struct {
	QuestionIndex *int `form:"question_index" binding:"required,min=0"`
}

// ListSessionsQuery pages a candidate's own sessions.
type ListSessionsQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}
