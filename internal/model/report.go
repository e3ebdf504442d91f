package model

import (
	"time"

	"github.com/google/uuid"
)

// Report is the scored outcome of a completed session.
type Report struct {
	ID           uuid.UUID      `json:"id"`
	SessionID    uuid.UUID      `json:"session_id"`
	OverallScore int            `json:"overall_score"`
	Summary      string         `json:"summary"`
	Strengths    []string       `json:"strengths"`
	Improvements []string       `json:"improvements"`
	SkillScores  map[string]int `json:"skill_scores"`
	GeneratedAt  time.Time      `json:"generated_at"`
}

// Clone returns a deep copy so callers never share slices or maps.
func (r *Report) Clone() *Report {
	if r == nil {
		return nil
	}
	out := *r
	out.Strengths = append([]string(nil), r.Strengths...)
	out.Improvements = append([]string(nil), r.Improvements...)
	out.SkillScores = make(map[string]int, len(r.SkillScores))
	for k, v := range r.SkillScores {
		out.SkillScores[k] = v
	}
	return &out
}

// ScoringAnswer is one answer as sent to the scoring service.
type ScoringAnswer struct {
	QuestionIndex int    `json:"question_index"`
	Text          string `json:"text"`
}

// ScoringRequest is the body sent to the scoring service.
type ScoringRequest struct {
	CandidateRef    string            `json:"candidate_ref"`
	DurationSeconds int64             `json:"duration_seconds"`
	Answers         []ScoringAnswer   `json:"answers"`
	Proctoring      ViolationCounters `json:"proctoring"`
}

// ScoringResult is the structured result returned by the scoring service.
type ScoringResult struct {
	OverallScore int            `json:"overall_score"`
	Summary      string         `json:"summary"`
	Strengths    []string       `json:"strengths"`
	Improvements []string       `json:"improvements"`
	SkillScores  map[string]int `json:"skill_scores"`
}

// Artifact references a rendered, downloadable report document.
type Artifact struct {
	ReportID  uuid.UUID `json:"report_id"`
	Filename  string    `json:"filename"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}
