package render

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-interview/internal/apperr"
	"github.com/stemsi/exstem-interview/internal/model"
)

func sampleReport() *model.Report {
	return &model.Report{
		ID:           uuid.New(),
		SessionID:    uuid.New(),
		OverallScore: 72,
		Summary:      "Communicates clearly, needs deeper design reasoning.",
		Strengths:    []string{"Testing discipline"},
		Improvements: []string{"Capacity planning"},
		SkillScores:  map[string]int{"Go": 85, "SQL": 55},
		GeneratedAt:  time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC),
	}
}

func TestRenderAndOpen(t *testing.T) {
	r, err := NewPDFRenderer(t.TempDir())
	require.NoError(t, err)

	start := time.Date(2026, 2, 2, 9, 30, 0, 0, time.UTC)
	tr := &model.Transcript{
		CandidateRef: "cand-9",
		StartedAt:    start,
		EndedAt:      start.Add(25 * time.Minute),
		Questions:    make([]model.Question, 2),
		Answers:      make([]model.Answer, 2),
		Proctoring:   model.ViolationCounters{model.ViolationTabSwitch: 4},
	}

	require.NoError(t, r.Render(context.Background(), "interview_report_x.pdf", sampleReport(), tr))

	f, err := r.Open("interview_report_x.pdf")
	require.NoError(t, err)
	defer f.Close()

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-", string(data[:5]))
}

func TestRenderWithoutTranscript(t *testing.T) {
	r, err := NewPDFRenderer(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, r.Render(context.Background(), "plain.pdf", sampleReport(), nil))
}

func TestRejectsUnsafeFilenames(t *testing.T) {
	r, err := NewPDFRenderer(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "../escape.pdf", "a/b.pdf", "report.txt", ".hidden.pdf"} {
		err := r.Render(context.Background(), name, sampleReport(), nil)
		assert.ErrorIs(t, err, ErrBadFilename, name)
	}

	_, err = r.Open("../etc/passwd")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestOpenMissingArtifact(t *testing.T) {
	r, err := NewPDFRenderer(t.TempDir())
	require.NoError(t, err)

	_, err = r.Open("missing.pdf")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestIntegrityVerdicts(t *testing.T) {
	v := IntegrityVerdicts(model.ViolationCounters{
		model.ViolationNoFace:        3,
		model.ViolationMultipleFaces: 1,
		model.ViolationLookingAway:   4,
		model.ViolationTabSwitch:     2,
	})

	require.Len(t, v, 5)
	assert.Equal(t, "Warning", v[0].Status)
	assert.Equal(t, "Alert", v[1].Status)
	assert.Equal(t, "Good", v[2].Status)
	assert.Equal(t, "Good", v[3].Status)
	assert.Equal(t, "Good", v[4].Status)
	assert.Equal(t, 3, v[0].Count)
}

func TestProficiencyLevel(t *testing.T) {
	assert.Equal(t, "Expert", ProficiencyLevel(80))
	assert.Equal(t, "Proficient", ProficiencyLevel(79))
	assert.Equal(t, "Proficient", ProficiencyLevel(60))
	assert.Equal(t, "Intermediate", ProficiencyLevel(40))
	assert.Equal(t, "Beginner", ProficiencyLevel(39))
}
