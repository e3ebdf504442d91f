package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-interview/internal/apperr"
	"github.com/stemsi/exstem-interview/internal/model"
)

func TestScoringClientSuccess(t *testing.T) {
	var got model.ScoringRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/score", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"overall_score":81,"summary":"Good","strengths":["a"],"improvements":["b"],"skill_scores":{"Go":90}}`))
	}))
	defer srv.Close()

	c := NewScoringClient(srv.URL+"/", time.Second)
	res, err := c.Score(context.Background(), model.ScoringRequest{
		CandidateRef:    "cand-1",
		DurationSeconds: 300,
		Answers:         []model.ScoringAnswer{{QuestionIndex: 0, Text: "hi"}},
		Proctoring:      model.NewViolationCounters(),
	})
	require.NoError(t, err)

	assert.Equal(t, 81, res.OverallScore)
	assert.Equal(t, 90, res.SkillScores["Go"])
	assert.Equal(t, "cand-1", got.CandidateRef)
	assert.Equal(t, int64(300), got.DurationSeconds)
	assert.Len(t, got.Answers, 1)
}

func TestScoringClientFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "model overloaded", http.StatusServiceUnavailable)
		},
		"malformed body": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"overall_score":`))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()

			_, err := NewScoringClient(srv.URL, time.Second).Score(context.Background(), model.ScoringRequest{})
			assert.ErrorIs(t, err, apperr.ErrCollaboratorUnavailable)
		})
	}
}

func TestScoringClientHonoursContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewScoringClient(srv.URL, time.Minute).Score(ctx, model.ScoringRequest{})
	assert.ErrorIs(t, err, apperr.ErrCollaboratorUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStatusErrorCarriesCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewScoringClient(srv.URL, time.Second).Score(context.Background(), model.ScoringRequest{})

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)
	assert.Equal(t, "nope", se.Body)
}

func TestListPersonalizedAppliesDefaults(t *testing.T) {
	var body model.PersonalizedQuestionsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/questions/personalized", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"questions":[{"id":"q1","category":"Go","difficulty":"Easy","text":"What is a slice?"}]}`))
	}))
	defer srv.Close()

	qs, err := NewQuestionBankClient(srv.URL, time.Second).ListPersonalized(context.Background(), nil, "", 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"Programming"}, body.Interests)
	assert.Equal(t, "intermediate", body.SkillLevel)
	assert.Equal(t, 5, body.Count)
	require.Len(t, qs, 1)
	assert.Equal(t, model.DifficultyEasy, qs[0].Difficulty)
}

func TestListQuestionsRejectsBadDifficulty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/questions", r.URL.Path)
		_, _ = w.Write([]byte(`{"questions":[{"id":"q1","difficulty":"Extreme","text":"?"}]}`))
	}))
	defer srv.Close()

	_, err := NewQuestionBankClient(srv.URL, time.Second).ListQuestions(context.Background())
	assert.ErrorIs(t, err, apperr.ErrCollaboratorUnavailable)
}

func TestSpeechClientIsFireAndForget(t *testing.T) {
	var hits atomic.Int32
	var lastText atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req speakRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		lastText.Store(req.Text)
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewSpeechClient(SpeechConfig{BaseURL: srv.URL, RatePerSecond: 100, Burst: 5}, zerolog.Nop())
	c.SpeakWarning("s-1", model.ViolationTabSwitch)
	c.Wait()

	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, WarningPhrase(model.ViolationTabSwitch), lastText.Load())
}

func TestSpeechClientRateLimits(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	c := NewSpeechClient(SpeechConfig{BaseURL: srv.URL, RatePerSecond: 0.01, Burst: 2}, zerolog.Nop())
	for i := 0; i < 5; i++ {
		c.Speak("s-1", "Question one")
	}
	c.Wait()

	assert.Equal(t, int32(2), hits.Load())
}

func TestSpeechClientDisabledWithoutURL(t *testing.T) {
	c := NewSpeechClient(SpeechConfig{}, zerolog.Nop())
	c.Speak("s-1", "hello")
	c.Wait()
}

func TestWarningPhrases(t *testing.T) {
	assert.Equal(t, "Warning! No face detected. Please stay in frame.", WarningPhrase(model.ViolationNoFace))
	assert.Equal(t, "Warning detected. Please follow interview guidelines.", WarningPhrase(model.ViolationCopyPaste))
}

func TestFacesFromResponse(t *testing.T) {
	resp := &visionpb.BatchAnnotateImagesResponse{
		Responses: []*visionpb.AnnotateImageResponse{{
			FaceAnnotations: []*visionpb.FaceAnnotation{
				{DetectionConfidence: 0.93, PanAngle: 12.5, TiltAngle: -4},
				nil,
				{DetectionConfidence: 0.41, PanAngle: -50},
			},
		}},
	}

	faces, err := facesFromResponse(resp)
	require.NoError(t, err)
	require.Len(t, faces, 2)
	assert.InDelta(t, 0.93, faces[0].Confidence, 1e-6)
	assert.InDelta(t, 12.5, faces[0].Pan, 1e-6)
	assert.InDelta(t, -50, faces[1].Pan, 1e-6)

	faces, err = facesFromResponse(&visionpb.BatchAnnotateImagesResponse{})
	require.NoError(t, err)
	assert.Empty(t, faces)
}

func TestCredentialOptions(t *testing.T) {
	assert.Nil(t, CredentialOptions(" "))
	assert.Len(t, CredentialOptions(`{"type":"service_account"}`), 1)
	assert.Len(t, CredentialOptions("/etc/gcp/key.json"), 1)
}

func TestAudioEncoding(t *testing.T) {
	cases := map[string]speechpb.RecognitionConfig_AudioEncoding{
		"audio/webm;codecs=opus": speechpb.RecognitionConfig_WEBM_OPUS,
		"audio/ogg":              speechpb.RecognitionConfig_OGG_OPUS,
		"audio/wav":              speechpb.RecognitionConfig_LINEAR16,
		"audio/x-wav":            speechpb.RecognitionConfig_LINEAR16,
		"audio/flac":             speechpb.RecognitionConfig_FLAC,
		"audio/mpeg":             speechpb.RecognitionConfig_MP3,
		"video/mp4":              speechpb.RecognitionConfig_ENCODING_UNSPECIFIED,
		"":                       speechpb.RecognitionConfig_ENCODING_UNSPECIFIED,
	}
	for mime, want := range cases {
		assert.Equal(t, want, audioEncoding(mime), mime)
	}
}

func TestRecognizeRequestCarriesAudio(t *testing.T) {
	req := recognizeRequest([]byte{1, 2, 3}, speechpb.RecognitionConfig_WEBM_OPUS, "en-GB")
	assert.Equal(t, "en-GB", req.Config.LanguageCode)
	assert.True(t, req.Config.EnableAutomaticPunctuation)
	assert.Equal(t, []byte{1, 2, 3}, req.Audio.GetContent())
}

func TestTranscriptFromResponse(t *testing.T) {
	resp := &speechpb.RecognizeResponse{
		Results: []*speechpb.SpeechRecognitionResult{
			{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "I would profile first."}, {Transcript: "ignored"}}},
			nil,
			{},
			{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: " Then fix the hot path. "}}},
		},
	}
	assert.Equal(t, "I would profile first. Then fix the hot path.", transcriptFromResponse(resp))
	assert.Empty(t, transcriptFromResponse(&speechpb.RecognizeResponse{}))
	assert.Empty(t, transcriptFromResponse(nil))
}

func TestTranscribeRejectsUnsupportedType(t *testing.T) {
	c := &TranscriberClient{language: "en-US", timeout: time.Second}
	_, err := c.Transcribe(context.Background(), []byte("x"), "video/mp4")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
