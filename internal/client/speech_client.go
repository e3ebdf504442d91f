package client

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/stemsi/exstem-interview/internal/logger"
	"github.com/stemsi/exstem-interview/internal/model"
)

var warningPhrases = map[model.ViolationType]string{
	model.ViolationNoFace:        "Warning! No face detected. Please stay in frame.",
	model.ViolationMultipleFaces: "Warning! Multiple people detected. Only one person is allowed.",
	model.ViolationLookingAway:   "Warning! Please look at the camera and maintain focus.",
	model.ViolationTabSwitch:     "Warning! Tab switching detected. Please stay on the interview page.",
}

const defaultWarningPhrase = "Warning detected. Please follow interview guidelines."

// WarningPhrase is the sentence spoken for a violation type.
func WarningPhrase(t model.ViolationType) string {
	if p, ok := warningPhrases[t]; ok {
		return p
	}
	return defaultWarningPhrase
}

// SpeechConfig configures the text-to-speech collaborator.
type SpeechConfig struct {
	BaseURL string
	Timeout time.Duration

	// RatePerSecond and Burst bound how often utterances are sent.
	RatePerSecond float64
	Burst         int
}

// SpeechClient speaks prompts and warnings. It is best-effort: calls never
// block the caller and failures are only logged.
type SpeechClient struct {
	client  *http.Client
	baseURL string
	timeout time.Duration
	limiter *rate.Limiter
	log     zerolog.Logger
	wg      sync.WaitGroup
}

func NewSpeechClient(cfg SpeechConfig, log zerolog.Logger) *SpeechClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 3
	}
	return &SpeechClient{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		log:     logger.Component(log, "speech_client"),
	}
}

type speakRequest struct {
	Text      string `json:"text"`
	SessionID string `json:"session_id,omitempty"`
}

// Speak asynchronously voices text for a session.
func (c *SpeechClient) Speak(sessionID, text string) {
	text = strings.TrimSpace(text)
	if c.baseURL == "" || text == "" {
		return
	}
	if !c.limiter.Allow() {
		c.log.Debug().Str("session_id", sessionID).Msg("Speech rate limited, utterance dropped")
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()

		body := speakRequest{Text: text, SessionID: sessionID}
		if err := doJSON(ctx, c.client, "speech", http.MethodPost, c.baseURL+"/speak", body, nil); err != nil {
			c.log.Warn().Err(err).Str("session_id", sessionID).Msg("Speech request failed")
		}
	}()
}

// SpeakWarning voices the warning phrase for t.
func (c *SpeechClient) SpeakWarning(sessionID string, t model.ViolationType) {
	c.Speak(sessionID, WarningPhrase(t))
}

// Wait blocks until in-flight utterances finish.
func (c *SpeechClient) Wait() {
	c.wg.Wait()
}
