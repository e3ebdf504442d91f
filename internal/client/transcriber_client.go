package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"

	"github.com/stemsi/exstem-interview/internal/apperr"
)

// TranscriberClient turns a spoken answer into text with Google Cloud
// Speech-to-Text. Answers are short clips, so it uses synchronous recognition.
type TranscriberClient struct {
	client   *speech.Client
	language string
	timeout  time.Duration
}

func NewTranscriberClient(ctx context.Context, language string, timeout time.Duration, opts ...option.ClientOption) (*TranscriberClient, error) {
	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	if language == "" {
		language = "en-US"
	}
	return &TranscriberClient{client: c, language: language, timeout: timeout}, nil
}

// Transcribe returns the best transcript of the clip. An empty string means
// no speech was recognized.
func (c *TranscriberClient) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	const op = "client.Transcribe"

	enc := audioEncoding(mimeType)
	if enc == speechpb.RecognitionConfig_ENCODING_UNSPECIFIED {
		return "", apperr.Validation(op, "unsupported audio type %q", mimeType)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Recognize(ctx, recognizeRequest(audio, enc, c.language))
	if err != nil {
		return "", apperr.Unavailable(op, err)
	}
	return transcriptFromResponse(resp), nil
}

func (c *TranscriberClient) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func recognizeRequest(audio []byte, enc speechpb.RecognitionConfig_AudioEncoding, language string) *speechpb.RecognizeRequest {
	return &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   enc,
			LanguageCode:               language,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	}
}

// audioEncoding maps the upload's content type to a recognizer encoding.
// Browsers record webm/opus or ogg/opus; wav and flac come from native clients.
func audioEncoding(mimeType string) speechpb.RecognitionConfig_AudioEncoding {
	m := strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.Contains(m, "webm"):
		return speechpb.RecognitionConfig_WEBM_OPUS
	case strings.Contains(m, "ogg"), strings.Contains(m, "opus"):
		return speechpb.RecognitionConfig_OGG_OPUS
	case strings.Contains(m, "wav"):
		return speechpb.RecognitionConfig_LINEAR16
	case strings.Contains(m, "flac"):
		return speechpb.RecognitionConfig_FLAC
	case strings.Contains(m, "mpeg"), strings.Contains(m, "mp3"):
		return speechpb.RecognitionConfig_MP3
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}

// transcriptFromResponse joins the top alternative of every result.
func transcriptFromResponse(resp *speechpb.RecognizeResponse) string {
	if resp == nil {
		return ""
	}
	parts := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r == nil || len(r.Alternatives) == 0 || r.Alternatives[0] == nil {
			continue
		}
		if t := strings.TrimSpace(r.Alternatives[0].Transcript); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
