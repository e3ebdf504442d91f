package client

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/stemsi/exstem-interview/internal/apperr"
	"github.com/stemsi/exstem-interview/internal/model"
)

// ScoringClient calls the external scoring service over HTTP.
type ScoringClient struct {
	client  *http.Client
	baseURL string
}

// NewScoringClient creates a client for baseURL. The deadline of each call is
// taken from the caller's context; timeout only caps the transport.
func NewScoringClient(baseURL string, timeout time.Duration) *ScoringClient {
	return &ScoringClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Score posts the request to /score. Any failure is CollaboratorUnavailable.
func (c *ScoringClient) Score(ctx context.Context, req model.ScoringRequest) (*model.ScoringResult, error) {
	var res model.ScoringResult
	if err := doJSON(ctx, c.client, "scoring", http.MethodPost, c.baseURL+"/score", req, &res); err != nil {
		return nil, apperr.Unavailable("client.Score", err)
	}
	return &res, nil
}
