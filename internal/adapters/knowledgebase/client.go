// Package knowledgebase is the HTTP client for the external note-resolution
// service. The collaborator is optional: when no endpoint is configured the
// engine runs without it and the knowledge-base resolution step is skipped.
package knowledgebase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/clearborder/duty_engine/internal/apperrors"
	portssvc "github.com/clearborder/duty_engine/internal/core/ports/services"
	"golang.org/x/oauth2/clientcredentials"
)

// Config holds the knowledge-base connection settings.
type Config struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// Client implements the NoteResolverSvc port over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ portssvc.NoteResolverSvc = (*Client)(nil)

// NewClient creates a knowledge-base client. When a token URL is configured
// the client authenticates with OAuth2 client credentials; otherwise requests
// go out unauthenticated.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	httpClient := &http.Client{Timeout: timeout}
	if cfg.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		httpClient = cc.Client(context.Background())
		httpClient.Timeout = timeout
	}

	return &Client{
		baseURL: cfg.BaseURL,
		http:    httpClient,
	}
}

type resolveRequest struct {
	Code     string `json:"code"`
	RateText string `json:"rateText"`
	Column   string `json:"column"`
	Year     int    `json:"year,omitempty"`
}

type resolveResponse struct {
	Formula    string  `json:"formula"`
	Confidence float64 `json:"confidence"`
}

// ResolveNoteReference asks the knowledge base to resolve a legal-note
// reference in rate text. A nil result with nil error means the knowledge base
// had no answer; transport failures are reported as ErrExternalLookup so the
// caller can treat them as "no result from this source".
func (c *Client) ResolveNoteReference(ctx context.Context, code, rateText, column string, year int) (*portssvc.NoteResolution, error) {
	payload, err := json.Marshal(resolveRequest{
		Code:     code,
		RateText: rateText,
		Column:   column,
		Year:     year,
	})
	if err != nil {
		return nil, apperrors.NewExternalLookupError("marshal note resolution request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/notes/resolve", bytes.NewReader(payload))
	if err != nil {
		return nil, apperrors.NewExternalLookupError("build note resolution request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.NewExternalLookupError("knowledge base unreachable", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var body resolveResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, apperrors.NewExternalLookupError("decode note resolution response", err)
		}
		if body.Formula == "" {
			return nil, nil
		}
		return &portssvc.NoteResolution{Formula: body.Formula, Confidence: body.Confidence}, nil
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, apperrors.NewExternalLookupError(
			fmt.Sprintf("knowledge base returned status %d", resp.StatusCode), nil)
	}
}
