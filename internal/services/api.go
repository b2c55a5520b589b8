// HTTP client for a running MusicFlow token proxy
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/cervantesaxel/musicflow/internal/shared"
)

// APIService makes raw HTTP requests to a MusicFlow server.
type APIService struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIService creates a client for the server at baseURL.
func NewAPIService(baseURL string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:5050"
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}, nil
}

// TokenResponse is the JSON body served by the token proxy.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// NewTokenResponse renders tok relative to now.
func NewTokenResponse(tok *oauth2.Token, now time.Time) TokenResponse {
	resp := TokenResponse{AccessToken: tok.AccessToken, TokenType: tok.Type()}
	if !tok.Expiry.IsZero() {
		resp.ExpiresIn = max(int(tok.Expiry.Sub(now).Seconds()), 0)
	}
	return resp
}

// RemoteToken fetches tokens from a running proxy's /token endpoint.
type RemoteToken struct {
	api *APIService
	now func() time.Time
}

// NewRemoteToken returns a provider for the proxy at baseURL.
func NewRemoteToken(baseURL string, client *http.Client) *RemoteToken {
	return &RemoteToken{api: NewAPIService(baseURL, client), now: time.Now}
}

// Token implements [TokenProvider].
func (r *RemoteToken) Token(ctx context.Context) (*oauth2.Token, error) {
	resp, err := r.api.Get(ctx, "/token")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: proxy returned status %d", shared.ErrAuthFailed, resp.StatusCode)
	}

	var body TokenResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("%w: malformed token response: %v", shared.ErrAuthFailed, err)
	}
	if body.AccessToken == "" {
		return nil, fmt.Errorf("%w: token response has no access_token", shared.ErrAuthFailed)
	}

	tok := &oauth2.Token{AccessToken: body.AccessToken, TokenType: body.TokenType}
	if body.ExpiresIn > 0 {
		tok.Expiry = r.now().Add(time.Duration(body.ExpiresIn) * time.Second)
	}
	return tok, nil
}
