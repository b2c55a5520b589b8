package services

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/cervantesaxel/musicflow/internal/shared"
)

const spotifyTokenURL = "https://accounts.spotify.com/api/token"

// ClientCredentials exchanges a client id and secret for app tokens.
//
// Tokens are cached by an [oauth2.ReuseTokenSource] and refreshed shortly before expiry.
type ClientCredentials struct {
	config *clientcredentials.Config
	client *http.Client

	once   sync.Once
	source oauth2.TokenSource
}

// NewClientCredentials returns a provider posting to tokenURL, or the Spotify accounts endpoint when empty.
func NewClientCredentials(clientID, clientSecret, tokenURL string, client *http.Client) (*ClientCredentials, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingCredentials)
	}
	if tokenURL == "" {
		tokenURL = spotifyTokenURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &ClientCredentials{
		config: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		client: client,
	}, nil
}

// Token implements [TokenProvider].
//
// The token source is bound to a background context so the cached source outlives the first request. Exchanges are
// bounded by the HTTP client timeout.
func (c *ClientCredentials) Token(ctx context.Context) (*oauth2.Token, error) {
	c.once.Do(func() {
		base := context.WithValue(context.Background(), oauth2.HTTPClient, c.client)
		c.source = oauth2.ReuseTokenSource(nil, c.config.TokenSource(base))
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tok, err := c.source.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	return tok, nil
}

// tokenSource adapts a [TokenProvider] to [oauth2.TokenSource] for a fixed context.
type tokenSource struct {
	ctx      context.Context
	provider TokenProvider
}

func (t tokenSource) Token() (*oauth2.Token, error) {
	return t.provider.Token(t.ctx)
}
