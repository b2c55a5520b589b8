package services

import (
	"context"
	"net/http"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/cervantesaxel/musicflow/internal/models"
	"github.com/cervantesaxel/musicflow/internal/shared"
)

// TokenProvider supplies bearer tokens for catalog requests.
type TokenProvider interface {
	Token(ctx context.Context) (*oauth2.Token, error)
}

// Catalog searches the third-party music catalog.
type Catalog interface {
	// Search returns up to limit tracks matching query.
	Search(ctx context.Context, query string, limit int) ([]models.CatalogTrack, error)
	// Recommend returns the feed for genre, or for a random configured genre when genre is empty.
	Recommend(ctx context.Context, genre string) ([]models.CatalogTrack, error)
	// Lookup fetches a single track by catalog id.
	Lookup(ctx context.Context, id string) (*models.CatalogTrack, error)
}

// NewTokenProvider builds the token provider for cfg.
//
// Client credentials are preferred; without them a non-empty proxyURL selects [RemoteToken]. Returns nil when
// neither is available.
func NewTokenProvider(cfg shared.SpotifyConfig, proxyURL string, client *http.Client) TokenProvider {
	if cfg.HasCredentials() {
		tp, err := NewClientCredentials(cfg.ClientID, cfg.ClientSecret, cfg.TokenURL, client)
		if err == nil {
			return tp
		}
	}
	if proxyURL != "" {
		return NewRemoteToken(proxyURL, client)
	}
	return nil
}

// NewCatalog returns a [SpotifyCatalog] or nil when tokens is nil.
func NewCatalog(tokens TokenProvider, cfg shared.CatalogConfig, client *http.Client, logger *log.Logger) Catalog {
	if tokens == nil {
		return nil
	}
	return NewSpotifyCatalog(tokens, cfg, WithHTTPClient(client), WithCatalogLogger(logger))
}
