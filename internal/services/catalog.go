package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/cervantesaxel/musicflow/internal/models"
	"github.com/cervantesaxel/musicflow/internal/shared"
)

// DefaultGenres seeds the recommendation feed when none are configured.
var DefaultGenres = []string{"pop", "rock", "electronic", "hip-hop", "indie", "latin", "jazz", "classical"}

const (
	defaultMarket  = "US"
	defaultLimit   = 20
	maxSearchLimit = 50
)

// SpotifyCatalog implements [Catalog] with the Spotify Web API.
type SpotifyCatalog struct {
	client  *spotify.Client
	limiter *rate.Limiter
	logger  *log.Logger
	market  string
	limit   int
	genres  []string
	pick    func(n int) int
}

// CatalogOption configures a [SpotifyCatalog].
type CatalogOption func(*catalogOptions)

type catalogOptions struct {
	httpClient *http.Client
	baseURL    string
	logger     *log.Logger
	pick       func(n int) int
}

// WithHTTPClient sets the client whose transport carries catalog requests.
func WithHTTPClient(client *http.Client) CatalogOption {
	return func(o *catalogOptions) { o.httpClient = client }
}

// WithBaseURL points the catalog at a different API root.
func WithBaseURL(baseURL string) CatalogOption {
	return func(o *catalogOptions) { o.baseURL = baseURL }
}

// WithCatalogLogger sets the logger.
func WithCatalogLogger(logger *log.Logger) CatalogOption {
	return func(o *catalogOptions) { o.logger = logger }
}

// WithGenrePicker replaces the random genre choice; pick returns an index in [0, n).
func WithGenrePicker(pick func(n int) int) CatalogOption {
	return func(o *catalogOptions) { o.pick = pick }
}

// NewSpotifyCatalog returns a catalog authorized by tokens.
func NewSpotifyCatalog(tokens TokenProvider, cfg shared.CatalogConfig, opts ...CatalogOption) *SpotifyCatalog {
	o := catalogOptions{pick: rand.IntN}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = shared.DiscardLogger()
	}

	base := http.DefaultTransport
	if o.httpClient != nil && o.httpClient.Transport != nil {
		base = o.httpClient.Transport
	}
	timeout := cfg.Timeout()
	if timeout <= 0 && o.httpClient != nil {
		timeout = o.httpClient.Timeout
	}

	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.ReuseTokenSource(nil, tokenSource{ctx: context.Background(), provider: tokens}),
			Base:   base,
		},
		Timeout: timeout,
	}

	var clientOpts []spotify.ClientOption
	if o.baseURL != "" {
		clientOpts = append(clientOpts, spotify.WithBaseURL(strings.TrimRight(o.baseURL, "/")+"/"))
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	c := &SpotifyCatalog{
		client:  spotify.New(httpClient, clientOpts...),
		limiter: rate.NewLimiter(limit, 1),
		logger:  o.logger,
		market:  cfg.Market,
		limit:   cfg.Limit,
		genres:  cfg.Genres,
		pick:    o.pick,
	}
	if c.market == "" {
		c.market = defaultMarket
	}
	if c.limit <= 0 {
		c.limit = defaultLimit
	}
	if len(c.genres) == 0 {
		c.genres = DefaultGenres
	}
	return c
}

// Search implements [Catalog]. A non-positive limit uses the configured default.
func (c *SpotifyCatalog) Search(ctx context.Context, query string, limit int) ([]models.CatalogTrack, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is empty", shared.ErrMissingArgument)
	}
	if limit <= 0 {
		limit = c.limit
	}
	limit = min(limit, maxSearchLimit)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	results, err := c.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(limit), spotify.Market(c.market))
	if err != nil {
		return nil, fmt.Errorf("%w: search %q: %w", shared.ErrAPIRequest, query, err)
	}
	c.logger.Debug("catalog search", "query", query, "limit", limit, "elapsed", time.Since(start))

	if results.Tracks == nil {
		return []models.CatalogTrack{}, nil
	}

	tracks := make([]models.CatalogTrack, 0, len(results.Tracks.Tracks))
	for _, t := range results.Tracks.Tracks {
		tracks = append(tracks, toCatalogTrack(t))
	}
	return tracks, nil
}

// Recommend implements [Catalog] by searching `genre:"<genre>"`.
func (c *SpotifyCatalog) Recommend(ctx context.Context, genre string) ([]models.CatalogTrack, error) {
	genre = strings.TrimSpace(genre)
	if genre == "" {
		genre = c.genres[c.pick(len(c.genres))]
	}
	c.logger.Info("loading recommendations", "genre", genre)
	return c.Search(ctx, fmt.Sprintf("genre:%q", genre), c.limit)
}

// Lookup implements [Catalog].
func (c *SpotifyCatalog) Lookup(ctx context.Context, id string) (*models.CatalogTrack, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: track id is empty", shared.ErrMissingArgument)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	track, err := c.client.GetTrack(ctx, spotify.ID(id), spotify.Market(c.market))
	if err != nil {
		return nil, fmt.Errorf("%w: get track %s: %w", shared.ErrAPIRequest, id, err)
	}

	ct := toCatalogTrack(*track)
	return &ct, nil
}

func toCatalogTrack(t spotify.FullTrack) models.CatalogTrack {
	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, a.Name)
	}

	images := make([]string, 0, len(t.Album.Images))
	for _, img := range t.Album.Images {
		images = append(images, img.URL)
	}

	return models.CatalogTrack{
		ID:         string(t.ID),
		Name:       t.Name,
		Artists:    artists,
		Album:      t.Album.Name,
		Images:     images,
		Duration:   int(t.Duration),
		Popularity: int(t.Popularity),
		PreviewURL: t.PreviewURL,
	}
}
