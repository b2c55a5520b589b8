package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/oauth2"

	"github.com/cervantesaxel/musicflow/internal/library"
	"github.com/cervantesaxel/musicflow/internal/models"
	"github.com/cervantesaxel/musicflow/internal/shared"
	"github.com/cervantesaxel/musicflow/internal/storage"
	th "github.com/cervantesaxel/musicflow/internal/testing"
)

type fakeTokens struct {
	tok *oauth2.Token
	err error
}

func (f fakeTokens) Token(context.Context) (*oauth2.Token, error) { return f.tok, f.err }

var testNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, backend storage.Storage, opts Options) (*httptest.Server, *library.Store) {
	t.Helper()
	if backend == nil {
		backend = storage.NewMemory()
	}
	store := library.New(backend)
	opts.Store = store
	opts.Now = func() time.Time { return testNow }

	ts := httptest.NewServer(New(opts))
	t.Cleanup(ts.Close)
	return ts, store
}

func do(t *testing.T, ts *httptest.Server, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return resp, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("failed to decode %s: %v", data, err)
	}
	return v
}

func TestTokenHandler(t *testing.T) {
	t.Run("Health", func(t *testing.T) {
		ts, _ := newTestServer(t, nil, Options{})
		resp, body := do(t, ts, http.MethodGet, "/health", nil)
		if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"ok"`) {
			t.Errorf("unexpected health response %d %s", resp.StatusCode, body)
		}
	})

	t.Run("Returns Upstream Token", func(t *testing.T) {
		tok := &oauth2.Token{AccessToken: "abc", TokenType: "Bearer", Expiry: testNow.Add(time.Hour)}
		ts, _ := newTestServer(t, nil, Options{Tokens: fakeTokens{tok: tok}})

		resp, body := do(t, ts, http.MethodGet, "/token", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
		}

		got := decode[map[string]any](t, body)
		if got["access_token"] != "abc" || got["token_type"] != "Bearer" || got["expires_in"] != float64(3600) {
			t.Errorf("unexpected token body %v", got)
		}
	})

	t.Run("No Credentials", func(t *testing.T) {
		ts, _ := newTestServer(t, nil, Options{})
		resp, _ := do(t, ts, http.MethodGet, "/token", nil)
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("expected 503, got %d", resp.StatusCode)
		}
	})

	t.Run("Upstream Failure", func(t *testing.T) {
		ts, _ := newTestServer(t, nil, Options{Tokens: fakeTokens{err: shared.ErrAuthFailed}})
		resp, _ := do(t, ts, http.MethodGet, "/token", nil)
		if resp.StatusCode != http.StatusBadGateway {
			t.Errorf("expected 502, got %d", resp.StatusCode)
		}
	})
}

func TestLibraryHandler(t *testing.T) {
	t.Run("Playlist Lifecycle", func(t *testing.T) {
		ts, _ := newTestServer(t, nil, Options{})

		resp, body := do(t, ts, http.MethodPost, "/api/playlists", map[string]any{"name": "Road Trip", "color": "#667eea"})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", resp.StatusCode, body)
		}
		created := decode[models.Playlist](t, body)

		track := th.SampleTrack("t1", 200000)
		resp, body = do(t, ts, http.MethodPost, "/api/playlists/"+created.ID+"/tracks", track)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200 adding track, got %d: %s", resp.StatusCode, body)
		}
		withTrack := decode[models.Playlist](t, body)
		if withTrack.CoverImage == nil || *withTrack.CoverImage != "http://x/t1.png" {
			t.Errorf("expected cover from first track, got %v", withTrack.CoverImage)
		}

		resp, body = do(t, ts, http.MethodGet, "/api/playlists/"+created.ID, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		detail := decode[playlistDetail](t, body)
		if len(detail.Tracks) != 1 || detail.Tracks[0].ID != "t1" || detail.CoverURL != "http://x/t1.png" {
			t.Errorf("unexpected detail %+v", detail)
		}

		resp, body = do(t, ts, http.MethodPatch, "/api/playlists/"+created.ID, map[string]any{"name": "Renamed", "isPublic": true})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200 on patch, got %d: %s", resp.StatusCode, body)
		}
		if p := decode[models.Playlist](t, body); p.Name != "Renamed" || !p.IsPublic {
			t.Errorf("patch not applied: %+v", p)
		}

		resp, body = do(t, ts, http.MethodGet, "/api/stats", nil)
		stats := decode[map[string]any](t, body)
		if stats["trackCount"] != float64(1) || stats["totalDurationMs"] != float64(200000) || stats["totalDuration"] != "3m" {
			t.Errorf("unexpected stats %v", stats)
		}

		resp, body = do(t, ts, http.MethodDelete, "/api/playlists/"+created.ID+"/tracks/t1", nil)
		if p := decode[models.Playlist](t, body); resp.StatusCode != http.StatusOK || len(p.Tracks) != 0 || p.CoverImage != nil {
			t.Errorf("unexpected remove response %d %s", resp.StatusCode, body)
		}

		resp, _ = do(t, ts, http.MethodDelete, "/api/playlists/"+created.ID, nil)
		if resp.StatusCode != http.StatusNoContent {
			t.Errorf("expected 204, got %d", resp.StatusCode)
		}
	})

	t.Run("Search And Sort", func(t *testing.T) {
		ts, store := newTestServer(t, nil, Options{})
		ctx := context.Background()
		a, _ := store.CreatePlaylist(ctx, "Zeta rock", "", "", false)
		b, _ := store.CreatePlaylist(ctx, "Alpha rock", "", "", false)
		store.CreatePlaylist(ctx, "Jazz", "", "", false)

		_, body := do(t, ts, http.MethodGet, "/api/playlists?q=ROCK&sort=name", nil)
		got := decode[[]models.Playlist](t, body)
		if len(got) != 2 || got[0].ID != b.ID || got[1].ID != a.ID {
			t.Errorf("unexpected search result %+v", got)
		}

		resp, _ := do(t, ts, http.MethodGet, "/api/playlists?sort=popularity", nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400 for bad sort key, got %d", resp.StatusCode)
		}

		_, body = do(t, ts, http.MethodGet, "/api/playlists?q=nothing", nil)
		if strings.TrimSpace(string(body)) != "[]" {
			t.Errorf("expected empty array, got %s", body)
		}
	})

	t.Run("Error Mapping", func(t *testing.T) {
		ts, store := newTestServer(t, nil, Options{})
		p, _ := store.CreatePlaylist(context.Background(), "Mapped", "", "", false)
		store.AddTrackToPlaylist(context.Background(), p.ID, th.SampleTrack("t1", 1))

		tests := []struct {
			name   string
			method string
			path   string
			body   any
			status int
		}{
			{"blank name", http.MethodPost, "/api/playlists", map[string]any{"name": "  "}, http.StatusBadRequest},
			{"malformed body", http.MethodPost, "/api/playlists", "{", http.StatusBadRequest},
			{"missing playlist", http.MethodGet, "/api/playlists/nope", nil, http.StatusNotFound},
			{"delete missing", http.MethodDelete, "/api/playlists/nope", nil, http.StatusNotFound},
			{"duplicate track", http.MethodPost, "/api/playlists/" + p.ID + "/tracks", th.SampleTrack("t1", 1), http.StatusConflict},
			{"catalog disabled for bare id", http.MethodPost, "/api/playlists/" + p.ID + "/tracks", map[string]any{"id": "t9"}, http.StatusServiceUnavailable},
			{"recommendations disabled", http.MethodGet, "/api/recommendations", nil, http.StatusServiceUnavailable},
			{"unknown route", http.MethodGet, "/api/unknown", nil, http.StatusNotFound},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				resp, body := do(t, ts, tt.method, tt.path, tt.body)
				if resp.StatusCode != tt.status {
					t.Errorf("expected %d, got %d: %s", tt.status, resp.StatusCode, body)
				}
				if got := decode[errorBody](t, body); got.Error == "" {
					t.Errorf("expected error message, got %s", body)
				}
			})
		}
	})

	t.Run("Persistence Failure", func(t *testing.T) {
		backend := th.NewFailingStorage(nil)
		backend.SetErr = storage.ErrQuotaExceeded
		ts, _ := newTestServer(t, backend, Options{})

		resp, body := do(t, ts, http.MethodPost, "/api/playlists", map[string]any{"name": "Full"})
		if resp.StatusCode != http.StatusInsufficientStorage {
			t.Errorf("expected 507, got %d: %s", resp.StatusCode, body)
		}
	})

	t.Run("Catalog Backed Routes", func(t *testing.T) {
		catalog := &th.MockCatalog{Tracks: []models.CatalogTrack{
			{ID: "c1", Name: "From Catalog", Artists: []string{"A"}, Images: []string{"http://x/c1.png"}, Duration: 1000},
		}}
		ts, store := newTestServer(t, nil, Options{Catalog: catalog})
		p, _ := store.CreatePlaylist(context.Background(), "Feed", "", "", false)

		resp, body := do(t, ts, http.MethodGet, "/api/recommendations?genre=jazz", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		if got := decode[[]models.CatalogTrack](t, body); len(got) != 1 {
			t.Errorf("unexpected recommendations %v", got)
		}

		resp, body = do(t, ts, http.MethodPost, "/api/playlists/"+p.ID+"/tracks", map[string]any{"id": "c1"})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
		}
		track, err := store.Track(context.Background(), "c1")
		if err != nil || track.Name != "From Catalog" || track.Artist != "A" {
			t.Errorf("expected catalog track cached, got %+v %v", track, err)
		}

		catalog.Err = fmt.Errorf("%w: boom", shared.ErrAPIRequest)
		resp, _ = do(t, ts, http.MethodGet, "/api/recommendations", nil)
		if resp.StatusCode != http.StatusBadGateway {
			t.Errorf("expected 502, got %d", resp.StatusCode)
		}
	})
}

func TestMiddleware(t *testing.T) {
	ts, _ := newTestServer(t, nil, Options{})

	t.Run("Request ID Is Generated", func(t *testing.T) {
		resp, _ := do(t, ts, http.MethodGet, "/health", nil)
		if resp.Header.Get(RequestIDHeader) == "" {
			t.Error("expected request id header")
		}
	})

	t.Run("Request ID Is Preserved", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		resp, err := ts.Client().Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if got := resp.Header.Get(RequestIDHeader); got != "abc-123" {
			t.Errorf("expected preserved id, got %q", got)
		}
	})

	t.Run("CORS Preflight", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/playlists", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		resp, err := ts.Client().Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}
		if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
			t.Error("missing CORS header")
		}
		if !strings.Contains(resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPost) {
			t.Errorf("expected POST to be allowed, got %q", resp.Header.Get("Access-Control-Allow-Methods"))
		}
	})

	t.Run("CORS Exposes Request ID", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		resp, err := ts.Client().Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()

		if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
			t.Error("missing CORS header on simple request")
		}
		if got := resp.Header.Get("Access-Control-Expose-Headers"); !strings.Contains(got, RequestIDHeader) {
			t.Errorf("expected %s to be exposed, got %q", RequestIDHeader, got)
		}
	})

	t.Run("Recovers From Panics", func(t *testing.T) {
		var buf bytes.Buffer
		r := NewRouter(shared.NewLogger(&buf), panicHandler{})
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
		if !strings.Contains(buf.String(), "status=500") {
			t.Errorf("expected logged 500, got %s", buf.String())
		}
	})
}

type panicHandler struct{}

func (panicHandler) Mount(r chi.Router) {
	r.Get("/panic", func(http.ResponseWriter, *http.Request) { panic("boom") })
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{shared.ErrValidation, http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", shared.ErrPlaylistNotFound), http.StatusNotFound},
		{shared.ErrTrackAlreadyInPlaylist, http.StatusConflict},
		{fmt.Errorf("%w: %w", shared.ErrPersistence, storage.ErrQuotaExceeded), http.StatusInsufficientStorage},
		{shared.ErrServiceUnavailable, http.StatusServiceUnavailable},
		{errors.New("unexpected"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestListenAndServe(t *testing.T) {
	srv := New(Options{Store: library.New(storage.NewMemory())})
	ctx, cancel := context.WithCancel(context.Background())

	ready := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx, "127.0.0.1:0", ready) }()

	addr := <-ready
	resp, err := http.Get("http://" + addr + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	resp.Body.Close()

	cancel()
	if err := <-errCh; err != nil {
		t.Errorf("expected clean shutdown, got %v", err)
	}
}
