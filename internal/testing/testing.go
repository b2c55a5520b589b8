// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/cervantesaxel/musicflow/internal/models"
	"github.com/cervantesaxel/musicflow/internal/storage"
)

// MockCatalog is a test double for [services.Catalog]
type MockCatalog struct {
	Tracks []models.CatalogTrack
	Err    error

	mu      sync.Mutex
	Queries []string
}

func (m *MockCatalog) Search(ctx context.Context, query string, limit int) ([]models.CatalogTrack, error) {
	m.record(query)
	if m.Err != nil {
		return nil, m.Err
	}
	var out []models.CatalogTrack
	for _, t := range m.Tracks {
		if query == "" || strings.Contains(strings.ToLower(t.Name), strings.ToLower(query)) || t.ID == query {
			out = append(out, t)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockCatalog) Recommend(ctx context.Context, genre string) ([]models.CatalogTrack, error) {
	m.record("genre:" + genre)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Tracks, nil
}

func (m *MockCatalog) Lookup(ctx context.Context, id string) (*models.CatalogTrack, error) {
	m.record("id:" + id)
	if m.Err != nil {
		return nil, m.Err
	}
	for _, t := range m.Tracks {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, errors.New("track not found")
}

func (m *MockCatalog) record(q string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Queries = append(m.Queries, q)
}

// FailingStorage wraps a [storage.Storage] and injects errors into reads or writes
type FailingStorage struct {
	storage.Storage
	GetErr error
	SetErr error

	mu     sync.Mutex
	Writes int
}

func NewFailingStorage(backend storage.Storage) *FailingStorage {
	if backend == nil {
		backend = storage.NewMemory()
	}
	return &FailingStorage{Storage: backend}
}

func (f *FailingStorage) Get(ctx context.Context, key string) ([]byte, error) {
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	return f.Storage.Get(ctx, key)
}

func (f *FailingStorage) Set(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	f.Writes++
	f.mu.Unlock()
	if f.SetErr != nil {
		return f.SetErr
	}
	return f.Storage.Set(ctx, key, value)
}

// WriteCount returns the number of Set calls seen, including failed ones
func (f *FailingStorage) WriteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Writes
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// StrPtr returns a pointer to s
func StrPtr(s string) *string { return &s }

// BoolPtr returns a pointer to b
func BoolPtr(b bool) *bool { return &b }

// SampleTrack builds a cached track with an image derived from its id
func SampleTrack(id string, durationMs int) models.Track {
	return models.Track{
		ID:       id,
		Name:     "Song " + id,
		Artist:   "Artist " + id,
		Album:    "Album " + id,
		Image:    StrPtr("http://x/" + id + ".png"),
		Duration: durationMs,
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
