package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/cervantesaxel/musicflow/internal/library"
	"github.com/cervantesaxel/musicflow/internal/services"
	"github.com/cervantesaxel/musicflow/internal/shared"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler groups endpoints that register themselves on a router.
type Handler interface {
	Mount(r chi.Router)
}

// Options configures a [Server]. Catalog and Tokens may be nil, which disables the endpoints that need them.
type Options struct {
	Store   *library.Store
	Catalog services.Catalog
	Tokens  services.TokenProvider
	Logger  *log.Logger
	Now     func() time.Time
}

// Server serves the token proxy and library API.
type Server struct {
	router chi.Router
	logger *log.Logger
}

// New builds the router for opts.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Server{
		router: NewRouter(opts.Logger,
			&TokenHandler{tokens: opts.Tokens, now: opts.Now, logger: opts.Logger},
			&LibraryHandler{store: opts.Store, catalog: opts.Catalog, logger: opts.Logger},
		),
		logger: opts.Logger,
	}
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down gracefully.
//
// ready, when non-nil, receives the bound address once the listener is open.
func (s *Server) ListenAndServe(ctx context.Context, addr string, ready chan<- string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	s.logger.Info("server listening", "addr", ln.Addr().String())
	if ready != nil {
		ready <- ln.Addr().String()
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		return nil
	}
}
