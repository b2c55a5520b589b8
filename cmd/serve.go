package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/cervantesaxel/musicflow/internal/server"
	"github.com/cervantesaxel/musicflow/internal/shared"
)

// Serve runs the HTTP API until the context is canceled by SIGINT or SIGTERM.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	store, err := r.library(ctx)
	if err != nil {
		return err
	}

	catalog, err := r.catalogService()
	if err != nil {
		r.logger.Warn("catalog disabled", "error", err)
	}

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}

	srv := server.New(server.Options{
		Store:   store,
		Catalog: catalog,
		Tokens:  r.tokenProvider(),
		Logger:  shared.WithLogger(r.logger, "component", "server"),
		Now:     r.now,
	})

	ready := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(ctx, addr, ready)
	}()

	select {
	case bound := <-ready:
		r.writePlain("✓ Listening on http://%s\n", bound)
		if cmd.Bool("open") {
			if err := shared.OpenBrowser(ctx, fmt.Sprintf("http://%s/health", bound)); err != nil {
				r.logger.Warn("failed to open browser", "error", err)
			}
		}
	case err := <-errCh:
		return err
	}

	return <-errCh
}
