package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/text/language"

	"github.com/cervantesaxel/musicflow/internal/library"
	"github.com/cervantesaxel/musicflow/internal/services"
	"github.com/cervantesaxel/musicflow/internal/shared"
	"github.com/cervantesaxel/musicflow/internal/storage"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The library store and catalog are built lazily on first use so that commands like "setup config" work
// without a reachable backend.
type Runner struct {
	config     *shared.Config
	configPath string
	loadConfig bool
	store      *library.Store
	backend    storage.Storage
	tokens     services.TokenProvider
	catalog    services.Catalog
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	now        func() time.Time
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Store      *library.Store
	Tokens     services.TokenProvider
	Catalog    services.Catalog
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Now        func() time.Time
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	loadConfig := opts.Config == nil
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Config.Catalog.Timeout()}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		loadConfig: loadConfig,
		store:      opts.Store,
		tokens:     opts.Tokens,
		catalog:    opts.Catalog,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		now:        opts.Now,
	}
}

// SetLogger replaces the runner's logger.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// Configure runs before every command: it applies global flags and, unless a config was injected, loads
// .env, the TOML file and MUSICFLOW_* overrides.
func (r *Runner) Configure(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	if r.loadConfig {
		if err := shared.LoadEnvFile(".env"); err != nil {
			r.logger.Warn("ignoring env file", "error", err)
		}

		r.configPath = cmd.String("config")
		if _, err := os.Stat(r.configPath); err == nil {
			config, err := shared.LoadConfig(r.configPath)
			if err != nil {
				return ctx, err
			}
			r.config = config
		} else if cmd.IsSet("config") {
			return ctx, fmt.Errorf("%w: %s", shared.ErrMissingConfig, r.configPath)
		} else {
			r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		}

		if err := r.config.ApplyEnv(os.Getenv); err != nil {
			return ctx, err
		}
		r.loadConfig = false
	}

	if driver := cmd.String("storage"); driver != "" {
		r.config.Storage.Driver = driver
	}

	return ctx, r.config.Validate()
}

// Close releases the storage backend opened by [Runner.library].
func (r *Runner) Close(ctx context.Context, cmd *cli.Command) error {
	if r.backend == nil {
		return nil
	}
	err := r.backend.Close()
	r.backend = nil
	return err
}

// library returns the library store, opening the configured backend on first use.
func (r *Runner) library(ctx context.Context) (*library.Store, error) {
	if r.store != nil {
		return r.store, nil
	}

	backend, err := storage.Open(ctx, r.config)
	if err != nil {
		return nil, err
	}

	locale, err := language.Parse(r.config.Library.Locale)
	if err != nil {
		r.logger.Warn("invalid locale, using default", "locale", r.config.Library.Locale, "error", err)
		locale = language.Spanish
	}

	r.backend = backend
	r.store = library.New(backend,
		library.WithKey(r.config.Storage.Key),
		library.WithLogger(shared.WithLogger(r.logger, "component", "library")),
		library.WithLocale(locale),
		library.WithDefaultColor(r.config.Library.DefaultColor),
	)
	r.logger.Debug("library opened", "driver", r.config.Storage.Driver, "key", r.config.Storage.Key)
	return r.store, nil
}

// tokenProvider returns the token provider, or nil when neither credentials nor a proxy are configured.
func (r *Runner) tokenProvider() services.TokenProvider {
	if r.tokens == nil {
		r.tokens = services.NewTokenProvider(r.config.Credentials.Spotify, r.config.Credentials.Spotify.ProxyURL, r.httpClient)
	}
	return r.tokens
}

// catalogService returns the catalog or [shared.ErrServiceUnavailable] when no token source is configured.
func (r *Runner) catalogService() (services.Catalog, error) {
	if r.catalog == nil {
		r.catalog = services.NewCatalog(r.tokenProvider(), r.config.Catalog, r.httpClient,
			shared.WithLogger(r.logger, "component", "catalog"))
	}
	if r.catalog == nil {
		return nil, fmt.Errorf("%w: set credentials.spotify.client_id and client_secret or a token proxy", shared.ErrServiceUnavailable)
	}
	return r.catalog, nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, playlistCommand, statsCommand, reconcileCommand, catalogCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
