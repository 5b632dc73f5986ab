package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/ledgerdesk/internal/catalog"
	"github.com/JonMunkholm/ledgerdesk/internal/core"
	"github.com/JonMunkholm/ledgerdesk/internal/logging"
	"github.com/JonMunkholm/ledgerdesk/internal/remote"
)

// Exit codes.
const (
	exitFailure      = 1 // the API rejected the request
	exitCommandError = 2 // bad flags, unknown collection, unreachable API
)

// exitError carries the process exit code of a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func usageError(format string, args ...any) error {
	return &exitError{code: exitCommandError, err: fmt.Errorf(format, args...)}
}

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitFailure
}

// rootOptions holds the global flags.
type rootOptions struct {
	API      string
	Token    string
	Catalog  string
	JSON     bool
	LogLevel string
	Timeout  time.Duration
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "consolectl",
		Short:         "Work with back-office collections from the terminal",
		Long:          "consolectl lists, exports and edits the collections declared in the console catalog.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.API, "api", envOr("API_BASE_URL", "http://127.0.0.1:8081"), "API base URL")
	flags.StringVar(&opts.Token, "token", os.Getenv("API_TOKEN"), "API bearer token")
	flags.StringVar(&opts.Catalog, "catalog", os.Getenv("CATALOG_PATH"), "catalog file (.toml or .yaml); empty uses the built-in catalog")
	flags.BoolVar(&opts.JSON, "json", false, "print JSON instead of tables")
	flags.StringVar(&opts.LogLevel, "log-level", "warn", "log level written to stderr (debug|info|warn|error)")
	flags.DurationVar(&opts.Timeout, "timeout", 15*time.Second, "timeout of one API request")

	cmd.AddCommand(newCatalogCommand(opts))
	cmd.AddCommand(newListCommand(opts))
	cmd.AddCommand(newExportCommand(opts))
	cmd.AddCommand(newMutateCommand(opts))

	return cmd
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// app is what a command runs against.
type app struct {
	registry *catalog.Registry
	service  *core.Service
}

// newApp loads the catalog and wires a service to the API. Audit entries go
// to the stderr log.
func newApp(cmd *cobra.Command, opts *rootOptions) (*app, error) {
	logger := logging.New(cmd.ErrOrStderr(), opts.LogLevel, "text")

	reg, err := catalog.Load(opts.Catalog)
	if err != nil {
		return nil, &exitError{code: exitCommandError, err: err}
	}
	client, err := remote.NewClient(opts.API,
		remote.WithAPIKey(opts.Token),
		remote.WithTimeout(opts.Timeout),
	)
	if err != nil {
		return nil, &exitError{code: exitCommandError, err: err}
	}

	svc := core.NewService(reg, client, core.NewLogAudit(logger, 0), core.ServiceConfig{
		FetchTimeout:   opts.Timeout,
		SearchDebounce: -1,
		Logger:         logger,
		BaseContext:    cmd.Context(),
	})
	return &app{registry: reg, service: svc}, nil
}

func (a *app) collection(name string) (catalog.Collection, error) {
	coll, ok := a.registry.Get(name)
	if !ok {
		return catalog.Collection{}, usageError("unknown collection %q (see consolectl catalog)", name)
	}
	return coll, nil
}
