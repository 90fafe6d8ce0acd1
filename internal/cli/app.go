// Package cli implements the oncoannot command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Keksclan/oncoannot/config"
	"github.com/Keksclan/oncoannot/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version information set at build time.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// App represents the CLI application.
type App struct {
	root       *cobra.Command
	stdout     io.Writer
	stderr     io.Writer
	configPath string
}

// New creates the CLI application.
func New() *App {
	a := &App{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	a.root = &cobra.Command{
		Use:   "oncoannot",
		Short: "Somatic variant annotation service",
		Long: `oncoannot validates a tumor type, annotates each somatic variant against
local curated evidence, CIViC, ClinVar, OncoKB and Ensembl VEP, and produces a
report with a summary, findings and a processing timeline.

Configuration comes from an optional YAML file (-c) and ONCOANNOT_* environment
variables; the historic names (CIVIC_URL, PGX_CACHE_DB, ...) are honoured too.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	a.root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to configuration file")

	a.root.AddCommand(
		a.newVersionCmd(),
		a.newServeCmd(),
		a.newAnalyzeCmd(),
		a.newHealthCmd(),
		a.newTumorsCmd(),
		a.newConfigCmd(),
	)
	return a
}

// WithOutput sets custom output writers.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

// Execute runs the CLI until it finishes or a termination signal arrives.
func (a *App) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return a.root.ExecuteContext(ctx)
}

// ExecuteWithArgs runs the CLI with specific arguments.
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "oncoannot version %s\n", Version)
			fmt.Fprintf(a.stdout, "  Git commit: %s\n", GitCommit)
		},
	}
}

// loadConfig reads and validates the configuration.
func (a *App) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(a.stderr, e)
		}
		return nil, fmt.Errorf("invalid configuration (%d errors)", len(errs))
	}
	return cfg, nil
}

// setup loads configuration and builds the logger. Call the returned
// func when done.
func (a *App) setup() (*config.Config, *zap.Logger, func(), error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	logger, closeLog, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, func() { _ = closeLog() }, nil
}

func (a *App) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
