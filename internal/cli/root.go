// Package cli defines the formwizard command-line interface.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formwizard/internal/config"
	"github.com/goliatone/go-formwizard/internal/logging"
	"github.com/goliatone/go-formwizard/pkg/wizard/tui"
)

const defaultEnvFile = ".env"

// app carries state shared by every command.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	out    io.Writer
	errOut io.Writer

	envFile   string
	storeKind string
	dsn       string
	serverURL string
	logLevel  string

	// driver replaces the interactive survey driver when set.
	driver tui.PromptDriver
}

// Execute builds the root command, runs it with args and returns any error.
func Execute(ctx context.Context, args []string) error {
	a := &app{out: os.Stdout, errOut: os.Stderr}
	cmd := newRootCommand(a)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func newRootCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "formwizard",
		Short:         "Onboarding layout editor and wizard runtime",
		Long:          "formwizard serves an editable multi-step onboarding layout, lets admins reorganise it and walks users through it.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.configure(cmd)
		},
	}
	cmd.SetOut(a.out)
	cmd.SetErr(a.errOut)

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.envFile, "env-file", defaultEnvFile, "Optional .env file with FORMWIZARD_* variables")
	flags.StringVar(&a.storeKind, "store", "", "Storage backend override (memory, sqlite, postgres)")
	flags.StringVar(&a.dsn, "dsn", "", "SQLite path or Postgres DSN override")
	flags.StringVar(&a.serverURL, "server", "", "Talk to a running server instead of the store")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newServeCommand(a),
		newSeedCommand(a),
		newLayoutCommand(a),
		newUsersCommand(a),
		newWizardCommand(a),
	)
	return cmd
}

func (a *app) configure(cmd *cobra.Command) error {
	cfg, err := config.Load(a.envFile)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("store") {
		cfg.Store = a.storeKind
	}
	if flags.Changed("dsn") {
		cfg.DSN = a.dsn
	}
	if flags.Changed("server") {
		cfg.ServerURL = a.serverURL
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.NewLogger(a.errOut, logging.ParseLevel(cfg.LogLevel))
	a.logger.Debug("configuration loaded", "store", cfg.Store, "server", cfg.ServerURL)
	return nil
}
