// Package commands implements confidoctl, the operator CLI.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ashureev/confido/internal/access"
	"github.com/ashureev/confido/internal/agent"
	"github.com/ashureev/confido/internal/analytics"
	"github.com/ashureev/confido/internal/config"
	"github.com/ashureev/confido/internal/identity"
	"github.com/ashureev/confido/internal/session"
	"github.com/ashureev/confido/internal/store"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// app holds the services a command runs against.
type app struct {
	cfg       *config.Config
	store     *store.SQLStore
	agents    *agent.Service
	lifecycle *session.Lifecycle
	reader    *analytics.Reader
	progress  *analytics.Recorder
	verifier  *identity.Verifier
}

// openApp loads configuration and opens the store. Callers must close it.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, store.Options{
		Driver:         cfg.DB.Driver,
		Path:           cfg.DB.Path,
		URL:            cfg.DB.URL,
		MaxRetries:     cfg.DB.MaxRetries,
		RetryBaseDelay: cfg.DB.RetryBaseDelay,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	recorder := analytics.NewRecorder(st)
	return &app{
		cfg:       cfg,
		store:     st,
		agents:    agent.NewService(st),
		lifecycle: session.NewLifecycle(st, session.WithCompletionHook(recorder.OnSessionCompleted)),
		reader:    analytics.NewReader(st, cfg.DashboardSessionLimit),
		progress:  recorder,
		verifier:  identity.NewVerifier(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.Audience),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		slog.Warn("failed to close store", "error", err)
	}
}

// withApp wraps a command so it runs with an open app.
func withApp(fn func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, args, a)
	}
}

// actorFlag reads the required --user flag.
func actorFlag(cmd *cobra.Command) (access.Actor, error) {
	user, _ := cmd.Flags().GetString("user")
	if user == "" {
		return access.Anonymous, fmt.Errorf("--user is required")
	}
	return access.Actor{UserID: user}, nil
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "confidoctl",
		Short: "Operate a Confido coaching backend",
		Long: `confidoctl seeds personas, issues development tokens, inspects a user's
practice history and runs practice sessions from the terminal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelWarn
			if v, _ := cmd.Flags().GetBool("verbose"); v {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().BoolP("verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(
		newSeedCmd(),
		newTokenCmd(),
		newStatsCmd(),
		newHistoryCmd(),
		newReconcileCmd(),
		newPracticeCmd(),
		newVersionCmd(),
	)
	return root
}

// SetVersion sets the version information.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "confidoctl %s (commit %s, built %s)\n", version, commit, date)
}
