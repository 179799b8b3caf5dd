package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/esoteric-daily/internal/app"
	"github.com/jsamuelsen/esoteric-daily/internal/bootstrap"
	"github.com/jsamuelsen/esoteric-daily/internal/domain"
	"github.com/jsamuelsen/esoteric-daily/internal/platform/config"
	"github.com/jsamuelsen/esoteric-daily/internal/platform/logging"
)

// needsWorkflow marks commands that open the cache and providers.
const needsWorkflow = "workflow"

// workflow is the part of the daily service the commands drive.
type workflow interface {
	CurrentDate() string
	Today(ctx context.Context) (*app.Snapshot, error)
	Explain(ctx context.Context, date string) (*app.Snapshot, error)
	Illustrate(ctx context.Context, date string) (*app.Snapshot, error)
	History(ctx context.Context, limit int) ([]*domain.DailyRecord, error)
	Prune(ctx context.Context, keepDays int) (int, error)
}

// session is an opened workflow with the configured defaults.
type session struct {
	workflow      workflow
	historyLimit  int
	retentionDays int

	// closeTimeout bounds the wait for background illustration on exit.
	closeTimeout time.Duration
	close        func(context.Context) error
}

type globalOptions struct {
	profile string
	verbose bool
	plain   bool
}

// opener builds a session; tests replace it with a fake workflow.
type opener func(ctx context.Context, opts globalOptions, logOut io.Writer) (*session, error)

type cli struct {
	stdout io.Writer
	stderr io.Writer
	open   opener

	opts     globalOptions
	session  *session
	renderer *renderer
}

func newRootCmd(stdout, stderr io.Writer, open opener) *cobra.Command {
	c := &cli{stdout: stdout, stderr: stderr, open: open}

	root := &cobra.Command{
		Use:   "esoteric",
		Short: "Daily esoteric wisdom in your terminal",
		Long: `esoteric shows one piece of esoteric wisdom per calendar day.

The first call of the day asks the provider for a quote and stores it, so
every later call that day, here or through the HTTP service, sees the same
record. Explanations and illustrations are fetched on request and stored
alongside it.`,
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		Annotations:       map[string]string{needsWorkflow: "true"},
		PersistentPreRunE: c.setup,
		RunE:              c.withSession(c.runToday),
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&c.opts.profile, "profile", "p", "", "config profile to load (configs/<profile>.yaml); defaults to $APP_ENVIRONMENT or local")
	flags.BoolVarP(&c.opts.verbose, "verbose", "v", false, "log workflow activity to stderr")
	flags.BoolVar(&c.opts.plain, "plain", false, "print raw Markdown instead of styled output")

	root.SetOut(stdout)
	root.SetErr(stderr)

	root.AddCommand(
		c.todayCmd(),
		c.explainCmd(),
		c.illustrateCmd(),
		c.historyCmd(),
		c.pruneCmd(),
	)

	return root
}

// setup opens the workflow for commands that need it.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[needsWorkflow] != "true" {
		return nil
	}

	r, err := newRenderer(c.opts.plain)
	if err != nil {
		return err
	}

	s, err := c.open(cmd.Context(), c.opts, c.stderr)
	if err != nil {
		return err
	}

	c.renderer = r
	c.session = s

	return nil
}

// withSession runs fn and then closes the session, so stored records and
// background illustrations are flushed even when fn fails.
func (c *cli) withSession(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		runErr := fn(cmd, args)

		if c.session != nil && c.session.close != nil {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), c.session.closeTimeout)
			defer cancel()

			if err := c.session.close(ctx); err != nil {
				fmt.Fprintf(c.stderr, "warning: %v\n", err)
			}
		}

		return runErr
	}
}

// openWorkflow loads configuration and builds the shared daily workflow.
func openWorkflow(ctx context.Context, opts globalOptions, logOut io.Writer) (*session, error) {
	profile := opts.profile
	if profile == "" {
		profile = os.Getenv("APP_ENVIRONMENT")
	}

	if profile == "" {
		profile = "local"
	}

	cfg, err := config.Load(profile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	level := "warn"
	if opts.verbose {
		level = "debug"
	}

	logger := logging.NewWithWriter(&logging.Config{
		Level:   level,
		Format:  "pretty",
		Service: cfg.App.Name,
		Version: Version,
	}, logOut)
	logging.SetDefault(logger)

	daily, err := bootstrap.Build(ctx, cfg, bootstrap.Options{Logger: logger})
	if err != nil {
		return nil, err
	}

	logger.Debug("session opened", slog.String("profile", profile))

	return &session{
		workflow:      daily.Service,
		historyLimit:  cfg.Tasks.HistoryLimit,
		retentionDays: cfg.Cache.RetentionDays,
		closeTimeout:  cfg.Tasks.Timeout,
		close:         daily.Close,
	}, nil
}
