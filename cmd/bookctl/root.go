package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jrsteele09/go-bookstore-client/gate"
	"github.com/jrsteele09/go-bookstore-client/internal/app"
	"github.com/jrsteele09/go-bookstore-client/internal/config"
	apperrors "github.com/jrsteele09/go-bookstore-client/internal/errors"
	"github.com/jrsteele09/go-bookstore-client/internal/logging"
)

// skipAppAnnotation marks commands that run without loading the session.
const skipAppAnnotation = "bookctl/skip-app"

type cli struct {
	configPath string
	logLevel   string
	app        *app.App
	appOpts    []app.Option
}

func newCLI(opts ...app.Option) *cli {
	return &cli{appOpts: opts}
}

// command builds the command tree. PersistentPostRunE is skipped when a
// command fails, so callers must also call close.
func (c *cli) command() *cobra.Command {
	root := &cobra.Command{
		Use:           config.AppName,
		Short:         "Command line client for the book store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipAppAnnotation] == "true" {
				return nil
			}
			return c.open(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.close()
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $HOME/.bookctl/config.yaml)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		c.newAuthCmd(),
		c.newBooksCmd(),
		c.newSessionCmd(),
		newVersionCmd(),
	)
	return root
}

func (c *cli) open(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	level := cfg.GetLogLevel()
	if c.logLevel != "" {
		level = c.logLevel
	}
	logger := logging.New(level, cfg.GetLogPretty())

	a, err := app.New(cmd.Context(), cfg, logger, c.appOpts...)
	if err != nil {
		return err
	}
	c.app = a
	return nil
}

func (c *cli) close() error {
	if c.app == nil {
		return nil
	}
	err := c.app.Close()
	c.app = nil
	return err
}

// require evaluates a gate policy for the current session.
func (c *cli) require(policy gate.Policy) error {
	d := gate.Check(c.app.Store, policy)
	if d.Allowed {
		return nil
	}
	if d.RedirectTarget == gate.EntryRoute {
		return fmt.Errorf("%w: run `%s auth login` first", apperrors.ErrUnauthenticated, config.AppName)
	}
	return fmt.Errorf("already logged in as %s; run `%s auth logout` to switch accounts",
		c.app.Store.Session().Email, config.AppName)
}
