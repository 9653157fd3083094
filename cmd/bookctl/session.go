package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jrsteele09/go-bookstore-client/server"
	"github.com/jrsteele09/go-bookstore-client/sessions"
)

func (c *cli) newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect the locally stored session",
	}
	cmd.AddCommand(
		c.newSessionShowCmd(),
		c.newSessionPurgeCmd(),
		c.newSessionWatchCmd(),
	)
	return cmd
}

func (c *cli) newSessionShowCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the session without its tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeStatus(cmd.OutOrStdout(), output, server.NewSessionStatus(c.app.Store.Current()))
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "output format (yaml, json)")
	return cmd
}

func writeStatus(w io.Writer, format string, status server.SessionStatus) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(status)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	default:
		return fmt.Errorf("unknown format: %s (supported: yaml, json)", format)
	}
}

func (c *cli) newSessionPurgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Log out and delete the stored session record",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Purge(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Stored session deleted")
			return nil
		},
	}
}

func (c *cli) newSessionWatchCmd() *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow session changes made by other instances",
		Long: `Follow session changes made by other instances.

Changes arrive over the sync channel, so other instances must share the same
BOOKSTORE_SYNC_REDIS_URL and BOOKSTORE_NAMESPACE. With --metrics-addr, a local
status server exposes /healthz, /session and /metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			unsubscribe := c.app.Store.Subscribe(sessions.ObserverFunc(func(m sessions.Mutation) {
				if m.Source != sessions.SourceRemote {
					return
				}
				fmt.Fprintf(out, "%s %s authenticated=%t email=%s\n",
					nowFunc().Format(time.RFC3339), m.Type, m.State.IsAuthenticated, m.State.LoginData.Email)
			}))
			defer unsubscribe()

			if metricsAddr != "" {
				srv := &http.Server{
					Addr:              metricsAddr,
					Handler:           server.New(c.app.Config.GetEnv(), c.app.Store, c.app.Registry, c.app.Logger),
					ReadHeaderTimeout: 5 * time.Second,
				}
				go listenAndServe(c, srv)
				defer shutdown(c, srv)
			}

			fmt.Fprintln(out, "Watching session changes, Ctrl+C to stop")
			<-cmd.Context().Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve status and metrics on this address, e.g. 127.0.0.1:9090")
	return cmd
}

func listenAndServe(c *cli, srv *http.Server) {
	c.app.Logger.Info().Str("addr", srv.Addr).Msg("Status server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		c.app.Logger.Err(err).Msg("Status server stopped")
	}
}

func shutdown(c *cli, srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		c.app.Logger.Err(err).Msg("Status server shutdown")
	}
}
