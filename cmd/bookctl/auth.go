package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jrsteele09/go-bookstore-client/auth"
	"github.com/jrsteele09/go-bookstore-client/gate"
	"github.com/jrsteele09/go-bookstore-client/server"
)

func (c *cli) newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Log in and out with an emailed one-time password",
	}
	cmd.AddCommand(
		c.newRequestOTPCmd(),
		c.newVerifyOTPCmd(),
		c.newLoginCmd(),
		c.newLogoutCmd(),
		c.newStatusCmd(),
	)
	return cmd
}

func (c *cli) newRequestOTPCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "request-otp",
		Short: "Email a one-time password",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.require(gate.Public); err != nil {
				return err
			}
			if err := c.app.Auth.SendOTP(cmd.Context(), email); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OTP sent to %s\n", email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (c *cli) newVerifyOTPCmd() *cobra.Command {
	var email, otp string
	cmd := &cobra.Command{
		Use:   "verify-otp",
		Short: "Exchange a one-time password for a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.require(gate.Public); err != nil {
				return err
			}
			session, err := c.app.Auth.VerifyOTP(cmd.Context(), email, otp)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", session.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&otp, "otp", "", "6-digit code from the email")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("otp")
	return cmd
}

func (c *cli) newLoginCmd() *cobra.Command {
	var email, otp string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Request and verify a one-time password",
		Long: `Request and verify a one-time password.

On a terminal, missing values are prompted for. Otherwise --email and --otp are required.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.require(gate.Public); err != nil {
				return err
			}
			interactive := term.IsTerminal(int(os.Stdin.Fd()))

			if email == "" {
				if !interactive {
					return fmt.Errorf("--email is required")
				}
				if err := promptEmail(&email); err != nil {
					return err
				}
			}

			if otp == "" {
				if !interactive {
					return fmt.Errorf("--otp is required")
				}
				if err := c.app.Auth.SendOTP(cmd.Context(), email); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "OTP sent to %s\n", email)
				if err := promptOTP(&otp); err != nil {
					return err
				}
			}

			session, err := c.app.Auth.VerifyOTP(cmd.Context(), email, otp)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", session.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&otp, "otp", "", "6-digit code, skips sending a new one")
	return cmd
}

func promptEmail(email *string) error {
	input := huh.NewInput().
		Title("Email").
		Placeholder("you@example.com").
		Validate(auth.ValidateEmail).
		Value(email)
	if err := huh.NewForm(huh.NewGroup(input)).Run(); err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}
	return nil
}

func promptOTP(otp *string) error {
	input := huh.NewInput().
		Title("One-time password").
		CharLimit(6).
		Validate(auth.ValidateOTP).
		Value(otp)
	if err := huh.NewForm(huh.NewGroup(input)).Run(); err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}
	return nil
}

func (c *cli) newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			c.app.Auth.Logout()
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func (c *cli) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a session is active",
		RunE: func(cmd *cobra.Command, args []string) error {
			status := server.NewSessionStatus(c.app.Store.Current())
			out := cmd.OutOrStdout()
			if !status.Authenticated {
				fmt.Fprintln(out, "Not logged in")
				return nil
			}
			fmt.Fprintf(out, "Logged in as %s\n", status.Email)
			if status.Exp != "" {
				expired := c.app.Store.Session().IsExpired(nowFunc())
				fmt.Fprintf(out, "Access token expires %s (expired: %t)\n", status.Exp, expired)
			}
			return nil
		},
	}
}
