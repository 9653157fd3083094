package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jrsteele09/go-bookstore-client/api"
	"github.com/jrsteele09/go-bookstore-client/gate"
)

var nowFunc = time.Now

const (
	loadBooksFailedMsg  = "Failed to load books. Please try again."
	saveBookFailedMsg   = "Failed to save book. Please try again."
	deleteBookFailedMsg = "Failed to delete book. Please try again."
	loginAgainHint      = "Run 'bookctl auth login' to sign in again."
)

func (c *cli) newBooksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "books",
		Short: "Browse and edit the catalog",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// cobra runs only the closest persistent pre-run
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			return c.require(gate.Protected)
		},
	}
	cmd.AddCommand(
		c.newBooksListCmd(),
		c.newBooksCreateCmd(),
		c.newBooksUpdateCmd(),
		c.newBooksDeleteCmd(),
	)
	return cmd
}

func (c *cli) newBooksListCmd() *cobra.Command {
	var q api.Query
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List books a page at a time",
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := c.app.BookAPI.GetBooks(cmd.Context(), q)
			if err != nil {
				c.app.Logger.Err(err).Msg("Failed to load books")
				return bookError(err, loadBooksFailedMsg)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tPRICE\tYEAR")
			for _, b := range page.Data {
				fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%d\n", b.ID, b.Title, b.Author, float64(b.Price), int(b.PublishedYear))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			p := page.Pagination
			fmt.Fprintf(cmd.OutOrStdout(), "Page %d of %d (%d books)\n", p.Page, p.TotalPages, p.Total)
			return nil
		},
	}
	cmd.Flags().IntVar(&q.Page, "page", api.DefaultPage, "page number")
	cmd.Flags().IntVar(&q.Limit, "limit", api.DefaultLimit, "books per page")
	cmd.Flags().StringVar(&q.Author, "author", "", "filter by author")
	return cmd
}

func bookFlags(cmd *cobra.Command, b *api.NewBook) {
	cmd.Flags().StringVar(&b.Title, "title", "", "book title")
	cmd.Flags().StringVar(&b.Author, "author", "", "book author")
	cmd.Flags().Float64Var(&b.Price, "price", 0, "price")
	cmd.Flags().IntVar(&b.PublishedYear, "year", 0, "year of publication")
}

func (c *cli) newBooksCreateCmd() *cobra.Command {
	var b api.NewBook
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add a book",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := b.Validate(nowFunc()); err != nil {
				return err
			}
			created, err := c.app.BookAPI.CreateBook(cmd.Context(), b)
			if err != nil {
				c.app.Logger.Err(err).Msg("Failed to create book")
				return bookError(err, saveBookFailedMsg)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created book %d\n", created.ID)
			return nil
		},
	}
	bookFlags(cmd, &b)
	return cmd
}

func (c *cli) newBooksUpdateCmd() *cobra.Command {
	var b api.NewBook
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Replace a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := b.Validate(nowFunc()); err != nil {
				return err
			}
			if _, err := c.app.BookAPI.UpdateBook(cmd.Context(), id, b); err != nil {
				c.app.Logger.Err(err).Int("id", id).Msg("Failed to update book")
				return bookError(err, saveBookFailedMsg)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated book %d\n", id)
			return nil
		},
	}
	bookFlags(cmd, &b)
	return cmd
}

func (c *cli) newBooksDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Remove a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := c.app.BookAPI.DeleteBook(cmd.Context(), id); err != nil {
				c.app.Logger.Err(err).Int("id", id).Msg("Failed to delete book")
				return bookError(err, deleteBookFailedMsg)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted book %d\n", id)
			return nil
		},
	}
}

// bookError turns a failed catalog call into the message shown to the user.
// A rejected token gets a hint to sign in again.
func bookError(err error, fallback string) error {
	msg := api.UserMessage(err, fallback)
	if api.IsUnauthorized(err) {
		msg += "\n" + loginAgainHint
	}
	return fmt.Errorf("%s", msg)
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid book id %q", s)
	}
	return id, nil
}
