package main

import (
	"fmt"

	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"

	"github.com/jrsteele09/go-bookstore-client/internal/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "version",
		Short:       "Print the version",
		Annotations: map[string]string{skipAppAnnotation: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			if banner, _ := cmd.Flags().GetBool("banner"); banner {
				displayAppname(config.AppName)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", config.AppName, version)
		},
	}
	cmd.Flags().Bool("banner", false, "print the ASCII banner")
	return cmd
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
