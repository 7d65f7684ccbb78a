package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/foilscan/internal/crawler"
)

// Exit codes.
const (
	exitOK          = 0
	exitFailure     = 1
	exitAuth        = 2
	exitNavigation  = 3
	exitInterrupted = 130
)

// NewRootCmd creates the root command for foilscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "foilscan",
		Short: "Capture hydrofoil rider feedback from social feeds",
		Long: `foilscan captures rider posts from a logged-in social feed and extracts
the foil models, rider weights, use cases and sentiment they mention.

Each scan writes a JSON document with the posts and aggregate statistics,
and records the run in a local history database. The catalog command
fetches the manufacturer's product catalog and enriches it with
aspect ratios and wingspans.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewCatalogCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := NewRootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	return exitCode(err)
}

// exitCode maps an error to the process exit code.
// Interruption wins over every other failure in a batch, then
// authentication, then navigation.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	case errors.Is(err, crawler.ErrAuthenticationFailed):
		return exitAuth
	case errors.Is(err, crawler.ErrNavigationFailed), errors.Is(err, crawler.ErrDiscoveryTimeout):
		return exitNavigation
	default:
		return exitFailure
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}
