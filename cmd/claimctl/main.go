// Package main implements claimctl, a command-line client for the claimd
// HTTP API.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL of the claimd HTTP server
	serverURL string
	// rawJSON prints server responses without formatting
	rawJSON bool
	// version information
	version = "dev"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "claimctl",
		Short: "CLI for claimd claim evaluation",
		Long: `claimctl evaluates insurance claims against policy clauses using a claimd
server, or locally when the claim carries its own clauses.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "claimd server URL")
	root.PersistentFlags().BoolVar(&rawJSON, "json", false, "print raw JSON responses")

	root.AddCommand(
		newEvaluateCmd(),
		newAnalyzeCmd(),
		newDiseasesCmd(),
		newIndexCmd(),
		newClausesCmd(),
		newScoreCmd(),
		newHealthCmd(),
	)
	return root
}
