package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var environment string

	rootCmd := &cobra.Command{
		Use:   "benchctl",
		Short: "Operate the benchwatch pipeline from the command line",
		Long: `benchctl runs the benchwatch pipeline stages without the HTTP server.

It reads the same environment (and .env file) as the server, so it talks
to the same Postgres, Mongo and Redis instances.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&environment, "env", "local", "Environment to run (local, prod, or custom)")

	rootCmd.AddCommand(
		buildCycleCmd(&environment),
		buildDueCmd(&environment),
		buildRunCmd(&environment),
		buildIngestCmd(&environment),
		buildResultsCmd(&environment),
		buildExportCmd(&environment),
	)
	return rootCmd
}
