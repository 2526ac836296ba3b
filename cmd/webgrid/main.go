package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var daemonURL string

var rootCmd = &cobra.Command{
	Use:   "webgrid",
	Short: "Administer a running webgridd session queue",
	Long: `webgrid is the admin CLI for the webgridd session queue daemon.

It talks to the daemon's HTTP API to inspect queue state, review request
outcomes, and drain the queue.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&daemonURL, "url", "u", "http://localhost:4444", "Base URL of the webgridd daemon")

	rootCmd.AddCommand(createStatusCommand())
	rootCmd.AddCommand(createContentsCommand())
	rootCmd.AddCommand(createClearCommand())
	rootCmd.AddCommand(createStatsCommand())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
