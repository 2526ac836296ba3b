package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/webgridhq/webgrid/pkg/daemon"
)

const commandTimeout = 10 * time.Second

func newClient() (*daemon.QueueClient, context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	return daemon.NewQueueClient(daemonURL), ctx, cancel
}

// createStatusCommand creates the status subcommand
func createStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon health and queue depth",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, ctx, cancel := newClient()
			defer cancel()

			health, err := client.Health(ctx)
			if err != nil {
				return fmt.Errorf("daemon unreachable at %s: %w", daemonURL, err)
			}

			fmt.Printf("Status:      %s\n", health.Status)
			fmt.Printf("Version:     %s\n", health.Version)
			fmt.Printf("Queue depth: %d\n", health.QueueDepth)
			return nil
		},
	}
}

// createContentsCommand creates the contents subcommand
func createContentsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "contents",
		Short: "List the requests currently waiting in the queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, ctx, cancel := newClient()
			defer cancel()

			contents, err := client.Contents(ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch queue contents: %w", err)
			}

			if len(contents) == 0 {
				fmt.Println("Queue is empty")
				return nil
			}

			fmt.Printf("%d request(s) queued:\n", len(contents))
			for i, entry := range contents {
				fmt.Printf("%3d. %s", i+1, entry.ID)
				for _, caps := range entry.DesiredCapabilities {
					if name := caps.BrowserName(); name != "" {
						fmt.Printf("  %s", name)
						if version := caps.BrowserVersion(); version != "" {
							fmt.Printf(" %s", version)
						}
						break
					}
				}
				fmt.Println()
			}
			return nil
		},
	}
}

// createClearCommand creates the clear subcommand
func createClearCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Drain the queue, failing every waiting request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("clearing fails every waiting client; re-run with --force to confirm")
			}

			client, ctx, cancel := newClient()
			defer cancel()

			n, err := client.Clear(ctx)
			if err != nil {
				return fmt.Errorf("failed to clear queue: %w", err)
			}

			fmt.Printf("Cleared %d request(s) from the queue\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Confirm draining the queue")
	return cmd
}

// createStatsCommand creates the stats subcommand
func createStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show queue and journal statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, ctx, cancel := newClient()
			defer cancel()

			stats, err := client.Stats(ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch stats: %w", err)
			}

			fmt.Printf("Queue depth:       %d\n", stats.QueueDepth)
			fmt.Printf("Uptime:            %s\n", (time.Duration(stats.UptimeSeconds) * time.Second).String())
			fmt.Printf("Journaled total:   %d\n", stats.Journal.TotalRecords)
			fmt.Printf("Persisted total:   %d\n", stats.PersistedCount)
			if stats.Journal.TotalRecords > 0 {
				fmt.Printf("Average wait:      %s\n", stats.Journal.AverageWait)
				fmt.Println("By outcome:")
				for outcome, count := range stats.Journal.ByOutcome {
					fmt.Printf("  %-12s %d\n", outcome, count)
				}
			}
			return nil
		},
	}
}
