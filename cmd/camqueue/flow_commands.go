package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"camqueue/internal/ipc"
	"camqueue/internal/queue"
)

func newStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start (or resume) queue dispatch",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.QueueStart(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Queue started")
				return nil
			})
		},
	}
}

func newPauseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause dispatch; the job in flight keeps running",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.QueuePause(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Queue paused")
				return nil
			})
		},
	}
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop dispatch; the job in flight is abandoned, not cancelled",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.QueueStop(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Queue stopped")
				return nil
			})
		},
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Daemon:   running (pid %d)\n", status.PID)
				fmt.Fprintf(out, "Queue:    running=%s paused=%s\n",
					yesNo(status.QueueRunning), yesNo(status.QueuePaused))
				if status.CurrentJob != nil {
					fmt.Fprintf(out, "Current:  %s (%s)\n",
						status.CurrentJob.Name, shortID(status.CurrentJob.ID))
				} else {
					fmt.Fprintln(out, "Current:  none")
				}
				fmt.Fprintf(out, "Document: %s\n", status.QueueFilePath)
				fmt.Fprintf(out, "Archive:  %s\n", yesNo(status.ArchiveEnabled))

				rows := buildStatsRows(status.QueueStats)
				if len(rows) == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Status", "Count"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}

// buildStatsRows orders status counts the way jobs move through the queue,
// with any unknown statuses appended alphabetically.
func buildStatsRows(stats map[string]int) [][]string {
	var rows [][]string
	seen := make(map[string]bool, len(stats))
	for _, status := range queue.StatusNames() {
		if count, ok := stats[status]; ok && count > 0 {
			rows = append(rows, []string{status, fmt.Sprintf("%d", count)})
			seen[status] = true
		}
	}
	var rest []string
	for status, count := range stats {
		if !seen[status] && count > 0 {
			rest = append(rest, status)
		}
	}
	sort.Strings(rest)
	for _, status := range rest {
		rows = append(rows, []string{status, fmt.Sprintf("%d", stats[status])})
	}
	return rows
}
