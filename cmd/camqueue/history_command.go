package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"camqueue/internal/ipc"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var archived bool
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show retired jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.HistoryList(archived, limit)
				if err != nil {
					return err
				}
				if len(resp.Jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "History is empty")
					return nil
				}
				out := renderTable(
					[]string{"ID", "Name", "Status", "Duration", "Error"},
					buildHistoryRows(resp.Jobs),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&archived, "archived", "a", false, "Read from the full archive instead of recent history")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "Maximum entries to show (0 for all)")
	return cmd
}
