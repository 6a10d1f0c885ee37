package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"camqueue/internal/ipc"
)

// newCompleteCommand reports an execution outcome for the job in flight.
// Machine-side integrations call this when camqueued runs without a
// configured executor command.
func newCompleteCommand(ctx *commandContext) *cobra.Command {
	var failure bool
	var message string

	cmd := &cobra.Command{
		Use:   "complete",
		Short: "Report the outcome of the job in flight",
		RunE: func(cmd *cobra.Command, args []string) error {
			if failure && message == "" {
				return errors.New("--failure requires a message (-m)")
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ExecutionFinished(!failure, message)
				if err != nil {
					return err
				}
				if !resp.Accepted {
					return errors.New("daemon did not accept the outcome report")
				}
				if failure {
					fmt.Fprintln(cmd.OutOrStdout(), "Reported failure for the job in flight")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Reported completion for the job in flight")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&failure, "failure", false, "Report a failed run instead of a successful one")
	cmd.Flags().StringVarP(&message, "message", "m", "", "Error message recorded with a failed run")
	return cmd
}
