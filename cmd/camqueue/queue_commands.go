package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"camqueue/internal/config"
	"camqueue/internal/ipc"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var nameFlag string

	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Add a program file to the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueAdd(path, nameFlag)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s at position %d (id %s)\n",
					resp.Job.Name, resp.Job.Position+1, shortID(resp.Job.ID))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&nameFlag, "name", "n", "", "Display name (defaults to the file's base name)")
	return cmd
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued jobs in dispatch order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueList(listStatuses)
				if err != nil {
					return err
				}
				if len(resp.Jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				out := renderTable(
					[]string{"#", "ID", "Name", "Status", "Created"},
					buildJobRows(resp.Jobs),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by job status (repeatable)")
	return cmd
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <job>",
		Aliases: []string{"rm"},
		Short:   "Remove a job from the queue",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				job, err := resolveJob(client, args[0])
				if err != nil {
					return err
				}
				resp, err := client.QueueRemove(job.ID)
				if err != nil {
					return err
				}
				if !resp.Removed {
					return fmt.Errorf("job %s no longer exists", shortID(job.ID))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", job.Name)
				return nil
			})
		},
	}
}

func newMoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "move <job> <position>",
		Short: "Move a job to a new queue position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("target position must be a number, got %q", args[1])
			}
			return ctx.withClient(func(client *ipc.Client) error {
				job, err := resolveJob(client, args[0])
				if err != nil {
					return err
				}
				resp, err := client.QueueMove(job.Position, target-1)
				if err != nil {
					return err
				}
				if !resp.Moved {
					return fmt.Errorf("cannot move %s to position %d", job.Name, target)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Moved %s to position %d\n", job.Name, target)
				return nil
			})
		},
	}
}

func newHoldCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "hold <job>",
		Short: "Hold a pending job in place",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				job, err := resolveJob(client, args[0])
				if err != nil {
					return err
				}
				resp, err := client.QueueHold(job.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", job.Name, resp.Status)
				return nil
			})
		},
	}
}

func newResumeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <job>",
		Short: "Resume a held job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				job, err := resolveJob(client, args[0])
				if err != nil {
					return err
				}
				resp, err := client.QueueResume(job.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", job.Name, resp.Status)
				return nil
			})
		},
	}
}

func newSkipCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "skip [job]",
		Short: "Skip a job; with no argument, skips the job in flight",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if len(args) == 0 {
					resp, err := client.SkipCurrent()
					if err != nil {
						return err
					}
					if !resp.Skipped {
						fmt.Fprintln(cmd.OutOrStdout(), "No job in flight")
						return nil
					}
					fmt.Fprintln(cmd.OutOrStdout(), "Skipped the job in flight")
					return nil
				}

				job, err := resolveJob(client, args[0])
				if err != nil {
					return err
				}
				if _, err := client.QueueSkip(job.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Skipped %s\n", job.Name)
				return nil
			})
		},
	}
}

func newClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Move completed, failed, and skipped jobs into history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueClearCompleted()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d finished jobs\n", resp.Cleared)
				return nil
			})
		},
	}
}
