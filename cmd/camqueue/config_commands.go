package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"camqueue/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			if overwrite {
				if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("remove existing config: %w", err)
				}
			}
			if err := config.WriteSample(target); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to point queue_file at your LinuxCNC config directory.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "queue_file:       %s\n", cfg.Paths.QueueFile)
			fmt.Fprintf(out, "log_dir:          %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "socket:           %s\n", cfg.SocketPath())
			fmt.Fprintf(out, "poll_interval:    %ds\n", cfg.Workflow.PollInterval)
			fmt.Fprintf(out, "watchdog_timeout: %ds\n", cfg.Workflow.WatchdogTimeout)
			if cfg.Executor.Command != "" {
				fmt.Fprintf(out, "executor:         %s %s\n", cfg.Executor.Command, strings.Join(cfg.Executor.Args, " "))
			} else {
				fmt.Fprintln(out, "executor:         (external completion reports)")
			}
			fmt.Fprintf(out, "archive:          %s\n", yesNo(cfg.History.ArchiveEnabled))
			if cfg.History.ArchiveEnabled {
				fmt.Fprintf(out, "archive_path:     %s\n", cfg.History.ArchivePath)
			}
			if cfg.Notifications.NtfyTopic != "" {
				fmt.Fprintf(out, "ntfy_topic:       %s\n", cfg.Notifications.NtfyTopic)
			}
			if cfg.Daemon.MetricsBind != "" {
				fmt.Fprintf(out, "metrics_bind:     %s\n", cfg.Daemon.MetricsBind)
			}
			return nil
		},
	}
}
