package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateExecutor(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.PollInterval <= 0 {
		return errors.New("workflow.poll_interval must be a positive number of seconds")
	}
	if c.Workflow.WatchdogTimeout < 0 {
		return errors.New("workflow.watchdog_timeout must be zero (disabled) or positive")
	}
	return nil
}

func (c *Config) validateExecutor() error {
	if c.Executor.Timeout < 0 {
		return errors.New("executor.timeout must be zero (disabled) or positive")
	}
	if c.Executor.Command == "" && len(c.Executor.Args) > 0 {
		return errors.New("executor.args requires executor.command to be set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
