package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"camqueue/internal/config"
)

func TestDefaultPreservesLegacyQueuePath(t *testing.T) {
	cfg := config.Default()
	if !strings.Contains(cfg.Paths.QueueFile, "linuxcnc/configs/job_queue.json") {
		t.Fatalf("unexpected default queue file: %q", cfg.Paths.QueueFile)
	}
	if cfg.Workflow.PollInterval != 1 {
		t.Fatalf("expected 1s default poll interval, got %d", cfg.Workflow.PollInterval)
	}
	if cfg.Workflow.WatchdogTimeout != 0 {
		t.Fatalf("expected watchdog disabled by default, got %d", cfg.Workflow.WatchdogTimeout)
	}
	if cfg.Daemon.MetricsBind != "" {
		t.Fatalf("expected metrics disabled by default, got %q", cfg.Daemon.MetricsBind)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected missing config to report exists=false")
	}
	if resolved != path {
		t.Fatalf("expected resolved path %q, got %q", path, resolved)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("expected default log format, got %q", cfg.Logging.Format)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
[paths]
queue_file = "` + filepath.Join(dir, "queue.json") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[executor]
command = "  linuxcnc-batch  "
args = ["--run", " "]

[workflow]
poll_interval = 2
watchdog_timeout = 30

[logging]
format = "JSON"
level = "DEBUG"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be detected")
	}
	if cfg.Executor.Command != "linuxcnc-batch" {
		t.Fatalf("expected trimmed executor command, got %q", cfg.Executor.Command)
	}
	if len(cfg.Executor.Args) != 1 || cfg.Executor.Args[0] != "--run" {
		t.Fatalf("expected blank args dropped, got %#v", cfg.Executor.Args)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected lowercased logging settings, got %q/%q", cfg.Logging.Format, cfg.Logging.Level)
	}
	if cfg.History.ArchivePath != filepath.Join(cfg.Paths.LogDir, "history.db") {
		t.Fatalf("expected archive path under log dir, got %q", cfg.History.ArchivePath)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero poll interval", func(c *config.Config) { c.Workflow.PollInterval = 0 }},
		{"negative watchdog", func(c *config.Config) { c.Workflow.WatchdogTimeout = -1 }},
		{"args without command", func(c *config.Config) {
			c.Executor.Command = ""
			c.Executor.Args = []string{"--run"}
		}},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "yaml" }},
		{"bad log level", func(c *config.Config) { c.Logging.Level = "verbose" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Logging.Format = "console"
			cfg.Logging.Level = "info"
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[workflow]") {
		t.Fatalf("expected sample contents, got %q", data)
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected error overwriting existing config")
	}
}
