package testsupport

import (
	"path/filepath"
	"testing"

	"camqueue/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.QueueFile = filepath.Join(base, "queue", "job_queue.json")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.History.ArchivePath = filepath.Join(base, "history", "archive.db")

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithArchiveDisabled turns off the retired-jobs archive on the test config.
func WithArchiveDisabled() ConfigOption {
	return func(cfg *config.Config) {
		cfg.History.ArchiveEnabled = false
	}
}

// WithExecutor sets the external executor command on the test config.
func WithExecutor(command string, args ...string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Executor.Command = command
		cfg.Executor.Args = args
	}
}

// WithWatchdogTimeout enables the dispatch watchdog on the test config.
func WithWatchdogTimeout(seconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.WatchdogTimeout = seconds
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}
