package controller

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"camqueue/internal/config"
	"camqueue/internal/logging"
	"camqueue/internal/queue"
)

// Executor launches the machine-side execution of a job. RequestExecution
// must return promptly; the actual run happens in the background and its
// outcome is delivered through the OutcomeReporter bound to the executor.
type Executor interface {
	RequestExecution(ctx context.Context, token string, job *queue.Job) error
}

// OutcomeReporter receives execution outcomes tagged with the dispatch token
// they answer. The Controller implements it.
type OutcomeReporter interface {
	ReportOutcome(token string, success bool, errorMessage string)
}

// ManualExecutor performs no launch of its own. It serves installations
// where the machine interface drives the program and reports the outcome
// back over IPC when the cut finishes.
type ManualExecutor struct {
	logger *slog.Logger
}

// NewManualExecutor returns an executor that waits for external completion
// reports.
func NewManualExecutor(logger *slog.Logger) *ManualExecutor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ManualExecutor{logger: logging.NewComponentLogger(logger, "manual-executor")}
}

func (e *ManualExecutor) RequestExecution(ctx context.Context, token string, job *queue.Job) error {
	e.logger.Info("job dispatched; awaiting external completion report",
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldJobName, job.Name),
		logging.String(logging.FieldDispatchID, token),
	)
	return nil
}

// CommandExecutor runs a configured external command per job, appending the
// job's file path as the final argument, and reports the process outcome.
type CommandExecutor struct {
	command  string
	args     []string
	timeout  time.Duration
	reporter OutcomeReporter
	logger   *slog.Logger
}

// NewCommandExecutor builds an executor from the configured command line.
func NewCommandExecutor(cfg *config.Config, logger *slog.Logger) *CommandExecutor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &CommandExecutor{
		command: cfg.Executor.Command,
		args:    append([]string{}, cfg.Executor.Args...),
		timeout: time.Duration(cfg.Executor.Timeout) * time.Second,
		logger:  logging.NewComponentLogger(logger, "command-executor"),
	}
}

// Bind attaches the outcome reporter. Must be called before the first
// dispatch.
func (e *CommandExecutor) Bind(reporter OutcomeReporter) {
	e.reporter = reporter
}

func (e *CommandExecutor) RequestExecution(ctx context.Context, token string, job *queue.Job) error {
	if e.reporter == nil {
		return fmt.Errorf("command executor has no outcome reporter bound")
	}
	if strings.TrimSpace(e.command) == "" {
		return fmt.Errorf("executor command is empty")
	}

	runCtx := ctx
	cancel := context.CancelFunc(func() {})
	if e.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
	}

	args := append(append([]string{}, e.args...), job.FilePath)
	cmd := exec.CommandContext(runCtx, e.command, args...)

	logger := e.logger.With(logging.Args(
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldJobName, job.Name),
		logging.String(logging.FieldDispatchID, token),
	)...)

	go func() {
		defer cancel()

		output, err := cmd.CombinedOutput()
		if err == nil {
			logger.Info("execution command completed")
			e.reporter.ReportOutcome(token, true, "")
			return
		}

		message := err.Error()
		if runCtx.Err() == context.DeadlineExceeded {
			message = fmt.Sprintf("execution timed out after %s", e.timeout)
		} else if tail := outputTail(output); tail != "" {
			message = fmt.Sprintf("%s: %s", message, tail)
		}
		logger.Warn("execution command failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "execution_failed"),
		)
		e.reporter.ReportOutcome(token, false, message)
	}()

	return nil
}

// outputTail returns the last few lines of combined output for the failure
// message. The full output stays in the external tool's own logs.
func outputTail(output []byte) string {
	trimmed := strings.TrimSpace(string(output))
	if trimmed == "" {
		return ""
	}
	lines := strings.Split(trimmed, "\n")
	const keep = 3
	if len(lines) > keep {
		lines = lines[len(lines)-keep:]
	}
	return strings.Join(lines, " | ")
}
