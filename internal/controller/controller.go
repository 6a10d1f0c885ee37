package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"camqueue/internal/config"
	"camqueue/internal/logging"
	"camqueue/internal/metrics"
	"camqueue/internal/notifications"
	"camqueue/internal/queue"
)

// dispatch tracks the job currently handed to the executor.
type dispatch struct {
	token     string
	jobID     string
	jobName   string
	startedAt time.Time
}

// outcome is a completion report waiting for the controller goroutine. An
// empty token means "the job currently in flight", used by external
// completion reports that do not know the dispatch token.
type outcome struct {
	token        string
	success      bool
	errorMessage string
}

// Controller owns dispatch. All queue examination and all outcome
// application happen on its single goroutine.
type Controller struct {
	cfg          *config.Config
	store        *queue.Store
	executor     Executor
	notifier     notifications.Service
	logger       *slog.Logger
	pollInterval time.Duration
	watchdog     time.Duration

	outcomes chan outcome

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// Owned by the run goroutine.
	inflight   *dispatch
	runActive  bool
	runStart   time.Time
	baseCounts map[queue.Status]int
}

// Option configures optional Controller behavior.
type Option func(*Controller)

// WithPollInterval overrides the configured tick interval.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Controller) {
		c.pollInterval = interval
	}
}

// WithWatchdogTimeout overrides the configured watchdog deadline.
func WithWatchdogTimeout(timeout time.Duration) Option {
	return func(c *Controller) {
		c.watchdog = timeout
	}
}

// New constructs a controller. The executor's outcome reporter, when it has
// one, should be bound to the returned controller before Start.
func New(cfg *config.Config, store *queue.Store, executor Executor, notifier notifications.Service, logger *slog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	c := &Controller{
		cfg:          cfg,
		store:        store,
		executor:     executor,
		notifier:     notifier,
		logger:       logging.NewComponentLogger(logger, "controller"),
		pollInterval: time.Duration(cfg.Workflow.PollInterval) * time.Second,
		watchdog:     time.Duration(cfg.Workflow.WatchdogTimeout) * time.Second,
		outcomes:     make(chan outcome, 16),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start launches the dispatch goroutine.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return errors.New("controller already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.running = true
	c.wg.Add(1)
	go c.run(runCtx)
	return nil
}

// Stop terminates the dispatch goroutine and waits for it. The job in
// flight, if any, is left untouched; its eventual outcome is discarded by
// the store's stale-completion guard after a restart.
func (c *Controller) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	cancel := c.cancel
	c.running = false
	c.cancel = nil
	c.mu.Unlock()

	cancel()
	c.wg.Wait()
}

// ReportOutcome delivers an executor completion for a specific dispatch.
func (c *Controller) ReportOutcome(token string, success bool, errorMessage string) {
	c.enqueueOutcome(outcome{token: token, success: success, errorMessage: errorMessage})
}

// OnExecutionFinished delivers an external completion report for the job in
// flight, e.g. an operator confirming a finished cut over IPC.
func (c *Controller) OnExecutionFinished(success bool, errorMessage string) {
	c.enqueueOutcome(outcome{success: success, errorMessage: errorMessage})
}

func (c *Controller) enqueueOutcome(o outcome) {
	select {
	case c.outcomes <- o:
	default:
		// The buffer only fills if the controller is stopped; such outcomes
		// would be stale anyway.
		metrics.StaleOutcomesTotal.Inc()
		c.logger.Warn("dropped execution outcome; controller not consuming",
			logging.String(logging.FieldDispatchID, o.token),
			logging.String(logging.FieldEventType, "outcome_dropped"),
		)
	}
}

func (c *Controller) run(ctx context.Context) {
	defer c.wg.Done()

	interval := c.pollInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case o := <-c.outcomes:
			c.applyOutcome(ctx, o)
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

// tick makes one dispatch decision against current queue state.
func (c *Controller) tick(ctx context.Context) {
	if c.inflight != nil {
		c.reconcileInflight(ctx)
		if c.inflight != nil {
			return
		}
	}

	if !c.store.IsRunning() {
		c.runActive = false
		return
	}
	if !c.runActive {
		c.runActive = true
		c.runStart = time.Now()
		c.baseCounts = c.store.Stats()
	}
	if c.store.IsPaused() {
		return
	}

	next := c.store.NextPending()
	if next == nil {
		c.finishRun(ctx)
		return
	}

	if err := c.store.MarkRunning(next.ID); err != nil {
		c.logger.Error("failed to mark job running",
			logging.Error(err),
			logging.String(logging.FieldJobID, next.ID),
			logging.String(logging.FieldEventType, "dispatch_failed"),
		)
		return
	}

	d := &dispatch{
		token:     uuid.NewString(),
		jobID:     next.ID,
		jobName:   next.Name,
		startedAt: time.Now(),
	}
	c.inflight = d
	metrics.JobsDispatchedTotal.Inc()
	c.logger.Info("dispatching job",
		logging.String(logging.FieldJobID, d.jobID),
		logging.String(logging.FieldJobName, d.jobName),
		logging.String(logging.FieldDispatchID, d.token),
	)

	execCtx := logging.WithDispatchID(logging.WithJobID(ctx, d.jobID), d.token)
	if err := c.executor.RequestExecution(execCtx, d.token, next); err != nil {
		c.logger.Error("execution launch failed",
			logging.Error(err),
			logging.String(logging.FieldJobID, d.jobID),
			logging.String(logging.FieldDispatchID, d.token),
			logging.String(logging.FieldEventType, "execution_launch_failed"),
			logging.String(logging.FieldErrorHint, "check executor command in config"),
		)
		c.failInflight(ctx, fmt.Sprintf("launch failed: %v", err))
	}
}

// reconcileInflight handles the in-flight job changing underneath the
// controller: skipped, removed, or stopped from the outside, or stuck past
// the watchdog deadline.
func (c *Controller) reconcileInflight(ctx context.Context) {
	d := c.inflight

	current := c.store.Current()
	if current == nil || current.ID != d.jobID {
		c.logger.Info("in-flight job no longer current; abandoning dispatch",
			logging.String(logging.FieldJobID, d.jobID),
			logging.String(logging.FieldDispatchID, d.token),
		)
		c.inflight = nil
		return
	}

	if c.watchdog > 0 && time.Since(d.startedAt) > c.watchdog {
		metrics.WatchdogTimeoutsTotal.Inc()
		c.logger.Warn("watchdog expired for in-flight job",
			logging.String(logging.FieldJobID, d.jobID),
			logging.String(logging.FieldJobName, d.jobName),
			logging.String(logging.FieldDispatchID, d.token),
			logging.Duration("elapsed", time.Since(d.startedAt)),
			logging.String(logging.FieldEventType, "watchdog_timeout"),
			logging.String(logging.FieldErrorHint, "verify the machine interface is reporting completions"),
		)
		c.failInflight(ctx, fmt.Sprintf("no completion report within %s", c.watchdog))
	}
}

func (c *Controller) failInflight(ctx context.Context, message string) {
	d := c.inflight
	c.inflight = nil
	if err := c.store.FinishCurrent(d.jobID, false, message); err != nil {
		c.logger.Warn("could not record dispatch failure",
			logging.Error(err),
			logging.String(logging.FieldJobID, d.jobID),
		)
		return
	}
	if err := c.notifier.NotifyJobFailed(ctx, d.jobName, message); err != nil {
		c.logNotifyError(err)
	}
}

func (c *Controller) applyOutcome(ctx context.Context, o outcome) {
	d := c.inflight
	if d == nil {
		metrics.StaleOutcomesTotal.Inc()
		c.logger.Info("ignoring execution outcome with nothing in flight",
			logging.String(logging.FieldDispatchID, o.token),
			logging.String(logging.FieldEventType, "stale_outcome"),
		)
		return
	}
	if o.token != "" && o.token != d.token {
		metrics.StaleOutcomesTotal.Inc()
		c.logger.Info("ignoring execution outcome from superseded dispatch",
			logging.String(logging.FieldDispatchID, o.token),
			logging.String(logging.FieldEventType, "stale_outcome"),
		)
		return
	}

	c.inflight = nil
	if err := c.store.FinishCurrent(d.jobID, o.success, o.errorMessage); err != nil {
		if errors.Is(err, queue.ErrStaleCompletion) {
			c.logger.Info("execution outcome arrived after job left the queue",
				logging.String(logging.FieldJobID, d.jobID),
				logging.String(logging.FieldDispatchID, d.token),
				logging.String(logging.FieldEventType, "stale_outcome"),
			)
			return
		}
		c.logger.Error("failed to record execution outcome",
			logging.Error(err),
			logging.String(logging.FieldJobID, d.jobID),
		)
		return
	}

	c.logger.Info("job finished",
		logging.String(logging.FieldJobID, d.jobID),
		logging.String(logging.FieldJobName, d.jobName),
		logging.Bool("success", o.success),
		logging.Duration("elapsed", time.Since(d.startedAt)),
	)
	if !o.success {
		if err := c.notifier.NotifyJobFailed(ctx, d.jobName, o.errorMessage); err != nil {
			c.logNotifyError(err)
		}
	}
}

// finishRun stops the queue once it drains and reports the run summary.
func (c *Controller) finishRun(ctx context.Context) {
	stats := c.store.Stats()
	completed := runDelta(stats, c.baseCounts, queue.StatusCompleted)
	failed := runDelta(stats, c.baseCounts, queue.StatusFailed)
	skipped := runDelta(stats, c.baseCounts, queue.StatusSkipped)
	elapsed := time.Since(c.runStart)
	c.runActive = false

	c.store.StopQueue()
	c.store.NotifyQueueCompleted()
	c.logger.Info("queue drained; stopping",
		logging.Int("completed", completed),
		logging.Int("failed", failed),
		logging.Int("skipped", skipped),
		logging.Duration("elapsed", elapsed),
		logging.String(logging.FieldEventType, "queue_completed"),
	)
	if err := c.notifier.NotifyQueueCompleted(ctx, completed, failed, skipped, elapsed); err != nil {
		c.logNotifyError(err)
	}
}

func (c *Controller) logNotifyError(err error) {
	c.logger.Warn("notification delivery failed",
		logging.Error(err),
		logging.String(logging.FieldEventType, "notification_failed"),
	)
}

func runDelta(now, base map[queue.Status]int, status queue.Status) int {
	delta := now[status] - base[status]
	if delta < 0 {
		return 0
	}
	return delta
}
