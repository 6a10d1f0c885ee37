package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"camqueue/internal/config"
	"camqueue/internal/controller"
	"camqueue/internal/logging"
	"camqueue/internal/logtail"
	"camqueue/internal/notifications"
	"camqueue/internal/queue"
)

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *queue.Store
	controller *controller.Controller
	notifier   notifications.Service
	logPath    string

	lockPath string
	lock     *flock.Flock

	metricsSrv *http.Server

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool
	PID            int
	QueueFilePath  string
	LockFilePath   string
	QueueRunning   bool
	QueuePaused    bool
	QueueStats     map[queue.Status]int
	CurrentJob     *queue.Job
	ArchiveEnabled bool
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, ctrl *controller.Controller, notifier notifications.Service, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || ctrl == nil {
		return nil, errors.New("daemon requires config, store, and controller")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		store:      store,
		controller: ctrl,
		notifier:   notifier,
		logPath:    filepath.Join(cfg.Paths.LogDir, logging.LogFileName),
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, recovers jobs stranded by an earlier
// crash, and launches the dispatch controller.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another camqueued instance is already running")
	}

	if recovered := d.store.RecoverStuck(); recovered > 0 {
		d.logger.Info("returned stranded jobs to pending",
			logging.Int("count", recovered),
			logging.String(logging.FieldEventType, "startup_recovery"),
		)
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.controller.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start controller: %w", err)
	}

	if err := d.startMetricsServer(); err != nil {
		d.controller.Stop()
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("camqueued started",
		logging.String("lock", d.lockPath),
		logging.String("queue_file", d.store.Path()),
	)
	return nil
}

func (d *Daemon) startMetricsServer() error {
	bind := d.cfg.Daemon.MetricsBind
	if bind == "" {
		return nil
	}

	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("listen for metrics on %s: %w", bind, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	d.metricsSrv = &http.Server{Handler: mux}

	go func() {
		if serveErr := d.metricsSrv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			d.logger.Warn("metrics server stopped",
				logging.Error(serveErr),
				logging.String(logging.FieldEventType, "metrics_server_stopped"),
			)
		}
	}()
	d.logger.Info("metrics server listening", logging.String("bind", bind))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = d.metricsSrv.Shutdown(shutdownCtx)
		cancel()
		d.metricsSrv = nil
	}
	d.controller.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("camqueued stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status reports runtime information for IPC clients.
func (d *Daemon) Status() Status {
	return Status{
		Running:        d.running.Load(),
		PID:            os.Getpid(),
		QueueFilePath:  d.store.Path(),
		LockFilePath:   d.lockPath,
		QueueRunning:   d.store.IsRunning(),
		QueuePaused:    d.store.IsPaused(),
		QueueStats:     d.store.Stats(),
		CurrentJob:     d.store.Current(),
		ArchiveEnabled: d.store.ArchiveEnabled(),
	}
}

// LogPath returns the daemon log file location.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// TailLog reads lines from the daemon log. A negative offset tails the last
// limit lines; a non-negative offset reads forward from that position.
func (d *Daemon) TailLog(offset int64, limit int) (logtail.Chunk, error) {
	return logtail.Read(d.logPath, offset, limit)
}

// QueueAdd enqueues a new job.
func (d *Daemon) QueueAdd(filePath, name string) (*queue.Job, error) {
	return d.store.Add(filePath, name)
}

// QueueSnapshot returns the full queue state.
func (d *Daemon) QueueSnapshot() queue.Snapshot {
	return d.store.Snapshot()
}

// QueueJobByID resolves a job and its position.
func (d *Daemon) QueueJobByID(id string) (*queue.Job, int, bool) {
	return d.store.JobByID(id)
}

// QueueJobAt resolves the job at a queue position.
func (d *Daemon) QueueJobAt(index int) (*queue.Job, bool) {
	return d.store.JobAt(index)
}

// QueueRemove deletes a job by ID.
func (d *Daemon) QueueRemove(id string) bool {
	return d.store.Remove(id)
}

// QueueMove reorders the queue.
func (d *Daemon) QueueMove(from, to int) bool {
	return d.store.Move(from, to)
}

// QueueHold suspends a pending job.
func (d *Daemon) QueueHold(id string) error {
	return d.store.Hold(id)
}

// QueueResume reinstates a held job.
func (d *Daemon) QueueResume(id string) error {
	return d.store.Resume(id)
}

// QueueSkip retires a pending or in-flight job.
func (d *Daemon) QueueSkip(id string) error {
	return d.store.Skip(id)
}

// SkipCurrent retires the job in flight.
func (d *Daemon) SkipCurrent() bool {
	return d.store.SkipCurrent()
}

// ClearCompleted retires terminal jobs into history.
func (d *Daemon) ClearCompleted() int {
	return d.store.ClearCompleted()
}

// StartQueue begins (or resumes) dispatching. The started notification is
// only sent for a fresh start, not when resuming from pause.
func (d *Daemon) StartQueue(ctx context.Context) {
	wasRunning := d.store.IsRunning()
	pending := d.store.Stats()[queue.StatusPending]
	d.store.Start()
	if !wasRunning {
		if err := d.notifier.NotifyQueueStarted(ctx, pending); err != nil {
			d.logger.Warn("notification delivery failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "notification_failed"),
			)
		}
	}
}

// PauseQueue suspends dispatching without touching the job in flight.
func (d *Daemon) PauseQueue() {
	d.store.Pause()
}

// StopQueue halts dispatching and clears the current pointer.
func (d *Daemon) StopQueue() {
	d.store.StopQueue()
}

// History returns retired jobs, either the document's bounded history or the
// full archive.
func (d *Daemon) History(archived bool, limit int) ([]*queue.Job, error) {
	if archived {
		return d.store.ArchivedHistory(limit)
	}
	history := d.store.History()
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history, nil
}

// ExecutionFinished applies an externally reported outcome to the job in
// flight.
func (d *Daemon) ExecutionFinished(success bool, errorMessage string) {
	d.controller.OnExecutionFinished(success, errorMessage)
}

// TestNotification sends a test message through the configured notifier.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, err.Error(), err
	}
	return true, "test notification sent", nil
}
