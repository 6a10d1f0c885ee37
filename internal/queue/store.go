package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"camqueue/internal/config"
	"camqueue/internal/events"
	"camqueue/internal/logging"
	"camqueue/internal/metrics"
)

// HistoryLimit bounds the retired jobs kept inside the queue document. The
// archive, when enabled, retains everything beyond it.
const HistoryLimit = 50

// Store is the single owner of queue state and its backing JSON document.
// All mutators are atomic with respect to each other and persist the full
// document before returning.
type Store struct {
	mu      sync.Mutex
	path    string
	logger  *slog.Logger
	hub     *events.Hub
	archive *Archive

	jobs      []*Job
	history   []*Job
	currentID string
	isRunning bool
	isPaused  bool
}

// Open loads (or initializes) the queue document and, when configured, the
// history archive. Load is fail-soft: a missing or corrupt document yields an
// empty queue. The running/paused flags are always false after a load; a
// restart never auto-resumes execution.
func Open(cfg *config.Config, logger *slog.Logger, hub *events.Hub) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	store := &Store{
		path:   cfg.Paths.QueueFile,
		logger: logging.NewComponentLogger(logger, "queue-store"),
		hub:    hub,
	}
	store.load()

	if cfg.History.ArchiveEnabled {
		archive, err := OpenArchive(cfg.History.ArchivePath)
		if err != nil {
			return nil, fmt.Errorf("open history archive: %w", err)
		}
		store.archive = archive
	}

	return store, nil
}

// Close releases the history archive, if any.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	archive := s.archive
	s.archive = nil
	s.mu.Unlock()
	if archive != nil {
		return archive.Close()
	}
	return nil
}

// Path returns the queue document location.
func (s *Store) Path() string {
	return s.path
}

// ArchiveEnabled reports whether retired jobs are preserved in the archive.
func (s *Store) ArchiveEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.archive != nil
}

// Add appends a new pending job for the given file. The file's existence is
// deliberately not checked here; that belongs to the file-management layer.
func (s *Store) Add(filePath, name string) (*Job, error) {
	if strings.TrimSpace(filePath) == "" {
		return nil, errors.New("file path is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job := NewJob(filePath, name)
	s.jobs = append(s.jobs, job)
	s.persistLocked()
	metrics.JobsAddedTotal.Inc()
	s.publish(events.Event{
		Type:    events.TypeJobAdded,
		JobID:   job.ID,
		JobName: job.Name,
		Index:   len(s.jobs) - 1,
		Status:  string(job.Status),
	})
	return job.Clone(), nil
}

// Remove deletes the job with the given ID regardless of status. Removing
// the job currently in flight clears the current pointer; a later outcome for
// it is then rejected by the stale-completion guard.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(id)
	if idx < 0 {
		return false
	}
	return s.removeAtLocked(idx)
}

// RemoveAt deletes the job at the given position. Returns false when the
// index is out of range.
func (s *Store) RemoveAt(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.jobs) {
		return false
	}
	return s.removeAtLocked(index)
}

func (s *Store) removeAtLocked(index int) bool {
	job := s.jobs[index]
	s.jobs = append(s.jobs[:index], s.jobs[index+1:]...)
	if job.ID == s.currentID {
		s.currentID = ""
	}
	s.persistLocked()
	s.publish(events.Event{
		Type:    events.TypeJobRemoved,
		JobID:   job.ID,
		JobName: job.Name,
		Index:   index,
	})
	return true
}

// Move relocates a job within the queue ordering. The current pointer tracks
// the job by ID, so the in-flight job stays correctly tracked across
// reorders. Returns false when either index is out of range or from == to.
func (s *Store) Move(from, to int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if from == to || from < 0 || from >= len(s.jobs) || to < 0 || to >= len(s.jobs) {
		return false
	}

	job := s.jobs[from]
	s.jobs = append(s.jobs[:from], s.jobs[from+1:]...)
	rest := append([]*Job{}, s.jobs[to:]...)
	s.jobs = append(append(s.jobs[:to:to], job), rest...)

	s.persistLocked()
	s.publish(events.Event{
		Type:      events.TypeJobMoved,
		JobID:     job.ID,
		JobName:   job.Name,
		Index:     to,
		FromIndex: from,
		ToIndex:   to,
	})
	return true
}

// NextPending returns a copy of the first pending job in queue order. Held
// and terminal jobs never block a later pending job; dispatch order is
// strict FIFO among pending jobs.
func (s *Store) NextPending() *Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, job := range s.jobs {
		if job.Status == StatusPending {
			return job.Clone()
		}
	}
	return nil
}

// MarkRunning transitions the identified job to Running and records it as
// the job in flight. Only one job may be running at a time.
func (s *Store) MarkRunning(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentID != "" {
		return fmt.Errorf("job %s already in flight: %w", s.currentID, ErrInvalidTransition)
	}
	idx := s.indexOfLocked(id)
	if idx < 0 {
		return ErrJobNotFound
	}
	job := s.jobs[idx]
	if err := job.start(); err != nil {
		s.logInvalidTransition(job, StatusRunning)
		return err
	}
	s.currentID = job.ID
	s.persistLocked()
	s.publishStatusLocked(job, idx)
	return nil
}

// FinishCurrent applies an execution outcome to the job in flight. Outcomes
// that no longer match the current job are rejected with ErrStaleCompletion
// and mutate nothing.
func (s *Store) FinishCurrent(id string, success bool, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentID == "" || s.currentID != id {
		metrics.StaleOutcomesTotal.Inc()
		return ErrStaleCompletion
	}
	idx := s.indexOfLocked(id)
	if idx < 0 {
		// The current pointer always references an active job; a miss here
		// means the document was tampered with externally.
		s.currentID = ""
		metrics.StaleOutcomesTotal.Inc()
		return ErrStaleCompletion
	}
	job := s.jobs[idx]

	var err error
	if success {
		err = job.complete()
	} else {
		err = job.fail(errorMessage)
	}
	if err != nil {
		s.logInvalidTransition(job, StatusCompleted)
		return err
	}

	s.currentID = ""
	s.persistLocked()
	s.publishStatusLocked(job, idx)
	metrics.JobsFinishedTotal.WithLabelValues(string(job.Status)).Inc()
	metrics.JobDurationSeconds.Observe(job.Duration().Seconds())
	return nil
}

// SkipCurrent retires the job in flight without success or failure
// semantics and clears the current pointer so the next tick dispatches the
// following pending job.
func (s *Store) SkipCurrent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skipCurrentLocked()
}

func (s *Store) skipCurrentLocked() bool {
	if s.currentID == "" {
		return false
	}
	idx := s.indexOfLocked(s.currentID)
	if idx < 0 {
		s.currentID = ""
		return false
	}
	job := s.jobs[idx]
	if err := job.skip(); err != nil {
		s.logInvalidTransition(job, StatusSkipped)
		return false
	}
	s.currentID = ""
	s.persistLocked()
	s.publishStatusLocked(job, idx)
	metrics.JobsFinishedTotal.WithLabelValues(string(StatusSkipped)).Inc()
	return true
}

// Skip retires the identified job. The in-flight job is handled as
// SkipCurrent; otherwise only a pending job may be skipped.
func (s *Store) Skip(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" && id == s.currentID {
		if s.skipCurrentLocked() {
			return nil
		}
		return ErrInvalidTransition
	}

	idx := s.indexOfLocked(id)
	if idx < 0 {
		return ErrJobNotFound
	}
	job := s.jobs[idx]
	if err := job.skip(); err != nil {
		s.logInvalidTransition(job, StatusSkipped)
		return err
	}
	s.persistLocked()
	s.publishStatusLocked(job, idx)
	metrics.JobsFinishedTotal.WithLabelValues(string(StatusSkipped)).Inc()
	return nil
}

// Hold suspends a pending job in place. Holding a job in any other status is
// a silent no-op, preserved for compatibility with the console.
func (s *Store) Hold(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(id)
	if idx < 0 {
		return ErrJobNotFound
	}
	job := s.jobs[idx]
	if !job.hold() {
		return nil
	}
	s.persistLocked()
	s.publishStatusLocked(job, idx)
	return nil
}

// Resume reinstates a held job without losing its queue position. Resuming a
// job in any other status is a silent no-op.
func (s *Store) Resume(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(id)
	if idx < 0 {
		return ErrJobNotFound
	}
	job := s.jobs[idx]
	if !job.resume() {
		return nil
	}
	s.persistLocked()
	s.publishStatusLocked(job, idx)
	return nil
}

// ClearCompleted retires every terminal job into history, keeping the newest
// HistoryLimit entries in the document and appending everything to the
// archive when enabled. Pending, held, and running jobs keep their relative
// order. Returns the number of jobs retired.
func (s *Store) ClearCompleted() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var retired []*Job
	remaining := s.jobs[:0]
	for _, job := range s.jobs {
		if job.Status.IsTerminal() {
			retired = append(retired, job)
		} else {
			remaining = append(remaining, job)
		}
	}
	if len(retired) == 0 {
		return 0
	}

	s.jobs = remaining
	s.history = append(s.history, retired...)
	if over := len(s.history) - HistoryLimit; over > 0 {
		s.history = append([]*Job{}, s.history[over:]...)
	}
	s.currentID = ""

	if s.archive != nil {
		if err := s.archive.Append(retired...); err != nil {
			s.logger.Warn("history archive append failed; retired jobs kept only in document history",
				logging.Error(err),
				logging.String(logging.FieldEventType, "archive_append_failed"),
				logging.String(logging.FieldErrorHint, "check archive file permissions"),
			)
		}
	}

	s.persistLocked()
	return len(retired)
}

// Start sets the queue-level running flag. Dispatch is then driven by the
// controller's ticks.
func (s *Store) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.isRunning = true
	s.isPaused = false
	s.persistLocked()
	s.publish(events.Event{Type: events.TypeQueueStarted, Index: -1})
}

// Pause suspends dispatch without touching the job in flight.
func (s *Store) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.isPaused = true
	s.persistLocked()
	s.publish(events.Event{Type: events.TypeQueuePaused, Index: -1})
}

// StopQueue clears the running flags and the current pointer. The job in
// flight itself is not transitioned; the external executor may still report
// an outcome, which the stale-completion guard will discard.
func (s *Store) StopQueue() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.isRunning = false
	s.isPaused = false
	s.currentID = ""
	s.persistLocked()
	s.publish(events.Event{Type: events.TypeQueueStopped, Index: -1})
}

// NotifyQueueCompleted publishes the drained-queue event. Called by the
// controller after it stops the queue on exhaustion.
func (s *Store) NotifyQueueCompleted() {
	s.publish(events.Event{Type: events.TypeQueueCompleted, Index: -1})
}

// RecoverStuck returns jobs left Running by an earlier crash to Pending and
// clears the current pointer. Called once at daemon startup, never by Load,
// so that document round-trips stay faithful.
func (s *Store) RecoverStuck() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	recovered := 0
	for _, job := range s.jobs {
		if job.Status == StatusRunning {
			job.Status = StatusPending
			job.StartedAt = nil
			recovered++
		}
	}
	if recovered == 0 && s.currentID == "" {
		return 0
	}
	s.currentID = ""
	s.persistLocked()
	if recovered > 0 {
		s.logger.Info("recovered jobs left running by previous process",
			logging.Int("count", recovered),
			logging.String(logging.FieldEventType, "stuck_jobs_recovered"),
		)
	}
	return recovered
}

// IsRunning reports the queue-level running flag.
func (s *Store) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// IsPaused reports the queue-level paused flag.
func (s *Store) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isPaused
}

// Current returns a copy of the job in flight, or nil.
func (s *Store) Current() *Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(s.currentID)
	if idx < 0 {
		return nil
	}
	return s.jobs[idx].Clone()
}

// Jobs returns copies of the active queue in dispatch order.
func (s *Store) Jobs() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Job, len(s.jobs))
	for i, job := range s.jobs {
		out[i] = job.Clone()
	}
	return out
}

// History returns copies of the retired jobs held in the document, oldest
// first.
func (s *Store) History() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Job, len(s.history))
	for i, job := range s.history {
		out[i] = job.Clone()
	}
	return out
}

// JobByID returns a copy of the identified active job and its position.
func (s *Store) JobByID(id string) (*Job, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(id)
	if idx < 0 {
		return nil, -1, false
	}
	return s.jobs[idx].Clone(), idx, true
}

// JobAt returns a copy of the job at the given queue position.
func (s *Store) JobAt(index int) (*Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.jobs) {
		return nil, false
	}
	return s.jobs[index].Clone(), true
}

// Stats returns a count of active jobs grouped by status.
func (s *Store) Stats() map[Status]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statsLocked()
}

func (s *Store) statsLocked() map[Status]int {
	stats := make(map[Status]int, len(allStatuses))
	for _, job := range s.jobs {
		stats[job.Status]++
	}
	return stats
}

// Snapshot captures the full queue state for status reporting.
type Snapshot struct {
	Jobs         []*Job
	History      []*Job
	CurrentID    string
	CurrentIndex int
	IsRunning    bool
	IsPaused     bool
}

// Snapshot returns a consistent copy of the entire queue state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Jobs:         make([]*Job, len(s.jobs)),
		History:      make([]*Job, len(s.history)),
		CurrentID:    s.currentID,
		CurrentIndex: s.indexOfLocked(s.currentID),
		IsRunning:    s.isRunning,
		IsPaused:     s.isPaused,
	}
	for i, job := range s.jobs {
		snap.Jobs[i] = job.Clone()
	}
	for i, job := range s.history {
		snap.History[i] = job.Clone()
	}
	return snap
}

// ArchivedHistory lists retired jobs from the archive, newest first.
func (s *Store) ArchivedHistory(limit int) ([]*Job, error) {
	s.mu.Lock()
	archive := s.archive
	s.mu.Unlock()

	if archive == nil {
		return nil, errors.New("history archive is disabled")
	}
	return archive.List(limit)
}

func (s *Store) indexOfLocked(id string) int {
	if id == "" {
		return -1
	}
	for i, job := range s.jobs {
		if job.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) publish(evt events.Event) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(evt)
}

func (s *Store) publishStatusLocked(job *Job, index int) {
	s.publish(events.Event{
		Type:    events.TypeJobStatusChanged,
		JobID:   job.ID,
		JobName: job.Name,
		Index:   index,
		Status:  string(job.Status),
	})
}

func (s *Store) logInvalidTransition(job *Job, requested Status) {
	s.logger.Warn("rejected job status transition",
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldJobName, job.Name),
		logging.String("from", string(job.Status)),
		logging.String("requested", string(requested)),
		logging.String(logging.FieldEventType, "invalid_transition"),
	)
}

// persistLocked rewrites the whole document. Failures are logged and the
// in-memory mutation is retained; the next successful write catches the disk
// copy up.
func (s *Store) persistLocked() {
	doc := document{
		Queue:           make([]jobRecord, len(s.jobs)),
		History:         make([]jobRecord, len(s.history)),
		CurrentJobIndex: s.indexOfLocked(s.currentID),
		IsRunning:       s.isRunning,
		IsPaused:        s.isPaused,
		SavedTime:       formatTime(time.Now()),
	}
	for i, job := range s.jobs {
		doc.Queue[i] = recordFromJob(job)
	}
	for i, job := range s.history {
		doc.History[i] = recordFromJob(job)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err == nil {
		if mkErr := os.MkdirAll(filepath.Dir(s.path), 0o755); mkErr != nil {
			err = mkErr
		} else {
			err = os.WriteFile(s.path, data, 0o644)
		}
	}
	if err != nil {
		metrics.PersistenceFailuresTotal.Inc()
		s.logger.Error("queue document write failed; in-memory state retained",
			logging.Error(err),
			logging.String("queue_file", s.path),
			logging.String(logging.FieldEventType, "queue_persist_failed"),
			logging.String(logging.FieldErrorHint, "check queue file permissions and free space"),
		)
	}

	metrics.SetQueueDepth(statusCounts(s.statsLocked()), StatusNames())
	metrics.SetQueueRunning(s.isRunning)
}

func statusCounts(stats map[Status]int) map[string]int {
	out := make(map[string]int, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

// load reads the document from disk. Missing file or parse failure both
// yield an empty queue; the flags are always forced false so a restart never
// auto-resumes.
func (s *Store) load() {
	s.jobs = nil
	s.history = nil
	s.currentID = ""
	s.isRunning = false
	s.isPaused = false

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("queue document unreadable; starting with empty queue",
				logging.Error(err),
				logging.String("queue_file", s.path),
				logging.String(logging.FieldEventType, "queue_load_failed"),
			)
		}
		return
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn("queue document malformed; starting with empty queue",
			logging.Error(err),
			logging.String("queue_file", s.path),
			logging.String(logging.FieldEventType, "queue_load_failed"),
			logging.String(logging.FieldErrorHint, "move the file aside to preserve it for inspection"),
		)
		return
	}

	for _, rec := range doc.Queue {
		s.jobs = append(s.jobs, jobFromRecord(rec))
	}
	for _, rec := range doc.History {
		s.history = append(s.history, jobFromRecord(rec))
	}
	if doc.CurrentJobIndex >= 0 && doc.CurrentJobIndex < len(s.jobs) {
		job := s.jobs[doc.CurrentJobIndex]
		if job.Status == StatusRunning {
			s.currentID = job.ID
		}
	}
}
