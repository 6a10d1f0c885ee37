package queue

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle of a queued job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	StatusHeld      Status = "held"
)

var allStatuses = []Status{
	StatusPending,
	StatusRunning,
	StatusCompleted,
	StatusFailed,
	StatusSkipped,
	StatusHeld,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// StatusNames returns the lowercase names of all known statuses.
func StatusNames() []string {
	names := make([]string, len(allStatuses))
	for i, status := range allStatuses {
		names[i] = string(status)
	}
	return names
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status is final.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusSkipped:
		return true
	default:
		return false
	}
}

// Job is a single schedulable unit of work: a file path plus lifecycle state.
// Jobs are owned exclusively by the Store while active and move into history
// on retirement.
type Job struct {
	ID           string
	FilePath     string
	Name         string
	Status       Status
	CreatedAt    time.Time
	StartedAt    *time.Time
	EndedAt      *time.Time
	ErrorMessage string
	Metadata     map[string]string
}

// NewJob constructs a pending job for the given file. The display name
// defaults to the file's base name.
func NewJob(filePath, name string) *Job {
	if strings.TrimSpace(name) == "" {
		name = filepath.Base(filePath)
	}
	return &Job{
		ID:        uuid.NewString(),
		FilePath:  filePath,
		Name:      name,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
		Metadata:  map[string]string{},
	}
}

// Duration returns the wall time between start and end, or zero when the job
// has not both started and ended.
func (j *Job) Duration() time.Duration {
	if j.StartedAt == nil || j.EndedAt == nil {
		return 0
	}
	return j.EndedAt.Sub(*j.StartedAt)
}

// Clone returns a deep copy safe to hand outside the store's lock.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	cp := *j
	if j.StartedAt != nil {
		t := *j.StartedAt
		cp.StartedAt = &t
	}
	if j.EndedAt != nil {
		t := *j.EndedAt
		cp.EndedAt = &t
	}
	cp.Metadata = make(map[string]string, len(j.Metadata))
	for k, v := range j.Metadata {
		cp.Metadata[k] = v
	}
	return &cp
}

// start transitions Pending -> Running and records the start time.
func (j *Job) start() error {
	if j.Status != StatusPending {
		return ErrInvalidTransition
	}
	now := time.Now().UTC()
	j.Status = StatusRunning
	j.StartedAt = &now
	return nil
}

// complete transitions Running -> Completed and records the end time.
func (j *Job) complete() error {
	if j.Status != StatusRunning {
		return ErrInvalidTransition
	}
	now := time.Now().UTC()
	j.Status = StatusCompleted
	j.EndedAt = &now
	return nil
}

// fail transitions Running -> Failed with an error message.
func (j *Job) fail(message string) error {
	if j.Status != StatusRunning {
		return ErrInvalidTransition
	}
	now := time.Now().UTC()
	j.Status = StatusFailed
	j.EndedAt = &now
	j.ErrorMessage = message
	return nil
}

// skip retires a Pending or Running job without success or failure semantics.
func (j *Job) skip() error {
	if j.Status != StatusPending && j.Status != StatusRunning {
		return ErrInvalidTransition
	}
	now := time.Now().UTC()
	j.Status = StatusSkipped
	j.EndedAt = &now
	return nil
}

// hold suspends a Pending job. Applying it to any other status is a silent
// no-op; the console has always treated the button that way and collaborators
// depend on it.
func (j *Job) hold() bool {
	if j.Status != StatusPending {
		return false
	}
	j.Status = StatusHeld
	return true
}

// resume reinstates a Held job. A silent no-op for any other status, same as
// hold.
func (j *Job) resume() bool {
	if j.Status != StatusHeld {
		return false
	}
	j.Status = StatusPending
	return true
}
